package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"objvault/pkg/config"
	"objvault/pkg/refs"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:         "init",
	Short:       "Initialize an objvault repository",
	Long:        `Create an empty objvault repository or reinitialize an existing one.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationNoRepo: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		s := config.Get()
		out := cmd.OutOrStdout()

		_, statErr := os.Stat(s.RepoPath)
		existed := statErr == nil

		dirs := []string{s.RepoPath, filepath.Join(s.RepoPath, "refs", "heads")}
		if s.Storage.Type == "" || s.Storage.Type == "disk" {
			dirs = append(dirs, s.Storage.Path)
		}
		for _, d := range dirs {
			if err := os.MkdirAll(d, 0755); err != nil {
				return fmt.Errorf("failed to create repo directory: %w", err)
			}
		}

		if err := refs.NewManager(s.RepoPath).Init(); err != nil {
			return fmt.Errorf("failed to init refs: %w", err)
		}

		if existed {
			fmt.Fprintf(out, "Reinitialized existing objvault repository in %s\n", s.RepoPath)
		} else {
			fmt.Fprintf(out, "Initialized empty objvault repository in %s\n", s.RepoPath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
