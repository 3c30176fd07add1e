package commands

import (
	"fmt"

	"objvault/pkg/config"
	"objvault/pkg/storage"
	"objvault/pkg/types"

	"github.com/spf13/cobra"
)

var (
	commitTreeParent  string
	commitTreeMessage string
	commitTreeAuthor  string
)

var commitTreeCmd = &cobra.Command{
	Use:   "commit-tree <tree> [-p parent] -m <message>",
	Short: "Create a commit object for a tree without moving HEAD",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		tree, err := resolveRev(ctx, OV, args[0])
		if err != nil {
			return err
		}
		if _, err := storage.ReadTree(ctx, OV.Store, tree); err != nil {
			return fmt.Errorf("%s is not a tree: %w", tree, err)
		}

		var parent types.Hash
		if commitTreeParent != "" {
			if parent, err = resolveRev(ctx, OV, commitTreeParent); err != nil {
				return err
			}
		}

		author := authorOr(commitTreeAuthor)
		id, err := OV.History.CreateCommit(ctx, tree, parent, author, commitTreeMessage)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

// authorOr 优先使用 flag，否则回落到配置里的 user.name
func authorOr(flag string) string {
	if flag != "" {
		return flag
	}
	if OV != nil && OV.Settings.UserName != "" {
		return OV.Settings.UserName
	}
	if name := config.Get().UserName; name != "" {
		return name
	}
	return "unknown"
}

func init() {
	rootCmd.AddCommand(commitTreeCmd)
	commitTreeCmd.Flags().StringVarP(&commitTreeParent, "parent", "p", "", "parent commit id")
	commitTreeCmd.Flags().StringVarP(&commitTreeMessage, "message", "m", "", "commit message")
	commitTreeCmd.Flags().StringVar(&commitTreeAuthor, "author", "", "override author (default user.name)")
	_ = commitTreeCmd.MarkFlagRequired("message")
}
