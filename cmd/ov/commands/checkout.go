package commands

import (
	"fmt"
	"time"

	"objvault/pkg/exporter"
	"objvault/pkg/types"

	"github.com/spf13/cobra"
)

var checkoutCmd = &cobra.Command{
	Use:   "checkout <commit> [dir]",
	Short: "Restore the files of a commit into a directory",
	Long: `Write every file recorded in the commit's tree into dir (default: the working directory).
Existing files with the same path are overwritten; other files are left alone. HEAD is not moved.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		start := time.Now()

		commitHash, err := resolveRev(ctx, OV, args[0])
		if err != nil {
			return err
		}
		target := workDir(OV)
		if len(args) == 2 {
			target = args[1]
		}

		var files int
		var bytes int64
		onRestore := func(path string, hash types.Hash, size int64) {
			files++
			bytes += size
			OV.Logger.Debug("restored", "path", path, "hash", hash.Short(), "size", size)
		}

		tree, err := OV.Exporter.RestoreCommit(ctx, commitHash, target, exporter.RestoreCallback(onRestore))
		if err != nil {
			return fmt.Errorf("checkout failed: %w", err)
		}

		fmt.Fprintf(out, "Checked out %s (tree %s): %d files, %s in %s\n",
			commitHash.Short(), tree.Short(), files, exporter.FormatSize(bytes), time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkoutCmd)
}
