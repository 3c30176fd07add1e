package commands

import (
	"errors"
	"fmt"

	"objvault/pkg/refs"
	"objvault/pkg/storage"

	"github.com/spf13/cobra"
)

var (
	commitMessage    string
	commitAuthor     string
	commitAllowEmpty bool
)

var commitCmd = &cobra.Command{
	Use:   "commit -m <message>",
	Short: "Snapshot the working directory and advance HEAD",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		// 1. 快照工作目录
		tree, err := snapshot(ctx, OV, workDir(OV))
		if err != nil {
			return err
		}

		// 2. 读取当前 HEAD 作为 parent
		parent, err := OV.Refs.GetHead(ctx)
		if err != nil && !errors.Is(err, refs.ErrNoHead) {
			return fmt.Errorf("failed to read HEAD: %w", err)
		}

		// 3. 内容没变就不提交
		if !parent.IsZero() && !commitAllowEmpty {
			prev, err := storage.ReadCommit(ctx, OV.Store, parent)
			if err != nil {
				return fmt.Errorf("failed to read HEAD commit: %w", err)
			}
			if prev.Tree == tree {
				fmt.Fprintln(out, "nothing to commit, working tree clean")
				return nil
			}
		}

		// 4. 写 commit 对象
		author := authorOr(commitAuthor)
		id, err := OV.History.CreateCommit(ctx, tree, parent, author, commitMessage)
		if err != nil {
			return err
		}

		// 5. CAS 推进 HEAD
		if err := OV.Refs.UpdateHead(ctx, id, parent); err != nil {
			if errors.Is(err, refs.ErrStaleHead) {
				return fmt.Errorf("HEAD moved during commit, retry: %w", err)
			}
			return fmt.Errorf("failed to update HEAD: %w", err)
		}

		branch, err := OV.Refs.CurrentBranch()
		if err != nil {
			branch = "HEAD"
		}

		// 6. 元数据索引是可选的，失败不影响提交本身
		if OV.Meta != nil {
			c, err := storage.ReadCommit(ctx, OV.Store, id)
			if err == nil {
				err = OV.Meta.IndexCommit(ctx, id, c)
			}
			if err == nil {
				err = OV.Meta.SyncRef(ctx, branch, id)
			}
			if err != nil {
				OV.Logger.Warn("failed to index commit", "hash", id, "error", err)
			}
		}

		fmt.Fprintf(out, "[%s %s] %s\n", branch, id.Short(), commitMessage)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(commitCmd)
	commitCmd.Flags().StringVarP(&commitMessage, "message", "m", "", "commit message")
	commitCmd.Flags().StringVar(&commitAuthor, "author", "", "override author (default user.name)")
	commitCmd.Flags().BoolVar(&commitAllowEmpty, "allow-empty", false, "commit even if the tree did not change")
	_ = commitCmd.MarkFlagRequired("message")
}
