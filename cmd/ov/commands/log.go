package commands

import (
	"errors"
	"fmt"
	"io"

	"objvault/pkg/core"
	"objvault/pkg/history"
	"objvault/pkg/types"

	"github.com/spf13/cobra"
)

var (
	logAuthor string
	logLimit  int
)

var logCmd = &cobra.Command{
	Use:   "log [commit]",
	Short: "Show commit logs",
	Long: `Display the commit history starting from the specified commit (or HEAD if not specified).
With --author the metadata index is queried instead of walking the chain.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if logAuthor != "" && OV.Meta != nil {
			rows, err := OV.Meta.FindCommitsByAuthor(ctx, logAuthor, logLimit)
			if err != nil {
				return fmt.Errorf("failed to query commits: %w", err)
			}
			for _, r := range rows {
				c := &core.Commit{
					Tree:    types.Hash(r.TreeHash),
					Parent:  types.Hash(r.ParentHash),
					Author:  r.Author,
					Message: r.Message,
				}
				printCommitLog(out, types.Hash(r.Hash), c)
			}
			return nil
		}

		rev := "HEAD"
		if len(args) > 0 {
			rev = args[0]
		}
		start, err := resolveRev(ctx, OV, rev)
		if err != nil {
			return err
		}

		// 没有 meta 索引时退化为遍历后过滤
		shown := 0
		err = OV.History.Walk(ctx, start, func(e history.Entry) error {
			if logAuthor != "" && e.Commit.Author != logAuthor {
				return nil
			}
			printCommitLog(out, e.Hash, e.Commit)
			shown++
			if logLimit > 0 && shown >= logLimit {
				return history.ErrStopWalk
			}
			return nil
		})
		if errors.Is(err, history.ErrIncompleteChain) {
			return fmt.Errorf("history is incomplete: %w", err)
		}
		return err
	},
}

// printCommitLog 格式化输出
func printCommitLog(w io.Writer, hash types.Hash, c *core.Commit) {
	// ANSI 颜色，和 git 一样把 commit 行标黄
	const (
		colorYellow = "\033[33m"
		colorReset  = "\033[0m"
	)

	fmt.Fprintf(w, "%scommit %s%s\n", colorYellow, hash, colorReset)
	if c.HasParent() {
		fmt.Fprintf(w, "Parent: %s\n", c.Parent.Short())
	}
	fmt.Fprintf(w, "Author: %s\n", c.Author)
	fmt.Fprintf(w, "\n    %s\n\n", c.Message)
}

func init() {
	rootCmd.AddCommand(logCmd)
	logCmd.Flags().StringVar(&logAuthor, "author", "", "only show commits by this author")
	logCmd.Flags().IntVarP(&logLimit, "max-count", "n", 0, "limit the number of commits shown")
}
