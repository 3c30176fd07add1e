package commands

import (
	"context"
	"fmt"

	"objvault/pkg/app"
	"objvault/pkg/ignore"
	"objvault/pkg/treebuilder"
	"objvault/pkg/types"

	"github.com/spf13/cobra"
)

var writeTreeCmd = &cobra.Command{
	Use:   "write-tree [dir]",
	Short: "Snapshot a directory into tree objects and print the root id",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := workDir(OV)
		if len(args) == 1 {
			dir = args[0]
		}
		id, err := snapshot(cmd.Context(), OV, dir)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

// snapshot 读取 dir 下的 .ovignore，然后把整个目录写入存储
func snapshot(ctx context.Context, a *app.App, dir string) (types.Hash, error) {
	matcher, err := ignore.NewMatcher(dir)
	if err != nil {
		return "", fmt.Errorf("failed to load ignore rules: %w", err)
	}
	b := treebuilder.NewBuilder(a.Store,
		treebuilder.WithMatcher(matcher),
		treebuilder.WithLogger(a.Logger),
		// 仓库目录可能不叫 .ov，按绝对路径排除它和放在外面的对象目录
		treebuilder.WithExclude(repoPaths(a)...),
	)
	id, err := b.Build(ctx, dir)
	if err != nil {
		return "", fmt.Errorf("write-tree failed: %w", err)
	}
	return id, nil
}

// repoPaths 返回不应被快照收录的仓库自身路径
func repoPaths(a *app.App) []string {
	paths := []string{a.Settings.RepoPath}
	switch a.Settings.Storage.Type {
	case "", "disk", "badger":
		paths = append(paths, a.Settings.Storage.Path)
	}
	if a.Settings.Meta.Driver == "sqlite" && a.Settings.Meta.DSN != "" {
		paths = append(paths, a.Settings.Meta.DSN)
	}
	return paths
}

func init() {
	rootCmd.AddCommand(writeTreeCmd)
}
