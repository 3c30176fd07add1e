package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"objvault/pkg/app"
	"objvault/pkg/config"
	"objvault/pkg/refs"
	"objvault/pkg/types"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// annotationNoRepo 标记不需要打开仓库的命令
const annotationNoRepo = "ov/no-repo"

var (
	cfgFile string
	// 全局应用实例，供子命令使用
	OV *app.App
)

var rootCmd = &cobra.Command{
	Use:           "ov",
	Short:         "objvault: content-addressed version control plumbing",
	SilenceUsage:  true,
	SilenceErrors: true,
	// PersistentPreRunE 会在所有子命令执行前运行
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s := config.Get()
		slog.SetDefault(app.NewLogger(s.Log.Level, s.Log.Format, cmd.ErrOrStderr()))

		// init 和 hash-object 不需要已存在的仓库
		if cmd.Annotations[annotationNoRepo] != "" {
			return nil
		}
		_, err := requireApp(cmd.Context())
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if OV == nil {
			return nil
		}
		err := OV.Close()
		OV = nil
		return err
	},
}

// Execute 是入口
func Execute() error {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.ov/config.yaml or $HOME/.ov/config.yaml)")

	// 用户既可以在 yaml 里写，也可以用 flag 覆盖
	flags := []struct{ flag, key, usage string }{
		{"repo", "repo.path", "repository metadata directory (default ./.ov)"},
		{"storage-path", "storage.path", "directory to store objects"},
		{"log-level", "log.level", "log level: debug, info, warn, error"},
	}
	for _, f := range flags {
		rootCmd.PersistentFlags().String(f.flag, "", f.usage)
		if err := viper.BindPFlag(f.key, rootCmd.PersistentFlags().Lookup(f.flag)); err != nil {
			panic(err)
		}
	}
}

// initConfig 读取配置文件和环境变量
func initConfig() {
	if err := config.Load(cfgFile); err != nil {
		fmt.Fprintln(os.Stderr, "Config error:", err)
		os.Exit(1)
	}
}

// requireApp 按需打开仓库
func requireApp(ctx context.Context) (*app.App, error) {
	if OV != nil {
		return OV, nil
	}
	s := config.Get()
	if _, err := os.Stat(s.RepoPath); err != nil {
		return nil, fmt.Errorf("not an objvault repository: %s (did you run 'ov init'?)", s.RepoPath)
	}
	a, err := app.NewApp(ctx, s, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize objvault: %w", err)
	}
	OV = a
	return OV, nil
}

// workDir 是仓库元数据目录的上一级，即被快照的工作目录
func workDir(a *app.App) string {
	return filepath.Dir(a.Settings.RepoPath)
}

// resolveRev 把用户输入 ("HEAD" 或短哈希) 解析成完整 id
func resolveRev(ctx context.Context, a *app.App, rev string) (types.Hash, error) {
	if rev == "" || rev == "HEAD" {
		head, err := a.Refs.GetHead(ctx)
		if errors.Is(err, refs.ErrNoHead) {
			return "", fmt.Errorf("no commits yet")
		}
		return head, err
	}
	id, err := a.Store.ExpandHash(ctx, types.HashPrefix(rev))
	if err != nil {
		return "", fmt.Errorf("invalid object name %q: %w", rev, err)
	}
	return id, nil
}
