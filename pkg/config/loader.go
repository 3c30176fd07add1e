package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// RepoDirName 是仓库元数据目录的名字
const RepoDirName = ".ov"

// Load 初始化 Viper 配置
// cfgFile: 可选，用户显式指定的配置文件路径
func Load(cfgFile string) error {
	// 1. 设置默认值
	setDefaults()

	// 2. 配置搜索路径
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// 搜索顺序：当前目录 -> ./.ov -> ~/.ov
		viper.AddConfigPath(".")
		viper.AddConfigPath(RepoDirName)
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, RepoDirName))
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName("config") // 找 config.yaml
	}

	// 3. 读取环境变量 (OV_STORAGE_TYPE, OV_CACHE_REDIS_URL ...)
	viper.SetEnvPrefix("OV")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 4. 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		// 没找到配置文件不算错，可能全靠默认值和环境变量
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("fatal error config file: %w", err)
		}
		slog.Debug("no config file found, using defaults/env vars")
	} else {
		slog.Debug("using config file", "path", viper.ConfigFileUsed())
	}
	return nil
}

func setDefaults() {
	wd, _ := os.Getwd()
	viper.SetDefault("repo.path", filepath.Join(wd, RepoDirName))

	// 存储默认值；storage.path 为空时跟随 repo.path
	viper.SetDefault("storage.type", "disk")
	viper.SetDefault("storage.s3.region", "us-east-1")

	viper.SetDefault("cache.ttl", 24*time.Hour)

	viper.SetDefault("meta.driver", "sqlite")

	viper.SetDefault("user.name", defaultUser())

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
}

func defaultUser() string {
	for _, k := range []string{"USER", "USERNAME"} {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return "anonymous"
}
