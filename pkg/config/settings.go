package config

import (
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Settings 是某一时刻配置的类型化快照
type Settings struct {
	RepoPath string
	UserName string

	Storage Storage
	Cache   Cache
	Meta    Meta
	Log     Log
}

type Storage struct {
	Type string // disk | s3 | badger
	Path string
	S3   S3
}

type S3 struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Prefix    string
}

type Cache struct {
	RedisURL string // 为空表示不启用
	TTL      time.Duration
}

type Meta struct {
	Driver string // sqlite | postgres | none
	DSN    string
}

type Log struct {
	Level  string
	Format string // text | json
}

// Get 从 Viper 读取当前配置并补全派生值
func Get() Settings {
	s := Settings{
		RepoPath: viper.GetString("repo.path"),
		UserName: viper.GetString("user.name"),
		Storage: Storage{
			Type: viper.GetString("storage.type"),
			Path: viper.GetString("storage.path"),
			S3: S3{
				Endpoint:  viper.GetString("storage.s3.endpoint"),
				Region:    viper.GetString("storage.s3.region"),
				Bucket:    viper.GetString("storage.s3.bucket"),
				AccessKey: viper.GetString("storage.s3.access_key"),
				SecretKey: viper.GetString("storage.s3.secret_key"),
				Prefix:    viper.GetString("storage.s3.prefix"),
			},
		},
		Cache: Cache{
			RedisURL: viper.GetString("cache.redis_url"),
			TTL:      viper.GetDuration("cache.ttl"),
		},
		Meta: Meta{
			Driver: viper.GetString("meta.driver"),
			DSN:    viper.GetString("meta.dsn"),
		},
		Log: Log{
			Level:  viper.GetString("log.level"),
			Format: viper.GetString("log.format"),
		},
	}

	if s.Storage.Path == "" {
		switch s.Storage.Type {
		case "badger":
			s.Storage.Path = filepath.Join(s.RepoPath, "badger")
		default:
			s.Storage.Path = filepath.Join(s.RepoPath, "objects")
		}
	}
	if s.Meta.Driver == "sqlite" && s.Meta.DSN == "" {
		s.Meta.DSN = filepath.Join(s.RepoPath, "meta.db")
	}
	return s
}
