package meta

import (
	"time"

	"gorm.io/datatypes"
)

// Models 返回需要迁移的全部表
func Models() []any {
	return []any{&Ref{}, &CommitModel{}}
}

// Ref 是分支指针的镜像 (例如 "refs/heads/master")
// 权威数据在 refs 目录下的文件里，这里只为查询服务
type Ref struct {
	Name string `gorm:"primaryKey;type:varchar(255)"`

	CommitHash string `gorm:"type:char(64);not null"`

	// Version 用于乐观锁并发控制 (CAS)，每次更新 +1
	Version int64 `gorm:"default:1"`

	UpdatedAt time.Time
}

// CommitModel 是 core.Commit 在关系型数据库中的投影 (索引)
// 用于按作者查询历史 (ov log --author)
type CommitModel struct {
	Hash string `gorm:"primaryKey;type:char(64)"`

	Author  string `gorm:"index;type:varchar(255)"`
	Message string `gorm:"type:text"`

	TreeHash   string `gorm:"type:char(64);not null"`
	ParentHash string `gorm:"type:char(64);index"` // 根提交为空

	// Depth 是已索引祖先的数量，根提交为 0，用于排序
	Depth int64 `gorm:"index"`

	// Meta 保存整条 commit 的 JSON 投影，便于外部工具直接查询
	Meta datatypes.JSON

	CreatedAt time.Time
}

// TableName 强制指定表名
func (CommitModel) TableName() string {
	return "commits"
}
