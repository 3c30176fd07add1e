package meta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"objvault/pkg/core"
	"objvault/pkg/types"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrRefNotFound      = errors.New("reference not found")
	ErrConcurrentUpdate = errors.New("concurrent update detected (CAS failed)")
	ErrCommitNotFound   = errors.New("commit not found in metadata")
)

// Repository 封装所有对 SQL 数据库的操作
type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// -----------------------------------------------------------------------------
// 1. 引用镜像 (Refs)
// -----------------------------------------------------------------------------

// GetRef 获取分支的当前指向
func (r *Repository) GetRef(ctx context.Context, name string) (*Ref, error) {
	var ref Ref
	err := r.db.GetConn().WithContext(ctx).
		Where("name = ?", name).
		First(&ref).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRefNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// UpdateRef 原子更新引用 (CAS)
// oldVersion 是之前读到的版本号；0 表示期望引用还不存在
func (r *Repository) UpdateRef(ctx context.Context, name string, newHash types.Hash, oldVersion int64) error {
	return r.db.GetConn().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if oldVersion == 0 {
			ref := Ref{Name: name, CommitHash: newHash.String(), Version: 1}
			if err := tx.Create(&ref).Error; err != nil {
				// 兼容 PG 与 SQLite 的唯一约束错误
				if errors.Is(err, gorm.ErrDuplicatedKey) ||
					strings.Contains(err.Error(), "UNIQUE constraint failed") {
					return ErrConcurrentUpdate
				}
				return fmt.Errorf("failed to create ref: %w", err)
			}
			return nil
		}

		// UPDATE refs SET commit_hash = ?, version = version + 1 WHERE name = ? AND version = ?
		result := tx.Model(&Ref{}).
			Where("name = ? AND version = ?", name, oldVersion).
			Updates(map[string]any{
				"commit_hash": newHash.String(),
				"version":     gorm.Expr("version + 1"),
				"updated_at":  time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		// 影响行数为 0 说明 version 不匹配
		if result.RowsAffected == 0 {
			return ErrConcurrentUpdate
		}
		return nil
	})
}

// SyncRef 把镜像推进到 newHash，不存在时创建
func (r *Repository) SyncRef(ctx context.Context, name string, newHash types.Hash) error {
	var version int64
	ref, err := r.GetRef(ctx, name)
	switch {
	case errors.Is(err, ErrRefNotFound):
	case err != nil:
		return err
	default:
		version = ref.Version
	}
	return r.UpdateRef(ctx, name, newHash, version)
}

// -----------------------------------------------------------------------------
// 2. 提交索引 (Commit Indexing)
// -----------------------------------------------------------------------------

// commitMeta 是 Meta 列里的 JSON 结构
type commitMeta struct {
	Tree    types.Hash `json:"tree"`
	Parent  types.Hash `json:"parent,omitempty"`
	Author  string     `json:"author"`
	Message string     `json:"message"`
}

// IndexCommit 将 core.Commit "投影"到 SQL 数据库中
// 重复索引同一个 hash 什么都不做
func (r *Repository) IndexCommit(ctx context.Context, hash types.Hash, c *core.Commit) error {
	metaJSON, err := json.Marshal(commitMeta{
		Tree:    c.Tree,
		Parent:  c.Parent,
		Author:  c.Author,
		Message: c.Message,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal commit meta: %w", err)
	}

	conn := r.db.GetConn().WithContext(ctx)

	var depth int64
	if c.HasParent() {
		var parent CommitModel
		err := conn.Select("depth").Where("hash = ?", c.Parent.String()).First(&parent).Error
		switch {
		case err == nil:
			depth = parent.Depth + 1
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("failed to look up parent: %w", err)
		}
	}

	model := CommitModel{
		Hash:       hash.String(),
		Author:     c.Author,
		Message:    c.Message,
		TreeHash:   c.Tree.String(),
		ParentHash: c.Parent.String(),
		Depth:      depth,
		Meta:       datatypes.JSON(metaJSON),
	}

	// 幂等写入：Hash 已存在则 Do Nothing
	err = conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "hash"}},
		DoNothing: true,
	}).Create(&model).Error
	if err != nil {
		return fmt.Errorf("failed to index commit: %w", err)
	}
	return nil
}

func (r *Repository) GetCommit(ctx context.Context, hash types.Hash) (*CommitModel, error) {
	var commit CommitModel
	err := r.db.GetConn().WithContext(ctx).
		Where("hash = ?", hash.String()).
		First(&commit).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCommitNotFound
	}
	if err != nil {
		return nil, err
	}
	return &commit, nil
}

// FindCommitsByAuthor 按作者查询，越新的越靠前
func (r *Repository) FindCommitsByAuthor(ctx context.Context, author string, limit int) ([]CommitModel, error) {
	var commits []CommitModel
	q := r.db.GetConn().WithContext(ctx).
		Where("author = ?", author).
		Order("depth DESC").
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&commits).Error
	return commits, err
}
