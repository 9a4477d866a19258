package repository

import (
	"context"
	"errors"
	"time"

	"github.com/tiffin-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartSnapshotRepository 购物车快照数据访问接口
type CartSnapshotRepository interface {
	GetBySession(ctx context.Context, sessionID string) (*models.CartSnapshot, error)
	Upsert(ctx context.Context, snapshot *models.CartSnapshot) error
	DeleteBySession(ctx context.Context, sessionID string) error
	DeleteMutatedBefore(ctx context.Context, before time.Time) (int64, error)
}

// GormCartSnapshotRepository GORM 实现
type GormCartSnapshotRepository struct {
	db *gorm.DB
}

// NewCartSnapshotRepository 创建购物车快照仓库
func NewCartSnapshotRepository(db *gorm.DB) *GormCartSnapshotRepository {
	return &GormCartSnapshotRepository{db: db}
}

// GetBySession 按会话获取快照，不存在时返回 nil
func (r *GormCartSnapshotRepository) GetBySession(ctx context.Context, sessionID string) (*models.CartSnapshot, error) {
	var snapshot models.CartSnapshot
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// Upsert 写入或覆盖会话快照
func (r *GormCartSnapshotRepository) Upsert(ctx context.Context, snapshot *models.CartSnapshot) error {
	if snapshot == nil {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"schema_version", "payload", "line_count", "mutated_at", "updated_at"}),
	}).Create(snapshot).Error
}

// DeleteBySession 删除会话快照
func (r *GormCartSnapshotRepository) DeleteBySession(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&models.CartSnapshot{}).Error
}

// DeleteMutatedBefore 清理过期快照
func (r *GormCartSnapshotRepository) DeleteMutatedBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("mutated_at < ?", before).Delete(&models.CartSnapshot{})
	return result.RowsAffected, result.Error
}
