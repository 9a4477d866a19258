package repository

import (
	"context"
	"errors"
	"time"

	"github.com/tiffin-next/internal/constants"
	"github.com/tiffin-next/internal/models"

	"gorm.io/gorm"
)

// CheckoutHandoffRepository 结账交接记录数据访问接口
type CheckoutHandoffRepository interface {
	Create(ctx context.Context, handoff *models.CheckoutHandoff) error
	GetByNo(ctx context.Context, handoffNo string) (*models.CheckoutHandoff, error)
	MarkDelivered(ctx context.Context, handoffNo string, at time.Time) error
	MarkFailed(ctx context.Context, handoffNo string, reason string) error
	List(ctx context.Context, filter HandoffListFilter) ([]models.CheckoutHandoff, int64, error)
}

// GormCheckoutHandoffRepository GORM 实现
type GormCheckoutHandoffRepository struct {
	db *gorm.DB
}

// NewCheckoutHandoffRepository 创建结账交接仓库
func NewCheckoutHandoffRepository(db *gorm.DB) *GormCheckoutHandoffRepository {
	return &GormCheckoutHandoffRepository{db: db}
}

// Create 创建交接记录
func (r *GormCheckoutHandoffRepository) Create(ctx context.Context, handoff *models.CheckoutHandoff) error {
	if handoff == nil {
		return nil
	}
	return r.db.WithContext(ctx).Create(handoff).Error
}

// GetByNo 按交接单号获取记录，不存在时返回 nil
func (r *GormCheckoutHandoffRepository) GetByNo(ctx context.Context, handoffNo string) (*models.CheckoutHandoff, error) {
	var handoff models.CheckoutHandoff
	err := r.db.WithContext(ctx).Where("handoff_no = ?", handoffNo).First(&handoff).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &handoff, nil
}

// MarkDelivered 标记投递成功
func (r *GormCheckoutHandoffRepository) MarkDelivered(ctx context.Context, handoffNo string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.CheckoutHandoff{}).
		Where("handoff_no = ?", handoffNo).
		Updates(map[string]interface{}{
			"status":       constants.HandoffStatusDelivered,
			"attempts":     gorm.Expr("attempts + 1"),
			"last_error":   "",
			"delivered_at": at,
			"updated_at":   at,
		}).Error
}

// MarkFailed 标记投递失败并累加次数
func (r *GormCheckoutHandoffRepository) MarkFailed(ctx context.Context, handoffNo string, reason string) error {
	return r.db.WithContext(ctx).Model(&models.CheckoutHandoff{}).
		Where("handoff_no = ?", handoffNo).
		Updates(map[string]interface{}{
			"status":     constants.HandoffStatusFailed,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": reason,
			"updated_at": time.Now(),
		}).Error
}

// List 按会话分页获取交接记录，最新的在前
func (r *GormCheckoutHandoffRepository) List(ctx context.Context, filter HandoffListFilter) ([]models.CheckoutHandoff, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.CheckoutHandoff{})
	if filter.SessionID != "" {
		query = query.Where("session_id = ?", filter.SessionID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.CheckoutHandoff
	query = applyPagination(query.Order("id desc"), filter.Page, filter.PageSize)
	if err := query.Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
