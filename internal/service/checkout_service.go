package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tiffin-next/internal/cache"
	"github.com/tiffin-next/internal/constants"
	"github.com/tiffin-next/internal/logger"
	"github.com/tiffin-next/internal/metrics"
	"github.com/tiffin-next/internal/models"
	"github.com/tiffin-next/internal/queue"
	"github.com/tiffin-next/internal/repository"

	"github.com/google/uuid"
)

const (
	defaultHandoffPageSize = 20
	maxHandoffPageSize     = 100
)

// CheckoutService 结账交接服务
// 交接只读取购物车，不会清空购物车
type CheckoutService struct {
	sessions    *CartSessionService
	handoffRepo repository.CheckoutHandoffRepository
	queueClient *queue.Client
	client      CheckoutClient
	lockTTL     time.Duration
	now         func() time.Time
}

// NewCheckoutService 创建结账交接服务
func NewCheckoutService(
	sessions *CartSessionService,
	handoffRepo repository.CheckoutHandoffRepository,
	queueClient *queue.Client,
	client CheckoutClient,
	lockTTL time.Duration,
) *CheckoutService {
	return &CheckoutService{
		sessions:    sessions,
		handoffRepo: handoffRepo,
		queueClient: queueClient,
		client:      client,
		lockTTL:     lockTTL,
		now:         time.Now,
	}
}

// Handoff 生成结账快照并安排投递
// 队列未启用时同步投递，投递失败会返回错误，但交接记录仍然保留
func (s *CheckoutService) Handoff(ctx context.Context, sessionID string) (*models.CheckoutSnapshot, error) {
	var snapshot models.CheckoutSnapshot
	err := s.sessions.Do(ctx, sessionID, func(store *CartStore) error {
		if store.LineCount() == 0 {
			return ErrCartEmpty
		}
		snapshot = models.CheckoutSnapshot{
			HandoffNo: generateHandoffNo(),
			SessionID: store.SessionID(),
			Lines:     store.CheckoutLines(),
			Total:     store.Total(),
			CreatedAt: s.now(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(snapshot)
	if err != nil {
		return nil, err
	}
	handoff := &models.CheckoutHandoff{
		HandoffNo:   snapshot.HandoffNo,
		SessionID:   snapshot.SessionID,
		Payload:     string(raw),
		TotalAmount: snapshot.Total,
		LineCount:   len(snapshot.Lines),
		Status:      constants.HandoffStatusPending,
		CreatedAt:   snapshot.CreatedAt,
	}
	if err := s.handoffRepo.Create(ctx, handoff); err != nil {
		return nil, err
	}
	log := logger.ForSession(snapshot.SessionID)
	log.Infow("checkout_handoff_created",
		"handoff_no", snapshot.HandoffNo,
		"lines", len(snapshot.Lines),
		"total", snapshot.Total.String(),
	)

	if s.queueClient.Enabled() {
		err := s.queueClient.EnqueueCheckoutHandoff(ctx, queue.CheckoutHandoffPayload{
			HandoffNo: snapshot.HandoffNo,
			SessionID: snapshot.SessionID,
		})
		if err == nil {
			return &snapshot, nil
		}
		log.Warnw("checkout_handoff_enqueue_failed", "handoff_no", snapshot.HandoffNo, "error", err)
	}
	if err := s.Deliver(ctx, snapshot.HandoffNo); err != nil {
		return &snapshot, err
	}
	return &snapshot, nil
}

// Deliver 投递指定交接单；已投递的交接单直接返回
func (s *CheckoutService) Deliver(ctx context.Context, handoffNo string) error {
	handoffNo = strings.TrimSpace(handoffNo)
	handoff, err := s.handoffRepo.GetByNo(ctx, handoffNo)
	if err != nil {
		return err
	}
	if handoff == nil {
		return ErrHandoffNotFound
	}
	if handoff.Status == constants.HandoffStatusDelivered {
		logger.Debugw("checkout_handoff_already_delivered", "handoff_no", handoffNo)
		return nil
	}

	lockToken, locked, err := cache.LockHandoff(ctx, handoffNo, s.lockTTL)
	if err != nil {
		return err
	}
	if !locked {
		logger.Debugw("checkout_handoff_locked", "handoff_no", handoffNo)
		return nil
	}
	defer func() {
		if err := cache.UnlockHandoff(context.Background(), handoffNo, lockToken); err != nil {
			logger.Debugw("checkout_handoff_unlock_failed", "handoff_no", handoffNo, "error", err)
		}
	}()

	var snapshot models.CheckoutSnapshot
	if err := json.Unmarshal([]byte(handoff.Payload), &snapshot); err != nil {
		reason := fmt.Sprintf("decode payload: %v", err)
		_ = s.handoffRepo.MarkFailed(ctx, handoffNo, reason)
		metrics.CheckoutHandoff(metrics.ResultFailed)
		return fmt.Errorf("%w: %s", ErrCheckoutRejected, reason)
	}

	if s.client == nil {
		return s.fail(ctx, handoff, ErrCheckoutNotConfigured)
	}
	if err := s.client.Deliver(ctx, snapshot); err != nil {
		return s.fail(ctx, handoff, err)
	}
	if err := s.handoffRepo.MarkDelivered(ctx, handoffNo, s.now()); err != nil {
		return err
	}
	metrics.CheckoutHandoff(metrics.ResultOK)
	logger.ForSession(handoff.SessionID).Infow("checkout_handoff_delivered", "handoff_no", handoffNo, "attempt", handoff.Attempts+1)
	return nil
}

// ListBySession 分页查询会话的交接记录，最新的在前
func (s *CheckoutService) ListBySession(ctx context.Context, sessionID string, page, pageSize int) ([]models.CheckoutHandoff, int64, error) {
	if !ValidSessionID(sessionID) {
		return nil, 0, ErrSessionInvalid
	}
	page, pageSize = NormalizeHandoffPage(page, pageSize)
	return s.handoffRepo.List(ctx, repository.HandoffListFilter{
		SessionID: strings.TrimSpace(sessionID),
		Page:      page,
		PageSize:  pageSize,
	})
}

// NormalizeHandoffPage 规范交接记录分页参数
func NormalizeHandoffPage(page, pageSize int) (int, int) {
	if pageSize <= 0 || pageSize > maxHandoffPageSize {
		pageSize = defaultHandoffPageSize
	}
	if page < 1 {
		page = 1
	}
	return page, pageSize
}

func (s *CheckoutService) fail(ctx context.Context, handoff *models.CheckoutHandoff, cause error) error {
	if err := s.handoffRepo.MarkFailed(ctx, handoff.HandoffNo, cause.Error()); err != nil {
		logger.Warnw("checkout_handoff_mark_failed_error", "handoff_no", handoff.HandoffNo, "error", err)
	}
	metrics.CheckoutHandoff(metrics.ResultFailed)
	logger.ForSession(handoff.SessionID).Warnw("checkout_handoff_delivery_failed",
		"handoff_no", handoff.HandoffNo,
		"attempt", handoff.Attempts+1,
		"error", cause,
	)
	if errors.Is(cause, ErrCheckoutNotConfigured) || errors.Is(cause, ErrCheckoutRejected) {
		return cause
	}
	return fmt.Errorf("%w: %v", ErrCheckoutRejected, cause)
}

func generateHandoffNo() string {
	return "HO" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}
