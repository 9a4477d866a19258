package worker

import (
	"context"
	"time"

	"github.com/tiffin-next/internal/logger"
)

// SnapshotPurger 过期快照清理
type SnapshotPurger interface {
	PurgeStale(ctx context.Context) (int64, error)
}

// IdleEvicter 闲置购物车释放
type IdleEvicter interface {
	EvictIdle(idle time.Duration) int
}

// MaintenanceService 购物车周期维护：清理过期快照、释放闲置会话
type MaintenanceService struct {
	purger   SnapshotPurger
	evicter  IdleEvicter
	interval time.Duration
	idle     time.Duration
	done     chan struct{}
}

// NewMaintenanceService 创建购物车维护服务
func NewMaintenanceService(purger SnapshotPurger, evicter IdleEvicter, interval, idle time.Duration) *MaintenanceService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &MaintenanceService{
		purger:   purger,
		evicter:  evicter,
		interval: interval,
		idle:     idle,
		done:     make(chan struct{}),
	}
}

// Name 服务名称
func (s *MaintenanceService) Name() string {
	return "cart_maintenance"
}

// Start 运行维护循环直到 ctx 结束
func (s *MaintenanceService) Start(ctx context.Context) error {
	defer close(s.done)
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// Stop 等待维护循环退出
func (s *MaintenanceService) Stop(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce 执行一次维护
func (s *MaintenanceService) RunOnce(ctx context.Context) {
	if s.purger != nil {
		purged, err := s.purger.PurgeStale(ctx)
		if err != nil {
			logger.Warnw("worker_cart_snapshot_purge_failed", "error", err)
		} else if purged > 0 {
			logger.Infow("worker_cart_snapshot_purged", "count", purged)
		}
	}
	if s.evicter != nil && s.idle > 0 {
		if evicted := s.evicter.EvictIdle(s.idle); evicted > 0 {
			logger.Debugw("worker_cart_sessions_evicted", "count", evicted)
		}
	}
}
