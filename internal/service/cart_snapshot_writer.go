package service

import (
	"context"
	"sync"

	"github.com/tiffin-next/internal/logger"
	"github.com/tiffin-next/internal/metrics"
	"github.com/tiffin-next/internal/models"
)

// AsyncSnapshotWriter 异步快照写入器
// 同一会话未写入的快照只保留最新一份，写入失败只记录日志
type AsyncSnapshotWriter struct {
	persistence CartPersistence

	mu      sync.Mutex
	pending map[string]models.CartSnapshotPayload
	order   []string
	started bool
	stopped bool

	drainMu sync.Mutex
	notify  chan struct{}
	flushCh chan chan struct{}
	stopCh  chan struct{}
	done    chan struct{}
}

// NewAsyncSnapshotWriter 创建异步快照写入器
func NewAsyncSnapshotWriter(persistence CartPersistence) *AsyncSnapshotWriter {
	return &AsyncSnapshotWriter{
		persistence: persistence,
		pending:     make(map[string]models.CartSnapshotPayload),
		notify:      make(chan struct{}, 1),
		flushCh:     make(chan chan struct{}),
		stopCh:      make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Name 服务名称
func (w *AsyncSnapshotWriter) Name() string {
	return "cart_snapshot_writer"
}

// Submit 提交快照，立即返回
func (w *AsyncSnapshotWriter) Submit(sessionID string, payload models.CartSnapshotPayload) {
	if w == nil || w.persistence == nil || sessionID == "" {
		return
	}
	w.mu.Lock()
	if _, ok := w.pending[sessionID]; !ok {
		w.order = append(w.order, sessionID)
	}
	w.pending[sessionID] = payload
	stopped := w.stopped
	w.mu.Unlock()
	if stopped {
		// 停止后的迟到写入同步落盘，排在收尾写入之后
		w.drain()
		return
	}

	select {
	case w.notify <- struct{}{}:
	default:
	}
}

// Start 运行写入循环，直到 ctx 结束或 Stop 被调用
func (w *AsyncSnapshotWriter) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started || w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.started = true
	w.mu.Unlock()
	defer close(w.done)

	for {
		select {
		case <-w.notify:
			w.drain()
		case reply := <-w.flushCh:
			w.drain()
			close(reply)
		case <-w.stopCh:
			w.drain()
			return nil
		case <-ctx.Done():
			w.drain()
			return nil
		}
	}
}

// Flush 等待当前所有待写快照落盘
func (w *AsyncSnapshotWriter) Flush(ctx context.Context) error {
	w.mu.Lock()
	started, stopped := w.started, w.stopped
	w.mu.Unlock()
	if !started || stopped {
		w.drain()
		return nil
	}

	reply := make(chan struct{})
	select {
	case w.flushCh <- reply:
	case <-w.done:
		w.drain()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop 停止写入循环并写完剩余快照
func (w *AsyncSnapshotWriter) Stop(ctx context.Context) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	started := w.started
	w.mu.Unlock()
	close(w.stopCh)

	if !started {
		w.drain()
		return nil
	}
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *AsyncSnapshotWriter) drain() {
	w.drainMu.Lock()
	defer w.drainMu.Unlock()
	for {
		w.mu.Lock()
		if len(w.order) == 0 {
			w.mu.Unlock()
			return
		}
		order := w.order
		batch := w.pending
		w.order = nil
		w.pending = make(map[string]models.CartSnapshotPayload)
		w.mu.Unlock()

		for _, sessionID := range order {
			w.write(context.Background(), sessionID, batch[sessionID])
		}
	}
}

func (w *AsyncSnapshotWriter) write(ctx context.Context, sessionID string, payload models.CartSnapshotPayload) {
	if err := w.persistence.Save(ctx, sessionID, payload); err != nil {
		metrics.SnapshotWrite(metrics.ResultFailed)
		logger.ForSession(sessionID).Warnw("cart_snapshot_write_failed", "error", err, "lines", len(payload.Lines))
		return
	}
	metrics.SnapshotWrite(metrics.ResultOK)
}
