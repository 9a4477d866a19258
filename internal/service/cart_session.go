package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/tiffin-next/internal/logger"
	"github.com/tiffin-next/internal/metrics"
)

const maxSessionIDLength = 64

type cartSession struct {
	mu       sync.Mutex
	store    *CartStore
	loaded   bool
	lastUsed time.Time
}

// CartSessionService 会话购物车注册表
// 每个会话持有一个 CartStore，同一会话的调用串行执行
type CartSessionService struct {
	persistence CartPersistence
	writer      SnapshotWriter

	mu       sync.Mutex
	sessions map[string]*cartSession
	now      func() time.Time
}

// NewCartSessionService 创建会话购物车注册表
func NewCartSessionService(persistence CartPersistence, writer SnapshotWriter) *CartSessionService {
	return &CartSessionService{
		persistence: persistence,
		writer:      writer,
		sessions:    make(map[string]*cartSession),
		now:         time.Now,
	}
}

// ValidSessionID 校验会话 ID
func ValidSessionID(sessionID string) bool {
	sessionID = strings.TrimSpace(sessionID)
	return sessionID != "" && len(sessionID) <= maxSessionIDLength
}

// Do 在会话购物车上执行 fn，首次访问时从持久化恢复
func (s *CartSessionService) Do(ctx context.Context, sessionID string, fn func(store *CartStore) error) error {
	sessionID = strings.TrimSpace(sessionID)
	if !ValidSessionID(sessionID) {
		return ErrSessionInvalid
	}
	entry := s.lockEntry(sessionID)
	defer entry.mu.Unlock()

	s.ensureLoaded(ctx, sessionID, entry)
	entry.lastUsed = s.now()
	if fn == nil {
		return nil
	}
	return fn(entry.store)
}

// End 结束会话：清空购物车并删除持久化快照
func (s *CartSessionService) End(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if !ValidSessionID(sessionID) {
		return ErrSessionInvalid
	}
	entry := s.lockEntry(sessionID)
	defer entry.mu.Unlock()

	if entry.store != nil {
		entry.store.RemoveAll()
	}
	if flusher, ok := s.writer.(interface{ Flush(context.Context) error }); ok {
		if err := flusher.Flush(ctx); err != nil {
			logger.ForSession(sessionID).Warnw("cart_session_end_flush_failed", "error", err)
		}
	}
	var err error
	if s.persistence != nil {
		err = s.persistence.Delete(ctx, sessionID)
	}
	s.forget(sessionID, entry)
	logger.ForSession(sessionID).Infow("cart_session_ended", "delete_error", err)
	return err
}

// Release 释放内存中的会话购物车，不清除持久化快照
func (s *CartSessionService) Release(sessionID string) {
	sessionID = strings.TrimSpace(sessionID)
	s.mu.Lock()
	entry, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		return
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	s.forget(sessionID, entry)
}

// EvictIdle 释放超过 idle 未访问的会话购物车，返回释放数量
func (s *CartSessionService) EvictIdle(idle time.Duration) int {
	if idle <= 0 {
		return 0
	}
	cutoff := s.now().Add(-idle)
	s.mu.Lock()
	candidates := make(map[string]*cartSession)
	for id, entry := range s.sessions {
		candidates[id] = entry
	}
	s.mu.Unlock()

	evicted := 0
	for id, entry := range candidates {
		if !entry.mu.TryLock() {
			continue
		}
		if entry.lastUsed.Before(cutoff) {
			s.forget(id, entry)
			evicted++
		}
		entry.mu.Unlock()
	}
	return evicted
}

// ActiveSessions 当前内存中的会话数量
func (s *CartSessionService) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *CartSessionService) entry(sessionID string) *cartSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[sessionID]
	if !ok {
		entry = &cartSession{lastUsed: s.now()}
		s.sessions[sessionID] = entry
		metrics.SetActiveCarts(len(s.sessions))
	}
	return entry
}

// lockEntry 返回已加锁且仍在注册表中的会话
func (s *CartSessionService) lockEntry(sessionID string) *cartSession {
	for {
		entry := s.entry(sessionID)
		entry.mu.Lock()
		s.mu.Lock()
		current := s.sessions[sessionID] == entry
		s.mu.Unlock()
		if current {
			return entry
		}
		entry.mu.Unlock()
	}
}

// forget 调用方需持有 entry.mu
func (s *CartSessionService) forget(sessionID string, entry *cartSession) {
	s.mu.Lock()
	if current, ok := s.sessions[sessionID]; ok && current == entry {
		delete(s.sessions, sessionID)
	}
	metrics.SetActiveCarts(len(s.sessions))
	s.mu.Unlock()
	entry.store = nil
	entry.loaded = false
}

func (s *CartSessionService) ensureLoaded(ctx context.Context, sessionID string, entry *cartSession) {
	if entry.loaded && entry.store != nil {
		return
	}
	store := NewCartStore(sessionID, s.writer)
	if s.persistence != nil {
		payload := s.persistence.Load(ctx, sessionID)
		if !payload.IsEmpty() {
			store.Hydrate(payload)
		}
	}
	entry.store = store
	entry.loaded = true
}
