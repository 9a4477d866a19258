package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tiffin-next/internal/cache"
	"github.com/tiffin-next/internal/config"
	"github.com/tiffin-next/internal/constants"
	"github.com/tiffin-next/internal/logger"
	"github.com/tiffin-next/internal/metrics"
	"github.com/tiffin-next/internal/models"
	"github.com/tiffin-next/internal/repository"
)

// 快照加载来源（指标标签）
const (
	loadSourceCache    = "cache"
	loadSourceDatabase = "database"
	loadSourceEmpty    = "empty"
	loadSourceStale    = "stale"
	loadSourceFailed   = "failed"
)

// CartPersistence 购物车快照持久化
// Load 永不返回错误：读取失败、超时或内容损坏时返回空快照
type CartPersistence interface {
	Save(ctx context.Context, sessionID string, payload models.CartSnapshotPayload) error
	Load(ctx context.Context, sessionID string) models.CartSnapshotPayload
	Delete(ctx context.Context, sessionID string) error
}

// SnapshotPersistence 基于数据库与 Redis 的快照持久化
type SnapshotPersistence struct {
	repo         repository.CartSnapshotRepository
	storage      string
	ttl          time.Duration
	loadTimeout  time.Duration
	writeTimeout time.Duration
	now          func() time.Time
}

// NewSnapshotPersistence 创建快照持久化
func NewSnapshotPersistence(repo repository.CartSnapshotRepository, cfg config.CartConfig) *SnapshotPersistence {
	return &SnapshotPersistence{
		repo:         repo,
		storage:      cfg.NormalizedStorage(),
		ttl:          cfg.SnapshotTTL(),
		loadTimeout:  cfg.LoadTimeout(),
		writeTimeout: cfg.WriteTimeout(),
		now:          time.Now,
	}
}

func (p *SnapshotPersistence) useDatabase() bool {
	return p.repo != nil && p.storage != constants.CartStorageRedis
}

func (p *SnapshotPersistence) useCache() bool {
	return cache.Enabled() && (p.storage == constants.CartStorageRedis || p.storage == constants.CartStorageBoth)
}

// Save 覆盖写入会话快照
func (p *SnapshotPersistence) Save(ctx context.Context, sessionID string, payload models.CartSnapshotPayload) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return ErrSessionInvalid
	}
	if payload.SchemaVersion == 0 {
		payload.SchemaVersion = constants.CartSnapshotSchemaVersion
	}
	if payload.MutatedAt.IsZero() {
		payload.MutatedAt = p.now()
	}
	ctx, cancel := context.WithTimeout(ctx, p.writeTimeout)
	defer cancel()

	if p.useDatabase() {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
		}
		row := &models.CartSnapshot{
			SessionID:     sessionID,
			SchemaVersion: payload.SchemaVersion,
			Payload:       string(raw),
			LineCount:     len(payload.Lines),
			MutatedAt:     payload.MutatedAt,
		}
		if err := p.repo.Upsert(ctx, row); err != nil {
			return fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
		}
	}
	if p.useCache() {
		if err := cache.SetCartSnapshot(ctx, sessionID, payload, p.ttl); err != nil {
			if p.useDatabase() {
				// 数据库已是最新，删除旧缓存使 Load 回落到数据库
				if delErr := cache.DelCartSnapshot(ctx, sessionID); delErr != nil {
					logger.ForSession(sessionID).Warnw("cart_snapshot_cache_evict_failed", "error", delErr)
				}
			}
			return fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
		}
	}
	return nil
}

// Load 读取会话快照
func (p *SnapshotPersistence) Load(ctx context.Context, sessionID string) models.CartSnapshotPayload {
	sessionID = strings.TrimSpace(sessionID)
	empty := models.CartSnapshotPayload{SchemaVersion: constants.CartSnapshotSchemaVersion}
	if sessionID == "" {
		return empty
	}
	log := logger.ForSession(sessionID)
	ctx, cancel := context.WithTimeout(ctx, p.loadTimeout)
	defer cancel()

	if p.useCache() {
		payload, hit, err := cache.GetCartSnapshot(ctx, sessionID)
		if err != nil {
			log.Warnw("cart_snapshot_cache_load_failed", "error", err)
		} else if hit && payload != nil {
			usable, reason := p.usable(*payload)
			if usable {
				metrics.SnapshotLoad(loadSourceCache)
				return *payload
			}
			log.Infow("cart_snapshot_discarded", "source", loadSourceCache, "reason", reason)
		}
	}

	if !p.useDatabase() {
		metrics.SnapshotLoad(loadSourceEmpty)
		return empty
	}
	row, err := p.repo.GetBySession(ctx, sessionID)
	if err != nil {
		metrics.SnapshotLoad(loadSourceFailed)
		log.Warnw("cart_snapshot_load_failed", "error", err)
		return empty
	}
	if row == nil {
		metrics.SnapshotLoad(loadSourceEmpty)
		return empty
	}
	var payload models.CartSnapshotPayload
	if err := json.Unmarshal([]byte(row.Payload), &payload); err != nil {
		metrics.SnapshotLoad(loadSourceFailed)
		log.Warnw("cart_snapshot_decode_failed", "error", fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err))
		return empty
	}
	if payload.SchemaVersion == 0 {
		payload.SchemaVersion = row.SchemaVersion
	}
	if payload.MutatedAt.IsZero() {
		payload.MutatedAt = row.MutatedAt
	}
	if usable, reason := p.usable(payload); !usable {
		metrics.SnapshotLoad(loadSourceStale)
		log.Infow("cart_snapshot_discarded", "source", loadSourceDatabase, "reason", reason)
		return empty
	}
	metrics.SnapshotLoad(loadSourceDatabase)
	if p.useCache() {
		if err := cache.SetCartSnapshot(ctx, sessionID, payload, p.ttl); err != nil {
			log.Debugw("cart_snapshot_cache_backfill_failed", "error", err)
		}
	}
	return payload
}

// Delete 删除会话快照
func (p *SnapshotPersistence) Delete(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return ErrSessionInvalid
	}
	ctx, cancel := context.WithTimeout(ctx, p.writeTimeout)
	defer cancel()
	if p.useDatabase() {
		if err := p.repo.DeleteBySession(ctx, sessionID); err != nil {
			return fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
		}
	}
	if p.useCache() {
		if err := cache.DelCartSnapshot(ctx, sessionID); err != nil {
			return fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
		}
	}
	return nil
}

// PurgeStale 清理超过有效期的数据库快照，返回删除数量
func (p *SnapshotPersistence) PurgeStale(ctx context.Context) (int64, error) {
	if p.ttl <= 0 || !p.useDatabase() {
		return 0, nil
	}
	return p.repo.DeleteMutatedBefore(ctx, p.now().Add(-p.ttl))
}

func (p *SnapshotPersistence) usable(payload models.CartSnapshotPayload) (bool, string) {
	if payload.SchemaVersion != constants.CartSnapshotSchemaVersion {
		return false, "schema_version"
	}
	if p.ttl > 0 && !payload.MutatedAt.IsZero() && p.now().Sub(payload.MutatedAt) > p.ttl {
		return false, "expired"
	}
	return true, ""
}
