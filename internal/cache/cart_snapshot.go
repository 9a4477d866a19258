package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tiffin-next/internal/models"
)

func cartSnapshotKey(sessionID string) string {
	return fmt.Sprintf("cart:snapshot:%s", strings.TrimSpace(sessionID))
}

func handoffLockKey(handoffNo string) string {
	return fmt.Sprintf("checkout:handoff:%s", strings.TrimSpace(handoffNo))
}

// GetCartSnapshot 获取会话购物车快照
func GetCartSnapshot(ctx context.Context, sessionID string) (*models.CartSnapshotPayload, bool, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, false, nil
	}
	var payload models.CartSnapshotPayload
	hit, err := GetJSON(ctx, cartSnapshotKey(sessionID), &payload)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &payload, true, nil
}

// SetCartSnapshot 写入会话购物车快照，ttl 为 0 表示不过期
func SetCartSnapshot(ctx context.Context, sessionID string, payload models.CartSnapshotPayload, ttl time.Duration) error {
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}
	return SetJSON(ctx, cartSnapshotKey(sessionID), payload, ttl)
}

// DelCartSnapshot 删除会话购物车快照
func DelCartSnapshot(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}
	return Del(ctx, cartSnapshotKey(sessionID))
}

// LockHandoff 获取结账交接投递锁，返回释放锁所需的令牌
func LockHandoff(ctx context.Context, handoffNo string, ttl time.Duration) (string, bool, error) {
	return TryLock(ctx, handoffLockKey(handoffNo), ttl)
}

// UnlockHandoff 释放结账交接投递锁
func UnlockHandoff(ctx context.Context, handoffNo, token string) error {
	return Unlock(ctx, handoffLockKey(handoffNo), token)
}
