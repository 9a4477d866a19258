package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/tiffin-next/internal/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix = "tf"
	pingTimeout   = 3 * time.Second
)

var (
	redisClient *redis.Client
	redisPrefix = defaultPrefix
)

// InitRedis 按配置连接 Redis；未启用时保持禁用，连接失败时同样禁用并返回错误
func InitRedis(cfg *config.RedisConfig) error {
	if cfg == nil || !cfg.Enabled {
		UseClient(nil, "")
		return nil
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	client := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		UseClient(nil, cfg.Prefix)
		return fmt.Errorf("ping redis %s: %w", client.Options().Addr, err)
	}
	UseClient(client, cfg.Prefix)
	return nil
}

// UseClient 直接注入 Redis 客户端（client 为 nil 时禁用缓存）
func UseClient(client *redis.Client, prefix string) {
	redisPrefix = strings.TrimSpace(prefix)
	if redisPrefix == "" {
		redisPrefix = defaultPrefix
	}
	redisClient = client
}

// Enabled 判断缓存是否启用
func Enabled() bool {
	return redisClient != nil
}

// Client 获取 Redis 客户端，未启用时为 nil
func Client() *redis.Client {
	return redisClient
}

// Prefix 获取 key 前缀
func Prefix() string {
	return redisPrefix
}

// Close 关闭 Redis 客户端并禁用缓存
func Close() error {
	if redisClient == nil {
		return nil
	}
	err := redisClient.Close()
	redisClient = nil
	return err
}

// GetJSON 读取并反序列化 JSON 值，key 不存在时返回 false
func GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !Enabled() {
		return false, nil
	}
	raw, err := redisClient.Get(ctx, buildKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

// SetJSON 序列化后写入，ttl 为 0 表示不过期
func SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !Enabled() {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return redisClient.Set(ctx, buildKey(key), payload, ttl).Err()
}

// Del 删除缓存
func Del(ctx context.Context, key string) error {
	if !Enabled() {
		return nil
	}
	return redisClient.Del(ctx, buildKey(key)).Err()
}

// 只有持有令牌的一方才能释放锁
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// TryLock 基于 SET NX 的互斥锁，返回释放所需的令牌；缓存未启用时直接视为加锁成功
func TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	if !Enabled() {
		return token, true, nil
	}
	ok, err := redisClient.SetNX(ctx, lockKey(key), token, ttl).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

// Unlock 释放 TryLock 获取的锁，令牌不匹配（锁已过期被他人获取）时不做任何事
func Unlock(ctx context.Context, key, token string) error {
	if !Enabled() || token == "" {
		return nil
	}
	return unlockScript.Run(ctx, redisClient, []string{lockKey(key)}, token).Err()
}

func lockKey(key string) string {
	return buildKey("lock:" + strings.TrimSpace(key))
}

func buildKey(key string) string {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return Prefix()
	}
	return Prefix() + ":" + trimmed
}
