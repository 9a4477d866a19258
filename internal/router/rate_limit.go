package router

import (
	"strconv"
	"strings"

	"github.com/tiffin-next/internal/constants"
	handlershared "github.com/tiffin-next/internal/http/handlers/shared"
	"github.com/tiffin-next/internal/http/response"
	"github.com/tiffin-next/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitKeyFunc 生成限流 key 的函数
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 固定窗口限流规则
type RateLimitRule struct {
	Name          string
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	MessageKey    string
}

func (r RateLimitRule) enabled() bool {
	return r.WindowSeconds > 0 && r.MaxRequests > 0
}

func (r RateLimitRule) key(subject string) string {
	if r.Prefix == "" {
		return subject
	}
	return r.Prefix + ":" + subject
}

// retryAfter 超限后建议的等待秒数，至少 1 秒
func (r RateLimitRule) retryAfter(ttlSeconds int64) int {
	if ttlSeconds > 0 {
		return int(ttlSeconds)
	}
	if r.WindowSeconds > 0 {
		return r.WindowSeconds
	}
	return 1
}

func (r RateLimitRule) messageKey() string {
	if key := strings.TrimSpace(r.MessageKey); key != "" {
		return key
	}
	return "error.rate_limited"
}

// 返回 {当前计数, 剩余 TTL}
var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("TTL", KEYS[1])}
`)

// RateLimitMiddleware Redis 频率限制中间件，未配置 Redis 或规则时直接放行
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	if keyFunc == nil {
		keyFunc = KeyByIP
	}
	return func(c *gin.Context) {
		if client == nil || !rule.enabled() {
			c.Next()
			return
		}
		subject := strings.TrimSpace(keyFunc(c))
		if subject == "" {
			subject = c.ClientIP()
		}

		values, err := rateLimitScript.Run(c.Request.Context(), client, []string{rule.key(subject)}, rule.WindowSeconds).Int64Slice()
		if err != nil || len(values) < 2 {
			metrics.RateLimitDecision(rule.Name, metrics.ResultFailed)
			handlershared.RespondError(c, response.CodeInternal, "error.rate_limit_unavailable", err)
			c.Abort()
			return
		}
		if values[0] > int64(rule.MaxRequests) {
			metrics.RateLimitDecision(rule.Name, metrics.ResultRejected)
			c.Header("Retry-After", strconv.Itoa(rule.retryAfter(values[1])))
			response.Error(c, response.CodeTooManyRequests, handlershared.Message(rule.messageKey()))
			c.Abort()
			return
		}
		metrics.RateLimitDecision(rule.Name, metrics.ResultOK)
		c.Next()
	}
}

// KeyByIP 使用 IP 作为限流 key
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByCartSession 使用购物车会话 ID 作为限流 key，缺失时退回 IP
func KeyByCartSession(c *gin.Context) string {
	if sessionID := strings.TrimSpace(c.GetString(constants.ContextKeyCartSession)); sessionID != "" {
		return "session|" + sessionID
	}
	return c.ClientIP()
}
