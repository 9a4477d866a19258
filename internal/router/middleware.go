package router

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tiffin-next/internal/config"
	"github.com/tiffin-next/internal/constants"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var defaultCORSMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodDelete,
	http.MethodOptions,
}

var defaultCORSHeaders = []string{
	"Content-Type",
	"Accept-Encoding",
	"Cache-Control",
	"X-Requested-With",
	constants.HeaderRequestID,
	constants.HeaderCartSession,
}

// corsPolicy 由配置预先算好的跨域策略
type corsPolicy struct {
	anyOrigin   bool
	origins     map[string]struct{}
	credentials bool
	static      map[string]string
}

func newCORSPolicy(cfg config.CORSConfig) corsPolicy {
	p := corsPolicy{
		origins:     make(map[string]struct{}, len(cfg.AllowedOrigins)),
		credentials: cfg.AllowCredentials,
	}
	for _, origin := range cfg.AllowedOrigins {
		origin = strings.ToLower(strings.TrimSpace(origin))
		if origin == "*" {
			p.anyOrigin = true
			continue
		}
		if origin != "" {
			p.origins[origin] = struct{}{}
		}
	}
	if len(cfg.AllowedOrigins) == 0 {
		p.anyOrigin = true
	}

	methods := cfg.AllowedMethods
	if len(methods) == 0 {
		methods = defaultCORSMethods
	}
	headers := cfg.AllowedHeaders
	if len(headers) == 0 {
		headers = defaultCORSHeaders
	}
	p.static = map[string]string{
		"Access-Control-Allow-Methods":  strings.Join(methods, ", "),
		"Access-Control-Allow-Headers":  strings.Join(headers, ", "),
		"Access-Control-Expose-Headers": constants.HeaderCartSession + ", " + constants.HeaderRequestID,
	}
	if cfg.AllowCredentials {
		p.static["Access-Control-Allow-Credentials"] = "true"
	}
	if cfg.MaxAge > 0 {
		p.static["Access-Control-Max-Age"] = strconv.Itoa(cfg.MaxAge)
	}
	return p
}

// allowOrigin 返回应写入 Access-Control-Allow-Origin 的值，空串表示不放行
func (p corsPolicy) allowOrigin(origin string) string {
	if p.anyOrigin {
		// 携带凭证时浏览器不接受 *
		if p.credentials && origin != "" {
			return origin
		}
		return "*"
	}
	if origin == "" {
		return ""
	}
	if _, ok := p.origins[strings.ToLower(origin)]; ok {
		return origin
	}
	return ""
}

// CORSMiddleware 跨域中间件
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	policy := newCORSPolicy(cfg)
	return func(c *gin.Context) {
		header := c.Writer.Header()
		if allowed := policy.allowOrigin(c.GetHeader("Origin")); allowed != "" {
			header.Set("Access-Control-Allow-Origin", allowed)
			if allowed != "*" {
				header.Add("Vary", "Origin")
			}
		}
		for key, value := range policy.static {
			header.Set(key, value)
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestIDMiddleware 透传或生成请求 ID
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := headerOrNewID(c, constants.HeaderRequestID)
		c.Set(constants.ContextKeyRequestID, requestID)
		c.Writer.Header().Set(constants.HeaderRequestID, requestID)
		c.Next()
	}
}

// CartSessionMiddleware 解析购物车会话 ID，缺失时生成新的会话并通过响应头回传
func CartSessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := headerOrNewID(c, constants.HeaderCartSession)
		c.Set(constants.ContextKeyCartSession, sessionID)
		c.Writer.Header().Set(constants.HeaderCartSession, sessionID)
		c.Next()
	}
}

func headerOrNewID(c *gin.Context, name string) string {
	if value := strings.TrimSpace(c.GetHeader(name)); value != "" {
		return value
	}
	return uuid.NewString()
}

// LoggerMiddleware 结构化请求日志中间件
func LoggerMiddleware(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.L()
	}
	sugar := log.Sugar()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		fields := []interface{}{
			"request_id", c.GetString(constants.ContextKeyRequestID),
			"method", c.Request.Method,
			"route", route,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if sessionID := c.GetString(constants.ContextKeyCartSession); sessionID != "" {
			fields = append(fields, "session_id", sessionID)
		}
		switch {
		case len(c.Errors) > 0:
			sugar.Errorw("http_request", append(fields, "errors", c.Errors.String())...)
		case c.Writer.Status() >= http.StatusInternalServerError:
			sugar.Errorw("http_request", fields...)
		default:
			sugar.Infow("http_request", fields...)
		}
	}
}
