package shared

import (
	"github.com/tiffin-next/internal/constants"
	"github.com/tiffin-next/internal/http/response"
	"github.com/tiffin-next/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 与会话 ID 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	kv := make([]interface{}, 0, 4)
	if id := c.GetString(constants.ContextKeyRequestID); id != "" {
		kv = append(kv, "request_id", id)
	}
	if sessionID := SessionID(c); sessionID != "" {
		kv = append(kv, "session_id", sessionID)
	}
	if len(kv) == 0 {
		return logger.S()
	}
	return logger.SW(kv...)
}

// RespondError 按消息键返回错误响应，有原始错误时记录日志。
func RespondError(c *gin.Context, code int, key string, err error) {
	msg := Message(key)
	if err != nil {
		RequestLog(c).Errorw("handler_error", "code", code, "key", key, "error", err)
	}
	response.Error(c, code, msg)
}
