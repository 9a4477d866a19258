package shared

import (
	"github.com/tiffin-next/internal/constants"

	"github.com/gin-gonic/gin"
)

// SessionID 读取中间件写入的购物车会话 ID
func SessionID(c *gin.Context) string {
	if c == nil {
		return ""
	}
	value, ok := c.Get(constants.ContextKeyCartSession)
	if !ok {
		return ""
	}
	if id, ok := value.(string); ok {
		return id
	}
	return ""
}
