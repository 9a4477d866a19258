package response

import (
	"net/http"

	"github.com/tiffin-next/internal/constants"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构，HTTP 状态恒为 200，业务结果看 status_code
type Response struct {
	StatusCode int         `json:"status_code"`
	Msg        string      `json:"msg"`
	Data       interface{} `json:"data"`
	RequestID  string      `json:"request_id,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	write(c, CodeOK, "success", data)
}

// Error 错误响应，data 固定为 null
func Error(c *gin.Context, statusCode int, msg string) {
	write(c, statusCode, msg, nil)
}

func write(c *gin.Context, statusCode int, msg string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		StatusCode: statusCode,
		Msg:        msg,
		Data:       data,
		RequestID:  c.GetString(constants.ContextKeyRequestID),
	})
}
