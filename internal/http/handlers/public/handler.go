package public

import "github.com/tiffin-next/internal/provider"

// Handler 前台购物车接口处理器
type Handler struct {
	*provider.Container
}

// New 创建前台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
