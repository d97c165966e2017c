package public

import "github.com/dujiao-next/storefront/internal/provider"

// Handler 本地网关接口处理器
type Handler struct {
	*provider.Container
}

// New 创建处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
