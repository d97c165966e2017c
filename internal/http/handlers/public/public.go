package public

import (
	"github.com/dujiao-next/storefront/internal/http/response"

	"github.com/gin-gonic/gin"
)

// Health 存活检查
func (h *Handler) Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}

// GetNotifications 取出待展示的提示
func (h *Handler) GetNotifications(c *gin.Context) {
	response.Success(c, gin.H{"items": h.Inbox.Drain()})
}
