package public

import (
	"github.com/dujiao-next/storefront/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ActivityRequest 用户活动上报
type ActivityRequest struct {
	Event string `json:"event" binding:"required"`
}

// VisibilityRequest 页面可见性上报
type VisibilityRequest struct {
	Visible bool `json:"visible"`
}

// ReportActivity 用户活动，重置空闲计时
func (h *Handler) ReportActivity(c *gin.Context) {
	var req ActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	response.Success(c, gin.H{"reset": h.Session.Activity(req.Event)})
}

// ReportVisibility 页面可见性变化
func (h *Handler) ReportVisibility(c *gin.Context) {
	var req VisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	loggedOut := h.Session.VisibilityChanged(c.Request.Context(), req.Visible)
	response.Success(c, gin.H{
		"logged_out":    loggedOut,
		"authenticated": h.Tokens.IsAuthenticated(c.Request.Context()),
	})
}
