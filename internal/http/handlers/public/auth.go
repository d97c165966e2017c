package public

import (
	"github.com/dujiao-next/storefront/internal/apiclient"
	"github.com/dujiao-next/storefront/internal/http/response"

	"github.com/gin-gonic/gin"
)

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthStatus 登录状态
type AuthStatus struct {
	Authenticated      bool  `json:"authenticated"`
	SessionActive      bool  `json:"session_active"`
	IdleTimeoutSeconds int64 `json:"idle_timeout_seconds"`
}

// Login 登录：保存令牌、开始空闲计时并合并游客购物车
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	ctx := c.Request.Context()
	if _, err := h.API.Login(ctx, req.Email, req.Password); err != nil {
		respondError(c, response.CodeFromUpstream(apiclient.StatusOf(err)), apiclient.MessageOf(err, "Login failed"), err)
		return
	}
	h.Session.Start()
	h.Facade.Invalidate()

	// 合并失败只提示，不影响登录结果
	merged := true
	if _, err := h.Facade.Merge(ctx); err != nil {
		merged = false
		requestLog(c).Warnw("login_cart_merge_failed", "error", err)
	}
	response.Success(c, gin.H{
		"authenticated": true,
		"merged":        merged,
	})
}

// Logout 登出
func (h *Handler) Logout(c *gin.Context) {
	h.API.Logout(c.Request.Context())
	response.Success(c, gin.H{"authenticated": false})
}

// GetAuthStatus 登录状态
func (h *Handler) GetAuthStatus(c *gin.Context) {
	response.Success(c, AuthStatus{
		Authenticated:      h.Tokens.IsAuthenticated(c.Request.Context()),
		SessionActive:      h.Session.Active(),
		IdleTimeoutSeconds: int64(h.Session.Timeout().Seconds()),
	})
}
