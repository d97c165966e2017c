package router

import (
	"fmt"
	"strings"

	"github.com/dujiao-next/storefront/internal/config"
	publichandlers "github.com/dujiao-next/storefront/internal/http/handlers/public"
	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.Z()
	r := gin.New()

	h := publichandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "sf"
	}
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		Message:       "Too many login attempts, please retry in %d seconds",
	}
	loginLimiter := NewRateLimiter(c.Redis, loginRule, KeyByIPAndJSONField("email"))

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log, "/healthz"))
	r.Use(CORSMiddleware(cfg.CORS))
	r.Use(LatencyMiddleware(c.Metrics))
	r.NoRoute(NotFoundHandler)

	r.GET("/healthz", h.Health)

	api := r.Group("/api")
	{
		cart := api.Group("/cart")
		{
			cart.GET("", h.GetCart)
			cart.DELETE("", h.ClearCart)
			cart.GET("/summary", h.GetCartSummary)
			cart.GET("/products/:product_id", h.GetCartProduct)
			cart.POST("/items", h.AddCartItem)
			cart.PUT("/items/:item_id", h.UpdateCartItem)
			cart.DELETE("/items/:item_id", h.RemoveCartItem)
			cart.POST("/merge", h.MergeCart)
		}

		drawer := api.Group("/drawer")
		{
			drawer.GET("", h.GetDrawer)
			drawer.POST("/open", h.OpenDrawer)
			drawer.POST("/close", h.CloseDrawer)
			drawer.POST("/toggle", h.ToggleDrawer)
		}

		api.GET("/notifications", h.GetNotifications)

		auth := api.Group("/auth")
		{
			auth.POST("/login", loginLimiter.Middleware(), h.Login)
			auth.POST("/logout", h.Logout)
			auth.GET("/status", h.GetAuthStatus)
		}

		sess := api.Group("/session")
		{
			sess.POST("/activity", h.ReportActivity)
			sess.POST("/visibility", h.ReportVisibility)
		}
	}

	return r
}
