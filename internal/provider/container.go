package provider

import (
	"context"
	"errors"
	"net/http"

	"github.com/dujiao-next/storefront/internal/apiclient"
	"github.com/dujiao-next/storefront/internal/auth"
	"github.com/dujiao-next/storefront/internal/cart"
	"github.com/dujiao-next/storefront/internal/cartquery"
	"github.com/dujiao-next/storefront/internal/clock"
	"github.com/dujiao-next/storefront/internal/config"
	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/metrics"
	"github.com/dujiao-next/storefront/internal/notify"
	"github.com/dujiao-next/storefront/internal/session"
	"github.com/dujiao-next/storefront/internal/storage"

	"github.com/redis/go-redis/v9"
)

const msgSessionExpired = "Your session has expired, please log in again"

// Deps 可注入的外部依赖，留空时按配置创建
type Deps struct {
	Store      storage.Store
	Clock      clock.Clock
	Metrics    *metrics.CartMetrics
	HTTPClient *http.Client
	Redis      *redis.Client
}

// Container 依赖注入容器
type Container struct {
	Config *config.Config
	Clock  clock.Clock
	Store  storage.Store
	Redis  *redis.Client

	Tokens   *auth.TokenStore
	API      *apiclient.Client
	Metrics  *metrics.CartMetrics
	Inbox    *notify.Inbox
	Notifier notify.Notifier

	Carts   *cart.Adapter
	Facade  *cartquery.Facade
	Session *session.IdleManager
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config, deps Deps) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	store := deps.Store
	if store == nil {
		opened, err := storage.Open(cfg.Storage, cfg.Redis)
		if err != nil {
			return nil, err
		}
		store = opened
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real()
	}

	// 限流使用的 Redis：优先复用存储的连接
	redisClient := deps.Redis
	if redisClient == nil {
		if rs, ok := store.(*storage.RedisStore); ok {
			redisClient = rs.Client()
		} else if cfg.Redis.Enabled {
			redisClient = storage.NewRedisClient(cfg.Redis)
		}
	}

	tokens := auth.NewTokenStore(store)
	api := apiclient.New(apiclient.Options{
		BaseURL:    cfg.API.BaseURL,
		Timeout:    cfg.API.Timeout(),
		HTTPClient: deps.HTTPClient,
		Tokens:     tokens,
		Logger:     logger.Named("apiclient"),
		Metrics:    deps.Metrics,
	})

	inbox := notify.NewInbox(cfg.Cart.NotificationCapacity, clk.Now)
	notifier := notify.Multi{inbox, notify.NewLogNotifier(logger.Named("toast"))}

	server := cart.NewServerCartStore(api)
	local := cart.NewLocalCartStore(cart.LocalOptions{
		Store:        store,
		Syncer:       server,
		Clock:        clk,
		SyncInterval: cfg.Cart.GuestSyncInterval(),
		SyncBackoff:  cfg.Cart.GuestSyncBackoff(),
		Logger:       logger.Named("guest_cart"),
		Metrics:      deps.Metrics,
	})
	adapter := cart.NewAdapter(server, local, tokens.IsAuthenticated, logger.Named("cart"))

	facade := cartquery.New(cartquery.Options{
		Adapter:        adapter,
		Notifier:       notifier,
		Clock:          clk,
		AutoCloseDelay: cfg.Cart.AutoCloseDelay(),
		StaleTime:      cfg.Cart.StaleTime(),
		Logger:         logger.Named("cartquery"),
		Metrics:        deps.Metrics,
	})

	idle := session.NewIdleManager(session.Options{
		Timeout: cfg.Session.IdleTimeout(),
		Clock:   clk,
		Tokens:  tokens,
		OnLogout: func(ctx context.Context, reason string) {
			notifier.Error(msgSessionExpired)
			api.Logout(ctx)
		},
		Logger: logger.Named("session"),
	})

	api.OnLogout(func(context.Context) {
		idle.Stop()
		facade.Invalidate()
	})

	return &Container{
		Config:   cfg,
		Clock:    clk,
		Store:    store,
		Redis:    redisClient,
		Tokens:   tokens,
		API:      api,
		Metrics:  deps.Metrics,
		Inbox:    inbox,
		Notifier: notifier,
		Carts:    adapter,
		Facade:   facade,
		Session:  idle,
	}, nil
}

// Close 释放资源
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	c.Session.Stop()
	c.Facade.Close()
	if c.Redis != nil {
		if _, shared := c.Store.(*storage.RedisStore); !shared {
			if err := c.Redis.Close(); err != nil {
				logger.Warnw("provider_close_redis_failed", "error", err)
			}
		}
	}
	return c.Store.Close()
}
