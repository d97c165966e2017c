package app

import (
	"errors"

	"github.com/dujiao-next/storefront/internal/config"
	"github.com/dujiao-next/storefront/internal/metrics"
	"github.com/dujiao-next/storefront/internal/provider"
	"github.com/dujiao-next/storefront/internal/router"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, m *metrics.CartMetrics) (*Runner, *provider.Container, error) {
	if cfg == nil {
		return nil, nil, errors.New("config is nil")
	}

	container, err := provider.NewContainer(cfg, provider.Deps{Metrics: m})
	if err != nil {
		return nil, nil, err
	}

	engine := router.SetupRouter(cfg, container)
	addr := cfg.Server.Host + ":" + cfg.Server.Port

	// 会话服务先于 HTTP 服务停止
	return NewRunner(
		NewHTTPService(addr, engine),
		NewSessionService(container),
	), container, nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, container, err := BuildRunner(opts.Config, opts.Metrics)
	if err != nil {
		return err
	}
	defer func() {
		if err := container.Close(); err != nil {
			opts.Logger.Warnw("app_container_close_failed", "error", err)
		}
	}()

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "api_base_url", opts.Config.API.BaseURL, "storage", opts.Config.Storage.Driver)
	return RunWithOptions(runner, opts)
}
