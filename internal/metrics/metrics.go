// Package metrics 购物车与后端调用的 OpenTelemetry 指标。
package metrics

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dujiao-next/storefront/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

const meterName = "github.com/dujiao-next/storefront"

// 结果状态标签
const (
	StatusSuccess  = "success"
	StatusError    = "error"
	StatusSkipped  = "skipped"
	StatusNotFound = "not_found"
)

// CartMetrics 购物车相关指标；nil 接收者上的方法均为空操作
type CartMetrics struct {
	mutations   metric.Int64Counter
	rollbacks   metric.Int64Counter
	guestSyncs  metric.Int64Counter
	apiDuration metric.Float64Histogram
}

// ShutdownFunc 关闭 MeterProvider
type ShutdownFunc func(ctx context.Context) error

// New 基于给定 meter 创建指标
func New(meter metric.Meter) (*CartMetrics, error) {
	mutations, err := meter.Int64Counter(
		"cart.mutation.count",
		metric.WithDescription("Cart mutations by operation and outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cart mutation counter: %w", err)
	}
	rollbacks, err := meter.Int64Counter(
		"cart.rollback.count",
		metric.WithDescription("Optimistic cart updates rolled back"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cart rollback counter: %w", err)
	}
	guestSyncs, err := meter.Int64Counter(
		"cart.guest_sync.count",
		metric.WithDescription("Guest cart validation calls by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create guest sync counter: %w", err)
	}
	apiDuration, err := meter.Float64Histogram(
		"storefront.api.request.duration",
		metric.WithDescription("Storefront REST API request duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(5, 10, 25, 50, 100, 200, 400, 800, 1600, 3200, 6400, 12000),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create api duration histogram: %w", err)
	}
	return &CartMetrics{
		mutations:   mutations,
		rollbacks:   rollbacks,
		guestSyncs:  guestSyncs,
		apiDuration: apiDuration,
	}, nil
}

// Init 按配置初始化：未启用时使用 noop provider
func Init(ctx context.Context, cfg config.MetricsConfig) (*CartMetrics, ShutdownFunc, error) {
	if !cfg.Enabled {
		m, err := New(noop.NewMeterProvider().Meter(meterName))
		return m, func(context.Context) error { return nil }, err
	}

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String("deployment.environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build metrics resource: %w", err)
	}

	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.Endpoint),
		otlpmetrichttp.WithURLPath("/v1/metrics"),
	}
	if headers := parseHeaders(cfg.Headers); len(headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(headers))
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	interval := time.Duration(cfg.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 10 * time.Second
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(provider)

	m, err := New(provider.Meter(meterName))
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, nil, err
	}
	return m, provider.Shutdown, nil
}

// RecordMutation 记录一次购物车变更结果
func (m *CartMetrics) RecordMutation(ctx context.Context, operation string, err error) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.mutations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
}

// RecordRollback 记录一次乐观更新回滚
func (m *CartMetrics) RecordRollback(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.rollbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}

// RecordGuestSync 记录游客购物车校验结果
func (m *CartMetrics) RecordGuestSync(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.guestSyncs.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordAPIRequest 记录后端请求耗时
func (m *CartMetrics) RecordAPIRequest(ctx context.Context, method, path string, statusCode int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.apiDuration.Record(ctx, float64(elapsed.Milliseconds()), metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", path),
		attribute.String("http.status_code", strconv.Itoa(statusCode)),
	))
}

// parseHeaders 解析 "k1=v1,k2=v2"
func parseHeaders(raw string) map[string]string {
	headers := make(map[string]string)
	if strings.TrimSpace(raw) == "" {
		return headers
	}
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) == 2 && strings.TrimSpace(parts[0]) != "" {
			headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return headers
}
