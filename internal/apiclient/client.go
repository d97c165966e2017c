// Package apiclient 商城后端 REST 客户端，负责鉴权头与 401 自动刷新令牌。
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dujiao-next/storefront/internal/auth"
	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// 后端接口路径
const (
	PathCart           = "/api/v1/cart"
	PathCartAddItem    = "/api/v1/cart/add_item/"
	PathCartUpdateQty  = "/api/v1/cart/update_quantity/"
	PathCartRemoveItem = "/api/v1/cart/remove_item/"
	PathCartClear      = "/api/v1/cart/clear/"
	PathCartMerge      = "/api/v1/cart/merge/"
	PathCartSyncGuest  = "/api/v1/cart/sync_guest/"
	PathLogin          = "/api/v1/users/login/"
	PathTokenRefresh   = "/api/v1/users/token/refresh/"
)

const defaultTimeout = 12 * time.Second

// Options 客户端参数
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Tokens     *auth.TokenStore
	Logger     *zap.SugaredLogger
	Metrics    *metrics.CartMetrics
}

// Request 单次调用描述
type Request struct {
	Method   string
	Path     string
	Body     interface{}
	Out      interface{}
	Fallback string
	// Anonymous 为 true 时不携带令牌，也不会触发刷新
	Anonymous bool
}

// LogoutHook 强制登出回调
type LogoutHook func(ctx context.Context)

// Client 后端客户端
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	tokens  *auth.TokenStore
	log     *zap.SugaredLogger
	metrics *metrics.CartMetrics

	refreshGroup singleflight.Group

	hooksMu sync.RWMutex
	hooks   []LogoutHook
}

// New 创建客户端
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	log := opts.Logger
	if log == nil {
		log = logger.Named("apiclient")
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		timeout: timeout,
		http:    httpClient,
		tokens:  opts.Tokens,
		log:     log,
		metrics: opts.Metrics,
	}
}

// Tokens 令牌存储
func (c *Client) Tokens() *auth.TokenStore {
	return c.tokens
}

// OnLogout 注册强制登出回调（刷新失败、主动登出、空闲超时）
func (c *Client) OnLogout(hook LogoutHook) {
	if hook == nil {
		return
	}
	c.hooksMu.Lock()
	c.hooks = append(c.hooks, hook)
	c.hooksMu.Unlock()
}

// Do 发起请求；401 时刷新令牌并仅重试一次
func (c *Client) Do(ctx context.Context, req Request) error {
	var payload []byte
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return &APIError{Message: req.Fallback, Err: fmt.Errorf("%w: marshal request failed", ErrRequestFailed)}
		}
		payload = encoded
	}

	token := ""
	if !req.Anonymous && c.tokens != nil {
		token, _ = c.tokens.Access(ctx)
	}

	status, body, err := c.send(ctx, req.Method, req.Path, token, payload)
	if err != nil {
		return &APIError{Message: req.Fallback, Err: err}
	}

	if status == http.StatusUnauthorized && token != "" {
		fresh, refreshErr := c.refreshAccess(ctx, token)
		if refreshErr != nil {
			return &APIError{Status: status, Message: extractMessage(body, req.Fallback), Err: refreshErr}
		}
		status, body, err = c.send(ctx, req.Method, req.Path, fresh, payload)
		if err != nil {
			return &APIError{Message: req.Fallback, Err: err}
		}
	}

	if status < 200 || status >= 300 {
		return &APIError{
			Status:  status,
			Message: extractMessage(body, req.Fallback),
			Err:     fmt.Errorf("%w: %s %s status %d", ErrRequestFailed, req.Method, req.Path, status),
		}
	}
	if req.Out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, req.Out); err != nil {
		return &APIError{Status: status, Message: req.Fallback, Err: fmt.Errorf("%w: decode response failed", ErrResponseFailed)}
	}
	return nil
}

// Login 登录并保存令牌
func (c *Client) Login(ctx context.Context, email, password string) (auth.TokenPair, error) {
	var pair auth.TokenPair
	err := c.Do(ctx, Request{
		Method:    http.MethodPost,
		Path:      PathLogin,
		Body:      map[string]string{"email": strings.TrimSpace(email), "password": password},
		Out:       &pair,
		Fallback:  "Login failed",
		Anonymous: true,
	})
	if err != nil {
		return auth.TokenPair{}, err
	}
	if strings.TrimSpace(pair.Access) == "" {
		return auth.TokenPair{}, &APIError{Status: http.StatusOK, Message: "Login failed", Err: fmt.Errorf("%w: access token is empty", ErrResponseFailed)}
	}
	if err := c.tokens.Save(ctx, pair); err != nil {
		return auth.TokenPair{}, fmt.Errorf("save tokens failed: %w", err)
	}
	c.log.Infow("user_login_success")
	return pair, nil
}

// Logout 清除令牌并通知回调
func (c *Client) Logout(ctx context.Context) {
	c.forceLogout(ctx, "user")
}

// refreshAccess 同一时刻只发起一次刷新，其余 401 请求等待该结果
func (c *Client) refreshAccess(ctx context.Context, staleToken string) (string, error) {
	refreshCtx := context.WithoutCancel(ctx)
	v, err, shared := c.refreshGroup.Do("refresh", func() (interface{}, error) {
		if current, _ := c.tokens.Access(refreshCtx); current != "" && current != staleToken {
			// 排队期间令牌已被更新
			return current, nil
		}
		refresh, _ := c.tokens.Refresh(refreshCtx)
		if refresh == "" {
			c.forceLogout(refreshCtx, "refresh_token_missing")
			return "", fmt.Errorf("%w: %w", ErrRefreshFailed, ErrNoRefreshToken)
		}
		var pair auth.TokenPair
		err := c.Do(refreshCtx, Request{
			Method:    http.MethodPost,
			Path:      PathTokenRefresh,
			Body:      map[string]string{"refresh": refresh},
			Out:       &pair,
			Fallback:  "Session expired",
			Anonymous: true,
		})
		if err == nil && strings.TrimSpace(pair.Access) == "" {
			err = fmt.Errorf("%w: access token is empty", ErrResponseFailed)
		}
		if err != nil {
			c.log.Warnw("token_refresh_failed", "error", err)
			c.forceLogout(refreshCtx, "refresh_failed")
			return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
		}
		if err := c.tokens.Save(refreshCtx, pair); err != nil {
			return "", fmt.Errorf("%w: save tokens: %v", ErrRefreshFailed, err)
		}
		c.log.Debugw("token_refreshed")
		return pair.Access, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		c.log.Debugw("token_refresh_shared")
	}
	return v.(string), nil
}

func (c *Client) forceLogout(ctx context.Context, reason string) {
	if c.tokens != nil {
		if err := c.tokens.Clear(ctx); err != nil {
			c.log.Warnw("token_clear_failed", "error", err)
		}
	}
	c.log.Infow("session_logout", "reason", reason)

	c.hooksMu.RLock()
	hooks := append([]LogoutHook(nil), c.hooks...)
	c.hooksMu.RUnlock()
	for _, hook := range hooks {
		hook(ctx)
	}
}

func (c *Client) send(ctx context.Context, method, path, token string, payload []byte) (int, []byte, error) {
	ctx, cancel := c.withDefaultTimeout(ctx)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: build request failed", ErrRequestFailed)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RecordAPIRequest(ctx, method, path, 0, time.Since(start))
		return 0, nil, fmt.Errorf("%w: http request failed: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	c.metrics.RecordAPIRequest(ctx, method, path, resp.StatusCode, time.Since(start))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("%w: read response failed", ErrResponseFailed)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) withDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}
