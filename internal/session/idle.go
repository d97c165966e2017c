// Package session 空闲会话管理：用户无操作超时后自动登出。
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dujiao-next/storefront/internal/auth"
	"github.com/dujiao-next/storefront/internal/clock"
	"github.com/dujiao-next/storefront/internal/logger"

	"go.uber.org/zap"
)

const defaultIdleTimeout = 30 * time.Minute

// 会重置计时的用户活动事件
const (
	EventMouseDown  = "mousedown"
	EventKeyDown    = "keydown"
	EventTouchStart = "touchstart"
	EventScroll     = "scroll"
)

var activityEvents = map[string]struct{}{
	EventMouseDown:  {},
	EventKeyDown:    {},
	EventTouchStart: {},
	EventScroll:     {},
}

// LogoutFunc 登出动作
type LogoutFunc func(ctx context.Context, reason string)

// 登出原因
const (
	ReasonIdle           = "idle_timeout"
	ReasonTokenMissing   = "token_missing"
	ReasonRefreshExpired = "refresh_expired"
)

// Options 空闲管理参数
type Options struct {
	Timeout  time.Duration
	Clock    clock.Clock
	Tokens   *auth.TokenStore
	OnLogout LogoutFunc
	Logger   *zap.SugaredLogger
}

// IdleManager 空闲超时管理
type IdleManager struct {
	timeout  time.Duration
	clock    clock.Clock
	tokens   *auth.TokenStore
	onLogout LogoutFunc
	log      *zap.SugaredLogger

	mu     sync.Mutex
	timer  clock.Timer
	armSeq uint64
	active bool
}

// NewIdleManager 创建空闲管理器
func NewIdleManager(opts Options) *IdleManager {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultIdleTimeout
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}
	log := opts.Logger
	if log == nil {
		log = logger.Named("session")
	}
	return &IdleManager{
		timeout:  timeout,
		clock:    clk,
		tokens:   opts.Tokens,
		onLogout: opts.OnLogout,
		log:      log,
	}
}

// Timeout 空闲超时时长
func (m *IdleManager) Timeout() time.Duration {
	return m.timeout
}

// Start 开始或重新开始计时
func (m *IdleManager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = true
	m.armLocked()
}

// Stop 停止计时
func (m *IdleManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = false
	m.disarmLocked()
}

// Active 是否正在计时
func (m *IdleManager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Activity 用户活动；仅识别的事件且会话进行中时重置计时，返回是否重置
func (m *IdleManager) Activity(event string) bool {
	if _, ok := activityEvents[strings.ToLower(strings.TrimSpace(event))]; !ok {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return false
	}
	m.armLocked()
	return true
}

// VisibilityChanged 页面重新可见时校验令牌，缺失或刷新令牌已过期则登出
func (m *IdleManager) VisibilityChanged(ctx context.Context, visible bool) bool {
	if !visible || !m.Active() {
		return false
	}
	access, _ := m.tokens.Access(ctx)
	if strings.TrimSpace(access) == "" {
		m.expire(ctx, ReasonTokenMissing)
		return true
	}
	if refresh, _ := m.tokens.Refresh(ctx); refresh != "" && auth.Expired(refresh, m.clock.Now()) {
		m.expire(ctx, ReasonRefreshExpired)
		return true
	}
	return false
}

func (m *IdleManager) armLocked() {
	m.disarmLocked()
	m.armSeq++
	seq := m.armSeq
	m.timer = m.clock.AfterFunc(m.timeout, func() {
		m.mu.Lock()
		if m.armSeq != seq || !m.active {
			m.mu.Unlock()
			return
		}
		m.timer = nil
		m.active = false
		m.mu.Unlock()
		m.logout(context.Background(), ReasonIdle)
	})
}

func (m *IdleManager) disarmLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.armSeq++
}

func (m *IdleManager) expire(ctx context.Context, reason string) {
	m.mu.Lock()
	m.active = false
	m.disarmLocked()
	m.mu.Unlock()
	m.logout(ctx, reason)
}

func (m *IdleManager) logout(ctx context.Context, reason string) {
	m.log.Infow("session_expired", "reason", reason)
	if m.onLogout != nil {
		m.onLogout(ctx, reason)
	}
}
