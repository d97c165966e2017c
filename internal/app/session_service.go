package app

import (
	"context"

	"github.com/dujiao-next/storefront/internal/provider"
)

// SessionService 管理空闲会话与购物车门面的生命周期
type SessionService struct {
	container *provider.Container
}

// NewSessionService 创建会话服务
func NewSessionService(c *provider.Container) *SessionService {
	return &SessionService{container: c}
}

// Name 服务名称
func (s *SessionService) Name() string {
	return "session"
}

// Start 已有登录态时恢复空闲计时，然后等待退出
func (s *SessionService) Start(ctx context.Context) error {
	if s.container.Tokens.IsAuthenticated(ctx) {
		s.container.Session.Start()
	}
	<-ctx.Done()
	return nil
}

// Stop 停止计时并取消待触发的抽屉自动关闭
func (s *SessionService) Stop(context.Context) error {
	s.container.Session.Stop()
	s.container.Facade.Close()
	return nil
}
