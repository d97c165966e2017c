package cart

import (
	"context"
	"strings"
	"sync"

	"github.com/dujiao-next/storefront/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GuestSession 游客会话 ID，首次使用时生成并持久化
type GuestSession struct {
	store storage.Store
	log   *zap.SugaredLogger

	mu sync.Mutex
	id string
}

// NewGuestSession 创建游客会话
func NewGuestSession(store storage.Store, log *zap.SugaredLogger) *GuestSession {
	return &GuestSession{store: store, log: log}
}

// ID 返回游客会话 ID
func (s *GuestSession) ID(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.id != "" {
		return s.id
	}

	stored, err := storage.GetString(ctx, s.store, storage.KeyCartSessionID)
	if err != nil {
		s.log.Warnw("guest_session_load_failed", "error", err)
	}
	if stored = strings.TrimSpace(stored); stored != "" {
		s.id = stored
		return s.id
	}

	s.id = uuid.NewString()
	if err := storage.SetString(ctx, s.store, storage.KeyCartSessionID, s.id); err != nil {
		s.log.Warnw("guest_session_save_failed", "error", err)
	}
	return s.id
}
