// Package auth 管理本地保存的访问令牌与刷新令牌。
package auth

import (
	"context"
	"strings"
	"time"

	"github.com/dujiao-next/storefront/internal/storage"

	"github.com/golang-jwt/jwt/v5"
)

// TokenPair 登录/刷新接口返回的令牌
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// TokenStore 令牌存储
type TokenStore struct {
	store storage.Store
}

// NewTokenStore 创建令牌存储
func NewTokenStore(store storage.Store) *TokenStore {
	return &TokenStore{store: store}
}

// Access 当前访问令牌
func (t *TokenStore) Access(ctx context.Context) (string, error) {
	token, err := storage.GetString(ctx, t.store, storage.KeyAccessToken)
	return strings.TrimSpace(token), err
}

// Refresh 当前刷新令牌
func (t *TokenStore) Refresh(ctx context.Context) (string, error) {
	token, err := storage.GetString(ctx, t.store, storage.KeyRefreshToken)
	return strings.TrimSpace(token), err
}

// Save 保存令牌；刷新接口未轮换 refresh 时保留原值
func (t *TokenStore) Save(ctx context.Context, pair TokenPair) error {
	if err := storage.SetString(ctx, t.store, storage.KeyAccessToken, strings.TrimSpace(pair.Access)); err != nil {
		return err
	}
	if refresh := strings.TrimSpace(pair.Refresh); refresh != "" {
		return storage.SetString(ctx, t.store, storage.KeyRefreshToken, refresh)
	}
	return nil
}

// Clear 清除全部令牌
func (t *TokenStore) Clear(ctx context.Context) error {
	if err := t.store.Remove(ctx, storage.KeyAccessToken); err != nil {
		return err
	}
	return t.store.Remove(ctx, storage.KeyRefreshToken)
}

// IsAuthenticated 是否已登录（存在访问令牌）
func (t *TokenStore) IsAuthenticated(ctx context.Context) bool {
	token, err := t.Access(ctx)
	return err == nil && token != ""
}

// ExpiresAt 读取 JWT exp（不校验签名，仅用于客户端判断）
func ExpiresAt(token string) (time.Time, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Expired 令牌已过期；无法解析 exp 的令牌视为未过期，由服务端裁决
func Expired(token string, now time.Time) bool {
	exp, ok := ExpiresAt(token)
	if !ok {
		return false
	}
	return !now.Before(exp)
}
