// Package storage 提供键值持久化抽象，替代浏览器 localStorage。
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dujiao-next/storefront/internal/config"
)

// 本地持久化使用的固定 key
const (
	KeyAccessToken       = "accessToken"
	KeyRefreshToken      = "refreshToken"
	KeyGuestCart         = "guestCart"
	KeyCartSessionID     = "cartSessionId"
	KeyGuestCartSyncedAt = "guestCartSyncedAt"
)

// ErrUnsupportedDriver 不支持的存储驱动
var ErrUnsupportedDriver = errors.New("unsupported storage driver")

// Store 字节级键值存储
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// GetJSON 读取并解码 JSON，key 不存在时返回 false
func GetJSON(ctx context.Context, s Store, key string, dest interface{}) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode %s failed: %w", key, err)
	}
	return true, nil
}

// SetJSON 编码为 JSON 后写入
func SetJSON(ctx context.Context, s Store, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s failed: %w", key, err)
	}
	return s.Set(ctx, key, payload)
}

// GetString 读取字符串值，不存在时返回空串
func GetString(ctx context.Context, s Store, key string) (string, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return "", err
	}
	return string(raw), nil
}

// SetString 写入字符串值
func SetString(ctx context.Context, s Store, key, value string) error {
	return s.Set(ctx, key, []byte(value))
}

// Open 按配置打开存储
func Open(cfg config.StorageConfig, redisCfg config.RedisConfig) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite", "postgres", "postgresql":
		return OpenGormStore(cfg)
	case "redis":
		return OpenRedisStore(redisCfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, cfg.Driver)
	}
}
