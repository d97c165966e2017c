package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/dujiao-next/storefront/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	API      APIConfig      `mapstructure:"api"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Cart     CartConfig     `mapstructure:"cart"`
	Session  SessionConfig  `mapstructure:"session"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Security SecurityConfig `mapstructure:"security"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ServerConfig 本地网关配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
		Level:      c.Level,
		Console:    c.Console,
	}
}

// APIConfig 商城后端 REST API 配置
type APIConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Timeout 请求超时
func (c APIConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 12 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// StoragePoolConfig 数据库连接池配置
type StoragePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
}

// StorageConfig 本地持久化配置
type StorageConfig struct {
	Driver string            `mapstructure:"driver"` // memory / sqlite / postgres / redis
	DSN    string            `mapstructure:"dsn"`
	Pool   StoragePoolConfig `mapstructure:"pool"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// CartConfig 购物车行为配置
type CartConfig struct {
	GuestSyncIntervalMinutes int `mapstructure:"guest_sync_interval_minutes"`
	GuestSyncBackoffSeconds  int `mapstructure:"guest_sync_backoff_seconds"`
	AutoCloseMS              int `mapstructure:"auto_close_ms"`
	StaleMinutes             int `mapstructure:"stale_minutes"`
	NotificationCapacity     int `mapstructure:"notification_capacity"`
}

// GuestSyncInterval 游客购物车校验间隔
func (c CartConfig) GuestSyncInterval() time.Duration {
	if c.GuestSyncIntervalMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.GuestSyncIntervalMinutes) * time.Minute
}

// GuestSyncBackoff 校验失败后的重试间隔
func (c CartConfig) GuestSyncBackoff() time.Duration {
	if c.GuestSyncBackoffSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.GuestSyncBackoffSeconds) * time.Second
}

// AutoCloseDelay 加购后抽屉自动关闭延迟
func (c CartConfig) AutoCloseDelay() time.Duration {
	if c.AutoCloseMS <= 0 {
		return 3000 * time.Millisecond
	}
	return time.Duration(c.AutoCloseMS) * time.Millisecond
}

// StaleTime 购物车缓存新鲜期
func (c CartConfig) StaleTime() time.Duration {
	if c.StaleMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.StaleMinutes) * time.Minute
}

// SessionConfig 会话空闲配置
type SessionConfig struct {
	IdleTimeoutMinutes int `mapstructure:"idle_timeout_minutes"`
}

// IdleTimeout 空闲登出时长
func (c SessionConfig) IdleTimeout() time.Duration {
	if c.IdleTimeoutMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.IdleTimeoutMinutes) * time.Minute
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// LoginRateLimitConfig 登录限流配置
type LoginRateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxAttempts   int `mapstructure:"max_attempts"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	LoginRateLimit LoginRateLimitConfig `mapstructure:"login_rate_limit"`
}

// MetricsConfig OpenTelemetry 指标配置
type MetricsConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	Headers         string `mapstructure:"headers"`
	Insecure        bool   `mapstructure:"insecure"`
	IntervalSeconds int    `mapstructure:"interval_seconds"`
	ServiceName     string `mapstructure:"service_name"`
	ServiceVersion  string `mapstructure:"service_version"`
	Environment     string `mapstructure:"environment"`
}

// Load 从 .env 与 config.yml 加载配置
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		var pathErr *fs.PathError
		if !errors.As(err, &pathErr) {
			logger.Warnw("dotenv_load_failed", "error", err)
		}
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("../")   // 如果从 cmd/server 运行
	v.AddConfigPath("./etc") // etc 文件夹
	SetDefaults(v)

	// 环境变量支持 (例如 api.base_url -> API_BASE_URL)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", v.ConfigFileUsed())
	}

	cfg, err := Unmarshal(v)
	if err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(err)
	}
	return cfg
}

// Unmarshal 解析并校验配置
func Unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("配置解析失败: %w", err)
	}
	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.API.BaseURL), "/")
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if cfg.API.BaseURL == "" {
		return nil, errors.New("api.base_url is required")
	}
	return &cfg, nil
}

// SetDefaults 写入默认值
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "8090")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "storefront.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("log.level", "")
	v.SetDefault("log.console", false)
	v.SetDefault("api.base_url", "http://127.0.0.1:8000")
	v.SetDefault("api.timeout_seconds", 12)
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.dsn", "./data/storefront.db")
	v.SetDefault("storage.pool.max_open_conns", 1)
	v.SetDefault("storage.pool.max_idle_conns", 1)
	v.SetDefault("storage.pool.conn_max_lifetime_seconds", 0)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "sf")
	v.SetDefault("cart.guest_sync_interval_minutes", 60)
	v.SetDefault("cart.guest_sync_backoff_seconds", 300)
	v.SetDefault("cart.auto_close_ms", 3000)
	v.SetDefault("cart.stale_minutes", 60)
	v.SetDefault("cart.notification_capacity", 50)
	v.SetDefault("session.idle_timeout_minutes", 30)
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Authorization",
		"X-Requested-With",
		"X-Request-ID",
	})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 600)
	v.SetDefault("security.login_rate_limit.window_seconds", 300)
	v.SetDefault("security.login_rate_limit.max_attempts", 5)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.endpoint", "localhost:4318")
	v.SetDefault("metrics.headers", "")
	v.SetDefault("metrics.insecure", true)
	v.SetDefault("metrics.interval_seconds", 10)
	v.SetDefault("metrics.service_name", "storefront-agent")
	v.SetDefault("metrics.service_version", "1.0.0")
	v.SetDefault("metrics.environment", "development")
}
