package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dujiao-next/storefront/internal/http/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitKeyFunc 生成限流 key 的函数
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 限流规则
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	// Message 触发限流时的提示，%d 为剩余等待秒数
	Message string
}

const (
	msgRateLimitUnavailable = "Rate limiter unavailable"
	msgRateLimitDefault     = "Too many requests, please retry in %d seconds"
)

// 固定窗口计数：首次命中时设置过期，返回 {count, ttl}
var windowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("TTL", KEYS[1])}
`)

// RateLimiter Redis 固定窗口限流器
type RateLimiter struct {
	client  *redis.Client
	rule    RateLimitRule
	keyFunc RateLimitKeyFunc
}

// NewRateLimiter 创建限流器，client 为空或规则无效时放行所有请求
func NewRateLimiter(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) *RateLimiter {
	if keyFunc == nil {
		keyFunc = KeyByIP
	}
	return &RateLimiter{client: client, rule: rule, keyFunc: keyFunc}
}

// Enabled 是否实际执行限流
func (l *RateLimiter) Enabled() bool {
	return l != nil && l.client != nil && l.rule.WindowSeconds > 0 && l.rule.MaxRequests > 0
}

// Allow 计入一次请求，超限时返回需要等待的秒数
func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	if !l.Enabled() {
		return true, 0, nil
	}
	if l.rule.Prefix != "" {
		key = l.rule.Prefix + ":" + key
	}
	values, err := windowScript.Run(ctx, l.client, []string{key}, l.rule.WindowSeconds).Int64Slice()
	if err != nil {
		return false, 0, err
	}
	if len(values) < 2 {
		return false, 0, fmt.Errorf("unexpected rate limit reply: %v", values)
	}
	allowed, wait := evaluateWindow(values[0], values[1], l.rule)
	return allowed, wait, nil
}

// Middleware 转为 gin 中间件；Redis 故障时拒绝请求
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Enabled() {
			c.Next()
			return
		}
		key := strings.TrimSpace(l.keyFunc(c))
		if key == "" {
			key = c.ClientIP()
		}

		allowed, wait, err := l.Allow(c.Request.Context(), key)
		if err != nil {
			response.Abort(c, response.CodeInternal, msgRateLimitUnavailable)
			return
		}
		if !allowed {
			msg := strings.TrimSpace(l.rule.Message)
			if msg == "" {
				msg = msgRateLimitDefault
			}
			c.Header("Retry-After", strconv.Itoa(wait))
			response.Abort(c, response.CodeTooManyRequests, fmt.Sprintf(msg, wait))
			return
		}
		c.Next()
	}
}

func evaluateWindow(count, ttl int64, rule RateLimitRule) (bool, int) {
	if count <= int64(rule.MaxRequests) {
		return true, 0
	}
	wait := int(ttl)
	if wait < 1 {
		wait = rule.WindowSeconds
	}
	if wait < 1 {
		wait = 1
	}
	return false, wait
}

// KeyByIP 使用 IP 作为限流 key
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByIPAndJSONField 使用 JSON 字段 + IP 作为限流 key，字段缺失时退化为 IP
func KeyByIPAndJSONField(field string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		value := strings.ToLower(peekJSONString(c, field))
		if value == "" {
			return c.ClientIP()
		}
		return value + "|" + c.ClientIP()
	}
}

// peekJSONString 读取请求体中的字符串字段，并还原请求体供后续绑定
func peekJSONString(c *gin.Context, field string) string {
	if c == nil || c.Request == nil || c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil || len(body) == 0 {
		return ""
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	raw, ok := payload[field]
	if !ok {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}
