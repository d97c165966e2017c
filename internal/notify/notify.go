// Package notify 用户提示（toast）投递。
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Level 提示级别
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

const defaultCapacity = 50

// Notifier 提示投递
type Notifier interface {
	Success(message string)
	Error(message string)
}

// Notification 一条提示
type Notification struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Inbox 有界 FIFO，满时丢弃最旧的提示
type Inbox struct {
	mu       sync.Mutex
	items    []Notification
	capacity int
	now      func() time.Time
}

// NewInbox 创建提示收件箱
func NewInbox(capacity int, now func() time.Time) *Inbox {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	if now == nil {
		now = time.Now
	}
	return &Inbox{capacity: capacity, now: now}
}

func (b *Inbox) Success(message string) {
	b.push(LevelSuccess, message)
}

func (b *Inbox) Error(message string) {
	b.push(LevelError, message)
}

// Drain 取出并清空全部提示
func (b *Inbox) Drain() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.items
	b.items = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}

// Len 当前提示数
func (b *Inbox) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

func (b *Inbox) push(level Level, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) >= b.capacity {
		b.items = b.items[len(b.items)-b.capacity+1:]
	}
	b.items = append(b.items, Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: b.now(),
	})
}

// LogNotifier 将提示写入日志
type LogNotifier struct {
	log *zap.SugaredLogger
}

// NewLogNotifier 创建日志提示
func NewLogNotifier(log *zap.SugaredLogger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Success(message string) {
	n.log.Infow("toast", "level", LevelSuccess, "message", message)
}

func (n *LogNotifier) Error(message string) {
	n.log.Warnw("toast", "level", LevelError, "message", message)
}

// Multi 扇出到多个 Notifier
type Multi []Notifier

func (m Multi) Success(message string) {
	for _, n := range m {
		n.Success(message)
	}
}

func (m Multi) Error(message string) {
	for _, n := range m {
		n.Error(message)
	}
}

// Discard 丢弃全部提示
type Discard struct{}

func (Discard) Success(string) {}
func (Discard) Error(string)   {}
