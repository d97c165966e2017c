// Package clock 提供可替换的时间源，便于对定时器做确定性测试。
package clock

import "time"

// Timer 可取消的单次定时器
type Timer interface {
	// Stop 取消定时器，已触发或已取消时返回 false
	Stop() bool
}

// Clock 时间源
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

// Real 返回基于系统时间的 Clock
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
