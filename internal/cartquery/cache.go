package cartquery

import (
	"sync"
	"time"

	"github.com/dujiao-next/storefront/internal/clock"
	"github.com/dujiao-next/storefront/internal/models"
)

// CacheKey 购物车缓存键
const CacheKey = "cart"

const defaultStaleTime = time.Hour

// entry 缓存条目
type entry struct {
	data        *models.Cart
	err         error
	updatedAt   time.Time
	invalidated bool
}

func (e entry) clone() entry {
	e.data = e.data.Clone()
	return e
}

// QueryCache 单键购物车缓存；generation 用于丢弃过期的在途请求结果
type QueryCache struct {
	mu         sync.RWMutex
	clock      clock.Clock
	staleTime  time.Duration
	current    entry
	generation uint64
}

// NewQueryCache 创建缓存
func NewQueryCache(clk clock.Clock, staleTime time.Duration) *QueryCache {
	if clk == nil {
		clk = clock.Real()
	}
	if staleTime <= 0 {
		staleTime = defaultStaleTime
	}
	return &QueryCache{clock: clk, staleTime: staleTime}
}

// Data 当前数据副本，未加载时为 nil
func (q *QueryCache) Data() *models.Cart {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.current.data.Clone()
}

// Err 最近一次加载错误
func (q *QueryCache) Err() error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.current.err
}

// UpdatedAt 最近一次成功写入时间
func (q *QueryCache) UpdatedAt() time.Time {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.current.updatedAt
}

// Fresh 有数据、未失效且未过期
func (q *QueryCache) Fresh() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.freshLocked()
}

// Stale 与 Fresh 相反
func (q *QueryCache) Stale() bool {
	return !q.Fresh()
}

func (q *QueryCache) freshLocked() bool {
	if q.current.data == nil || q.current.invalidated {
		return false
	}
	return q.clock.Now().Sub(q.current.updatedAt) < q.staleTime
}

// BeginFetch 记录发起请求时的代数
func (q *QueryCache) BeginFetch() uint64 {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.generation
}

// CompleteFetch 写入请求结果；期间有更新写入时丢弃并返回 false。
// 失败时只记录错误，不改动已有数据。
func (q *QueryCache) CompleteFetch(generation uint64, data *models.Cart, err error) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if generation != q.generation {
		return false
	}
	if err != nil {
		q.current.err = err
		return true
	}
	q.current = entry{data: data.Clone(), updatedAt: q.clock.Now()}
	return true
}

// CancelFetches 使所有在途请求结果失效
func (q *QueryCache) CancelFetches() {
	q.mu.Lock()
	q.generation++
	q.mu.Unlock()
}

// Set 整体替换数据
func (q *QueryCache) Set(data *models.Cart) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.generation++
	q.current = entry{data: data.Clone(), updatedAt: q.clock.Now()}
}

// Update 基于当前数据副本做修改；无数据时不做任何事
func (q *QueryCache) Update(fn func(c *models.Cart)) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.current.data == nil {
		return false
	}
	q.generation++
	next := q.current.data.Clone()
	fn(next)
	q.current.data = next
	return true
}

// Invalidate 标记失效，下次读取时重新加载
func (q *QueryCache) Invalidate() {
	q.mu.Lock()
	q.current.invalidated = true
	q.mu.Unlock()
}

// snapshot 完整条目副本
func (q *QueryCache) snapshot() entry {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.current.clone()
}

// restore 回滚到快照
func (q *QueryCache) restore(snap entry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.generation++
	q.current = snap.clone()
}
