// Package cartquery 购物车查询与变更门面：缓存、乐观更新与回滚、抽屉与提示。
package cartquery

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dujiao-next/storefront/internal/apiclient"
	"github.com/dujiao-next/storefront/internal/cart"
	"github.com/dujiao-next/storefront/internal/clock"
	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/metrics"
	"github.com/dujiao-next/storefront/internal/models"
	"github.com/dujiao-next/storefront/internal/notify"

	"go.uber.org/zap"
)

const defaultAutoCloseDelay = 3000 * time.Millisecond

// 提示文案
const (
	msgAdded        = "Item added to cart"
	msgRemoved      = "Item removed from cart"
	msgCleared      = "Cart cleared"
	msgFetchFailed  = "Failed to fetch cart"
	msgAddFailed    = "Failed to add item to cart"
	msgUpdateFailed = "Failed to update cart item"
	msgRemoveFailed = "Failed to remove item from cart"
	msgClearFailed  = "Failed to clear cart"
	msgMergeFailed  = "Failed to merge cart"
)

// 变更名称，用于指标与日志
const (
	OpAdd    = "add"
	OpUpdate = "update_quantity"
	OpRemove = "remove"
	OpClear  = "clear"
	OpMerge  = "merge"
)

// CartAdapter 购物车读写能力
type CartAdapter interface {
	Fetch(ctx context.Context) (*models.Cart, error)
	Add(ctx context.Context, productID uint, quantity int, product models.ProductSnapshot) (*models.Cart, error)
	Update(ctx context.Context, itemID models.ItemID, quantity int) (*models.Cart, error)
	Remove(ctx context.Context, itemID models.ItemID) (*models.Cart, error)
	Clear(ctx context.Context) (*models.Cart, error)
	Merge(ctx context.Context) (*models.Cart, error)
}

// Options 门面参数
type Options struct {
	Adapter        CartAdapter
	Notifier       notify.Notifier
	Clock          clock.Clock
	AutoCloseDelay time.Duration
	StaleTime      time.Duration
	Logger         *zap.SugaredLogger
	Metrics        *metrics.CartMetrics
	// OnDrawerChange 抽屉状态变化回调，持锁调用，不能回调抽屉方法
	OnDrawerChange func(DrawerState)
}

// Facade 购物车门面
type Facade struct {
	adapter        CartAdapter
	cache          *QueryCache
	notifier       notify.Notifier
	clock          clock.Clock
	autoCloseDelay time.Duration
	log            *zap.SugaredLogger
	metrics        *metrics.CartMetrics
	onDrawerChange func(DrawerState)

	drawerMu   sync.Mutex
	drawerOpen bool
	autoClose  clock.Timer
	timerSeq   uint64
	unmounted  bool
}

// State 当前购物车视图
type State struct {
	Cart      *models.Cart       `json:"cart"`
	Summary   models.CartSummary `json:"summary"`
	Drawer    DrawerState        `json:"drawer"`
	Error     string             `json:"error,omitempty"`
	UpdatedAt time.Time          `json:"updated_at"`
	Stale     bool               `json:"stale"`
}

// New 创建门面
func New(opts Options) *Facade {
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}
	delay := opts.AutoCloseDelay
	if delay <= 0 {
		delay = defaultAutoCloseDelay
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Discard{}
	}
	log := opts.Logger
	if log == nil {
		log = logger.Named("cartquery")
	}
	return &Facade{
		adapter:        opts.Adapter,
		cache:          NewQueryCache(clk, opts.StaleTime),
		notifier:       notifier,
		clock:          clk,
		autoCloseDelay: delay,
		log:            log,
		metrics:        opts.Metrics,
		onDrawerChange: opts.OnDrawerChange,
	}
}

// Cache 底层缓存
func (f *Facade) Cache() *QueryCache {
	return f.cache
}

// Cart 缓存新鲜时直接返回，否则重新加载
func (f *Facade) Cart(ctx context.Context) (*models.Cart, error) {
	if f.cache.Fresh() {
		return f.cache.Data(), nil
	}
	return f.Refetch(ctx)
}

// Refetch 强制重新加载；失败时缓存数据保持不变并记录错误
func (f *Facade) Refetch(ctx context.Context) (*models.Cart, error) {
	generation := f.cache.BeginFetch()
	data, err := f.adapter.Fetch(ctx)
	if !f.cache.CompleteFetch(generation, data, err) {
		f.log.Debugw("cart_fetch_superseded")
	}
	if err != nil {
		f.log.Warnw("cart_fetch_failed", "error", err)
		return nil, err
	}
	return data.Clone(), nil
}

// Invalidate 标记缓存失效
func (f *Facade) Invalidate() {
	f.cache.Invalidate()
}

// State 当前视图，不触发网络请求
func (f *Facade) State() State {
	data := f.cache.Data()
	state := State{
		Cart:      data,
		Summary:   models.Summarize(data),
		Drawer:    f.Drawer(),
		UpdatedAt: f.cache.UpdatedAt(),
		Stale:     f.cache.Stale(),
	}
	if err := f.cache.Err(); err != nil {
		state.Error = ErrorMessage(err, msgFetchFailed)
	}
	return state
}

// Summary 基于缓存推导汇总
func (f *Facade) Summary() models.CartSummary {
	return models.Summarize(f.cache.Data())
}

// IsItemInCart 商品是否已在购物车中
func (f *Facade) IsItemInCart(productID uint) bool {
	return f.cache.Data().FindByProduct(productID) >= 0
}

// GetItemQuantity 商品在购物车中的数量
func (f *Facade) GetItemQuantity(productID uint) int {
	data := f.cache.Data()
	if idx := data.FindByProduct(productID); idx >= 0 {
		return data.Items[idx].Quantity
	}
	return 0
}

// Add 加入购物车：成功后整体替换缓存、打开抽屉并计时自动关闭
func (f *Facade) Add(ctx context.Context, productID uint, quantity int, product models.ProductSnapshot) (*models.Cart, error) {
	return f.mutate(ctx, mutation{
		name:     OpAdd,
		fallback: msgAddFailed,
		perform: func(ctx context.Context) (*models.Cart, error) {
			return f.adapter.Add(ctx, productID, quantity, product)
		},
		onSuccess: func(result *models.Cart) {
			f.cache.Set(result)
			f.openWithAutoClose()
			f.notifier.Success(msgAdded)
		},
	})
}

// UpdateQuantity 乐观修改数量，结束后重新加载
func (f *Facade) UpdateQuantity(ctx context.Context, itemID models.ItemID, quantity int) (*models.Cart, error) {
	return f.mutate(ctx, mutation{
		name:     OpUpdate,
		fallback: msgUpdateFailed,
		optimistic: func(c *models.Cart) {
			idx := c.FindByID(itemID)
			if idx < 0 {
				return
			}
			if quantity <= 0 {
				c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
				return
			}
			c.Items[idx].Quantity = quantity
		},
		perform: func(ctx context.Context) (*models.Cart, error) {
			return f.adapter.Update(ctx, itemID, quantity)
		},
		onSuccess: func(result *models.Cart) {
			f.cache.Set(result)
		},
		refetchOnSettle: true,
	})
}

// Remove 乐观移除，成功后提示，结束后重新加载
func (f *Facade) Remove(ctx context.Context, itemID models.ItemID) (*models.Cart, error) {
	return f.mutate(ctx, mutation{
		name:     OpRemove,
		fallback: msgRemoveFailed,
		optimistic: func(c *models.Cart) {
			kept := c.Items[:0]
			for _, item := range c.Items {
				if item.ID != itemID {
					kept = append(kept, item)
				}
			}
			c.Items = kept
		},
		perform: func(ctx context.Context) (*models.Cart, error) {
			return f.adapter.Remove(ctx, itemID)
		},
		onSuccess: func(result *models.Cart) {
			f.cache.Set(result)
			f.notifier.Success(msgRemoved)
		},
		refetchOnSettle: true,
	})
}

// Clear 清空购物车，成功后缓存替换为空购物车
func (f *Facade) Clear(ctx context.Context) (*models.Cart, error) {
	return f.mutate(ctx, mutation{
		name:     OpClear,
		fallback: msgClearFailed,
		perform: func(ctx context.Context) (*models.Cart, error) {
			return f.adapter.Clear(ctx)
		},
		onSuccess: func(*models.Cart) {
			f.cache.Set(models.EmptyCart())
			f.notifier.Success(msgCleared)
		},
	})
}

// Merge 合并游客购物车，成功后使缓存失效
func (f *Facade) Merge(ctx context.Context) (*models.Cart, error) {
	return f.mutate(ctx, mutation{
		name:     OpMerge,
		fallback: msgMergeFailed,
		perform: func(ctx context.Context) (*models.Cart, error) {
			return f.adapter.Merge(ctx)
		},
		onSuccess: func(*models.Cart) {
			f.cache.Invalidate()
		},
	})
}

// Close 卸载：取消待触发的自动关闭，之后的加购不再计时
func (f *Facade) Close() {
	f.drawerMu.Lock()
	defer f.drawerMu.Unlock()
	f.cancelAutoCloseLocked()
	f.unmounted = true
}

// ErrorMessage 用户可读错误文案
func ErrorMessage(err error, fallback string) string {
	switch {
	case errors.Is(err, cart.ErrItemNotFound):
		return "Cart item not found"
	case errors.Is(err, cart.ErrInvalidQuantity):
		return "Quantity must be at least 1"
	case errors.Is(err, cart.ErrNotAuthenticated):
		return "Please log in to merge your cart"
	}
	return apiclient.MessageOf(err, fallback)
}
