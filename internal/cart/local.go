package cart

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dujiao-next/storefront/internal/apiclient"
	"github.com/dujiao-next/storefront/internal/clock"
	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/metrics"
	"github.com/dujiao-next/storefront/internal/models"
	"github.com/dujiao-next/storefront/internal/storage"

	"go.uber.org/zap"
)

const (
	defaultSyncInterval = time.Hour
	defaultSyncBackoff  = 5 * time.Minute
)

// LocalOptions 游客购物车参数
type LocalOptions struct {
	Store        storage.Store
	Session      *GuestSession
	Syncer       GuestSyncer
	Clock        clock.Clock
	SyncInterval time.Duration
	SyncBackoff  time.Duration
	Logger       *zap.SugaredLogger
	Metrics      *metrics.CartMetrics
}

// LocalCartStore 游客购物车，保存在本地存储中
type LocalCartStore struct {
	store    storage.Store
	session  *GuestSession
	syncer   GuestSyncer
	clock    clock.Clock
	interval time.Duration
	backoff  time.Duration
	log      *zap.SugaredLogger
	metrics  *metrics.CartMetrics

	mu      sync.Mutex
	syncing bool
	retryAt time.Time
	seq     atomic.Uint64
}

// NewLocalCartStore 创建游客购物车
func NewLocalCartStore(opts LocalOptions) *LocalCartStore {
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}
	interval := opts.SyncInterval
	if interval <= 0 {
		interval = defaultSyncInterval
	}
	backoff := opts.SyncBackoff
	if backoff <= 0 {
		backoff = defaultSyncBackoff
	}
	log := opts.Logger
	if log == nil {
		log = logger.Named("guest_cart")
	}
	session := opts.Session
	if session == nil {
		session = NewGuestSession(opts.Store, log)
	}
	return &LocalCartStore{
		store:    opts.Store,
		session:  session,
		syncer:   opts.Syncer,
		clock:    clk,
		interval: interval,
		backoff:  backoff,
		log:      log,
		metrics:  opts.Metrics,
	}
}

// Fetch 读取游客购物车，超过校验间隔时先做一次尽力校验
func (l *LocalCartStore) Fetch(ctx context.Context) (*models.Cart, error) {
	return l.current(ctx), nil
}

// Add 同商品累加数量，否则以快照新增一行
func (l *LocalCartStore) Add(ctx context.Context, productID uint, quantity int, product models.ProductSnapshot) (*models.Cart, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	// 行以 productID 为准，快照中的 id 不参与匹配
	product.ID = productID

	return l.mutate(ctx, func(items []models.CartItem) ([]models.CartItem, error) {
		for idx := range items {
			if items[idx].Product.ID == productID {
				items[idx].Quantity += quantity
				return items, nil
			}
		}
		return append(items, models.CartItem{
			ID:         l.newItemID(),
			Product:    product,
			Quantity:   quantity,
			PriceAtAdd: product.UnitPrice(),
			CreatedAt:  l.clock.Now(),
		}), nil
	})
}

// Update 修改数量，数量 <= 0 视为移除
func (l *LocalCartStore) Update(ctx context.Context, itemID models.ItemID, quantity int) (*models.Cart, error) {
	return l.mutate(ctx, func(items []models.CartItem) ([]models.CartItem, error) {
		idx := indexOf(items, itemID)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
		}
		if quantity <= 0 {
			return append(items[:idx], items[idx+1:]...), nil
		}
		items[idx].Quantity = quantity
		return items, nil
	})
}

// Remove 移除购物车项
func (l *LocalCartStore) Remove(ctx context.Context, itemID models.ItemID) (*models.Cart, error) {
	return l.mutate(ctx, func(items []models.CartItem) ([]models.CartItem, error) {
		kept := items[:0]
		for _, item := range items {
			if item.ID != itemID {
				kept = append(kept, item)
			}
		}
		return kept, nil
	})
}

// Clear 删除本地购物车
func (l *LocalCartStore) Clear(ctx context.Context) (*models.Cart, error) {
	l.Discard(ctx)
	return l.current(ctx), nil
}

// Items 当前游客购物车项（不触发校验）
func (l *LocalCartStore) Items(ctx context.Context) []models.CartItem {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadItems(ctx)
}

// Discard 合并成功后丢弃游客购物车
func (l *LocalCartStore) Discard(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.discardLocked(ctx)
}

// SessionID 游客会话 ID
func (l *LocalCartStore) SessionID(ctx context.Context) string {
	return l.session.ID(ctx)
}

// mutate 持锁读改写，释放锁后再校验
func (l *LocalCartStore) mutate(ctx context.Context, apply func([]models.CartItem) ([]models.CartItem, error)) (*models.Cart, error) {
	l.mu.Lock()
	items, err := apply(l.loadItems(ctx))
	if err == nil {
		l.saveItems(ctx, items)
	}
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return l.current(ctx), nil
}

func (l *LocalCartStore) current(ctx context.Context) *models.Cart {
	l.syncIfDue(ctx)

	l.mu.Lock()
	items := l.loadItems(ctx)
	l.mu.Unlock()

	cart := &models.Cart{
		Items:       items,
		ShippingFee: models.ZeroMoney(),
	}
	cart.Recalculate()
	return cart
}

func (l *LocalCartStore) syncDue(ctx context.Context) bool {
	raw, err := storage.GetString(ctx, l.store, storage.KeyGuestCartSyncedAt)
	if err != nil {
		l.log.Warnw("guest_cart_sync_marker_load_failed", "error", err)
		return true
	}
	if raw == "" {
		return true
	}
	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return true
	}
	return l.clock.Now().Sub(time.UnixMilli(millis)) > l.interval
}

func (l *LocalCartStore) markSynced(ctx context.Context) {
	stamp := strconv.FormatInt(l.clock.Now().UnixMilli(), 10)
	if err := storage.SetString(ctx, l.store, storage.KeyGuestCartSyncedAt, stamp); err != nil {
		l.log.Warnw("guest_cart_sync_marker_save_failed", "error", err)
	}
}

// syncIfDue 按服务端实时库存与价格修正本地购物车，失败时保留原数据。
// 请求期间不持锁，同一时刻只有一次校验在途，其余调用直接读本地数据。
func (l *LocalCartStore) syncIfDue(ctx context.Context) {
	if l.syncer == nil {
		return
	}

	l.mu.Lock()
	if l.syncing || l.clock.Now().Before(l.retryAt) {
		l.mu.Unlock()
		return
	}
	items := l.loadItems(ctx)
	if len(items) == 0 || !l.syncDue(ctx) {
		l.mu.Unlock()
		return
	}
	l.syncing = true
	l.mu.Unlock()

	req := models.GuestSyncRequest{
		SessionID: l.session.ID(ctx),
		Items:     make([]models.GuestSyncItem, 0, len(items)),
	}
	for _, item := range items {
		req.Items = append(req.Items, models.GuestSyncItem{ProductID: item.Product.ID, Quantity: item.Quantity})
	}
	resp, err := l.syncer.SyncGuest(ctx, req)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.syncing = false

	if err != nil {
		if apiclient.IsNotFound(err) {
			l.log.Debugw("guest_cart_sync_unavailable", "error", err)
			l.metrics.RecordGuestSync(ctx, metrics.StatusNotFound)
			l.markSynced(ctx)
			return
		}
		l.retryAt = l.clock.Now().Add(l.backoff)
		l.log.Warnw("guest_cart_sync_failed", "error", err, "retry_at", l.retryAt)
		l.metrics.RecordGuestSync(ctx, metrics.StatusError)
		return
	}
	l.retryAt = time.Time{}

	// 请求期间本地可能已被修改，按商品 ID 应用到当前数据
	l.saveItems(ctx, applySync(l.log, l.loadItems(ctx), resp.Items))
	l.markSynced(ctx)
	l.metrics.RecordGuestSync(ctx, metrics.StatusSuccess)
}

func applySync(log *zap.SugaredLogger, items []models.CartItem, rows []models.GuestSyncResult) []models.CartItem {
	results := make(map[uint]models.GuestSyncResult, len(rows))
	for _, row := range rows {
		results[row.ProductID] = row
	}
	adjusted := make([]models.CartItem, 0, len(items))
	for _, item := range items {
		row, ok := results[item.Product.ID]
		if !ok {
			adjusted = append(adjusted, item)
			continue
		}
		if !row.Available || row.Stock <= 0 {
			log.Infow("guest_cart_item_dropped", "product_id", item.Product.ID)
			continue
		}
		if item.Quantity > row.Stock {
			item.Quantity = row.Stock
		}
		item.Product.Stock = row.Stock
		if row.Price != nil {
			item.Product.Price = *row.Price
			item.Product.DiscountPrice = row.DiscountPrice
		}
		adjusted = append(adjusted, item)
	}
	return adjusted
}

// loadItems 读取失败或数据损坏时按空购物车处理
func (l *LocalCartStore) loadItems(ctx context.Context) []models.CartItem {
	var items []models.CartItem
	if _, err := storage.GetJSON(ctx, l.store, storage.KeyGuestCart, &items); err != nil {
		l.log.Warnw("guest_cart_load_failed", "error", err)
		return []models.CartItem{}
	}
	kept := make([]models.CartItem, 0, len(items))
	for _, item := range items {
		if item.Quantity >= 1 {
			kept = append(kept, item)
		}
	}
	return kept
}

func (l *LocalCartStore) saveItems(ctx context.Context, items []models.CartItem) {
	if items == nil {
		items = []models.CartItem{}
	}
	if err := storage.SetJSON(ctx, l.store, storage.KeyGuestCart, items); err != nil {
		l.log.Warnw("guest_cart_save_failed", "error", err)
	}
}

func (l *LocalCartStore) discardLocked(ctx context.Context) {
	if err := l.store.Remove(ctx, storage.KeyGuestCart); err != nil {
		l.log.Warnw("guest_cart_clear_failed", "error", err)
	}
}

// newItemID 时间戳 + 序号，保证同一毫秒内唯一
func (l *LocalCartStore) newItemID() models.ItemID {
	seq := l.seq.Add(1)
	return models.ItemID("guest-" + strconv.FormatInt(l.clock.Now().UnixMilli(), 10) + "-" + strconv.FormatUint(seq, 10))
}

func indexOf(items []models.CartItem, id models.ItemID) int {
	for idx, item := range items {
		if item.ID == id {
			return idx
		}
	}
	return -1
}
