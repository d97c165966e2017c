package cart

import (
	"context"

	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/models"

	"go.uber.org/zap"
)

// AuthPredicate 判断当前是否已登录
type AuthPredicate func(ctx context.Context) bool

// Adapter 按登录状态在服务端与游客购物车之间切换
type Adapter struct {
	server          *ServerCartStore
	local           *LocalCartStore
	isAuthenticated AuthPredicate
	log             *zap.SugaredLogger
}

// NewAdapter 创建购物车适配器
func NewAdapter(server *ServerCartStore, local *LocalCartStore, isAuthenticated AuthPredicate, log *zap.SugaredLogger) *Adapter {
	if log == nil {
		log = logger.Named("cart")
	}
	return &Adapter{
		server:          server,
		local:           local,
		isAuthenticated: isAuthenticated,
		log:             log,
	}
}

// Authenticated 当前是否已登录
func (a *Adapter) Authenticated(ctx context.Context) bool {
	return a.isAuthenticated != nil && a.isAuthenticated(ctx)
}

func (a *Adapter) storeFor(ctx context.Context) CartStore {
	if a.Authenticated(ctx) {
		return a.server
	}
	return a.local
}

// Fetch 获取购物车
func (a *Adapter) Fetch(ctx context.Context) (*models.Cart, error) {
	return a.storeFor(ctx).Fetch(ctx)
}

// Add 加入购物车
func (a *Adapter) Add(ctx context.Context, productID uint, quantity int, product models.ProductSnapshot) (*models.Cart, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	return a.storeFor(ctx).Add(ctx, productID, quantity, product)
}

// Update 修改数量
func (a *Adapter) Update(ctx context.Context, itemID models.ItemID, quantity int) (*models.Cart, error) {
	return a.storeFor(ctx).Update(ctx, itemID, quantity)
}

// Remove 移除购物车项
func (a *Adapter) Remove(ctx context.Context, itemID models.ItemID) (*models.Cart, error) {
	return a.storeFor(ctx).Remove(ctx, itemID)
}

// Clear 清空购物车
func (a *Adapter) Clear(ctx context.Context) (*models.Cart, error) {
	return a.storeFor(ctx).Clear(ctx)
}

// Merge 登录后合并游客购物车；失败时保留游客购物车以便重试
func (a *Adapter) Merge(ctx context.Context) (*models.Cart, error) {
	if !a.Authenticated(ctx) {
		return nil, ErrNotAuthenticated
	}
	items := a.local.Items(ctx)
	if len(items) == 0 {
		return a.server.Fetch(ctx)
	}

	req := models.MergeRequest{
		SessionID: a.local.SessionID(ctx),
		Items:     make([]models.MergeItem, 0, len(items)),
	}
	for _, item := range items {
		req.Items = append(req.Items, models.MergeItem{
			ProductID:  item.Product.ID,
			Quantity:   item.Quantity,
			PriceAtAdd: item.PriceAtAdd,
		})
	}
	cart, err := a.server.Merge(ctx, req)
	if err != nil {
		a.log.Warnw("guest_cart_merge_failed", "items", len(items), "error", err)
		return nil, err
	}
	a.local.Discard(ctx)
	a.log.Infow("guest_cart_merged", "items", len(items))
	return cart, nil
}
