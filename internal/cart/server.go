package cart

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dujiao-next/storefront/internal/apiclient"
	"github.com/dujiao-next/storefront/internal/models"
)

// 服务端失败兜底文案
const (
	msgFetchFailed  = "Failed to fetch cart"
	msgAddFailed    = "Failed to add item to cart"
	msgUpdateFailed = "Failed to update cart item"
	msgRemoveFailed = "Failed to remove item from cart"
	msgClearFailed  = "Failed to clear cart"
	msgMergeFailed  = "Failed to merge cart"
	msgSyncFailed   = "Failed to sync guest cart"
)

// ServerCartStore 登录用户的服务端购物车
type ServerCartStore struct {
	client *apiclient.Client
}

// NewServerCartStore 创建服务端购物车
func NewServerCartStore(client *apiclient.Client) *ServerCartStore {
	return &ServerCartStore{client: client}
}

// Fetch 获取购物车
func (s *ServerCartStore) Fetch(ctx context.Context) (*models.Cart, error) {
	var cart models.Cart
	if err := s.client.Do(ctx, apiclient.Request{
		Method:   http.MethodGet,
		Path:     apiclient.PathCart,
		Out:      &cart,
		Fallback: msgFetchFailed,
	}); err != nil {
		return nil, err
	}
	cart.Items = normalizeItems(cart.Items)
	return &cart, nil
}

// Add 加入购物车
func (s *ServerCartStore) Add(ctx context.Context, productID uint, quantity int, _ models.ProductSnapshot) (*models.Cart, error) {
	body := map[string]interface{}{"product_id": productID, "quantity": quantity}
	return s.mutate(ctx, apiclient.PathCartAddItem, body, msgAddFailed)
}

// Update 修改数量
func (s *ServerCartStore) Update(ctx context.Context, itemID models.ItemID, quantity int) (*models.Cart, error) {
	body := map[string]interface{}{"item_id": itemIDPayload(itemID), "quantity": quantity}
	return s.mutate(ctx, apiclient.PathCartUpdateQty, body, msgUpdateFailed)
}

// Remove 移除购物车项
func (s *ServerCartStore) Remove(ctx context.Context, itemID models.ItemID) (*models.Cart, error) {
	body := map[string]interface{}{"item_id": itemIDPayload(itemID)}
	return s.mutate(ctx, apiclient.PathCartRemoveItem, body, msgRemoveFailed)
}

// Clear 清空购物车
func (s *ServerCartStore) Clear(ctx context.Context) (*models.Cart, error) {
	return s.mutate(ctx, apiclient.PathCartClear, nil, msgClearFailed)
}

// Merge 将游客购物车合并到当前用户
func (s *ServerCartStore) Merge(ctx context.Context, req models.MergeRequest) (*models.Cart, error) {
	return s.mutate(ctx, apiclient.PathCartMerge, req, msgMergeFailed)
}

// SyncGuest 校验游客购物车商品的库存与价格
func (s *ServerCartStore) SyncGuest(ctx context.Context, req models.GuestSyncRequest) (*models.GuestSyncResponse, error) {
	var resp models.GuestSyncResponse
	if err := s.client.Do(ctx, apiclient.Request{
		Method:    http.MethodPost,
		Path:      apiclient.PathCartSyncGuest,
		Body:      req,
		Out:       &resp,
		Fallback:  msgSyncFailed,
		Anonymous: true,
	}); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *ServerCartStore) mutate(ctx context.Context, path string, body interface{}, fallback string) (*models.Cart, error) {
	var cart models.Cart
	if err := s.client.Do(ctx, apiclient.Request{
		Method:   http.MethodPost,
		Path:     path,
		Body:     body,
		Out:      &cart,
		Fallback: fallback,
	}); err != nil {
		return nil, err
	}
	// 接口未返回购物车时回读一次
	if cart.Items == nil {
		return s.Fetch(ctx)
	}
	return &cart, nil
}

func normalizeItems(items []models.CartItem) []models.CartItem {
	if items == nil {
		return []models.CartItem{}
	}
	return items
}

// itemIDPayload 服务端行 ID 为数字时按数字发送
func itemIDPayload(id models.ItemID) interface{} {
	if n, err := strconv.ParseUint(id.String(), 10, 64); err == nil {
		return n
	}
	return id.String()
}
