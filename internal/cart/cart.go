// Package cart 购物车持久化适配：登录用户走服务端购物车，游客走本地存储。
package cart

import (
	"context"
	"errors"

	"github.com/dujiao-next/storefront/internal/models"
)

var (
	ErrItemNotFound     = errors.New("cart item not found")
	ErrInvalidQuantity  = errors.New("quantity must be at least 1")
	ErrNotAuthenticated = errors.New("login required to merge cart")
)

// CartStore 购物车存储能力
type CartStore interface {
	Fetch(ctx context.Context) (*models.Cart, error)
	Add(ctx context.Context, productID uint, quantity int, product models.ProductSnapshot) (*models.Cart, error)
	Update(ctx context.Context, itemID models.ItemID, quantity int) (*models.Cart, error)
	Remove(ctx context.Context, itemID models.ItemID) (*models.Cart, error)
	Clear(ctx context.Context) (*models.Cart, error)
}

// GuestSyncer 游客购物车实时校验
type GuestSyncer interface {
	SyncGuest(ctx context.Context, req models.GuestSyncRequest) (*models.GuestSyncResponse, error)
}
