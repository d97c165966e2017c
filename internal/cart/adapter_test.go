package cart

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dujiao-next/storefront/internal/apiclient"
	"github.com/dujiao-next/storefront/internal/auth"
	"github.com/dujiao-next/storefront/internal/clock/clocktest"
	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/models"
	"github.com/dujiao-next/storefront/internal/storage"

	"github.com/gin-gonic/gin"
)

type cartBackend struct {
	mergeCalls atomic.Int32
	addCalls   atomic.Int32
	mergeFail  bool
	lastMerge  models.MergeRequest
	lastUpdate map[string]interface{}
}

func (b *cartBackend) engine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	serverCart := gin.H{
		"items": []gin.H{{
			"id":           11,
			"product":      gin.H{"id": 1, "name": "p", "price": "10.00", "stock": 9},
			"quantity":     2,
			"price_at_add": "10.00",
		}},
		"shipping_fee": "5.00",
		"total_amount": "25.00",
	}
	r.GET("/api/v1/cart", func(c *gin.Context) {
		c.JSON(http.StatusOK, serverCart)
	})
	r.POST("/api/v1/cart/add_item/", func(c *gin.Context) {
		b.addCalls.Add(1)
		c.JSON(http.StatusOK, gin.H{})
	})
	r.POST("/api/v1/cart/update_quantity/", func(c *gin.Context) {
		_ = c.ShouldBindJSON(&b.lastUpdate)
		c.JSON(http.StatusOK, gin.H{})
	})
	r.POST("/api/v1/cart/merge/", func(c *gin.Context) {
		b.mergeCalls.Add(1)
		if b.mergeFail {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Merge rejected"})
			return
		}
		_ = c.ShouldBindJSON(&b.lastMerge)
		c.JSON(http.StatusOK, serverCart)
	})
	return r
}

func setupAdapter(t *testing.T, backend *cartBackend) (*Adapter, *auth.TokenStore, *LocalCartStore) {
	t.Helper()
	srv := httptest.NewServer(backend.engine())
	t.Cleanup(srv.Close)

	store := storage.NewMemoryStore()
	tokens := auth.NewTokenStore(store)
	client := apiclient.New(apiclient.Options{BaseURL: srv.URL, Timeout: 5 * time.Second, Tokens: tokens})
	server := NewServerCartStore(client)
	local := NewLocalCartStore(LocalOptions{
		Store:  store,
		Clock:  clocktest.NewFake(time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)),
		Logger: logger.S(),
	})
	adapter := NewAdapter(server, local, tokens.IsAuthenticated, logger.S())
	return adapter, tokens, local
}

func TestAdapterSelectsStoreByAuth(t *testing.T) {
	backend := &cartBackend{}
	adapter, tokens, _ := setupAdapter(t, backend)
	ctx := context.Background()

	guest, err := adapter.Add(ctx, 7, 1, product(7, "4"))
	if err != nil || len(guest.Items) != 1 || guest.Items[0].Product.ID != 7 {
		t.Fatalf("guest add failed: %+v err=%v", guest, err)
	}

	_ = tokens.Save(ctx, auth.TokenPair{Access: "a", Refresh: "r"})
	cart, err := adapter.Fetch(ctx)
	if err != nil {
		t.Fatalf("server fetch failed: %v", err)
	}
	if cart.Items[0].ID != "11" || !cart.ShippingFee.Equal(models.MustMoney("5")) {
		t.Fatalf("server cart should be returned verbatim: %+v", cart)
	}

	cart, err = adapter.Update(ctx, "11", 3)
	if err != nil || len(cart.Items) != 1 {
		t.Fatalf("server update failed: %+v err=%v", cart, err)
	}
	if backend.lastUpdate["item_id"] != float64(11) || backend.lastUpdate["quantity"] != float64(3) {
		t.Fatalf("unexpected update payload: %+v", backend.lastUpdate)
	}
}

func TestAdapterRejectsInvalidAddQuantity(t *testing.T) {
	backend := &cartBackend{}
	adapter, tokens, local := setupAdapter(t, backend)
	ctx := context.Background()

	if _, err := adapter.Add(ctx, 7, 0, product(7, "4")); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("guest add with zero quantity: want ErrInvalidQuantity got %v", err)
	}
	if len(local.Items(ctx)) != 0 {
		t.Fatalf("guest cart should stay empty")
	}

	_ = tokens.Save(ctx, auth.TokenPair{Access: "a", Refresh: "r"})
	if _, err := adapter.Add(ctx, 7, -1, product(7, "4")); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("server add with negative quantity: want ErrInvalidQuantity got %v", err)
	}
	if backend.addCalls.Load() != 0 {
		t.Fatalf("add endpoint should not be called, calls=%d", backend.addCalls.Load())
	}

	if _, err := adapter.Add(ctx, 7, 2, product(7, "4")); err != nil {
		t.Fatalf("server add failed: %v", err)
	}
	if backend.addCalls.Load() != 1 {
		t.Fatalf("want one add call got %d", backend.addCalls.Load())
	}
}

func TestMergeWithEmptyGuestCartSkipsNetwork(t *testing.T) {
	backend := &cartBackend{}
	adapter, tokens, _ := setupAdapter(t, backend)
	ctx := context.Background()
	_ = tokens.Save(ctx, auth.TokenPair{Access: "a", Refresh: "r"})

	cart, err := adapter.Merge(ctx)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if backend.mergeCalls.Load() != 0 {
		t.Fatalf("merge endpoint should not be called")
	}
	if len(cart.Items) != 1 || cart.Items[0].ID != "11" {
		t.Fatalf("should return current server cart: %+v", cart)
	}
}

func TestMergeRequiresAuth(t *testing.T) {
	adapter, _, _ := setupAdapter(t, &cartBackend{})
	if _, err := adapter.Merge(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("want ErrNotAuthenticated got %v", err)
	}
}

func TestMergeClearsGuestOnlyOnSuccess(t *testing.T) {
	backend := &cartBackend{mergeFail: true}
	adapter, tokens, local := setupAdapter(t, backend)
	ctx := context.Background()

	_, _ = adapter.Add(ctx, 1, 2, product(1, "10"))
	_ = tokens.Save(ctx, auth.TokenPair{Access: "a", Refresh: "r"})

	_, err := adapter.Merge(ctx)
	if apiclient.MessageOf(err, "") != "Merge rejected" {
		t.Fatalf("want Merge rejected got %v", err)
	}
	if len(local.Items(ctx)) != 1 {
		t.Fatalf("guest cart must survive a failed merge")
	}

	backend.mergeFail = false
	if _, err := adapter.Merge(ctx); err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if len(local.Items(ctx)) != 0 {
		t.Fatalf("guest cart should be cleared after merge")
	}
	if backend.lastMerge.SessionID == "" || len(backend.lastMerge.Items) != 1 {
		t.Fatalf("unexpected merge payload: %+v", backend.lastMerge)
	}
	if item := backend.lastMerge.Items[0]; item.ProductID != 1 || item.Quantity != 2 || !item.PriceAtAdd.Equal(models.MustMoney("10")) {
		t.Fatalf("unexpected merge item: %+v", item)
	}
}
