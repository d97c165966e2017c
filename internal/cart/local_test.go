package cart

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dujiao-next/storefront/internal/apiclient"
	"github.com/dujiao-next/storefront/internal/clock/clocktest"
	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/models"
	"github.com/dujiao-next/storefront/internal/storage"
)

type stubSyncer struct {
	calls int
	last  models.GuestSyncRequest
	resp  *models.GuestSyncResponse
	err   error
}

func (s *stubSyncer) SyncGuest(_ context.Context, req models.GuestSyncRequest) (*models.GuestSyncResponse, error) {
	s.calls++
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	if s.resp == nil {
		return &models.GuestSyncResponse{}, nil
	}
	return s.resp, nil
}

func moneyPtr(raw string) *models.Money {
	m := models.MustMoney(raw)
	return &m
}

func setupLocal(t *testing.T, syncer GuestSyncer) (*LocalCartStore, *clocktest.Fake, storage.Store) {
	t.Helper()
	store := storage.NewMemoryStore()
	clk := clocktest.NewFake(time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))
	local := NewLocalCartStore(LocalOptions{
		Store:        store,
		Syncer:       syncer,
		Clock:        clk,
		SyncInterval: time.Hour,
		Logger:       logger.S(),
	})
	return local, clk, store
}

func product(id uint, price string) models.ProductSnapshot {
	return models.ProductSnapshot{ID: id, Name: "p", Price: models.MustMoney(price), Stock: 100}
}

func TestGuestAddSameProductAccumulates(t *testing.T) {
	local, _, _ := setupLocal(t, nil)
	ctx := context.Background()

	total := 0
	for _, qty := range []int{1, 4, 2, 7} {
		if _, err := local.Add(ctx, 3, qty, product(3, "5")); err != nil {
			t.Fatalf("add failed: %v", err)
		}
		total += qty
	}
	cart, _ := local.Fetch(ctx)
	if len(cart.Items) != 1 {
		t.Fatalf("want one row got %d", len(cart.Items))
	}
	if cart.Items[0].Quantity != total {
		t.Fatalf("want quantity %d got %d", total, cart.Items[0].Quantity)
	}
}

func TestGuestAddKeysRowsByProductID(t *testing.T) {
	local, _, _ := setupLocal(t, nil)
	ctx := context.Background()

	snap := product(7, "5")
	if _, err := local.Add(ctx, 5, 1, snap); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	cart, err := local.Add(ctx, 5, 2, snap)
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if len(cart.Items) != 1 {
		t.Fatalf("want one row got %d", len(cart.Items))
	}
	if cart.Items[0].Product.ID != 5 || cart.Items[0].Quantity != 3 {
		t.Fatalf("row should follow product_id: %+v", cart.Items[0])
	}
}

func TestGuestAddIncrementScenario(t *testing.T) {
	local, _, _ := setupLocal(t, nil)
	ctx := context.Background()

	if _, err := local.Add(ctx, 1, 2, product(1, "10")); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	cart, err := local.Add(ctx, 1, 3, product(1, "10"))
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if cart.Items[0].Quantity != 5 {
		t.Fatalf("want quantity 5 got %d", cart.Items[0].Quantity)
	}
	if !cart.Subtotal().Equal(models.MustMoney("50")) || !cart.TotalAmount.Equal(models.MustMoney("50")) {
		t.Fatalf("want subtotal 50 got %s / %s", cart.Subtotal(), cart.TotalAmount)
	}
	if !cart.ShippingFee.Equal(models.ZeroMoney()) {
		t.Fatalf("guest shipping should be zero got %s", cart.ShippingFee)
	}
}

func TestGuestAddUsesDiscountPrice(t *testing.T) {
	local, _, _ := setupLocal(t, nil)
	ctx := context.Background()

	snap := product(2, "20")
	snap.DiscountPrice = moneyPtr("15")
	cart, err := local.Add(ctx, 2, 1, snap)
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if !cart.Items[0].PriceAtAdd.Equal(models.MustMoney("15")) {
		t.Fatalf("want price_at_add 15 got %s", cart.Items[0].PriceAtAdd)
	}
	if _, err := local.Add(ctx, 2, 0, snap); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("want ErrInvalidQuantity got %v", err)
	}
}

func TestGuestUpdateQuantity(t *testing.T) {
	local, _, _ := setupLocal(t, nil)
	ctx := context.Background()

	cart, _ := local.Add(ctx, 1, 2, product(1, "10"))
	cart, _ = local.Add(ctx, 2, 1, product(2, "3"))
	first, second := cart.Items[0].ID, cart.Items[1].ID
	if first == second {
		t.Fatalf("item ids should be unique")
	}

	cart, err := local.Update(ctx, first, 9)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if cart.Items[cart.FindByID(first)].Quantity != 9 {
		t.Fatalf("want quantity 9")
	}

	for _, qty := range []int{0, -3} {
		cart, err = local.Update(ctx, second, qty)
		if qty == 0 && err != nil {
			t.Fatalf("update to zero failed: %v", err)
		}
		if qty == -3 && !errors.Is(err, ErrItemNotFound) {
			t.Fatalf("removed row should be not found got %v", err)
		}
	}
	cart, _ = local.Fetch(ctx)
	if len(cart.Items) != 1 || cart.FindByID(second) >= 0 {
		t.Fatalf("row with quantity <= 0 should be removed: %+v", cart.Items)
	}
	for _, item := range cart.Items {
		if item.Quantity <= 0 {
			t.Fatalf("cart must never hold quantity <= 0")
		}
	}

	if _, err := local.Update(ctx, "missing", 1); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("want ErrItemNotFound got %v", err)
	}
}

func TestGuestRemoveAndClear(t *testing.T) {
	local, _, store := setupLocal(t, nil)
	ctx := context.Background()

	cart, _ := local.Add(ctx, 1, 1, product(1, "10"))
	_, _ = local.Add(ctx, 2, 1, product(2, "10"))
	cart, err := local.Remove(ctx, cart.Items[0].ID)
	if err != nil || len(cart.Items) != 1 || cart.Items[0].Product.ID != 2 {
		t.Fatalf("remove failed: %+v err=%v", cart, err)
	}

	cart, err = local.Clear(ctx)
	if err != nil || len(cart.Items) != 0 {
		t.Fatalf("clear failed: %+v err=%v", cart, err)
	}
	if _, ok, _ := store.Get(ctx, storage.KeyGuestCart); ok {
		t.Fatalf("clear should delete the storage key")
	}
}

func TestGuestSubtotalIgnoresLivePrice(t *testing.T) {
	syncer := &stubSyncer{resp: &models.GuestSyncResponse{Items: []models.GuestSyncResult{
		{ProductID: 1, Available: true, Stock: 50, Price: moneyPtr("99")},
	}}}
	local, _, _ := setupLocal(t, syncer)
	ctx := context.Background()

	cart, _ := local.Add(ctx, 1, 2, product(1, "10"))
	if syncer.calls != 1 {
		t.Fatalf("first read should validate, calls=%d", syncer.calls)
	}
	if !cart.Items[0].Product.Price.Equal(models.MustMoney("99")) {
		t.Fatalf("live price should be refreshed got %s", cart.Items[0].Product.Price)
	}
	if !cart.Subtotal().Equal(models.MustMoney("20")) {
		t.Fatalf("subtotal must use price_at_add, got %s", cart.Subtotal())
	}
}

func TestGuestSyncDropsAndClamps(t *testing.T) {
	syncer := &stubSyncer{}
	local, clk, _ := setupLocal(t, syncer)
	ctx := context.Background()

	_, _ = local.Add(ctx, 1, 5, product(1, "10"))
	_, _ = local.Add(ctx, 2, 1, product(2, "10"))
	_, _ = local.Add(ctx, 3, 1, product(3, "10"))
	_, _ = local.Add(ctx, 4, 1, product(4, "10"))
	if syncer.calls != 1 {
		t.Fatalf("sync should run once within interval, calls=%d", syncer.calls)
	}

	syncer.resp = &models.GuestSyncResponse{Items: []models.GuestSyncResult{
		{ProductID: 1, Available: true, Stock: 3},
		{ProductID: 2, Available: false, Stock: 10},
		{ProductID: 3, Available: true, Stock: 0},
	}}
	clk.Advance(time.Hour + time.Second)

	cart, _ := local.Fetch(ctx)
	if syncer.calls != 2 {
		t.Fatalf("sync should rerun after interval, calls=%d", syncer.calls)
	}
	if len(syncer.last.Items) != 4 || syncer.last.SessionID == "" {
		t.Fatalf("unexpected sync request: %+v", syncer.last)
	}
	if len(cart.Items) != 2 {
		t.Fatalf("want 2 rows after sync got %d", len(cart.Items))
	}
	if cart.Items[0].Product.ID != 1 || cart.Items[0].Quantity != 3 {
		t.Fatalf("quantity should clamp to stock: %+v", cart.Items[0])
	}
	if cart.Items[1].Product.ID != 4 {
		t.Fatalf("unreported rows are kept: %+v", cart.Items[1])
	}

	again, _ := local.Fetch(ctx)
	if len(again.Items) != 2 || syncer.calls != 2 {
		t.Fatalf("adjusted cart should be persisted without a new sync")
	}
}

func TestGuestSyncFailureKeepsLocalItems(t *testing.T) {
	syncer := &stubSyncer{err: &apiclient.APIError{Status: 500, Message: "boom"}}
	local, clk, _ := setupLocal(t, syncer)
	ctx := context.Background()

	cart, err := local.Add(ctx, 1, 2, product(1, "10"))
	if err != nil || len(cart.Items) != 1 {
		t.Fatalf("sync failure must not block add: %+v err=%v", cart, err)
	}
	_, _ = local.Fetch(ctx)
	_, _ = local.Update(ctx, cart.Items[0].ID, 3)
	if syncer.calls != 1 {
		t.Fatalf("failed sync should wait for backoff, calls=%d", syncer.calls)
	}

	clk.Advance(defaultSyncBackoff + time.Second)
	_, _ = local.Fetch(ctx)
	if syncer.calls != 2 {
		t.Fatalf("sync should retry after backoff, calls=%d", syncer.calls)
	}

	syncer.err = &apiclient.APIError{Status: 404, Message: "Not found"}
	clk.Advance(defaultSyncBackoff + time.Second)
	_, _ = local.Fetch(ctx)
	_, _ = local.Fetch(ctx)
	if syncer.calls != 3 {
		t.Fatalf("404 should mark the cart as synced, calls=%d", syncer.calls)
	}
	clk.Advance(2 * time.Hour)
	cart, _ = local.Fetch(ctx)
	if syncer.calls != 4 {
		t.Fatalf("sync should rerun after interval, calls=%d", syncer.calls)
	}
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 3 {
		t.Fatalf("local items must survive failed syncs: %+v", cart.Items)
	}
}

type blockingSyncer struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (s *blockingSyncer) SyncGuest(ctx context.Context, _ models.GuestSyncRequest) (*models.GuestSyncResponse, error) {
	s.calls.Add(1)
	select {
	case s.started <- struct{}{}:
	default:
	}
	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &models.GuestSyncResponse{Items: []models.GuestSyncResult{
		{ProductID: 1, Available: true, Stock: 1},
	}}, nil
}

func TestGuestSyncDoesNotBlockOtherOperations(t *testing.T) {
	syncer := &blockingSyncer{started: make(chan struct{}, 1), release: make(chan struct{})}
	local, _, _ := setupLocal(t, syncer)
	ctx := context.Background()

	first := make(chan *models.Cart, 1)
	go func() {
		cart, _ := local.Add(ctx, 1, 4, product(1, "10"))
		first <- cart
	}()
	select {
	case <-syncer.started:
	case <-time.After(2 * time.Second):
		t.Fatal("sync did not start")
	}

	second := make(chan *models.Cart, 1)
	go func() {
		_, _ = local.Fetch(ctx)
		cart, _ := local.Add(ctx, 2, 1, product(2, "10"))
		second <- cart
	}()
	var during *models.Cart
	select {
	case during = <-second:
	case <-time.After(2 * time.Second):
		close(syncer.release)
		t.Fatal("guest operations waited for the in-flight sync")
	}
	if len(during.Items) != 2 {
		t.Fatalf("want 2 rows while syncing got %d", len(during.Items))
	}

	close(syncer.release)
	<-first
	if calls := syncer.calls.Load(); calls != 1 {
		t.Fatalf("concurrent reads should share one sync, calls=%d", calls)
	}
	items := local.Items(ctx)
	if len(items) != 2 {
		t.Fatalf("rows added during sync must be kept: %+v", items)
	}
	if items[0].Product.ID != 1 || items[0].Quantity != 1 {
		t.Fatalf("sync result should apply to current rows: %+v", items[0])
	}
}

func TestGuestCorruptStorageReadsEmpty(t *testing.T) {
	local, _, store := setupLocal(t, nil)
	ctx := context.Background()

	if err := store.Set(ctx, storage.KeyGuestCart, []byte("{broken")); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	cart, err := local.Fetch(ctx)
	if err != nil || len(cart.Items) != 0 {
		t.Fatalf("corrupt cart should read as empty: %+v err=%v", cart, err)
	}
	cart, err = local.Add(ctx, 1, 1, product(1, "10"))
	if err != nil || len(cart.Items) != 1 {
		t.Fatalf("add after corruption failed: %+v err=%v", cart, err)
	}
}

func TestGuestSessionPersists(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()

	first := NewGuestSession(store, logger.S()).ID(ctx)
	second := NewGuestSession(store, logger.S()).ID(ctx)
	if first == "" || first != second {
		t.Fatalf("session id should persist: %q vs %q", first, second)
	}
}
