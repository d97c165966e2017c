package auth

import (
	"context"
	"testing"
	"time"

	"github.com/dujiao-next/storefront/internal/storage"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 7,
		"exp":     exp.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token failed: %v", err)
	}
	return signed
}

func TestTokenStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	tokens := NewTokenStore(storage.NewMemoryStore())
	if tokens.IsAuthenticated(ctx) {
		t.Fatalf("empty store should not be authenticated")
	}

	if err := tokens.Save(ctx, TokenPair{Access: "a1", Refresh: "r1"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !tokens.IsAuthenticated(ctx) {
		t.Fatalf("should be authenticated after save")
	}

	if err := tokens.Save(ctx, TokenPair{Access: "a2"}); err != nil {
		t.Fatalf("save rotated access failed: %v", err)
	}
	access, _ := tokens.Access(ctx)
	refresh, _ := tokens.Refresh(ctx)
	if access != "a2" || refresh != "r1" {
		t.Fatalf("want a2/r1 got %s/%s", access, refresh)
	}

	if err := tokens.Clear(ctx); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if tokens.IsAuthenticated(ctx) {
		t.Fatalf("should not be authenticated after clear")
	}
}

func TestExpiresAtAndExpired(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	token := signedToken(t, now.Add(time.Hour))

	exp, ok := ExpiresAt(token)
	if !ok || !exp.Equal(now.Add(time.Hour)) {
		t.Fatalf("exp want %s got %s ok=%v", now.Add(time.Hour), exp, ok)
	}
	if Expired(token, now) {
		t.Fatalf("token should still be valid")
	}
	if !Expired(token, now.Add(2*time.Hour)) {
		t.Fatalf("token should be expired")
	}
	if Expired("opaque-token", now) {
		t.Fatalf("unparseable token should not be treated as expired")
	}
	if _, ok := ExpiresAt(""); ok {
		t.Fatalf("empty token has no exp")
	}
}
