package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestUnmarshalDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Unmarshal(v)
	if err != nil {
		t.Fatalf("unmarshal defaults failed: %v", err)
	}
	if cfg.Cart.AutoCloseDelay() != 3*time.Second {
		t.Fatalf("auto close want 3s got %s", cfg.Cart.AutoCloseDelay())
	}
	if cfg.Cart.GuestSyncInterval() != time.Hour {
		t.Fatalf("guest sync interval want 1h got %s", cfg.Cart.GuestSyncInterval())
	}
	if cfg.Cart.GuestSyncBackoff() != 5*time.Minute {
		t.Fatalf("guest sync backoff want 5m got %s", cfg.Cart.GuestSyncBackoff())
	}
	if cfg.Session.IdleTimeout() != 30*time.Minute {
		t.Fatalf("idle timeout want 30m got %s", cfg.Session.IdleTimeout())
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Fatalf("storage driver want sqlite got %s", cfg.Storage.Driver)
	}
}

func TestUnmarshalNormalizesBaseURL(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("api.base_url", " https://shop.example.com/ ")
	v.Set("storage.driver", " Redis ")

	cfg, err := Unmarshal(v)
	if err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if cfg.API.BaseURL != "https://shop.example.com" {
		t.Fatalf("base url not normalized, got: %s", cfg.API.BaseURL)
	}
	if cfg.Storage.Driver != "redis" {
		t.Fatalf("driver not normalized, got: %s", cfg.Storage.Driver)
	}
}

func TestUnmarshalRequiresBaseURL(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("api.base_url", "  ")

	_, err := Unmarshal(v)
	if err == nil || !strings.Contains(err.Error(), "api.base_url") {
		t.Fatalf("expected base_url error, got %v", err)
	}
}

func TestDurationFallbacks(t *testing.T) {
	if (APIConfig{}).Timeout() != 12*time.Second {
		t.Fatalf("api timeout fallback want 12s")
	}
	if (CartConfig{}).StaleTime() != time.Hour {
		t.Fatalf("stale time fallback want 1h")
	}
	if (CartConfig{AutoCloseMS: 500}).AutoCloseDelay() != 500*time.Millisecond {
		t.Fatalf("auto close want 500ms")
	}
}
