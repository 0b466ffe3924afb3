package health

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/config"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/kvstore"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/metrics"
)

func TestCollectDegradedWithoutProviders(t *testing.T) {
	cfg := &config.Config{
		Store: config.StoreConfig{Enabled: false},
	}

	resp := Collect(context.Background(), cfg, nil, nil, false)
	if resp.Status != "degraded" {
		t.Fatalf("expected degraded status, got %s", resp.Status)
	}
	if resp.Components["store"].Status != "ok" {
		t.Fatalf("expected store ok with store disabled, got %s", resp.Components["store"].Status)
	}
	if resp.Components["providers"].Status != "degraded" {
		t.Fatalf("expected providers degraded without entries")
	}
}

func TestCollectDeepCheckPingsStore(t *testing.T) {
	mini := miniredis.RunT(t)
	cfg := &config.Config{
		Store: config.StoreConfig{
			URL:                 "redis://" + mini.Addr(),
			Enabled:             true,
			DisableCache:        true,
			ConnectMaxAttempts:  1,
			ConnectRetrySeconds: 0,
		},
		Providers: config.ProvidersConfig{
			Entries: []config.ProviderEntry{{Name: "groq", Kind: "openai", APIKey: "k"}},
		},
	}

	store, err := kvstore.NewStore(cfg, nil)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	resp := Collect(context.Background(), cfg, store, metrics.NewStore(), true)
	if resp.Status != "ok" {
		t.Fatalf("expected ok status, got %s (%+v)", resp.Status, resp.Components)
	}
	if resp.Components["store"].Detail["store_connected"] != true {
		t.Fatalf("expected store connected after deep check")
	}
}
