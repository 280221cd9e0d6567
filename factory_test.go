package cachepool

import (
	"context"
	"testing"
	"time"
)

func TestNewStoreDefaultsToMemory(t *testing.T) {
	store := NewStore(context.Background(), StoreConfig{})
	if store.Driver() != DriverMemory {
		t.Fatalf("expected memory default, got %q", store.Driver())
	}
}

func TestNewStoreWithAppliesOptions(t *testing.T) {
	ctx := context.Background()
	store := NewStoreWith(ctx, DriverFile, WithFileDir(t.TempDir()))
	if store.Driver() != DriverFile {
		t.Fatalf("expected file driver, got %q", store.Driver())
	}
	if err := store.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if _, ok, err := store.Get(ctx, "k"); err != nil || !ok {
		t.Fatalf("round trip failed: ok=%v err=%v", ok, err)
	}
}

func TestNewStoreSQLFailureYieldsErrorStore(t *testing.T) {
	store := NewStore(context.Background(), StoreConfig{
		Driver:        DriverSQL,
		SQLDriverName: "",
		SQLDSN:        "",
	})
	if store.Driver() != DriverSQL {
		t.Fatalf("error store must keep the driver identity, got %q", store.Driver())
	}
	ctx := context.Background()
	if _, _, err := store.Get(ctx, "k"); err == nil {
		t.Fatalf("expected construction error surfaced on get")
	}
	if err := store.Set(ctx, "k", []byte("v"), 0); err == nil {
		t.Fatalf("expected construction error surfaced on set")
	}
	if err := store.Delete(ctx, "k"); err == nil {
		t.Fatalf("expected construction error surfaced on delete")
	}
	if err := store.DeleteMany(ctx, "k"); err == nil {
		t.Fatalf("expected construction error surfaced on delete many")
	}
	if err := store.Flush(ctx); err == nil {
		t.Fatalf("expected construction error surfaced on flush")
	}
}

func TestNewStoreInvalidEncryptionKey(t *testing.T) {
	store := NewStore(context.Background(), StoreConfig{
		EncryptionKey: []byte("short"),
	})
	if _, _, err := store.Get(context.Background(), "k"); err == nil {
		t.Fatalf("expected bad encryption key surfaced")
	}
}

func TestStoreConfigWithDefaults(t *testing.T) {
	cfg := StoreConfig{}.withDefaults()
	if cfg.Driver != DriverMemory {
		t.Fatalf("unexpected default driver %q", cfg.Driver)
	}
	if cfg.Prefix != defaultCachePrefix {
		t.Fatalf("unexpected default prefix %q", cfg.Prefix)
	}
	if cfg.MemoryCleanupInterval != defaultMemoryCleanupInterval {
		t.Fatalf("unexpected cleanup interval %v", cfg.MemoryCleanupInterval)
	}
	if cfg.SQLTable != "cache_entries" || cfg.DynamoTable != "cache_entries" {
		t.Fatalf("unexpected default tables %q %q", cfg.SQLTable, cfg.DynamoTable)
	}
	if cfg.DynamoRegion != "us-east-1" {
		t.Fatalf("unexpected default region %q", cfg.DynamoRegion)
	}

	// Explicit values survive.
	cfg = StoreConfig{Prefix: "app", MemoryCleanupInterval: time.Second}.withDefaults()
	if cfg.Prefix != "app" || cfg.MemoryCleanupInterval != time.Second {
		t.Fatalf("defaults overwrote explicit values: %+v", cfg)
	}
}

func TestNewMemoryPool(t *testing.T) {
	pool := NewMemoryPool(context.Background())
	defer pool.Close()
	if pool.Driver() != DriverMemory {
		t.Fatalf("unexpected driver %q", pool.Driver())
	}
	item, err := pool.GetItem("k")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if err := pool.Save(item.Set([]byte("v"))); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if ok, err := pool.HasItem("k"); err != nil || !ok {
		t.Fatalf("round trip failed: ok=%v err=%v", ok, err)
	}
}
