package cachepool

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newSQLiteTestStore(t *testing.T, prefix string) Store {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "cache.db")
	store, err := newSQLStore(StoreConfig{
		Driver:        DriverSQL,
		SQLDriverName: "sqlite",
		SQLDSN:        dsn,
		SQLTable:      "cache_entries",
		Prefix:        prefix,
	})
	if err != nil {
		t.Fatalf("sqlite store create failed: %v", err)
	}
	return store
}

func TestSQLStoreRoundTrip(t *testing.T) {
	store := newSQLiteTestStore(t, "p")
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected miss: ok=%v err=%v", ok, err)
	}
	if err := store.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	body, ok, err := store.Get(ctx, "k")
	if err != nil || !ok || string(body) != "v" {
		t.Fatalf("unexpected get: ok=%v body=%q err=%v", ok, body, err)
	}
	// Upsert replaces the value in place.
	if err := store.Set(ctx, "k", []byte("v2"), time.Minute); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if body, _, _ := store.Get(ctx, "k"); string(body) != "v2" {
		t.Fatalf("expected replaced value, got %q", body)
	}
	if store.Driver() != DriverSQL {
		t.Fatalf("unexpected driver %q", store.Driver())
	}
}

func TestSQLStoreZeroTTLNeverExpires(t *testing.T) {
	store := newSQLiteTestStore(t, "p")
	ctx := context.Background()
	if err := store.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if _, ok, err := store.Get(ctx, "k"); err != nil || !ok {
		t.Fatalf("expected unexpiring row retained: ok=%v err=%v", ok, err)
	}
}

func TestSQLStoreTTLExpires(t *testing.T) {
	store := newSQLiteTestStore(t, "p")
	ctx := context.Background()
	if err := store.Set(ctx, "k", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if _, ok, err := store.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("expected expiry: ok=%v err=%v", ok, err)
	}
	// The expired row is deleted on read.
	var n int
	s := store.(*sqlStore)
	if err := s.db.QueryRow("SELECT COUNT(*) FROM cache_entries").Scan(&n); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("expired row left behind: %d", n)
	}
}

func TestSQLStoreDeleteAndFlush(t *testing.T) {
	store := newSQLiteTestStore(t, "p")
	ctx := context.Background()
	for _, k := range []string{"a", "b", "c"} {
		if err := store.Set(ctx, k, []byte(k), 0); err != nil {
			t.Fatalf("set failed: %v", err)
		}
	}
	if err := store.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := store.DeleteMany(ctx, "b", "ghost"); err != nil {
		t.Fatalf("delete many failed: %v", err)
	}
	if err := store.DeleteMany(ctx); err != nil {
		t.Fatalf("empty delete many failed: %v", err)
	}
	for _, k := range []string{"a", "b"} {
		if _, ok, _ := store.Get(ctx, k); ok {
			t.Fatalf("expected %q deleted", k)
		}
	}
	if err := store.Flush(ctx); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "c"); ok {
		t.Fatalf("expected flush to clear c")
	}
}

func TestSQLStoreFlushRespectsPrefix(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "cache.db")
	newStore := func(prefix string) Store {
		store, err := newSQLStore(StoreConfig{
			SQLDriverName: "sqlite",
			SQLDSN:        dsn,
			SQLTable:      "cache_entries",
			Prefix:        prefix,
		})
		if err != nil {
			t.Fatalf("store create failed: %v", err)
		}
		return store
	}
	ctx := context.Background()
	mine := newStore("mine")
	other := newStore("other")
	if err := mine.Set(ctx, "k", []byte("1"), 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := other.Set(ctx, "k", []byte("2"), 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := mine.Flush(ctx); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	if _, ok, _ := mine.Get(ctx, "k"); ok {
		t.Fatalf("expected own scope flushed")
	}
	if _, ok, err := other.Get(ctx, "k"); err != nil || !ok {
		t.Fatalf("expected other scope retained: ok=%v err=%v", ok, err)
	}
}

func TestSQLStoreRejectsBadConfig(t *testing.T) {
	if _, err := newSQLStore(StoreConfig{}); err == nil {
		t.Fatalf("expected error without driver name and dsn")
	}
	if err := validateSQLTableName("cache_entries"); err != nil {
		t.Fatalf("expected valid table name: %v", err)
	}
	if err := validateSQLTableName("app.cache_entries"); err != nil {
		t.Fatalf("expected schema-qualified name accepted: %v", err)
	}
	for _, bad := range []string{"", " ", "cache;drop", "1bad", "a-b"} {
		if err := validateSQLTableName(bad); err == nil {
			t.Fatalf("expected %q rejected", bad)
		}
	}
}
