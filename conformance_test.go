package cachepool_test

import (
	"context"
	"testing"

	"github.com/goforj/cachepool"
	"github.com/goforj/cachepool/pooltest"
)

func TestMemoryPoolConformance(t *testing.T) {
	pooltest.RunPoolContract(t, func(t *testing.T, opts ...cachepool.PoolOption) *cachepool.Pool {
		return cachepool.NewMemoryPool(context.Background(), opts...)
	}, pooltest.Options{})
}

func TestFilePoolConformance(t *testing.T) {
	dir := t.TempDir()
	pooltest.RunPoolContract(t, func(t *testing.T, opts ...cachepool.PoolOption) *cachepool.Pool {
		return cachepool.NewPool(cachepool.NewFileStore(context.Background(), dir), opts...)
	}, pooltest.Options{})
}

func TestNullPoolConformance(t *testing.T) {
	pooltest.RunPoolContract(t, func(t *testing.T, opts ...cachepool.PoolOption) *cachepool.Pool {
		return cachepool.NewPool(cachepool.NewNullStore(context.Background()), opts...)
	}, pooltest.Options{NullSemantics: true})
}

func TestSQLitePoolConformance(t *testing.T) {
	dsn := "file:" + t.TempDir() + "/conformance.db"
	pooltest.RunPoolContract(t, func(t *testing.T, opts ...cachepool.PoolOption) *cachepool.Pool {
		return cachepool.NewPool(cachepool.NewSQLStore(context.Background(), "sqlite", dsn), opts...)
	}, pooltest.Options{})
}

func TestCompressedMemoryPoolConformance(t *testing.T) {
	pooltest.RunPoolContract(t, func(t *testing.T, opts ...cachepool.PoolOption) *cachepool.Pool {
		store := cachepool.NewMemoryStore(context.Background(),
			cachepool.WithCompression(cachepool.CompressionGzip))
		return cachepool.NewPool(store, opts...)
	}, pooltest.Options{})
}
