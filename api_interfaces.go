package cachepool

import "context"

// CoreAPI exposes basic pool metadata.
type CoreAPI interface {
	Driver() Driver
	Store() Store
}

// ReadAPI exposes read-oriented pool operations.
type ReadAPI interface {
	GetItem(key string) (*Item, error)
	GetItemCtx(ctx context.Context, key string) (*Item, error)
	GetItems(keys ...string) ([]*Item, error)
	GetItemsCtx(ctx context.Context, keys ...string) ([]*Item, error)
	HasItem(key string) (bool, error)
	HasItemCtx(ctx context.Context, key string) (bool, error)
}

// WriteAPI exposes immediate persistence and deletion operations.
type WriteAPI interface {
	Save(item *Item) error
	SaveCtx(ctx context.Context, item *Item) error
	DeleteItem(key string) error
	DeleteItemCtx(ctx context.Context, key string) error
	DeleteItems(keys ...string) error
	DeleteItemsCtx(ctx context.Context, keys ...string) error
	Clear() error
	ClearCtx(ctx context.Context) error
}

// DeferredAPI exposes the staged-write lifecycle.
type DeferredAPI interface {
	SaveDeferred(item *Item) error
	SaveDeferredCtx(ctx context.Context, item *Item) error
	Commit() error
	CommitCtx(ctx context.Context) error
	Close() error
}

// InvalidationAPI exposes tag-based bulk invalidation.
type InvalidationAPI interface {
	InvalidateTag(tag string) error
	InvalidateTags(tags ...string) error
	InvalidateTagsCtx(ctx context.Context, tags ...string) error
}

// PoolAPI is the composed application-facing interface for Pool.
type PoolAPI interface {
	CoreAPI
	ReadAPI
	WriteAPI
	DeferredAPI
	InvalidationAPI
}

var _ PoolAPI = (*Pool)(nil)
