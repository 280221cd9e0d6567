package cachepool

import "context"

// NewStore returns a concrete store for the requested driver. Construction
// failures (sql, dynamo) yield an errorStore that preserves the driver
// identity and surfaces the error on every call, so callers keep a uniform
// Store value.
//
// Example: select driver explicitly
//
//	ctx := context.Background()
//	store := cachepool.NewStore(ctx, cachepool.StoreConfig{
//		Driver: cachepool.DriverMemory,
//	})
//	fmt.Println(store.Driver()) // memory
func NewStore(ctx context.Context, cfg StoreConfig) Store {
	cfg = cfg.withDefaults()
	var store Store
	switch cfg.Driver {
	case DriverRedis:
		store = newRedisStore(cfg.RedisClient, cfg.Prefix)
	case DriverSQL:
		s, err := newSQLStore(cfg)
		if err != nil {
			return &errorStore{driver: DriverSQL, err: err}
		}
		store = s
	case DriverNATS:
		store = newNATSStore(cfg.NATSKeyValue, cfg.Prefix)
	case DriverDynamo:
		s, err := newDynamoStore(ctx, cfg)
		if err != nil {
			return &errorStore{driver: DriverDynamo, err: err}
		}
		store = s
	case DriverFile:
		store = newFileStore(cfg.FileDir)
	case DriverNull:
		store = newNullStore()
	default:
		store = newMemoryStore(cfg.MemoryCleanupInterval)
	}
	store = newShapingStore(store, cfg.Compression, cfg.MaxValueSize)
	if len(cfg.EncryptionKey) > 0 {
		enc, err := newEncryptingStore(store, cfg.EncryptionKey)
		if err != nil {
			return &errorStore{driver: cfg.Driver, err: err}
		}
		store = enc
	}
	return store
}

// NewStoreWith builds a store using a driver and a set of functional options.
func NewStoreWith(ctx context.Context, driver Driver, opts ...StoreOption) Store {
	cfg := StoreConfig{Driver: driver}
	for _, opt := range opts {
		cfg = opt(cfg)
	}
	return NewStore(ctx, cfg)
}

// NewMemoryStore is a convenience for an in-process store.
//
// Example: memory helper
//
//	ctx := context.Background()
//	store := cachepool.NewMemoryStore(ctx)
//	fmt.Println(store.Driver()) // memory
func NewMemoryStore(ctx context.Context, opts ...StoreOption) Store {
	return NewStoreWith(ctx, DriverMemory, opts...)
}

// NewRedisStore is a convenience for a redis-backed store. The client is required.
//
// Example: redis helper
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
//	store := cachepool.NewRedisStore(ctx, redisClient, cachepool.WithPrefix("app"))
//	fmt.Println(store.Driver()) // redis
func NewRedisStore(ctx context.Context, client RedisClient, opts ...StoreOption) Store {
	return NewStoreWith(ctx, DriverRedis, append([]StoreOption{WithRedisClient(client)}, opts...)...)
}

// NewFileStore is a convenience for a filesystem-backed store.
func NewFileStore(ctx context.Context, dir string, opts ...StoreOption) Store {
	return NewStoreWith(ctx, DriverFile, append([]StoreOption{WithFileDir(dir)}, opts...)...)
}

// NewSQLStore is a convenience for a database-backed store.
// Supported driver names: sqlite, mysql, pgx/postgres.
func NewSQLStore(ctx context.Context, driverName, dsn string, opts ...StoreOption) Store {
	return NewStoreWith(ctx, DriverSQL, append([]StoreOption{WithSQL(driverName, dsn)}, opts...)...)
}

// NewNATSStore is a convenience for a JetStream key-value backed store.
func NewNATSStore(ctx context.Context, kv NATSKeyValue, opts ...StoreOption) Store {
	return NewStoreWith(ctx, DriverNATS, append([]StoreOption{WithNATSKeyValue(kv)}, opts...)...)
}

// NewDynamoStore is a convenience for a DynamoDB-backed store.
func NewDynamoStore(ctx context.Context, opts ...StoreOption) Store {
	return NewStoreWith(ctx, DriverDynamo, opts...)
}

// NewNullStore is a convenience for the always-miss store.
func NewNullStore(ctx context.Context, opts ...StoreOption) Store {
	return NewStoreWith(ctx, DriverNull, opts...)
}

// NewMemoryPool is shorthand for a pool over the in-process store.
func NewMemoryPool(ctx context.Context, opts ...PoolOption) *Pool {
	return NewPool(NewMemoryStore(ctx), opts...)
}
