package cachepool

import (
	"os"
	"path/filepath"
	"time"
)

const (
	defaultCachePrefix           = "pool"
	defaultMemoryCleanupInterval = 10 * time.Minute
)

func defaultFileDir() string {
	return filepath.Join(os.TempDir(), "cachepool-file")
}

// StoreConfig controls how a Store is constructed.
type StoreConfig struct {
	Driver Driver

	// Prefix scopes keys on shared backends (redis, sql, dynamo, nats).
	Prefix string

	// MemoryCleanupInterval controls in-process cache sweeping.
	MemoryCleanupInterval time.Duration

	// FileDir controls where the file driver stores entries.
	FileDir string

	// RedisClient is required when DriverRedis is used.
	RedisClient RedisClient

	// SQLDriverName and SQLDSN are required when DriverSQL is used.
	// Supported driver names: sqlite, mysql, pgx/postgres.
	SQLDriverName string
	SQLDSN        string
	SQLTable      string

	// NATSKeyValue is required when DriverNATS is used.
	NATSKeyValue NATSKeyValue

	// DynamoClient is used when DriverDynamo is selected; when nil a client
	// is built from DynamoRegion/DynamoEndpoint.
	DynamoClient   DynamoAPI
	DynamoTable    string
	DynamoRegion   string
	DynamoEndpoint string

	// Compression selects transparent value compression.
	Compression CompressionCodec

	// MaxValueSize rejects oversized values when > 0.
	MaxValueSize int

	// EncryptionKey enables AES-GCM value encryption when set.
	// Must be 16, 24, or 32 bytes.
	EncryptionKey []byte
}

func (c StoreConfig) withDefaults() StoreConfig {
	if c.Driver == "" {
		c.Driver = DriverMemory
	}
	if c.Prefix == "" {
		c.Prefix = defaultCachePrefix
	}
	if c.MemoryCleanupInterval <= 0 {
		c.MemoryCleanupInterval = defaultMemoryCleanupInterval
	}
	if c.FileDir == "" {
		c.FileDir = defaultFileDir()
	}
	if c.SQLTable == "" {
		c.SQLTable = "cache_entries"
	}
	if c.DynamoTable == "" {
		c.DynamoTable = "cache_entries"
	}
	if c.DynamoRegion == "" {
		c.DynamoRegion = "us-east-1"
	}
	return c
}
