// Package db defines the storage facade shared by all drivers. Hash
// operations are namespaced: the namespace is the collection name, already
// validated against the safe character set by the caller, and each driver
// decides how to partition by it.
package db

import (
	"context"
	"time"
)

// Store is the main storage facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	HashStore
	KVStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks storage connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem holds a single key+fields pair for batched hash writes.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashStore provides namespaced hash record operations. A batched write
// (HSetMulti) must make all items durable together: a failure leaves none
// of the batch visible to subsequent reads, or the driver reports the
// partial write so the caller can roll back.
type HashStore interface {
	HSet(ctx context.Context, namespace, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, namespace string, items []HashSetItem) error
	HGetAll(ctx context.Context, namespace, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, namespace string, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, namespace, key string) error
	DelMulti(ctx context.Context, namespace string, keys []string) (int, error)
	Exists(ctx context.Context, namespace, key string) (bool, error)
	Scan(ctx context.Context, namespace, prefix string) ([]string, error)
}

// KVStore provides simple key-value operations outside any collection
// namespace (caches, deployment metadata).
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)
	KVDel(ctx context.Context, key string) error
}
