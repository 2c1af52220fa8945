package contract

import (
	"context"
	"time"

	"github.com/huangsam/precache/schema"
)

// CacheManager defines the interface for managing cache stores.
// This allows the cache layer to be mocked for testing.
type CacheManager interface {
	GetCacheStore() CacheStore
	GetHistoryStore() HistoryStore
}

// CacheStore defines the named-bucket storage used by the offline cache.
// Buckets are returned in creation order and hold one response per request key.
type CacheStore interface {
	// Open creates the bucket if it does not exist yet.
	Open(ctx context.Context, bucket string) error
	// Has reports whether the bucket exists.
	Has(ctx context.Context, bucket string) (bool, error)
	// Keys lists bucket names in creation order.
	Keys(ctx context.Context) ([]string, error)
	// Delete removes the bucket and all its entries. It reports whether the bucket existed.
	Delete(ctx context.Context, bucket string) (bool, error)
	// Match looks up a request key across all buckets, oldest bucket first.
	// It returns ErrNotFound when no bucket holds the key.
	Match(ctx context.Context, key string) (*schema.Response, error)
	// Lookup reads a single entry from one bucket.
	Lookup(ctx context.Context, bucket, key string) (*schema.Response, error)
	// PutAll writes all entries into the bucket atomically, replacing entries with the same key.
	PutAll(ctx context.Context, bucket string, entries []schema.Entry) error
	// Buckets summarizes every bucket.
	Buckets(ctx context.Context) ([]schema.BucketInfo, error)
	// Entries lists the entries of one bucket.
	Entries(ctx context.Context, bucket string) ([]schema.EntryInfo, error)
	// GetStatus returns backend statistics.
	GetStatus(ctx context.Context) (schema.CacheStatus, error)
	Close() error
}

// HistoryStore records lifecycle runs (install, activate) for auditing.
type HistoryStore interface {
	BeginRun(ctx context.Context, event schema.EventKind, version string, start time.Time) (int64, error)
	EndRun(ctx context.Context, runID int64, end time.Time, outcome schema.Outcome, entries int, runErr error) error
	Runs(ctx context.Context) ([]schema.LifecycleRun, error)
	GetStatus(ctx context.Context) (schema.HistoryStatus, error)
	Close() error
}
