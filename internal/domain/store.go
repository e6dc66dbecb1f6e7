package domain

import (
	"context"
	"io"
	"time"
)

// RunStore persists training run results. Writes are append-only; history is
// bounded at query time by the limit parameter.
type RunStore interface {
	Insert(ctx context.Context, result RunResult) error
	Latest(ctx context.Context) (RunResult, error)
	LatestByModel(ctx context.Context, family ModelFamily) (RunResult, error)
	ListRecent(ctx context.Context, limit int) ([]RunResult, error)
}

// ResultCache provides fast access to the latest run result and per-family
// summaries without touching the persistent store.
type ResultCache interface {
	SetLatest(ctx context.Context, result RunResult) error
	GetLatest(ctx context.Context) (RunResult, error)
	SetModelSummary(ctx context.Context, result RunResult) error
	ModelSummaries(ctx context.Context) (map[string]ModelSummary, error)
}

// ActivityLog keeps a bounded, most-recent-first log of prediction events.
type ActivityLog interface {
	Push(ctx context.Context, events []Event) error
	Recent(ctx context.Context, limit int) ([]Event, error)
}

// LockManager provides distributed locking so concurrent training requests
// serialize their result-store writes.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// BlobInfo describes a stored object.
type BlobInfo struct {
	Path         string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// BlobReader retrieves data from object storage.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
	Exists(ctx context.Context, path string) (bool, error)
}
