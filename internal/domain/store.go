package domain

import (
	"context"
	"io"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// EventStore persists the transition journal.
type EventStore interface {
	Insert(ctx context.Context, ev Event) error
	InsertBatch(ctx context.Context, evs []Event) error
	ListRecent(ctx context.Context, limit int) ([]Event, error)
	ListByKind(ctx context.Context, kind EventKind, opts ListOpts) ([]Event, error)
	ListBefore(ctx context.Context, before time.Time, limit int) ([]Event, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// ClaimStore persists claim lifecycle snapshots for the read API.
type ClaimStore interface {
	Upsert(ctx context.Context, claim Claim, status ClaimStatus) error
	GetOpen(ctx context.Context, target string) (Claim, error)
	ListOpen(ctx context.Context, opts ListOpts) ([]Claim, error)
	ListByClaimant(ctx context.Context, claimant string, opts ListOpts) ([]Claim, error)
}

// OfferStore persists acquisition offer snapshots and their outcomes.
type OfferStore interface {
	Upsert(ctx context.Context, offer OfferSnapshot) error
	SetStatus(ctx context.Context, id string, status OfferStatus, reason string) error
	GetPending(ctx context.Context) (OfferSnapshot, error)
	ListHistory(ctx context.Context, opts ListOpts) ([]OfferSnapshot, error)
}

// StreamMessage represents a single entry from a durable event stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// EventBus provides pub/sub fan-out plus a capped durable stream of the
// transition feed.
type EventBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}

// RateLimiter provides distributed rate limiting for the HTTP surface.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}

// LockManager provides distributed locking, used to keep a single writer when
// several service replicas share the journal.
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

// BlobDeleter removes objects from object storage.
type BlobDeleter interface {
	Delete(ctx context.Context, path string) error
}

// Archiver exports old journal entries to cold storage.
type Archiver interface {
	ArchiveEvents(ctx context.Context, before time.Time) (int64, error)
}
