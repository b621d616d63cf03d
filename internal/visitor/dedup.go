package visitor

import (
	"context"
	"time"
)

const dedupKeyPrefix = "visitor_event:"

// KeyStore is the part of the redis client the deduplicator needs.
type KeyStore interface {
	SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// Deduplicator remembers ingested event ids for ttl.
type Deduplicator struct {
	store KeyStore
	ttl   time.Duration
}

func NewDeduplicator(store KeyStore, ttl time.Duration) *Deduplicator {
	return &Deduplicator{store: store, ttl: ttl}
}

// SeenBefore marks eventID as seen and reports whether it already was.
func (d *Deduplicator) SeenBefore(ctx context.Context, eventID string) (bool, error) {
	written, err := d.store.SetIfAbsent(ctx, dedupKeyPrefix+eventID, d.ttl)
	if err != nil {
		return false, err
	}
	return !written, nil
}

// Forget drops the mark so a failed ingest can be redelivered.
func (d *Deduplicator) Forget(ctx context.Context, eventID string) error {
	return d.store.Delete(ctx, dedupKeyPrefix+eventID)
}
