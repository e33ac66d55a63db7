package cache

import (
	"context"
	"errors"
	"time"
)

// Common cache errors
var (
	// ErrClosed is returned by operations on a closed tier.
	ErrClosed = errors.New("cache is closed")
)

// Tier is one storage level of the layered cache. Both tiers share the same
// TTL and per-type eviction semantics so the manager can treat them
// uniformly.
type Tier interface {
	// Get returns the payload for key, or ok=false when the key is absent
	// or its entry has outlived the TTL.
	Get(ctx context.Context, key Key) (payload []byte, ok bool, err error)

	// Set stores payload under key, replacing any existing entry. When the
	// per-type item cap is exceeded the oldest-by-timestamp entries of that
	// type are evicted first.
	Set(ctx context.Context, key Key, payload []byte) error

	// Delete removes a single entry. Deleting an absent key is not an error.
	Delete(ctx context.Context, key Key) error

	// DeleteByPrefix removes every entry whose key starts with prefix and
	// returns how many were removed.
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)

	// Len reports the number of live entries (expired entries may still be
	// counted until the next lazy prune).
	Len(ctx context.Context) (int, error)

	// Close releases tier resources.
	Close() error
}

// Options tunes a cache tier.
type Options struct {
	// TTL is how long an entry stays servable after it is stored.
	TTL time.Duration

	// MaxPerType caps live entries per entry type; the oldest entries of
	// the type are evicted when an insert would exceed it.
	MaxPerType int

	// PruneBatch bounds how many expired entries a single lazy prune pass
	// may remove, keeping individual operations cheap.
	PruneBatch int

	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// withDefaults fills unset options.
func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = 24 * time.Hour
	}
	if o.MaxPerType <= 0 {
		o.MaxPerType = 200
	}
	if o.PruneBatch <= 0 {
		o.PruneBatch = 50
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// pruneEvery is how many writes pass between lazy TTL prune passes.
const pruneEvery = 32
