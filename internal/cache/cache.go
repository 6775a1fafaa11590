// Package cache stores normalized records with age-based expiry on top of
// a store.Store backend.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Vheissu/abn-checker/internal/model"
	"github.com/Vheissu/abn-checker/internal/store"
)

// KeyPrefix is prepended to the canonical identifier to form a cache key.
const KeyPrefix = "abn_"

// Key derives the storage key for a canonical identifier.
func Key(abn string) string {
	return KeyPrefix + abn
}

// Cache maps identifiers to records. An entry is fresh while its write time
// is within the configured duration; anything else is a miss.
type Cache struct {
	store    store.Store
	duration time.Duration
	now      func() time.Time
}

// New returns a Cache over s. A nil store or a non-positive duration
// disables caching.
func New(s store.Store, duration time.Duration) *Cache {
	return &Cache{store: s, duration: duration, now: time.Now}
}

// Enabled reports whether Get can ever hit.
func (c *Cache) Enabled() bool {
	return c != nil && c.store != nil && c.duration > 0
}

// Get returns the cached record for abn if it exists and is fresh. Backend
// and decode errors are logged and reported as a miss.
func (c *Cache) Get(ctx context.Context, abn string) (*model.Record, bool) {
	if !c.Enabled() {
		return nil, false
	}
	key := Key(abn)

	e, err := c.store.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false
	}
	if err != nil {
		zap.L().Warn("cache: read failed, treating as miss", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	if age := c.now().Sub(e.WrittenAt); age > c.duration {
		zap.L().Debug("cache: entry stale",
			zap.String("key", key),
			zap.Duration("age", age),
			zap.Duration("max_age", c.duration),
		)
		return nil, false
	}

	var rec model.Record
	if err := json.Unmarshal(e.Value, &rec); err != nil {
		zap.L().Warn("cache: undecodable entry, treating as miss", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if rec.ABN != abn {
		zap.L().Warn("cache: entry identifier mismatch", zap.String("key", key), zap.String("stored_abn", rec.ABN))
		return nil, false
	}
	return &rec, true
}

// Put serializes rec and writes it under abn's key, replacing any earlier
// entry.
func (c *Cache) Put(ctx context.Context, abn string, rec model.Record) error {
	if !c.Enabled() {
		return nil
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "cache: marshal record")
	}
	return eris.Wrapf(c.store.Put(ctx, Key(abn), b), "cache: put %s", abn)
}

// Prune removes entries older than the cache duration. Lookups never call
// it; it exists for operators.
func (c *Cache) Prune(ctx context.Context) (int, error) {
	if !c.Enabled() {
		return 0, nil
	}
	n, err := c.store.Prune(ctx, c.now().Add(-c.duration))
	return n, eris.Wrap(err, "cache: prune")
}
