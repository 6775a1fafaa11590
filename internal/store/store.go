// Package store persists opaque cache values keyed by string, recording
// when each key was last written. Staleness policy lives with the caller.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/Vheissu/abn-checker/internal/config"
)

// ErrNotFound is returned by Get when no entry exists for the key.
var ErrNotFound = eris.New("store: entry not found")

// Entry is a stored value and the time it was last written.
type Entry struct {
	Value     []byte
	WrittenAt time.Time
}

// Store is a key-addressed blob store with per-key write timestamps.
// Writers are not coordinated; the last completed Put wins.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Put(ctx context.Context, key string, value []byte) error
	// Prune deletes entries written before the cutoff and returns how many
	// were removed.
	Prune(ctx context.Context, before time.Time) (int, error)
	Close() error
}

// Migrator is implemented by backends that need schema setup.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// Open constructs the backend selected by cfg.Driver. It returns nil for
// the "none" driver.
func Open(ctx context.Context, cfg config.CacheConfig) (Store, error) {
	switch cfg.Driver {
	case config.DriverFile:
		return NewFile(cfg.Dir), nil
	case config.DriverSQLite:
		s, err := NewSQLite(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverPostgres:
		s, err := NewPostgres(ctx, cfg.DatabaseURL, PoolConfigFrom(cfg))
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverRedis:
		s, err := NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverNone, "":
		return nil, nil
	}
	return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
}

// now is swapped in tests.
var now = func() time.Time { return time.Now().UTC() }
