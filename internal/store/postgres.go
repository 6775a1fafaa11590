package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/Vheissu/abn-checker/internal/config"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters. Zero
// values keep the defaults.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

// PoolConfigFrom takes pool sizing from the cache configuration.
func PoolConfigFrom(cfg config.CacheConfig) *PoolConfig {
	return &PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns}
}

const (
	defaultMaxConns = int32(4)
	defaultMinConns = int32(0)
)

// applyPoolConfig sizes pgxCfg from poolCfg, falling back to the defaults.
func applyPoolConfig(pgxCfg *pgxpool.Config, poolCfg *PoolConfig) {
	pgxCfg.MaxConns = defaultMaxConns
	pgxCfg.MinConns = defaultMinConns
	if poolCfg == nil {
		return
	}
	if poolCfg.MaxConns > 0 {
		pgxCfg.MaxConns = poolCfg.MaxConns
	}
	if poolCfg.MinConns > 0 {
		pgxCfg.MinConns = poolCfg.MinConns
	}
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	applyPoolConfig(pgxCfg, poolCfg)
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key        TEXT PRIMARY KEY,
	value      BYTEA NOT NULL,
	written_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cache_entries_written_at ON cache_entries(written_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) (*Entry, error) {
	var e Entry
	err := s.pool.QueryRow(ctx,
		`SELECT value, written_at FROM cache_entries WHERE key = $1`,
		key,
	).Scan(&e.Value, &e.WrittenAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "postgres: get cache entry")
	}
	e.WrittenAt = e.WrittenAt.UTC()
	return &e, nil
}

func (s *PostgresStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO cache_entries (key, value, written_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, written_at = EXCLUDED.written_at`,
		key, value, now(),
	)
	return eris.Wrap(err, "postgres: put cache entry")
}

func (s *PostgresStore) Prune(ctx context.Context, before time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM cache_entries WHERE written_at < $1`,
		before,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: prune cache entries")
	}
	return int(tag.RowsAffected()), nil
}
