package store

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

const (
	redisPrefix       = "abn-checker:"
	redisFieldValue   = "value"
	redisFieldWritten = "written_at"
)

// RedisStore keeps each entry as a hash holding the value and its write
// time in unix nanoseconds.
type RedisStore struct {
	client *redis.Client
}

// NewRedis parses a redis:// URL, connects, and pings the server.
func NewRedis(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, eris.Wrap(err, "redis: parse url")
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "redis: ping")
	}
	return NewRedisFromClient(client), nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
	fields, err := s.client.HGetAll(ctx, redisPrefix+key).Result()
	if err != nil {
		return nil, eris.Wrap(err, "redis: get cache entry")
	}
	value, ok := fields[redisFieldValue]
	if !ok {
		return nil, ErrNotFound
	}
	ns, err := strconv.ParseInt(fields[redisFieldWritten], 10, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "redis: parse %s for %s", redisFieldWritten, key)
	}
	return &Entry{Value: []byte(value), WrittenAt: time.Unix(0, ns).UTC()}, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, value []byte) error {
	err := s.client.HSet(ctx, redisPrefix+key,
		redisFieldValue, value,
		redisFieldWritten, strconv.FormatInt(now().UnixNano(), 10),
	).Err()
	return eris.Wrap(err, "redis: put cache entry")
}

func (s *RedisStore) Prune(ctx context.Context, before time.Time) (int, error) {
	cutoff := before.UnixNano()
	n := 0
	iter := s.client.Scan(ctx, 0, redisPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		raw, err := s.client.HGet(ctx, key, redisFieldWritten).Result()
		if err != nil && err != redis.Nil {
			return n, eris.Wrap(err, "redis: read write time")
		}
		ns, perr := strconv.ParseInt(raw, 10, 64)
		if perr == nil && ns >= cutoff {
			continue
		}
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return n, eris.Wrap(err, "redis: delete stale entry")
		}
		n++
	}
	if err := iter.Err(); err != nil {
		return n, eris.Wrap(err, "redis: scan")
	}
	return n, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
