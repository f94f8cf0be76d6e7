package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps buckets in Redis so several API processes share one
// budget per client. Each bucket is a hash {count, start} where start is the
// window start in Unix milliseconds; keys expire on their own one window
// after they were created.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix sets the namespace for bucket keys. Default "ratelimit:bucket".
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = strings.Trim(prefix, ":") }
}

// WithTTL sets the expiry applied by Set. It should match the limiter window.
func WithTTL(d time.Duration) RedisOption {
	return func(s *RedisStore) { s.ttl = d }
}

// NewRedisStore returns a Store backed by rdb.
func NewRedisStore(rdb redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		rdb:    rdb,
		prefix: "ratelimit:bucket",
		ttl:    DefaultWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// hitScript performs one fixed-window step atomically.
// Returns {count, window_start_ms, allowed(0|1)}.
var hitScript = redis.NewScript(`
local now    = tonumber(ARGV[1])
local limit  = tonumber(ARGV[2])
local window = tonumber(ARGV[3])

local start = tonumber(redis.call('HGET', KEYS[1], 'start'))
local count = tonumber(redis.call('HGET', KEYS[1], 'count'))

if start == nil or count == nil or now - start >= window then
  redis.call('HSET', KEYS[1], 'count', 1, 'start', now)
  redis.call('PEXPIRE', KEYS[1], window)
  return {1, now, 1}
end

if count < limit then
  count = redis.call('HINCRBY', KEYS[1], 'count', 1)
  return {count, start, 1}
end

return {count, start, 0}
`)

// Hit implements AtomicStore.
func (s *RedisStore) Hit(ctx context.Context, key string, now time.Time, limit int, window time.Duration) (Bucket, bool, error) {
	res, err := hitScript.Run(ctx, s.rdb, []string{s.key(key)},
		now.UnixMilli(), limit, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Bucket{}, false, fmt.Errorf("ratelimit.RedisStore.Hit: %w", err)
	}
	if len(res) != 3 {
		return Bucket{}, false, fmt.Errorf("ratelimit.RedisStore.Hit: unexpected reply length %d", len(res))
	}
	b := Bucket{Count: int(res[0]), WindowStart: time.UnixMilli(res[1])}
	return b, res[2] == 1, nil
}

// deleteStaleScript drops a bucket whose window started before ARGV[1] (ms).
// Returns 1 when the key was removed.
var deleteStaleScript = redis.NewScript(`
local start = tonumber(redis.call('HGET', KEYS[1], 'start'))
if start ~= nil and start < tonumber(ARGV[1]) then
  redis.call('DEL', KEYS[1])
  return 1
end
return 0
`)

// DeleteIfStale implements AtomicStore.
func (s *RedisStore) DeleteIfStale(ctx context.Context, key string, cutoff time.Time) (bool, error) {
	n, err := deleteStaleScript.Run(ctx, s.rdb, []string{s.key(key)}, cutoff.UnixMilli()).Int64()
	if err != nil {
		return false, fmt.Errorf("ratelimit.RedisStore.DeleteIfStale: %w", err)
	}
	return n == 1, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (Bucket, bool, error) {
	vals, err := s.rdb.HGetAll(ctx, s.key(key)).Result()
	if err != nil {
		return Bucket{}, false, fmt.Errorf("ratelimit.RedisStore.Get: %w", err)
	}
	if len(vals) == 0 {
		return Bucket{}, false, nil
	}
	b, err := parseBucket(vals)
	if err != nil {
		return Bucket{}, false, fmt.Errorf("ratelimit.RedisStore.Get: %w", err)
	}
	return b, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, b Bucket) error {
	k := s.key(key)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, k, "count", b.Count, "start", b.WindowStart.UnixMilli())
	if s.ttl > 0 {
		pipe.PExpire(ctx, k, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ratelimit.RedisStore.Set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("ratelimit.RedisStore.Delete: %w", err)
	}
	return nil
}

// Range scans the key namespace. Keys that expire mid-scan are skipped.
func (s *RedisStore) Range(ctx context.Context, fn func(key string, b Bucket) bool) error {
	iter := s.rdb.Scan(ctx, 0, s.prefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		full := iter.Val()
		vals, err := s.rdb.HGetAll(ctx, full).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("ratelimit.RedisStore.Range: %w", err)
		}
		if len(vals) == 0 {
			continue
		}
		b, err := parseBucket(vals)
		if err != nil {
			return fmt.Errorf("ratelimit.RedisStore.Range: %s: %w", full, err)
		}
		if !fn(strings.TrimPrefix(full, s.prefix+":"), b) {
			return nil
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("ratelimit.RedisStore.Range: scan: %w", err)
	}
	return nil
}

func (s *RedisStore) key(k string) string {
	return s.prefix + ":" + k
}

func parseBucket(vals map[string]string) (Bucket, error) {
	count, err := strconv.Atoi(vals["count"])
	if err != nil {
		return Bucket{}, fmt.Errorf("parse count: %w", err)
	}
	start, err := strconv.ParseInt(vals["start"], 10, 64)
	if err != nil {
		return Bucket{}, fmt.Errorf("parse start: %w", err)
	}
	return Bucket{Count: count, WindowStart: time.UnixMilli(start)}, nil
}
