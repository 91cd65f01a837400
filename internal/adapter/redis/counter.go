// Package redis implements the rate-limit counter store on Redis so that
// several service instances share one set of windows.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/neomorfeo/adoptiq/internal/domain"
)

// Compile-time check: CounterStore implements domain.CounterStore.
var _ domain.CounterStore = (*CounterStore)(nil)

const keyPrefix = "adoptiq:ratelimit:"

// incrementScript adds one to the counter and starts the window on the
// first hit. Redis runs scripts atomically, so concurrent callers on any
// instance never lose an update. Returns {count, ttl in ms}.
var incrementScript = goredis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// CounterStore keeps fixed-window counters as Redis keys whose TTL is the
// window. Expired windows vanish with their keys.
type CounterStore struct {
	client goredis.UniversalClient
}

// NewCounterStore wraps an existing client.
func NewCounterStore(client goredis.UniversalClient) *CounterStore {
	return &CounterStore{client: client}
}

// Open connects to the Redis server at url and checks it answers.
func Open(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return client, nil
}

func (s *CounterStore) Get(ctx context.Context, key string) (domain.Counter, bool, error) {
	pipe := s.client.Pipeline()
	countCmd := pipe.Get(ctx, keyPrefix+key)
	ttlCmd := pipe.PTTL(ctx, keyPrefix+key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, goredis.Nil) {
		return domain.Counter{}, false, fmt.Errorf("reading counter: %w", err)
	}

	count, err := countCmd.Int()
	if errors.Is(err, goredis.Nil) {
		return domain.Counter{}, false, nil
	}
	if err != nil {
		return domain.Counter{}, false, fmt.Errorf("parsing counter: %w", err)
	}

	ttl := ttlCmd.Val()
	if ttl < 0 {
		ttl = 0
	}

	return domain.Counter{Count: count, ResetAt: time.Now().Add(ttl)}, true, nil
}

func (s *CounterStore) Increment(ctx context.Context, key string, window time.Duration, now time.Time) (domain.Counter, error) {
	res, err := incrementScript.Run(ctx, s.client, []string{keyPrefix + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return domain.Counter{}, fmt.Errorf("incrementing counter: %w", err)
	}
	if len(res) != 2 {
		return domain.Counter{}, fmt.Errorf("incrementing counter: unexpected reply %v", res)
	}

	return domain.Counter{
		Count:   int(res[0]),
		ResetAt: now.Add(time.Duration(res[1]) * time.Millisecond),
	}, nil
}

func (s *CounterStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("resetting counter: %w", err)
	}
	return nil
}
