package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisResponseCache shares the response cache across API replicas. Values
// live under per-key entries with a Redis TTL; a sorted set scored by an
// insertion sequence keeps FIFO order for eviction. Inserts and trims run
// as Lua scripts so concurrent writers cannot push the set past maxSize.
type RedisResponseCache struct {
	client  redis.Cmdable
	prefix  string
	ttl     time.Duration
	maxSize int
}

func NewRedisResponseCache(client redis.Cmdable, prefix string, ttl time.Duration, maxSize int) *RedisResponseCache {
	if client == nil {
		panic("retrieval: redis client cannot be nil")
	}
	if prefix == "" {
		prefix = "voicebot:responses"
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if maxSize <= 0 {
		maxSize = DefaultCacheMaxSize
	}
	return &RedisResponseCache{client: client, prefix: prefix, ttl: ttl, maxSize: maxSize}
}

func (c *RedisResponseCache) valuePrefix() string { return c.prefix + ":entry:" }
func (c *RedisResponseCache) valueKey(key string) string { return c.valuePrefix() + key }
func (c *RedisResponseCache) orderKey() string { return c.prefix + ":order" }
func (c *RedisResponseCache) seqKey() string { return c.prefix + ":seq" }

func (c *RedisResponseCache) Get(ctx context.Context, key string) (*Response, bool, error) {
	data, err := c.client.Get(ctx, c.valueKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("retrieval: cache get: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, false, fmt.Errorf("retrieval: cache decode: %w", err)
	}
	return &resp, true, nil
}

// evictScript pops the oldest entry when the order set is at capacity.
// KEYS: order. ARGV: max size, value key prefix.
var evictScript = redis.NewScript(`
if redis.call('ZCARD', KEYS[1]) < tonumber(ARGV[1]) then
  return 0
end
local old = redis.call('ZRANGE', KEYS[1], 0, 0)
if #old == 0 then
  return 0
end
redis.call('ZREM', KEYS[1], old[1])
redis.call('DEL', ARGV[2] .. old[1])
return 1
`)

// setScript registers a new key in FIFO order, stores its value and trims
// the oldest entries back down to the max size in one step.
// KEYS: order, seq, value. ARGV: member, payload, ttl ms, max size, value key prefix.
var setScript = redis.NewScript(`
if not redis.call('ZSCORE', KEYS[1], ARGV[1]) then
  local seq = redis.call('INCR', KEYS[2])
  redis.call('ZADD', KEYS[1], seq, ARGV[1])
end
redis.call('SET', KEYS[3], ARGV[2], 'PX', ARGV[3])
local excess = redis.call('ZCARD', KEYS[1]) - tonumber(ARGV[4])
if excess <= 0 then
  return 0
end
local old = redis.call('ZRANGE', KEYS[1], 0, excess - 1)
for _, m in ipairs(old) do
  redis.call('ZREM', KEYS[1], m)
  redis.call('DEL', ARGV[5] .. m)
end
return #old
`)

func (c *RedisResponseCache) EvictIfFull(ctx context.Context) (bool, error) {
	n, err := evictScript.Run(ctx, c.client, []string{c.orderKey()}, c.maxSize, c.valuePrefix()).Int()
	if err != nil {
		return false, fmt.Errorf("retrieval: cache evict: %w", err)
	}
	return n > 0, nil
}

func (c *RedisResponseCache) Set(ctx context.Context, key string, resp *Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("retrieval: cache encode: %w", err)
	}
	keys := []string{c.orderKey(), c.seqKey(), c.valueKey(key)}
	err = setScript.Run(ctx, c.client, keys, key, data, c.ttl.Milliseconds(), c.maxSize, c.valuePrefix()).Err()
	if err != nil {
		return fmt.Errorf("retrieval: cache set: %w", err)
	}
	return nil
}

func (c *RedisResponseCache) Len(ctx context.Context) (int, error) {
	n, err := c.client.ZCard(ctx, c.orderKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("retrieval: cache size: %w", err)
	}
	return int(n), nil
}
