package callcap

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCap enforces a per-tenant concurrent inbound call limit using atomic
// Lua acquire/release. The counter key carries a TTL so a crashed process
// cannot leak slots forever.
//
// This is admission control only; no durable call state lives in Redis.
type RedisCap struct {
	Client *redis.Client
	Limit  int
	TTL    time.Duration
}

const DefaultSlotTTL = 4 * time.Hour

var acquireScript = redis.NewScript(`
-- KEYS[1] = tenant counter key
-- ARGV[1] = limit (int)
-- ARGV[2] = ttl_ms (int)
--
-- Returns 1 if admitted, 0 if the tenant is at its limit.
local current = redis.call('INCR', KEYS[1])
if current == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
else
  if redis.call('PTTL', KEYS[1]) < 0 then
    redis.call('PEXPIRE', KEYS[1], ARGV[2])
  end
end

if current > tonumber(ARGV[1]) then
  redis.call('DECR', KEYS[1])
  return 0
end
return 1
`)

var releaseScript = redis.NewScript(`
-- KEYS[1] = tenant counter key
local current = redis.call('DECR', KEYS[1])
if current <= 0 then
  redis.call('DEL', KEYS[1])
end
return 1
`)

func New(client *redis.Client, limit int, ttl time.Duration) (*RedisCap, error) {
	if client == nil {
		return nil, fmt.Errorf("callcap: redis client is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("callcap: limit must be > 0, got %d", limit)
	}
	if ttl <= 0 {
		ttl = DefaultSlotTTL
	}
	return &RedisCap{Client: client, Limit: limit, TTL: ttl}, nil
}

// Acquire claims a call slot for the tenant. Returns false when the tenant
// is at its concurrent call limit.
func (c *RedisCap) Acquire(ctx context.Context, tenantID string) (bool, error) {
	if tenantID == "" {
		return false, fmt.Errorf("callcap: tenant id is required")
	}
	res, err := acquireScript.Run(ctx, c.Client, []string{c.key(tenantID)}, c.Limit, c.TTL.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

// Release returns a previously acquired slot.
func (c *RedisCap) Release(ctx context.Context, tenantID string) error {
	if tenantID == "" {
		return fmt.Errorf("callcap: tenant id is required")
	}
	_, err := releaseScript.Run(ctx, c.Client, []string{c.key(tenantID)}).Result()
	return err
}

func (c *RedisCap) key(tenantID string) string {
	return "callcap:" + tenantID
}
