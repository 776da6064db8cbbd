package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"lotto-server/common"
)

// Cache is a JSON cache over a go-redis client. Every method is a no-op on a
// nil *Cache or a Cache built from a nil client, so callers need no branches.
type Cache struct {
	c   *goredis.Client
	ttl time.Duration
}

func NewCache(c *goredis.Client, ttl time.Duration) *Cache {
	if c == nil {
		return nil
	}
	return &Cache{c: c, ttl: ttl}
}

// Get decodes key into v. A miss returns (false, nil).
func (k *Cache) Get(ctx context.Context, key string, v interface{}) (bool, error) {
	if k == nil {
		return false, nil
	}
	b, err := k.c.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := common.JsonUnmarshal(b, v); err != nil {
		return false, err
	}
	return true, nil
}

func (k *Cache) Set(ctx context.Context, key string, v interface{}) error {
	if k == nil {
		return nil
	}
	b, err := common.JsonMarshal(v)
	if err != nil {
		return err
	}
	return k.c.Set(ctx, key, b, k.ttl).Err()
}

func (k *Cache) Del(ctx context.Context, keys ...string) error {
	if k == nil || len(keys) == 0 {
		return nil
	}
	return k.c.Del(ctx, keys...).Err()
}

// DelPrefix removes every key under prefix using SCAN, never KEYS.
func (k *Cache) DelPrefix(ctx context.Context, prefix string) (int, error) {
	if k == nil {
		return 0, nil
	}
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := k.c.Scan(ctx, cursor, prefix+"*", 200).Result()
		if err != nil {
			return removed, err
		}
		if len(keys) > 0 {
			n, err := k.c.Del(ctx, keys...).Result()
			if err != nil {
				return removed, err
			}
			removed += int(n)
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

var unlockScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// TryLock takes key with SET NX. It returns the token to pass to Unlock.
// Without Redis every lock succeeds.
func (k *Cache) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	if k == nil {
		return token, true, nil
	}
	ok, err := k.c.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// Unlock releases key only while it still holds token.
func (k *Cache) Unlock(ctx context.Context, key, token string) error {
	if k == nil {
		return nil
	}
	return unlockScript.Run(ctx, k.c, []string{key}, token).Err()
}
