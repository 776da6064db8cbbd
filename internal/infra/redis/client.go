package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// global client, nil when Redis is not configured
var rdb *goredis.Client

// Init builds the client; an empty addr leaves Redis disabled.
func Init(addr, password string, db int) {
	if addr == "" {
		return
	}
	rdb = goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// Client returns the client, possibly nil.
func Client() *goredis.Client { return rdb }

// Close releases the global client.
func Close() error {
	if rdb == nil {
		return nil
	}
	err := rdb.Close()
	rdb = nil
	return err
}

// Ping checks Redis within timeout; a disabled client is healthy.
func Ping(ctx context.Context, timeout time.Duration) error {
	if rdb == nil {
		return nil
	}
	c, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return rdb.Ping(c).Err()
}
