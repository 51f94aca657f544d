package probe

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Pinger is the part of a redis client the checker needs.
type Pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// RedisChecker sends PING to the server at def.Target (a redis:// URL).
type RedisChecker struct {
	// Dial builds a client; nil means redis.NewClient.
	Dial func(*redis.Options) Pinger
}

func NewRedisChecker() *RedisChecker { return &RedisChecker{} }

func (c *RedisChecker) Probe(ctx context.Context, def Definition) (Raw, error) {
	opts, err := redis.ParseURL(def.Target)
	if err != nil {
		return Raw{}, Fault(err)
	}
	// one connection, no client-side retries: Retrying owns that policy
	opts.PoolSize = 1
	opts.MaxRetries = -1

	dial := c.Dial
	if dial == nil {
		dial = func(o *redis.Options) Pinger { return redis.NewClient(o) }
	}
	client := dial(opts)
	defer client.Close()

	reply, err := client.Ping(ctx).Result()
	if err != nil {
		return Raw{Output: reply}, err
	}
	return Raw{Output: reply}, nil
}
