package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options configures the connection that backs slot locks. Lock traffic is a
// SET NX and a short EVAL per booking, so the pool stays small.
type Options struct {
	Addr     string
	Username string
	Password string

	// OpTimeout bounds dialing and every lock command. Zero means 2s.
	OpTimeout time.Duration
}

// NewRedisClient opens the lock store and fails fast when it cannot be
// reached, before the server accepts any booking.
func NewRedisClient(ctx context.Context, opts Options) (*redis.Client, error) {
	timeout := opts.OpTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Username:     opts.Username,
		Password:     opts.Password,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		PoolSize:     4,
		MaxRetries:   1,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*timeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("lock store %s unreachable: %w", opts.Addr, err)
	}
	return rdb, nil
}
