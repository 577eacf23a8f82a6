package connect

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Gundoganfa/SomeNiceLinks/internal/logger"
)

// RedisOptions are the Redis client settings.
type RedisOptions struct {
	Addr         string        // Redis address (ex: "localhost:6379")
	User         string        // Optional username
	Password     string        // Optional password
	DB           int           // Redis DB number
	DialTimeout  time.Duration // Redis dial timeout
	ReadTimeout  time.Duration // Redis read timeout
	WriteTimeout time.Duration // Redis write timeout
	PoolSize     int           // Redis connection pool size
	Retry        RetryOptions
}

// Redis creates a Redis client and waits until it answers PING.
func Redis(ctx context.Context, opts RedisOptions, log logger.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Username:     opts.User,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		PoolSize:     opts.PoolSize,
	})

	ping := func(ctx context.Context) error { return client.Ping(ctx).Err() }
	if err := WithRetry(ctx, "redis", opts.Addr, ping, opts.Retry, log); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
