// Package redis wraps the go-redis client behind the stream operations the
// service needs for resumable generation streams.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketingvoice/internal/config"

	redis "github.com/redis/go-redis/v9"
)

var errNotInitialized = errors.New("redis client not initialized")

// Client wraps go-redis to centralize configuration and the stream access
// patterns.
type Client struct {
	inner *redis.Client
}

// NewRedisClient creates the redis client from app config.
func NewRedisClient(cfg *config.Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	host := cfg.Redis.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Redis.Port
	if port == 0 {
		port = 6379
	}

	opts := &redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &Client{inner: client}, nil
}

// StreamAppend adds one entry to the stream and refreshes its TTL in a
// single pipeline.
func (c *Client) StreamAppend(ctx context.Context, stream string, values map[string]interface{}, ttl time.Duration) error {
	if c == nil || c.inner == nil {
		return errNotInitialized
	}
	pipe := c.inner.Pipeline()
	pipe.XAdd(ctx, &redis.XAddArgs{Stream: stream, Values: values})
	pipe.Expire(ctx, stream, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// StreamRange reads all buffered entries of the stream from the beginning.
func (c *Client) StreamRange(ctx context.Context, stream string) ([]redis.XMessage, error) {
	if c == nil || c.inner == nil {
		return nil, errNotInitialized
	}
	return c.inner.XRange(ctx, stream, "-", "+").Result()
}

// StreamRead blocks up to block for entries appended after lastID. A block
// timeout yields an empty batch, not an error.
func (c *Client) StreamRead(ctx context.Context, stream, lastID string, block time.Duration) ([]redis.XMessage, error) {
	if c == nil || c.inner == nil {
		return nil, errNotInitialized
	}
	res, err := c.inner.XRead(ctx, &redis.XReadArgs{
		Streams: []string{stream, lastID},
		Block:   block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var msgs []redis.XMessage
	for _, streamRes := range res {
		msgs = append(msgs, streamRes.Messages...)
	}
	return msgs, nil
}

// Exists reports whether the key is present.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	if c == nil || c.inner == nil {
		return false, errNotInitialized
	}
	n, err := c.inner.Exists(ctx, key).Result()
	return n > 0, err
}

// Close closes client.
func (c *Client) Close() error {
	if c == nil || c.inner == nil {
		return nil
	}
	return c.inner.Close()
}

// Raw exposes underlying go-redis client.
func (c *Client) Raw() *redis.Client {
	if c == nil {
		return nil
	}
	return c.inner
}
