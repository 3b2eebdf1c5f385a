// Package redis holds the relay's Redis client and its key namespace. The
// only Redis-backed concern is the shared session-create rate limit.
package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces every relay key so instances can share a Redis
// with other tenants.
const keyPrefix = "relay"

const dialTimeout = 5 * time.Second

type Client struct {
	*redis.Client
}

func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{client}, nil
}

// Key joins parts under the relay namespace: Key("ratelimit", ip) yields
// "relay:ratelimit:<ip>".
func Key(parts ...string) string {
	return keyPrefix + ":" + strings.Join(parts, ":")
}

func (c *Client) Close() error {
	return c.Client.Close()
}
