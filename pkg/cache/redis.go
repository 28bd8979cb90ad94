package cache

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const UsageTTL = 30 * 24 * time.Hour

// Counter tracks how often each command was invoked.
type Counter interface {
	Incr(ctx context.Context, command string) error
	Top(ctx context.Context, n int) ([]Usage, error)
	Close() error
}

type Usage struct {
	Command string
	Count   int64
}

type Cache struct {
	client *redis.Client
	prefix string
}

func NewRedisCache(url string, prefix string) (*Cache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{
		client: client,
		prefix: prefix,
	}, nil
}

func (c *Cache) Key(parts ...string) string {
	if c.prefix == "" {
		return strings.Join(parts, ":")
	}
	return c.prefix + ":" + strings.Join(parts, ":")
}

func (c *Cache) Incr(ctx context.Context, command string) error {
	key := c.Key("usage")
	pipe := c.client.TxPipeline()
	pipe.HIncrBy(ctx, key, command, 1)
	pipe.Expire(ctx, key, UsageTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (c *Cache) Top(ctx context.Context, n int) ([]Usage, error) {
	raw, err := c.client.HGetAll(ctx, c.Key("usage")).Result()
	if err != nil {
		return nil, err
	}

	usage := make([]Usage, 0, len(raw))
	for cmd, v := range raw {
		count, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		usage = append(usage, Usage{Command: cmd, Count: count})
	}
	return topN(usage, n), nil
}

func (c *Cache) Reset(ctx context.Context) error {
	return c.client.Del(ctx, c.Key("usage")).Err()
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func topN(usage []Usage, n int) []Usage {
	sort.Slice(usage, func(i, j int) bool {
		if usage[i].Count != usage[j].Count {
			return usage[i].Count > usage[j].Count
		}
		return usage[i].Command < usage[j].Command
	})
	if n > 0 && len(usage) > n {
		usage = usage[:n]
	}
	return usage
}
