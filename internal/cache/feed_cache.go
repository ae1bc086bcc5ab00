package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"spothire/internal/model"
)

// FeedCache keeps the latest store-backed feed snapshot for a reference area.
type FeedCache interface {
	Set(ctx context.Context, area string, feed *model.FeedSnapshot) error
	Get(ctx context.Context, area string) (*model.FeedSnapshot, error)
	Invalidate(ctx context.Context) error
}

type feedCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewFeedCache(client *redis.Client, ttl time.Duration) FeedCache {
	return &feedCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *feedCache) key(area string) string {
	return fmt.Sprintf("feed:%s", model.NormalizeText(area))
}

func (c *feedCache) Set(ctx context.Context, area string, feed *model.FeedSnapshot) error {
	data, err := json.Marshal(feed)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(area), data, c.ttl).Err()
}

func (c *feedCache) Get(ctx context.Context, area string) (*model.FeedSnapshot, error) {
	data, err := c.client.Get(ctx, c.key(area)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var feed model.FeedSnapshot
	if err := json.Unmarshal([]byte(data), &feed); err != nil {
		return nil, err
	}
	return &feed, nil
}

// Invalidate drops every cached feed. Called after candidate writes.
func (c *feedCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, "feed:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
