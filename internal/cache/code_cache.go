package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"spothire/internal/model"
)

// CodeCache is the Redis registry of issued session codes. It lets code
// generation skip a store round-trip for known codes and lets registration
// resolve a code while the session store is unreachable.
type CodeCache interface {
	SetMeta(ctx context.Context, code string, meta *model.CodeMeta) error
	GetMeta(ctx context.Context, code string) (*model.CodeMeta, error)
	SetActive(ctx context.Context, code string, active bool) error
	Exists(ctx context.Context, code string) (bool, error)
}

type codeCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCodeCache creates a code cache. Entries expire after ttl.
func NewCodeCache(client *redis.Client, ttl time.Duration) CodeCache {
	return &codeCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *codeCache) key(code string) string {
	return fmt.Sprintf("qr:code:%s", code)
}

func (c *codeCache) SetMeta(ctx context.Context, code string, meta *model.CodeMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(code), data, c.ttl).Err()
}

func (c *codeCache) GetMeta(ctx context.Context, code string) (*model.CodeMeta, error) {
	data, err := c.client.Get(ctx, c.key(code)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var meta model.CodeMeta
	if err := json.Unmarshal([]byte(data), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// SetActive rewrites the active flag of a cached code. Unknown codes are
// ignored since the store stays authoritative.
func (c *codeCache) SetActive(ctx context.Context, code string, active bool) error {
	meta, err := c.GetMeta(ctx, code)
	if err != nil || meta == nil {
		return err
	}
	meta.Active = active
	return c.SetMeta(ctx, code, meta)
}

func (c *codeCache) Exists(ctx context.Context, code string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(code)).Result()
	return n > 0, err
}
