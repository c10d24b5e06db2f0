package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const embeddingKeyPrefix = "embedding:"

// EmbeddingCache 基于 Redis 的向量缓存。
// 键由调用方给出（通常为 provider 标识与文本的摘要），值为 JSON 数组。
type EmbeddingCache struct {
	client *Client
	ttl    time.Duration
}

// NewEmbeddingCache 创建向量缓存。
func NewEmbeddingCache(client *Client, ttl time.Duration) *EmbeddingCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &EmbeddingCache{client: client, ttl: ttl}
}

// Get 读取缓存向量。未命中时返回 (nil, false, nil)。
func (c *EmbeddingCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	ctx, span := tracer.Start(ctx, "redis.EmbeddingCache.Get",
		trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	raw, err := c.client.Redis().Get(ctx, embeddingKeyPrefix+key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, false, fmt.Errorf("embedding cache get: %w", err)
	}

	var vec []float32
	if err := json.Unmarshal([]byte(raw), &vec); err != nil {
		// 损坏的缓存条目按未命中处理
		return nil, false, nil
	}
	return vec, true, nil
}

// Set 写入缓存向量。
func (c *EmbeddingCache) Set(ctx context.Context, key string, vec []float32) error {
	ctx, span := tracer.Start(ctx, "redis.EmbeddingCache.Set",
		trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	raw, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("embedding cache marshal: %w", err)
	}
	if err := c.client.Redis().Set(ctx, embeddingKeyPrefix+key, raw, c.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("embedding cache set: %w", err)
	}
	return nil
}
