// Package cache holds the Redis-backed read cache for merchant trust
// summaries. The cache is best-effort: errors are surfaced so callers can
// log them, but a miss or failure always falls back to the database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/shoptrust/reviews/internal/domain"
)

// ErrCacheMiss is returned when no summary is cached for the merchant.
var ErrCacheMiss = errors.New("cache miss")

const summaryKeyPrefix = "trust:summary:"

// SummaryCache caches trust summaries in Redis with a TTL.
type SummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSummaryCache creates a summary cache with the given TTL.
func NewSummaryCache(client *redis.Client, ttl time.Duration) *SummaryCache {
	return &SummaryCache{client: client, ttl: ttl}
}

func summaryKey(merchantID uuid.UUID) string {
	return summaryKeyPrefix + merchantID.String()
}

// Get returns the cached summary or ErrCacheMiss.
func (c *SummaryCache) Get(ctx context.Context, merchantID uuid.UUID) (*domain.TrustSummary, error) {
	data, err := c.client.Get(ctx, summaryKey(merchantID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("cache get: %w", err)
	}

	var s domain.TrustSummary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("cache unmarshal: %w", err)
	}
	return &s, nil
}

// Set stores a summary with the configured TTL.
func (c *SummaryCache) Set(ctx context.Context, s *domain.TrustSummary) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	if err := c.client.Set(ctx, summaryKey(s.MerchantID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Invalidate drops the cached summary so the next read hits the database.
func (c *SummaryCache) Invalidate(ctx context.Context, merchantID uuid.UUID) error {
	if err := c.client.Del(ctx, summaryKey(merchantID)).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}
