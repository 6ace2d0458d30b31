// Package cache provides a Redis-backed read-through cache for campaign
// analytics. Analytics are derived data with a short shelf life, so a small
// TTL is enough; the authoritative numbers always come from the campaign
// store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"pledger/internal/campaign"
	id "pledger/pkg/domain"
)

const keyPrefix = "pledger:analytics:"

// AnalyticsCache caches campaign analytics snapshots in Redis.
type AnalyticsCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAnalyticsCache(client *redis.Client, ttl time.Duration) *AnalyticsCache {
	return &AnalyticsCache{client: client, ttl: ttl}
}

// Get returns a cached snapshot if present. Cache errors read as misses.
func (c *AnalyticsCache) Get(ctx context.Context, campaignID id.CampaignID) (*campaign.Analytics, bool) {
	payload, err := c.client.Get(ctx, keyPrefix+campaignID.String()).Bytes()
	if errors.Is(err, redis.Nil) || err != nil {
		return nil, false
	}
	var a campaign.Analytics
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, false
	}
	return &a, true
}

// Set stores a snapshot with the configured TTL. Failures are ignored; the
// next read recomputes.
func (c *AnalyticsCache) Set(ctx context.Context, campaignID id.CampaignID, a *campaign.Analytics) {
	payload, err := json.Marshal(a)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, keyPrefix+campaignID.String(), payload, c.ttl).Err()
}
