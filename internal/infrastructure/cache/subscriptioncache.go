package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"nyxvpn/internal/domain/entitlement"
	"nyxvpn/internal/shared/biztime"
	"nyxvpn/internal/shared/logger"
)

const subscriptionKeyPrefix = "subscription:"

// cachedSubscription is the JSON payload mirrored into redis. The field set
// matches the durable row so a cache hit can serve a status request alone.
type cachedSubscription struct {
	StartAt          time.Time `json:"start_at"`
	EndAt            time.Time `json:"end_at"`
	SubscriptionLink string    `json:"subscription_link"`
	Instructions     string    `json:"instructions"`
	Country          string    `json:"country"`
}

// SubscriptionCache mirrors entitlements into redis with a TTL bounded by the
// subscription end, so stale windows age out on their own. Cache transport
// failures are logged and swallowed: callers fall through to the durable
// store instead of failing the request.
type SubscriptionCache struct {
	client *redis.Client
	logger logger.Interface
}

func NewSubscriptionCache(client *redis.Client, log logger.Interface) entitlement.Cache {
	return &SubscriptionCache{client: client, logger: log}
}

func subscriptionKey(tgID int64) string {
	return fmt.Sprintf("%s%d", subscriptionKeyPrefix, tgID)
}

func (c *SubscriptionCache) Set(ctx context.Context, e *entitlement.Entitlement) error {
	ttl := e.TTL(biztime.NowUTC())
	if ttl <= 0 {
		return nil
	}

	payload := cachedSubscription{
		StartAt:          e.StartAt,
		EndAt:            e.EndAt,
		SubscriptionLink: e.SubscriptionLink,
		Instructions:     e.Instructions,
		Country:          string(e.Region),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal cached subscription: %w", err)
	}

	if err := c.client.Set(ctx, subscriptionKey(e.TgID), data, ttl).Err(); err != nil {
		c.logger.Warnw("subscription cache write failed", "tg_id", e.TgID, "error", err)
	}
	return nil
}

func (c *SubscriptionCache) Get(ctx context.Context, tgID int64) (*entitlement.Entitlement, error) {
	data, err := c.client.Get(ctx, subscriptionKey(tgID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warnw("subscription cache read failed", "tg_id", tgID, "error", err)
		}
		return nil, nil
	}

	var payload cachedSubscription
	if err := json.Unmarshal(data, &payload); err != nil {
		c.logger.Warnw("subscription cache entry corrupt", "tg_id", tgID, "error", err)
		c.deleteQuietly(ctx, tgID)
		return nil, nil
	}

	e := &entitlement.Entitlement{
		TgID:             tgID,
		StartAt:          payload.StartAt,
		EndAt:            payload.EndAt,
		SubscriptionLink: payload.SubscriptionLink,
		Instructions:     payload.Instructions,
		Region:           entitlement.Region(payload.Country),
	}
	e.Normalize()

	if !e.IsActive(biztime.NowUTC()) {
		c.deleteQuietly(ctx, tgID)
		return nil, nil
	}
	return e, nil
}

func (c *SubscriptionCache) Clear(ctx context.Context, tgID int64) error {
	if err := c.client.Del(ctx, subscriptionKey(tgID)).Err(); err != nil {
		c.logger.Warnw("subscription cache delete failed", "tg_id", tgID, "error", err)
	}
	return nil
}

func (c *SubscriptionCache) deleteQuietly(ctx context.Context, tgID int64) {
	if err := c.client.Del(ctx, subscriptionKey(tgID)).Err(); err != nil {
		c.logger.Debugw("subscription cache delete failed", "tg_id", tgID, "error", err)
	}
}
