package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"nyxvpn/internal/shared/biztime"
	"nyxvpn/internal/shared/logger"
)

// Marks outlive the subscription end by a week so a sweep restarted shortly
// after expiry still sees them.
const notifyMarkRetention = 7 * 24 * time.Hour

// NotifyMarkStore records which expiry notifications have already been sent.
// Keys carry the window end, so a renewed subscription with a new end date
// notifies again. Like the subscription cache it degrades when redis is
// down: an unreadable mark reports "not notified", which at worst repeats a
// notification.
type NotifyMarkStore struct {
	client *redis.Client
	logger logger.Interface
}

func NewNotifyMarkStore(client *redis.Client, log logger.Interface) *NotifyMarkStore {
	return &NotifyMarkStore{client: client, logger: log}
}

func notifyMarkKey(kind string, tgID int64, endAt time.Time) string {
	return fmt.Sprintf("notify:%s:%d:%s", kind, tgID, biztime.EnsureUTC(endAt).Format(time.RFC3339))
}

func (s *NotifyMarkStore) WasNotified(ctx context.Context, kind string, tgID int64, endAt time.Time) (bool, error) {
	n, err := s.client.Exists(ctx, notifyMarkKey(kind, tgID, endAt)).Result()
	if err != nil {
		s.logger.Warnw("notify mark read failed", "kind", kind, "tg_id", tgID, "error", err)
		return false, nil
	}
	return n > 0, nil
}

func (s *NotifyMarkStore) MarkNotified(ctx context.Context, kind string, tgID int64, endAt time.Time) error {
	ttl := biztime.Until(endAt.Add(notifyMarkRetention))
	if ttl < notifyMarkRetention {
		ttl = notifyMarkRetention
	}

	if err := s.client.Set(ctx, notifyMarkKey(kind, tgID, endAt), "1", ttl).Err(); err != nil {
		s.logger.Warnw("notify mark write failed", "kind", kind, "tg_id", tgID, "error", err)
	}
	return nil
}
