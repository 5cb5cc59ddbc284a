package scheduler

import (
	"context"
	"time"

	"nyxvpn/internal/domain/entitlement"
	"nyxvpn/internal/shared/biztime"
	"nyxvpn/internal/shared/logger"
)

// Notification de-dup kinds. The mark key carries the window end, so a
// renewal with a new end date notifies again.
const (
	notifyKindExpired      = "expired"
	notifyKindExpiringSoon = "three_days"
)

// Notifier delivers expiry messages to one recipient.
type Notifier interface {
	SendExpired(ctx context.Context, tgID int64) error
	SendExpiringSoon(ctx context.Context, tgID int64, endAt time.Time) error
}

// NotifyMarker remembers which notifications already went out.
type NotifyMarker interface {
	WasNotified(ctx context.Context, kind string, tgID int64, endAt time.Time) (bool, error)
	MarkNotified(ctx context.Context, kind string, tgID int64, endAt time.Time) error
}

// EntitlementCleaner drops an account's entitlement from store and cache.
type EntitlementCleaner interface {
	ClearEntitlement(ctx context.Context, tgID int64) error
}

// NotifyJob walks every entitlement window and delivers expiry messages.
// Expired windows get a final notice and are cleared; windows ending within
// the lookahead get a warning. Marks are written even when delivery fails:
// one message per window end, attempted once.
type NotifyJob struct {
	store     entitlement.Repository
	marks     NotifyMarker
	notifier  Notifier
	cleaner   EntitlementCleaner
	lookahead time.Duration
	logger    logger.Interface
}

func NewNotifyJob(
	store entitlement.Repository,
	marks NotifyMarker,
	notifier Notifier,
	cleaner EntitlementCleaner,
	lookahead time.Duration,
	log logger.Interface,
) *NotifyJob {
	return &NotifyJob{
		store:     store,
		marks:     marks,
		notifier:  notifier,
		cleaner:   cleaner,
		lookahead: lookahead,
		logger:    log,
	}
}

func (j *NotifyJob) Execute(ctx context.Context) (int, error) {
	windows, err := j.store.ListWindows(ctx)
	if err != nil {
		return 0, err
	}

	now := biztime.NowUTC()
	processed := 0
	for _, w := range windows {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}

		switch {
		case w.EndAt.Before(now):
			if j.handleExpired(ctx, w) {
				processed++
			}
		case w.EndAt.Sub(now) <= j.lookahead:
			if j.handleExpiringSoon(ctx, w) {
				processed++
			}
		}
	}
	return processed, nil
}

func (j *NotifyJob) handleExpired(ctx context.Context, w entitlement.Window) bool {
	notified, err := j.marks.WasNotified(ctx, notifyKindExpired, w.TgID, w.EndAt)
	if err != nil || notified {
		return false
	}

	if err := j.notifier.SendExpired(ctx, w.TgID); err != nil {
		j.logger.Warnw("failed to deliver expiry notice",
			"tg_id", w.TgID, "end_at", w.EndAt, "error", err)
	}
	if err := j.marks.MarkNotified(ctx, notifyKindExpired, w.TgID, w.EndAt); err != nil {
		j.logger.Warnw("failed to mark expiry notice", "tg_id", w.TgID, "error", err)
	}

	if err := j.cleaner.ClearEntitlement(ctx, w.TgID); err != nil {
		j.logger.Errorw("failed to clear expired entitlement",
			"tg_id", w.TgID, "error", err)
	}
	return true
}

func (j *NotifyJob) handleExpiringSoon(ctx context.Context, w entitlement.Window) bool {
	notified, err := j.marks.WasNotified(ctx, notifyKindExpiringSoon, w.TgID, w.EndAt)
	if err != nil || notified {
		return false
	}

	if err := j.notifier.SendExpiringSoon(ctx, w.TgID, w.EndAt); err != nil {
		j.logger.Warnw("failed to deliver expiring-soon notice",
			"tg_id", w.TgID, "end_at", w.EndAt, "error", err)
	}
	if err := j.marks.MarkNotified(ctx, notifyKindExpiringSoon, w.TgID, w.EndAt); err != nil {
		j.logger.Warnw("failed to mark expiring-soon notice", "tg_id", w.TgID, "error", err)
	}
	return true
}
