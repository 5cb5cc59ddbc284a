package scheduler

import (
	"context"
	"time"

	"nyxvpn/internal/domain/entitlement"
	"nyxvpn/internal/shared/biztime"
	"nyxvpn/internal/shared/logger"
)

// PurgeJob deletes entitlement rows that expired longer ago than the grace
// window. The grace keeps recently lapsed rows around so the notify sweep
// can still see them.
type PurgeJob struct {
	store  entitlement.Repository
	grace  time.Duration
	logger logger.Interface
}

func NewPurgeJob(store entitlement.Repository, grace time.Duration, log logger.Interface) *PurgeJob {
	return &PurgeJob{store: store, grace: grace, logger: log}
}

func (j *PurgeJob) Execute(ctx context.Context) (int, error) {
	cutoff := biztime.NowUTC().Add(-j.grace)
	purged, err := j.store.PurgeExpired(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if purged > 0 {
		j.logger.Infow("purged expired entitlements", "count", purged, "cutoff", cutoff)
	}
	return int(purged), nil
}
