// Package scheduler runs the reconciliation sweeps using gocron v2.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	sharedConfig "nyxvpn/internal/shared/config"
	"nyxvpn/internal/shared/logger"
)

// BatchJob is one reconciliation sweep. Execute processes a full batch and
// returns how many items it touched.
type BatchJob interface {
	Execute(ctx context.Context) (int, error)
}

// Manager owns the single gocron scheduler behind all periodic jobs.
type Manager struct {
	scheduler gocron.Scheduler
	logger    logger.Interface

	started   bool
	startedMu sync.RWMutex
}

func NewManager(log logger.Interface) (*Manager, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return nil, err
	}

	return &Manager{
		scheduler: scheduler,
		logger:    log,
	}, nil
}

// RegisterReconcilerJobs registers the two reconciliation sweeps: the purge
// of long-expired entitlement rows and the expiry notification sweep. Both
// run immediately on startup and then on their configured intervals.
func (m *Manager) RegisterReconcilerJobs(cfg sharedConfig.SchedulerConfig, purgeJob, notifyJob BatchJob) error {
	purgeInterval := time.Duration(cfg.PurgeIntervalHours) * time.Hour
	_, err := m.scheduler.NewJob(
		gocron.DurationJob(purgeInterval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			m.runSweep(ctx, "entitlement-purge", purgeJob)
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("entitlement-purge"),
	)
	if err != nil {
		return err
	}

	notifyInterval := time.Duration(cfg.NotifyIntervalHours) * time.Hour
	_, err = m.scheduler.NewJob(
		gocron.DurationJob(notifyInterval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
			defer cancel()
			m.runSweep(ctx, "expiry-notify", notifyJob)
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("expiry-notify"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered reconciler jobs",
		"purge_interval", purgeInterval, "notify_interval", notifyInterval)
	return nil
}

func (m *Manager) runSweep(ctx context.Context, name string, job BatchJob) {
	start := time.Now()
	count, err := job.Execute(ctx)
	if err != nil {
		m.logger.Errorw("sweep failed",
			"job", name, "error", err, "duration", time.Since(start))
		return
	}
	if count > 0 {
		m.logger.Infow("sweep finished",
			"job", name, "count", count, "duration", time.Since(start))
	}
}

// Start starts the scheduler and all registered jobs.
func (m *Manager) Start() {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if m.started {
		return
	}

	m.scheduler.Start()
	m.started = true
	m.logger.Infow("scheduler started", "job_count", len(m.scheduler.Jobs()))
}

// Stop shuts the scheduler down and waits for running jobs to finish.
func (m *Manager) Stop() error {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if !m.started {
		return nil
	}

	err := m.scheduler.Shutdown()
	m.started = false
	if err != nil {
		m.logger.Errorw("scheduler shutdown with error", "error", err)
		return err
	}

	m.logger.Infow("scheduler stopped")
	return nil
}
