// Package jobs runs the periodic background work of the review service:
// digest delivery, threshold sweeps, and ledger maintenance.
package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/LogiScore/backend-sub000/internal/domain"
	"github.com/LogiScore/backend-sub000/internal/service"
)

// Config holds the job intervals and retention settings.
type Config struct {
	DailyDigestInterval   time.Duration
	WeeklyDigestInterval  time.Duration
	ThresholdSweepEvery   time.Duration
	MaintenanceEvery      time.Duration
	NotificationRetention time.Duration
}

// Runner drives the periodic jobs. Each job runs on its own ticker; a slow or
// failing job never blocks the others.
type Runner struct {
	cfg       Config
	scheduler *service.NotificationScheduler
	monitor   *service.ThresholdMonitor
	lifecycle *service.LifecycleService
	logger    *slog.Logger
}

// NewRunner creates a job runner.
func NewRunner(
	cfg Config,
	scheduler *service.NotificationScheduler,
	monitor *service.ThresholdMonitor,
	lifecycle *service.LifecycleService,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		cfg:       cfg,
		scheduler: scheduler,
		monitor:   monitor,
		lifecycle: lifecycle,
		logger:    logger,
	}
}

// Start launches every job goroutine and blocks until the context is
// canceled and all jobs have stopped.
func (r *Runner) Start(ctx context.Context) {
	var wg sync.WaitGroup

	jobs := []struct {
		name     string
		interval time.Duration
		run      func(context.Context)
	}{
		{"daily_digest", r.cfg.DailyDigestInterval, r.runDailyDigest},
		{"weekly_digest", r.cfg.WeeklyDigestInterval, r.runWeeklyDigest},
		{"threshold_sweep", r.cfg.ThresholdSweepEvery, r.runThresholdSweep},
		{"maintenance", r.cfg.MaintenanceEvery, r.runMaintenance},
	}

	for _, job := range jobs {
		if job.interval <= 0 {
			r.logger.Info("background job disabled", slog.String("job", job.name))
			continue
		}

		wg.Add(1)
		go func(name string, interval time.Duration, run func(context.Context)) {
			defer wg.Done()
			r.loop(ctx, name, interval, run)
		}(job.name, job.interval, job.run)
	}

	wg.Wait()
}

func (r *Runner) loop(ctx context.Context, name string, interval time.Duration, run func(context.Context)) {
	r.logger.Info("background job started",
		slog.String("job", name),
		slog.Duration("interval", interval),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("background job stopped", slog.String("job", name))
			return
		case <-ticker.C:
			run(ctx)
		}
	}
}

func (r *Runner) runDailyDigest(ctx context.Context) {
	sent, err := r.scheduler.DispatchDigests(ctx, domain.FrequencyDaily)
	if err != nil {
		r.logger.ErrorContext(ctx, "daily digest dispatch failed", slog.String("error", err.Error()))
		return
	}
	r.logger.InfoContext(ctx, "daily digests dispatched", slog.Int("sent", sent))
}

func (r *Runner) runWeeklyDigest(ctx context.Context) {
	sent, err := r.scheduler.DispatchDigests(ctx, domain.FrequencyWeekly)
	if err != nil {
		r.logger.ErrorContext(ctx, "weekly digest dispatch failed", slog.String("error", err.Error()))
		return
	}
	r.logger.InfoContext(ctx, "weekly digests dispatched", slog.Int("sent", sent))
}

func (r *Runner) runThresholdSweep(ctx context.Context) {
	sent, failed, err := r.monitor.CheckAll(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "threshold sweep failed", slog.String("error", err.Error()))
		return
	}
	r.logger.InfoContext(ctx, "threshold sweep complete",
		slog.Int("alerts_sent", sent),
		slog.Int("providers_failed", failed),
	)
}

// runMaintenance expires lapsed threshold subscriptions and purges old
// delivered ledger rows.
func (r *Runner) runMaintenance(ctx context.Context) {
	if _, err := r.lifecycle.ExpireStaleThresholdSubscriptions(ctx); err != nil {
		r.logger.ErrorContext(ctx, "threshold expiry sweep failed", slog.String("error", err.Error()))
	}

	if _, err := r.scheduler.PurgeDeliveredNotifications(ctx, r.cfg.NotificationRetention); err != nil {
		r.logger.ErrorContext(ctx, "notification purge failed", slog.String("error", err.Error()))
	}
}
