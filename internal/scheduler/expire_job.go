package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/set-night/coinledger/internal/config"
	"github.com/set-night/coinledger/internal/service"
	"github.com/set-night/coinledger/internal/telegram"
)

const expireJobName = "expire-coins"

// ExpireJob runs the coin expiration sweep on a schedule.
type ExpireJob struct {
	expire   *service.ExpireService
	notifier *telegram.Notifier
	timeout  time.Duration
}

func NewExpireJob(expire *service.ExpireService, notifier *telegram.Notifier) *ExpireJob {
	return &ExpireJob{expire: expire, notifier: notifier, timeout: config.ExpireBatchTimeout}
}

// Run performs one sweep bounded by the job timeout and reports the outcome.
func (j *ExpireJob) Run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	slog.Info("scheduled expiration sweep starting")
	result, err := j.expire.Run(ctx)
	if err != nil {
		slog.Error("scheduled expiration sweep failed", "error", err)
		j.notifier.LogError(err, "scheduled expire batch")
		return
	}
	j.notifier.LogExpireResult(result)
}

// Start registers job on a new scheduler using the configured cron expression
// and timezone. Overlapping runs are skipped rather than queued.
func Start(ctx context.Context, cfg *config.Config, job *ExpireJob) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(cfg.Location()))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	_, err = s.NewJob(
		gocron.CronJob(cfg.ExpireCron, false),
		gocron.NewTask(func() { job.Run(ctx) }),
		gocron.WithName(expireJobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("schedule %s (%q): %w", expireJobName, cfg.ExpireCron, err)
	}

	s.Start()
	slog.Info("expiration sweep scheduled", "cron", cfg.ExpireCron, "timezone", cfg.ExpireTimezone)
	return s, nil
}
