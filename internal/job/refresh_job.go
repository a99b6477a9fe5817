package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"liquidity-monitor/internal/domain"
	"liquidity-monitor/internal/service"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Refresher runs one fetch-and-upsert cycle.
type Refresher interface {
	RefreshAll(ctx context.Context) (domain.RefreshResult, error)
}

// RefreshJob refreshes the observation store on a cron schedule. Runs never
// overlap: a tick that fires while a refresh is still running is skipped.
type RefreshJob struct {
	tracer     trace.Tracer
	logger     *zap.Logger
	refresher  Refresher
	schedule   cron.Schedule
	runOnStart bool
}

// NewRefreshJob parses spec as a standard five-field cron expression or a
// descriptor such as "@every 6h" or "@daily".
func NewRefreshJob(tracer trace.Tracer, logger *zap.Logger, refresher Refresher, spec string, runOnStart bool) (*RefreshJob, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse refresh schedule %q: %w", spec, err)
	}
	return &RefreshJob{
		tracer:     tracer,
		logger:     logger,
		refresher:  refresher,
		schedule:   schedule,
		runOnStart: runOnStart,
	}, nil
}

// Start schedules the refresh and blocks until ctx is cancelled.
func (j *RefreshJob) Start(ctx context.Context) {
	cronLogger := cron.PrintfLogger(zap.NewStdLog(j.logger))
	c := cron.New(cron.WithChain(
		cron.Recover(cronLogger),
		cron.SkipIfStillRunning(cronLogger),
	))
	c.Schedule(j.schedule, cron.FuncJob(func() { j.runOnce(ctx) }))

	j.logger.Info("refresh job starting", zap.Time("next_run", j.schedule.Next(time.Now())))
	if j.runOnStart {
		go j.runOnce(ctx)
	}
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	j.logger.Info("refresh job stopped")
}

func (j *RefreshJob) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	ctx, span := j.tracer.Start(ctx, "refresh-job.run")
	defer span.End()

	res, err := j.refresher.RefreshAll(ctx)
	switch {
	case errors.Is(err, service.ErrRefreshInProgress):
		j.logger.Info("refresh skipped, another cycle is running")
	case err != nil:
		j.logger.Error("scheduled refresh failed", zap.Error(err))
	default:
		j.logger.Info("scheduled refresh done",
			zap.String("run_id", res.RunID),
			zap.Int("upserted", res.Total),
			zap.Duration("duration", res.Duration),
		)
	}
}
