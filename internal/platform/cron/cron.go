package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs recurring jobs such as the Informer sync.
type Scheduler struct {
	*cron.Cron
}

type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}

// NewScheduler returns a scheduler that skips a run while the previous one is still going.
func NewScheduler(logger *slog.Logger) *Scheduler {
	cl := cronLogger{logger: logger.With("component", "cron")}
	return &Scheduler{
		Cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.SkipIfStillRunning(cl), cron.Recover(cl)),
		),
	}
}

// Run starts the scheduler and blocks until ctx is done, then waits for running jobs.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Start()
	<-ctx.Done()
	s.Shutdown()
	return nil
}

// Shutdown stops scheduling and waits up to 30s for running jobs.
func (s *Scheduler) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	select {
	case <-s.Stop().Done():
	case <-ctx.Done():
	}
}

// AddJob registers fn under spec with a context bounded by the scheduler lifetime.
func (s *Scheduler) AddJob(ctx context.Context, spec string, fn func(context.Context)) (cron.EntryID, error) {
	return s.AddFunc(spec, func() { fn(ctx) })
}
