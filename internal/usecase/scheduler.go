package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/V4T54L/hookwatch/internal/adapter/metrics"
	"github.com/V4T54L/hookwatch/internal/domain"
)

// Scheduler runs tasks on a fixed interval. Invocations of one task never
// overlap: the next wait starts after the previous run returns.
type Scheduler struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewScheduler creates a Scheduler. The logger receives task failures; it
// should not feed the webhook sink, or a failing flush would report itself.
func NewScheduler(logger *slog.Logger, m *metrics.Metrics) *Scheduler {
	return &Scheduler{
		logger:  logger.With("component", "scheduler"),
		metrics: m,
	}
}

// Run blocks, invoking task every interval until ctx is cancelled. Errors
// and panics from a run are logged and never stop the loop.
func (s *Scheduler) Run(ctx context.Context, task domain.Task, interval time.Duration) {
	timer := time.NewTimer(interval)
	defer timer.Stop()

	s.logger.Info("task scheduled", "task", task.Name(), "interval", interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("task stopped", "task", task.Name())
			return
		case <-timer.C:
			if err := s.runOnce(ctx, task); err != nil {
				s.logger.Error("task run failed", "task", task.Name(), "error", err)
				if s.metrics != nil {
					s.metrics.TaskFailures.WithLabelValues(task.Name()).Inc()
				}
			}
			timer.Reset(interval)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, task domain.Task) (err error) {
	if s.metrics != nil {
		s.metrics.TaskRuns.WithLabelValues(task.Name()).Inc()
	}
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.TaskDuration.WithLabelValues(task.Name()).Observe(time.Since(start).Seconds())
		}
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return task.Run(ctx)
}
