package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/scribe/pkg/lifecycle"
)

// Task is a named job run every Interval. A non-positive Interval disables it.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Intervals configures the standard tasks.
type Intervals struct {
	Review  time.Duration
	Rewrite time.Duration
	Sweep   time.Duration
	Cleanup time.Duration
}

// Tasks returns the review, rewrite, sweep and usage cleanup tasks.
func (r *Runner) Tasks(iv Intervals) []Task {
	return []Task{
		{Name: "review", Interval: iv.Review, Run: func(ctx context.Context) error {
			_, err := r.ReviewDrafts(ctx, 0)
			return err
		}},
		{Name: "rewrite", Interval: iv.Rewrite, Run: func(ctx context.Context) error {
			_, err := r.RewritePending(ctx, 0)
			return err
		}},
		{Name: "sweep", Interval: iv.Sweep, Run: func(ctx context.Context) error {
			_, err := r.SweepDeleted(ctx)
			return err
		}},
		{Name: "usage_cleanup", Interval: iv.Cleanup, Run: func(ctx context.Context) error {
			_, err := r.CleanupUsage(ctx)
			return err
		}},
	}
}

// Scheduler runs each task on its own ticker. A task never overlaps itself
// because ticks that arrive while it runs are dropped.
type Scheduler struct {
	tasks  []Task
	logger *slog.Logger
}

func NewScheduler(logger *slog.Logger, tasks ...Task) *Scheduler {
	return &Scheduler{
		tasks:  tasks,
		logger: logger.With("system", "scheduler"),
	}
}

// Start launches the enabled tasks bound to the coordinator context and
// registers a shutdown hook that waits for them to return.
func (s *Scheduler) Start(lc *lifecycle.Coordinator) error {
	ctx := lc.Context()
	var g errgroup.Group

	for _, t := range s.tasks {
		if t.Interval <= 0 || t.Run == nil {
			s.logger.Info("task disabled", "task", t.Name)
			continue
		}
		s.logger.Info("task scheduled", "task", t.Name, "interval", t.Interval)
		g.Go(func() error {
			s.loop(ctx, t)
			return nil
		})
	}

	lc.OnShutdown(func() {
		<-ctx.Done()
		g.Wait()
		s.logger.Info("scheduler stopped")
	})

	return nil
}

func (s *Scheduler) loop(ctx context.Context, t Task) {
	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			if err := t.Run(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("task failed", "task", t.Name, "error", err)
				continue
			}
			s.logger.Debug("task complete", "task", t.Name, "elapsed", time.Since(start))
		}
	}
}
