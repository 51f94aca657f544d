package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/readycheck/internal/registry"
	"github.com/hamed0406/readycheck/internal/repo"
	"github.com/hamed0406/readycheck/internal/report"
	"github.com/hamed0406/readycheck/internal/runner"
)

// ReportHook is told about every stored report.
type ReportHook interface {
	Process(ctx context.Context, r report.Report) error
}

// Watcher re-runs the registry on a fixed interval and stores each report.
type Watcher struct {
	Logger      *zap.Logger
	Runner      *runner.Runner
	Registry    *registry.Registry
	Reports     repo.ReportStore
	Interval    time.Duration
	Concurrency int
	Hooks       []ReportHook

	// one run at a time, whether from the ticker or Trigger
	mu sync.Mutex
}

func NewWatcher(
	logger *zap.Logger,
	r *runner.Runner,
	reg *registry.Registry,
	reports repo.ReportStore,
	interval time.Duration,
	concurrency int,
	hooks ...ReportHook,
) *Watcher {
	if concurrency < 1 {
		concurrency = runner.DefaultConcurrency
	}
	if interval < 0 {
		interval = 0
	}
	return &Watcher{
		Logger:      logger,
		Runner:      r,
		Registry:    reg,
		Reports:     reports,
		Interval:    interval,
		Concurrency: concurrency,
		Hooks:       hooks,
	}
}

// Run does an immediate pass, then one per tick, until ctx is cancelled.
// A zero interval disables the loop.
func (w *Watcher) Run(ctx context.Context) {
	if w.Interval == 0 {
		w.Logger.Info("watcher_disabled")
		return
	}
	t := time.NewTicker(w.Interval)
	defer t.Stop()

	w.Trigger(ctx)

	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("watcher_stopped")
			return
		case <-t.C:
			w.Trigger(ctx)
		}
	}
}

// Trigger runs the registry once, stores the report and runs the hooks.
func (w *Watcher) Trigger(ctx context.Context) report.Report {
	w.mu.Lock()
	defer w.mu.Unlock()

	rep := w.Runner.RunAll(ctx, w.Registry, w.Concurrency)
	if ctx.Err() != nil {
		// a cancelled run says nothing about the services
		return rep
	}
	if err := w.Reports.Append(ctx, rep); err != nil {
		w.Logger.Warn("watcher_append_error", zap.String("run_id", rep.ID), zap.Error(err))
	}
	for _, h := range w.Hooks {
		if err := h.Process(ctx, rep); err != nil {
			w.Logger.Warn("watcher_hook_error", zap.String("run_id", rep.ID), zap.Error(err))
		}
	}
	return rep
}
