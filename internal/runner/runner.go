// Package runner executes every registered probe under bounded parallelism
// and per-probe timeouts, and collects the outcomes into a report.
package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/readycheck/internal/probe"
	"github.com/hamed0406/readycheck/internal/registry"
	"github.com/hamed0406/readycheck/internal/report"
)

// DefaultConcurrency keeps shared daemons (the container runtime, a single
// database) from being hit by every probe at once.
const DefaultConcurrency = 4

// abandonGrace is how long runOne still waits for a probe once its deadline
// has passed.
const abandonGrace = 50 * time.Millisecond

// Observer is notified of each outcome as it completes and of the finished
// report. ObserveOutcome is called from worker goroutines.
type Observer interface {
	ObserveOutcome(probe.Outcome)
	ObserveReport(report.Report)
}

type Runner struct {
	Logger       *zap.Logger
	Probers      probe.Set
	RetryBackoff time.Duration
	Observers    []Observer
}

func New(logger *zap.Logger, probers probe.Set, retryBackoff time.Duration, observers ...Observer) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		Logger:       logger,
		Probers:      probers,
		RetryBackoff: retryBackoff,
		Observers:    observers,
	}
}

// RunAll executes every definition in reg once. It always returns a report
// with exactly one outcome per definition, in registration order. Cancelling
// ctx stops scheduling; probes not yet started are recorded as errors.
func (r *Runner) RunAll(ctx context.Context, reg *registry.Registry, limit int) report.Report {
	defs := reg.All()
	if limit < 1 {
		limit = 1
	}

	started := time.Now()
	// each worker writes only its own slot, so the slice needs no lock
	outcomes := make([]probe.Outcome, len(defs))
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for i, def := range defs {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			outcomes[i] = cancelled(def, ctx.Err())
			r.notify(outcomes[i])
			continue
		}

		i, def := i, def
		wg.Add(1)
		go func() {
			defer func() { <-sem }()
			defer wg.Done()

			outcomes[i] = r.runOne(ctx, def)
			r.notify(outcomes[i])
		}()
	}
	wg.Wait()

	rep := report.New(outcomes, started, time.Now())
	for _, o := range r.Observers {
		o.ObserveReport(rep)
	}
	r.Logger.Info("run_finished",
		zap.String("run_id", rep.ID),
		zap.Bool("healthy", rep.Healthy),
		zap.Int("probes", len(rep.Outcomes)),
		zap.Int("healthy_probes", rep.HealthyCount()),
		zap.Duration("duration", rep.Duration()),
	)
	return rep
}

// runOne gives def its own deadline and waits for the probe or the deadline,
// whichever comes first. A probe still running abandonGrace after the deadline
// is abandoned; its late result lands in a buffered channel and is dropped.
func (r *Runner) runOne(ctx context.Context, def probe.Definition) probe.Outcome {
	var (
		pctx   context.Context
		cancel context.CancelFunc
	)
	if def.Timeout > 0 {
		pctx, cancel = context.WithTimeout(ctx, def.Timeout)
	} else {
		pctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	start := time.Now()
	done := make(chan probe.Outcome, 1)
	go func() {
		done <- probe.Execute(pctx, r.Probers.For(def, r.RetryBackoff), def)
	}()

	select {
	case out := <-done:
		return out
	case <-pctx.Done():
		// a probe that honours its context returns right after the deadline
		// with a better reason than ours
		select {
		case out := <-done:
			return out
		case <-time.After(abandonGrace):
		}
		if errors.Is(pctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			r.Logger.Warn("probe_abandoned", zap.String("probe", def.Name), zap.Duration("timeout", def.Timeout))
			return probe.TimeoutOutcome(def, time.Since(start))
		}
		out := cancelled(def, ctx.Err())
		out.Latency = time.Since(start)
		return out
	}
}

func (r *Runner) notify(o probe.Outcome) {
	lvl := zap.DebugLevel
	if !o.OK() {
		lvl = zap.WarnLevel
	}
	if ce := r.Logger.Check(lvl, "probe_done"); ce != nil {
		ce.Write(
			zap.String("probe", o.Probe),
			zap.String("kind", string(o.Kind)),
			zap.String("status", o.Status.String()),
			zap.Float64("latency_ms", o.LatencyMS()),
			zap.Int("attempts", o.Attempts),
			zap.String("reason", o.Reason),
		)
	}
	for _, obs := range r.Observers {
		obs.ObserveOutcome(o)
	}
}

func cancelled(def probe.Definition, err error) probe.Outcome {
	reason := "run cancelled"
	if err != nil {
		reason += ": " + err.Error()
	}
	return probe.Outcome{Probe: def.Name, Kind: def.Kind, Status: probe.StatusError, Reason: reason, Attempts: 0}
}
