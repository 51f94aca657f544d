package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/hamed0406/readycheck/internal/notify"
	"github.com/hamed0406/readycheck/internal/probe"
	"github.com/hamed0406/readycheck/internal/repo"
	"github.com/hamed0406/readycheck/internal/report"
)

type AlerterConfig struct {
	AlertOnRecovery bool
	Cooldown        time.Duration
}

// Alerter sends a notification when a probe changes between healthy and
// unhealthy. Repeated DOWN alerts are held back by the cooldown.
type Alerter struct {
	alertDB  repo.AlertStore
	notifier notify.Notifier
	cfg      AlerterConfig
	now      func() time.Time
}

func NewAlerter(alertDB repo.AlertStore, notifier notify.Notifier, cfg AlerterConfig) *Alerter {
	return &Alerter{
		alertDB:  alertDB,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Process compares each outcome of r with the last recorded state.
func (a *Alerter) Process(ctx context.Context, r report.Report) error {
	now := a.now()
	var errs error

	for _, o := range r.Outcomes {
		rec, err := a.alertDB.Get(ctx, o.Probe)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		up := o.OK()

		// A probe seen for the first time and healthy is not news.
		stateChanged := (rec == nil && !up) || (rec != nil && rec.LastState != up)

		// Cooldown only matters for DOWN alerts (suppresses flapping).
		cooled := true
		if rec != nil && rec.LastSentAt != nil {
			cooled = now.Sub(*rec.LastSentAt) >= a.cfg.Cooldown
		}

		downAlert := stateChanged && !up && cooled
		recoveryAlert := stateChanged && up && a.cfg.AlertOnRecovery // bypass cooldown

		switch {
		case downAlert || recoveryAlert:
			title, text := message(o, r.FinishedAt)
			errs = multierr.Append(errs, a.notifier.Send(ctx, title, text))
			errs = multierr.Append(errs, a.alertDB.Set(ctx, o.Probe, up, now))
		case rec == nil || stateChanged:
			// record the state without a send time so cooldown is not reset
			var sent time.Time
			if rec != nil && rec.LastSentAt != nil {
				sent = *rec.LastSentAt
			}
			errs = multierr.Append(errs, a.alertDB.Set(ctx, o.Probe, up, sent))
		}
	}
	return errs
}

func message(o probe.Outcome, at time.Time) (string, string) {
	title := fmt.Sprintf("🔴 %s %s", o.Probe, report.Label(o.Status))
	if o.OK() {
		title = fmt.Sprintf("🟢 %s RECOVERED", o.Probe)
	}
	reason := o.Reason
	if reason == "" {
		reason = "n/a"
	}
	text := fmt.Sprintf(
		"Kind: %s\nStatus: %s\nLatency: %.0f ms\nReason: %s\nChecked: %s",
		o.Kind, o.Status, o.LatencyMS(), reason, at.Format(time.RFC3339),
	)
	return title, text
}
