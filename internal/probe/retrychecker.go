package probe

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryChecker re-runs Inner when an observation is unhealthy, with
// exponential backoff, until it succeeds, Attempts is exhausted or ctx ends.
// Retries share the probe's deadline: they never extend it.
type RetryChecker struct {
	Inner    Prober
	Attempts int
	Backoff  time.Duration // initial interval
}

// Retrying wraps p. attempts <= 1 returns p unchanged.
func Retrying(p Prober, attempts int, initial time.Duration) Prober {
	if attempts <= 1 {
		return p
	}
	return &RetryChecker{Inner: p, Attempts: attempts, Backoff: initial}
}

func (r *RetryChecker) Probe(ctx context.Context, def Definition) (Raw, error) {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}
	expect := def.Expect
	if expect == nil {
		expect = DefaultPredicate(def.Kind)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.Backoff
	if bo.InitialInterval <= 0 {
		bo.InitialInterval = 100 * time.Millisecond
	}
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(attempts-1)), ctx)

	var (
		last    Raw
		lastErr error
		n       int
	)
	op := func() error {
		n++
		last, lastErr = r.Inner.Probe(ctx, def)
		switch {
		case lastErr != nil && (IsFault(lastErr) || ctx.Err() != nil):
			// faults will not fix themselves and a dead context cannot be retried
			return backoff.Permanent(lastErr)
		case lastErr != nil:
			return lastErr
		case !expect(last):
			return errUnhealthy
		}
		return nil
	}
	_ = backoff.Retry(op, policy)

	last.Attempts = n
	return last, lastErr
}

var errUnhealthy = errors.New("unhealthy observation")
