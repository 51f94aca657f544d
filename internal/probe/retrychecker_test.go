package probe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fake prober you can control
type fakeChecker struct {
	results []Raw
	errs    []error
	i       int
}

func (f *fakeChecker) Probe(ctx context.Context, def Definition) (Raw, error) {
	if f.i >= len(f.results) {
		return Raw{}, errors.New("no more")
	}
	r, err := f.results[f.i], f.errs[f.i]
	f.i++
	return r, err
}

func TestRetryChecker_SucceedsAfterRetry(t *testing.T) {
	f := &fakeChecker{
		results: []Raw{{}, {StatusCode: 503}, {StatusCode: 200}},
		errs:    []error{errors.New("connection refused"), nil, nil},
	}
	p := Retrying(f, 3, time.Millisecond)
	def := Definition{Name: "api", Kind: KindHTTP}

	out := Execute(context.Background(), p, def)
	assert.True(t, out.OK(), "expected success after retry, got %+v", out)
	assert.Equal(t, 3, out.Attempts)
}

func TestRetryChecker_AllFailKeepsLastObservation(t *testing.T) {
	f := &fakeChecker{
		results: []Raw{{StatusCode: 500}, {StatusCode: 502}},
		errs:    []error{nil, nil},
	}
	p := Retrying(f, 2, 0)
	out := Execute(context.Background(), p, Definition{Name: "api", Kind: KindHTTP})
	assert.Equal(t, StatusFailure, out.Status)
	assert.Contains(t, out.Reason, "502")
	assert.Equal(t, 2, out.Attempts)
	assert.Equal(t, 2, f.i, "inner runs once per attempt")
}

func TestRetryChecker_FaultIsNotRetried(t *testing.T) {
	f := &fakeChecker{
		results: []Raw{{}, {}},
		errs:    []error{Fault(errors.New("no such binary")), nil},
	}
	out := Execute(context.Background(), Retrying(f, 5, time.Millisecond), Definition{Name: "x", Kind: KindCommand})
	assert.Equal(t, StatusError, out.Status)
	assert.Equal(t, 1, f.i, "fault should stop retries")
}

func TestRetryChecker_DeadlineKeepsLastError(t *testing.T) {
	refused := ProberFunc(func(context.Context, Definition) (Raw, error) {
		return Raw{}, errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")
	})
	def := Definition{Name: "Redis", Kind: KindTCP, Timeout: 120 * time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), def.Timeout)
	defer cancel()

	out := Execute(ctx, Retrying(refused, 20, 50*time.Millisecond), def)
	require.Equal(t, StatusTimeout, out.Status)
	assert.Contains(t, out.Reason, "timed out after 120ms")
	assert.Contains(t, out.Reason, "connection refused")
	assert.Contains(t, out.Detail, "connection refused")
	assert.Greater(t, out.Attempts, 1)
}

func TestRetrying_SingleAttemptIsPassthrough(t *testing.T) {
	f := &fakeChecker{}
	assert.Same(t, f, Retrying(f, 1, time.Second))
}
