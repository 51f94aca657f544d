package probe

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"
)

// maxDetail bounds how much raw output is kept on an outcome.
const maxDetail = 512

// faultError marks an error that is not a connectivity problem but a fault in
// the probe itself (binary missing, unsupported kind, ...). Execute records it
// as StatusError instead of StatusFailure.
type faultError struct{ err error }

func (f *faultError) Error() string { return f.err.Error() }
func (f *faultError) Unwrap() error { return f.err }

// Fault wraps err so that Execute classifies it as an unexpected fault.
func Fault(err error) error {
	if err == nil {
		return nil
	}
	return &faultError{err: err}
}

// IsFault reports whether err was marked with Fault.
func IsFault(err error) bool {
	var f *faultError
	return errors.As(err, &f)
}

// Execute runs one probe and converts everything that can happen into an
// Outcome. It never panics. The deadline, if any, comes from ctx: the caller
// owns timeout policy.
func Execute(ctx context.Context, p Prober, def Definition) (out Outcome) {
	out = Outcome{Probe: def.Name, Kind: def.Kind, Attempts: 1}
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			out.Status = StatusError
			out.Reason = fmt.Sprintf("panic: %v", r)
			out.Detail = truncate(string(debug.Stack()))
		}
		out.Latency = time.Since(start)
	}()

	if p == nil {
		out.Status = StatusError
		out.Reason = fmt.Sprintf("no prober for kind %q", def.Kind)
		return out
	}

	raw, err := p.Probe(ctx, def)
	if raw.Attempts > 1 {
		out.Attempts = raw.Attempts
	}
	out.Detail = truncate(raw.Output)

	switch {
	case err == nil:
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		out.Status = StatusTimeout
		out.Reason = timeoutReason(def)
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			// retries ran into the deadline; keep what the last attempt saw
			out.Reason += "; last error: " + err.Error()
			out.Detail = truncate(err.Error())
		}
		return out
	case errors.Is(ctx.Err(), context.Canceled):
		out.Status = StatusError
		out.Reason = "run cancelled"
		return out
	case IsFault(err):
		out.Status = StatusError
		out.Reason = err.Error()
		return out
	default:
		out.Status = StatusFailure
		out.Reason = err.Error()
		return out
	}

	expect := def.Expect
	if expect == nil {
		expect = DefaultPredicate(def.Kind)
	}
	if expect(raw) {
		out.Status = StatusSuccess
		return out
	}
	out.Status = StatusFailure
	out.Reason = describe(def.Kind, raw)
	return out
}

// TimeoutOutcome is what a probe that did not finish in time looks like.
func TimeoutOutcome(def Definition, elapsed time.Duration) Outcome {
	return Outcome{
		Probe:    def.Name,
		Kind:     def.Kind,
		Status:   StatusTimeout,
		Reason:   timeoutReason(def),
		Latency:  elapsed,
		Attempts: 1,
	}
}

func timeoutReason(def Definition) string {
	if def.Timeout > 0 {
		return "timed out after " + def.Timeout.String()
	}
	return "timed out"
}

// describe explains why a predicate rejected an observation.
func describe(k Kind, raw Raw) string {
	switch k {
	case KindHTTP:
		return fmt.Sprintf("unexpected response: status %d", raw.StatusCode)
	case KindCommand:
		return fmt.Sprintf("unexpected result: exit %d, output %q", raw.ExitCode, firstLine(raw.Output))
	default:
		return fmt.Sprintf("unexpected result: %q", firstLine(raw.Output))
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 80 {
		s = s[:80] + "..."
	}
	return s
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxDetail {
		return s[:maxDetail] + "..."
	}
	return s
}
