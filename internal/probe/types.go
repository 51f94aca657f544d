package probe

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Kind selects which prober handles a definition.
type Kind string

const (
	KindHTTP     Kind = "http"
	KindCommand  Kind = "command"
	KindPostgres Kind = "postgres"
	KindRedis    Kind = "redis"
	KindTCP      Kind = "tcp"
	KindDNS      Kind = "dns"
)

// ParseKind accepts the lower-case kind names used in config files.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindHTTP, KindCommand, KindPostgres, KindRedis, KindTCP, KindDNS:
		return k, nil
	default:
		return "", fmt.Errorf("unknown probe kind %q", s)
	}
}

// Definition describes one check. It is built once at startup and never
// mutated afterwards.
type Definition struct {
	Name   string
	Kind   Kind
	Target string // URL, DSN, host:port, hostname, or the command line as written

	// http
	Method  string
	Headers map[string]string
	Body    string

	// command
	Command   []string
	Container string // run inside this container/pod when set
	Runtime   string // docker (default), podman or kubectl

	Timeout time.Duration
	Retries int
	Expect  Predicate
}

// Raw is what a prober observed, before the success predicate is applied.
type Raw struct {
	StatusCode int    // HTTP status
	Output     string // HTTP body, combined stdout/stderr, redis reply, dns class
	ExitCode   int    // command exit code
	Attempts   int    // set by Retrying; zero means a single attempt
}

// Predicate decides whether an observation counts as healthy.
type Predicate func(Raw) bool

// Status is the outcome variant of a probe execution.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailure
	StatusTimeout
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusTimeout:
		return "timeout"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "success":
		*s = StatusSuccess
	case "failure":
		*s = StatusFailure
	case "timeout":
		*s = StatusTimeout
	case "error":
		*s = StatusError
	default:
		return fmt.Errorf("unknown status %q", string(b))
	}
	return nil
}

// Outcome holds the result of a single probe execution.
type Outcome struct {
	Probe    string        `json:"probe"`
	Kind     Kind          `json:"kind"`
	Status   Status        `json:"status"`
	Reason   string        `json:"reason,omitempty"`
	Latency  time.Duration `json:"latency_ns"`
	Detail   string        `json:"detail,omitempty"`
	Attempts int           `json:"attempts,omitempty"`
}

func (o Outcome) OK() bool { return o.Status == StatusSuccess }

// LatencyMS is the latency in milliseconds, the unit used in logs and metrics labels.
func (o Outcome) LatencyMS() float64 { return float64(o.Latency) / float64(time.Millisecond) }

// Prober is implemented by each backend kind (HTTP, command, postgres, ...).
// A prober performs exactly one network call or subprocess invocation and
// reports what it saw; classification into an Outcome happens in Execute.
type Prober interface {
	Probe(ctx context.Context, def Definition) (Raw, error)
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context, def Definition) (Raw, error)

func (f ProberFunc) Probe(ctx context.Context, def Definition) (Raw, error) { return f(ctx, def) }
