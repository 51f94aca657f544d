// Package report aggregates probe outcomes of one run and renders them.
package report

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/hamed0406/readycheck/internal/probe"
)

// Process exit codes.
const (
	ExitHealthy   = 0
	ExitUnhealthy = 1
	ExitConfig    = 2
)

// Report is the result of one run. Outcomes are in registration order.
type Report struct {
	ID         string          `json:"id"`
	Outcomes   []probe.Outcome `json:"outcomes"`
	Healthy    bool            `json:"healthy"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// New builds a report; Healthy is true iff every outcome succeeded.
func New(outcomes []probe.Outcome, startedAt, finishedAt time.Time) Report {
	return Report{
		ID:         uuid.NewString(),
		Outcomes:   outcomes,
		Healthy:    allOK(outcomes),
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
	}
}

func allOK(outcomes []probe.Outcome) bool {
	for _, o := range outcomes {
		if !o.OK() {
			return false
		}
	}
	return true
}

// HealthyCount is the number of successful outcomes.
func (r Report) HealthyCount() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

func (r Report) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// Outcome returns the outcome for the named probe.
func (r Report) Outcome(name string) (probe.Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Probe == name {
			return o, true
		}
	}
	return probe.Outcome{}, false
}

// Label is the fixed-width status word used in rendered lines.
func Label(s probe.Status) string {
	switch s {
	case probe.StatusSuccess:
		return "OK"
	case probe.StatusFailure:
		return "FAIL"
	case probe.StatusTimeout:
		return "TIMEOUT"
	default:
		return "ERROR"
	}
}

// Render formats r as one line per probe followed by a summary:
//
//	OK       Neo4j Browser  12ms
//	TIMEOUT  Redis          3s     timed out after 3s
//	1/2 healthy
//
// No colors and no trailing whitespace, so lines grep cleanly.
func Render(r Report) string {
	width := 0
	for _, o := range r.Outcomes {
		if n := len(oneLine(o.Probe)); n > width {
			width = n
		}
	}

	var b strings.Builder
	for _, o := range r.Outcomes {
		line := fmt.Sprintf("%-8s %-*s  %-7s  %s", Label(o.Status), width, oneLine(o.Probe), formatLatency(o.Latency), oneLine(o.Reason))
		b.WriteString(strings.TrimRight(line, " "))
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "%d/%d healthy\n", r.HealthyCount(), len(r.Outcomes))
	return b.String()
}

var lineBreaks = strings.NewReplacer("\r\n", " | ", "\n", " | ", "\r", " | ")

// oneLine keeps a field on its line: breaks become " | " and any other
// control character a space.
func oneLine(s string) string {
	s = lineBreaks.Replace(s)
	if strings.IndexFunc(s, unicode.IsControl) < 0 {
		return s
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
}

// ExitCode maps a report to the process exit status.
func ExitCode(r Report) int {
	if r.Healthy {
		return ExitHealthy
	}
	return ExitUnhealthy
}

func formatLatency(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return d.Round(10 * time.Millisecond).String()
	}
}
