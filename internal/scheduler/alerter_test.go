package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamed0406/readycheck/internal/probe"
	"github.com/hamed0406/readycheck/internal/repo/memory"
	"github.com/hamed0406/readycheck/internal/report"
)

// ---- shared helpers ----

func runOf(outcomes ...probe.Outcome) report.Report {
	now := time.Now()
	return report.New(outcomes, now, now)
}

func up(name string) probe.Outcome {
	return probe.Outcome{Probe: name, Kind: probe.KindHTTP, Status: probe.StatusSuccess, Latency: 12 * time.Millisecond}
}

func down(name string) probe.Outcome {
	return probe.Outcome{Probe: name, Kind: probe.KindCommand, Status: probe.StatusTimeout, Reason: "timed out after 3s", Latency: 3 * time.Second}
}

type memNotifier struct {
	n      int
	titles []string
	err    error
}

func (m *memNotifier) Send(ctx context.Context, title, text string) error {
	m.n++
	m.titles = append(m.titles, title)
	return m.err
}

// ---- tests ----

func TestAlerter_SendsOnDown_RespectsCooldown(t *testing.T) {
	nt := &memNotifier{}
	al := NewAlerter(memory.New(10), nt, AlerterConfig{
		AlertOnRecovery: true,
		Cooldown:        time.Minute,
	})
	clock := time.Now()
	al.now = func() time.Time { return clock }
	ctx := context.Background()

	// first run -> should alert
	require.NoError(t, al.Process(ctx, runOf(down("Redis"))))
	require.Equal(t, 1, nt.n)
	assert.Contains(t, nt.titles[0], "Redis TIMEOUT")

	// same DOWN again -> no state change, no alert
	_ = al.Process(ctx, runOf(down("Redis")))
	assert.Equal(t, 1, nt.n, "repeat DOWN alerted")

	// flip to UP -> recovery alert allowed
	clock = clock.Add(10 * time.Second)
	_ = al.Process(ctx, runOf(up("Redis")))
	require.Equal(t, 2, nt.n)
	assert.Contains(t, nt.titles[1], "RECOVERED")

	// DOWN again within cooldown -> suppressed
	clock = clock.Add(10 * time.Second)
	_ = al.Process(ctx, runOf(down("Redis")))
	assert.Equal(t, 2, nt.n, "cooldown suppresses")

	// UP, then DOWN once the cooldown has passed -> alerts again
	clock = clock.Add(2 * time.Minute)
	_ = al.Process(ctx, runOf(up("Redis")))
	clock = clock.Add(2 * time.Minute)
	_ = al.Process(ctx, runOf(down("Redis")))
	assert.Equal(t, 4, nt.n, "recovery and down alerts after cooldown")
}

func TestAlerter_NoRecoveryIfDisabled(t *testing.T) {
	nt := &memNotifier{}
	al := NewAlerter(memory.New(10), nt, AlerterConfig{AlertOnRecovery: false})
	ctx := context.Background()

	// first time UP (no previous) -> no alert
	require.NoError(t, al.Process(ctx, runOf(up("Neo4j"))))
	assert.Equal(t, 0, nt.n)

	// go DOWN -> should alert
	_ = al.Process(ctx, runOf(down("Neo4j")))
	assert.Equal(t, 1, nt.n)

	// back UP -> recovery disabled
	_ = al.Process(ctx, runOf(up("Neo4j")))
	assert.Equal(t, 1, nt.n, "recovery alert sent while disabled")
}

func TestAlerter_TracksProbesIndependently(t *testing.T) {
	nt := &memNotifier{}
	al := NewAlerter(memory.New(10), nt, AlerterConfig{AlertOnRecovery: true})
	_ = al.Process(context.Background(), runOf(up("Neo4j"), down("Redis"), down("MinIO")))
	assert.Equal(t, 2, nt.n)
}

func TestAlerter_ReturnsNotifierError(t *testing.T) {
	nt := &memNotifier{err: errors.New("slack: unexpected status 500")}
	al := NewAlerter(memory.New(10), nt, AlerterConfig{})
	assert.Error(t, al.Process(context.Background(), runOf(down("Redis"))))
}
