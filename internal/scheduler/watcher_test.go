package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hamed0406/readycheck/internal/probe"
	"github.com/hamed0406/readycheck/internal/registry"
	"github.com/hamed0406/readycheck/internal/repo/memory"
	"github.com/hamed0406/readycheck/internal/report"
	"github.com/hamed0406/readycheck/internal/runner"
)

// --- fakes ---

type countingHook struct {
	mu sync.Mutex
	n  int
}

func (h *countingHook) Process(ctx context.Context, r report.Report) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.n++
	return nil
}

func (h *countingHook) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.n
}

func alwaysOK() probe.Set {
	return probe.Set{probe.KindHTTP: probe.ProberFunc(func(context.Context, probe.Definition) (probe.Raw, error) {
		return probe.Raw{StatusCode: 200}, nil
	})}
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	require.NoError(t, reg.Register(probe.Definition{Name: "web", Kind: probe.KindHTTP, Target: "https://example.com", Timeout: time.Second}))
	return reg
}

// --- tests ---

func TestWatcher_RunStoresReports(t *testing.T) {
	log := zap.NewNop()
	store := memory.New(10)
	hook := &countingHook{}
	w := NewWatcher(log, runner.New(log, alwaysOK(), 0), testRegistry(t), store, 2*time.Millisecond, 1, hook)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for hook.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	latest, err := store.Latest(context.Background())
	require.NoError(t, err)
	require.NotNil(t, latest, "expected a stored report")
	assert.True(t, latest.Healthy)
	require.Len(t, latest.Outcomes, 1)
	assert.Equal(t, "web", latest.Outcomes[0].Probe)
}

func TestWatcher_ZeroIntervalDisabled(t *testing.T) {
	log := zap.NewNop()
	store := memory.New(10)
	w := NewWatcher(log, runner.New(log, alwaysOK(), 0), testRegistry(t), store, 0, 1)

	done := make(chan struct{})
	go func() { w.Run(context.Background()); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		require.FailNow(t, "Run did not return with zero interval")
	}
	got, _ := store.Latest(context.Background())
	assert.Nil(t, got, "disabled watcher stored a report")
}

func TestWatcher_TriggerRunsHooks(t *testing.T) {
	log := zap.NewNop()
	store := memory.New(10)
	hook := &countingHook{}
	w := NewWatcher(log, runner.New(log, alwaysOK(), 0), testRegistry(t), store, 0, 0, hook)

	rep := w.Trigger(context.Background())
	assert.True(t, rep.Healthy)
	assert.Equal(t, 1, hook.count())
	list, _ := store.List(context.Background(), 0)
	require.Len(t, list, 1)
	assert.Equal(t, rep.ID, list[0].ID)
}
