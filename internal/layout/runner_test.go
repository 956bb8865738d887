package layout_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/forcegraph/internal/graph"
	"github.com/starford/forcegraph/internal/layout"
)

// fastSim settles after four ticks.
func fastSim(t *testing.T) *layout.Simulation {
	t.Helper()
	return layout.New(chain(t, "a", "b", "c"), graph.DefaultConfig(),
		layout.WithAlphaMin(0.1), layout.WithAlphaDecay(0.5))
}

func startRunner(t *testing.T, sim *layout.Simulation) (*layout.Runner, chan layout.Event) {
	t.Helper()
	r := layout.NewRunner(sim, layout.WithTickRate(1000))
	events := make(chan layout.Event, 1024)
	r.Subscribe(func(ev layout.Event) {
		select {
		case events <- ev:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-r.Done()
	})
	return r, events
}

func waitFor(t *testing.T, events <-chan layout.Event, kind layout.EventKind) layout.Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Kind == kind {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s event", kind)
		}
	}
}

func TestRunnerSettlesAndPauses(t *testing.T) {
	sim := fastSim(t)
	r, events := startRunner(t, sim)

	ev := waitFor(t, events, layout.EventSettled)
	assert.Equal(t, 4, ev.Tick)
	assert.Less(t, ev.Alpha, 0.1)

	// Paused: the tick count stays put.
	time.Sleep(20 * time.Millisecond)
	var ticks int
	require.NoError(t, r.Do(context.Background(), func(s *layout.Simulation) {
		ticks = s.Ticks()
	}))
	assert.Equal(t, 4, ticks)
}

func TestRunnerResumesOnPerturbation(t *testing.T) {
	sim := fastSim(t)
	r, events := startRunner(t, sim)
	waitFor(t, events, layout.EventSettled)

	require.NoError(t, r.Do(context.Background(), func(s *layout.Simulation) {
		s.SetAlphaTarget(0.5)
		s.Restart()
	}))
	waitFor(t, events, layout.EventResumed)
	waitFor(t, events, layout.EventTick)

	require.NoError(t, r.Do(context.Background(), func(s *layout.Simulation) {
		s.SetAlphaTarget(0)
		s.Restart()
	}))
	waitFor(t, events, layout.EventSettled)
}

func TestRunnerUnsubscribe(t *testing.T) {
	sim := fastSim(t)
	r := layout.NewRunner(sim, layout.WithTickRate(1000))
	calls := 0
	cancelSub := r.Subscribe(func(layout.Event) { calls++ })
	cancelSub()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	// Do runs on the runner goroutine, so reading calls there is race free.
	time.Sleep(20 * time.Millisecond)
	var seen int
	require.NoError(t, r.Do(ctx, func(*layout.Simulation) { seen = calls }))
	assert.Zero(t, seen)
}

func TestRunnerStop(t *testing.T) {
	r := layout.NewRunner(fastSim(t))
	go r.Run(context.Background())

	r.Stop()
	r.Stop()
	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}

	err := r.Do(context.Background(), func(*layout.Simulation) {})
	assert.True(t, errors.Is(err, layout.ErrStopped))
}

func TestRunnerDoHonoursContext(t *testing.T) {
	r := layout.NewRunner(fastSim(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := r.Do(ctx, func(*layout.Simulation) {})
	assert.ErrorIs(t, err, context.Canceled)
}
