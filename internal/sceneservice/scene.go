package sceneservice

import (
	"context"
	"sync"
	"time"

	"github.com/starford/forcegraph/internal/graph"
	"github.com/starford/forcegraph/internal/interaction"
	"github.com/starford/forcegraph/internal/layout"
	"github.com/starford/forcegraph/internal/render"
	"github.com/starford/forcegraph/internal/sse"
)

// scene is one live scene. The graph and simulation are only touched on the
// runner goroutine (through runner.Do or listeners); the viewport has its
// own lock.
type scene struct {
	id       string
	name     string
	path     string
	checksum string
	cfg      graph.Config
	graph    *graph.Graph
	runner   *layout.Runner
	ctrl     *interaction.Controller
	frags    *render.Fragments
	broker   *sse.Broker
	loadedAt time.Time

	cancel      context.CancelFunc
	unsubscribe func()
	stopOnce    sync.Once

	mu   sync.Mutex
	view interaction.Viewport
}

// stream is the runner listener that feeds the event stream.
func (sc *scene) stream(ev layout.Event) {
	switch ev.Kind {
	case layout.EventTick:
		sc.broker.PublishFrame(frameOf(ev.Sim))
	case layout.EventSettled:
		sc.broker.Publish(sse.Event{Type: sse.TypeSettled, Data: frameOf(ev.Sim)})
	}
}

func (sc *scene) stop() {
	sc.stopOnce.Do(func() {
		if sc.unsubscribe != nil {
			sc.unsubscribe()
		}
		sc.runner.Stop()
		if sc.cancel != nil {
			sc.cancel()
		}
	})
}

func (sc *scene) currentView() interaction.Viewport {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.view
}

// updateView applies fn to the viewport and returns the result.
func (sc *scene) updateView(fn func(interaction.Viewport) interaction.Viewport) interaction.Viewport {
	sc.mu.Lock()
	sc.view = fn(sc.view)
	v := sc.view
	sc.mu.Unlock()
	return v
}

func frameOf(sim *layout.Simulation) render.Frame {
	f := render.Bind(sim.Nodes(), sim.Links(), sim.Config())
	f.Tick = sim.Ticks()
	f.Alpha = sim.Alpha()
	return f
}
