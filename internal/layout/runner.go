package layout

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrStopped is returned when work is submitted to a runner that has exited.
var ErrStopped = errors.New("layout: runner stopped")

// DefaultTickRate is the frame cadence of a Runner, in ticks per second.
const DefaultTickRate = 60

// EventKind distinguishes runner notifications.
type EventKind int

const (
	// EventTick follows every simulation tick.
	EventTick EventKind = iota
	// EventSettled is emitted once when ticking pauses.
	EventSettled
	// EventResumed is emitted when a settled simulation is perturbed.
	EventResumed
)

func (k EventKind) String() string {
	switch k {
	case EventTick:
		return "tick"
	case EventSettled:
		return "settled"
	case EventResumed:
		return "resumed"
	}
	return "unknown"
}

// Event is delivered to listeners on the runner goroutine. Sim may be read
// for the duration of the call only.
type Event struct {
	Kind  EventKind
	Tick  int
	Alpha float64
	Sim   *Simulation
}

// Listener receives runner events. It must not block.
type Listener func(Event)

type command struct {
	fn   func(*Simulation)
	done chan struct{}
}

// Runner owns a Simulation on a single goroutine. It ticks at a fixed
// cadence while the simulation runs, pauses once it settles and resumes as
// soon as a submitted command leaves it running again. All access to the
// simulation goes through Do, so no locking is needed on its state.
type Runner struct {
	sim      *Simulation
	interval time.Duration
	logger   *slog.Logger

	cmds    chan command
	quit    chan struct{}
	done    chan struct{}
	stopped sync.Once

	mu        sync.Mutex
	listeners map[int]Listener
	nextID    int
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithTickRate sets the number of ticks per second.
func WithTickRate(hz int) RunnerOption {
	return func(r *Runner) {
		if hz > 0 {
			r.interval = time.Second / time.Duration(hz)
		}
	}
}

// WithRunnerLogger sets the logger used for lifecycle messages.
func WithRunnerLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = l
	}
}

// NewRunner wraps sim. The runner does nothing until Run is called.
func NewRunner(sim *Simulation, opts ...RunnerOption) *Runner {
	r := &Runner{
		sim:       sim,
		interval:  time.Second / DefaultTickRate,
		logger:    slog.Default(),
		cmds:      make(chan command),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscribe registers l and returns a function that removes it.
func (r *Runner) Subscribe(l Listener) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = l
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

// Run drives the simulation until ctx is cancelled or Stop is called.
func (r *Runner) Run(ctx context.Context) {
	defer close(r.done)

	if r.sim.State() == Idle {
		r.sim.Restart()
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	tickC := ticker.C
	paused := false

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.quit:
			return

		case cmd := <-r.cmds:
			cmd.fn(r.sim)
			close(cmd.done)
			if paused && r.sim.State() == Running {
				paused = false
				tickC = ticker.C
				ticker.Reset(r.interval)
				r.emit(EventResumed)
				r.logger.Debug("layout resumed", slog.Float64("alpha", r.sim.Alpha()))
			}

		case <-tickC:
			r.sim.Tick()
			r.emit(EventTick)
			if r.sim.State() == Settled {
				paused = true
				tickC = nil
				r.emit(EventSettled)
				r.logger.Debug("layout settled", slog.Int("ticks", r.sim.Ticks()))
			}
		}
	}
}

// Do runs fn on the runner goroutine and waits for it to return.
func (r *Runner) Do(ctx context.Context, fn func(*Simulation)) error {
	cmd := command{fn: fn, done: make(chan struct{})}
	select {
	case r.cmds <- cmd:
	case <-r.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-cmd.done:
		return nil
	case <-r.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop terminates Run. It is safe to call more than once.
func (r *Runner) Stop() {
	r.stopped.Do(func() { close(r.quit) })
}

// Done is closed once Run has returned.
func (r *Runner) Done() <-chan struct{} { return r.done }

func (r *Runner) emit(kind EventKind) {
	r.mu.Lock()
	ls := make([]Listener, 0, len(r.listeners))
	for _, l := range r.listeners {
		ls = append(ls, l)
	}
	r.mu.Unlock()

	ev := Event{Kind: kind, Tick: r.sim.Ticks(), Alpha: r.sim.Alpha(), Sim: r.sim}
	for _, l := range ls {
		l(ev)
	}
}
