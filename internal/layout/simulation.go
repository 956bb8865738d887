// Package layout implements the force-directed simulation that positions the
// nodes of a graph, and the Runner that drives it at frame cadence.
package layout

import (
	"math"
	"math/rand/v2"

	"github.com/starford/forcegraph/internal/graph"
)

// State is the lifecycle state of a Simulation.
type State int

const (
	// Idle is a constructed simulation that has not ticked yet.
	Idle State = iota
	// Running means alpha is above alphaMin and ticks keep moving nodes.
	Running
	// Settled means alpha dropped below alphaMin. A restart re-heats it.
	Settled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Settled:
		return "settled"
	}
	return "unknown"
}

const (
	defaultAlphaMin      = 0.001
	defaultVelocityDecay = 0.4
	defaultTheta         = 0.9

	initialRadius = 10
)

var initialAngle = math.Pi * (3 - math.Sqrt(5))

// Force contributes velocity to the nodes of a simulation on every tick.
type Force interface {
	Apply(alpha float64)
}

// Simulation is an iterative physics solver over the nodes and links of one
// graph. It is not safe for concurrent use; a Runner serializes access.
type Simulation struct {
	nodes []*graph.Node
	links []*graph.Link
	edges []edge
	index map[string]int
	cfg   graph.Config

	alpha         float64
	alphaMin      float64
	alphaDecay    float64
	alphaTarget   float64
	velocityDecay float64
	theta         float64

	forceNames []string
	forces     map[string]Force

	rng   *rand.Rand
	state State
	ticks int
}

// edge is a link resolved to node indices.
type edge struct {
	link   *graph.Link
	source int
	target int
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithAlphaMin sets the alpha below which the simulation settles.
func WithAlphaMin(v float64) Option {
	return func(s *Simulation) {
		s.alphaMin = v
	}
}

// WithAlphaDecay overrides the per-tick alpha decay.
func WithAlphaDecay(v float64) Option {
	return func(s *Simulation) {
		s.alphaDecay = v
	}
}

// WithVelocityDecay sets the friction applied to velocities every tick.
func WithVelocityDecay(v float64) Option {
	return func(s *Simulation) {
		s.velocityDecay = v
	}
}

// WithTheta sets the Barnes-Hut approximation threshold of the charge force.
// Zero computes the exact pairwise sum.
func WithTheta(v float64) Option {
	return func(s *Simulation) {
		s.theta = v
	}
}

// WithSeed makes the jiggle applied to coincident nodes reproducible.
func WithSeed(seed uint64) Option {
	return func(s *Simulation) {
		s.rng = rand.New(rand.NewPCG(seed, seed))
	}
}

// New builds a simulation over g with the standard force list: link,
// charge, collide, center, x and y. Every link endpoint must name a node of
// g, which holds for graphs built with AddEdge. Nodes without a position are
// placed on a phyllotaxis spiral around the canvas centre.
func New(g *graph.Graph, cfg graph.Config, opts ...Option) *Simulation {
	s := &Simulation{
		nodes:         g.Nodes(),
		links:         g.Links(),
		cfg:           cfg,
		alpha:         1,
		alphaMin:      defaultAlphaMin,
		velocityDecay: defaultVelocityDecay,
		theta:         defaultTheta,
		forces:        make(map[string]Force),
		rng:           rand.New(rand.NewPCG(1, 2)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.alphaDecay == 0 {
		s.alphaDecay = 1 - math.Pow(s.alphaMin, 1.0/300)
	}

	s.index = make(map[string]int, len(s.nodes))
	for i, n := range s.nodes {
		s.index[n.ID] = i
	}
	for _, l := range s.links {
		src, ok1 := s.index[l.Source]
		dst, ok2 := s.index[l.Target]
		if !ok1 || !ok2 {
			continue
		}
		s.edges = append(s.edges, edge{link: l, source: src, target: dst})
	}

	s.initializeNodes()

	s.SetForce("link", newLinkForce(s))
	s.SetForce("charge", newManyBodyForce(s))
	s.SetForce("collide", newCollideForce(s))
	s.SetForce("center", newCenterForce(s))
	s.SetForce("x", newAxisForce(s, axisX))
	s.SetForce("y", newAxisForce(s, axisY))
	return s
}

func (s *Simulation) initializeNodes() {
	cx, cy := s.cfg.Center()
	for i, n := range s.nodes {
		if n.FX != nil {
			n.X = *n.FX
		}
		if n.FY != nil {
			n.Y = *n.FY
		}
		if !n.Placed() {
			r := initialRadius * math.Sqrt(0.5+float64(i))
			a := float64(i) * initialAngle
			x, y := cx+r*math.Cos(a), cy+r*math.Sin(a)
			if n.FX != nil {
				x = *n.FX
			}
			if n.FY != nil {
				y = *n.FY
			}
			n.Place(x, y)
		}
		if math.IsNaN(n.VX) || math.IsNaN(n.VY) {
			n.VX, n.VY = 0, 0
		}
	}
}

// SetForce registers f under name, replacing any force with the same name.
// A nil f removes the force. Forces apply in registration order.
func (s *Simulation) SetForce(name string, f Force) {
	if f == nil {
		if _, ok := s.forces[name]; !ok {
			return
		}
		delete(s.forces, name)
		for i, n := range s.forceNames {
			if n == name {
				s.forceNames = append(s.forceNames[:i], s.forceNames[i+1:]...)
				break
			}
		}
		return
	}
	if _, ok := s.forces[name]; !ok {
		s.forceNames = append(s.forceNames, name)
	}
	s.forces[name] = f
}

// Forces returns the names of the registered forces in application order.
func (s *Simulation) Forces() []string {
	out := make([]string, len(s.forceNames))
	copy(out, s.forceNames)
	return out
}

// Tick advances the simulation by one step and returns the new alpha.
func (s *Simulation) Tick() float64 {
	s.alpha += (s.alphaTarget - s.alpha) * s.alphaDecay
	for _, name := range s.forceNames {
		s.forces[name].Apply(s.alpha)
	}

	keep := 1 - s.velocityDecay
	for _, n := range s.nodes {
		if n.FX != nil {
			n.X, n.VX = *n.FX, 0
		} else {
			n.VX *= keep
			n.X += n.VX
		}
		if n.FY != nil {
			n.Y, n.VY = *n.FY, 0
		} else {
			n.VY *= keep
			n.Y += n.VY
		}
		if !isFinite(n.X) || !isFinite(n.Y) {
			s.resetNode(n)
		}
	}

	s.ticks++
	if s.alpha < s.alphaMin {
		s.state = Settled
	} else {
		s.state = Running
	}
	return s.alpha
}

// Restart marks the simulation as running so the scheduler resumes ticking.
// Alpha is left untouched; combine with SetAlpha or SetAlphaTarget to
// re-heat.
func (s *Simulation) Restart() {
	s.state = Running
}

// Settle runs ticks synchronously until the simulation settles or maxTicks
// is reached, and returns the number of ticks run.
func (s *Simulation) Settle(maxTicks int) int {
	n := 0
	for n < maxTicks {
		s.Tick()
		n++
		if s.state == Settled {
			break
		}
	}
	return n
}

// State reports the lifecycle state.
func (s *Simulation) State() State { return s.state }

// Alpha returns the current temperature.
func (s *Simulation) Alpha() float64 { return s.alpha }

// SetAlpha sets the current temperature.
func (s *Simulation) SetAlpha(v float64) { s.alpha = v }

// AlphaTarget returns the temperature alpha converges to.
func (s *Simulation) AlphaTarget() float64 { return s.alphaTarget }

// SetAlphaTarget sets the temperature alpha converges to.
func (s *Simulation) SetAlphaTarget(v float64) { s.alphaTarget = v }

// AlphaMin returns the settle threshold.
func (s *Simulation) AlphaMin() float64 { return s.alphaMin }

// Ticks returns the number of ticks run so far.
func (s *Simulation) Ticks() int { return s.ticks }

// Config returns the configuration the simulation was built with.
func (s *Simulation) Config() graph.Config { return s.cfg }

// Nodes returns the simulated nodes in graph order.
func (s *Simulation) Nodes() []*graph.Node { return s.nodes }

// Links returns the simulated links in graph order.
func (s *Simulation) Links() []*graph.Link { return s.links }

// Node returns the node with the given id.
func (s *Simulation) Node(id string) (*graph.Node, bool) {
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.nodes[i], true
}

// resetNode puts a node whose position overflowed back near the canvas
// centre at rest.
func (s *Simulation) resetNode(n *graph.Node) {
	cx, cy := s.cfg.Center()
	n.X, n.Y = cx+s.jiggle(), cy+s.jiggle()
	n.VX, n.VY = 0, 0
}

func (s *Simulation) jiggle() float64 {
	return (s.rng.Float64() - 0.5) * 1e-6
}
