package layout_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/forcegraph/internal/graph"
	"github.com/starford/forcegraph/internal/layout"
)

func chain(t *testing.T, ids ...string) *graph.Graph {
	t.Helper()
	g := graph.New()
	for _, id := range ids {
		_, err := g.AddNode(graph.NodeSpec{ID: id})
		require.NoError(t, err)
	}
	for i := 1; i < len(ids); i++ {
		_, err := g.AddEdge(graph.EdgeSpec{Source: ids[i-1], Target: ids[i]})
		require.NoError(t, err)
	}
	g.NormalizeWeights()
	return g
}

func only(s *layout.Simulation, keep ...string) {
	kept := make(map[string]bool, len(keep))
	for _, k := range keep {
		kept[k] = true
	}
	for _, name := range s.Forces() {
		if !kept[name] {
			s.SetForce(name, nil)
		}
	}
}

func dist(a, b *graph.Node) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func TestNewDefaults(t *testing.T) {
	s := layout.New(chain(t, "a", "b"), graph.DefaultConfig())

	assert.Equal(t, layout.Idle, s.State())
	assert.Equal(t, 1.0, s.Alpha())
	assert.Equal(t, 0.001, s.AlphaMin())
	assert.Zero(t, s.AlphaTarget())
	assert.Equal(t, []string{"link", "charge", "collide", "center", "x", "y"}, s.Forces())

	decay := 1 - math.Pow(0.001, 1.0/300)
	s.Tick()
	assert.InDelta(t, 1-decay, s.Alpha(), 1e-12)
	assert.Equal(t, layout.Running, s.State())
	assert.Equal(t, 1, s.Ticks())
}

func TestInitialPlacementSpiral(t *testing.T) {
	cfg := graph.DefaultConfig()
	s := layout.New(chain(t, "a", "b", "c"), cfg)

	cx, cy := cfg.Center()
	nodes := s.Nodes()
	assert.InDelta(t, cx+10*math.Sqrt(0.5), nodes[0].X, 1e-9)
	assert.InDelta(t, cy, nodes[0].Y, 1e-9)

	angle := math.Pi * (3 - math.Sqrt(5))
	r := 10 * math.Sqrt(1.5)
	assert.InDelta(t, cx+r*math.Cos(angle), nodes[1].X, 1e-9)
	assert.InDelta(t, cy+r*math.Sin(angle), nodes[1].Y, 1e-9)
	for _, n := range nodes {
		assert.True(t, n.Placed())
	}
}

func TestInitialPlacementKeepsPositions(t *testing.T) {
	g := chain(t, "a", "b")
	a, _ := g.Node("a")
	a.Place(3, 4)
	b, _ := g.Node("b")
	b.Pin(50, 60)

	layout.New(g, graph.DefaultConfig())
	assert.Equal(t, 3.0, a.X)
	assert.Equal(t, 4.0, a.Y)
	assert.Equal(t, 50.0, b.X)
	assert.Equal(t, 60.0, b.Y)
}

func TestSettles(t *testing.T) {
	s := layout.New(chain(t, "a", "b", "c", "d"), graph.DefaultConfig())
	n := s.Settle(1000)

	assert.Equal(t, layout.Settled, s.State())
	assert.InDelta(t, 300, n, 2)
	assert.Less(t, s.Alpha(), s.AlphaMin())
}

func TestPinnedNodeNeverMoves(t *testing.T) {
	g := chain(t, "a", "b", "c")
	b, _ := g.Node("b")
	b.Pin(100, 100)

	s := layout.New(g, graph.DefaultConfig())
	for i := 0; i < 50; i++ {
		s.Tick()
		require.Equal(t, 100.0, b.X)
		require.Equal(t, 100.0, b.Y)
		require.Zero(t, b.VX)
		require.Zero(t, b.VY)
	}
}

func TestPinnedSingleAxis(t *testing.T) {
	g := chain(t, "a", "b")
	a, _ := g.Node("a")
	x := 10.0
	a.FX = &x

	s := layout.New(g, graph.DefaultConfig())
	startY := a.Y
	for i := 0; i < 20; i++ {
		s.Tick()
	}
	assert.Equal(t, 10.0, a.X)
	assert.NotEqual(t, startY, a.Y, "free axis keeps moving")
}

func TestLinkForceReachesRestLength(t *testing.T) {
	g := chain(t, "a", "b")
	a, _ := g.Node("a")
	b, _ := g.Node("b")
	a.Place(300, 300)
	b.Place(500, 300)

	s := layout.New(g, graph.DefaultConfig())
	only(s, "link")
	s.Settle(300)

	assert.InDelta(t, 20, dist(a, b), 5)
}

func TestLinkForceScalesWithWeight(t *testing.T) {
	g := graph.New()
	w := 0.5
	_, err := g.AddEdge(graph.EdgeSpec{Source: "a", Target: "b", Weight: &w})
	require.NoError(t, err)
	one := 1.0
	_, err = g.AddEdge(graph.EdgeSpec{Source: "c", Target: "d", Weight: &one})
	require.NoError(t, err)
	g.NormalizeWeights()

	s := layout.New(g, graph.DefaultConfig())
	only(s, "link")
	s.Settle(300)

	a, _ := s.Node("a")
	b, _ := s.Node("b")
	c, _ := s.Node("c")
	d, _ := s.Node("d")
	assert.InDelta(t, 40, dist(a, b), 5, "weight 0.5 doubles the rest length")
	assert.InDelta(t, 20, dist(c, d), 5)
}

func TestChargeRepels(t *testing.T) {
	g := chain(t, "a", "b")
	a, _ := g.Node("a")
	b, _ := g.Node("b")
	a.Place(400, 300)
	b.Place(402, 300)

	s := layout.New(g, graph.DefaultConfig())
	only(s, "charge")
	for i := 0; i < 10; i++ {
		s.Tick()
	}
	assert.Greater(t, dist(a, b), 2.0)
	assert.Less(t, a.X, 400.0)
	assert.Greater(t, b.X, 402.0)
}

func TestChargeExactMatchesApproximationForPairs(t *testing.T) {
	build := func(opts ...layout.Option) (*graph.Node, *graph.Node) {
		g := chain(t, "a", "b")
		a, _ := g.Node("a")
		b, _ := g.Node("b")
		a.Place(100, 100)
		b.Place(130, 140)
		s := layout.New(g, graph.DefaultConfig(), opts...)
		only(s, "charge")
		s.Tick()
		return a, b
	}
	a1, b1 := build()
	a2, b2 := build(layout.WithTheta(0))
	assert.InDelta(t, a2.X, a1.X, 1e-9)
	assert.InDelta(t, b2.Y, b1.Y, 1e-9)
}

func TestCollideSeparatesOverlap(t *testing.T) {
	g := chain(t, "a", "b")
	a, _ := g.Node("a")
	b, _ := g.Node("b")
	a.Place(400, 300)
	b.Place(405, 300)

	cfg := graph.DefaultConfig()
	s := layout.New(g, cfg)
	only(s, "collide")
	for i := 0; i < 50; i++ {
		s.Tick()
	}
	assert.GreaterOrEqual(t, dist(a, b), 40.0)
}

func TestCenterMovesCentroid(t *testing.T) {
	g := chain(t, "a", "b", "c")
	for i, n := range g.Nodes() {
		n.Place(float64(i*10), float64(i*20))
	}
	cfg := graph.DefaultConfig()
	s := layout.New(g, cfg)
	only(s, "center")
	s.Tick()

	var sx, sy float64
	for _, n := range s.Nodes() {
		sx += n.X
		sy += n.Y
	}
	cx, cy := cfg.Center()
	assert.InDelta(t, cx, sx/3, 1e-9)
	assert.InDelta(t, cy, sy/3, 1e-9)
}

func TestAxisGravityPullsToCentre(t *testing.T) {
	g := chain(t, "a")
	a, _ := g.Node("a")
	a.Place(0, 0)

	cfg := graph.DefaultConfig()
	s := layout.New(g, cfg)
	only(s, "x", "y")
	s.Tick()
	assert.Greater(t, a.X, 0.0)
	assert.Greater(t, a.Y, 0.0)
}

func TestCoincidentNodesStayFinite(t *testing.T) {
	g := chain(t, "a", "b", "c", "d", "e")
	for _, n := range g.Nodes() {
		n.Place(400, 300)
	}
	s := layout.New(g, graph.DefaultConfig(), layout.WithSeed(7))
	for i := 0; i < 30; i++ {
		s.Tick()
	}
	for _, n := range s.Nodes() {
		require.False(t, math.IsNaN(n.X) || math.IsNaN(n.Y), "node %s", n.ID)
		require.False(t, math.IsInf(n.X, 0) || math.IsInf(n.Y, 0), "node %s", n.ID)
	}
}

func TestChargeSeparatesStackedNodes(t *testing.T) {
	g := graph.New()
	for _, id := range []string{"a", "b"} {
		n, err := g.AddNode(graph.NodeSpec{ID: id})
		require.NoError(t, err)
		n.Place(400, 300)
	}
	s := layout.New(g, graph.DefaultConfig(), layout.WithSeed(3))
	only(s, "charge")
	for i := 0; i < 10; i++ {
		s.Tick()
	}
	a, _ := s.Node("a")
	b, _ := s.Node("b")
	assert.Greater(t, dist(a, b), 0.0)
}

func TestNonFinitePositionRecovers(t *testing.T) {
	for name, bad := range map[string]float64{"nan": math.NaN(), "inf": math.Inf(1)} {
		t.Run(name, func(t *testing.T) {
			g := chain(t, "a", "b", "c")
			a, _ := g.Node("a")
			a.Place(bad, bad)
			s := layout.New(g, graph.DefaultConfig())
			assert.NotPanics(t, func() { s.Settle(50) })
			for _, n := range s.Nodes() {
				require.False(t, math.IsNaN(n.X) || math.IsNaN(n.Y), "node %s", n.ID)
				require.False(t, math.IsInf(n.X, 0) || math.IsInf(n.Y, 0), "node %s", n.ID)
			}
		})
	}
}

func TestEmptyGraph(t *testing.T) {
	s := layout.New(graph.New(), graph.DefaultConfig())
	assert.NotPanics(t, func() { s.Settle(400) })
	assert.Equal(t, layout.Settled, s.State())
}

func TestReheatAfterSettle(t *testing.T) {
	s := layout.New(chain(t, "a", "b"), graph.DefaultConfig())
	s.Settle(1000)
	require.Equal(t, layout.Settled, s.State())

	s.SetAlphaTarget(0.5)
	s.Restart()
	assert.Equal(t, layout.Running, s.State())
	s.Tick()
	assert.Equal(t, layout.Running, s.State())
	assert.Greater(t, s.Alpha(), s.AlphaMin())
}
