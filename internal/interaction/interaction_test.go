package interaction_test

import (
	"errors"
	"math"
	"testing"

	"github.com/starford/forcegraph/internal/apperr"
	"github.com/starford/forcegraph/internal/graph"
	"github.com/starford/forcegraph/internal/interaction"
	"github.com/starford/forcegraph/internal/layout"
)

func newSim(t *testing.T) *layout.Simulation {
	t.Helper()
	g := graph.New()
	for _, e := range [][2]string{{"a", "b"}, {"b", "c"}} {
		if _, err := g.AddEdge(graph.EdgeSpec{Source: e[0], Target: e[1]}); err != nil {
			t.Fatalf("add edge: %v", err)
		}
	}
	g.NormalizeWeights()
	return layout.New(g, graph.DefaultConfig())
}

func TestDragLifecycle(t *testing.T) {
	sim := newSim(t)
	sim.Settle(1000)
	if sim.State() != layout.Settled {
		t.Fatalf("expected settled simulation, got %s", sim.State())
	}
	c := interaction.NewController(sim)

	if err := c.DragStart("b"); err != nil {
		t.Fatalf("drag start: %v", err)
	}
	if sim.AlphaTarget() != interaction.DragAlphaTarget {
		t.Errorf("alpha target = %v, want %v", sim.AlphaTarget(), interaction.DragAlphaTarget)
	}
	if sim.State() != layout.Running {
		t.Errorf("state = %s, want running", sim.State())
	}

	if err := c.DragMove("b", 123, 456); err != nil {
		t.Fatalf("drag move: %v", err)
	}
	for i := 0; i < 5; i++ {
		sim.Tick()
	}
	b, _ := sim.Node("b")
	if b.X != 123 || b.Y != 456 {
		t.Errorf("dragged node at (%v, %v), want (123, 456)", b.X, b.Y)
	}

	if err := c.DragEnd("b"); err != nil {
		t.Fatalf("drag end: %v", err)
	}
	if b.Pinned() {
		t.Error("node still pinned after drag end")
	}
	if sim.AlphaTarget() != 0 {
		t.Errorf("alpha target = %v, want 0", sim.AlphaTarget())
	}
}

func TestConcurrentDragsKeepHeat(t *testing.T) {
	c := interaction.NewController(newSim(t))
	if err := c.DragStart("a"); err != nil {
		t.Fatal(err)
	}
	if err := c.DragStart("c"); err != nil {
		t.Fatal(err)
	}
	if err := c.DragEnd("a"); err != nil {
		t.Fatal(err)
	}
	if c.Dragging() != 1 {
		t.Fatalf("dragging = %d, want 1", c.Dragging())
	}
}

func TestDoubleClickRecentres(t *testing.T) {
	sim := newSim(t)
	c := interaction.NewController(sim)
	if err := c.DoubleClick("a"); err != nil {
		t.Fatal(err)
	}
	a, _ := sim.Node("a")
	cx, cy := sim.Config().Center()
	if a.X != cx || a.Y != cy {
		t.Errorf("node at (%v, %v), want centre (%v, %v)", a.X, a.Y, cx, cy)
	}
	if a.Pinned() {
		t.Error("double click must not pin")
	}
}

func TestPinAndRelease(t *testing.T) {
	sim := newSim(t)
	c := interaction.NewController(sim)
	if err := c.Pin("c", 10, 20); err != nil {
		t.Fatal(err)
	}
	sim.Tick()
	n, _ := sim.Node("c")
	if n.X != 10 || n.Y != 20 {
		t.Errorf("pinned node at (%v, %v)", n.X, n.Y)
	}
	if err := c.Release("c"); err != nil {
		t.Fatal(err)
	}
	if n.Pinned() {
		t.Error("node still pinned after release")
	}
}

func TestMoveAfterEndIgnored(t *testing.T) {
	sim := newSim(t)
	c := interaction.NewController(sim)
	if err := c.DragStart("a"); err != nil {
		t.Fatal(err)
	}
	if err := c.DragEnd("a"); err != nil {
		t.Fatal(err)
	}
	if err := c.DragMove("a", 10, 10); err != nil {
		t.Fatalf("late move: %v", err)
	}
	a, _ := sim.Node("a")
	if a.Pinned() {
		t.Fatal("late move pinned a released node")
	}
	sim.Settle(500)
	if a.Pinned() || (a.X == 10 && a.Y == 10) {
		t.Errorf("node stuck at (%v, %v) pinned=%v", a.X, a.Y, a.Pinned())
	}
}

func TestStrayEndKeepsPin(t *testing.T) {
	sim := newSim(t)
	c := interaction.NewController(sim)
	if err := c.Pin("b", 5, 6); err != nil {
		t.Fatal(err)
	}
	if err := c.DragEnd("b"); err != nil {
		t.Fatal(err)
	}
	b, _ := sim.Node("b")
	if !b.Pinned() {
		t.Error("end without start released a pinned node")
	}
	if c.Dragging() != 0 {
		t.Errorf("dragging = %d, want 0", c.Dragging())
	}
}

func TestUnknownNode(t *testing.T) {
	c := interaction.NewController(newSim(t))
	for name, err := range map[string]error{
		"start":    c.DragStart("zz"),
		"move":     c.DragMove("zz", 1, 1),
		"end":      c.DragEnd("zz"),
		"dblclick": c.DoubleClick("zz"),
	} {
		if !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("%s: expected ErrNotFound, got %v", name, err)
		}
	}
}

func TestViewportInvertApply(t *testing.T) {
	v := interaction.Identity().Zoom(2.5, 100, 50).Pan(-30, 12)
	x, y := v.Invert(v.Apply(37, -8))
	if diff(x, 37) > 1e-9 || diff(y, -8) > 1e-9 {
		t.Errorf("invert(apply(p)) = (%v, %v), want (37, -8)", x, y)
	}
}

func TestViewportZoomKeepsPointer(t *testing.T) {
	v := interaction.Viewport{K: 1.5, X: 20, Y: -10}
	wx, wy := v.Invert(200, 150)
	z := v.Zoom(1.7, 200, 150)
	zx, zy := z.Invert(200, 150)
	if diff(wx, zx) > 1e-9 || diff(wy, zy) > 1e-9 {
		t.Errorf("pointer moved from (%v, %v) to (%v, %v)", wx, wy, zx, zy)
	}
}

func TestViewportZoomClamp(t *testing.T) {
	v := interaction.Identity()
	if got := v.Zoom(1000, 0, 0).K; got != interaction.MaxScale {
		t.Errorf("zoom in: k = %v, want %v", got, interaction.MaxScale)
	}
	if got := v.Zoom(0.0001, 0, 0).K; got != interaction.MinScale {
		t.Errorf("zoom out: k = %v, want %v", got, interaction.MinScale)
	}
	if got := v.Zoom(-2, 0, 0); got != v {
		t.Errorf("negative factor changed viewport: %+v", got)
	}
}

func TestViewportIgnoresNonFinite(t *testing.T) {
	v := interaction.Viewport{K: 2, X: 10, Y: 10}
	if got := v.Zoom(2, math.NaN(), 0); got != v {
		t.Errorf("nan pointer changed viewport: %+v", got)
	}
	if got := v.Pan(math.Inf(1), 0); got != v {
		t.Errorf("inf pan changed viewport: %+v", got)
	}
	if got := v.Pan(math.MaxFloat64, 0).Pan(math.MaxFloat64, 0); got.X != math.MaxFloat64 {
		t.Errorf("overflowing pan: x = %v", got.X)
	}
}

func TestViewportString(t *testing.T) {
	v := interaction.Viewport{K: 2, X: 10, Y: -5.5}
	if got, want := v.String(), "translate(10,-5.5) scale(2)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func diff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
