package graph_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/forcegraph/internal/graph"
)

func buildGroups(t *testing.T, groups ...any) *graph.Graph {
	t.Helper()
	g := graph.New()
	for i, grp := range groups {
		attrs := graph.Attrs{}
		if grp != nil {
			attrs["group"] = grp
		}
		_, err := g.AddNode(graph.NodeSpec{ID: string(rune('a' + i)), Attrs: attrs})
		require.NoError(t, err)
	}
	return g
}

func distinct(colors []string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, c := range colors {
		out[c] = struct{}{}
	}
	return out
}

func TestColorNodesByGroups(t *testing.T) {
	g := buildGroups(t, 1, 1, 2, nil)

	classes := g.ColorNodesBy("group")
	require.Equal(t, 3, classes)

	nodes := g.Nodes()
	colors := []string{nodes[0].Color, nodes[1].Color, nodes[2].Color, nodes[3].Color}
	assert.Len(t, distinct(colors), 3)
	assert.Equal(t, nodes[0].Color, nodes[1].Color, "group 1 shares a color")
	assert.NotEqual(t, nodes[0].Color, nodes[2].Color)
	assert.NotEqual(t, nodes[2].Color, nodes[3].Color)
}

func TestColorNodesByDeterministic(t *testing.T) {
	a := buildGroups(t, "x", "y", "z", 3, nil)
	b := buildGroups(t, nil, 3, "z", "y", "x")
	a.ColorNodesBy("group")
	b.ColorNodesBy("group")

	palette := graph.Palette(5)
	// numbers first, then strings, nil last
	assert.Equal(t, palette[0], a.Nodes()[3].Color)
	assert.Equal(t, palette[1], a.Nodes()[0].Color)
	assert.Equal(t, palette[4], a.Nodes()[4].Color)
	assert.Equal(t, a.Nodes()[0].Color, b.Nodes()[4].Color)
}

func TestColorNodesByNumericEquivalence(t *testing.T) {
	g := buildGroups(t, 1, 1.0, int64(1))
	assert.Equal(t, 1, g.ColorNodesBy("group"))
}

func TestColorNodesByEmpty(t *testing.T) {
	g := graph.New()
	assert.Equal(t, 0, g.ColorNodesBy("group"))
	assert.Equal(t, 0, g.ColorLinksBy("type"))
}

func TestColorLinksBy(t *testing.T) {
	g := graph.New()
	for _, typ := range []string{"1", "1", "2"} {
		_, err := g.AddEdge(graph.EdgeSpec{Source: "a", Target: "b", Attrs: graph.Attrs{"type": typ}})
		require.NoError(t, err)
	}
	_, err := g.AddEdge(graph.EdgeSpec{Source: "b", Target: "c"})
	require.NoError(t, err)

	assert.Equal(t, 3, g.ColorLinksBy("type"))
	links := g.Links()
	assert.Equal(t, links[0].Color, links[1].Color)
	assert.NotEqual(t, links[0].Color, links[3].Color)
}

func TestPalette(t *testing.T) {
	assert.Equal(t, []string{"#7f3f3f", "#3f7f3f", "#3f3f7f"}, graph.Palette(3))
	assert.Empty(t, graph.Palette(0))
}

func TestRadiusBy(t *testing.T) {
	g := graph.New()
	for i, size := range []float64{3, 0, 2, 1} {
		_, err := g.AddNode(graph.NodeSpec{ID: string(rune('a' + i)), Attrs: graph.Attrs{"size": size}})
		require.NoError(t, err)
	}
	g.RadiusBy("size", 15)

	nodes := g.Nodes()
	assert.InDelta(t, 22.5, nodes[0].Radius, 1e-9, "max maps to 1.5*base")
	assert.InDelta(t, 0, nodes[1].Radius, 1e-9, "min maps to 0")
	assert.InDelta(t, 15, nodes[2].Radius, 1e-9)
	assert.InDelta(t, 7.5, nodes[3].Radius, 1e-9)
}

func TestRadiusByAllEqual(t *testing.T) {
	g := graph.New()
	for i := 0; i < 3; i++ {
		_, err := g.AddNode(graph.NodeSpec{ID: string(rune('a' + i)), Radius: 4, Attrs: graph.Attrs{"size": 7}})
		require.NoError(t, err)
	}
	g.RadiusBy("size", 15)
	for _, n := range g.Nodes() {
		assert.Zero(t, n.Radius)
	}

	graph.New().RadiusBy("size", 15)
}

func TestRadiusByIgnoresNonFinite(t *testing.T) {
	g := graph.New()
	for i, size := range []float64{2, math.NaN(), math.Inf(1), 4} {
		_, err := g.AddNode(graph.NodeSpec{ID: string(rune('a' + i)), Attrs: graph.Attrs{"size": size}})
		require.NoError(t, err)
	}
	g.RadiusBy("size", 10)

	nodes := g.Nodes()
	for _, n := range nodes {
		assert.False(t, math.IsNaN(n.Radius) || math.IsInf(n.Radius, 0), "node %s", n.ID)
	}
	assert.InDelta(t, 15, nodes[3].Radius, 1e-9, "max of the finite values")
	assert.InDelta(t, 0, nodes[1].Radius, 1e-9)
}

func TestComputeHoverText(t *testing.T) {
	g := graph.New()
	_, err := g.AddNode(graph.NodeSpec{ID: "kiwi", Color: "green", Attrs: graph.Attrs{"size": 1, "group": "2"}})
	require.NoError(t, err)
	_, err = g.AddEdge(graph.EdgeSpec{Source: "kiwi", Target: "grape", Weight: weight(3), Attrs: graph.Attrs{"type": "2"}})
	require.NoError(t, err)

	g.NormalizeWeights()
	g.ComputeHoverText()

	kiwi, _ := g.Node("kiwi")
	assert.Equal(t, "kiwi\n group ->\t 2\n size ->\t 1", kiwi.Hover)
	grape, _ := g.Node("grape")
	assert.Equal(t, "grape", grape.Hover)
	assert.Equal(t, "kiwi --(1)--> grape\n type ->\t 2", g.Links()[0].Hover)
}
