// Package graph holds the in-memory graph model consumed by the layout
// engine: nodes and links with their derived display attributes.
package graph

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/starford/forcegraph/internal/apperr"
)

// Attrs is the open set of attributes carried by a node or link beyond its
// typed core fields. Every key ends up in the hover text.
type Attrs map[string]any

// Node is a graph vertex. X, Y, VX, VY, FX and FY are owned by the
// simulation and the interaction layer once a layout starts.
type Node struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	Color  string  `json:"color,omitempty"`
	Radius float64 `json:"radius"`
	Image  string  `json:"image,omitempty"`
	Hover  string  `json:"hover,omitempty"`
	Attrs  Attrs   `json:"attrs,omitempty"`

	X  float64  `json:"x"`
	Y  float64  `json:"y"`
	VX float64  `json:"vx"`
	VY float64  `json:"vy"`
	FX *float64 `json:"fx"`
	FY *float64 `json:"fy"`

	placed bool
}

// Placed reports whether the node has been given an initial position.
func (n *Node) Placed() bool { return n.placed }

// Place sets the node position and marks it as placed.
func (n *Node) Place(x, y float64) {
	n.X, n.Y = x, y
	n.placed = true
}

// Pin fixes the node at (x, y) on both axes.
func (n *Node) Pin(x, y float64) {
	n.FX, n.FY = &x, &y
}

// Unpin releases both axes.
func (n *Node) Unpin() {
	n.FX, n.FY = nil, nil
}

// Pinned reports whether either axis is fixed.
func (n *Node) Pinned() bool { return n.FX != nil || n.FY != nil }

// Attr looks up key among the core fields first, then the open attributes.
func (n *Node) Attr(key string) (any, bool) {
	switch key {
	case "id":
		return n.ID, true
	case "label":
		return n.Label, true
	case "radius":
		return n.Radius, true
	case "color":
		return n.Color, n.Color != ""
	case "image":
		return n.Image, n.Image != ""
	}
	v, ok := n.Attrs[key]
	return v, ok
}

// Link is a weighted edge between two nodes, referenced by id.
type Link struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"`
	Color  string  `json:"color,omitempty"`
	Hover  string  `json:"hover,omitempty"`
	Attrs  Attrs   `json:"attrs,omitempty"`

	raw float64
}

// RawWeight returns the weight as ingested, before normalization.
func (l *Link) RawWeight() float64 { return l.raw }

// Attr looks up key among the core fields first, then the open attributes.
func (l *Link) Attr(key string) (any, bool) {
	switch key {
	case "source":
		return l.Source, true
	case "target":
		return l.Target, true
	case "weight":
		return l.raw, true
	case "color":
		return l.Color, l.Color != ""
	}
	v, ok := l.Attrs[key]
	return v, ok
}

// NodeSpec describes a node to add. Empty ID means generate one.
type NodeSpec struct {
	ID     string
	Label  string
	Color  string
	Radius float64
	Image  string
	Attrs  Attrs
}

// EdgeSpec describes a link to add. A nil Weight counts as 1.
type EdgeSpec struct {
	Source string
	Target string
	Weight *float64
	Color  string
	Attrs  Attrs
}

// Graph is an insertion-ordered set of nodes and links.
//
// Graph is not safe for concurrent use. It is built once by ingestion and
// then handed to a single simulation.
type Graph struct {
	nodes       []*Node
	index       map[string]*Node
	links       []*Link
	autoCreated []string
	newID       func() string
}

// Option configures a Graph.
type Option func(*Graph)

// WithIDGenerator overrides the generator used for nodes added without id.
func WithIDGenerator(fn func() string) Option {
	return func(g *Graph) {
		g.newID = fn
	}
}

// New returns an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		index: make(map[string]*Node),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AddNode inserts a node. The label defaults to the id. Adding an id that
// already exists fails with apperr.ErrDuplicateNode and leaves the existing
// node untouched.
func (g *Graph) AddNode(spec NodeSpec) (*Node, error) {
	if spec.ID == "" {
		spec.ID = g.newID()
	}
	if _, ok := g.index[spec.ID]; ok {
		return nil, fmt.Errorf("graph: add node %q: %w", spec.ID, apperr.ErrDuplicateNode)
	}
	if spec.Label == "" {
		spec.Label = spec.ID
	}
	n := &Node{
		ID:     spec.ID,
		Label:  spec.Label,
		Color:  spec.Color,
		Radius: spec.Radius,
		Image:  spec.Image,
		Attrs:  spec.Attrs,
	}
	g.nodes = append(g.nodes, n)
	g.index[n.ID] = n
	return n, nil
}

// AddEdge appends a link. Both endpoints are required; an endpoint that does
// not name an existing node creates a bare node with that id. Such nodes are
// reported by AutoCreated.
func (g *Graph) AddEdge(spec EdgeSpec) (*Link, error) {
	if spec.Source == "" {
		return nil, fmt.Errorf("graph: add edge: missing source: %w", apperr.ErrMalformedEdge)
	}
	if spec.Target == "" {
		return nil, fmt.Errorf("graph: add edge: missing target: %w", apperr.ErrMalformedEdge)
	}
	if spec.Weight != nil && (math.IsNaN(*spec.Weight) || math.IsInf(*spec.Weight, 0)) {
		return nil, fmt.Errorf("graph: add edge: weight %v: %w", *spec.Weight, apperr.ErrMalformedEdge)
	}
	for _, id := range []string{spec.Source, spec.Target} {
		if _, ok := g.index[id]; ok {
			continue
		}
		if _, err := g.AddNode(NodeSpec{ID: id}); err != nil {
			return nil, err
		}
		g.autoCreated = append(g.autoCreated, id)
	}

	w := 1.0
	if spec.Weight != nil {
		w = *spec.Weight
	}
	l := &Link{
		Source: spec.Source,
		Target: spec.Target,
		Weight: w,
		Color:  spec.Color,
		Attrs:  spec.Attrs,
		raw:    w,
	}
	g.links = append(g.links, l)
	return l, nil
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.index[id]
	return n, ok
}

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []*Node { return g.nodes }

// Links returns the links in insertion order.
func (g *Graph) Links() []*Link { return g.links }

// AutoCreated returns the ids of nodes created because a link referenced
// them, in creation order.
func (g *Graph) AutoCreated() []string {
	out := make([]string, len(g.autoCreated))
	copy(out, g.autoCreated)
	return out
}

// NormalizeWeights divides every link weight by the largest raw weight.
// Weights are always recomputed from the raw values, so calling it more
// than once is harmless. A non-positive maximum is treated as 1.
func (g *Graph) NormalizeWeights() {
	m := 1.0
	if len(g.links) > 0 {
		m = g.links[0].raw
		for _, l := range g.links[1:] {
			if l.raw > m {
				m = l.raw
			}
		}
		if m <= 0 {
			m = 1
		}
	}
	for _, l := range g.links {
		l.Weight = l.raw / m
	}
}

// Clusters maps every distinct value of the node attribute key to a
// representative node id, the first node carrying that value. Nodes
// without the attribute are skipped.
func (g *Graph) Clusters(key string) map[string]string {
	out := make(map[string]string)
	for _, n := range g.nodes {
		v, ok := n.Attr(key)
		if !ok || v == nil {
			continue
		}
		k := fmt.Sprint(v)
		if _, seen := out[k]; !seen {
			out[k] = n.ID
		}
	}
	return out
}
