// Package render maps simulation state to visual primitives and turns them
// into embeddable HTML fragments or static SVG and PNG snapshots.
package render

import (
	"github.com/starford/forcegraph/internal/graph"
)

// Icon geometry: images are drawn 24x24, centred on the node.
const (
	IconSize   = 24
	iconOffset = -IconSize / 2

	labelDX = 5
	labelDY = -10
)

// Frame is the full visual state of one tick. Positions are world
// coordinates and are never clamped to the canvas.
type Frame struct {
	Tick   int     `json:"tick"`
	Alpha  float64 `json:"alpha"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Lines  []Line  `json:"lines"`
	Nodes  []Glyph `json:"nodes"`
}

// Line is the drawable form of a link.
type Line struct {
	Source      string  `json:"source"`
	Target      string  `json:"target"`
	X1          float64 `json:"x1"`
	Y1          float64 `json:"y1"`
	X2          float64 `json:"x2"`
	Y2          float64 `json:"y2"`
	StrokeWidth float64 `json:"stroke_width"`
	Color       string  `json:"color,omitempty"`
	Title       string  `json:"title,omitempty"`
}

// Glyph is the drawable form of a node: a circle, an optional icon and a
// label.
type Glyph struct {
	ID     string  `json:"id"`
	CX     float64 `json:"cx"`
	CY     float64 `json:"cy"`
	R      float64 `json:"r"`
	Color  string  `json:"color,omitempty"`
	Image  string  `json:"image,omitempty"`
	ImageX float64 `json:"image_x"`
	ImageY float64 `json:"image_y"`
	Label  string  `json:"label"`
	LabelX float64 `json:"label_x"`
	LabelY float64 `json:"label_y"`
	Title  string  `json:"title,omitempty"`
	Pinned bool    `json:"pinned,omitempty"`
}

// Bind computes the frame for the current node and link state. Links whose
// endpoints are unknown are skipped.
func Bind(nodes []*graph.Node, links []*graph.Link, cfg graph.Config) Frame {
	f := Frame{
		Width:  cfg.Width,
		Height: cfg.Height,
		Lines:  make([]Line, 0, len(links)),
		Nodes:  make([]Glyph, 0, len(nodes)),
	}

	pos := make(map[string]*graph.Node, len(nodes))
	for _, n := range nodes {
		pos[n.ID] = n
		g := Glyph{
			ID:     n.ID,
			CX:     n.X,
			CY:     n.Y,
			R:      cfg.NodeRadius + n.Radius,
			Color:  n.Color,
			LabelX: n.X + labelDX,
			LabelY: n.Y + labelDY,
			Title:  n.Hover,
			Pinned: n.Pinned(),
		}
		if n.Image != "" {
			g.Image = n.Image
			g.ImageX = n.X + iconOffset
			g.ImageY = n.Y + iconOffset
		}
		if cfg.ShowLabels {
			g.Label = n.Label
		}
		f.Nodes = append(f.Nodes, g)
	}

	for _, l := range links {
		src, ok1 := pos[l.Source]
		dst, ok2 := pos[l.Target]
		if !ok1 || !ok2 {
			continue
		}
		f.Lines = append(f.Lines, Line{
			Source:      l.Source,
			Target:      l.Target,
			X1:          src.X,
			Y1:          src.Y,
			X2:          dst.X,
			Y2:          dst.Y,
			StrokeWidth: 0.5 + cfg.LinkWidthScale*l.Weight,
			Color:       l.Color,
			Title:       l.Hover,
		})
	}
	return f
}
