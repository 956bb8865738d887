package interaction

import (
	"math"
	"strconv"
)

// Zoom scale bounds.
const (
	MinScale = 0.1
	MaxScale = 10
)

// Viewport is the pan/zoom transform applied to the drawing: a world point
// p is shown at p*K + (X, Y). It never affects the simulation.
type Viewport struct {
	K float64 `json:"k"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Identity returns the untransformed viewport.
func Identity() Viewport {
	return Viewport{K: 1}
}

// Apply maps world coordinates to screen coordinates.
func (v Viewport) Apply(x, y float64) (float64, float64) {
	return x*v.scale() + v.X, y*v.scale() + v.Y
}

// Invert maps screen coordinates to world coordinates.
func (v Viewport) Invert(x, y float64) (float64, float64) {
	k := v.scale()
	return (x - v.X) / k, (y - v.Y) / k
}

// Zoom scales by factor about the screen point (px, py), which keeps its
// world position. The resulting scale is clamped to [MinScale, MaxScale].
// Non-positive factors, and any non-finite input or result, leave the
// viewport unchanged.
func (v Viewport) Zoom(factor, px, py float64) Viewport {
	if factor <= 0 || !finite(factor, px, py) {
		return v
	}
	k := math.Min(MaxScale, math.Max(MinScale, v.scale()*factor))
	wx, wy := v.Invert(px, py)
	out := Viewport{K: k, X: px - wx*k, Y: py - wy*k}
	if !finite(out.X, out.Y) {
		return v
	}
	return out
}

// Pan translates by (dx, dy) screen units. A pan that would leave the
// offset non-finite is ignored.
func (v Viewport) Pan(dx, dy float64) Viewport {
	out := Viewport{K: v.scale(), X: v.X + dx, Y: v.Y + dy}
	if !finite(out.X, out.Y) {
		return v
	}
	return out
}

// String renders the transform as an SVG transform attribute.
func (v Viewport) String() string {
	return "translate(" + fmtFloat(v.X) + "," + fmtFloat(v.Y) + ") scale(" + fmtFloat(v.scale()) + ")"
}

func (v Viewport) scale() float64 {
	if v.K == 0 {
		return 1
	}
	return v.K
}

func finite(vals ...float64) bool {
	for _, f := range vals {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

func fmtFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
