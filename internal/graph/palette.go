package graph

import (
	"fmt"
	"math"
)

// Palette returns n visually distinct colors taken from evenly spaced hues
// at saturation 0.5 and value 0.5, formatted as #rrggbb.
func Palette(n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		r, g, b := hsvToRGB(float64(i)/float64(n), 0.5, 0.5)
		out = append(out, fmt.Sprintf("#%02x%02x%02x", int(r*255), int(g*255), int(b*255)))
	}
	return out
}

func hsvToRGB(h, s, v float64) (float64, float64, float64) {
	if s == 0 {
		return v, v, v
	}
	i := math.Floor(h * 6)
	f := h*6 - i
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))
	switch int(i) % 6 {
	case 0:
		return v, t, p
	case 1:
		return q, v, p
	case 2:
		return p, v, t
	case 3:
		return p, q, v
	case 4:
		return t, p, v
	default:
		return v, p, q
	}
}
