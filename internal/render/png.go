package render

import (
	"fmt"
	"io"
	"math"
	"regexp"

	"git.sr.ht/~sbinet/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/starford/forcegraph/internal/interaction"
)

var hexColor = regexp.MustCompile(`^#?([0-9a-fA-F]{6}|[0-9a-fA-F]{3})$`)

// expandHex normalizes a 3 or 6 digit hex color to six digits without the
// leading pound sign. Anything else yields fallback.
func expandHex(c, fallback string) string {
	m := hexColor.FindStringSubmatch(c)
	if m == nil {
		m = hexColor.FindStringSubmatch(fallback)
	}
	h := m[1]
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	return h
}

// WritePNG rasterizes frame as seen through view. Node icons are remote
// resources and are drawn as outlined squares.
func WritePNG(w io.Writer, frame Frame, view interaction.Viewport) error {
	width := int(math.Ceil(frame.Width))
	height := int(math.Ceil(frame.Height))
	if width <= 0 || height <= 0 {
		return fmt.Errorf("render: png: invalid canvas %dx%d", width, height)
	}

	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	k := view.K
	if k == 0 {
		k = 1
	}
	dc.Translate(view.X, view.Y)
	dc.Scale(k, k)
	dc.SetLineCapRound()

	for _, l := range frame.Lines {
		dc.SetHexColor(expandHex(l.Color, defaultLinkColor))
		dc.SetLineWidth(l.StrokeWidth)
		dc.DrawLine(l.X1, l.Y1, l.X2, l.Y2)
		dc.Stroke()
	}

	dc.SetFontFace(basicfont.Face7x13)
	for _, n := range frame.Nodes {
		hex := expandHex(n.Color, defaultNodeColor)
		dc.DrawCircle(n.CX, n.CY, n.R)
		dc.SetHexColor(hex + "33")
		dc.FillPreserve()
		dc.SetHexColor(hex)
		dc.SetLineWidth(1)
		dc.Stroke()

		if n.Image != "" {
			dc.DrawRectangle(n.ImageX, n.ImageY, IconSize, IconSize)
			dc.SetLineWidth(0.5)
			dc.Stroke()
		}
		if n.Label != "" {
			dc.SetRGB(0, 0, 0)
			dc.DrawString(n.Label, n.LabelX, n.LabelY)
		}
	}

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("render: encode png: %w", err)
	}
	return nil
}
