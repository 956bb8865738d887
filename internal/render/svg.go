package render

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"math"
	"regexp"

	svg "github.com/ajstarks/svgo"

	"github.com/starford/forcegraph/internal/interaction"
)

const (
	defaultNodeColor = "#555555"
	defaultLinkColor = "#999999"
)

var safeColor = regexp.MustCompile(`^(#[0-9a-fA-F]{3,8}|[a-zA-Z]{1,32}|rgba?\([0-9., %]{1,40}\))$`)

// cssColor returns c when it is a plain CSS color and fallback otherwise.
// Colors come from user attributes and end up inside style attributes.
func cssColor(c, fallback string) string {
	if safeColor.MatchString(c) {
		return c
	}
	return fallback
}

// WriteSVG renders a static SVG snapshot of frame as seen through view.
func WriteSVG(w io.Writer, frame Frame, view interaction.Viewport) error {
	var buf bytes.Buffer
	canvas := svg.New(&buf)
	canvas.Start(int(math.Ceil(frame.Width)), int(math.Ceil(frame.Height)), `pointer-events="all"`)
	canvas.Gtransform(view.String())

	canvas.Group(`class="links"`)
	for _, l := range frame.Lines {
		style := fmt.Sprintf("stroke:%s;stroke-width:%.2f;stroke-linecap:round",
			cssColor(l.Color, defaultLinkColor), l.StrokeWidth)
		canvas.Group()
		canvas.Line(round(l.X1), round(l.Y1), round(l.X2), round(l.Y2), style)
		if l.Title != "" {
			canvas.Title(l.Title)
		}
		canvas.Gend()
	}
	canvas.Gend()

	canvas.Group(`class="nodes"`)
	for _, n := range frame.Nodes {
		color := cssColor(n.Color, defaultNodeColor)
		canvas.Group()
		canvas.Circle(round(n.CX), round(n.CY), round(n.R),
			fmt.Sprintf("stroke:%s;fill:%s;stroke-opacity:1;fill-opacity:0.2", color, color))
		if n.Image != "" {
			canvas.Image(round(n.ImageX), round(n.ImageY), IconSize, IconSize, html.EscapeString(n.Image))
		}
		if n.Label != "" {
			canvas.Text(round(n.LabelX), round(n.LabelY), n.Label, "font-size:12px;font-family:sans-serif")
		}
		if n.Title != "" {
			canvas.Title(n.Title)
		}
		canvas.Gend()
	}
	canvas.Gend()

	canvas.Gend()
	canvas.End()

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("render: write svg: %w", err)
	}
	return nil
}

func round(f float64) int {
	return int(math.Round(f))
}
