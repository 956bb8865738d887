package internal

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/starford/forcegraph/internal/ingest"
	"github.com/starford/forcegraph/internal/interaction"
	"github.com/starford/forcegraph/internal/layout"
	"github.com/starford/forcegraph/internal/render"
)

// Snapshot formats.
const (
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatHTML = "html"
)

// DefaultSettleTicks bounds a headless layout. With the default decay a
// simulation settles in about 300 ticks.
const DefaultSettleTicks = 1000

// SnapshotRequest describes a headless render of one scene file.
type SnapshotRequest struct {
	Path     string
	Format   string
	MaxTicks int
	Seed     uint64
}

// FormatFromPath guesses a snapshot format from an output file name.
func FormatFromPath(name string) string {
	switch {
	case strings.HasSuffix(name, ".png"):
		return FormatPNG
	case strings.HasSuffix(name, ".html"), strings.HasSuffix(name, ".htm"):
		return FormatHTML
	default:
		return FormatSVG
	}
}

// Snapshot lays out the scene file in req without a server, runs it until
// it settles and writes the result to w.
func Snapshot(w io.Writer, cfg *Config, req SnapshotRequest) error {
	data, err := os.ReadFile(req.Path)
	if err != nil {
		return fmt.Errorf("read scene: %w", err)
	}
	scene, err := ingest.LoadFile(req.Path, data, cfg.Simulation)
	if err != nil {
		return err
	}

	var opts []layout.Option
	if req.Seed != 0 {
		opts = append(opts, layout.WithSeed(req.Seed))
	}
	sim := layout.New(scene.Graph, scene.Config, opts...)

	maxTicks := req.MaxTicks
	if maxTicks <= 0 {
		maxTicks = DefaultSettleTicks
	}
	ticks := sim.Settle(maxTicks)
	slog.Debug("scene laid out",
		slog.String("scene", scene.ID),
		slog.Int("ticks", ticks),
		slog.String("state", sim.State().String()))

	frame := render.Bind(sim.Nodes(), sim.Links(), sim.Config())
	frame.Tick = sim.Ticks()
	frame.Alpha = sim.Alpha()

	switch req.Format {
	case FormatSVG, "":
		return render.WriteSVG(w, frame, interaction.Identity())
	case FormatPNG:
		return render.WritePNG(w, frame, interaction.Identity())
	case FormatHTML:
		frags, err := render.NewFragments()
		if err != nil {
			return err
		}
		return frags.WriteDocument(w, scene.Config, render.ScriptData{
			Title: scene.Name,
			Frame: frame,
			View:  interaction.Identity(),
		})
	default:
		return fmt.Errorf("unknown format %q", req.Format)
	}
}
