package sceneservice

import (
	"context"
	"html/template"
	"io"

	"github.com/starford/forcegraph/internal/layout"
	"github.com/starford/forcegraph/internal/render"
)

// Frame returns the current frame of scene id.
func (s *Service) Frame(ctx context.Context, id string) (render.Frame, error) {
	sc, err := s.scene(id)
	if err != nil {
		return render.Frame{}, err
	}
	return s.frame(ctx, sc)
}

// Markup returns the container fragment of scene id.
func (s *Service) Markup(id string) (template.HTML, error) {
	sc, err := s.scene(id)
	if err != nil {
		return "", err
	}
	return sc.frags.Markup(sc.cfg)
}

// Script returns the client script fragment of scene id, seeded with the
// current frame and viewport.
func (s *Service) Script(ctx context.Context, id string) (template.HTML, error) {
	sc, data, err := s.scriptData(ctx, id)
	if err != nil {
		return "", err
	}
	return sc.frags.Script(sc.cfg, data)
}

// WriteDocument writes a standalone HTML page for scene id.
func (s *Service) WriteDocument(ctx context.Context, w io.Writer, id string) error {
	sc, data, err := s.scriptData(ctx, id)
	if err != nil {
		return err
	}
	return sc.frags.WriteDocument(w, sc.cfg, data)
}

// WriteSVG writes an SVG snapshot of scene id.
func (s *Service) WriteSVG(ctx context.Context, w io.Writer, id string) error {
	sc, err := s.scene(id)
	if err != nil {
		return err
	}
	f, err := s.frame(ctx, sc)
	if err != nil {
		return err
	}
	return render.WriteSVG(w, f, sc.currentView())
}

// WritePNG writes a PNG snapshot of scene id.
func (s *Service) WritePNG(ctx context.Context, w io.Writer, id string) error {
	sc, err := s.scene(id)
	if err != nil {
		return err
	}
	f, err := s.frame(ctx, sc)
	if err != nil {
		return err
	}
	return render.WritePNG(w, f, sc.currentView())
}

func (s *Service) frame(ctx context.Context, sc *scene) (render.Frame, error) {
	var f render.Frame
	err := sc.runner.Do(ctx, func(sim *layout.Simulation) { f = frameOf(sim) })
	if err != nil {
		return render.Frame{}, s.runnerErr(sc, err)
	}
	return f, nil
}

func (s *Service) scriptData(ctx context.Context, id string) (*scene, render.ScriptData, error) {
	sc, err := s.scene(id)
	if err != nil {
		return nil, render.ScriptData{}, err
	}
	f, err := s.frame(ctx, sc)
	if err != nil {
		return nil, render.ScriptData{}, err
	}
	return sc, render.ScriptData{
		Title:    sc.name,
		Endpoint: s.opts.BasePath + "/" + sc.id,
		Token:    s.opts.AccessToken,
		Frame:    f,
		View:     sc.currentView(),
	}, nil
}
