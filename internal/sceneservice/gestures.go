package sceneservice

import (
	"context"
	"fmt"
	"math"

	"github.com/starford/forcegraph/internal/apperr"
	"github.com/starford/forcegraph/internal/interaction"
	"github.com/starford/forcegraph/internal/layout"
	"github.com/starford/forcegraph/internal/sse"
)

// Drag phases accepted by Drag.
const (
	DragStart = "start"
	DragMove  = "move"
	DragEnd   = "end"
)

// MaxCoordinate bounds every coordinate and offset a gesture may carry.
const MaxCoordinate = 1e6

func checkCoords(id string, vals ...float64) error {
	for _, f := range vals {
		if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > MaxCoordinate {
			return fmt.Errorf("scene %q: coordinate %v out of range: %w", id, f, apperr.ErrInvalidInput)
		}
	}
	return nil
}

// Drag applies one phase of a pointer drag on node. x and y are screen
// coordinates; they are mapped through the current viewport.
func (s *Service) Drag(ctx context.Context, id, phase, node string, x, y float64) error {
	if err := checkCoords(id, x, y); err != nil {
		return err
	}
	sc, err := s.scene(id)
	if err != nil {
		return err
	}
	wx, wy := sc.currentView().Invert(x, y)
	if err := checkCoords(id, wx, wy); err != nil {
		return err
	}

	var apply func(*interaction.Controller) error
	switch phase {
	case DragStart:
		apply = func(c *interaction.Controller) error { return c.DragStart(node) }
	case DragMove:
		apply = func(c *interaction.Controller) error { return c.DragMove(node, wx, wy) }
	case DragEnd:
		apply = func(c *interaction.Controller) error { return c.DragEnd(node) }
	default:
		return fmt.Errorf("scene %q: drag phase %q: %w", id, phase, apperr.ErrInvalidInput)
	}
	return s.gesture(ctx, sc, apply)
}

// DoubleClick moves node back to the canvas centre.
func (s *Service) DoubleClick(ctx context.Context, id, node string) error {
	sc, err := s.scene(id)
	if err != nil {
		return err
	}
	return s.gesture(ctx, sc, func(c *interaction.Controller) error { return c.DoubleClick(node) })
}

// Pin fixes node at world coordinates (x, y) and re-heats the layout.
func (s *Service) Pin(ctx context.Context, id, node string, x, y float64) error {
	if err := checkCoords(id, x, y); err != nil {
		return err
	}
	sc, err := s.scene(id)
	if err != nil {
		return err
	}
	return s.gesture(ctx, sc, func(c *interaction.Controller) error { return c.Pin(node, x, y) })
}

// Release unpins node.
func (s *Service) Release(ctx context.Context, id, node string) error {
	sc, err := s.scene(id)
	if err != nil {
		return err
	}
	return s.gesture(ctx, sc, func(c *interaction.Controller) error { return c.Release(node) })
}

// Restart re-heats the layout of scene id.
func (s *Service) Restart(ctx context.Context, id string) error {
	sc, err := s.scene(id)
	if err != nil {
		return err
	}
	return s.gesture(ctx, sc, func(c *interaction.Controller) error {
		c.Reheat()
		return nil
	})
}

// Zoom scales the viewport of scene id about the screen point (x, y).
func (s *Service) Zoom(id string, factor, x, y float64) (interaction.Viewport, error) {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return interaction.Viewport{}, fmt.Errorf("scene %q: zoom factor %v: %w", id, factor, apperr.ErrInvalidInput)
	}
	if err := checkCoords(id, x, y); err != nil {
		return interaction.Viewport{}, err
	}
	sc, err := s.scene(id)
	if err != nil {
		return interaction.Viewport{}, err
	}
	v := sc.updateView(func(v interaction.Viewport) interaction.Viewport { return v.Zoom(factor, x, y) })
	sc.broker.Publish(sse.Event{Type: sse.TypeView, Data: v})
	return v, nil
}

// Pan translates the viewport of scene id by (dx, dy) screen pixels.
func (s *Service) Pan(id string, dx, dy float64) (interaction.Viewport, error) {
	if err := checkCoords(id, dx, dy); err != nil {
		return interaction.Viewport{}, err
	}
	sc, err := s.scene(id)
	if err != nil {
		return interaction.Viewport{}, err
	}
	v := sc.updateView(func(v interaction.Viewport) interaction.Viewport { return v.Pan(dx, dy) })
	sc.broker.Publish(sse.Event{Type: sse.TypeView, Data: v})
	return v, nil
}

// View returns the viewport of scene id.
func (s *Service) View(id string) (interaction.Viewport, error) {
	sc, err := s.scene(id)
	if err != nil {
		return interaction.Viewport{}, err
	}
	return sc.currentView(), nil
}

func (s *Service) gesture(ctx context.Context, sc *scene, apply func(*interaction.Controller) error) error {
	var gErr error
	err := sc.runner.Do(ctx, func(*layout.Simulation) {
		gErr = apply(sc.ctrl)
	})
	if err != nil {
		return s.runnerErr(sc, err)
	}
	if gErr != nil {
		return fmt.Errorf("scene %q: %w", sc.id, gErr)
	}
	return nil
}
