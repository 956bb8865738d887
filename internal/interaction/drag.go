// Package interaction translates pointer gestures into simulation changes:
// dragging pins a node under the pointer, double-click recentres it, and the
// viewport tracks pan and zoom.
package interaction

import (
	"fmt"

	"github.com/starford/forcegraph/internal/apperr"
	"github.com/starford/forcegraph/internal/graph"
	"github.com/starford/forcegraph/internal/layout"
)

// DragAlphaTarget is the temperature the simulation is held at while at
// least one node is being dragged.
const DragAlphaTarget = 0.5

// Controller applies gestures to one simulation. Its methods must run where
// the simulation is owned, typically inside layout.Runner.Do.
type Controller struct {
	sim    *layout.Simulation
	active map[string]struct{}
}

// NewController returns a controller bound to sim.
func NewController(sim *layout.Simulation) *Controller {
	return &Controller{sim: sim, active: make(map[string]struct{})}
}

// Dragging reports the number of drags in progress.
func (c *Controller) Dragging() int { return len(c.active) }

// DragStart pins the node at its current position. The first concurrent
// drag re-heats the simulation.
func (c *Controller) DragStart(id string) error {
	n, err := c.node(id)
	if err != nil {
		return err
	}
	if len(c.active) == 0 {
		c.sim.SetAlphaTarget(DragAlphaTarget)
		c.sim.Restart()
	}
	c.active[id] = struct{}{}
	n.Pin(n.X, n.Y)
	return nil
}

// DragMove pins the node to the pointer, given in world coordinates. A move
// for a node that is not being dragged is ignored: it arrived after its end.
func (c *Controller) DragMove(id string, x, y float64) error {
	n, err := c.node(id)
	if err != nil {
		return err
	}
	if _, ok := c.active[id]; !ok {
		return nil
	}
	n.Pin(x, y)
	return nil
}

// DragEnd releases the node. When the last drag ends the simulation is left
// to cool down. An end without a matching start changes nothing, so a node
// pinned with Pin stays pinned.
func (c *Controller) DragEnd(id string) error {
	n, err := c.node(id)
	if err != nil {
		return err
	}
	if _, ok := c.active[id]; !ok {
		return nil
	}
	delete(c.active, id)
	if len(c.active) == 0 {
		c.sim.SetAlphaTarget(0)
		c.sim.Restart()
	}
	n.Unpin()
	return nil
}

// DoubleClick moves the node to the canvas centre without pinning it.
func (c *Controller) DoubleClick(id string) error {
	n, err := c.node(id)
	if err != nil {
		return err
	}
	n.X, n.Y = c.sim.Config().Center()
	c.sim.Restart()
	return nil
}

// Pin fixes a node at (x, y) in world coordinates until Release is called.
// Unlike a drag it does not re-heat the simulation beyond one restart.
func (c *Controller) Pin(id string, x, y float64) error {
	n, err := c.node(id)
	if err != nil {
		return err
	}
	n.Pin(x, y)
	if c.sim.Alpha() < c.sim.AlphaMin() {
		c.sim.SetAlpha(0.3)
	}
	c.sim.Restart()
	return nil
}

// Release unpins a node.
func (c *Controller) Release(id string) error {
	n, err := c.node(id)
	if err != nil {
		return err
	}
	n.Unpin()
	c.sim.Restart()
	return nil
}

// Reheat resets alpha to 1 so the whole layout runs again.
func (c *Controller) Reheat() {
	c.sim.SetAlpha(1)
	c.sim.Restart()
}

func (c *Controller) node(id string) (*graph.Node, error) {
	n, ok := c.sim.Node(id)
	if !ok {
		return nil, fmt.Errorf("interaction: node %q: %w", id, apperr.ErrNotFound)
	}
	return n, nil
}
