package layout

import (
	"math"

	"gonum.org/v1/gonum/spatial/barneshut"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/starford/forcegraph/internal/graph"
)

// linkForce pulls linked nodes towards a rest length of
// linkDistance/weight. Stiffness is 1/min(degree) so hubs are not dragged
// around by their many neighbours.
type linkForce struct {
	sim       *Simulation
	strengths []float64
	biases    []float64
	distances []float64
}

func newLinkForce(s *Simulation) *linkForce {
	count := make([]int, len(s.nodes))
	for _, e := range s.edges {
		count[e.source]++
		count[e.target]++
	}
	f := &linkForce{
		sim:       s,
		strengths: make([]float64, len(s.edges)),
		biases:    make([]float64, len(s.edges)),
		distances: make([]float64, len(s.edges)),
	}
	for i, e := range s.edges {
		cs, ct := count[e.source], count[e.target]
		f.biases[i] = float64(cs) / float64(cs+ct)
		w := e.link.Weight
		if w <= 0 {
			// a zero-weight link has an infinite rest length
			continue
		}
		f.strengths[i] = 1 / float64(min(cs, ct))
		f.distances[i] = s.cfg.LinkDistance / w
	}
	return f
}

func (f *linkForce) Apply(alpha float64) {
	nodes := f.sim.nodes
	for i, e := range f.sim.edges {
		if f.strengths[i] == 0 {
			continue
		}
		src, dst := nodes[e.source], nodes[e.target]
		x := dst.X + dst.VX - src.X - src.VX
		y := dst.Y + dst.VY - src.Y - src.VY
		if x == 0 {
			x = f.sim.jiggle()
		}
		if y == 0 {
			y = f.sim.jiggle()
		}
		l := math.Sqrt(x*x + y*y)
		l = (l - f.distances[i]) / l * alpha * f.strengths[i]
		x *= l
		y *= l
		b := f.biases[i]
		dst.VX -= x * b
		dst.VY -= y * b
		src.VX += x * (1 - b)
		src.VY += y * (1 - b)
	}
}

// body adapts a node to the Barnes-Hut plane.
type body struct {
	n *graph.Node
}

func (b body) Coord2() r2.Vec { return r2.Vec{X: b.n.X, Y: b.n.Y} }
func (b body) Mass() float64  { return 1 }

// manyBodyForce applies a charge of the same strength between every pair of
// nodes. Negative strength repels.
type manyBodyForce struct {
	sim       *Simulation
	particles []barneshut.Particle2
}

const distanceMin2 = 1

func newManyBodyForce(s *Simulation) *manyBodyForce {
	f := &manyBodyForce{sim: s, particles: make([]barneshut.Particle2, len(s.nodes))}
	for i, n := range s.nodes {
		f.particles[i] = body{n: n}
	}
	return f
}

func (f *manyBodyForce) Apply(alpha float64) {
	strength := f.sim.cfg.Charge
	if strength == 0 || len(f.particles) < 2 {
		return
	}
	theta := f.sim.theta
	var plane *barneshut.Plane
	if f.finite() {
		var err error
		plane, err = barneshut.NewPlane(f.particles)
		if err != nil {
			plane = nil
		}
	}
	if plane == nil {
		// Coordinates too close to split, or not finite; walk every pair
		// instead.
		plane = &barneshut.Plane{Particles: f.particles}
		theta = 0
	}

	charge := func(p1, p2 barneshut.Particle2, _, m2 float64, v r2.Vec) r2.Vec {
		if p2 == p1 {
			return r2.Vec{}
		}
		if v.X == 0 {
			v.X = f.sim.jiggle()
		}
		if v.Y == 0 {
			v.Y = f.sim.jiggle()
		}
		l := r2.Norm2(v)
		if !isFinite(l) {
			return r2.Vec{}
		}
		if l < distanceMin2 {
			l = math.Sqrt(distanceMin2 * l)
		}
		return r2.Scale(strength*m2*alpha/l, v)
	}

	// Forces are computed against a snapshot; velocities are applied after.
	deltas := make([]r2.Vec, len(f.particles))
	for i, p := range f.particles {
		deltas[i] = plane.ForceOn(p, theta, charge)
	}
	for i, n := range f.sim.nodes {
		n.VX += deltas[i].X
		n.VY += deltas[i].Y
	}
}

// finite reports whether every node has finite coordinates, which the
// Barnes-Hut tree needs to terminate.
func (f *manyBodyForce) finite() bool {
	for _, n := range f.sim.nodes {
		if !isFinite(n.X) || !isFinite(n.Y) {
			return false
		}
	}
	return true
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// collidePoint is a node position predicted one step ahead, indexed in a
// k-d tree for neighbour search.
type collidePoint struct {
	x, y float64
	idx  int
}

func (p collidePoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(collidePoint)
	if d == 0 {
		return p.x - q.x
	}
	return p.y - q.y
}

func (p collidePoint) Dims() int { return 2 }

func (p collidePoint) Distance(c kdtree.Comparable) float64 {
	q := c.(collidePoint)
	dx, dy := p.x-q.x, p.y-q.y
	return dx*dx + dy*dy
}

type collidePoints []collidePoint

func (p collidePoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p collidePoints) Len() int                              { return len(p) }
func (p collidePoints) Pivot(d kdtree.Dim) int                { return collidePlane{collidePoints: p, Dim: d}.Pivot() }
func (p collidePoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

type collidePlane struct {
	kdtree.Dim
	collidePoints
}

func (p collidePlane) Less(i, j int) bool {
	if p.Dim == 0 {
		return p.collidePoints[i].x < p.collidePoints[j].x
	}
	return p.collidePoints[i].y < p.collidePoints[j].y
}
func (p collidePlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p collidePlane) Slice(start, end int) kdtree.SortSlicer {
	p.collidePoints = p.collidePoints[start:end]
	return p
}
func (p collidePlane) Swap(i, j int) {
	p.collidePoints[i], p.collidePoints[j] = p.collidePoints[j], p.collidePoints[i]
}

// collideForce keeps nodes at least 2*radius apart, where radius is
// collisionScale*nodeRadius. Overlapping pairs are pushed apart by equal
// halves of the overlap.
type collideForce struct {
	sim *Simulation
}

func newCollideForce(s *Simulation) *collideForce {
	return &collideForce{sim: s}
}

func (f *collideForce) Apply(_ float64) {
	nodes := f.sim.nodes
	radius := f.sim.cfg.CollisionScale * f.sim.cfg.NodeRadius
	if radius <= 0 || len(nodes) < 2 {
		return
	}
	points := make(collidePoints, len(nodes))
	indexed := make(collidePoints, 0, len(nodes))
	for i, n := range nodes {
		points[i] = collidePoint{x: n.X + n.VX, y: n.Y + n.VY, idx: i}
		// Non-finite points cannot be ordered in the tree.
		if isFinite(points[i].x) && isFinite(points[i].y) {
			indexed = append(indexed, points[i])
		}
	}
	if len(indexed) < 2 {
		return
	}
	// The tree reorders the slice it is given.
	tree := kdtree.New(indexed, false)

	r := 2 * radius
	r2max := r * r
	for i, n := range nodes {
		if !isFinite(points[i].x) || !isFinite(points[i].y) {
			continue
		}
		keep := kdtree.NewDistKeeper(r2max)
		tree.NearestSet(keep, points[i])
		xi, yi := n.X+n.VX, n.Y+n.VY
		for _, c := range keep.Heap {
			if c.Comparable == nil {
				continue
			}
			j := c.Comparable.(collidePoint).idx
			if j <= i {
				continue
			}
			other := nodes[j]
			x := xi - other.X - other.VX
			y := yi - other.Y - other.VY
			l := x*x + y*y
			if l >= r2max {
				continue
			}
			if x == 0 {
				x = f.sim.jiggle()
				l += x * x
			}
			if y == 0 {
				y = f.sim.jiggle()
				l += y * y
			}
			l = math.Sqrt(l)
			l = (r - l) / l
			x *= l
			y *= l
			// equal radii split the correction evenly
			n.VX += x * 0.5
			n.VY += y * 0.5
			other.VX -= x * 0.5
			other.VY -= y * 0.5
		}
	}
}

// centerForce translates every node so the centroid sits on the canvas
// midpoint. It moves positions directly and does not touch velocities.
type centerForce struct {
	sim *Simulation
}

func newCenterForce(s *Simulation) *centerForce {
	return &centerForce{sim: s}
}

func (f *centerForce) Apply(_ float64) {
	nodes := f.sim.nodes
	if len(nodes) == 0 {
		return
	}
	cx, cy := f.sim.cfg.Center()
	var sx, sy float64
	count := 0
	for _, n := range nodes {
		if !isFinite(n.X) || !isFinite(n.Y) {
			continue
		}
		sx += n.X
		sy += n.Y
		count++
	}
	if count == 0 {
		return
	}
	sx = sx/float64(count) - cx
	sy = sy/float64(count) - cy
	for _, n := range nodes {
		n.X -= sx
		n.Y -= sy
	}
}

type axis int

const (
	axisX axis = iota
	axisY
)

// axisForce pulls every node towards the canvas midpoint along one axis,
// with the configured gravity as strength.
type axisForce struct {
	sim  *Simulation
	axis axis
}

func newAxisForce(s *Simulation, a axis) *axisForce {
	return &axisForce{sim: s, axis: a}
}

func (f *axisForce) Apply(alpha float64) {
	k := f.sim.cfg.Gravity * alpha
	if k == 0 {
		return
	}
	cx, cy := f.sim.cfg.Center()
	for _, n := range f.sim.nodes {
		if f.axis == axisX {
			n.VX += (cx - n.X) * k
		} else {
			n.VY += (cy - n.Y) * k
		}
	}
}
