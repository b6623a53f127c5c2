package layout

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/zenpipeline/archview/pkg/api"
)

// Options configure a simulation. Zero values fall back to defaults.
type Options struct {
	Width          float64
	Height         float64
	LinkDistance   float64
	ChargeStrength float64
	Seed           int64
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = 800
	}
	if o.Height <= 0 {
		o.Height = 600
	}
	if o.LinkDistance <= 0 {
		o.LinkDistance = DefaultLinkDistance
	}
	if o.ChargeStrength == 0 {
		o.ChargeStrength = DefaultChargeStrength
	}
	if o.Seed == 0 {
		o.Seed = 1
	}
	return o
}

// Simulation relaxes a graph layout tick by tick. All methods are safe for
// concurrent use; a renderer may drive Tick while an input handler pins and
// releases nodes.
type Simulation struct {
	mu    sync.Mutex
	opts  Options
	nodes []*Node
	links []*Link
	byID  map[string]*Node

	alpha       float64
	alphaTarget float64
	state       State
	rng         *rand.Rand
}

// New copies the given nodes and edges into a fresh simulation. The input
// slices are not retained or written to. Every edge endpoint must name an
// existing node id.
func New(nodes []api.DependencyNode, edges []api.DependencyEdge, opts Options) (*Simulation, error) {
	opts = opts.withDefaults()

	s := &Simulation{
		opts:  opts,
		byID:  make(map[string]*Node, len(nodes)),
		alpha: 1,
		state: StateIdle,
		rng:   rand.New(rand.NewSource(opts.Seed)),
	}

	for i, n := range nodes {
		// Phyllotaxis ring around the viewport center gives a
		// deterministic, collision-free start.
		radius := initialRadius * math.Sqrt(0.5+float64(i))
		angle := float64(i) * initialAngle
		node := &Node{
			ID:     n.ID,
			Name:   n.Name,
			Type:   string(n.Type),
			Health: n.Health(),
			X:      opts.Width/2 + radius*math.Cos(angle),
			Y:      opts.Height/2 + radius*math.Sin(angle),
		}
		if _, dup := s.byID[n.ID]; dup {
			return nil, fmt.Errorf("duplicate node id %q", n.ID)
		}
		s.nodes = append(s.nodes, node)
		s.byID[n.ID] = node
	}

	for _, e := range edges {
		src, ok := s.byID[e.Source]
		if !ok {
			return nil, fmt.Errorf("edge source %q: no such node", e.Source)
		}
		dst, ok := s.byID[e.Target]
		if !ok {
			return nil, fmt.Errorf("edge target %q: no such node", e.Target)
		}
		src.degree++
		dst.degree++
		s.links = append(s.links, &Link{
			Source:   src,
			Target:   dst,
			Type:     string(e.Type),
			Weight:   e.Weight,
			distance: opts.LinkDistance,
		})
	}

	// Link strength and bias depend on final degrees.
	for _, l := range s.links {
		l.strength = 1 / float64(min(l.Source.degree, l.Target.degree))
		l.bias = float64(l.Source.degree) / float64(l.Source.degree+l.Target.degree)
	}

	return s, nil
}

// Alpha returns the current simulation temperature.
func (s *Simulation) Alpha() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alpha
}

// State returns the current lifecycle phase.
func (s *Simulation) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Tick advances the simulation one step. It returns false once the
// simulation has converged or been stopped, after which further calls are
// no-ops.
func (s *Simulation) Tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateStopped || s.state == StateConverged {
		return false
	}
	s.state = StateRunning

	s.alpha += (s.alphaTarget - s.alpha) * alphaDecay

	s.applyLinks()
	s.applyCharge()
	s.applyCenter()
	s.integrate()

	if s.alpha < alphaMin {
		s.state = StateConverged
		return false
	}
	return true
}

// Run ticks the simulation to convergence (or until stopped elsewhere).
// Any drag reheat target is cleared first so the loop terminates; pinned
// nodes stay pinned.
func (s *Simulation) Run() {
	s.mu.Lock()
	s.alphaTarget = 0
	s.mu.Unlock()
	for s.Tick() {
	}
}

// Stop halts the simulation. It is idempotent; a stopped simulation never
// moves again.
func (s *Simulation) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConverged {
		s.state = StateStopped
	}
}

// Pin fixes a node at the given position and reheats the simulation so its
// neighbors re-settle around it. Unknown ids are ignored.
func (s *Simulation) Pin(id string, x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.byID[id]
	if !ok {
		return
	}
	fx, fy := x, y
	n.FX, n.FY = &fx, &fy
	s.alphaTarget = reheatTarget
	if s.alpha < reheatTarget {
		s.alpha = reheatTarget
	}
	if s.state == StateConverged {
		s.state = StateRunning
	}
}

// Move updates a pinned node's position. A node that was never pinned is
// pinned by the move.
func (s *Simulation) Move(id string, x, y float64) {
	s.mu.Lock()
	held := false
	if n, ok := s.byID[id]; ok && n.FX != nil {
		*n.FX, *n.FY = x, y
		held = true
	}
	s.mu.Unlock()
	if !held {
		s.Pin(id, x, y)
	}
}

// Release unpins a node, returning it to free simulation, and lets the
// layout cool back down.
func (s *Simulation) Release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.byID[id]
	if !ok {
		return
	}
	n.FX, n.FY = nil, nil
	s.alphaTarget = 0
}

// Frame snapshots current positions for rendering.
func (s *Simulation) Frame() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := Frame{
		Width:  s.opts.Width,
		Height: s.opts.Height,
		Alpha:  s.alpha,
		State:  s.state.String(),
		Nodes:  make([]NodePosition, 0, len(s.nodes)),
		Edges:  make([]EdgePosition, 0, len(s.links)),
	}
	for _, n := range s.nodes {
		f.Nodes = append(f.Nodes, NodePosition{
			ID:     n.ID,
			Name:   n.Name,
			Type:   n.Type,
			Health: n.Health,
			X:      n.X,
			Y:      n.Y,
			Pinned: n.FX != nil,
		})
	}
	for _, l := range s.links {
		f.Edges = append(f.Edges, EdgePosition{
			Source: l.Source.ID,
			Target: l.Target.ID,
			Type:   l.Type,
			X1:     l.Source.X,
			Y1:     l.Source.Y,
			X2:     l.Target.X,
			Y2:     l.Target.Y,
		})
	}
	return f
}

// Lookup returns the node nearest to (x, y) within radius, for hit testing
// drag gestures. The bool is false when nothing is in range.
func (s *Simulation) Lookup(x, y, radius float64) (NodePosition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	best := (*Node)(nil)
	bestD2 := radius * radius
	for _, n := range s.nodes {
		dx, dy := n.X-x, n.Y-y
		if d2 := dx*dx + dy*dy; d2 <= bestD2 {
			best, bestD2 = n, d2
		}
	}
	if best == nil {
		return NodePosition{}, false
	}
	return NodePosition{
		ID: best.ID, Name: best.Name, Type: best.Type,
		Health: best.Health, X: best.X, Y: best.Y, Pinned: best.FX != nil,
	}, true
}

// applyLinks pulls each edge's endpoints toward the configured separation,
// splitting the correction by degree so well-connected nodes move less.
func (s *Simulation) applyLinks() {
	for _, l := range s.links {
		dx := l.Target.X + l.Target.VX - l.Source.X - l.Source.VX
		dy := l.Target.Y + l.Target.VY - l.Source.Y - l.Source.VY
		if dx == 0 {
			dx = s.jiggle()
		}
		if dy == 0 {
			dy = s.jiggle()
		}
		dist := math.Sqrt(dx*dx + dy*dy)
		k := (dist - l.distance) / dist * s.alpha * l.strength
		dx, dy = dx*k, dy*k
		l.Target.VX -= dx * l.bias
		l.Target.VY -= dy * l.bias
		l.Source.VX += dx * (1 - l.bias)
		l.Source.VY += dy * (1 - l.bias)
	}
}

// applyCharge repels every node pair. Pairwise is fine at this scale; the
// graphs are tens of nodes, not thousands.
func (s *Simulation) applyCharge() {
	for i := 0; i < len(s.nodes); i++ {
		for j := i + 1; j < len(s.nodes); j++ {
			a, b := s.nodes[i], s.nodes[j]
			dx := b.X - a.X
			dy := b.Y - a.Y
			if dx == 0 {
				dx = s.jiggle()
			}
			if dy == 0 {
				dy = s.jiggle()
			}
			d2 := dx*dx + dy*dy
			if d2 < chargeDistMin2 {
				d2 = chargeDistMin2
			}
			w := s.opts.ChargeStrength * s.alpha / d2
			a.VX += dx * w
			a.VY += dy * w
			b.VX -= dx * w
			b.VY -= dy * w
		}
	}
}

// applyCenter translates the layout so its centroid sits on the viewport
// center. Positions shift directly; velocities are untouched.
func (s *Simulation) applyCenter() {
	if len(s.nodes) == 0 {
		return
	}
	var sx, sy float64
	for _, n := range s.nodes {
		sx += n.X
		sy += n.Y
	}
	sx = sx/float64(len(s.nodes)) - s.opts.Width/2
	sy = sy/float64(len(s.nodes)) - s.opts.Height/2
	for _, n := range s.nodes {
		n.X -= sx
		n.Y -= sy
	}
}

// integrate applies damped velocities. Pinned nodes snap to their fixed
// position with velocity zeroed.
func (s *Simulation) integrate() {
	for _, n := range s.nodes {
		if n.FX != nil {
			n.X = *n.FX
			n.VX = 0
		} else {
			n.VX *= velocityKeep
			n.X += n.VX
		}
		if n.FY != nil {
			n.Y = *n.FY
			n.VY = 0
		} else {
			n.VY *= velocityKeep
			n.Y += n.VY
		}
	}
}

// jiggle breaks exact overlaps with a tiny deterministic nudge.
func (s *Simulation) jiggle() float64 {
	return (s.rng.Float64() - 0.5) * 1e-6
}
