// Package layout computes force-directed positions for a dependency graph.
// It is an iterative relaxation: a link force pulls connected nodes toward a
// fixed separation, a many-body force pushes all node pairs apart, and a
// centering force keeps the layout over the viewport center. The simulation
// cools from alpha 1 toward alphaMin and reports convergence when it gets
// there.
//
// Inputs are copied before the simulation attaches position and velocity
// fields, so the caller's node and edge slices are never mutated and can be
// reused across runs.
package layout

const (
	// DefaultLinkDistance is the separation the link force relaxes toward.
	DefaultLinkDistance = 100.0
	// DefaultChargeStrength is the many-body repulsion. Negative repels.
	DefaultChargeStrength = -180.0

	alphaMin       = 0.001
	alphaDecay     = 0.0228 // 1 - alphaMin^(1/300), ~300 ticks to converge
	velocityKeep   = 0.6    // velocity retained per tick (decay 0.4)
	initialRadius  = 10.0
	initialAngle   = 2.399963229728653 // pi * (3 - sqrt(5)), phyllotaxis
	reheatTarget   = 0.3               // alpha target while a node is dragged
	chargeDistMin2 = 1.0               // floor on squared distance in the charge force
)

// State is the lifecycle phase of a simulation.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateConverged
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateConverged:
		return "converged"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Node is the simulation's working copy of a dependency node. FX/FY pin the
// node to a fixed position while set; the integrator then zeroes its
// velocity instead of moving it.
type Node struct {
	ID     string
	Name   string
	Type   string
	Health float64

	X, Y   float64
	VX, VY float64
	FX, FY *float64

	degree int
}

// Link is the simulation's working copy of a dependency edge, bound to its
// endpoint nodes by id.
type Link struct {
	Source *Node
	Target *Node
	Type   string
	Weight int

	distance float64
	strength float64
	bias     float64
}

// NodePosition is one node's settled (or in-flight) position in a frame.
type NodePosition struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Type   string  `json:"type"`
	Health float64 `json:"health"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Pinned bool    `json:"pinned,omitempty"`
}

// EdgePosition is one edge with both endpoints resolved to coordinates.
type EdgePosition struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Type   string  `json:"type"`
	X1     float64 `json:"x1"`
	Y1     float64 `json:"y1"`
	X2     float64 `json:"x2"`
	Y2     float64 `json:"y2"`
}

// Frame is a positional snapshot of the whole layout, suitable for any
// renderer (SVG, TUI canvas, websocket viewer).
type Frame struct {
	Width  float64        `json:"width"`
	Height float64        `json:"height"`
	Alpha  float64        `json:"alpha"`
	State  string         `json:"state"`
	Nodes  []NodePosition `json:"nodes"`
	Edges  []EdgePosition `json:"edges"`
}
