// Package view is the graph view controller: it owns the currently selected
// repository's snapshot and the running layout simulation, and enforces the
// lifecycle the renderers rely on: a new selection or analysis always stops
// the prior simulation before a new one starts, so no stale ticks ever touch
// a replaced layout.
package view

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zenpipeline/archview/internal/metrics"
	"github.com/zenpipeline/archview/pkg/api"
	"github.com/zenpipeline/archview/pkg/client"
	"github.com/zenpipeline/archview/pkg/layout"
)

// EmptyMessage is the placeholder shown when a repository has no graph yet.
const EmptyMessage = "No dependency data. Run an analysis to populate the graph."

// Backend is the slice of the SDK the controller needs. *client.Client
// satisfies it.
type Backend interface {
	FetchSnapshot(ctx context.Context, repoID uuid.UUID) (client.Snapshot, error)
	Analyze(ctx context.Context, repoID uuid.UUID) (api.DependencyGraph, error)
}

// Controller coordinates fetches, analysis runs, and the layout simulation
// for one view surface. Methods are safe for concurrent use.
type Controller struct {
	mu      sync.Mutex
	backend Backend
	log     *slog.Logger
	opts    layout.Options

	repoID     uuid.UUID
	snapshot   client.Snapshot
	hasData    bool
	sim        *layout.Simulation
	settled    bool
	analyzing  bool
	generation uint64
}

// New creates a controller. logger may be nil for slog.Default.
func New(backend Backend, opts layout.Options, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{backend: backend, log: logger, opts: opts}
}

// Select switches the view to a repository and fetches its snapshot. On
// failure the prior state is left untouched and the error is returned after
// logging. A Select that resolves after a newer Select has started is
// discarded (stale generation).
func (c *Controller) Select(ctx context.Context, repoID uuid.UUID) error {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.repoID = repoID
	c.mu.Unlock()

	start := time.Now()
	snap, err := c.backend.FetchSnapshot(ctx, repoID)
	metrics.FetchSeconds.WithLabelValues("snapshot").Observe(time.Since(start).Seconds())
	if err != nil {
		c.log.Error("snapshot fetch failed", "repository_id", repoID, "error", err)
		metrics.FetchTotal.WithLabelValues("snapshot", "error").Inc()
		return err
	}
	metrics.FetchTotal.WithLabelValues("snapshot", "ok").Inc()

	if !c.apply(gen, snap) {
		c.log.Debug("discarding stale snapshot", "repository_id", repoID, "generation", gen)
	}
	return nil
}

// Analyze triggers a fresh backend analysis and, on completion, refreshes
// the snapshot. While one analysis is in flight further calls are a no-op:
// no request is made and nil is returned.
func (c *Controller) Analyze(ctx context.Context) error {
	c.mu.Lock()
	if c.analyzing {
		c.mu.Unlock()
		return nil
	}
	c.analyzing = true
	repoID := c.repoID
	gen := c.generation
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.analyzing = false
		c.mu.Unlock()
	}()

	start := time.Now()
	_, err := c.backend.Analyze(ctx, repoID)
	metrics.FetchSeconds.WithLabelValues("analyze").Observe(time.Since(start).Seconds())
	if err != nil {
		c.log.Error("analysis failed", "repository_id", repoID, "error", err)
		metrics.FetchTotal.WithLabelValues("analyze", "error").Inc()
		return err
	}
	metrics.FetchTotal.WithLabelValues("analyze", "ok").Inc()

	snap, err := c.backend.FetchSnapshot(ctx, repoID)
	if err != nil {
		c.log.Error("post-analysis refresh failed", "repository_id", repoID, "error", err)
		return err
	}
	if !c.apply(gen, snap) {
		c.log.Debug("discarding analysis result for deselected repository", "repository_id", repoID)
	}
	return nil
}

// apply installs a snapshot if its generation is still current. The prior
// simulation is stopped before the new one is created, and no simulation is
// started for an empty graph.
func (c *Controller) apply(gen uint64, snap client.Snapshot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return false
	}

	if c.sim != nil {
		c.sim.Stop()
		metrics.ActiveSimulations.Dec()
		c.sim = nil
	}

	c.snapshot = snap
	c.hasData = true
	c.settled = false

	if len(snap.Graph.Nodes) == 0 {
		return true
	}

	sim, err := layout.New(snap.Graph.Nodes, snap.Graph.Edges, c.opts)
	if err != nil {
		// A malformed graph renders as empty rather than crashing the view.
		c.log.Error("layout rejected graph", "repository_id", snap.RepositoryID, "error", err)
		return true
	}
	c.sim = sim
	metrics.ActiveSimulations.Inc()
	return true
}

// Tick advances the simulation one step, returning false when there is
// nothing left to animate.
func (c *Controller) Tick() bool {
	c.mu.Lock()
	sim := c.sim
	c.mu.Unlock()
	if sim == nil {
		return false
	}
	metrics.LayoutTicks.Inc()
	more := sim.Tick()
	if !more && sim.State() == layout.StateConverged {
		c.mu.Lock()
		if !c.settled {
			c.settled = true
			metrics.LayoutConverged.Inc()
		}
		c.mu.Unlock()
	}
	return more
}

// Frame snapshots the current layout for rendering. An empty frame (zero
// nodes) means the renderer should show EmptyMessage.
func (c *Controller) Frame() layout.Frame {
	c.mu.Lock()
	sim := c.sim
	opts := c.opts
	c.mu.Unlock()
	if sim == nil {
		w, h := opts.Width, opts.Height
		if w <= 0 {
			w = 800
		}
		if h <= 0 {
			h = 600
		}
		return layout.Frame{Width: w, Height: h, State: layout.StateIdle.String()}
	}
	return sim.Frame()
}

// Empty reports whether the current repository has no graph to draw.
func (c *Controller) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sim == nil
}

// Analyzing reports whether an analysis request is in flight.
func (c *Controller) Analyzing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.analyzing
}

// Snapshot returns the current data (graph, compliance, drift) and whether
// any snapshot has been loaded yet.
func (c *Controller) Snapshot() (client.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot, c.hasData
}

// RepositoryID returns the currently selected repository.
func (c *Controller) RepositoryID() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.repoID
}

// PinNode starts a drag: the node is fixed at (x, y) and the simulation
// reheats so neighbors re-settle.
func (c *Controller) PinNode(id string, x, y float64) {
	if sim := c.currentSim(); sim != nil {
		sim.Pin(id, x, y)
	}
}

// MoveNode updates a dragged node's position.
func (c *Controller) MoveNode(id string, x, y float64) {
	if sim := c.currentSim(); sim != nil {
		sim.Move(id, x, y)
	}
}

// ReleaseNode ends a drag, returning the node to free simulation.
func (c *Controller) ReleaseNode(id string) {
	if sim := c.currentSim(); sim != nil {
		sim.Release(id)
	}
}

// HitTest finds the node nearest to (x, y) within radius.
func (c *Controller) HitTest(x, y, radius float64) (layout.NodePosition, bool) {
	sim := c.currentSim()
	if sim == nil {
		return layout.NodePosition{}, false
	}
	return sim.Lookup(x, y, radius)
}

// Close stops the running simulation. The controller may be reused with a
// new Select afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sim != nil {
		c.sim.Stop()
		metrics.ActiveSimulations.Dec()
		c.sim = nil
	}
}

func (c *Controller) currentSim() *layout.Simulation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sim
}
