package view

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/zenpipeline/archview/pkg/api"
	"github.com/zenpipeline/archview/pkg/client"
	"github.com/zenpipeline/archview/pkg/layout"
)

type fakeBackend struct {
	mu        sync.Mutex
	graphs    map[uuid.UUID]api.DependencyGraph
	fetchErr  error
	fetchGate chan struct{} // fetches for gateRepo block until closed
	gateRepo  uuid.UUID

	snapshotCalls int32
	analyzeCalls  int32
	analyzeDelay  time.Duration
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{graphs: make(map[uuid.UUID]api.DependencyGraph)}
}

func (f *fakeBackend) setGraph(repoID uuid.UUID, nodes []api.DependencyNode, edges []api.DependencyEdge) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.graphs[repoID] = api.DependencyGraph{RepositoryID: repoID, Nodes: nodes, Edges: edges}
}

func (f *fakeBackend) FetchSnapshot(ctx context.Context, repoID uuid.UUID) (client.Snapshot, error) {
	atomic.AddInt32(&f.snapshotCalls, 1)
	f.mu.Lock()
	gate, gateRepo := f.fetchGate, f.gateRepo
	f.mu.Unlock()
	if gate != nil && repoID == gateRepo {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return client.Snapshot{}, f.fetchErr
	}
	return client.Snapshot{
		RepositoryID: repoID,
		TakenAt:      time.Now(),
		Graph:        f.graphs[repoID],
	}, nil
}

func (f *fakeBackend) Analyze(ctx context.Context, repoID uuid.UUID) (api.DependencyGraph, error) {
	atomic.AddInt32(&f.analyzeCalls, 1)
	if f.analyzeDelay > 0 {
		time.Sleep(f.analyzeDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.graphs[repoID], nil
}

func nodes(ids ...string) []api.DependencyNode {
	out := make([]api.DependencyNode, 0, len(ids))
	for _, id := range ids {
		out = append(out, api.DependencyNode{ID: id, Name: id, Type: api.NodeModule})
	}
	return out
}

func TestEmptyGraphStartsNoSimulation(t *testing.T) {
	backend := newFakeBackend()
	repoID := uuid.New()
	backend.setGraph(repoID, nil, nil)

	c := New(backend, layout.Options{}, nil)
	if err := c.Select(context.Background(), repoID); err != nil {
		t.Fatalf("Select: %v", err)
	}

	if !c.Empty() {
		t.Error("view with zero nodes should be empty")
	}
	frame := c.Frame()
	if len(frame.Nodes) != 0 {
		t.Errorf("empty view produced %d nodes", len(frame.Nodes))
	}
	if frame.State != "idle" {
		t.Errorf("empty view simulation state: got %q, want idle", frame.State)
	}
	if c.Tick() {
		t.Error("Tick on empty view should report nothing to animate")
	}
}

func TestSelectReplacesSimulationAndFrame(t *testing.T) {
	backend := newFakeBackend()
	repoA, repoB := uuid.New(), uuid.New()
	backend.setGraph(repoA, nodes("a1", "a2"), []api.DependencyEdge{{Source: "a1", Target: "a2", Type: api.EdgeCall}})
	backend.setGraph(repoB, nodes("b1", "b2", "b3"), nil)

	c := New(backend, layout.Options{}, nil)
	if err := c.Select(context.Background(), repoA); err != nil {
		t.Fatalf("Select A: %v", err)
	}
	for c.Tick() {
	}
	if got := c.Frame().State; got != "converged" {
		t.Fatalf("repo A state: got %q, want converged", got)
	}

	if err := c.Select(context.Background(), repoB); err != nil {
		t.Fatalf("Select B: %v", err)
	}
	frame := c.Frame()
	if len(frame.Nodes) != 3 {
		t.Fatalf("after switch: got %d nodes, want 3 (no leftovers from repo A)", len(frame.Nodes))
	}
	for _, n := range frame.Nodes {
		if n.ID == "a1" || n.ID == "a2" {
			t.Errorf("node %s from previous repository still rendered", n.ID)
		}
	}
}

func TestFailedFetchKeepsPriorState(t *testing.T) {
	backend := newFakeBackend()
	repoID := uuid.New()
	backend.setGraph(repoID, nodes("n1", "n2"), nil)

	c := New(backend, layout.Options{}, nil)
	if err := c.Select(context.Background(), repoID); err != nil {
		t.Fatalf("Select: %v", err)
	}

	backend.mu.Lock()
	backend.fetchErr = errors.New("backend down")
	backend.mu.Unlock()

	if err := c.Select(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected error from failed fetch")
	}

	// Prior graph is still rendered.
	frame := c.Frame()
	if len(frame.Nodes) != 2 {
		t.Errorf("prior state lost after failed fetch: %d nodes", len(frame.Nodes))
	}
}

func TestStaleFetchIsDiscarded(t *testing.T) {
	backend := newFakeBackend()
	repoOld, repoNew := uuid.New(), uuid.New()
	backend.setGraph(repoOld, nodes("old1"), nil)
	backend.setGraph(repoNew, nodes("new1", "new2"), nil)

	gate := make(chan struct{})
	backend.mu.Lock()
	backend.fetchGate, backend.gateRepo = gate, repoOld
	backend.mu.Unlock()

	c := New(backend, layout.Options{}, nil)

	done := make(chan error, 1)
	go func() { done <- c.Select(context.Background(), repoOld) }()

	// The second selection supersedes the first while it is still blocked.
	time.Sleep(20 * time.Millisecond)
	if err := c.Select(context.Background(), repoNew); err != nil {
		t.Fatalf("Select new: %v", err)
	}
	close(gate) // let the stale fetch resolve

	if err := <-done; err != nil {
		t.Fatalf("Select old: %v", err)
	}

	frame := c.Frame()
	if len(frame.Nodes) != 2 {
		t.Fatalf("got %d nodes, want 2 from the newer repository", len(frame.Nodes))
	}
	for _, n := range frame.Nodes {
		if n.ID == "old1" {
			t.Error("stale fetch result was applied over the newer selection")
		}
	}
}

func TestAnalyzeGuardIsNoOpWhileInFlight(t *testing.T) {
	backend := newFakeBackend()
	repoID := uuid.New()
	backend.setGraph(repoID, nodes("n1"), nil)
	backend.analyzeDelay = 50 * time.Millisecond

	c := New(backend, layout.Options{}, nil)
	if err := c.Select(context.Background(), repoID); err != nil {
		t.Fatalf("Select: %v", err)
	}
	calls := atomic.LoadInt32(&backend.snapshotCalls)

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Analyze(context.Background())
		}()
	}
	// Give both goroutines a moment to race the guard, one must win.
	time.Sleep(10 * time.Millisecond)
	if !c.Analyzing() {
		t.Error("Analyzing should report true while the request is in flight")
	}
	wg.Wait()

	if got := atomic.LoadInt32(&backend.analyzeCalls); got != 1 {
		t.Errorf("analyze calls: got %d, want exactly 1 across two rapid clicks", got)
	}
	if got := atomic.LoadInt32(&backend.snapshotCalls) - calls; got != 1 {
		t.Errorf("post-analysis refreshes: got %d, want 1", got)
	}
	if c.Analyzing() {
		t.Error("Analyzing should clear after completion")
	}
}

func TestDragDelegation(t *testing.T) {
	backend := newFakeBackend()
	repoID := uuid.New()
	backend.setGraph(repoID, nodes("n1", "n2"), []api.DependencyEdge{{Source: "n1", Target: "n2", Type: api.EdgeImport}})

	c := New(backend, layout.Options{}, nil)
	if err := c.Select(context.Background(), repoID); err != nil {
		t.Fatalf("Select: %v", err)
	}

	c.PinNode("n1", 10, 20)
	c.Tick()
	var pinned int
	for _, n := range c.Frame().Nodes {
		if n.Pinned {
			pinned++
			if n.ID != "n1" {
				t.Errorf("wrong node pinned: %s", n.ID)
			}
			if n.X != 10 || n.Y != 20 {
				t.Errorf("pinned position: (%v, %v), want (10, 20)", n.X, n.Y)
			}
		}
	}
	if pinned != 1 {
		t.Fatalf("pinned nodes: got %d, want 1", pinned)
	}

	c.ReleaseNode("n1")
	c.Tick()
	for _, n := range c.Frame().Nodes {
		if n.Pinned {
			t.Errorf("node %s still pinned after release", n.ID)
		}
	}
}

func TestCloseStopsSimulation(t *testing.T) {
	backend := newFakeBackend()
	repoID := uuid.New()
	backend.setGraph(repoID, nodes("n1", "n2"), nil)

	c := New(backend, layout.Options{}, nil)
	if err := c.Select(context.Background(), repoID); err != nil {
		t.Fatalf("Select: %v", err)
	}
	c.Close()
	if c.Tick() {
		t.Error("Tick after Close should be a no-op")
	}
	if !c.Empty() {
		t.Error("closed view should report empty")
	}
}
