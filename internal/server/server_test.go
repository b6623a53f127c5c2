package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zenpipeline/archview/pkg/api"
	"github.com/zenpipeline/archview/pkg/client"
	"github.com/zenpipeline/archview/pkg/layout"
)

type fakeBackend struct {
	mu            sync.Mutex
	snapshots     map[uuid.UUID]client.Snapshot
	fetchErr      error
	snapshotCalls int
}

func (f *fakeBackend) FetchSnapshot(ctx context.Context, repoID uuid.UUID) (client.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshotCalls++
	if f.fetchErr != nil {
		return client.Snapshot{}, f.fetchErr
	}
	snap, ok := f.snapshots[repoID]
	if !ok {
		return client.Snapshot{}, client.ErrNotFound
	}
	return snap, nil
}

func (f *fakeBackend) Analyze(ctx context.Context, repoID uuid.UUID) (api.DependencyGraph, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshots[repoID].Graph, nil
}

func (f *fakeBackend) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotCalls
}

type fakeCache struct {
	mu    sync.Mutex
	snaps map[uuid.UUID]client.Snapshot
	sets  int
}

func (f *fakeCache) Get(ctx context.Context, repoID uuid.UUID) (client.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.snaps[repoID]
	if !ok {
		return client.Snapshot{}, errors.New("miss")
	}
	return snap, nil
}

func (f *fakeCache) Set(ctx context.Context, snap client.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snaps[snap.RepositoryID] = snap
	f.sets++
	return nil
}

func (f *fakeCache) Invalidate(ctx context.Context, repoID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.snaps, repoID)
	return nil
}

func health(v float64) *float64 { return &v }

func testSnapshot(repoID uuid.UUID) client.Snapshot {
	return client.Snapshot{
		RepositoryID: repoID,
		TakenAt:      time.Now().UTC(),
		Graph: api.DependencyGraph{
			RepositoryID: repoID,
			Nodes: []api.DependencyNode{
				{ID: "auth", Name: "auth", Type: api.NodeModule, HealthScore: health(95)},
				{ID: "db", Name: "db", Type: api.NodeModule, HealthScore: health(72)},
			},
			Edges: []api.DependencyEdge{
				{Source: "auth", Target: "db", Type: api.EdgeImport},
			},
		},
	}
}

func newTestServer(t *testing.T, backend *fakeBackend, cache SnapshotCache) *httptest.Server {
	t.Helper()
	srv := NewServer(backend, cache, layout.Options{Width: 400, Height: 300}, "", nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, &fakeBackend{}, nil)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
}

func TestSnapshotEndpoint(t *testing.T) {
	repoID := uuid.New()
	backend := &fakeBackend{snapshots: map[uuid.UUID]client.Snapshot{repoID: testSnapshot(repoID)}}
	ts := newTestServer(t, backend, nil)

	resp, err := http.Get(ts.URL + "/api/graph/" + repoID.String())
	if err != nil {
		t.Fatalf("GET snapshot: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var snap client.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snap.Graph.Nodes) != 2 {
		t.Errorf("nodes = %d, want 2", len(snap.Graph.Nodes))
	}
}

func TestSnapshotEndpointBadID(t *testing.T) {
	ts := newTestServer(t, &fakeBackend{}, nil)

	resp, err := http.Get(ts.URL + "/api/graph/not-a-uuid")
	if err != nil {
		t.Fatalf("GET snapshot: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSnapshotEndpointNotFound(t *testing.T) {
	ts := newTestServer(t, &fakeBackend{snapshots: map[uuid.UUID]client.Snapshot{}}, nil)

	resp, err := http.Get(ts.URL + "/api/graph/" + uuid.NewString())
	if err != nil {
		t.Fatalf("GET snapshot: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestSnapshotCacheHitSkipsBackend(t *testing.T) {
	repoID := uuid.New()
	backend := &fakeBackend{snapshots: map[uuid.UUID]client.Snapshot{repoID: testSnapshot(repoID)}}
	cache := &fakeCache{snaps: map[uuid.UUID]client.Snapshot{}}
	ts := newTestServer(t, backend, cache)

	for i := 0; i < 2; i++ {
		resp, err := http.Get(ts.URL + "/api/graph/" + repoID.String())
		if err != nil {
			t.Fatalf("GET snapshot #%d: %v", i+1, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status #%d = %d, want 200", i+1, resp.StatusCode)
		}
	}

	if got := backend.calls(); got != 1 {
		t.Errorf("backend calls = %d, want 1 (second served from cache)", got)
	}
	if cache.sets != 1 {
		t.Errorf("cache sets = %d, want 1", cache.sets)
	}
}

func TestViewPage(t *testing.T) {
	repoID := uuid.New()
	ts := newTestServer(t, &fakeBackend{}, nil)

	resp, err := http.Get(ts.URL + "/view/" + repoID.String())
	if err != nil {
		t.Fatalf("GET view: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body strings.Builder
	buf := make([]byte, 64<<10)
	for {
		n, err := resp.Body.Read(buf)
		body.Write(buf[:n])
		if err != nil {
			break
		}
	}
	if !strings.Contains(body.String(), "/ws/layout/"+repoID.String()) {
		t.Error("viewer page missing websocket URL")
	}
}

func TestLayoutWebsocketStreamsFrames(t *testing.T) {
	repoID := uuid.New()
	backend := &fakeBackend{snapshots: map[uuid.UUID]client.Snapshot{repoID: testSnapshot(repoID)}}
	ts := newTestServer(t, backend, nil)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/layout/" + repoID.String()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var frame layout.Frame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if len(frame.Nodes) != 2 {
		t.Fatalf("frame nodes = %d, want 2", len(frame.Nodes))
	}
	if len(frame.Edges) != 1 {
		t.Fatalf("frame edges = %d, want 1", len(frame.Edges))
	}

	// Pin a node and confirm a later frame reflects the pinned position.
	if err := conn.WriteJSON(wsOp{Op: "pin", ID: "auth", X: 42, Y: 24}); err != nil {
		t.Fatalf("write pin: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("read frame after pin: %v", err)
		}
		for _, n := range frame.Nodes {
			if n.ID == "auth" && n.X == 42 && n.Y == 24 {
				return
			}
		}
	}
	t.Fatal("pinned position never appeared in a frame")
}

func TestLayoutWebsocketFetchFailure(t *testing.T) {
	backend := &fakeBackend{fetchErr: errors.New("backend down")}
	ts := newTestServer(t, backend, nil)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/layout/" + uuid.NewString()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var frame layout.Frame
	if err := conn.ReadJSON(&frame); err == nil {
		t.Fatal("expected close, got a frame")
	}
}
