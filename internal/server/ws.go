package server

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zenpipeline/archview/pkg/view"
)

const (
	tickInterval  = 33 * time.Millisecond
	writeDeadline = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The viewer page is served by this process; same-origin only.
	CheckOrigin: func(r *http.Request) bool {
		return r.Header.Get("Origin") == "" || r.Header.Get("Origin") == "http://"+r.Host || r.Header.Get("Origin") == "https://"+r.Host
	},
}

// wsOp is an interaction message from the viewer.
type wsOp struct {
	Op string  `json:"op"`
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// handleLayoutWS runs a layout session over a websocket: frames stream out
// every tick while the simulation is hot, and pin/move/release/analyze ops
// come back in from the viewer.
func (s *Server) handleLayoutWS(w http.ResponseWriter, r *http.Request) {
	repoID, err := uuid.Parse(r.PathValue("repo"))
	if err != nil {
		http.Error(w, "invalid repository id", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctrl := view.New(s.backend, s.layout, s.log)
	defer ctrl.Close()

	if err := ctrl.Select(r.Context(), repoID); err != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "snapshot fetch failed"),
			time.Now().Add(writeDeadline))
		return
	}

	// dirty forces one frame send after an op even when ticks are idle.
	var dirty atomic.Bool
	dirty.Store(true)

	done := make(chan struct{})
	go s.readOps(conn, ctrl, &dirty, done)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			moved := ctrl.Tick()
			if !moved && !dirty.Swap(false) {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := conn.WriteJSON(ctrl.Frame()); err != nil {
				return
			}
		}
	}
}

// readOps consumes interaction messages until the connection drops.
func (s *Server) readOps(conn *websocket.Conn, ctrl *view.Controller, dirty *atomic.Bool, done chan struct{}) {
	defer close(done)
	for {
		var op wsOp
		if err := conn.ReadJSON(&op); err != nil {
			return
		}
		switch op.Op {
		case "pin":
			ctrl.PinNode(op.ID, op.X, op.Y)
		case "move":
			ctrl.MoveNode(op.ID, op.X, op.Y)
		case "release":
			ctrl.ReleaseNode(op.ID)
		case "analyze":
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
				defer cancel()
				if err := ctrl.Analyze(ctx); err != nil {
					s.log.Error("analysis failed", "error", err)
				}
				dirty.Store(true)
			}()
		default:
			s.log.Warn("unknown websocket op", "op", op.Op)
			continue
		}
		dirty.Store(true)
	}
}
