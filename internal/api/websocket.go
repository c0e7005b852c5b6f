package api

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/zonewatch/backend/internal/monitoring"
)

// wsWriteTimeout bounds a single snapshot write so one stuck connection
// only ties up its own handler goroutine.
const wsWriteTimeout = 5 * time.Second

// handleWebSocket upgrades the connection, subscribes it to the hub, and
// streams each tick's snapshot as a JSON array until the client goes
// away or the hub shuts down.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		monitoring.Logf("ws: accept failed: %v", err)
		return
	}
	defer conn.CloseNow()

	id, ch := s.hub.Subscribe()
	defer s.hub.Unsubscribe(id)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case snapshot, ok := <-ch:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}

			writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := wsjson.Write(writeCtx, conn, snapshot)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
