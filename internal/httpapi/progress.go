package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/sessiondex/sessiondex/internal/applog"
)

func writeWSJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

// ProgressEvent describes one indexing job's lifecycle transition,
// broadcast to every subscribed indexer:progress WebSocket client.
type ProgressEvent struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"` // "started" | "completed" | "failed"
	Error  string `json:"error,omitempty"`
}

// Progress status values.
const (
	ProgressStarted   = "started"
	ProgressCompleted = "completed"
	ProgressFailed    = "failed"
)

type progressHub struct {
	mu   sync.Mutex
	subs map[chan ProgressEvent]struct{}
}

func newProgressHub() *progressHub {
	return &progressHub{subs: map[chan ProgressEvent]struct{}{}}
}

func (h *progressHub) subscribe() (chan ProgressEvent, func()) {
	ch := make(chan ProgressEvent, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
		close(ch)
	}
}

// Publish fans event out to every connected subscriber. A slow or
// disconnected subscriber's channel is skipped rather than blocking the
// publisher.
func (h *progressHub) Publish(event ProgressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// handleIndexerProgress upgrades to WebSocket and streams indexing job
// lifecycle events until the client disconnects.
// @Summary Stream indexing progress
// @Description Upgrades to WebSocket and streams refresh job start/completion events
// @Tags indexer
// @Router /indexer/progress [get]
func (s *Server) handleIndexerProgress(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		applog.Log.Errorf("progress: websocket accept failed: %v", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	ch, unsub := s.progress.subscribe()
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "server shutting down")
			return
		case event, ok := <-ch:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "subscription closed")
				return
			}
			if err := writeWSJSON(ctx, conn, event); err != nil {
				applog.Log.Debugf("progress: write failed: %v", err)
				return
			}
		}
	}
}
