package http

import (
	"log"
	"net/http"
	"time"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"

	"github.com/gorilla/websocket"
)

// WatchHandler is the push substitute for owner dashboards: it polls the
// repository server-side and streams the same snapshot the GET endpoint
// returns. Server time stays the only clock and the repository stays the
// single source of truth, so pollers and watchers always agree.
type WatchHandler struct {
	service  *app.SessionService
	upgrader websocket.Upgrader
	interval time.Duration
}

func NewWatchHandler(service *app.SessionService) *WatchHandler {
	return &WatchHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		interval: time.Second,
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWatch streams session snapshots to the owner until the session
// completes or the client disconnects. Identity comes from query params
// because browser websocket clients cannot set headers.
func (h *WatchHandler) ServeWatch(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	userID := r.URL.Query().Get("userId")
	displayName := r.URL.Query().Get("name")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}
	principal := domain.Principal{ID: userID, DisplayName: displayName}

	view, err := h.service.Get(r.Context(), principal, sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	if view.OwnerID != userID {
		writeError(w, domain.ErrForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("watch upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if done := h.push(r, conn, principal, view); done {
		return
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			view, err := h.service.Get(r.Context(), principal, sessionID)
			if err != nil {
				_ = conn.WriteJSON(outboundMessage[string]{Type: "error", Payload: err.Error()})
				return
			}
			if done := h.push(r, conn, principal, view); done {
				return
			}
		}
	}
}

// push writes one snapshot; after the completed snapshot it appends the
// final leaderboard and reports the stream as finished.
func (h *WatchHandler) push(r *http.Request, conn *websocket.Conn, principal domain.Principal, view app.SessionView) bool {
	if err := conn.WriteJSON(outboundMessage[app.SessionView]{Type: "session", Payload: view}); err != nil {
		log.Printf("watch write error: %v", err)
		return true
	}
	if view.Status != domain.StatusCompleted {
		return false
	}
	board, err := h.service.Leaderboard(r.Context(), principal, view.ID)
	if err == nil {
		_ = conn.WriteJSON(outboundMessage[app.Leaderboard]{Type: "leaderboard", Payload: board})
	}
	return true
}
