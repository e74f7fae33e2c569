package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/infra/memory"

	"github.com/gorilla/websocket"
)

func TestWatchStreamsUntilCompletion(t *testing.T) {
	service := app.NewSessionService(
		memory.NewSessionRepository(),
		memory.NewStaticQuizSetLoader(sampleQuizSets()),
		memory.NewAttemptSink(),
	)
	handler := NewHandler(service)
	watch := NewWatchHandler(service)
	watch.interval = 50 * time.Millisecond

	mux := http.NewServeMux()
	handler.Register(mux)
	mux.HandleFunc("GET /sessions/{id}/watch", watch.ServeWatch)
	server := httptest.NewServer(mux)
	defer server.Close()

	_, body := doJSON(t, http.MethodPost, server.URL+"/sessions", "owner-1", map[string]any{"quizSetId": "quizset-1"})
	sessionID := body["sessionId"].(string)

	u := "ws" + server.URL[len("http"):] + "/sessions/" + sessionID + "/watch?userId=owner-1&name=Owner"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Initial snapshot arrives immediately.
	msgType, payload := readNext(conn, t, "session")
	if payload["status"] != "waiting" {
		t.Fatalf("expected waiting snapshot, got %v", payload["status"])
	}

	// End the session out-of-band; the stream must deliver the completed
	// snapshot followed by the final leaderboard, then close.
	sessionURL := server.URL + "/sessions/" + sessionID
	if resp, _ := doJSON(t, http.MethodPatch, sessionURL, "owner-1", map[string]any{"action": "end"}); resp.StatusCode != http.StatusOK {
		t.Fatalf("end: got %d", resp.StatusCode)
	}

	sawCompleted := false
	sawLeaderboard := false
	for i := 0; i < 10; i++ {
		msgType, payload = readNext(conn, t, "")
		switch msgType {
		case "session":
			if payload["status"] == "completed" {
				sawCompleted = true
			}
		case "leaderboard":
			sawLeaderboard = true
		}
		if sawCompleted && sawLeaderboard {
			break
		}
	}
	if !sawCompleted || !sawLeaderboard {
		t.Fatalf("expected completed snapshot and leaderboard, got completed=%v leaderboard=%v", sawCompleted, sawLeaderboard)
	}
}

func TestWatchRejectsNonOwner(t *testing.T) {
	server := newTestServer(t)

	_, body := doJSON(t, http.MethodPost, server.URL+"/sessions", "owner-1", map[string]any{"quizSetId": "quizset-1"})
	sessionID := body["sessionId"].(string)

	u := "ws" + server.URL[len("http"):] + "/sessions/" + sessionID + "/watch?userId=u-alice&name=Alice"
	if _, resp, err := websocket.DefaultDialer.Dial(u, nil); err == nil {
		t.Fatalf("expected handshake rejection for non-owner")
	} else if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 handshake, got %+v", resp)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}
