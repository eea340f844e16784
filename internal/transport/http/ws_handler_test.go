package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quiz-battle-service/internal/app"
	"quiz-battle-service/internal/domain"
	"quiz-battle-service/internal/infra/memory"
	"github.com/gorilla/websocket"
)

func newTestHandler() *WSHandler {
	sessions := memory.NewSessionStore()
	banks := memory.NewBankRepository(memory.NewStaticBankLoader(sampleBanks()), time.Minute)
	eval := app.NewEvaluator(app.DefaultEvaluatorConfig())
	xp := app.NewXPEngine(app.DefaultXPConfig())
	awards := memory.NewAwardStore()
	authority := app.NewLocalAuthority(sessions, eval, xp, awards)
	service := app.NewBattleService(banks, sessions, eval, xp, app.NewResultSubmitter(authority), awards, app.ControllerConfig{})
	return NewWSHandler(service, 5*time.Second)
}

func TestWebSocketBattleFlow(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", newTestHandler().ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?bankId=bank-1&userId=u1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// The session id announcement and the first question race; accept both
	// orders and skip ticks throughout.
	sessionSeen := false
	questionSeen := false
	for i := 0; i < 5 && !(sessionSeen && questionSeen); i++ {
		typ, _ := readNext(conn, t)
		switch typ {
		case "session":
			sessionSeen = true
		case "question":
			questionSeen = true
		}
	}
	if !sessionSeen || !questionSeen {
		t.Fatalf("expected session and question events")
	}

	answer := map[string]any{
		"type":    "answer",
		"payload": map[string]any{"selectedIndex": 1},
	}
	if err := conn.WriteJSON(answer); err != nil {
		t.Fatalf("write answer: %v", err)
	}

	result := waitFor(conn, t, "result")
	outcome, _ := result["outcome"].(map[string]any)
	if outcome == nil || outcome["correct"] != true {
		t.Fatalf("expected correct grading, got %v", result)
	}

	if err := conn.WriteJSON(map[string]any{"type": "next"}); err != nil {
		t.Fatalf("write next: %v", err)
	}

	complete := waitFor(conn, t, "complete")
	if complete["xp"] == nil {
		t.Fatalf("expected optimistic award on completion, got %v", complete)
	}

	confirmed := waitFor(conn, t, "confirmed")
	if confirmed["submission"] == nil {
		t.Fatalf("expected authoritative award, got %v", confirmed)
	}
}

func TestWebSocketRejectsMissingParams(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", newTestHandler().ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	resp, err := http.Get(server.URL + "/ws?userId=u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func waitFor(conn *websocket.Conn, t *testing.T, want string) map[string]any {
	t.Helper()
	for i := 0; i < 20; i++ {
		typ, payload := readNext(conn, t)
		if typ == want {
			return payload
		}
	}
	t.Fatalf("never saw %q", want)
	return nil
}

func readNext(conn *websocket.Conn, t *testing.T) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg.Type, msg.Payload
}

func sampleBanks() map[string]domain.QuestionBank {
	return map[string]domain.QuestionBank{
		"bank-1": {
			ID:         "bank-1",
			Topic:      "networking",
			Difficulty: "easy",
			Questions: []domain.Question{
				{
					ID:           "q1",
					Prompt:       "Which port does HTTPS use?",
					Variant:      domain.MultipleChoice,
					Options:      []string{"80", "443", "22"},
					CorrectIndex: 1,
				},
			},
		},
	}
}
