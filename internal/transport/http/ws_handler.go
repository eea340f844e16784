package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"quiz-battle-service/internal/app"
	"quiz-battle-service/internal/domain"
	"github.com/gorilla/websocket"
)

// WSHandler runs battle sessions over a websocket. One connection drives one
// session: the client submits answers, advances questions, and reports focus
// transitions; the server streams questions, ticks, grading results, cheat
// warnings, and the final (optimistic then confirmed) reward.
type WSHandler struct {
	service        *app.BattleService
	warningDisplay time.Duration
	upgrader       websocket.Upgrader
}

func NewWSHandler(service *app.BattleService, warningDisplay time.Duration) *WSHandler {
	if warningDisplay <= 0 {
		warningDisplay = 5 * time.Second
	}
	return &WSHandler{
		service:        service,
		warningDisplay: warningDisplay,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	SelectedIndex *int   `json:"selectedIndex"`
	Text          string `json:"text"`
}

type focusPayload struct {
	Kind string `json:"kind"` // visibility_change | window_blur
	Lost bool   `json:"lost"`
	AtMs int64  `json:"atMs"` // client-observed transition time, unix ms; 0 = server time
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type cheatDismissPayload struct {
	Index int `json:"index"`
}

// ServeWS upgrades the request and binds the connection to a session.
// `bankId`+`userId` start a fresh session; `sessionId` resumes a live one.
// On disconnect an incomplete session stays registered so the client can
// resume; an explicit "quit" message abandons it immediately.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	bankID := r.URL.Query().Get("bankId")
	sessionID := r.URL.Query().Get("sessionId")
	if userID == "" || (bankID == "" && sessionID == "") {
		http.Error(w, "missing userId and one of bankId or sessionId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	var ctrl *app.SessionController
	if sessionID != "" {
		ctrl, err = h.service.ResumeSession(sessionID)
	} else {
		ctrl, err = h.service.StartSession(r.Context(), bankID, userID)
	}
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	events, cancel := ctrl.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	// Dismissals are routed through their own channel so the timer callbacks
	// never write to send after it is closed.
	dismiss := make(chan int, 8)
	cheatSeq := 0
	go func() {
		defer close(eventsDone)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				out := outboundMessage[any]{Type: string(ev.Type), Payload: ev}
				select {
				case send <- out:
				case <-closeSignals:
					return
				}
				if ev.Type == app.EventCheat {
					// Warnings auto-dismiss after a fixed display window,
					// independent of when the violation was detected.
					cheatSeq++
					idx := cheatSeq
					time.AfterFunc(h.warningDisplay, func() {
						select {
						case dismiss <- idx:
						default:
						}
					})
				}
			case idx := <-dismiss:
				select {
				case send <- outboundMessage[any]{Type: "cheatDismiss", Payload: cheatDismissPayload{Index: idx}}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "session", Payload: map[string]string{"sessionId": ctrl.ID()}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			selected := domain.NoSelection
			if payload.SelectedIndex != nil {
				selected = *payload.SelectedIndex
			}
			if _, err := ctrl.SubmitAnswer(selected, payload.Text); err != nil {
				if !errors.Is(err, domain.ErrNotAcceptingAnswers) {
					send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				}
				// A submission racing the timer is discarded silently; the
				// result event for the winning transition already went out.
			}
		case "next":
			if err := ctrl.Next(); err != nil && !errors.Is(err, domain.ErrSessionComplete) {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			}
		case "focus":
			var payload focusPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				continue
			}
			sig := domain.FocusSignal{
				Type: domain.CheatEventType(payload.Kind),
				Lost: payload.Lost,
			}
			if payload.AtMs > 0 {
				sig.At = time.UnixMilli(payload.AtMs)
			}
			if sig.Type != domain.CheatVisibilityChange && sig.Type != domain.CheatWindowBlur {
				continue
			}
			ctrl.Observe(sig)
		case "quit":
			h.service.AbandonSession(ctrl.ID())
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	if ctrl.Status() == domain.StatusComplete {
		h.service.AbandonSession(ctrl.ID())
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}
