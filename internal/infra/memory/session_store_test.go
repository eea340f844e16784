package memory

import (
	"context"
	"testing"

	"quiz-battle-service/internal/app"
	"quiz-battle-service/internal/domain"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()
	ctrl := newController("s-1")

	store.Put(ctrl)
	got, err := store.Get("s-1")
	if err != nil || got == nil {
		t.Fatalf("expected session present, err=%v", err)
	}

	qs, err := store.QuestionsFor(context.Background(), "s-1")
	if err != nil || len(qs) != 1 {
		t.Fatalf("expected question source to serve 1 question, got %d err=%v", len(qs), err)
	}

	store.Delete("s-1")
	if _, err := store.Get("s-1"); err != domain.ErrSessionNotFound {
		t.Fatalf("expected session removed, got %v", err)
	}
}

// A record keyed under one id but carrying another is a tampered or corrupt
// registry entry; acquisition must fail rather than hand it out.
func TestGetRejectsMismatchedRecord(t *testing.T) {
	store := NewSessionStore()
	store.sessions["s-2"] = newController("s-1")

	if _, err := store.Get("s-2"); err != domain.ErrSessionIdentityMismatch {
		t.Fatalf("expected ErrSessionIdentityMismatch, got %v", err)
	}
}

func newController(id string) *app.SessionController {
	return app.NewSessionController(id, "u-1", sampleBank(),
		app.NewEvaluator(app.DefaultEvaluatorConfig()),
		app.NewXPEngine(app.DefaultXPConfig()),
		app.NewResultSubmitter(nil),
		app.ControllerConfig{},
	)
}
