package memory

import (
	"context"
	"sync"

	"quiz-battle-service/internal/app"
	"quiz-battle-service/internal/domain"
)

// SessionStore is the in-memory registry of live session controllers. It
// doubles as the question source the local authority re-grades from.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.SessionController
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.SessionController),
	}
}

func (s *SessionStore) Put(ctrl *app.SessionController) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[ctrl.ID()] = ctrl
}

// Get returns the controller stored under sessionID. A stored controller
// whose own id disagrees with its key means the record was tampered with;
// the caller must restart session acquisition. Put always keys by the
// controller's own id, so the check guards records that arrive any other
// way (an external registry backend, a restored snapshot).
func (s *SessionStore) Get(sessionID string) (*app.SessionController, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ctrl, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if ctrl.ID() != sessionID {
		return nil, domain.ErrSessionIdentityMismatch
	}
	return ctrl, nil
}

// Delete discards a session and tears its producers down.
func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	ctrl, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()
	if ok {
		ctrl.Close()
	}
}

// QuestionsFor implements app.QuestionSource.
func (s *SessionStore) QuestionsFor(_ context.Context, sessionID string) ([]domain.Question, error) {
	ctrl, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return ctrl.Questions(), nil
}
