package redis

import (
	"context"
	"sync"
	"time"

	"quiz-battle-service/internal/app"
	"quiz-battle-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware session registry.
// Notes:
//   - Controllers stay in a local map; a running state machine with its timer
//     goroutines cannot be serialized, so Redis marks liveness rather than
//     holding state.
//   - The liveness keys let an operator see active battles across instances
//     and could route reconnects in a multi-instance deployment.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.SessionController
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.SessionController),
	}
}

func (s *SessionStore) Put(ctrl *app.SessionController) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[ctrl.ID()] = ctrl
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(ctrl.ID()), "1", s.ttl).Err()
}

// Get returns the controller stored under sessionID. The identity check
// guards records that bypass Put (which always keys by the controller's own
// id): a mismatch is fatal and the host must restart session acquisition.
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

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	ctrl, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
		_ = s.client.Del(context.Background(), s.key(sessionID)).Err()
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

func (s *SessionStore) key(sessionID string) string {
	return "battle:session:" + sessionID
}
