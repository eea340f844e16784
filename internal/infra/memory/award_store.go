package memory

import (
	"context"
	"sync"

	"quiz-battle-service/internal/domain"
)

// AwardStore keeps XP awards and user totals in memory. The upsert keyed on
// session id is what makes duplicate submissions idempotent.
type AwardStore struct {
	mu     sync.Mutex
	awards map[string]domain.SubmissionResult
	totals map[string]int
}

func NewAwardStore() *AwardStore {
	return &AwardStore{
		awards: make(map[string]domain.SubmissionResult),
		totals: make(map[string]int),
	}
}

func (s *AwardStore) RecordAward(_ context.Context, userID, sessionID string, xpEarned int) (domain.SubmissionResult, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.awards[sessionID]; ok {
		return existing, false, nil
	}

	old := s.totals[userID]
	s.totals[userID] = old + xpEarned
	result := domain.SubmissionResult{
		SessionID: sessionID,
		XPEarned:  xpEarned,
		OldXP:     old,
		NewXP:     old + xpEarned,
	}
	s.awards[sessionID] = result
	return result, true, nil
}

// UserXP returns the accumulated total for a user.
func (s *AwardStore) UserXP(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals[userID], nil
}
