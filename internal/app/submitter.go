package app

import (
	"context"
	"sync"

	"quiz-battle-service/internal/domain"
)

// ResultSubmitter guards the at-most-once submission per completed session.
// The authority's upsert keyed on session id makes duplicates harmless on
// the server; this keeps the client side from issuing them in the first
// place and from re-displaying a second reward when one slips through.
type ResultSubmitter struct {
	authority ResultAuthority

	mu        sync.Mutex
	delivered map[string]domain.SubmissionResult
}

func NewResultSubmitter(authority ResultAuthority) *ResultSubmitter {
	return &ResultSubmitter{
		authority: authority,
		delivered: make(map[string]domain.SubmissionResult),
	}
}

// Submit sends the session outcome once. A repeat call for an already
// confirmed session returns the cached result with duplicate=true and never
// reaches the authority again. A failed submission is not cached, so the
// host may retry it; the authority's upsert keeps the retry idempotent.
func (s *ResultSubmitter) Submit(ctx context.Context, summary domain.SessionSummary) (domain.SubmissionResult, bool, error) {
	s.mu.Lock()
	if cached, ok := s.delivered[summary.SessionID]; ok {
		s.mu.Unlock()
		return cached, true, nil
	}
	s.mu.Unlock()

	result, err := s.authority.SubmitResult(ctx, summary)
	if err != nil {
		return domain.SubmissionResult{}, false, err
	}

	s.mu.Lock()
	// A concurrent call may have landed first; its result wins so the
	// reward is only ever displayed once.
	if cached, ok := s.delivered[summary.SessionID]; ok {
		s.mu.Unlock()
		return cached, true, nil
	}
	s.delivered[summary.SessionID] = result
	s.mu.Unlock()
	return result, false, nil
}
