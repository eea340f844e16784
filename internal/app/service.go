package app

import (
	"context"

	"quiz-battle-service/internal/domain"
	"github.com/google/uuid"
)

// BankRepository loads question banks (through whatever cache the deployment
// is configured with).
type BankRepository interface {
	GetBank(ctx context.Context, bankID string) (domain.QuestionBank, error)
}

// SessionRepository is the registry of live session controllers.
type SessionRepository interface {
	Put(ctrl *SessionController)
	Get(sessionID string) (*SessionController, error)
	Delete(sessionID string)
}

// UserXPSource exposes a player's confirmed XP total, used to seed the
// optimistic award baseline. Optional; a missing source means baseline zero.
type UserXPSource interface {
	UserXP(ctx context.Context, userID string) (int, error)
}

// BattleService owns the session lifecycle: it loads a validated bank,
// issues the session id, and registers the running controller.
type BattleService struct {
	banks     BankRepository
	sessions  SessionRepository
	eval      *Evaluator
	xp        *XPEngine
	submitter *ResultSubmitter
	xpSource  UserXPSource
	cfg       ControllerConfig
	newID     func() string
}

func NewBattleService(banks BankRepository, sessions SessionRepository, eval *Evaluator, xp *XPEngine, submitter *ResultSubmitter, xpSource UserXPSource, cfg ControllerConfig) *BattleService {
	return &BattleService{
		banks:     banks,
		sessions:  sessions,
		eval:      eval,
		xp:        xp,
		submitter: submitter,
		xpSource:  xpSource,
		cfg:       cfg,
		newID:     uuid.NewString,
	}
}

// StartSession creates and starts a session against a bank. The issued
// session id is opaque to the client and immutable for the session's life.
func (s *BattleService) StartSession(ctx context.Context, bankID, userID string) (*SessionController, error) {
	bank, err := s.banks.GetBank(ctx, bankID)
	if err != nil {
		return nil, err
	}

	cfg := s.cfg
	if s.xpSource != nil {
		if old, err := s.xpSource.UserXP(ctx, userID); err == nil {
			cfg.OldXP = old
		}
	}

	ctrl := NewSessionController(s.newID(), userID, bank, s.eval, s.xp, s.submitter, cfg)
	if err := ctrl.Start(); err != nil {
		return nil, err
	}
	s.sessions.Put(ctrl)
	return ctrl, nil
}

// ResumeSession reattaches to a live session. The store enforces the
// identity check; a mismatched record is fatal and the host must restart
// session acquisition.
func (s *BattleService) ResumeSession(sessionID string) (*SessionController, error) {
	return s.sessions.Get(sessionID)
}

// AbandonSession discards a session before completion, tearing down its
// timer and monitor so no late event touches the dead record.
func (s *BattleService) AbandonSession(sessionID string) {
	s.sessions.Delete(sessionID)
}
