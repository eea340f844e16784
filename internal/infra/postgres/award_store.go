package postgres

import (
	"context"
	"fmt"

	"quiz-battle-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// AwardStore persists XP awards in Postgres. The insert into xp_awards is
// keyed on session_id with ON CONFLICT DO NOTHING, so a duplicate submission
// returns the original award and never moves the player's total twice.
type AwardStore struct {
	pool *pgxpool.Pool
}

func NewAwardStore(pool *pgxpool.Pool) *AwardStore {
	return &AwardStore{pool: pool}
}

func (s *AwardStore) RecordAward(ctx context.Context, userID, sessionID string, xpEarned int) (domain.SubmissionResult, bool, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.SubmissionResult{}, false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var old int
	err = tx.QueryRow(ctx, `
		INSERT INTO player_xp (user_id, xp) VALUES ($1, 0)
		ON CONFLICT (user_id) DO UPDATE SET xp = player_xp.xp
		RETURNING xp`, userID).Scan(&old)
	if err != nil {
		return domain.SubmissionResult{}, false, fmt.Errorf("player row: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO xp_awards (session_id, user_id, xp_earned, old_xp, new_xp)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id) DO NOTHING`,
		sessionID, userID, xpEarned, old, old+xpEarned)
	if err != nil {
		return domain.SubmissionResult{}, false, fmt.Errorf("insert award: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// Duplicate submission: return the original award untouched.
		var stored domain.SubmissionResult
		stored.SessionID = sessionID
		err = tx.QueryRow(ctx, `
			SELECT xp_earned, old_xp, new_xp FROM xp_awards WHERE session_id=$1`,
			sessionID).Scan(&stored.XPEarned, &stored.OldXP, &stored.NewXP)
		if err != nil {
			return domain.SubmissionResult{}, false, fmt.Errorf("read award: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return domain.SubmissionResult{}, false, fmt.Errorf("commit: %w", err)
		}
		return stored, false, nil
	}

	if _, err := tx.Exec(ctx, `UPDATE player_xp SET xp = xp + $1 WHERE user_id = $2`, xpEarned, userID); err != nil {
		return domain.SubmissionResult{}, false, fmt.Errorf("update total: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.SubmissionResult{}, false, fmt.Errorf("commit: %w", err)
	}

	return domain.SubmissionResult{
		SessionID: sessionID,
		XPEarned:  xpEarned,
		OldXP:     old,
		NewXP:     old + xpEarned,
	}, true, nil
}

// UserXP returns the accumulated total for a user.
func (s *AwardStore) UserXP(ctx context.Context, userID string) (int, error) {
	var xp int
	err := s.pool.QueryRow(ctx, `SELECT xp FROM player_xp WHERE user_id=$1`, userID).Scan(&xp)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return xp, nil
}
