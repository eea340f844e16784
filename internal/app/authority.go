package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"quiz-battle-service/internal/domain"
)

// ResultAuthority is the authoritative scoring backend. It re-grades the
// submitted session server-side instead of trusting the client tally and
// upserts the award keyed on session id, so duplicate submissions never
// double-award XP.
type ResultAuthority interface {
	SubmitResult(ctx context.Context, summary domain.SessionSummary) (domain.SubmissionResult, error)
}

// HTTPAuthority talks to a remote scoring endpoint.
type HTTPAuthority struct {
	baseURL string
	client  *http.Client
}

func NewHTTPAuthority(baseURL string, timeout time.Duration) *HTTPAuthority {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPAuthority{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type submitRequest struct {
	SessionID      string          `json:"sessionId"`
	UserID         string          `json:"userId"`
	Answers        []domain.Answer `json:"answers"`
	Score          int             `json:"score"`
	TotalQuestions int             `json:"totalQuestions"`
	CorrectAnswers int             `json:"correctAnswers"`
	DurationMs     int64           `json:"durationMs"`
	Topic          string          `json:"topic"`
}

func (a *HTTPAuthority) SubmitResult(ctx context.Context, summary domain.SessionSummary) (domain.SubmissionResult, error) {
	payload := submitRequest{
		SessionID:      summary.SessionID,
		UserID:         summary.UserID,
		Answers:        summary.Answers,
		Score:          summary.Score,
		TotalQuestions: summary.TotalQuestions,
		CorrectAnswers: summary.CorrectAnswers,
		DurationMs:     summary.Duration.Milliseconds(),
		Topic:          summary.Topic,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.SubmissionResult{}, fmt.Errorf("%w: encode: %v", domain.ErrSubmissionFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/results", bytes.NewReader(body))
	if err != nil {
		return domain.SubmissionResult{}, fmt.Errorf("%w: %v", domain.ErrSubmissionFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return domain.SubmissionResult{}, fmt.Errorf("%w: %v", domain.ErrSubmissionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.SubmissionResult{}, fmt.Errorf("%w: status %d", domain.ErrSubmissionFailed, resp.StatusCode)
	}

	var result domain.SubmissionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return domain.SubmissionResult{}, fmt.Errorf("%w: decode: %v", domain.ErrSubmissionFailed, err)
	}
	return result, nil
}

// QuestionSource exposes the questions a session was created with, so the
// local authority can re-grade raw answers.
type QuestionSource interface {
	QuestionsFor(ctx context.Context, sessionID string) ([]domain.Question, error)
}

// AwardStore persists awards idempotently keyed on session id. RecordAward
// inserts the award if absent, applies the XP delta to the user's total, and
// reports whether this call inserted it; a duplicate returns the stored
// award unchanged.
type AwardStore interface {
	RecordAward(ctx context.Context, userID, sessionID string, xpEarned int) (domain.SubmissionResult, bool, error)
}

// LocalAuthority is an in-process scoring backend for single-instance
// deployments. It re-grades every recorded answer with the evaluator,
// recomputes the XP award, and persists it through the award store. The
// streak multiplier is a client-profile feature and is not applied here.
type LocalAuthority struct {
	source QuestionSource
	eval   *Evaluator
	xp     *XPEngine
	awards AwardStore
}

func NewLocalAuthority(source QuestionSource, eval *Evaluator, xp *XPEngine, awards AwardStore) *LocalAuthority {
	return &LocalAuthority{source: source, eval: eval, xp: xp, awards: awards}
}

func (a *LocalAuthority) SubmitResult(ctx context.Context, summary domain.SessionSummary) (domain.SubmissionResult, error) {
	questions, err := a.source.QuestionsFor(ctx, summary.SessionID)
	if err != nil {
		return domain.SubmissionResult{}, fmt.Errorf("%w: %v", domain.ErrSubmissionFailed, err)
	}

	correct := 0
	for i, q := range questions {
		if i >= len(summary.Answers) {
			break
		}
		ans := summary.Answers[i]
		switch q.Variant {
		case domain.MultipleChoice:
			if a.eval.EvaluateChoice(q, ans.SelectedIndex) {
				correct++
			}
		case domain.OpenEnded:
			if a.eval.EvaluateOpen(q, ans.Text) {
				correct++
			}
		}
	}

	total := len(questions)
	var avg time.Duration
	if total > 0 {
		avg = summary.Duration / time.Duration(total)
	}
	award := a.xp.Award(domain.XPInput{
		CorrectAnswers:  correct,
		TotalQuestions:  total,
		AverageTimePerQ: avg,
		Difficulty:      summary.Difficulty,
		IsPerfectScore:  total > 0 && correct == total,
	}, 0)

	result, _, err := a.awards.RecordAward(ctx, summary.UserID, summary.SessionID, award.XPEarned)
	if err != nil {
		return domain.SubmissionResult{}, fmt.Errorf("%w: %v", domain.ErrSubmissionFailed, err)
	}
	return result, nil
}
