package domain

import (
	"fmt"
	"strings"
	"time"
)

// QuestionVariant distinguishes the two supported question kinds.
type QuestionVariant string

const (
	MultipleChoice QuestionVariant = "multiple_choice"
	OpenEnded      QuestionVariant = "open_ended"
)

// AnswerFormat hints how an open-ended answer should be graded.
type AnswerFormat string

const (
	FormatText    AnswerFormat = "text"
	FormatNumeric AnswerFormat = "numeric"
)

// NoSelection is the sentinel index recorded when an MCQ times out or the
// player never picks an option. It never equals a valid option index.
const NoSelection = -1

// Question is a single quiz item. Exactly one variant is populated.
type Question struct {
	ID              string          `json:"id"`
	Prompt          string          `json:"prompt"`
	Variant         QuestionVariant `json:"variant"`
	Options         []string        `json:"options,omitempty"`
	CorrectIndex    int             `json:"correctIndex,omitempty"`
	ExpectedAnswers []string        `json:"expectedAnswers,omitempty"`
	AnswerFormat    AnswerFormat    `json:"answerFormat,omitempty"`
	Hints           []string        `json:"hints,omitempty"`
	Explanation     string          `json:"explanation,omitempty"`
	SourceRef       string          `json:"sourceRef,omitempty"`
	TimeLimitSec    int             `json:"timeLimitSec,omitempty"` // 0 means the variant default applies
}

// Validate checks the per-question shape invariants.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Prompt) == "" {
		return fmt.Errorf("question %s: %w", q.ID, ErrEmptyPrompt)
	}
	switch q.Variant {
	case MultipleChoice:
		if len(q.Options) < 2 {
			return fmt.Errorf("question %s: %w", q.ID, ErrTooFewOptions)
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			return fmt.Errorf("question %s: %w", q.ID, ErrBadCorrectIndex)
		}
	case OpenEnded:
		if len(q.ExpectedAnswers) == 0 {
			return fmt.Errorf("question %s: %w", q.ID, ErrNoExpectedAnswers)
		}
	default:
		return fmt.Errorf("question %s: %w", q.ID, ErrUnknownVariant)
	}
	return nil
}

// QuestionBank is the pre-generated content for one topic/difficulty pair.
type QuestionBank struct {
	ID         string     `json:"id"`
	Topic      string     `json:"topic"`
	Difficulty string     `json:"difficulty"`
	Questions  []Question `json:"questions"`
}

// Validate rejects empty or malformed banks before a session may start.
func (b QuestionBank) Validate() error {
	if len(b.Questions) == 0 {
		return ErrEmptyBank
	}
	for _, q := range b.Questions {
		if err := q.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// SessionStatus is the lifecycle state of a battle session.
type SessionStatus string

const (
	StatusLoading  SessionStatus = "loading"
	StatusActive   SessionStatus = "active"
	StatusLocked   SessionStatus = "locked"
	StatusComplete SessionStatus = "complete"
	StatusError    SessionStatus = "error"
)

// Answer is the per-question record. Exactly one of SelectedIndex or Text is
// meaningful depending on the question variant; TimedOut marks expiry. For an
// open-ended timeout Graded stays false: there is no correct or incorrect,
// only "unanswered".
type Answer struct {
	QuestionID    string    `json:"questionId"`
	SelectedIndex int       `json:"selectedIndex"`
	Text          string    `json:"text"`
	TimedOut      bool      `json:"timedOut"`
	Graded        bool      `json:"graded"`
	Correct       bool      `json:"correct"`
	AnsweredAt    time.Time `json:"answeredAt"`
}

// CheatEventType classifies how focus was lost.
type CheatEventType string

const (
	CheatVisibilityChange CheatEventType = "visibility_change"
	CheatWindowBlur       CheatEventType = "window_blur"
)

// CheatEvent is one focus-loss violation. Events are append-only and never
// influence the score.
type CheatEvent struct {
	Type       CheatEventType `json:"type"`
	DurationMs int64          `json:"durationMs"`
	Timestamp  time.Time      `json:"timestamp"`
}

// FocusSignal is a raw focus/visibility transition reported by the host UI.
// At is the client-observed transition time; zero means "use receive time".
type FocusSignal struct {
	Type CheatEventType
	Lost bool
	At   time.Time
}

// SessionSummary is the immutable view of a session handed to the XP engine
// and the result submitter once the session completes.
type SessionSummary struct {
	SessionID      string        `json:"sessionId"`
	UserID         string        `json:"userId"`
	Topic          string        `json:"topic"`
	Difficulty     string        `json:"difficulty"`
	Status         SessionStatus `json:"status"`
	Answers        []Answer      `json:"answers"`
	Score          int           `json:"score"`
	TotalQuestions int           `json:"totalQuestions"`
	CorrectAnswers int           `json:"correctAnswers"`
	Duration       time.Duration `json:"duration"`
	CheatEvents    []CheatEvent  `json:"cheatEvents"`
	CreatedAt      time.Time     `json:"createdAt"`
}

// XPInput is the session outcome fed into the XP engine.
type XPInput struct {
	CorrectAnswers  int
	TotalQuestions  int
	AverageTimePerQ time.Duration
	Difficulty      string
	WinStreak       int
	IsPerfectScore  bool
	// IsMultiplayer is accepted for payload compatibility with hosts that
	// report it; single- and multi-player outcomes award identically.
	IsMultiplayer bool
}

// XPResult is an XP award with its human-readable breakdown.
type XPResult struct {
	XPEarned  int      `json:"xpEarned"`
	OldXP     int      `json:"oldXP"`
	NewXP     int      `json:"newXP"`
	Breakdown []string `json:"breakdown"`
	LeveledUp bool     `json:"leveledUp"`
}

// SubmissionResult is the authoritative backend's response to a result
// submission. It supersedes the client-optimistic XPResult when it arrives.
type SubmissionResult struct {
	SessionID string `json:"sessionId"`
	XPEarned  int    `json:"xpEarned"`
	OldXP     int    `json:"oldXP"`
	NewXP     int    `json:"newXP"`
}
