package domain

import "errors"

var (
	// ErrBankNotFound indicates the question bank could not be loaded.
	ErrBankNotFound = errors.New("question bank not found")
	// ErrEmptyBank is returned when a bank holds no questions; fatal at load.
	ErrEmptyBank = errors.New("question bank is empty")
	// ErrEmptyPrompt marks a question with no prompt text.
	ErrEmptyPrompt = errors.New("question prompt is empty")
	// ErrTooFewOptions marks an MCQ with fewer than two options.
	ErrTooFewOptions = errors.New("multiple-choice question needs at least two options")
	// ErrBadCorrectIndex marks an MCQ whose correct index is out of range.
	ErrBadCorrectIndex = errors.New("correct option index out of range")
	// ErrNoExpectedAnswers marks an open-ended question with no expected answers.
	ErrNoExpectedAnswers = errors.New("open-ended question needs at least one expected answer")
	// ErrUnknownVariant marks a question that is neither MCQ nor open-ended.
	ErrUnknownVariant = errors.New("unknown question variant")

	// ErrSessionNotFound is returned when no session exists for an id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionIdentityMismatch means a resumed session's id does not match
	// the id it was created under; the host must restart session acquisition.
	ErrSessionIdentityMismatch = errors.New("session identity mismatch")
	// ErrSessionComplete is returned for mutations after the session froze.
	ErrSessionComplete = errors.New("session already complete")
	// ErrNotAcceptingAnswers is returned when an answer arrives outside the
	// Active state (e.g. after the timer already locked the question).
	ErrNotAcceptingAnswers = errors.New("session is not accepting answers")

	// ErrSubmissionFailed wraps network/server failures on result submission.
	// The optimistic XP estimate stays on display when this is surfaced.
	ErrSubmissionFailed = errors.New("result submission failed")
)
