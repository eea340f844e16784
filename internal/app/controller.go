package app

import (
	"context"
	"log"
	"sync"
	"time"

	"quiz-battle-service/internal/domain"
)

// EventType enumerates what subscribers can receive from a session.
type EventType string

const (
	EventQuestion  EventType = "question"  // a question became active
	EventTick      EventType = "tick"      // countdown heartbeat
	EventResult    EventType = "result"    // the active question was locked and graded
	EventCheat     EventType = "cheat"     // an anti-cheat violation was recorded
	EventComplete  EventType = "complete"  // session finished; optimistic XP attached
	EventConfirmed EventType = "confirmed" // authoritative XP arrived
	EventWarning   EventType = "warning"   // non-fatal problem (e.g. submission failure)
)

// QuestionView is the sanitized projection of a question sent to clients.
// Correct indices and expected answers never leave the engine mid-session.
type QuestionView struct {
	Index        int                    `json:"index"`
	Total        int                    `json:"total"`
	ID           string                 `json:"id"`
	Prompt       string                 `json:"prompt"`
	Variant      domain.QuestionVariant `json:"variant"`
	Options      []string               `json:"options,omitempty"`
	Hints        []string               `json:"hints,omitempty"`
	BudgetSec    int                    `json:"budgetSec"`
	RemainingSec int                    `json:"remainingSec"`
}

// AnswerOutcome is the grading revealed when a question locks.
type AnswerOutcome struct {
	QuestionIndex int    `json:"questionIndex"`
	Graded        bool   `json:"graded"`
	Correct       bool   `json:"correct"`
	TimedOut      bool   `json:"timedOut"`
	CorrectIndex  int    `json:"correctIndex"`
	Explanation   string `json:"explanation,omitempty"`
	SourceRef     string `json:"sourceRef,omitempty"`
	Score         int    `json:"score"`
}

// Event is one message on a session's subscriber stream.
type Event struct {
	Type       EventType                `json:"type"`
	Question   *QuestionView            `json:"question,omitempty"`
	Remaining  int                      `json:"remaining,omitempty"`
	Outcome    *AnswerOutcome           `json:"outcome,omitempty"`
	Cheat      *domain.CheatEvent       `json:"cheat,omitempty"`
	XP         *domain.XPResult         `json:"xp,omitempty"`
	Submission *domain.SubmissionResult `json:"submission,omitempty"`
	Message    string                   `json:"message,omitempty"`
}

// ControllerConfig is the per-session engine tuning.
type ControllerConfig struct {
	ChoiceBudgetSec int
	OpenBudgetSec   int
	TickInterval    time.Duration // injectable for tests; defaults to 1s
	CheatThreshold  time.Duration
	WinStreak       int // player's current streak, feeds the optimistic award
	OldXP           int // player's known XP total, optimistic baseline
}

// SessionController runs one battle session: it owns the session data,
// drives the countdown, delegates grading, collects cheat events, and on
// completion hands off to the XP engine and the result submitter. All state
// transitions are serialized under one mutex; the timer and the anti-cheat
// monitor are producers whose messages are validated against the current
// state, so a late expiry can never race a submitted answer.
type SessionController struct {
	cfg       ControllerConfig
	eval      *Evaluator
	xp        *XPEngine
	submitter *ResultSubmitter
	monitor   *AntiCheatMonitor
	now       func() time.Time

	mu          sync.Mutex
	id          string
	userID      string
	topic       string
	difficulty  string
	questions   []domain.Question
	index       int
	answers     []domain.Answer
	score       int
	status      domain.SessionStatus
	createdAt   time.Time
	cheats      []domain.CheatEvent
	remaining   int
	optimistic  *domain.XPResult
	subscribers map[chan Event]struct{}

	timerEvents chan TimerEvent
	timer       *CountdownHandle
	closed      chan struct{}
	closeOnce   sync.Once
}

// NewSessionController builds a controller in the Loading state. Call Start
// to validate the bank and enter Active.
func NewSessionController(id, userID string, bank domain.QuestionBank, eval *Evaluator, xp *XPEngine, submitter *ResultSubmitter, cfg ControllerConfig) *SessionController {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	return &SessionController{
		cfg:         cfg,
		eval:        eval,
		xp:          xp,
		submitter:   submitter,
		monitor:     NewAntiCheatMonitor(cfg.CheatThreshold),
		now:         time.Now,
		id:          id,
		userID:      userID,
		topic:       bank.Topic,
		difficulty:  bank.Difficulty,
		questions:   bank.Questions,
		status:      domain.StatusLoading,
		subscribers: make(map[chan Event]struct{}),
		timerEvents: make(chan TimerEvent, 8),
		closed:      make(chan struct{}),
	}
}

// ID returns the immutable session id.
func (c *SessionController) ID() string { return c.id }

// Start validates the questions and transitions Loading → Active, starting
// the first countdown. An empty or malformed bank is fatal: the session
// enters the terminal Error state and the validation error is returned.
func (c *SessionController) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != domain.StatusLoading {
		return domain.ErrSessionComplete
	}
	bank := domain.QuestionBank{Topic: c.topic, Difficulty: c.difficulty, Questions: c.questions}
	if err := bank.Validate(); err != nil {
		c.status = domain.StatusError
		return err
	}

	c.createdAt = c.now()
	c.status = domain.StatusActive
	c.index = 0
	c.startCountdownLocked()

	go c.pump()
	return nil
}

// Subscribe attaches an event stream. The current question is replayed as
// the first event so late subscribers (reconnects) can render immediately.
// The caller must invoke cancel to avoid leaks.
func (c *SessionController) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	c.mu.Lock()
	c.subscribers[ch] = struct{}{}
	var initial *Event
	switch c.status {
	case domain.StatusActive, domain.StatusLocked:
		view := c.questionViewLocked()
		initial = &Event{Type: EventQuestion, Question: &view}
	case domain.StatusComplete:
		initial = &Event{Type: EventComplete, XP: c.optimistic}
	}
	c.mu.Unlock()

	if initial != nil {
		ch <- *initial
	}

	cancel := func() {
		c.mu.Lock()
		if _, ok := c.subscribers[ch]; ok {
			delete(c.subscribers, ch)
			close(ch)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

// SubmitAnswer grades the active question. selected carries the MCQ option
// index (NoSelection for none); text carries the open-ended input. Whichever
// of explicit submission and timer expiry arrives first wins; the loser is
// discarded by the Active-state guard.
func (c *SessionController) SubmitAnswer(selected int, text string) (AnswerOutcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isClosed() {
		return AnswerOutcome{}, domain.ErrSessionNotFound
	}
	if c.status == domain.StatusComplete || c.status == domain.StatusError {
		return AnswerOutcome{}, domain.ErrSessionComplete
	}
	if c.status != domain.StatusActive {
		return AnswerOutcome{}, domain.ErrNotAcceptingAnswers
	}

	q := c.questions[c.index]
	var correct bool
	switch q.Variant {
	case domain.MultipleChoice:
		correct = c.eval.EvaluateChoice(q, selected)
	case domain.OpenEnded:
		correct = c.eval.EvaluateOpen(q, text)
	}

	outcome := c.lockLocked(domain.Answer{
		QuestionID:    q.ID,
		SelectedIndex: selected,
		Text:          text,
		Graded:        true,
		Correct:       correct,
		AnsweredAt:    c.now(),
	})
	return outcome, nil
}

// Next advances Locked → Active on the next question, or Locked → Complete
// after the last one.
func (c *SessionController) Next() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isClosed() {
		return domain.ErrSessionNotFound
	}
	if c.status == domain.StatusComplete {
		return domain.ErrSessionComplete
	}
	if c.status != domain.StatusLocked {
		return domain.ErrNotAcceptingAnswers
	}

	if c.index+1 >= len(c.questions) {
		c.completeLocked()
		return nil
	}

	c.index++
	c.status = domain.StatusActive
	c.startCountdownLocked()
	view := c.questionViewLocked()
	c.broadcastLocked(Event{Type: EventQuestion, Question: &view})
	return nil
}

// Observe forwards a focus transition to the anti-cheat monitor while the
// session is in a monitored phase. Outside of gameplay the signal is dropped.
func (c *SessionController) Observe(sig domain.FocusSignal) {
	c.mu.Lock()
	monitored := c.status == domain.StatusActive || c.status == domain.StatusLocked
	c.mu.Unlock()
	if monitored {
		c.monitor.Observe(sig)
	}
}

// Summary snapshots the session for submission and inspection.
func (c *SessionController) Summary() domain.SessionSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.summaryLocked()
}

// Questions returns a copy of the session's question list; the local
// authority re-grades from it.
func (c *SessionController) Questions() []domain.Question {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Question, len(c.questions))
	copy(out, c.questions)
	return out
}

// Status returns the current lifecycle state.
func (c *SessionController) Status() domain.SessionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Close abandons the session: every producer is torn down so no late tick or
// focus event can mutate the discarded record. Idempotent.
func (c *SessionController) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		if c.timer != nil {
			c.timer.Stop()
			c.timer = nil
		}
		for ch := range c.subscribers {
			delete(c.subscribers, ch)
			close(ch)
		}
		c.mu.Unlock()
		close(c.closed)
		c.monitor.Stop()
	})
}

// pump is the single consumer of the timer and anti-cheat streams. It turns
// producer messages into guarded state transitions.
func (c *SessionController) pump() {
	cheatEvents := c.monitor.Events()
	for {
		select {
		case <-c.closed:
			return
		case ev := <-c.timerEvents:
			c.handleTimerEvent(ev)
		case cheat, ok := <-cheatEvents:
			if !ok {
				cheatEvents = nil
				continue
			}
			c.handleCheat(cheat)
		}
	}
}

func (c *SessionController) handleTimerEvent(ev TimerEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// First-wins guard: a tick or expiry for a question that is no longer
	// active is stale and must be discarded.
	if c.status != domain.StatusActive || ev.QuestionIndex != c.index {
		return
	}

	if !ev.Expired {
		c.remaining = ev.RemainingSec
		c.broadcastLocked(Event{Type: EventTick, Remaining: ev.RemainingSec})
		return
	}

	q := c.questions[c.index]
	ans := domain.Answer{
		QuestionID: q.ID,
		TimedOut:   true,
		AnsweredAt: c.now(),
	}
	switch q.Variant {
	case domain.MultipleChoice:
		// Synthesize the no-selection sentinel; it always grades incorrect.
		ans.SelectedIndex = domain.NoSelection
		ans.Graded = true
		ans.Correct = false
	case domain.OpenEnded:
		// Expiry alone never grades an open-ended answer; it stays
		// unanswered and the explanation is surfaced without credit.
		ans.SelectedIndex = domain.NoSelection
	}
	c.lockLocked(ans)
}

func (c *SessionController) handleCheat(ev domain.CheatEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cheats = append(c.cheats, ev)
	c.broadcastLocked(Event{Type: EventCheat, Cheat: &ev})
}

// lockLocked performs the single Active → Locked transition for the current
// question: stop the countdown, record the answer, update the score, and
// publish the grading outcome.
func (c *SessionController) lockLocked(ans domain.Answer) AnswerOutcome {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}

	c.answers = append(c.answers, ans)
	if ans.Graded && ans.Correct {
		c.score++
	}
	c.status = domain.StatusLocked
	c.remaining = 0

	q := c.questions[c.index]
	outcome := AnswerOutcome{
		QuestionIndex: c.index,
		Graded:        ans.Graded,
		Correct:       ans.Correct,
		TimedOut:      ans.TimedOut,
		CorrectIndex:  correctIndexFor(q),
		Explanation:   q.Explanation,
		SourceRef:     q.SourceRef,
		Score:         c.score,
	}
	c.broadcastLocked(Event{Type: EventResult, Outcome: &outcome})
	return outcome
}

func correctIndexFor(q domain.Question) int {
	if q.Variant == domain.MultipleChoice {
		return q.CorrectIndex
	}
	return domain.NoSelection
}

// completeLocked freezes the session, computes the optimistic award, and
// kicks off the authoritative submission without blocking the event stream.
func (c *SessionController) completeLocked() {
	c.status = domain.StatusComplete
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}

	summary := c.summaryLocked()
	var avg time.Duration
	if summary.TotalQuestions > 0 {
		avg = summary.Duration / time.Duration(summary.TotalQuestions)
	}
	award := c.xp.Award(domain.XPInput{
		CorrectAnswers:  summary.CorrectAnswers,
		TotalQuestions:  summary.TotalQuestions,
		AverageTimePerQ: avg,
		Difficulty:      c.difficulty,
		WinStreak:       c.cfg.WinStreak,
		IsPerfectScore:  summary.TotalQuestions > 0 && summary.CorrectAnswers == summary.TotalQuestions,
	}, c.cfg.OldXP)
	c.optimistic = &award
	c.broadcastLocked(Event{Type: EventComplete, XP: &award})

	c.monitor.Stop()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		result, duplicate, err := c.submitter.Submit(ctx, summary)
		if err != nil {
			log.Printf("session %s: result submission failed, keeping optimistic award: %v", c.id, err)
			c.broadcast(Event{Type: EventWarning, Message: "result submission failed; showing local estimate"})
			return
		}
		if duplicate {
			// The reward was already delivered once; do not re-announce it.
			return
		}
		c.broadcast(Event{Type: EventConfirmed, Submission: &result})
	}()
}

func (c *SessionController) summaryLocked() domain.SessionSummary {
	answers := make([]domain.Answer, len(c.answers))
	copy(answers, c.answers)
	cheats := make([]domain.CheatEvent, len(c.cheats))
	copy(cheats, c.cheats)

	correct := 0
	for _, a := range c.answers {
		if a.Graded && a.Correct {
			correct++
		}
	}

	return domain.SessionSummary{
		SessionID:      c.id,
		UserID:         c.userID,
		Topic:          c.topic,
		Difficulty:     c.difficulty,
		Status:         c.status,
		Answers:        answers,
		Score:          c.score,
		TotalQuestions: len(c.questions),
		CorrectAnswers: correct,
		Duration:       c.now().Sub(c.createdAt),
		CheatEvents:    cheats,
		CreatedAt:      c.createdAt,
	}
}

func (c *SessionController) startCountdownLocked() {
	q := c.questions[c.index]
	budget := budgetFor(q, c.cfg.ChoiceBudgetSec, c.cfg.OpenBudgetSec)
	c.remaining = budget
	c.timer = StartCountdown(c.cfg.TickInterval, c.index, budget, c.timerEvents)
}

func (c *SessionController) questionViewLocked() QuestionView {
	q := c.questions[c.index]
	return QuestionView{
		Index:        c.index,
		Total:        len(c.questions),
		ID:           q.ID,
		Prompt:       q.Prompt,
		Variant:      q.Variant,
		Options:      q.Options,
		Hints:        q.Hints,
		BudgetSec:    budgetFor(q, c.cfg.ChoiceBudgetSec, c.cfg.OpenBudgetSec),
		RemainingSec: c.remaining,
	}
}

func (c *SessionController) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *SessionController) broadcast(ev Event) {
	c.mu.Lock()
	c.broadcastLocked(ev)
	c.mu.Unlock()
}

func (c *SessionController) broadcastLocked(ev Event) {
	for ch := range c.subscribers {
		select {
		case ch <- ev:
		default:
			// Drop the oldest update rather than block the state machine on
			// a slow consumer.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}
