package app

import (
	"sync"
	"time"

	"quiz-battle-service/internal/domain"
)

// TimerEvent is one message from a running countdown. Expired is terminal;
// the countdown goroutine exits after sending it.
type TimerEvent struct {
	QuestionIndex int
	RemainingSec  int
	Expired       bool
}

// CountdownHandle owns one running countdown. Stop is idempotent and
// guarantees no event is emitted after it returns to the stopping state.
type CountdownHandle struct {
	once sync.Once
	stop chan struct{}
}

func (h *CountdownHandle) Stop() {
	h.once.Do(func() { close(h.stop) })
}

// StartCountdown begins a budgetSec countdown for the question at index,
// decrementing once per interval. Each remaining second is reported as a
// tick; reaching zero emits a single expired event. The consumer filters
// stale events by question index, so a late tick from a stopped countdown
// can never advance the wrong question.
func StartCountdown(interval time.Duration, index, budgetSec int, out chan<- TimerEvent) *CountdownHandle {
	if interval <= 0 {
		interval = time.Second
	}
	h := &CountdownHandle{stop: make(chan struct{})}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		remaining := budgetSec
		for {
			select {
			case <-h.stop:
				return
			case <-ticker.C:
				remaining--
				ev := TimerEvent{QuestionIndex: index, RemainingSec: remaining}
				if remaining <= 0 {
					ev.RemainingSec = 0
					ev.Expired = true
				}
				select {
				case out <- ev:
				case <-h.stop:
					return
				}
				if ev.Expired {
					return
				}
			}
		}
	}()
	return h
}

// Default per-question budgets in seconds.
const (
	DefaultChoiceBudgetSec = 30
	DefaultOpenBudgetSec   = 60
)

// budgetFor resolves a question's countdown budget: explicit override first,
// then the variant default.
func budgetFor(q domain.Question, choiceSec, openSec int) int {
	if q.TimeLimitSec > 0 {
		return q.TimeLimitSec
	}
	switch q.Variant {
	case domain.OpenEnded:
		if openSec > 0 {
			return openSec
		}
		return DefaultOpenBudgetSec
	default:
		if choiceSec > 0 {
			return choiceSec
		}
		return DefaultChoiceBudgetSec
	}
}
