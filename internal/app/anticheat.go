package app

import (
	"sync"
	"time"

	"quiz-battle-service/internal/domain"
)

// DefaultCheatThreshold is the minimum away-time that counts as a violation.
const DefaultCheatThreshold = 2500 * time.Millisecond

// AntiCheatMonitor turns focus/visibility transitions into violation events.
// It is a pure side-channel: it never touches the timer or the score. The
// controller consumes Events and appends them to the session's cheat log.
type AntiCheatMonitor struct {
	threshold time.Duration
	clock     func() time.Time

	mu      sync.Mutex
	lostAt  map[domain.CheatEventType]time.Time
	stopped bool
	events  chan domain.CheatEvent
}

func NewAntiCheatMonitor(threshold time.Duration) *AntiCheatMonitor {
	if threshold <= 0 {
		threshold = DefaultCheatThreshold
	}
	return &AntiCheatMonitor{
		threshold: threshold,
		clock:     time.Now,
		lostAt:    make(map[domain.CheatEventType]time.Time),
		events:    make(chan domain.CheatEvent, 16),
	}
}

// Events is the bounded violation stream. It is closed by Stop.
func (m *AntiCheatMonitor) Events() <-chan domain.CheatEvent {
	return m.events
}

// Observe records one focus transition. A loss stamps the away-start; the
// matching regain measures the away duration and emits a violation when it
// meets the threshold. Signals after Stop are dropped.
func (m *AntiCheatMonitor) Observe(sig domain.FocusSignal) {
	at := sig.At
	if at.IsZero() {
		at = m.clock()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}

	if sig.Lost {
		m.lostAt[sig.Type] = at
		return
	}

	start, ok := m.lostAt[sig.Type]
	if !ok {
		return
	}
	delete(m.lostAt, sig.Type)

	away := at.Sub(start)
	if away < m.threshold {
		return
	}

	ev := domain.CheatEvent{
		Type:       sig.Type,
		DurationMs: away.Milliseconds(),
		Timestamp:  at,
	}
	// Bounded channel: drop rather than block gameplay if the consumer
	// stalls. Violations are advisory, not load-bearing.
	select {
	case m.events <- ev:
	default:
	}
}

// Stop tears the monitor down. No event is emitted afterwards; the events
// channel is closed so consumers can drain and exit.
func (m *AntiCheatMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	m.stopped = true
	close(m.events)
}
