package app

import (
	"testing"
	"time"

	"quiz-battle-service/internal/domain"
)

func TestShortFocusLossEmitsNothing(t *testing.T) {
	m := NewAntiCheatMonitor(2500 * time.Millisecond)
	t0 := time.Now()

	m.Observe(domain.FocusSignal{Type: domain.CheatWindowBlur, Lost: true, At: t0})
	m.Observe(domain.FocusSignal{Type: domain.CheatWindowBlur, Lost: false, At: t0.Add(2 * time.Second)})

	select {
	case ev := <-m.Events():
		t.Fatalf("2000ms away is below the threshold, got %+v", ev)
	default:
	}
}

func TestLongFocusLossEmitsOneEvent(t *testing.T) {
	m := NewAntiCheatMonitor(2500 * time.Millisecond)
	t0 := time.Now()

	m.Observe(domain.FocusSignal{Type: domain.CheatVisibilityChange, Lost: true, At: t0})
	m.Observe(domain.FocusSignal{Type: domain.CheatVisibilityChange, Lost: false, At: t0.Add(3 * time.Second)})

	select {
	case ev := <-m.Events():
		if ev.Type != domain.CheatVisibilityChange {
			t.Fatalf("unexpected type %q", ev.Type)
		}
		if ev.DurationMs != 3000 {
			t.Fatalf("duration = %dms, want 3000", ev.DurationMs)
		}
	default:
		t.Fatalf("expected a violation event")
	}

	select {
	case ev := <-m.Events():
		t.Fatalf("expected exactly one event, got %+v", ev)
	default:
	}
}

func TestViolationsAccumulateIndependently(t *testing.T) {
	m := NewAntiCheatMonitor(2500 * time.Millisecond)
	t0 := time.Now()

	m.Observe(domain.FocusSignal{Type: domain.CheatWindowBlur, Lost: true, At: t0})
	m.Observe(domain.FocusSignal{Type: domain.CheatWindowBlur, Lost: false, At: t0.Add(4 * time.Second)})
	m.Observe(domain.FocusSignal{Type: domain.CheatVisibilityChange, Lost: true, At: t0.Add(5 * time.Second)})
	m.Observe(domain.FocusSignal{Type: domain.CheatVisibilityChange, Lost: false, At: t0.Add(8 * time.Second)})

	got := 0
	for {
		select {
		case <-m.Events():
			got++
		default:
			if got != 2 {
				t.Fatalf("expected 2 violations, got %d", got)
			}
			return
		}
	}
}

func TestRegainWithoutLossIsIgnored(t *testing.T) {
	m := NewAntiCheatMonitor(2500 * time.Millisecond)
	m.Observe(domain.FocusSignal{Type: domain.CheatWindowBlur, Lost: false, At: time.Now()})

	select {
	case ev := <-m.Events():
		t.Fatalf("unpaired regain must not emit, got %+v", ev)
	default:
	}
}

func TestStopSuppressesLateSignals(t *testing.T) {
	m := NewAntiCheatMonitor(2500 * time.Millisecond)
	t0 := time.Now()

	m.Observe(domain.FocusSignal{Type: domain.CheatWindowBlur, Lost: true, At: t0})
	m.Stop()
	m.Observe(domain.FocusSignal{Type: domain.CheatWindowBlur, Lost: false, At: t0.Add(10 * time.Second)})

	if _, ok := <-m.Events(); ok {
		t.Fatalf("no event may be emitted after teardown")
	}
}
