package app

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"quiz-battle-service/internal/domain"
)

func TestAwardIsDeterministic(t *testing.T) {
	engine := NewXPEngine(DefaultXPConfig())
	in := domain.XPInput{
		CorrectAnswers:  4,
		TotalQuestions:  5,
		AverageTimePerQ: 12 * time.Second,
		Difficulty:      "hard",
		WinStreak:       3,
	}

	a := engine.Award(in, 200)
	b := engine.Award(in, 200)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("identical inputs must produce identical awards:\n%+v\n%+v", a, b)
	}
	if a.NewXP != a.OldXP+a.XPEarned {
		t.Fatalf("newXP %d != oldXP %d + earned %d", a.NewXP, a.OldXP, a.XPEarned)
	}
}

func TestAwardBreakdownOrder(t *testing.T) {
	engine := NewXPEngine(DefaultXPConfig())
	result := engine.Award(domain.XPInput{
		CorrectAnswers:  5,
		TotalQuestions:  5,
		AverageTimePerQ: 4 * time.Second,
		Difficulty:      "medium",
		WinStreak:       2,
		IsPerfectScore:  true,
	}, 0)

	if len(result.Breakdown) != 4 {
		t.Fatalf("expected base, speed, perfect, streak lines, got %v", result.Breakdown)
	}
	if !strings.Contains(result.Breakdown[0], "correct") {
		t.Fatalf("first line should justify the base credit: %q", result.Breakdown[0])
	}
	if !strings.Contains(result.Breakdown[1], "Speed bonus") {
		t.Fatalf("second line should be the speed bonus: %q", result.Breakdown[1])
	}
	if !strings.Contains(result.Breakdown[2], "Perfect score") {
		t.Fatalf("third line should be the perfect bonus: %q", result.Breakdown[2])
	}
	if !strings.Contains(result.Breakdown[3], "streak") {
		t.Fatalf("fourth line should be the streak multiplier: %q", result.Breakdown[3])
	}

	// base 5×10×1.5 = 75, speed 20, perfect 25 → 120; streak ×1.2 → 144
	if result.XPEarned != 144 {
		t.Fatalf("earned = %d, want 144", result.XPEarned)
	}
}

func TestSpeedBonusBounds(t *testing.T) {
	engine := NewXPEngine(DefaultXPConfig())

	fast := engine.Award(domain.XPInput{CorrectAnswers: 1, TotalQuestions: 2, AverageTimePerQ: time.Second}, 0)
	slow := engine.Award(domain.XPInput{CorrectAnswers: 1, TotalQuestions: 2, AverageTimePerQ: 2 * time.Minute}, 0)
	if fast.XPEarned != 30 { // 10 base + 20 max speed bonus
		t.Fatalf("fast earned = %d, want 30", fast.XPEarned)
	}
	if slow.XPEarned != 10 { // bonus decayed to zero
		t.Fatalf("slow earned = %d, want 10", slow.XPEarned)
	}
}

func TestStreakMultiplierIsCapped(t *testing.T) {
	engine := NewXPEngine(DefaultXPConfig())
	in := domain.XPInput{CorrectAnswers: 2, TotalQuestions: 4, Difficulty: "easy"}

	in.WinStreak = 50
	capped := engine.Award(in, 0)
	in.WinStreak = 5
	atCap := engine.Award(in, 0)
	if capped.XPEarned != atCap.XPEarned {
		t.Fatalf("streak 50 earned %d, streak 5 earned %d; both should hit the 1.5 cap", capped.XPEarned, atCap.XPEarned)
	}
}

func TestLevelThresholds(t *testing.T) {
	engine := NewXPEngine(DefaultXPConfig())

	if got := engine.Level(950); got != 9 {
		t.Fatalf("Level(950) = %d, want 9", got)
	}
	if got := engine.Level(1050); got != 10 {
		t.Fatalf("Level(1050) = %d, want 10", got)
	}
	if !engine.CheckLevelUp(950, 1050) {
		t.Fatalf("950 → 1050 crosses the 1000 threshold")
	}
	if engine.CheckLevelUp(910, 990) {
		t.Fatalf("910 → 990 stays on level 9")
	}
	if got := engine.Level(-10); got != 0 {
		t.Fatalf("negative XP clamps to level 0, got %d", got)
	}
}

func TestMultiplayerFlagDoesNotChangeAward(t *testing.T) {
	engine := NewXPEngine(DefaultXPConfig())
	in := domain.XPInput{
		CorrectAnswers:  3,
		TotalQuestions:  5,
		AverageTimePerQ: 10 * time.Second,
		Difficulty:      "medium",
	}

	solo := engine.Award(in, 0)
	in.IsMultiplayer = true
	multi := engine.Award(in, 0)
	if !reflect.DeepEqual(solo, multi) {
		t.Fatalf("multiplayer flag must not change the award:\n%+v\n%+v", solo, multi)
	}
}

func TestUnknownDifficultyUsesUnitFactor(t *testing.T) {
	engine := NewXPEngine(DefaultXPConfig())
	result := engine.Award(domain.XPInput{CorrectAnswers: 3, TotalQuestions: 5, Difficulty: "nightmare"}, 0)
	if result.XPEarned != 30 {
		t.Fatalf("unknown difficulty should scale ×1.0, earned %d want 30", result.XPEarned)
	}
}
