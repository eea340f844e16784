package app

import (
	"fmt"
	"math"
	"strings"
	"time"

	"quiz-battle-service/internal/domain"
)

// XPConfig holds the award tuning. Every value is overridable through the
// xp: config section.
type XPConfig struct {
	BasePerCorrect    int                // XP per correct answer before scaling
	DifficultyFactors map[string]float64 // multiplier per difficulty label
	SpeedBonusMax     int                // bonus at or below SpeedFast average
	SpeedFast         time.Duration      // average answer time earning the full bonus
	SpeedSlow         time.Duration      // average answer time earning none
	PerfectBonus      int                // flat bonus for a perfect score
	StreakStep        float64            // multiplier growth per consecutive win
	StreakCap         float64            // ceiling for the streak multiplier
	LevelStepXP       int                // XP per level for the threshold curve
}

// DefaultXPConfig returns the production defaults.
func DefaultXPConfig() XPConfig {
	return XPConfig{
		BasePerCorrect: 10,
		DifficultyFactors: map[string]float64{
			"easy":   1.0,
			"medium": 1.5,
			"hard":   2.0,
		},
		SpeedBonusMax: 20,
		SpeedFast:     5 * time.Second,
		SpeedSlow:     30 * time.Second,
		PerfectBonus:  25,
		StreakStep:    0.1,
		StreakCap:     1.5,
		LevelStepXP:   100,
	}
}

// XPEngine computes awards. It is a pure function of its inputs: the same
// outcome always yields the same award, which is what makes resubmission
// idempotent downstream.
type XPEngine struct {
	cfg XPConfig
}

func NewXPEngine(cfg XPConfig) *XPEngine {
	def := DefaultXPConfig()
	if cfg.BasePerCorrect <= 0 {
		cfg.BasePerCorrect = def.BasePerCorrect
	}
	if len(cfg.DifficultyFactors) == 0 {
		cfg.DifficultyFactors = def.DifficultyFactors
	}
	if cfg.SpeedBonusMax <= 0 {
		cfg.SpeedBonusMax = def.SpeedBonusMax
	}
	if cfg.SpeedFast <= 0 {
		cfg.SpeedFast = def.SpeedFast
	}
	if cfg.SpeedSlow <= cfg.SpeedFast {
		cfg.SpeedSlow = def.SpeedSlow
	}
	if cfg.PerfectBonus < 0 {
		cfg.PerfectBonus = def.PerfectBonus
	}
	if cfg.StreakStep <= 0 {
		cfg.StreakStep = def.StreakStep
	}
	if cfg.StreakCap < 1 {
		cfg.StreakCap = def.StreakCap
	}
	if cfg.LevelStepXP <= 0 {
		cfg.LevelStepXP = def.LevelStepXP
	}
	return &XPEngine{cfg: cfg}
}

// Level maps a total XP to a level on a linear threshold curve: one level
// per LevelStepXP. Monotonic by construction.
func (e *XPEngine) Level(xp int) int {
	if xp < 0 {
		return 0
	}
	return xp / e.cfg.LevelStepXP
}

// CheckLevelUp reports whether the award crossed a level threshold.
func (e *XPEngine) CheckLevelUp(oldXP, newXP int) bool {
	return e.Level(newXP) > e.Level(oldXP)
}

// Award computes the XP for one completed session. The breakdown lists every
// component in the order it was applied.
func (e *XPEngine) Award(in domain.XPInput, oldXP int) domain.XPResult {
	var breakdown []string

	factor := e.cfg.DifficultyFactors[strings.ToLower(in.Difficulty)]
	if factor == 0 {
		factor = 1.0
	}

	base := int(math.Round(float64(in.CorrectAnswers*e.cfg.BasePerCorrect) * factor))
	breakdown = append(breakdown, fmt.Sprintf(
		"%d correct × %d XP × %.1f (%s difficulty) = %d XP",
		in.CorrectAnswers, e.cfg.BasePerCorrect, factor, difficultyLabel(in.Difficulty), base))

	speed := e.speedBonus(in.AverageTimePerQ)
	if speed > 0 {
		breakdown = append(breakdown, fmt.Sprintf(
			"Speed bonus (avg %.1fs per question) = %d XP",
			in.AverageTimePerQ.Seconds(), speed))
	}

	perfect := 0
	if in.IsPerfectScore && in.TotalQuestions > 0 {
		perfect = e.cfg.PerfectBonus
		breakdown = append(breakdown, fmt.Sprintf("Perfect score bonus = %d XP", perfect))
	}

	subtotal := base + speed + perfect

	mult := 1.0
	if in.WinStreak > 0 {
		mult = 1.0 + e.cfg.StreakStep*float64(in.WinStreak)
		if mult > e.cfg.StreakCap {
			mult = e.cfg.StreakCap
		}
		breakdown = append(breakdown, fmt.Sprintf(
			"Win streak ×%.1f (%d in a row)", mult, in.WinStreak))
	}

	earned := int(math.Round(float64(subtotal) * mult))
	newXP := oldXP + earned

	return domain.XPResult{
		XPEarned:  earned,
		OldXP:     oldXP,
		NewXP:     newXP,
		Breakdown: breakdown,
		LeveledUp: e.CheckLevelUp(oldXP, newXP),
	}
}

// speedBonus decays linearly from SpeedBonusMax at SpeedFast to zero at
// SpeedSlow, clamped at both ends.
func (e *XPEngine) speedBonus(avg time.Duration) int {
	if avg <= 0 {
		return 0
	}
	if avg <= e.cfg.SpeedFast {
		return e.cfg.SpeedBonusMax
	}
	if avg >= e.cfg.SpeedSlow {
		return 0
	}
	span := e.cfg.SpeedSlow - e.cfg.SpeedFast
	frac := float64(e.cfg.SpeedSlow-avg) / float64(span)
	return int(math.Round(float64(e.cfg.SpeedBonusMax) * frac))
}

func difficultyLabel(d string) string {
	if d == "" {
		return "standard"
	}
	return strings.ToLower(d)
}
