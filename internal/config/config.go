package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Bank struct {
		TTL string `yaml:"ttl"`
	} `yaml:"bank"`
	Engine    Engine    `yaml:"engine"`
	XP        XP        `yaml:"xp"`
	Authority Authority `yaml:"authority"`
}

// Engine holds the gameplay heuristics. These are tunables, not invariants:
// numeric tolerance and the fuzzy threshold in particular are product knobs.
type Engine struct {
	ChoiceTimerSec      int     `yaml:"choiceTimerSec"`
	OpenTimerSec        int     `yaml:"openTimerSec"`
	NumericTolerance    float64 `yaml:"numericTolerance"`
	FuzzyMatchThreshold float64 `yaml:"fuzzyMatchThreshold"`
	CheatThresholdMs    int64   `yaml:"cheatThresholdMs"`
	CheatWarningDisplay string  `yaml:"cheatWarningDisplay"`
}

// XP holds the award tuning.
type XP struct {
	BasePerCorrect    int                `yaml:"basePerCorrect"`
	DifficultyFactors map[string]float64 `yaml:"difficultyFactors"`
	SpeedBonusMax     int                `yaml:"speedBonusMax"`
	SpeedFastSec      int                `yaml:"speedFastSec"`
	SpeedSlowSec      int                `yaml:"speedSlowSec"`
	PerfectBonus      int                `yaml:"perfectBonus"`
	StreakStep        float64            `yaml:"streakStep"`
	StreakCap         float64            `yaml:"streakCap"`
	LevelStepXP       int                `yaml:"levelStepXP"`
}

// Authority configures the external result-scoring backend. An empty URL
// selects the in-process authority.
type Authority struct {
	URL     string `yaml:"url"`
	Timeout string `yaml:"timeout"`
}

// Default returns the config used when no file overrides apply.
func Default() Config {
	cfg := Config{}
	cfg.Engine = Engine{
		ChoiceTimerSec:      30,
		OpenTimerSec:        60,
		NumericTolerance:    0.05,
		FuzzyMatchThreshold: 0.70,
		CheatThresholdMs:    2500,
		CheatWarningDisplay: "5s",
	}
	cfg.XP = XP{
		BasePerCorrect: 10,
		DifficultyFactors: map[string]float64{
			"easy":   1.0,
			"medium": 1.5,
			"hard":   2.0,
		},
		SpeedBonusMax: 20,
		SpeedFastSec:  5,
		SpeedSlowSec:  30,
		PerfectBonus:  25,
		StreakStep:    0.1,
		StreakCap:     1.5,
		LevelStepXP:   100,
	}
	cfg.Authority.Timeout = "10s"
	return cfg
}

// Load reads YAML config from path, layered over Default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty or
// malformed.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
