package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-battle-service/internal/app"
	"quiz-battle-service/internal/config"
	"quiz-battle-service/internal/domain"
	"quiz-battle-service/internal/infra/memory"
	pgloader "quiz-battle-service/internal/infra/postgres"
	redisinfra "quiz-battle-service/internal/infra/redis"
	transport "quiz-battle-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the battle server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("config %s not readable, using defaults: %v", configPath, err)
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.BankLoader = memory.NewStaticBankLoader(sampleBanks())
	if pool != nil {
		loader = pgloader.NewBankLoader(pool)
	}

	bankTTL := config.TTLDuration(cfg.Bank.TTL, 10*time.Minute)
	var bankRepo app.BankRepository
	if redisClient != nil {
		bankRepo = redisinfra.NewBankRepository(redisClient, loader, bankTTL)
	} else {
		bankRepo = memory.NewBankRepository(loader, bankTTL)
	}

	var sessions app.SessionRepository
	var source app.QuestionSource
	if redisClient != nil {
		store := redisinfra.NewSessionStore(redisClient, redisTTL)
		sessions, source = store, store
	} else {
		store := memory.NewSessionStore()
		sessions, source = store, store
	}

	eval := app.NewEvaluator(app.EvaluatorConfig{
		NumericTolerance:    cfg.Engine.NumericTolerance,
		FuzzyMatchThreshold: cfg.Engine.FuzzyMatchThreshold,
	})
	xpEngine := app.NewXPEngine(xpConfigFrom(cfg.XP))

	var awards interface {
		app.AwardStore
		app.UserXPSource
	}
	switch {
	case pool != nil:
		awards = pgloader.NewAwardStore(pool)
	case redisClient != nil:
		awards = redisinfra.NewAwardStore(redisClient)
	default:
		awards = memory.NewAwardStore()
	}

	var authority app.ResultAuthority
	if cfg.Authority.URL != "" {
		authority = app.NewHTTPAuthority(cfg.Authority.URL, config.TTLDuration(cfg.Authority.Timeout, 10*time.Second))
	} else {
		authority = app.NewLocalAuthority(source, eval, xpEngine, awards)
	}
	submitter := app.NewResultSubmitter(authority)

	service := app.NewBattleService(bankRepo, sessions, eval, xpEngine, submitter, awards, app.ControllerConfig{
		ChoiceBudgetSec: cfg.Engine.ChoiceTimerSec,
		OpenBudgetSec:   cfg.Engine.OpenTimerSec,
		CheatThreshold:  time.Duration(cfg.Engine.CheatThresholdMs) * time.Millisecond,
	})
	wsHandler := transport.NewWSHandler(service, config.TTLDuration(cfg.Engine.CheatWarningDisplay, 5*time.Second))

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz battle service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func xpConfigFrom(cfg config.XP) app.XPConfig {
	return app.XPConfig{
		BasePerCorrect:    cfg.BasePerCorrect,
		DifficultyFactors: cfg.DifficultyFactors,
		SpeedBonusMax:     cfg.SpeedBonusMax,
		SpeedFast:         time.Duration(cfg.SpeedFastSec) * time.Second,
		SpeedSlow:         time.Duration(cfg.SpeedSlowSec) * time.Second,
		PerfectBonus:      cfg.PerfectBonus,
		StreakStep:        cfg.StreakStep,
		StreakCap:         cfg.StreakCap,
		LevelStepXP:       cfg.LevelStepXP,
	}
}

// sampleBanks provides demo content; production loads banks the generation
// pipeline wrote into Postgres.
func sampleBanks() map[string]domain.QuestionBank {
	return map[string]domain.QuestionBank{
		"materials-101": {
			ID:         "materials-101",
			Topic:      "Materials Science",
			Difficulty: "medium",
			Questions: []domain.Question{
				{
					ID:           "q1",
					Prompt:       "Which of these is a ferrous alloy?",
					Variant:      domain.MultipleChoice,
					Options:      []string{"Brass", "Steel", "Bronze"},
					CorrectIndex: 1,
					Explanation:  "Steel is iron alloyed with carbon.",
				},
				{
					ID:              "q2",
					Prompt:          "What is the approximate yield strength of mild steel in MPa?",
					Variant:         domain.OpenEnded,
					AnswerFormat:    domain.FormatNumeric,
					ExpectedAnswers: []string{"250"},
					Explanation:     "Mild steel yields at roughly 250 MPa.",
				},
				{
					ID:              "q3",
					Prompt:          "Name the crystal structure of austenite.",
					Variant:         domain.OpenEnded,
					ExpectedAnswers: []string{"face centered cubic", "fcc"},
					Explanation:     "Austenite is the face-centered cubic phase of iron.",
				},
			},
		},
	}
}
