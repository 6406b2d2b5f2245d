package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"

	"onboarding-agent/internal/httpapi"
	"onboarding-agent/internal/integrations/openai"
	"onboarding-agent/internal/onboarding"
	"onboarding-agent/internal/registry"
	"onboarding-agent/internal/store"
	redisstore "onboarding-agent/internal/store/redis"
)

type config struct {
	Addr              string        `env:"ADDR" envDefault:":8000"`
	RedisAddr         string        `env:"REDIS_ADDR"`
	RedisPassword     string        `env:"REDIS_PASSWORD"`
	RedisDB           int           `env:"REDIS_DB" envDefault:"0"`
	SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	OpenAIKey         string        `env:"OPENAI_API_KEY"`
	OpenAIModel       string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIBaseURL     string        `env:"OPENAI_BASE_URL"`
	ParaphraseTimeout time.Duration `env:"PARAPHRASE_TIMEOUT" envDefault:"5s"`
	StepsFile         string        `env:"STEPS_FILE"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		slog.Error("failed to parse config", "err", err)
		os.Exit(1)
	}

	// ---- Session store ----
	var sessions onboarding.SessionStore = store.NewMemory()
	if cfg.RedisAddr != "" {
		rs := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			redisstore.WithTTL(cfg.SessionTTL))
		defer func() { _ = rs.Close() }()
		sessions = rs
	} else {
		slog.Warn("REDIS_ADDR not set, sessions are in-memory and lost on restart")
	}

	// ---- Paraphraser (optional; raw values pass through without a key) ----
	var paraphraser onboarding.Paraphraser
	if cfg.OpenAIKey != "" {
		opts := []openai.Option{openai.WithModel(cfg.OpenAIModel)}
		if cfg.OpenAIBaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.OpenAIBaseURL))
		}
		client, err := openai.NewClient(openai.StaticKey(cfg.OpenAIKey), opts...)
		if err != nil {
			slog.Error("failed to create OpenAI client", "err", err)
			os.Exit(1)
		}
		paraphraser = client
	} else {
		slog.Warn("OPENAI_API_KEY not set, answers will not be paraphrased")
	}

	// ---- Step catalog ----
	steps := registry.Default()
	if cfg.StepsFile != "" {
		var err error
		steps, err = registry.LoadFile(cfg.StepsFile)
		if err != nil {
			slog.Error("failed to load step catalog", "path", cfg.StepsFile, "err", err)
			os.Exit(1)
		}
	}

	svc, err := onboarding.NewService(steps, sessions, paraphraser,
		onboarding.WithParaphraseTimeout(cfg.ParaphraseTimeout))
	if err != nil {
		slog.Error("failed to create onboarding service", "err", err)
		os.Exit(1)
	}
	h, err := httpapi.NewHandler(svc)
	if err != nil {
		slog.Error("failed to create HTTP handler", "err", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	go func() {
		slog.Info("onboarding server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "err", err)
	}
}
