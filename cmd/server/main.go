package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/studyloop/tutor-backend/internal/ai"
	"github.com/studyloop/tutor-backend/internal/curriculum"
	"github.com/studyloop/tutor-backend/internal/digest"
	"github.com/studyloop/tutor-backend/internal/homework"
	"github.com/studyloop/tutor-backend/internal/httpapi"
	"github.com/studyloop/tutor-backend/internal/platform/cache"
	"github.com/studyloop/tutor-backend/internal/platform/config"
	"github.com/studyloop/tutor-backend/internal/platform/database"
	"github.com/studyloop/tutor-backend/internal/tutor"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Log))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	db, err := database.New(startupCtx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// The cache is optional: without it digests are read straight from
	// postgres and budgets are tracked in memory.
	var cacheClient *cache.Cache
	if c, err := cache.New(startupCtx, cfg.Cache.URL); err != nil {
		slog.Warn("cache unavailable, continuing without it", "error", err)
	} else {
		cacheClient = c
		defer cacheClient.Close()
	}

	hwStore, err := homework.NewPostgresStore(db.Pool)
	if err != nil {
		slog.Error("failed to create homework store", "error", err)
		os.Exit(1)
	}

	digestPg, err := digest.NewPostgresStore(db.Pool)
	if err != nil {
		slog.Error("failed to create digest store", "error", err)
		os.Exit(1)
	}
	var digestStore digest.Store = digestPg
	if cacheClient != nil {
		digestStore = digest.NewCachedStore(digestPg, cacheClient, cfg.Digest.CacheTTL, slog.Default())
	}

	builder := digest.NewBuilder(hwStore, hwStore, hwStore, digestStore, slog.Default())

	var matcher *curriculum.Matcher
	if loader, err := curriculum.NewLoader(cfg.CurriculumPath); err != nil {
		slog.Warn("curriculum trees unavailable, prompts will not be enriched",
			"path", cfg.CurriculumPath, "error", err)
	} else {
		matcher = curriculum.NewMatcher(loader.Trees())
	}

	router := ai.NewRouter()
	if cfg.AI.OpenAI.APIKey != "" {
		router.Register("openai", ai.NewOpenAIProvider(cfg.AI.OpenAI.APIKey))
	}
	if cfg.AI.Google.APIKey != "" {
		router.Register("google", ai.NewGoogleProvider(cfg.AI.Google.APIKey))
	}

	scheduler := ai.NewScheduler(cfg.AI.MinInterval)
	defer scheduler.Close()

	var budget ai.BudgetChecker
	if cacheClient != nil {
		budget = ai.NewRedisBudget(cacheClient.Client)
	} else {
		budget = ai.NewInMemoryBudget()
	}

	tutorSvc := tutor.NewService(tutor.ServiceConfig{
		Router:    router,
		Scheduler: scheduler,
		Budget:    budget,
		Matcher:   matcher,
		Events:    tutor.NewPostgresEventLogger(db.Pool),
	})

	ready := map[string]httpapi.HealthChecker{"database": db}
	if cacheClient != nil {
		ready["cache"] = cacheClient
	}

	api := httpapi.NewServer(httpapi.ServerConfig{
		Builder: builder,
		Digests: digestStore,
		Tutor:   tutorSvc,
		Ready:   ready,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      api.Mux(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// newLogger builds the process logger from config.
func newLogger(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
