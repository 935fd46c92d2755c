package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"txtforge/internal/api"
	"txtforge/internal/auth"
	"txtforge/internal/bot"
	"txtforge/internal/config"
	"txtforge/internal/database"
	"txtforge/internal/generator"
	"txtforge/internal/indexer"
	"txtforge/internal/openrouter"
	"txtforge/internal/queue"
	"txtforge/internal/search"
	"txtforge/internal/voting"
	"txtforge/pkg/logger"
)

const localQueueSize = 256

func main() {
	cfg, err := config.Load()
	if err != nil {
		switch {
		case errors.Is(err, config.ErrEmptyJWTSecret):
			fmt.Fprintln(os.Stderr, "Error: AUTH_JWT_SECRET environment variable is required")
		case errors.Is(err, config.ErrEmptyAdminPassword):
			fmt.Fprintln(os.Stderr, "Error: AUTH_ADMIN_PASSWORD or AUTH_ADMIN_PASSWORD_HASH environment variable is required")
		case errors.Is(err, config.ErrEmptyDBPassword):
			fmt.Fprintln(os.Stderr, "Error: DB_PASSWORD or DB_URL environment variable is required")
		default:
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		}
		os.Exit(1)
	}

	logger.InitWithFormat(cfg.App.LogLevel, logger.Format(cfg.App.LogFormat), nil)
	logger.Info("Starting txtforge",
		logger.String("app", cfg.App.Name),
		logger.String("environment", cfg.App.Environment),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		var dbErr *database.ConnectionError
		if errors.As(err, &dbErr) {
			logger.Error("Failed to connect to database",
				logger.Err(dbErr),
				logger.String("host", dbErr.Host),
				logger.Int("port", dbErr.Port),
			)
		} else {
			logger.Error("Failed to connect to database", logger.Err(err))
		}
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("Connected to database")

	var q queue.Queue
	if cfg.NATS.Enabled {
		nq, err := queue.New(cfg.NATS)
		if err != nil {
			logger.Error("Failed to connect to NATS", logger.Err(err))
			os.Exit(1)
		}
		q = nq
		logger.Info("Connected to NATS", logger.String("url", cfg.NATS.URL))
	} else {
		q = queue.NewLocal(localQueueSize)
		logger.Info("Using in-process event queue")
	}
	defer q.Close()

	index, err := search.Open(cfg.Search.IndexPath)
	if err != nil {
		logger.Error("Failed to open search index", logger.Err(err))
		os.Exit(1)
	}
	defer index.Close()

	sectionRepo := database.NewSectionRepository(db)
	jokeRepo := database.NewJokeRepository(db)
	interactionRepo := database.NewInteractionRepository(db)
	settingsRepo := database.NewSettingsRepository(db)
	generatorRepo := database.NewGeneratorRepository(db)
	codeRepo := database.NewCodeInjectionRepository(db)

	var indexerOpts []indexer.Option
	if cfg.Bot.Enabled() {
		telegramBot, err := bot.New(cfg.Bot, jokeRepo, sectionRepo)
		if err != nil {
			logger.Error("Failed to create bot", logger.Err(err))
			os.Exit(1)
		}
		if err := telegramBot.Start(ctx); err != nil {
			logger.Error("Failed to start bot", logger.Err(err))
			os.Exit(1)
		}
		indexerOpts = append(indexerOpts, indexer.WithAnnouncer(telegramBot))
	}

	var bg workers

	ix := indexer.New(jokeRepo, sectionRepo, index, indexerOpts...)
	bg.Go("indexer", func() {
		if err := ix.Rebuild(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Failed to rebuild search index", logger.Err(err))
		}
		if err := ix.Run(ctx, q); err != nil {
			logger.Error("Indexer error", logger.Err(err))
		}
	})

	orClient := openrouter.New(cfg.OpenRouter)
	gen := generator.New(cfg.Generator, generator.Deps{
		Jobs:      generatorRepo,
		Sections:  sectionRepo,
		Settings:  settingsRepo,
		Jokes:     jokeRepo,
		Completer: orClient,
	}, generator.WithPublisher(q))

	if cfg.Generator.Enabled {
		bg.Go("generator", func() { gen.Run(ctx) })
	} else {
		logger.Info("Content generator loop disabled")
	}

	server := api.New(cfg.HTTP, api.Deps{
		Sections:      sectionRepo,
		Jokes:         jokeRepo,
		Votes:         voting.NewEngine(interactionRepo),
		Settings:      settingsRepo,
		Models:        orClient,
		Generators:    generatorRepo,
		Runner:        gen,
		CodeInjection: codeRepo,
		Search:        index,
		Events:        q,
		Auth:          auth.NewService(cfg.Auth),
	})

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("HTTP server error", logger.Err(err))
			cancel()
		}
	}()

	healthMux := http.NewServeMux()
	healthMux.HandleFunc(cfg.Health.Endpoint, func(w http.ResponseWriter, r *http.Request) {
		pingCtx, pingCancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer pingCancel()

		if err := db.Ping(pingCtx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("database unavailable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	healthServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Health.Port),
		Handler:           healthMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Health server starting",
			logger.Int("port", cfg.Health.Port),
		)
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Health server error", logger.Err(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down HTTP server", logger.Err(err))
	}

	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down health server", logger.Err(err))
	}

	// A generator tick in progress may still be waiting on a completion.
	drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.OpenRouter.Timeout+cfg.HTTP.ShutdownTimeout)
	defer drainCancel()

	if err := bg.Wait(drainCtx); err != nil {
		logger.Error("Background workers did not stop in time", logger.Err(err))
	}

	logger.Info("Server stopped gracefully")
}
