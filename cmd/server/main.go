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

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"studydeck/internal/activity"
	"studydeck/internal/config"
	"studydeck/internal/content"
	"studydeck/internal/handlers"
	"studydeck/internal/scheduler"
	"studydeck/internal/security"
	"studydeck/internal/storage"
	"studydeck/internal/subjects"
	"studydeck/internal/view"
)

const (
	stepContent = "Loading deck content"
	stepJobs    = "Starting housekeeping"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.Load()

	cmd := &cobra.Command{
		Use:          "studydeck",
		Short:        "Serve flashcard study decks",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.ServerPort, "port", cfg.ServerPort, "port to listen on")
	flags.StringVar(&cfg.DatabaseType, "db-type", cfg.DatabaseType, "storage backend: sqlite, postgres, mysql or memory")
	flags.StringVar(&cfg.DatabasePath, "db-path", cfg.DatabasePath, "SQLite database file")
	flags.StringVar(&cfg.ContentURL, "content-url", cfg.ContentURL, "base URL serving <deck>.json files")
	flags.StringVar(&cfg.ContentDir, "content-dir", cfg.ContentDir, "directory holding <deck>.json files")
	flags.DurationVar(&cfg.AdvanceDelay, "advance-delay", cfg.AdvanceDelay, "delay before moving on after an answer")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")

	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := cfg.NewLogger()

	kv, db, err := storage.Open(cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		logger.WithField("type", cfg.DatabaseType).Info("database connection established")
	} else {
		logger.Warn("using in-memory storage, progress is lost on restart")
	}

	templates, err := handlers.LoadTemplates()
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}

	loader, err := content.NewLoader(cfg.ContentURL, cfg.ContentDir, logger)
	if err != nil {
		return err
	}

	tracker := activity.NewTracker(kv)
	registry := subjects.NewRegistry(subjects.Env{
		KV:      kv,
		Tracker: tracker,
		Log:     logger,
		Delay:   cfg.AdvanceDelay,
	})
	visits := view.NewVisits(registry.Open, loader)
	defer visits.CloseAll()

	limiter := security.NewRateLimiter(cfg.RateLimit)
	middleware := handlers.NewMiddleware(limiter, security.NewCSRFGenerator(cfg.CSRFSecret), cfg.VisitIdleTimeout, logger)
	startup := handlers.NewStartup(logger, stepContent, stepJobs)

	router := &handlers.Router{
		Middleware: middleware,
		Decks:      handlers.NewDeckHandler(registry, visits, middleware, templates),
		Activity:   handlers.NewActivityHandler(tracker, middleware, templates),
		Startup:    handlers.NewStartupHandler(startup, templates),
		Gate:       startup,
		Log:        logger,
	}

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	jobs := scheduler.New(logger)
	defer jobs.Stop()

	go initialize(ctx, logger, startup, loader, registry.IDs(), func() error {
		if err := jobs.Every(time.Minute, "evict-idle-visits", func() int {
			return visits.EvictIdle(cfg.VisitIdleTimeout)
		}); err != nil {
			return err
		}
		if err := jobs.Every(10*time.Minute, "cleanup-rate-limiter", func() int {
			return limiter.Cleanup(cfg.VisitIdleTimeout)
		}); err != nil {
			return err
		}
		jobs.Start()
		return nil
	})

	serveErr := make(chan error, 1)
	go func() {
		logger.WithField("addr", server.Addr).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

// initialize warms the content cache and starts housekeeping while the
// startup page is shown. A deck that fails to preload is retried on first
// use, so failures only log.
func initialize(ctx context.Context, logger logrus.FieldLogger, startup *handlers.Startup, loader *content.Loader, deckIDs []string, startJobs func() error) {
	startup.Begin(stepContent)
	if err := loader.Preload(ctx, deckIDs); err != nil {
		logger.WithError(err).Warn("some decks failed to preload")
	}
	startup.Complete(stepContent)

	startup.Begin(stepJobs)
	if err := startJobs(); err != nil {
		logger.WithError(err).Error("failed to start housekeeping jobs")
	}
	startup.Complete(stepJobs)

	startup.MarkReady()
	logger.Info("server ready")
}
