// Package main contains the entrypoint for the Bridgeline triage service.
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

	"golang.org/x/sync/errgroup"

	"github.com/bridgeline/bridgeline/internal/config"
	"github.com/bridgeline/bridgeline/internal/database"
	"github.com/bridgeline/bridgeline/internal/engine"
	"github.com/bridgeline/bridgeline/internal/gemini"
	"github.com/bridgeline/bridgeline/internal/logger"
	"github.com/bridgeline/bridgeline/internal/memory"
	"github.com/bridgeline/bridgeline/internal/scheduler"
	"github.com/bridgeline/bridgeline/internal/scheduler/tasks"
	"github.com/bridgeline/bridgeline/internal/server"
	"github.com/bridgeline/bridgeline/internal/vapi"
	"github.com/bridgeline/bridgeline/internal/weather"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes and starts all application components (config, logger,
// db, AI client, HTTP server, scheduler), handles graceful shutdown, and
// returns an exit code (0 for success, 1 for failure).
func run(ctx context.Context) int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.Format == "json")
	log.Info("Logger initialized", "level", cfg.Log.Level, "format", cfg.Log.Format)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	aiClient, err := gemini.NewClient(ctx, cfg.Gemini, log)
	if err != nil {
		log.Error("Failed to initialize Gemini client", "error", err)
		return 1
	}

	dispatcher := vapi.NewDispatcher(cfg.Vapi, log)
	wx := weather.NewService(cfg.Weather, log)
	memories := memory.NewService(store, log)
	eng := engine.New(store, aiClient, wx, memories, cfg.Engine, log)

	sched, err := scheduler.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger:     log,
		Store:      store,
		Dispatcher: dispatcher,
	}))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	svc := server.New(cfg, log, store, eng, aiClient, dispatcher, memories)

	log.Info("Starting service...")
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := svc.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := sched.Start(); err != nil {
			return err
		}
		<-gCtx.Done()
		return sched.Stop()
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return svc.Stop(shutdownCtx)
	})

	runErr := g.Wait()
	log.Info("Service run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Service stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Service stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}
