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

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"printpoller/app/config"
	"printpoller/app/usecase"
	"printpoller/internal/infrastructure/transport"
)

// scopes older than this at startup belong to a previous process
const staleScopeAge = time.Hour

var configPath string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll for print jobs and dispatch them",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return run(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to an HCL config file (overrides "+config.ConfigPathEnv+")")
	rootCmd.AddCommand(runCmd)
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		if err := os.Setenv(config.ConfigPathEnv, configPath); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func run(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	logger := newLogger(cfg)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	if err := a.jobRepo.EnsureIndexes(ctx); err != nil {
		// the poller works without indexes, only slower
		logger.Warn("ensure indexes failed", "err", err)
	}

	if n, err := a.workspace.PurgeStale(ctx, time.Now().Add(-staleScopeAge)); err != nil {
		logger.Warn("purge stale scopes failed", "err", err)
	} else if n > 0 {
		logger.Info("purged stale scopes", "count", n, "dir", a.workspace.GetBasePath())
	}

	a.poller.Start(ctx) // фоновый воркер

	var srv *http.Server
	if cfg.Server.Enabled {
		jobSvc := usecase.NewJobService(a.jobRepo, a.poller)
		handler := transport.NewOpsHandler(jobSvc, logger, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)

		r := mux.NewRouter()
		handler.RegisterRoutes(r)
		corsHandler := handlers.CORS(
			handlers.AllowedOrigins([]string{"*"}),
			handlers.AllowedMethods([]string{"GET", "OPTIONS"}),
			handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		)(r)

		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv = &http.Server{
			Addr:         addr,
			Handler:      corsHandler,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}

		go func() {
			logger.Info("starting HTTP server", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server failed", "err", err)
				cancel()
			}
		}()
	}

	// OS signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case sig := <-stop:
		logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("context cancelled")
	}

	// Shutdown sequence: stop discovery, let claimed jobs finish, then close.
	a.poller.Stop()

	drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.Poller.DrainTimeout)
	defer drainCancel()
	if err := a.poller.Drain(drainCtx); err != nil {
		logger.Warn("shutdown with jobs still in flight", "err", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if srv != nil {
		logger.Info("shutting down http server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "err", err)
		}
	}

	a.Close(shutdownCtx)
	logger.Info("service stopped")
	return nil
}
