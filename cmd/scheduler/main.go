package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fmillanjs/temponest-sub001/internal/agent"
	"github.com/fmillanjs/temponest-sub001/internal/pkg/config"
	"github.com/fmillanjs/temponest-sub001/internal/pkg/database"
	"github.com/fmillanjs/temponest-sub001/internal/pkg/logger"
	pkgredis "github.com/fmillanjs/temponest-sub001/internal/pkg/redis"
	"github.com/fmillanjs/temponest-sub001/internal/scheduler"
	"github.com/fmillanjs/temponest-sub001/internal/scheduler/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(cfg.App.Environment, cfg.App.Debug)

	log.Info().
		Str("app", cfg.App.Name).
		Str("service", "scheduler").
		Msg("Starting scheduler service")

	db, err := database.NewGormDB(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	if err := database.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	redisClient, err := pkgredis.NewClient(&cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}

	agentClient := agent.NewClient(agent.Config{
		BaseURL:    cfg.Agents.BaseURL,
		MaxTimeout: cfg.Agents.MaxTimeout,
	})

	schedulerCfg := &scheduler.Config{
		PollInterval:      cfg.Scheduler.PollInterval,
		BatchSize:         cfg.Scheduler.BatchSize,
		MaxConcurrent:     cfg.Scheduler.MaxConcurrent,
		DispatchPerSecond: cfg.Scheduler.DispatchPerSecond,
		DispatchBurst:     cfg.Scheduler.DispatchBurst,
		StaleThreshold:    cfg.Scheduler.StaleThreshold,
		RetentionDays:     cfg.Scheduler.RetentionDays,
		ShutdownTimeout:   cfg.Scheduler.ShutdownTimeout,
	}

	s := scheduler.New(schedulerCfg, &scheduler.Dependencies{
		DB:    db,
		Redis: redisClient.Client,
		Agent: agentClient,
	})

	if err := s.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	// Health and metrics for this process. Prometheus scrapes here, not the
	// API service: the counters live in whichever process runs the loops.
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.StatusHandler())
	mux.Handle("/metrics", metrics.Handler())

	opsServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", opsServer.Addr).Msg("Starting scheduler HTTP server")
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Scheduler HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error shutting down scheduler HTTP server")
	}

	if err := s.Stop(); err != nil {
		log.Error().Err(err).Msg("Error stopping scheduler")
	}

	log.Info().Msg("Scheduler stopped")
}
