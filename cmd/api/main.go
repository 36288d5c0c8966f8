package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fmillanjs/temponest-sub001/internal/agent"
	"github.com/fmillanjs/temponest-sub001/internal/api"
	"github.com/fmillanjs/temponest-sub001/internal/domain/repositories"
	"github.com/fmillanjs/temponest-sub001/internal/domain/services"
	"github.com/fmillanjs/temponest-sub001/internal/pkg/config"
	"github.com/fmillanjs/temponest-sub001/internal/pkg/database"
	"github.com/fmillanjs/temponest-sub001/internal/pkg/logger"
	pkgredis "github.com/fmillanjs/temponest-sub001/internal/pkg/redis"
	"github.com/fmillanjs/temponest-sub001/internal/scheduler"
	"github.com/fmillanjs/temponest-sub001/internal/scheduler/schedule"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(cfg.App.Environment, cfg.App.Debug)

	log.Info().
		Str("app", cfg.App.Name).
		Str("service", "api").
		Msg("Starting API service")

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

	// Wire the scheduler but do not start its loops: the polling, recovery,
	// and cleanup loops run only in the scheduler binary. The API process
	// uses the wiring for manual triggers, which share the dispatch path.
	sched := scheduler.New(&scheduler.Config{
		DispatchPerSecond: cfg.Scheduler.DispatchPerSecond,
		DispatchBurst:     cfg.Scheduler.DispatchBurst,
	}, &scheduler.Dependencies{
		DB:    db,
		Redis: redisClient.Client,
		Agent: agentClient,
	})

	taskRepo := repositories.NewTaskRepository(db)
	executionRepo := repositories.NewExecutionRepository(db)
	calculator := schedule.NewCalculator()

	svc := &api.Services{
		Task:      services.NewTaskService(taskRepo, calculator),
		Execution: services.NewExecutionService(executionRepo),
	}

	server := api.NewServer(cfg, svc, sched, redisClient, db)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Error shutting down HTTP server")
	}

	log.Info().Msg("API stopped")
}
