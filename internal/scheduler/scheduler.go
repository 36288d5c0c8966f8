package scheduler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/fmillanjs/temponest-sub001/internal/domain/repositories"
	"github.com/fmillanjs/temponest-sub001/internal/events"
	"github.com/fmillanjs/temponest-sub001/internal/scheduler/dispatcher"
	"github.com/fmillanjs/temponest-sub001/internal/scheduler/lifecycle"
	"github.com/fmillanjs/temponest-sub001/internal/scheduler/metrics"
	"github.com/fmillanjs/temponest-sub001/internal/scheduler/poller"
	"github.com/fmillanjs/temponest-sub001/internal/scheduler/recovery"
	"github.com/fmillanjs/temponest-sub001/internal/scheduler/schedule"
)

// Scheduler wires the polling loop, dispatch path, and recovery loops for
// one process. The engine assumes a single scheduler instance: there is no
// leader election or per-task row locking, so running replicas concurrently
// will double-dispatch due tasks.
type Scheduler struct {
	config *Config

	poller     *poller.Poller
	dispatcher *dispatcher.Dispatcher
	trigger    *ManualTrigger
	staleRecov *recovery.StaleRecovery
	cleanup    *recovery.Cleanup
	collector  *metrics.Collector

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Dependencies struct {
	DB    *gorm.DB
	Redis *redis.Client
	Agent dispatcher.ExecutionCaller
}

func New(cfg *Config, deps *Dependencies) *Scheduler {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.Validate()

	ctx, cancel := context.WithCancel(context.Background())

	taskRepo := repositories.NewTaskRepository(deps.DB)
	executionRepo := repositories.NewExecutionRepository(deps.DB)

	calculator := schedule.NewCalculator()
	lc := lifecycle.New(executionRepo)
	publisher := events.NewPublisher(deps.Redis)
	collector := metrics.NewCollector()
	limiter := rate.NewLimiter(rate.Limit(cfg.DispatchPerSecond), cfg.DispatchBurst)

	disp := dispatcher.New(taskRepo, lc, deps.Agent, calculator, publisher, collector, limiter)
	poll := poller.New(taskRepo, disp, collector, cfg.BatchSize, cfg.PollInterval, cfg.MaxConcurrent)
	trigger := NewManualTrigger(taskRepo, disp)
	staleRecov := recovery.NewStaleRecovery(executionRepo, lc, collector, cfg.StaleThreshold)
	cleanup := recovery.NewCleanup(executionRepo, cfg.RetentionDays)

	return &Scheduler{
		config:     cfg,
		poller:     poll,
		dispatcher: disp,
		trigger:    trigger,
		staleRecov: staleRecov,
		cleanup:    cleanup,
		collector:  collector,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (s *Scheduler) Start() error {
	log.Info().
		Dur("poll_interval", s.config.PollInterval).
		Int("batch_size", s.config.BatchSize).
		Int("max_concurrent", s.config.MaxConcurrent).
		Msg("Starting scheduler")

	s.collector.SetRunning(true)

	s.wg.Add(3)
	go func() {
		defer s.wg.Done()
		s.poller.Run(s.ctx)
	}()
	go func() {
		defer s.wg.Done()
		s.staleRecov.Run(s.ctx)
	}()
	go func() {
		defer s.wg.Done()
		s.cleanup.Run(s.ctx)
	}()

	return nil
}

func (s *Scheduler) Stop() error {
	log.Info().Msg("Stopping scheduler...")

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("Scheduler stopped gracefully")
	case <-time.After(s.config.ShutdownTimeout):
		log.Warn().Msg("Scheduler shutdown timed out")
	}

	s.collector.SetRunning(false)
	return nil
}

// Trigger exposes the manual dispatch entry point built over the same
// dispatch path the loop uses.
func (s *Scheduler) Trigger() *ManualTrigger {
	return s.trigger
}

func (s *Scheduler) IsRunning() bool {
	return s.collector.IsRunning()
}

// ActiveJobs reports how many workers are currently dispatching a task.
func (s *Scheduler) ActiveJobs() int64 {
	return s.collector.ActiveWorkers()
}

func (s *Scheduler) Metrics() *metrics.Collector {
	return s.collector
}

// StatusHandler serves the health snapshot over HTTP so the scheduler
// process can be probed directly, without going through the API service.
func (s *Scheduler) StatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(s.Health())
	}
}

func (s *Scheduler) Health() map[string]interface{} {
	snapshot := s.collector.Snapshot()
	return map[string]interface{}{
		"is_running":            snapshot.IsRunning,
		"uptime_seconds":        int64(snapshot.Uptime.Seconds()),
		"active_jobs":           snapshot.ActiveWorkers,
		"polls_total":           snapshot.PollsTotal,
		"last_poll_at":          snapshot.LastPollAt,
		"last_poll_duration_ms": snapshot.LastPollDuration,
		"dispatched_total":      snapshot.DispatchedTotal,
		"completed_total":       snapshot.CompletedTotal,
		"failed_total":          snapshot.FailedTotal,
		"skipped_total":         snapshot.SkippedTotal,
		"recovered_total":       snapshot.RecoveredTotal,
	}
}
