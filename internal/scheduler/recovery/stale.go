package recovery

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fmillanjs/temponest-sub001/internal/domain/models"
	"github.com/fmillanjs/temponest-sub001/internal/scheduler/lifecycle"
	"github.com/fmillanjs/temponest-sub001/internal/scheduler/metrics"
)

// StuckSource finds executions sitting in a non-terminal state too long.
// Satisfied by repositories.ExecutionRepository.
type StuckSource interface {
	FindStuck(ctx context.Context, threshold time.Duration, limit int) ([]models.TaskExecution, error)
}

// StaleRecovery fails executions abandoned in pending or running, typically
// after a process crash between lifecycle transitions. This keeps the
// guarantee that every execution reaches a terminal state.
type StaleRecovery struct {
	source    StuckSource
	lifecycle *lifecycle.Lifecycle
	collector *metrics.Collector
	threshold time.Duration
	interval  time.Duration
	batchSize int
}

func NewStaleRecovery(source StuckSource, lc *lifecycle.Lifecycle, collector *metrics.Collector, threshold time.Duration) *StaleRecovery {
	return &StaleRecovery{
		source:    source,
		lifecycle: lc,
		collector: collector,
		threshold: threshold,
		interval:  5 * time.Minute,
		batchSize: 500,
	}
}

func (r *StaleRecovery) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Run once on start to clear anything a previous process left behind.
	r.recover(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.recover(ctx)
		}
	}
}

func (r *StaleRecovery) recover(ctx context.Context) {
	stuck, err := r.source.FindStuck(ctx, r.threshold, r.batchSize)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch stuck executions")
		return
	}
	if len(stuck) == 0 {
		return
	}

	recovered := 0
	for i := range stuck {
		execution := stuck[i]
		msg := fmt.Sprintf("execution abandoned in state %q for over %s", execution.Status, r.threshold)
		if err := r.lifecycle.MarkFailed(ctx, &execution, msg, execution.RetryCount); err != nil {
			log.Error().
				Err(err).
				Str("execution_id", execution.ID.String()).
				Msg("Failed to terminate stuck execution")
			continue
		}
		recovered++
		log.Warn().
			Str("execution_id", execution.ID.String()).
			Str("task_id", execution.ScheduledTaskID.String()).
			Msg("Terminated stuck execution")
	}

	if recovered > 0 {
		r.collector.IncRecovered(int64(recovered))
		log.Info().Int("count", recovered).Msg("Recovered stuck executions")
	}
}

// RecoverOnce runs a single pass outside the loop.
func (r *StaleRecovery) RecoverOnce(ctx context.Context) {
	r.recover(ctx)
}
