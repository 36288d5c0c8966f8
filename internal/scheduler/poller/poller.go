package poller

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fmillanjs/temponest-sub001/internal/domain/models"
	"github.com/fmillanjs/temponest-sub001/internal/scheduler/dispatcher"
	"github.com/fmillanjs/temponest-sub001/internal/scheduler/metrics"
)

// DueTaskSource is the slice of the persistence layer the poller needs.
// Satisfied by repositories.TaskRepository.
type DueTaskSource interface {
	FindDue(ctx context.Context, now time.Time, limit int) ([]models.ScheduledTask, error)
}

// Dispatch abstracts the shared dispatch path.
type Dispatch interface {
	Dispatch(ctx context.Context, task *models.ScheduledTask, scheduledFor time.Time, triggerType string) *dispatcher.Result
}

// Poller drives automatic dispatch: on each tick it fetches up to batchSize
// due tasks, earliest due first, and runs them on a bounded pool of workers.
// Each worker owns exactly one execution end to end and operates on its own
// copy of the task row.
type Poller struct {
	source        DueTaskSource
	dispatch      Dispatch
	collector     *metrics.Collector
	batchSize     int
	pollInterval  time.Duration
	maxConcurrent int
}

func New(source DueTaskSource, dispatch Dispatch, collector *metrics.Collector, batchSize int, pollInterval time.Duration, maxConcurrent int) *Poller {
	return &Poller{
		source:        source,
		dispatch:      dispatch,
		collector:     collector,
		batchSize:     batchSize,
		pollInterval:  pollInterval,
		maxConcurrent: maxConcurrent,
	}
}

func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	start := time.Now()
	p.collector.IncPolls()
	metrics.PollsTotal.Inc()

	tasks, err := p.source.FindDue(ctx, time.Now().UTC(), p.batchSize)
	if err != nil {
		// The store being unreachable is fatal for this tick only; the next
		// tick retries.
		log.Error().Err(err).Msg("Failed to fetch due tasks")
		return
	}

	metrics.DueBatchSize.Observe(float64(len(tasks)))
	if len(tasks) == 0 {
		p.collector.RecordPoll(start)
		return
	}

	completed, failed, skipped := p.dispatchBatch(ctx, tasks)

	p.collector.RecordPoll(start)
	log.Info().
		Int("due", len(tasks)).
		Int("completed", completed).
		Int("failed", failed).
		Int("skipped", skipped).
		Dur("duration", time.Since(start)).
		Msg("Poll completed")
}

// dispatchBatch fans the batch out over at most maxConcurrent workers. One
// task's failure never aborts the others; the dispatcher converts everything
// below the store level into a failed execution record.
func (p *Poller) dispatchBatch(ctx context.Context, tasks []models.ScheduledTask) (completed, failed, skipped int) {
	sem := make(chan struct{}, p.maxConcurrent)
	results := make(chan *dispatcher.Result, len(tasks))

	var wg sync.WaitGroup
	for i := range tasks {
		task := tasks[i]
		scheduledFor := time.Now().UTC()
		if task.NextExecutionAt != nil {
			scheduledFor = *task.NextExecutionAt
		}

		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			results <- p.dispatch.Dispatch(ctx, &task, scheduledFor, models.TriggerSchedule)
		}()
	}

	wg.Wait()
	close(results)

	for result := range results {
		switch {
		case result.Skipped:
			skipped++
		case result.Status == models.ExecutionStatusCompleted:
			completed++
		default:
			failed++
		}
	}
	return completed, failed, skipped
}

// PollOnce runs a single tick outside the loop.
func (p *Poller) PollOnce(ctx context.Context) {
	p.poll(ctx)
}
