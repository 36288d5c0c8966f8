package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/fmillanjs/temponest-sub001/internal/agent"
	"github.com/fmillanjs/temponest-sub001/internal/domain/models"
	"github.com/fmillanjs/temponest-sub001/internal/events"
	"github.com/fmillanjs/temponest-sub001/internal/scheduler/lifecycle"
	"github.com/fmillanjs/temponest-sub001/internal/scheduler/metrics"
	"github.com/fmillanjs/temponest-sub001/internal/scheduler/schedule"
)

// TaskStore is the slice of the persistence layer the dispatcher needs.
// Satisfied by repositories.TaskRepository.
type TaskStore interface {
	RecordDispatch(ctx context.Context, tenantID, taskID uuid.UUID, next *time.Time) error
}

// ExecutionCaller abstracts the agent execution client.
type ExecutionCaller interface {
	Execute(ctx context.Context, req agent.Request, timeout time.Duration) agent.Outcome
}

// Dispatcher runs one task end to end: pending execution, remote call,
// terminal state, next-execution recompute. It is the single dispatch path
// shared by the polling loop and manual triggers.
type Dispatcher struct {
	tasks      TaskStore
	lifecycle  *lifecycle.Lifecycle
	client     ExecutionCaller
	calculator *schedule.Calculator
	publisher  *events.Publisher
	collector  *metrics.Collector
	limiter    *rate.Limiter
}

func New(
	tasks TaskStore,
	lc *lifecycle.Lifecycle,
	client ExecutionCaller,
	calculator *schedule.Calculator,
	publisher *events.Publisher,
	collector *metrics.Collector,
	limiter *rate.Limiter,
) *Dispatcher {
	return &Dispatcher{
		tasks:      tasks,
		lifecycle:  lc,
		client:     client,
		calculator: calculator,
		publisher:  publisher,
		collector:  collector,
		limiter:    limiter,
	}
}

type Result struct {
	TaskID      uuid.UUID
	ExecutionID uuid.UUID
	Status      string
	Skipped     bool
	Err         error
}

// Dispatch executes the task once. Every failure below the store level is
// converted into a failed execution record; only persistence errors surface
// through Result.Err, and the caller retries those on the next tick.
func (d *Dispatcher) Dispatch(ctx context.Context, task *models.ScheduledTask, scheduledFor time.Time, triggerType string) *Result {
	result := &Result{TaskID: task.ID}

	// Global throughput cap for the polling loop. A skipped task keeps its
	// next_execution_at, so it stays due and is picked up again on a later
	// tick. Manual triggers are user-initiated and bypass the cap.
	if triggerType == models.TriggerSchedule && d.limiter != nil && !d.limiter.Allow() {
		result.Skipped = true
		d.collector.IncSkipped()
		log.Debug().Str("task_id", task.ID.String()).Msg("Dispatch rate limit hit, deferring task")
		return result
	}

	d.collector.WorkerStarted()
	metrics.ActiveWorkersGauge.Inc()
	defer func() {
		d.collector.WorkerFinished()
		metrics.ActiveWorkersGauge.Dec()
	}()

	start := time.Now()
	d.collector.IncDispatched()

	execution, err := d.lifecycle.Create(ctx, task, scheduledFor, triggerType)
	if err != nil {
		log.Error().
			Err(err).
			Str("task_id", task.ID.String()).
			Str("tenant_id", task.TenantID.String()).
			Msg("Failed to create execution record")
		result.Err = err
		return result
	}
	result.ExecutionID = execution.ID

	result.Status = d.run(ctx, task, execution, start)

	// Recompute the next fire time regardless of outcome. A failed run is
	// not paused; it simply waits for its next natural occurrence. The write
	// is detached from the caller context: a trigger whose HTTP request
	// already timed out must still advance the task.
	next := d.calculator.Next(task, time.Now().UTC())
	if err := d.tasks.RecordDispatch(context.WithoutCancel(ctx), task.TenantID, task.ID, next); err != nil {
		log.Error().
			Err(err).
			Str("task_id", task.ID.String()).
			Msg("Failed to record dispatch on task")
		result.Err = err
	}

	elapsed := time.Since(start)
	metrics.DispatchDuration.Observe(elapsed.Seconds())
	metrics.DispatchesTotal.WithLabelValues(result.Status).Inc()

	log.Info().
		Str("task_id", task.ID.String()).
		Str("execution_id", execution.ID.String()).
		Int("execution_number", execution.ExecutionNumber).
		Str("agent", task.AgentName).
		Str("status", result.Status).
		Dur("duration", elapsed).
		Msg("Task dispatched")

	return result
}

// run drives the execution to exactly one terminal state. Panics from local
// bugs are caught here and recorded as failed executions; they never reach
// the loop or other workers.
func (d *Dispatcher) run(ctx context.Context, task *models.ScheduledTask, execution *models.TaskExecution, start time.Time) (status string) {
	defer func() {
		if r := recover(); r != nil {
			status = models.ExecutionStatusFailed
			msg := fmt.Sprintf("unexpected dispatch error: %v", r)
			log.Error().
				Str("task_id", task.ID.String()).
				Str("execution_id", execution.ID.String()).
				Interface("panic", r).
				Msg("Recovered panic during dispatch")
			d.failExecution(ctx, task, execution, msg)
		}
	}()

	if err := d.lifecycle.MarkStarted(ctx, execution); err != nil {
		log.Error().Err(err).Str("execution_id", execution.ID.String()).Msg("Failed to mark execution running")
		d.failExecution(ctx, task, execution, fmt.Sprintf("failed to persist running state: %v", err))
		return models.ExecutionStatusFailed
	}
	d.publisher.ExecutionStarted(ctx, task.TenantID, task.ID, execution.ID, task.AgentName, execution.TriggerType)

	timeout := time.Duration(task.TimeoutSeconds) * time.Second
	outcome := d.client.Execute(ctx, agent.Request{
		AgentName:  task.AgentName,
		TenantID:   task.TenantID,
		UserID:     task.UserID,
		Payload:    task.TaskPayload,
		ProjectID:  task.ProjectID,
		WorkflowID: task.WorkflowID,
	}, timeout)

	switch o := outcome.(type) {
	case agent.Success:
		durationMs := time.Since(start).Milliseconds()
		if err := d.lifecycle.MarkCompleted(context.WithoutCancel(ctx), execution, o.AgentTaskID, o.Result, o.TokensUsed, o.CostUSD, durationMs); err != nil {
			log.Error().Err(err).Str("execution_id", execution.ID.String()).Msg("Failed to mark execution completed")
		}
		d.collector.IncCompleted()
		d.publisher.ExecutionCompleted(ctx, task.TenantID, task.ID, execution.ID, task.AgentName, o.TokensUsed, o.CostUSD, durationMs)
		return models.ExecutionStatusCompleted

	case agent.RemoteFailure:
		d.failExecution(ctx, task, execution, o.Message)
	case agent.Timeout:
		d.failExecution(ctx, task, execution, o.Message)
	case agent.TransportError:
		d.failExecution(ctx, task, execution, o.Message)
	default:
		d.failExecution(ctx, task, execution, fmt.Sprintf("unknown execution outcome %T", outcome))
	}
	return models.ExecutionStatusFailed
}

// failExecution persists the terminal state on a context detached from the
// caller. A canceled trigger or a shutdown must not strand the execution in
// running until stale recovery finds it.
func (d *Dispatcher) failExecution(ctx context.Context, task *models.ScheduledTask, execution *models.TaskExecution, message string) {
	ctx = context.WithoutCancel(ctx)
	if err := d.lifecycle.MarkFailed(ctx, execution, message, execution.RetryCount); err != nil {
		log.Error().Err(err).Str("execution_id", execution.ID.String()).Msg("Failed to mark execution failed")
	}
	d.collector.IncFailed()
	d.publisher.ExecutionFailed(ctx, task.TenantID, task.ID, execution.ID, task.AgentName, message)
}
