package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fmillanjs/temponest-sub001/internal/domain/models"
)

// ExecutionStore is the slice of the persistence layer the lifecycle needs.
// Satisfied by repositories.ExecutionRepository.
type ExecutionStore interface {
	Create(ctx context.Context, execution *models.TaskExecution) error
	Save(ctx context.Context, execution *models.TaskExecution) error
	CountForTask(ctx context.Context, tenantID, taskID uuid.UUID) (int64, error)
}

// Lifecycle drives a single TaskExecution through
// pending -> running -> completed|failed. Each transition is persisted on its
// own, so a crash between transitions leaves an observable record rather than
// a lost one.
type Lifecycle struct {
	store ExecutionStore
}

func New(store ExecutionStore) *Lifecycle {
	return &Lifecycle{store: store}
}

// Create allocates a pending execution for the task. The execution number is
// one past the task's prior execution count, in creation order. MaxRetries is
// snapshotted from the task; the engine itself never re-dispatches.
func (l *Lifecycle) Create(ctx context.Context, task *models.ScheduledTask, scheduledFor time.Time, triggerType string) (*models.TaskExecution, error) {
	prior, err := l.store.CountForTask(ctx, task.TenantID, task.ID)
	if err != nil {
		return nil, fmt.Errorf("count prior executions: %w", err)
	}

	execution := &models.TaskExecution{
		ScheduledTaskID: task.ID,
		TenantID:        task.TenantID,
		UserID:          task.UserID,
		AgentName:       task.AgentName,
		ScheduledFor:    scheduledFor,
		ExecutionNumber: int(prior) + 1,
		TriggerType:     triggerType,
		Status:          models.ExecutionStatusPending,
		MaxRetries:      task.MaxRetries,
	}

	if err := l.store.Create(ctx, execution); err != nil {
		return nil, fmt.Errorf("create execution: %w", err)
	}
	return execution, nil
}

// MarkStarted transitions pending -> running as the remote call is sent.
func (l *Lifecycle) MarkStarted(ctx context.Context, execution *models.TaskExecution) error {
	if execution.Status != models.ExecutionStatusPending {
		return fmt.Errorf("cannot start execution in state %q", execution.Status)
	}
	now := time.Now().UTC()
	execution.Status = models.ExecutionStatusRunning
	execution.StartedAt = &now
	return l.store.Save(ctx, execution)
}

// MarkCompleted transitions running -> completed with the remote result.
func (l *Lifecycle) MarkCompleted(ctx context.Context, execution *models.TaskExecution, agentTaskID string, result models.JSON, tokensUsed int, costUSD float64, durationMs int64) error {
	if execution.Status != models.ExecutionStatusRunning {
		return fmt.Errorf("cannot complete execution in state %q", execution.Status)
	}
	now := time.Now().UTC()
	execution.Status = models.ExecutionStatusCompleted
	execution.CompletedAt = &now
	if agentTaskID != "" {
		execution.AgentTaskID = &agentTaskID
	}
	execution.Result = result
	execution.TokensUsed = &tokensUsed
	execution.CostUSD = &costUSD
	execution.DurationMs = &durationMs
	return l.store.Save(ctx, execution)
}

// MarkFailed transitions pending|running -> failed. Pending is allowed so
// failures that never reach the remote call still terminate the record.
func (l *Lifecycle) MarkFailed(ctx context.Context, execution *models.TaskExecution, message string, retryCount int) error {
	if execution.Terminal() {
		return fmt.Errorf("cannot fail execution in state %q", execution.Status)
	}
	now := time.Now().UTC()
	execution.Status = models.ExecutionStatusFailed
	execution.CompletedAt = &now
	execution.ErrorMessage = &message
	execution.RetryCount = retryCount
	if execution.StartedAt != nil {
		ms := now.Sub(*execution.StartedAt).Milliseconds()
		execution.DurationMs = &ms
	}
	return l.store.Save(ctx, execution)
}
