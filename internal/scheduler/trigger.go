package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fmillanjs/temponest-sub001/internal/domain/models"
	"github.com/fmillanjs/temponest-sub001/internal/scheduler/dispatcher"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrTaskInactive = errors.New("task is not active")
)

// TriggerTaskStore is the slice of the persistence layer the trigger needs.
// Satisfied by repositories.TaskRepository.
type TriggerTaskStore interface {
	FindByID(ctx context.Context, tenantID, taskID uuid.UUID) (*models.ScheduledTask, error)
}

// Dispatch abstracts the shared dispatch path.
type Dispatch interface {
	Dispatch(ctx context.Context, task *models.ScheduledTask, scheduledFor time.Time, triggerType string) *dispatcher.Result
}

// ManualTrigger executes one task immediately through the same dispatch path
// the polling loop uses, skipping the due check. A paused task can be
// triggered; only is_active gates it. Concurrent triggers of the same task
// are intentionally independent: each creates and completes its own
// execution.
type ManualTrigger struct {
	tasks    TriggerTaskStore
	dispatch Dispatch
}

func NewManualTrigger(tasks TriggerTaskStore, dispatch Dispatch) *ManualTrigger {
	return &ManualTrigger{tasks: tasks, dispatch: dispatch}
}

// Trigger runs the task now. The next automatic fire time is recomputed by
// the normal post-dispatch path; the trigger itself never rewrites it.
func (t *ManualTrigger) Trigger(ctx context.Context, tenantID, taskID uuid.UUID) (*dispatcher.Result, error) {
	task, err := t.tasks.FindByID(ctx, tenantID, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("fetch task: %w", err)
	}
	if !task.IsActive {
		return nil, ErrTaskInactive
	}

	result := t.dispatch.Dispatch(ctx, task, time.Now().UTC(), models.TriggerManual)
	if result.Err != nil {
		return result, result.Err
	}
	return result, nil
}
