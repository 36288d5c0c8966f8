package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fmillanjs/temponest-sub001/internal/domain/models"
	"github.com/fmillanjs/temponest-sub001/internal/scheduler/dispatcher"
)

type fakeTriggerStore struct {
	tasks map[uuid.UUID]*models.ScheduledTask
}

func (f *fakeTriggerStore) FindByID(ctx context.Context, tenantID, taskID uuid.UUID) (*models.ScheduledTask, error) {
	task, ok := f.tasks[taskID]
	if !ok || task.TenantID != tenantID {
		return nil, gorm.ErrRecordNotFound
	}
	return task, nil
}

type fakeDispatch struct {
	calls []dispatchCall
}

type dispatchCall struct {
	taskID      uuid.UUID
	triggerType string
}

func (f *fakeDispatch) Dispatch(ctx context.Context, task *models.ScheduledTask, scheduledFor time.Time, triggerType string) *dispatcher.Result {
	f.calls = append(f.calls, dispatchCall{taskID: task.ID, triggerType: triggerType})
	return &dispatcher.Result{
		TaskID:      task.ID,
		ExecutionID: uuid.New(),
		Status:      models.ExecutionStatusCompleted,
	}
}

func TestTriggerDispatchesManually(t *testing.T) {
	t.Parallel()

	task := &models.ScheduledTask{ID: uuid.New(), TenantID: uuid.New(), IsActive: true}
	store := &fakeTriggerStore{tasks: map[uuid.UUID]*models.ScheduledTask{task.ID: task}}
	dispatch := &fakeDispatch{}

	trigger := NewManualTrigger(store, dispatch)
	result, err := trigger.Trigger(context.Background(), task.TenantID, task.ID)
	if err != nil {
		t.Fatalf("Trigger error: %v", err)
	}
	if result.Status != models.ExecutionStatusCompleted {
		t.Errorf("Status = %q, want completed", result.Status)
	}
	if len(dispatch.calls) != 1 {
		t.Fatalf("dispatch calls = %d, want 1", len(dispatch.calls))
	}
	if dispatch.calls[0].triggerType != models.TriggerManual {
		t.Errorf("trigger type = %q, want manual", dispatch.calls[0].triggerType)
	}
}

func TestTriggerPausedTaskStillRuns(t *testing.T) {
	t.Parallel()

	task := &models.ScheduledTask{ID: uuid.New(), TenantID: uuid.New(), IsActive: true, IsPaused: true}
	store := &fakeTriggerStore{tasks: map[uuid.UUID]*models.ScheduledTask{task.ID: task}}
	dispatch := &fakeDispatch{}

	trigger := NewManualTrigger(store, dispatch)
	if _, err := trigger.Trigger(context.Background(), task.TenantID, task.ID); err != nil {
		t.Fatalf("Trigger error: %v, paused tasks should be manually triggerable", err)
	}
	if len(dispatch.calls) != 1 {
		t.Fatalf("dispatch calls = %d, want 1", len(dispatch.calls))
	}
}

func TestTriggerUnknownTask(t *testing.T) {
	t.Parallel()

	trigger := NewManualTrigger(&fakeTriggerStore{tasks: map[uuid.UUID]*models.ScheduledTask{}}, &fakeDispatch{})

	_, err := trigger.Trigger(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("err = %v, want ErrTaskNotFound", err)
	}
}

func TestTriggerWrongTenant(t *testing.T) {
	t.Parallel()

	task := &models.ScheduledTask{ID: uuid.New(), TenantID: uuid.New(), IsActive: true}
	store := &fakeTriggerStore{tasks: map[uuid.UUID]*models.ScheduledTask{task.ID: task}}

	trigger := NewManualTrigger(store, &fakeDispatch{})
	_, err := trigger.Trigger(context.Background(), uuid.New(), task.ID)
	if !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("err = %v, want ErrTaskNotFound for another tenant's task", err)
	}
}

func TestTriggerInactiveTask(t *testing.T) {
	t.Parallel()

	task := &models.ScheduledTask{ID: uuid.New(), TenantID: uuid.New(), IsActive: false}
	store := &fakeTriggerStore{tasks: map[uuid.UUID]*models.ScheduledTask{task.ID: task}}
	dispatch := &fakeDispatch{}

	trigger := NewManualTrigger(store, dispatch)
	_, err := trigger.Trigger(context.Background(), task.TenantID, task.ID)
	if !errors.Is(err, ErrTaskInactive) {
		t.Fatalf("err = %v, want ErrTaskInactive", err)
	}
	if len(dispatch.calls) != 0 {
		t.Error("inactive task was dispatched")
	}
}
