package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fmillanjs/temponest-sub001/internal/domain/models"
	"github.com/fmillanjs/temponest-sub001/internal/domain/repositories"
	"github.com/fmillanjs/temponest-sub001/internal/scheduler/schedule"
)

var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrInvalidSchedule = errors.New("invalid schedule configuration")
)

// TaskStore is the persistence contract TaskService needs. Satisfied by
// repositories.TaskRepository.
type TaskStore interface {
	Create(ctx context.Context, task *models.ScheduledTask) error
	FindByID(ctx context.Context, tenantID, taskID uuid.UUID) (*models.ScheduledTask, error)
	FindByTenant(ctx context.Context, tenantID uuid.UUID, opts *repositories.ListOptions) ([]models.ScheduledTask, int64, error)
	ApplyPatch(ctx context.Context, tenantID, taskID uuid.UUID, patch *repositories.TaskPatch) error
	Delete(ctx context.Context, tenantID, taskID uuid.UUID) error
	SetPaused(ctx context.Context, tenantID, taskID uuid.UUID, paused bool) error
	SetNextExecution(ctx context.Context, tenantID, taskID uuid.UUID, next *time.Time) error
}

type TaskService struct {
	store      TaskStore
	calculator *schedule.Calculator
}

func NewTaskService(store TaskStore, calculator *schedule.Calculator) *TaskService {
	return &TaskService{store: store, calculator: calculator}
}

type CreateTaskInput struct {
	TenantID          uuid.UUID
	UserID            uuid.UUID
	Name              string
	Description       *string
	AgentName         string
	TaskPayload       models.JSON
	ProjectID         *string
	WorkflowID        *string
	Tags              models.StringArray
	ScheduleType      string
	CronExpression    *string
	IntervalSeconds   *int
	ScheduledTime     *time.Time
	Timezone          string
	TimeoutSeconds    int
	MaxRetries        int
	RetryDelaySeconds int
}

func (s *TaskService) Create(ctx context.Context, input CreateTaskInput) (*models.ScheduledTask, error) {
	if input.Timezone == "" {
		input.Timezone = "UTC"
	}
	if input.TimeoutSeconds <= 0 {
		input.TimeoutSeconds = 300
	}

	task := &models.ScheduledTask{
		TenantID:          input.TenantID,
		UserID:            input.UserID,
		Name:              input.Name,
		Description:       input.Description,
		AgentName:         input.AgentName,
		TaskPayload:       input.TaskPayload,
		ProjectID:         input.ProjectID,
		WorkflowID:        input.WorkflowID,
		Tags:              input.Tags,
		ScheduleType:      input.ScheduleType,
		CronExpression:    input.CronExpression,
		IntervalSeconds:   input.IntervalSeconds,
		ScheduledTime:     input.ScheduledTime,
		Timezone:          input.Timezone,
		TimeoutSeconds:    input.TimeoutSeconds,
		MaxRetries:        input.MaxRetries,
		RetryDelaySeconds: input.RetryDelaySeconds,
		IsActive:          true,
	}

	if _, err := schedule.FromTask(task); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	task.NextExecutionAt = s.calculator.First(task, time.Now().UTC())

	if err := s.store.Create(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) GetByID(ctx context.Context, tenantID, taskID uuid.UUID) (*models.ScheduledTask, error) {
	task, err := s.store.FindByID(ctx, tenantID, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

func (s *TaskService) List(ctx context.Context, tenantID uuid.UUID, opts *repositories.ListOptions) ([]models.ScheduledTask, int64, error) {
	return s.store.FindByTenant(ctx, tenantID, opts)
}

// Update applies the patch's present fields, then recomputes the next fire
// time when the schedule itself changed. The patched schedule is validated
// before anything is written.
func (s *TaskService) Update(ctx context.Context, tenantID, taskID uuid.UUID, patch *repositories.TaskPatch) (*models.ScheduledTask, error) {
	task, err := s.GetByID(ctx, tenantID, taskID)
	if err != nil {
		return nil, err
	}

	if patch.TouchesSchedule() {
		merged := *task
		applyScheduleFields(&merged, patch)
		if _, err := schedule.FromTask(&merged); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
		}
	}

	if err := s.store.ApplyPatch(ctx, tenantID, taskID, patch); err != nil {
		return nil, err
	}

	task, err = s.GetByID(ctx, tenantID, taskID)
	if err != nil {
		return nil, err
	}

	if patch.TouchesSchedule() {
		next := s.calculator.First(task, time.Now().UTC())
		if err := s.store.SetNextExecution(ctx, tenantID, taskID, next); err != nil {
			return nil, err
		}
		task.NextExecutionAt = next
	}
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, tenantID, taskID uuid.UUID) error {
	if _, err := s.GetByID(ctx, tenantID, taskID); err != nil {
		return err
	}
	return s.store.Delete(ctx, tenantID, taskID)
}

func (s *TaskService) Pause(ctx context.Context, tenantID, taskID uuid.UUID) error {
	if _, err := s.GetByID(ctx, tenantID, taskID); err != nil {
		return err
	}
	return s.store.SetPaused(ctx, tenantID, taskID, true)
}

// Resume lifts the pause and realigns recurring tasks to their next natural
// occurrence so a long pause does not produce a burst of stale fires. A
// one-shot task keeps whatever next_execution_at it had: resuming never
// reinstates a spent one-shot.
func (s *TaskService) Resume(ctx context.Context, tenantID, taskID uuid.UUID) error {
	task, err := s.GetByID(ctx, tenantID, taskID)
	if err != nil {
		return err
	}

	if task.ScheduleType != models.ScheduleTypeOnce {
		next := s.calculator.Next(task, time.Now().UTC())
		if err := s.store.SetNextExecution(ctx, tenantID, taskID, next); err != nil {
			return err
		}
	}
	return s.store.SetPaused(ctx, tenantID, taskID, false)
}

func applyScheduleFields(task *models.ScheduledTask, patch *repositories.TaskPatch) {
	if patch.ScheduleType != nil {
		task.ScheduleType = *patch.ScheduleType
	}
	if patch.CronExpression != nil {
		task.CronExpression = patch.CronExpression
	}
	if patch.IntervalSeconds != nil {
		task.IntervalSeconds = patch.IntervalSeconds
	}
	if patch.ScheduledTime != nil {
		task.ScheduledTime = patch.ScheduledTime
	}
	if patch.Timezone != nil {
		task.Timezone = *patch.Timezone
	}
}
