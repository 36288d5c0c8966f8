package dto

import (
	"time"

	"github.com/fmillanjs/temponest-sub001/internal/domain/models"
)

type CreateTaskRequest struct {
	Name              string      `json:"name" validate:"required,min=1,max=255"`
	Description       *string     `json:"description" validate:"omitempty,max=2000"`
	AgentName         string      `json:"agent_name" validate:"required,min=1,max=255"`
	TaskPayload       models.JSON `json:"task_payload"`
	ProjectID         *string     `json:"project_id" validate:"omitempty,max=255"`
	WorkflowID        *string     `json:"workflow_id" validate:"omitempty,max=255"`
	Tags              []string    `json:"tags" validate:"omitempty,max=20,dive,min=1,max=64"`
	ScheduleType      string      `json:"schedule_type" validate:"required,oneof=cron interval once"`
	CronExpression    *string     `json:"cron_expression" validate:"omitempty,cron"`
	IntervalSeconds   *int        `json:"interval_seconds" validate:"omitempty,gt=0"`
	ScheduledTime     *time.Time  `json:"scheduled_time"`
	Timezone          string      `json:"timezone" validate:"omitempty,timezone_name"`
	TimeoutSeconds    int         `json:"timeout_seconds" validate:"omitempty,gt=0,lte=3600"`
	MaxRetries        int         `json:"max_retries" validate:"omitempty,gte=0,lte=10"`
	RetryDelaySeconds int         `json:"retry_delay_seconds" validate:"omitempty,gte=0"`
}

// UpdateTaskRequest carries only the fields the client wants to change.
// Absent fields are left untouched.
type UpdateTaskRequest struct {
	Name              *string     `json:"name" validate:"omitempty,min=1,max=255"`
	Description       *string     `json:"description" validate:"omitempty,max=2000"`
	TaskPayload       models.JSON `json:"task_payload"`
	Tags              []string    `json:"tags" validate:"omitempty,max=20,dive,min=1,max=64"`
	ScheduleType      *string     `json:"schedule_type" validate:"omitempty,oneof=cron interval once"`
	CronExpression    *string     `json:"cron_expression" validate:"omitempty,cron"`
	IntervalSeconds   *int        `json:"interval_seconds" validate:"omitempty,gt=0"`
	ScheduledTime     *time.Time  `json:"scheduled_time"`
	Timezone          *string     `json:"timezone" validate:"omitempty,timezone_name"`
	TimeoutSeconds    *int        `json:"timeout_seconds" validate:"omitempty,gt=0,lte=3600"`
	MaxRetries        *int        `json:"max_retries" validate:"omitempty,gte=0,lte=10"`
	RetryDelaySeconds *int        `json:"retry_delay_seconds" validate:"omitempty,gte=0"`
}
