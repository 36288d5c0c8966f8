package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ScheduledTask struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID    uuid.UUID `gorm:"type:uuid;index;not null" json:"tenant_id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null" json:"user_id"`
	Name        string    `gorm:"size:200;not null" json:"name"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`

	// Which remote agent capability this task invokes and what it receives.
	AgentName   string      `gorm:"size:100;not null" json:"agent_name"`
	TaskPayload JSON        `gorm:"type:jsonb" json:"task_payload,omitempty"`
	ProjectID   *string     `gorm:"size:100" json:"project_id,omitempty"`
	WorkflowID  *string     `gorm:"size:100" json:"workflow_id,omitempty"`
	Tags        StringArray `gorm:"type:text[]" json:"tags,omitempty"`

	// Schedule configuration. Exactly one of CronExpression, IntervalSeconds,
	// ScheduledTime is meaningful, selected by ScheduleType.
	ScheduleType    string     `gorm:"size:20;not null;index" json:"schedule_type"`
	CronExpression  *string    `gorm:"size:100" json:"cron_expression,omitempty"`
	IntervalSeconds *int       `json:"interval_seconds,omitempty"`
	ScheduledTime   *time.Time `json:"scheduled_time,omitempty"`
	Timezone        string     `gorm:"size:50;default:UTC" json:"timezone"`

	// Execution policy.
	TimeoutSeconds    int `gorm:"default:300" json:"timeout_seconds"`
	MaxRetries        int `gorm:"default:0" json:"max_retries"`
	RetryDelaySeconds int `gorm:"default:60" json:"retry_delay_seconds"`

	IsActive        bool       `gorm:"default:true;index" json:"is_active"`
	IsPaused        bool       `gorm:"default:false" json:"is_paused"`
	NextExecutionAt *time.Time `gorm:"index" json:"next_execution_at,omitempty"`
	TotalExecutions int        `gorm:"default:0" json:"total_executions"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (ScheduledTask) TableName() string {
	return "scheduled_tasks"
}

// Dispatchable reports whether the task is eligible for automatic dispatch
// at the given instant.
func (t *ScheduledTask) Dispatchable(now time.Time) bool {
	return t.IsActive && !t.IsPaused &&
		t.NextExecutionAt != nil && !t.NextExecutionAt.After(now)
}
