package dto

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/fmillanjs/temponest-sub001/internal/domain/models"
	"github.com/fmillanjs/temponest-sub001/internal/pkg/validator"
)

// Error codes for consistent API responses
const (
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeForbidden      = "FORBIDDEN"
	ErrCodeConflict       = "CONFLICT"
	ErrCodeBadRequest     = "BAD_REQUEST"
	ErrCodeInternalServer = "INTERNAL_SERVER_ERROR"
	ErrCodeServiceUnavail = "SERVICE_UNAVAILABLE"
)

type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data"`
	Error     *ErrorData  `json:"error,omitempty"`
	Meta      *Meta       `json:"meta,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type ErrorData struct {
	Code    string                      `json:"code"`
	Message string                      `json:"message"`
	Details []validator.ValidationError `json:"details,omitempty"`
}

type Meta struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func getRequestID(w http.ResponseWriter) string {
	return w.Header().Get("X-Request-ID")
}

func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := Response{
		Success:   status >= 200 && status < 300,
		Data:      data,
		RequestID: getRequestID(w),
		Timestamp: time.Now().Unix(),
	}

	_ = json.NewEncoder(w).Encode(response)
}

func JSONWithMeta(w http.ResponseWriter, status int, data interface{}, meta *Meta) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := Response{
		Success:   status >= 200 && status < 300,
		Data:      data,
		Meta:      meta,
		RequestID: getRequestID(w),
		Timestamp: time.Now().Unix(),
	}

	_ = json.NewEncoder(w).Encode(response)
}

func errorWithCode(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := Response{
		Success:   false,
		RequestID: getRequestID(w),
		Timestamp: time.Now().Unix(),
		Error: &ErrorData{
			Code:    code,
			Message: message,
		},
	}

	_ = json.NewEncoder(w).Encode(response)
}

func ErrorResponse(w http.ResponseWriter, status int, message string) {
	errorWithCode(w, status, statusToErrorCode(status), message)
}

func ValidationErrorResponse(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)

	response := Response{
		Success:   false,
		RequestID: getRequestID(w),
		Timestamp: time.Now().Unix(),
		Error: &ErrorData{
			Code:    ErrCodeValidation,
			Message: "validation failed",
			Details: validator.FormatErrors(err),
		},
	}

	_ = json.NewEncoder(w).Encode(response)
}

func statusToErrorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return ErrCodeBadRequest
	case http.StatusUnauthorized:
		return ErrCodeUnauthorized
	case http.StatusForbidden:
		return ErrCodeForbidden
	case http.StatusNotFound:
		return ErrCodeNotFound
	case http.StatusConflict:
		return ErrCodeConflict
	case http.StatusServiceUnavailable:
		return ErrCodeServiceUnavail
	default:
		return ErrCodeInternalServer
	}
}

// Resource payloads

type TaskResponse struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	Description       *string            `json:"description,omitempty"`
	AgentName         string             `json:"agent_name"`
	TaskPayload       models.JSON        `json:"task_payload"`
	ProjectID         *string            `json:"project_id,omitempty"`
	WorkflowID        *string            `json:"workflow_id,omitempty"`
	Tags              models.StringArray `json:"tags,omitempty"`
	ScheduleType      string             `json:"schedule_type"`
	CronExpression    *string            `json:"cron_expression,omitempty"`
	IntervalSeconds   *int               `json:"interval_seconds,omitempty"`
	ScheduledTime     *int64             `json:"scheduled_time,omitempty"`
	Timezone          string             `json:"timezone"`
	TimeoutSeconds    int                `json:"timeout_seconds"`
	MaxRetries        int                `json:"max_retries"`
	RetryDelaySeconds int                `json:"retry_delay_seconds"`
	IsActive          bool               `json:"is_active"`
	IsPaused          bool               `json:"is_paused"`
	NextExecutionAt   *int64             `json:"next_execution_at,omitempty"`
	TotalExecutions   int                `json:"total_executions"`
	CreatedAt         int64              `json:"created_at"`
	UpdatedAt         int64              `json:"updated_at"`
}

func NewTaskResponse(task *models.ScheduledTask) TaskResponse {
	return TaskResponse{
		ID:                task.ID.String(),
		Name:              task.Name,
		Description:       task.Description,
		AgentName:         task.AgentName,
		TaskPayload:       task.TaskPayload,
		ProjectID:         task.ProjectID,
		WorkflowID:        task.WorkflowID,
		Tags:              task.Tags,
		ScheduleType:      task.ScheduleType,
		CronExpression:    task.CronExpression,
		IntervalSeconds:   task.IntervalSeconds,
		ScheduledTime:     unixPtr(task.ScheduledTime),
		Timezone:          task.Timezone,
		TimeoutSeconds:    task.TimeoutSeconds,
		MaxRetries:        task.MaxRetries,
		RetryDelaySeconds: task.RetryDelaySeconds,
		IsActive:          task.IsActive,
		IsPaused:          task.IsPaused,
		NextExecutionAt:   unixPtr(task.NextExecutionAt),
		TotalExecutions:   task.TotalExecutions,
		CreatedAt:         task.CreatedAt.Unix(),
		UpdatedAt:         task.UpdatedAt.Unix(),
	}
}

type ExecutionResponse struct {
	ID              string      `json:"id"`
	ScheduledTaskID string      `json:"scheduled_task_id"`
	AgentName       string      `json:"agent_name"`
	ScheduledFor    int64       `json:"scheduled_for"`
	ExecutionNumber int         `json:"execution_number"`
	TriggerType     string      `json:"trigger_type"`
	Status          string      `json:"status"`
	AgentTaskID     *string     `json:"agent_task_id,omitempty"`
	StartedAt       *int64      `json:"started_at,omitempty"`
	CompletedAt     *int64      `json:"completed_at,omitempty"`
	Result          models.JSON `json:"result,omitempty"`
	TokensUsed      *int        `json:"tokens_used,omitempty"`
	CostUSD         *float64    `json:"cost_usd,omitempty"`
	DurationMs      *int64      `json:"duration_ms,omitempty"`
	ErrorMessage    *string     `json:"error_message,omitempty"`
	CreatedAt       int64       `json:"created_at"`
}

func NewExecutionResponse(execution *models.TaskExecution) ExecutionResponse {
	return ExecutionResponse{
		ID:              execution.ID.String(),
		ScheduledTaskID: execution.ScheduledTaskID.String(),
		AgentName:       execution.AgentName,
		ScheduledFor:    execution.ScheduledFor.Unix(),
		ExecutionNumber: execution.ExecutionNumber,
		TriggerType:     execution.TriggerType,
		Status:          execution.Status,
		AgentTaskID:     execution.AgentTaskID,
		StartedAt:       unixPtr(execution.StartedAt),
		CompletedAt:     unixPtr(execution.CompletedAt),
		Result:          execution.Result,
		TokensUsed:      execution.TokensUsed,
		CostUSD:         execution.CostUSD,
		DurationMs:      execution.DurationMs,
		ErrorMessage:    execution.ErrorMessage,
		CreatedAt:       execution.CreatedAt.Unix(),
	}
}

type TriggerResponse struct {
	TaskID      string `json:"task_id"`
	ExecutionID string `json:"execution_id"`
	Status      string `json:"status"`
}

func unixPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ts := t.Unix()
	return &ts
}
