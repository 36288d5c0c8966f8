package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fmillanjs/temponest-sub001/internal/api/dto"
	"github.com/fmillanjs/temponest-sub001/internal/api/middleware"
	"github.com/fmillanjs/temponest-sub001/internal/domain/models"
	"github.com/fmillanjs/temponest-sub001/internal/domain/repositories"
	"github.com/fmillanjs/temponest-sub001/internal/domain/services"
	"github.com/fmillanjs/temponest-sub001/internal/scheduler"
	"github.com/fmillanjs/temponest-sub001/internal/pkg/validator"
)

type TaskHandler struct {
	taskSvc *services.TaskService
	execSvc *services.ExecutionService
	trigger *scheduler.ManualTrigger
}

func NewTaskHandler(taskSvc *services.TaskService, execSvc *services.ExecutionService, trigger *scheduler.ManualTrigger) *TaskHandler {
	return &TaskHandler{taskSvc: taskSvc, execSvc: execSvc, trigger: trigger}
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.GetTenantFromContext(r.Context())
	if tenant == nil {
		dto.ErrorResponse(w, http.StatusForbidden, "tenant context required")
		return
	}

	var req dto.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		dto.ErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validator.Validate(&req); err != nil {
		dto.ValidationErrorResponse(w, err)
		return
	}

	task, err := h.taskSvc.Create(r.Context(), services.CreateTaskInput{
		TenantID:          tenant.TenantID,
		UserID:            tenant.UserID,
		Name:              req.Name,
		Description:       req.Description,
		AgentName:         req.AgentName,
		TaskPayload:       req.TaskPayload,
		ProjectID:         req.ProjectID,
		WorkflowID:        req.WorkflowID,
		Tags:              models.StringArray(req.Tags),
		ScheduleType:      req.ScheduleType,
		CronExpression:    req.CronExpression,
		IntervalSeconds:   req.IntervalSeconds,
		ScheduledTime:     req.ScheduledTime,
		Timezone:          req.Timezone,
		TimeoutSeconds:    req.TimeoutSeconds,
		MaxRetries:        req.MaxRetries,
		RetryDelaySeconds: req.RetryDelaySeconds,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidSchedule) {
			dto.ErrorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		dto.ErrorResponse(w, http.StatusInternalServerError, "failed to create task")
		return
	}

	dto.JSON(w, http.StatusCreated, dto.NewTaskResponse(task))
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.GetTenantFromContext(r.Context())
	if tenant == nil {
		dto.ErrorResponse(w, http.StatusForbidden, "tenant context required")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	opts := repositories.NewListOptions(page, perPage)

	tasks, total, err := h.taskSvc.List(r.Context(), tenant.TenantID, opts)
	if err != nil {
		dto.ErrorResponse(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}

	response := make([]dto.TaskResponse, 0, len(tasks))
	for i := range tasks {
		response = append(response, dto.NewTaskResponse(&tasks[i]))
	}

	dto.JSONWithMeta(w, http.StatusOK, response, paginationMeta(opts, total))
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenant, taskID, ok := h.resolve(w, r)
	if !ok {
		return
	}

	task, err := h.taskSvc.GetByID(r.Context(), tenant.TenantID, taskID)
	if err != nil {
		h.taskError(w, err)
		return
	}

	dto.JSON(w, http.StatusOK, dto.NewTaskResponse(task))
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenant, taskID, ok := h.resolve(w, r)
	if !ok {
		return
	}

	var req dto.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		dto.ErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validator.Validate(&req); err != nil {
		dto.ValidationErrorResponse(w, err)
		return
	}

	patch := &repositories.TaskPatch{
		Name:              req.Name,
		Description:       req.Description,
		TaskPayload:       req.TaskPayload,
		ScheduleType:      req.ScheduleType,
		CronExpression:    req.CronExpression,
		IntervalSeconds:   req.IntervalSeconds,
		ScheduledTime:     req.ScheduledTime,
		Timezone:          req.Timezone,
		TimeoutSeconds:    req.TimeoutSeconds,
		MaxRetries:        req.MaxRetries,
		RetryDelaySeconds: req.RetryDelaySeconds,
		Tags:              models.StringArray(req.Tags),
	}

	task, err := h.taskSvc.Update(r.Context(), tenant.TenantID, taskID, patch)
	if err != nil {
		if errors.Is(err, services.ErrInvalidSchedule) {
			dto.ErrorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		h.taskError(w, err)
		return
	}

	dto.JSON(w, http.StatusOK, dto.NewTaskResponse(task))
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenant, taskID, ok := h.resolve(w, r)
	if !ok {
		return
	}

	if err := h.taskSvc.Delete(r.Context(), tenant.TenantID, taskID); err != nil {
		h.taskError(w, err)
		return
	}

	dto.JSON(w, http.StatusOK, map[string]string{"message": "task deleted"})
}

func (h *TaskHandler) Pause(w http.ResponseWriter, r *http.Request) {
	tenant, taskID, ok := h.resolve(w, r)
	if !ok {
		return
	}

	if err := h.taskSvc.Pause(r.Context(), tenant.TenantID, taskID); err != nil {
		h.taskError(w, err)
		return
	}

	dto.JSON(w, http.StatusOK, map[string]string{"message": "task paused"})
}

func (h *TaskHandler) Resume(w http.ResponseWriter, r *http.Request) {
	tenant, taskID, ok := h.resolve(w, r)
	if !ok {
		return
	}

	if err := h.taskSvc.Resume(r.Context(), tenant.TenantID, taskID); err != nil {
		h.taskError(w, err)
		return
	}

	dto.JSON(w, http.StatusOK, map[string]string{"message": "task resumed"})
}

// Trigger runs the task immediately through the scheduler's dispatch path
// and blocks until the execution reaches a terminal state.
func (h *TaskHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	tenant, taskID, ok := h.resolve(w, r)
	if !ok {
		return
	}

	result, err := h.trigger.Trigger(r.Context(), tenant.TenantID, taskID)
	if err != nil {
		switch {
		case errors.Is(err, scheduler.ErrTaskNotFound):
			dto.ErrorResponse(w, http.StatusNotFound, "task not found")
		case errors.Is(err, scheduler.ErrTaskInactive):
			dto.ErrorResponse(w, http.StatusConflict, "task is not active")
		default:
			dto.ErrorResponse(w, http.StatusInternalServerError, "failed to trigger task")
		}
		return
	}

	dto.JSON(w, http.StatusOK, dto.TriggerResponse{
		TaskID:      result.TaskID.String(),
		ExecutionID: result.ExecutionID.String(),
		Status:      result.Status,
	})
}

func (h *TaskHandler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	tenant, taskID, ok := h.resolve(w, r)
	if !ok {
		return
	}

	if _, err := h.taskSvc.GetByID(r.Context(), tenant.TenantID, taskID); err != nil {
		h.taskError(w, err)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	opts := repositories.NewListOptions(page, perPage)

	executions, total, err := h.execSvc.ListByTask(r.Context(), tenant.TenantID, taskID, opts)
	if err != nil {
		dto.ErrorResponse(w, http.StatusInternalServerError, "failed to list executions")
		return
	}

	response := make([]dto.ExecutionResponse, 0, len(executions))
	for i := range executions {
		response = append(response, dto.NewExecutionResponse(&executions[i]))
	}

	dto.JSONWithMeta(w, http.StatusOK, response, paginationMeta(opts, total))
}

func (h *TaskHandler) GetExecution(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.GetTenantFromContext(r.Context())
	if tenant == nil {
		dto.ErrorResponse(w, http.StatusForbidden, "tenant context required")
		return
	}

	executionID, err := uuid.Parse(chi.URLParam(r, "executionID"))
	if err != nil {
		dto.ErrorResponse(w, http.StatusBadRequest, "invalid execution ID")
		return
	}

	execution, err := h.execSvc.GetByID(r.Context(), tenant.TenantID, executionID)
	if err != nil {
		if errors.Is(err, services.ErrExecutionNotFound) {
			dto.ErrorResponse(w, http.StatusNotFound, "execution not found")
			return
		}
		dto.ErrorResponse(w, http.StatusInternalServerError, "failed to fetch execution")
		return
	}

	dto.JSON(w, http.StatusOK, dto.NewExecutionResponse(execution))
}

func (h *TaskHandler) resolve(w http.ResponseWriter, r *http.Request) (*middleware.TenantContext, uuid.UUID, bool) {
	tenant := middleware.GetTenantFromContext(r.Context())
	if tenant == nil {
		dto.ErrorResponse(w, http.StatusForbidden, "tenant context required")
		return nil, uuid.Nil, false
	}

	taskID, err := uuid.Parse(chi.URLParam(r, "taskID"))
	if err != nil {
		dto.ErrorResponse(w, http.StatusBadRequest, "invalid task ID")
		return nil, uuid.Nil, false
	}

	return tenant, taskID, true
}

func (h *TaskHandler) taskError(w http.ResponseWriter, err error) {
	if errors.Is(err, services.ErrTaskNotFound) {
		dto.ErrorResponse(w, http.StatusNotFound, "task not found")
		return
	}
	dto.ErrorResponse(w, http.StatusInternalServerError, "internal server error")
}

func paginationMeta(opts *repositories.ListOptions, total int64) *dto.Meta {
	totalPages := int(total) / opts.Limit
	if int(total)%opts.Limit > 0 {
		totalPages++
	}
	return &dto.Meta{
		Page:       opts.Offset/opts.Limit + 1,
		PerPage:    opts.Limit,
		Total:      total,
		TotalPages: totalPages,
	}
}
