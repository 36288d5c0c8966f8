package handlers

import (
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/fmillanjs/temponest-sub001/internal/api/dto"
	"github.com/fmillanjs/temponest-sub001/internal/scheduler"
)

type HealthHandler struct {
	db        *gorm.DB
	redis     *redis.Client
	scheduler *scheduler.Scheduler
}

func NewHealthHandler(db *gorm.DB, redisClient *redis.Client, sched *scheduler.Scheduler) *HealthHandler {
	return &HealthHandler{db: db, redis: redisClient, scheduler: sched}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	healthy := true

	if h.db != nil {
		sqlDB, err := h.db.DB()
		if err == nil {
			err = sqlDB.PingContext(r.Context())
		}
		if err != nil {
			checks["database"] = "down"
			healthy = false
		} else {
			checks["database"] = "up"
		}
	}

	if h.redis != nil {
		if err := h.redis.Ping(r.Context()).Err(); err != nil {
			checks["redis"] = "down"
			healthy = false
		} else {
			checks["redis"] = "up"
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	dto.JSON(w, status, map[string]interface{}{
		"status":    map[bool]string{true: "healthy", false: "unhealthy"}[healthy],
		"checks":    checks,
		"timestamp": time.Now().Unix(),
	})
}

func (h *HealthHandler) SchedulerStatus(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		dto.ErrorResponse(w, http.StatusServiceUnavailable, "scheduler not running in this process")
		return
	}
	dto.JSON(w, http.StatusOK, h.scheduler.Health())
}
