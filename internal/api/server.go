package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/fmillanjs/temponest-sub001/internal/api/handlers"
	"github.com/fmillanjs/temponest-sub001/internal/api/middleware"
	"github.com/fmillanjs/temponest-sub001/internal/domain/services"
	"github.com/fmillanjs/temponest-sub001/internal/pkg/config"
	pkgredis "github.com/fmillanjs/temponest-sub001/internal/pkg/redis"
	"github.com/fmillanjs/temponest-sub001/internal/scheduler"
	"github.com/fmillanjs/temponest-sub001/internal/scheduler/metrics"
)

type Server struct {
	cfg        *config.Config
	router     *chi.Mux
	httpServer *http.Server
}

type Services struct {
	Task      *services.TaskService
	Execution *services.ExecutionService
}

func NewServer(
	cfg *config.Config,
	svc *Services,
	sched *scheduler.Scheduler,
	redisClient *pkgredis.Client,
	db *gorm.DB,
) *Server {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Logger())
	router.Use(middleware.Recoverer())
	router.Use(chimiddleware.Timeout(60 * time.Second))

	// CORS - support multiple origins (comma-separated in config)
	allowedOrigins := strings.Split(cfg.App.FrontendURL, ",")
	for i := range allowedOrigins {
		allowedOrigins[i] = strings.TrimSpace(allowedOrigins[i])
	}
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", "X-Tenant-ID", "X-User-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	router.Use(corsHandler.Handler)

	taskHandler := handlers.NewTaskHandler(svc.Task, svc.Execution, sched.Trigger())
	healthHandler := handlers.NewHealthHandler(db, redisClient.Client, sched)

	// Health & metrics
	router.Get("/health", healthHandler.Health)
	router.Get("/health/scheduler", healthHandler.SchedulerStatus)
	router.Handle("/metrics", metrics.Handler())

	// API routes
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireTenant)

		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", taskHandler.Create)
			r.Get("/", taskHandler.List)

			r.Route("/{taskID}", func(r chi.Router) {
				r.Get("/", taskHandler.Get)
				r.Patch("/", taskHandler.Update)
				r.Delete("/", taskHandler.Delete)
				r.Post("/pause", taskHandler.Pause)
				r.Post("/resume", taskHandler.Resume)
				r.Post("/trigger", taskHandler.Trigger)
				r.Get("/executions", taskHandler.ListExecutions)
			})
		})

		r.Get("/executions/{executionID}", taskHandler.GetExecution)
	})

	return &Server{
		cfg:    cfg,
		router: router,
	}
}

func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	log.Info().Str("addr", s.httpServer.Addr).Msg("Starting HTTP server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
