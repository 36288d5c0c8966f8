package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/fmillanjs/temponest-sub001/internal/api/dto"
)

// Logger emits one structured line per request. The gateway identity headers
// are logged as received; RequireTenant validates them further down the chain.
func Logger() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				event := log.Info().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("remote_addr", r.RemoteAddr).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("duration", time.Since(start)).
					Str("request_id", middleware.GetReqID(r.Context()))

				if tenantID := r.Header.Get("X-Tenant-ID"); tenantID != "" {
					event = event.Str("tenant_id", tenantID)
				}
				if userID := r.Header.Get("X-User-ID"); userID != "" {
					event = event.Str("user_id", userID)
				}

				event.Msg("request completed")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// Recoverer converts handler panics into the standard error envelope so
// clients never see a bare text/plain 500.
func Recoverer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error().
						Interface("error", err).
						Str("method", r.Method).
						Str("path", r.URL.Path).
						Str("tenant_id", r.Header.Get("X-Tenant-ID")).
						Str("request_id", middleware.GetReqID(r.Context())).
						Msg("panic recovered")

					dto.ErrorResponse(w, http.StatusInternalServerError, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
