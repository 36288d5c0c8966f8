package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/fmillanjs/temponest-sub001/internal/api/dto"
)

type contextKey string

const TenantContextKey contextKey = "tenant"

// TenantContext carries the caller identity resolved by the API gateway.
// Authentication itself happens upstream; this service trusts the
// X-Tenant-ID and X-User-ID headers the gateway injects.
type TenantContext struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
}

func RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := uuid.Parse(r.Header.Get("X-Tenant-ID"))
		if err != nil {
			dto.ErrorResponse(w, http.StatusUnauthorized, "missing or invalid X-Tenant-ID header")
			return
		}

		userID, err := uuid.Parse(r.Header.Get("X-User-ID"))
		if err != nil {
			dto.ErrorResponse(w, http.StatusUnauthorized, "missing or invalid X-User-ID header")
			return
		}

		ctx := context.WithValue(r.Context(), TenantContextKey, &TenantContext{
			TenantID: tenantID,
			UserID:   userID,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetTenantFromContext(ctx context.Context) *TenantContext {
	tenant, ok := ctx.Value(TenantContextKey).(*TenantContext)
	if !ok {
		return nil
	}
	return tenant
}
