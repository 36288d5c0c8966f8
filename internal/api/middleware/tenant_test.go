package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestRequireTenant(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	userID := uuid.New()

	var captured *TenantContext
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetTenantFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		tenant     string
		user       string
		wantStatus int
	}{
		{"valid headers", tenantID.String(), userID.String(), http.StatusOK},
		{"missing tenant", "", userID.String(), http.StatusUnauthorized},
		{"missing user", tenantID.String(), "", http.StatusUnauthorized},
		{"malformed tenant", "not-a-uuid", userID.String(), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			captured = nil

			req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
			if tt.tenant != "" {
				req.Header.Set("X-Tenant-ID", tt.tenant)
			}
			if tt.user != "" {
				req.Header.Set("X-User-ID", tt.user)
			}

			rec := httptest.NewRecorder()
			RequireTenant(next).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				if captured == nil || captured.TenantID != tenantID || captured.UserID != userID {
					t.Fatalf("tenant context = %+v", captured)
				}
			}
		})
	}
}

func TestGetTenantFromContextWithoutMiddleware(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := GetTenantFromContext(req.Context()); got != nil {
		t.Fatalf("tenant = %+v, want nil", got)
	}
}
