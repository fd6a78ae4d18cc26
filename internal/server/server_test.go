package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// denyAll — middleware, отклоняющий все запросы.
func denyAll(http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
}

// TestJWTAuthWithExclusions проверяет пропуск исключённых путей
// мимо middleware.
func TestJWTAuthWithExclusions(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := JWTAuthWithExclusions(denyAll, "/health", "/metrics")(next)

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/health/live", http.StatusOK},
		{"/health/ready", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/api/v1/search", http.StatusUnauthorized},
		{"/api/v1/dropdowns", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("%s: статус = %d, ожидался %d", tt.path, rec.Code, tt.wantStatus)
			}
		})
	}
}
