// handler.go — основной обработчик API Search Module.
// Объединяет health и бизнес-обработчики; делегирует в сервисный слой.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/bigkaa/kittylit/search-module/internal/service"
)

// APIHandler — основной обработчик API Search Module.
type APIHandler struct {
	health    *HealthHandler
	resolver  *service.Resolver
	dropdowns *DropdownsHandler
	logger    *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	resolver *service.Resolver,
	dropdowns *DropdownsHandler,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:    health,
		resolver:  resolver,
		dropdowns: dropdowns,
		logger:    logger.With(slog.String("component", "api_handler")),
	}
}

// --- Health endpoints (делегируются в HealthHandler) ---

// HealthLive — liveness probe.
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe.
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики.
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// Dropdowns — значения фильтров для выпадающих списков.
func (h *APIHandler) Dropdowns(w http.ResponseWriter, r *http.Request) {
	h.dropdowns.Dropdowns(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
