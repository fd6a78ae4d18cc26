// search.go — обработчик POST /api/v1/search.
// Десериализация запроса, валидация, вызов резолвера, сериализация
// ответа {items, metadata}.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/kittylit/search-module/internal/api/errors"
	"github.com/bigkaa/kittylit/search-module/internal/api/middleware"
	"github.com/bigkaa/kittylit/search-module/internal/domain/model"
)

// searchResponse — тело ответа POST /api/v1/search.
type searchResponse struct {
	Items    []*model.Book  `json:"items"`
	Metadata searchMetadata `json:"metadata"`
}

// searchMetadata — метаданные разрешения запроса.
type searchMetadata struct {
	QueryHash      string             `json:"query_hash"`
	CorrelationID  string             `json:"correlation_id"`
	DecisionTrace  []model.TraceStep  `json:"decision_trace"`
	LatenciesMS    map[string]float64 `json:"latencies_ms"`
	Counts         map[string]int     `json:"counts"`
	SourceSelected string             `json:"source_selected"`
}

// Search — реализация POST /api/v1/search.
func (h *APIHandler) Search(w http.ResponseWriter, r *http.Request) {
	// Десериализация запроса
	var raw model.RawQuery
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}

	// Валидация параметров
	if raw.AgeGroup != nil && (*raw.AgeGroup < 0 || *raw.AgeGroup > 18) {
		apierrors.ValidationError(w, "age_group: допустимый диапазон 0-18")
		return
	}
	if raw.Limit < 0 {
		apierrors.ValidationError(w, "limit не может быть отрицательным")
		return
	}

	correlationID := middleware.CorrelationID(r.Context())

	// Вызов резолвера
	result, err := h.resolver.Resolve(r.Context(), raw, correlationID)
	if err != nil {
		h.logger.Error("Ошибка разрешения запроса",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка при поиске книг")
		return
	}

	// Items всегда массив, не null
	items := result.Items
	if items == nil {
		items = []*model.Book{}
	}

	resp := searchResponse{
		Items: items,
		Metadata: searchMetadata{
			QueryHash:      result.Trace.QueryHash,
			CorrelationID:  result.Trace.CorrelationID,
			DecisionTrace:  result.Trace.Steps,
			LatenciesMS:    result.Trace.LatenciesMS,
			Counts:         result.Trace.Counts,
			SourceSelected: string(result.Trace.SourceSelected),
		},
	}

	writeJSON(w, http.StatusOK, resp)
}
