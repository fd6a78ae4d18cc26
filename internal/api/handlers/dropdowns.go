// dropdowns.go — обработчик GET /api/v1/dropdowns.
// Возвращает уникальные значения классификационных полей каталога
// для выпадающих списков UI.
package handlers

import (
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/kittylit/search-module/internal/api/errors"
	"github.com/bigkaa/kittylit/search-module/internal/repository"
)

// dropdownsResponse — тело ответа GET /api/v1/dropdowns.
type dropdownsResponse struct {
	Genres         []string `json:"genres"`
	Languages      []string `json:"languages"`
	AgeGroups      []int    `json:"age_groups"`
	YearCategories []string `json:"year_categories"`
}

// DropdownsHandler — обработчик значений фильтров.
type DropdownsHandler struct {
	bookRepo repository.BookRepository
	logger   *slog.Logger
}

// NewDropdownsHandler создаёт обработчик значений фильтров.
func NewDropdownsHandler(bookRepo repository.BookRepository, logger *slog.Logger) *DropdownsHandler {
	return &DropdownsHandler{
		bookRepo: bookRepo,
		logger:   logger.With(slog.String("component", "dropdowns_handler")),
	}
}

// Dropdowns — реализация GET /api/v1/dropdowns.
func (h *DropdownsHandler) Dropdowns(w http.ResponseWriter, r *http.Request) {
	resp := dropdownsResponse{
		Genres:         []string{},
		Languages:      []string{},
		AgeGroups:      []int{},
		YearCategories: []string{},
	}

	columns := []struct {
		name string
		dst  *[]string
	}{
		{"genre", &resp.Genres},
		{"language", &resp.Languages},
		{"year_category", &resp.YearCategories},
	}

	for _, col := range columns {
		values, err := h.bookRepo.DistinctFilterValues(r.Context(), col.name)
		if err != nil {
			h.logger.Error("Ошибка выборки значений фильтра",
				slog.String("column", col.name),
				slog.String("error", err.Error()),
			)
			apierrors.InternalError(w, "Внутренняя ошибка при получении значений фильтров")
			return
		}
		if values != nil {
			*col.dst = values
		}
	}

	ages, err := h.bookRepo.DistinctAgeGroups(r.Context())
	if err != nil {
		h.logger.Error("Ошибка выборки возрастных групп",
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка при получении значений фильтров")
		return
	}
	if ages != nil {
		resp.AgeGroups = ages
	}

	writeJSON(w, http.StatusOK, resp)
}
