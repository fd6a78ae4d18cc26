package service

import (
	"testing"

	"github.com/bigkaa/kittylit/search-module/internal/domain/model"
)

// TestPostFilter_ExactGenre проверяет точный фильтр по жанру.
func TestPostFilter_ExactGenre(t *testing.T) {
	q := model.NormalizedQuery{Genre: "fantasy"}
	books := []*model.Book{
		{Title: "Keep", Genre: "fantasy"},
		{Title: "KeepCase", Genre: "Fantasy "}, // регистр и пробелы не мешают
		{Title: "Drop", Genre: "horror"},
		{Title: "KeepEmpty", Genre: ""}, // без жанра — проходит и обогащается
	}

	out := PostFilter(q, books)
	if len(out) != 3 {
		t.Fatalf("len = %d, ожидался 3", len(out))
	}
	for _, b := range out {
		if b.Title == "Drop" {
			t.Error("запись с несовпадающим жанром должна отбрасываться")
		}
	}
}

// TestPostFilter_SoftYearNeverDrops проверяет, что мягкий фильтр
// по году только помечает, но не отбрасывает записи.
func TestPostFilter_SoftYearNeverDrops(t *testing.T) {
	q := model.NormalizedQuery{YearCategory: model.Year2010To2020}
	books := []*model.Book{
		{Title: "Match", YearCategory: model.Year2010To2020},
		{Title: "Mismatch", YearCategory: model.YearBefore2000},
		{Title: "Unknown", YearCategory: ""},
	}

	out := PostFilter(q, books)
	// Ни одна запись не отброшена
	if len(out) != 3 {
		t.Fatalf("len = %d, мягкий фильтр не должен отбрасывать записи", len(out))
	}

	byTitle := map[string]*model.Book{}
	for _, b := range out {
		byTitle[b.Title] = b
	}
	if byTitle["Match"].SoftYearMismatch {
		t.Error("совпадающая категория помечена как mismatch")
	}
	if !byTitle["Mismatch"].SoftYearMismatch {
		t.Error("несовпадающая категория не помечена")
	}
	// Отсутствующая классификация совместима — без маркера
	if byTitle["Unknown"].SoftYearMismatch {
		t.Error("отсутствующая категория помечена как mismatch")
	}
}

// TestPostFilter_Enrichment проверяет обогащение пустых полей из запроса.
func TestPostFilter_Enrichment(t *testing.T) {
	q := model.NormalizedQuery{Genre: "adventure", Language: "ta"}
	books := []*model.Book{
		{Title: "Bare"},
		{Title: "HasLang", Language: "en"},
	}

	out := PostFilter(q, books)
	if out[0].Genre != "adventure" || out[0].Language != "ta" {
		t.Errorf("пустые поля не обогащены: genre=%q language=%q", out[0].Genre, out[0].Language)
	}
	// Непустое значение записи не перезаписывается
	if out[1].Language != "en" {
		t.Errorf("language записи перезаписан: %q", out[1].Language)
	}
}

// TestPostFilter_NoCriteria проверяет no-op при пустом запросе.
func TestPostFilter_NoCriteria(t *testing.T) {
	books := []*model.Book{
		{Title: "A", Genre: "x"},
		{Title: "B", YearCategory: model.YearBefore2000},
	}
	out := PostFilter(model.NormalizedQuery{}, books)
	if len(out) != 2 {
		t.Fatalf("len = %d, ожидался 2", len(out))
	}
	if out[0].Title != "A" || out[1].Title != "B" {
		t.Error("порядок записей должен сохраняться")
	}
	if out[1].SoftYearMismatch {
		t.Error("маркер выставлен без критерия года в запросе")
	}
}
