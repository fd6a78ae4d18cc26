// postfilter.go — финальная фильтрация и обогащение выдачи.
package service

import (
	"strings"

	"github.com/bigkaa/kittylit/search-module/internal/domain/model"
)

// PostFilter применяет к объединённой выдаче финальные правила:
//  1. точный фильтр по жанру (case-insensitive; пустой жанр в запросе — no-op);
//  2. мягкий фильтр по категории года: записи НЕ отбрасываются,
//     несовпадение помечается SoftYearMismatch (отсутствующая категория
//     у записи считается совместимой);
//  3. обогащение: пустые genre/language записи заполняются из запроса.
//
// Порядок записей сохраняется. Мягкий фильтр не может опустошить
// непустую выдачу.
func PostFilter(q model.NormalizedQuery, books []*model.Book) []*model.Book {
	result := make([]*model.Book, 0, len(books))

	for _, b := range books {
		// Точный фильтр по жанру
		if q.Genre != "" && b.Genre != "" &&
			!strings.EqualFold(strings.TrimSpace(b.Genre), q.Genre) {
			continue
		}

		// Мягкий фильтр по категории года — только маркер
		if q.YearCategory != "" && b.YearCategory != "" &&
			b.YearCategory != q.YearCategory {
			b.SoftYearMismatch = true
		}

		// Обогащение пропущенных классификационных полей из запроса
		if b.Genre == "" && q.Genre != "" {
			b.Genre = q.Genre
		}
		if b.Language == "" && q.Language != "" {
			b.Language = q.Language
		}

		result = append(result, b)
	}
	return result
}
