// combine.go — слияние и ранжирование результатов разных уровней.
package service

import (
	"sort"
	"strings"

	"github.com/bigkaa/kittylit/search-module/internal/domain/model"
)

// Combiner — слияние результатов уровней в единую выдачу.
// Реализация обязана быть чистой (без I/O) и толерантной к provenance:
// записи разных уровней обрабатываются единообразно.
type Combiner interface {
	// Merge дедуплицирует объединение наборов. Порядок наборов значим:
	// при дубликате побеждает запись из более раннего набора.
	Merge(tierResults [][]*model.Book) ([]*model.Book, error)
	// Rank упорядочивает записи по убыванию релевантности.
	Rank(q model.NormalizedQuery, books []*model.Book) ([]*model.Book, error)
}

// Веса ранжирования.
const (
	genreMatchBonus       = 50
	languageMatchBonus    = 30
	softYearMismatchDelta = -40
)

// defaultCombiner — комбинатор по умолчанию: дедуп по ISBN
// (fallback title|author), score = popularity + бонусы за совпадения
// genre/language − штраф за несовпадение категории года с запросом.
type defaultCombiner struct{}

// NewCombiner создаёт комбинатор по умолчанию.
func NewCombiner() Combiner {
	return &defaultCombiner{}
}

// Merge — дедупликация по DedupKey, первое вхождение побеждает.
func (c *defaultCombiner) Merge(tierResults [][]*model.Book) ([]*model.Book, error) {
	seen := make(map[string]bool)
	var merged []*model.Book

	for _, tier := range tierResults {
		for _, b := range tier {
			if b == nil {
				continue
			}
			key := b.DedupKey()
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, b)
		}
	}
	return merged, nil
}

// Rank — стабильная сортировка по убыванию score; при равенстве
// сохраняется порядок Merge (ранние уровни выше).
func (c *defaultCombiner) Rank(q model.NormalizedQuery, books []*model.Book) ([]*model.Book, error) {
	ranked := make([]*model.Book, len(books))
	copy(ranked, books)

	sort.SliceStable(ranked, func(i, j int) bool {
		return score(q, ranked[i]) > score(q, ranked[j])
	})
	return ranked, nil
}

// score вычисляет релевантность записи для запроса.
// Сравнения case-insensitive: записи store сохраняют исходный регистр,
// запрос нормализован в lowercase. Штраф за год вычисляется из запроса
// напрямую, а не из маркера SoftYearMismatch: маркер проставляется
// post-filter'ом уже после ранжирования.
func score(q model.NormalizedQuery, b *model.Book) int {
	s := b.Popularity
	if q.Genre != "" && strings.EqualFold(b.Genre, q.Genre) {
		s += genreMatchBonus
	}
	if q.Language != "" && strings.EqualFold(b.Language, q.Language) {
		s += languageMatchBonus
	}
	if q.YearCategory != "" && b.YearCategory != "" && b.YearCategory != q.YearCategory {
		s += softYearMismatchDelta
	}
	return s
}

// Concatenate — деградация при отказе комбинатора: простая конкатенация
// наборов без дедупликации и ранжирования. Результат лучше, чем ошибка.
func Concatenate(tierResults [][]*model.Book) []*model.Book {
	var all []*model.Book
	for _, tier := range tierResults {
		all = append(all, tier...)
	}
	return all
}
