// Пакет model — доменные модели Search Module.
// Book — каталожная запись книги (маппинг таблицы books + ответы live-источника).
package model

import (
	"strconv"
	"strings"
	"time"
)

// Tier — уровень (источник данных) цепочки fallback.
type Tier string

// Уровни в строгом порядке fallback.
const (
	// TierCache — in-memory кэш готовых результатов.
	TierCache Tier = "cache"
	// TierStore — персистентное хранилище (PostgreSQL).
	TierStore Tier = "store"
	// TierLive — внешний live-источник (Books API), ограничен дневной квотой.
	TierLive Tier = "live"
	// TierAugment — дополняющий уровень, выполняется всегда.
	TierAugment Tier = "augment"
)

// Категории года публикации (бакеты вместо числового года).
const (
	YearBefore2000  = "before_2000"
	Year2000To2010  = "2000_2010"
	Year2010To2020  = "2010_2020"
	Year2020Present = "2020_present"
)

// Book — каталожная запись книги.
// Source — происхождение данных (seed, google_books, ...),
// Provenance — уровень, который вернул запись в текущем запросе.
type Book struct {
	// ISBN — внешний уникальный идентификатор (ISBN-13 предпочтительно)
	ISBN string `json:"isbn,omitempty"`
	// Title — название книги
	Title string `json:"title"`
	// Author — автор(ы), через запятую
	Author string `json:"author,omitempty"`
	// Description — аннотация
	Description string `json:"description,omitempty"`
	// Genre — жанр (классификационное поле для фильтрации)
	Genre string `json:"genre,omitempty"`
	// Language — короткий код языка (en, ta, hi)
	Language string `json:"language,omitempty"`
	// AgeGroup — возрастная группа (nil — не задана)
	AgeGroup *int `json:"age_group,omitempty"`
	// YearCategory — бакет года публикации (см. YearCategoryFromYear)
	YearCategory string `json:"year_category,omitempty"`
	// ThumbnailURL — URL обложки
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	// Source — происхождение данных (seed, google_books)
	Source string `json:"source,omitempty"`
	// Popularity — счётчик популярности (сигнал ранжирования)
	Popularity int `json:"popularity"`
	// Provenance — уровень, предоставивший запись в этом запросе
	Provenance Tier `json:"provenance,omitempty"`
	// SoftYearMismatch — мягкое несовпадение year_category с запросом
	// (запись не отброшена, но помечена для downstream-пенализации)
	SoftYearMismatch bool `json:"soft_year_mismatch,omitempty"`
	// LastAccessed — время последнего попадания в выдачу
	LastAccessed *time.Time `json:"-"`
}

// Clone возвращает независимую копию записи.
// Используется для value-снапшотов: кэш и фоновые side-effects работают
// с копиями, мутации post-filter текущего запроса их не затрагивают.
func (b *Book) Clone() *Book {
	c := *b
	if b.AgeGroup != nil {
		age := *b.AgeGroup
		c.AgeGroup = &age
	}
	if b.LastAccessed != nil {
		ts := *b.LastAccessed
		c.LastAccessed = &ts
	}
	return &c
}

// CloneBooks возвращает независимую копию набора записей.
func CloneBooks(books []*Book) []*Book {
	if books == nil {
		return nil
	}
	cloned := make([]*Book, len(books))
	for i, b := range books {
		cloned[i] = b.Clone()
	}
	return cloned
}

// DedupKey возвращает ключ дедупликации записи для Combiner.
// ISBN приоритетен; для записей без ISBN — title|author (case-insensitive).
func (b *Book) DedupKey() string {
	if b.ISBN != "" {
		return "isbn:" + b.ISBN
	}
	return "ta:" + strings.ToLower(strings.TrimSpace(b.Title)) + "|" +
		strings.ToLower(strings.TrimSpace(b.Author))
}

// YearCategoryFromYear преобразует сырой год публикации в бакет year_category.
// Принимает строку вида "2015" или "2015-07-01" (берётся первый сегмент).
// Невалидное значение — пустая строка (категория неизвестна).
func YearCategoryFromYear(raw string) string {
	if raw == "" {
		return ""
	}
	yearStr, _, _ := strings.Cut(strings.TrimSpace(raw), "-")
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return ""
	}

	switch {
	case year < 2000:
		return YearBefore2000
	case year <= 2010:
		return Year2000To2010
	case year <= 2020:
		return Year2010To2020
	default:
		return Year2020Present
	}
}
