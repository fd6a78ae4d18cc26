package model

// RawQuery — поисковый запрос в том виде, в котором он пришёл от клиента.
// Все поля опциональны; пустой запрос допустим (вернёт популярные книги).
type RawQuery struct {
	// Title — подстрока названия (свободный текст)
	Title string `json:"title,omitempty"`
	// Genre — жанр (точная фильтрация)
	Genre string `json:"genre,omitempty"`
	// Language — язык: короткий код (en) или полное имя (english)
	Language string `json:"language,omitempty"`
	// AgeGroup — возрастная группа
	AgeGroup *int `json:"age_group,omitempty"`
	// YearCategory — бакет года публикации
	YearCategory string `json:"year_category,omitempty"`
	// Limit — максимальное число результатов (0 — значение по умолчанию)
	Limit int `json:"limit,omitempty"`
}

// NormalizedQuery — канонизированный запрос.
// Получается из RawQuery детерминированно: один и тот же смысловой запрос
// всегда даёт одинаковый NormalizedQuery и одинаковый Fingerprint.
type NormalizedQuery struct {
	Title        string
	Genre        string
	Language     string
	AgeGroup     *int
	YearCategory string
	Limit        int
	// Fingerprint — sha256 канонической строки запроса (hex).
	// Ключ кэша и query_hash в метаданных ответа.
	Fingerprint string
}

// IsEmpty — true, если запрос не содержит ни одного критерия поиска.
func (q NormalizedQuery) IsEmpty() bool {
	return q.Title == "" && q.Genre == "" && q.Language == "" &&
		q.AgeGroup == nil && q.YearCategory == ""
}
