// Пакет service — бизнес-логика Search Module.
// normalize.go — канонизация поискового запроса и вычисление fingerprint.
package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/bigkaa/kittylit/search-module/internal/domain/model"
)

// MaxLimit — верхняя граница явно заданного limit в запросе.
const MaxLimit = 100

// languageAliases — полные имена языков → короткие коды.
// Неизвестные значения проходят как есть (lowercase).
var languageAliases = map[string]string{
	"english": "en",
	"tamil":   "ta",
	"hindi":   "hi",
}

// Normalize канонизирует запрос: trim + collapse пробелов, lowercase
// классификационных полей, маппинг языка на короткий код.
// Limit без значения остаётся 0 — выдача не усекается, контракт ответа
// это полный ранжированный список; явный limit клиппится до MaxLimit.
// Детерминированность: одинаковый смысловой запрос даёт одинаковый результат.
func Normalize(raw model.RawQuery) model.NormalizedQuery {
	q := model.NormalizedQuery{
		Title:        collapseSpaces(raw.Title),
		Genre:        strings.ToLower(collapseSpaces(raw.Genre)),
		Language:     normalizeLanguage(raw.Language),
		YearCategory: strings.ToLower(collapseSpaces(raw.YearCategory)),
		Limit:        raw.Limit,
	}

	if raw.AgeGroup != nil {
		age := *raw.AgeGroup
		q.AgeGroup = &age
	}

	switch {
	case q.Limit < 0:
		q.Limit = 0
	case q.Limit > MaxLimit:
		q.Limit = MaxLimit
	}

	q.Fingerprint = fingerprint(q)
	return q
}

// fingerprint — sha256 канонической строки "k=v|k=v|..." (hex).
// Поля в фиксированном алфавитном порядке; limit не входит в ключ кэша.
func fingerprint(q model.NormalizedQuery) string {
	age := ""
	if q.AgeGroup != nil {
		age = fmt.Sprintf("%d", *q.AgeGroup)
	}

	canonical := strings.Join([]string{
		"age=" + age,
		"genre=" + q.Genre,
		"language=" + q.Language,
		"title=" + strings.ToLower(q.Title),
		"year_category=" + q.YearCategory,
	}, "|")

	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// normalizeLanguage переводит имя языка в короткий код.
func normalizeLanguage(lang string) string {
	l := strings.ToLower(collapseSpaces(lang))
	if code, ok := languageAliases[l]; ok {
		return code
	}
	return l
}

// collapseSpaces — trim + схлопывание внутренних пробельных
// последовательностей в один пробел.
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
