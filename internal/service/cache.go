// cache.go — LRU-кэш готовых результатов поиска с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/kittylit/search-module/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sm_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш результатов.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sm_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша результатов.",
	})
)

// ResultCache — LRU-кэш готовых результатов поиска по fingerprint запроса.
// Ограничен по размеру (вытеснение LRU) и по времени жизни записи (TTL) —
// память процесса не растёт неограниченно при разнообразных запросах.
// Каждый экземпляр SM имеет собственный in-memory кэш (per-instance).
type ResultCache struct {
	cache *expirable.LRU[string, []*model.Book]
}

// NewResultCache создаёт LRU-кэш с указанным максимальным размером и TTL.
// maxSize — максимальное количество записей (наборов результатов).
// ttl — время жизни записи после добавления.
func NewResultCache(maxSize int, ttl time.Duration) *ResultCache {
	cache := expirable.NewLRU[string, []*model.Book](maxSize, nil, ttl)
	return &ResultCache{cache: cache}
}

// Get возвращает результаты из кэша по fingerprint запроса.
// Возвращает (результаты, true) при hit или (nil, false) при miss.
// Обновляет Prometheus-метрики hit/miss. Каждый hit отдаёт независимую
// копию снапшота — мутации post-filter текущего запроса не протекают
// в кэшированную запись.
func (c *ResultCache) Get(fingerprint string) ([]*model.Book, bool) {
	val, ok := c.cache.Get(fingerprint)
	if ok {
		cacheHitsTotal.Inc()
		return model.CloneBooks(val), true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет или обновляет результаты в кэше.
// Запись хранится как неизменяемый value-снапшот (копия набора):
// дальнейшие мутации переданного среза кэш не видит.
// Пустые наборы не кэшируются — отрицательный результат не фиксируем,
// чтобы следующий запрос снова прошёл полную цепочку.
func (c *ResultCache) Set(fingerprint string, books []*model.Book) {
	if len(books) == 0 {
		return
	}
	c.cache.Add(fingerprint, model.CloneBooks(books))
}

// Contains проверяет наличие непросроченной записи без обновления
// recent-ness и без учёта в метриках hit/miss (используется политикой
// выбора уровня, а не самим чтением).
func (c *ResultCache) Contains(fingerprint string) bool {
	return c.cache.Contains(fingerprint)
}

// Len возвращает текущее количество записей в кэше.
func (c *ResultCache) Len() int {
	return c.cache.Len()
}
