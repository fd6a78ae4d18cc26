// decision.go — политика выбора стартового уровня разрешения запроса.
package service

import (
	"context"

	"github.com/bigkaa/kittylit/search-module/internal/domain/model"
)

// DecisionPolicy — политика выбора стартового уровня.
// Резолвер доверяет выбору только на первом шаге: при пустом результате
// цепочка fallback выполняется независимо от решения политики.
type DecisionPolicy interface {
	// Decide возвращает стартовый уровень для запроса.
	// Ошибка политики не фатальна — резолвер трактует её как "store".
	Decide(ctx context.Context, q model.NormalizedQuery) (model.Tier, error)
}

// CacheFirstPolicy — политика по умолчанию: cache при наличии fingerprint
// в кэше, иначе store.
type CacheFirstPolicy struct {
	cache *ResultCache
}

// NewCacheFirstPolicy создаёт политику cache-first.
func NewCacheFirstPolicy(cache *ResultCache) *CacheFirstPolicy {
	return &CacheFirstPolicy{cache: cache}
}

// Decide — cache при наличии fingerprint в кэше, иначе store.
// Проверка через Contains: probe политики не искажает метрики hit/miss.
func (p *CacheFirstPolicy) Decide(_ context.Context, q model.NormalizedQuery) (model.Tier, error) {
	if p.cache.Contains(q.Fingerprint) {
		return model.TierCache, nil
	}
	return model.TierStore, nil
}
