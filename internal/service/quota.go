// quota.go — дневная квота обращений к live-источнику.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/kittylit/search-module/internal/repository"
)

// ErrQuotaExhausted — дневная квота live-источника исчерпана.
var ErrQuotaExhausted = errors.New("дневная квота live-источника исчерпана")

// Prometheus-метрики квоты.
var (
	quotaAcquiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sm_quota_acquired_total",
		Help: "Общее количество выданных слотов квоты live-источника.",
	})
	quotaExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sm_quota_exhausted_total",
		Help: "Общее количество отказов по исчерпанной квоте.",
	})
	quotaUsedToday = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sm_quota_used_today",
		Help: "Текущее значение дневного счётчика квоты.",
	})
)

// QuotaTracker — учёт дневной квоты обращений к live-источнику.
// Состояние персистентно (таблица api_quota), переживает рестарты
// и разделяется между экземплярами SM. Атомарность — на уровне SQL.
//
// Слот списывается при допуске запроса: неудачный вызов live-источника
// квоту не возвращает (провайдер считает и неудачные обращения).
type QuotaTracker struct {
	repo   repository.QuotaRepository
	limit  int
	logger *slog.Logger
}

// NewQuotaTracker создаёт трекер квоты.
// limit — максимум обращений к live-источнику в день.
func NewQuotaTracker(repo repository.QuotaRepository, limit int, logger *slog.Logger) *QuotaTracker {
	return &QuotaTracker{
		repo:   repo,
		limit:  limit,
		logger: logger.With(slog.String("component", "quota_tracker")),
	}
}

// TryAcquire атомарно занимает один слот дневной квоты.
// Возвращает ErrQuotaExhausted при достигнутом лимите.
func (t *QuotaTracker) TryAcquire(ctx context.Context) error {
	count, err := t.repo.TryAcquire(ctx, t.limit)
	if err != nil {
		if errors.Is(err, repository.ErrQuotaExhausted) {
			quotaExhaustedTotal.Inc()
			t.logger.Warn("Квота live-источника исчерпана",
				slog.Int("limit", t.limit),
			)
			return ErrQuotaExhausted
		}
		return fmt.Errorf("занятие слота квоты: %w", err)
	}

	quotaAcquiredTotal.Inc()
	quotaUsedToday.Set(float64(count))
	return nil
}

// UsedToday возвращает текущее значение дневного счётчика.
func (t *QuotaTracker) UsedToday(ctx context.Context) (int, error) {
	count, err := t.repo.CountToday(ctx)
	if err != nil {
		return 0, fmt.Errorf("чтение счётчика квоты: %w", err)
	}
	return count, nil
}

// Remaining возвращает остаток квоты на сегодня (не меньше 0).
func (t *QuotaTracker) Remaining(ctx context.Context) (int, error) {
	used, err := t.UsedToday(ctx)
	if err != nil {
		return 0, err
	}
	if used >= t.limit {
		return 0, nil
	}
	return t.limit - used, nil
}
