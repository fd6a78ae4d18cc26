// telemetry.go — публикация телеметрии разрешения запроса.
package service

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/kittylit/search-module/internal/domain/model"
)

// Prometheus-метрики резолвера.
var (
	resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sm_resolutions_total",
		Help: "Общее количество разрешённых запросов по выбранному источнику.",
	}, []string{"source"})
	tierDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sm_tier_duration_seconds",
		Help:    "Длительность обращения к уровню цепочки fallback.",
		Buckets: prometheus.DefBuckets,
	}, []string{"tier"})
	resolutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sm_resolution_duration_seconds",
		Help:    "Полная длительность разрешения запроса.",
		Buckets: prometheus.DefBuckets,
	})
	resultItems = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sm_result_items",
		Help:    "Количество записей в финальной выдаче.",
		Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
	})
)

// TelemetrySink — приёмник финализированной трассы запроса.
// Вызывается резолвером ровно один раз на запрос; ошибки приёмника
// не влияют на ответ.
type TelemetrySink interface {
	Emit(trace *model.ResolutionTrace, totalDuration time.Duration, finalCount int)
}

// slogSink — приёмник по умолчанию: структурированное лог-событие
// + Prometheus-метрики.
type slogSink struct {
	logger *slog.Logger
}

// NewTelemetrySink создаёт приёмник телеметрии по умолчанию.
func NewTelemetrySink(logger *slog.Logger) TelemetrySink {
	return &slogSink{logger: logger.With(slog.String("component", "telemetry"))}
}

// Emit публикует трассу в лог и метрики.
func (s *slogSink) Emit(trace *model.ResolutionTrace, totalDuration time.Duration, finalCount int) {
	source := string(trace.SourceSelected)
	if source == "" {
		source = "none"
	}

	resolutionsTotal.WithLabelValues(source).Inc()
	resolutionDuration.Observe(totalDuration.Seconds())
	resultItems.Observe(float64(finalCount))
	for tier, ms := range trace.LatenciesMS {
		// "total" покрывается отдельной гистограммой
		if tier == "total" {
			continue
		}
		tierDuration.WithLabelValues(tier).Observe(ms / 1000)
	}

	s.logger.Info("Запрос разрешён",
		slog.String("query_hash", trace.QueryHash),
		slog.String("correlation_id", trace.CorrelationID),
		slog.String("source_selected", source),
		slog.Int("items", finalCount),
		slog.Duration("duration", totalDuration),
		slog.Any("counts", trace.Counts),
	)
}
