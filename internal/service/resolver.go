// resolver.go — оркестратор разрешения поискового запроса.
// Полный pipeline: нормализация → политика стартового уровня →
// строгая цепочка fallback (cache → store → live) + параллельный
// augmentation → merge/rank → post-filter → телеметрия + side-effects.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bigkaa/kittylit/search-module/internal/domain/model"
	"github.com/bigkaa/kittylit/search-module/internal/repository"
)

// LiveClient — клиент live-источника (Google Books API).
type LiveClient interface {
	Search(ctx context.Context, q model.NormalizedQuery) ([]*model.Book, error)
}

// tierOutcome — результат обращения к одному уровню.
type tierOutcome struct {
	tier    model.Tier
	books   []*model.Book
	err     error
	latency time.Duration
}

// Result — финальная выдача резолвера с телеметрией запроса.
type Result struct {
	Items []*model.Book
	Trace *model.ResolutionTrace
}

// Resolver — оркестратор цепочки fallback.
// Инварианты:
//   - порядок уровней строгий: cache → store → live, augmentation всегда;
//   - отказ уровня деградирует до пустого вклада и фиксируется в трассе;
//   - live гейтится дневной квотой (слот списывается при допуске);
//   - side-effects (write-behind, touch last_accessed) — best-effort,
//     не влияют на ответ.
type Resolver struct {
	policy      DecisionPolicy
	cache       *ResultCache
	bookRepo    repository.BookRepository
	live        LiveClient
	quota       *QuotaTracker
	augmenter   Augmenter
	combiner    Combiner
	telemetry   TelemetrySink
	sideTimeout time.Duration
	logger      *slog.Logger
}

// NewResolver создаёт оркестратор.
// sideTimeout — бюджет фоновых side-effect операций после ответа.
func NewResolver(
	policy DecisionPolicy,
	cache *ResultCache,
	bookRepo repository.BookRepository,
	live LiveClient,
	quota *QuotaTracker,
	augmenter Augmenter,
	combiner Combiner,
	telemetry TelemetrySink,
	sideTimeout time.Duration,
	logger *slog.Logger,
) *Resolver {
	return &Resolver{
		policy:      policy,
		cache:       cache,
		bookRepo:    bookRepo,
		live:        live,
		quota:       quota,
		augmenter:   augmenter,
		combiner:    combiner,
		telemetry:   telemetry,
		sideTimeout: sideTimeout,
		logger:      logger.With(slog.String("component", "resolver")),
	}
}

// Resolve разрешает сырой запрос в ранжированную выдачу.
// correlationID — сквозной идентификатор запроса (из middleware).
func (r *Resolver) Resolve(ctx context.Context, raw model.RawQuery, correlationID string) (*Result, error) {
	start := time.Now()

	q := Normalize(raw)
	trace := model.NewResolutionTrace(q.Fingerprint, correlationID)

	// Augmentation выполняется параллельно основной цепочке
	augCh := make(chan tierOutcome, 1)
	go func() {
		augCh <- r.runAugment(ctx, q)
	}()

	// Основная цепочка: cache → store → live
	primary := r.resolvePrimary(ctx, q, trace)

	aug := <-augCh
	r.recordOutcome(trace, aug)

	// Merge + rank; отказ комбинатора деградирует до конкатенации
	items := r.combine(q, trace, [][]*model.Book{primary, aug.books})

	// Post-filter: точный жанр, мягкий год, обогащение
	items = PostFilter(q, items)

	// Клиппинг только по явно запрошенному limit; без него выдача —
	// полный ранжированный список
	if q.Limit > 0 && len(items) > q.Limit {
		items = items[:q.Limit]
	}

	// Side-effects после формирования ответа: best-effort
	r.touchAccessed(items)

	total := time.Since(start)
	trace.LatenciesMS["total"] = float64(total.Microseconds()) / 1000
	trace.Counts["final"] = len(items)

	r.telemetry.Emit(trace, total, len(items))

	return &Result{Items: items, Trace: trace}, nil
}

// resolvePrimary выполняет строгую цепочку cache → store → live.
// Возвращает вклад первого непустого уровня.
func (r *Resolver) resolvePrimary(ctx context.Context, q model.NormalizedQuery, trace *model.ResolutionTrace) []*model.Book {
	// Политика определяет только стартовый уровень; ошибка политики —
	// безопасный default "store"
	startTier, err := r.policy.Decide(ctx, q)
	if err != nil {
		r.logger.Warn("Ошибка политики выбора уровня, используется store",
			slog.String("error", err.Error()),
		)
		startTier = model.TierStore
	}

	// 1. cache — только если политика выбрала cache
	if startTier == model.TierCache {
		outcome := r.runCache(q)
		r.recordOutcome(trace, outcome)
		if len(outcome.books) > 0 {
			trace.SelectSource(model.TierCache)
			return outcome.books
		}
	} else {
		trace.Add(model.TierCache, model.TraceSkipped, "политика выбрала store")
	}

	// 2. store
	outcome := r.runStore(ctx, q)
	r.recordOutcome(trace, outcome)
	if len(outcome.books) > 0 {
		trace.SelectSource(model.TierStore)
		return outcome.books
	}

	// 3. live (гейт по квоте)
	outcome = r.runLive(ctx, q, trace)
	r.recordOutcome(trace, outcome)
	if len(outcome.books) > 0 {
		trace.SelectSource(model.TierLive)
		return outcome.books
	}

	return nil
}

// runCache читает кэш по fingerprint.
func (r *Resolver) runCache(q model.NormalizedQuery) tierOutcome {
	start := time.Now()
	books, ok := r.cache.Get(q.Fingerprint)
	out := tierOutcome{tier: model.TierCache, latency: time.Since(start)}
	if ok {
		out.books = books
	}
	return out
}

// runStore выполняет exact-match поиск в каталоге.
func (r *Resolver) runStore(ctx context.Context, q model.NormalizedQuery) tierOutcome {
	start := time.Now()
	books, err := r.bookRepo.Search(ctx, repository.Filters{
		Title:        q.Title,
		Genre:        q.Genre,
		Language:     q.Language,
		AgeGroup:     q.AgeGroup,
		YearCategory: q.YearCategory,
		Limit:        q.Limit,
	})
	for _, b := range books {
		b.Provenance = model.TierStore
	}
	return tierOutcome{tier: model.TierStore, books: books, err: err, latency: time.Since(start)}
}

// runLive обращается к live-источнику под защитой дневной квоты.
// Попадание пишется в кэш синхронно (write-through) и в каталог
// фоновым write-behind.
func (r *Resolver) runLive(ctx context.Context, q model.NormalizedQuery, trace *model.ResolutionTrace) tierOutcome {
	if err := r.quota.TryAcquire(ctx); err != nil {
		if errors.Is(err, ErrQuotaExhausted) {
			trace.Add(model.TierLive, model.TraceSkipped, "квота исчерпана")
			return tierOutcome{tier: model.TierLive}
		}
		return tierOutcome{tier: model.TierLive, err: fmt.Errorf("гейт квоты: %w", err)}
	}

	start := time.Now()
	books, err := r.live.Search(ctx, q)
	out := tierOutcome{tier: model.TierLive, books: books, err: err, latency: time.Since(start)}
	if err != nil || len(books) == 0 {
		return out
	}

	// Write-through в кэш + фоновый write-behind в каталог
	r.cache.Set(q.Fingerprint, books)
	trace.Add(model.TierLive, model.TraceStored, "результат записан в кэш")
	r.writeBehind(books)

	return out
}

// runAugment выполняет дополняющий уровень.
func (r *Resolver) runAugment(ctx context.Context, q model.NormalizedQuery) tierOutcome {
	start := time.Now()
	books, err := r.augmenter.Augment(ctx, q)
	return tierOutcome{tier: model.TierAugment, books: books, err: err, latency: time.Since(start)}
}

// recordOutcome фиксирует результат уровня в трассе.
// Отказ уровня отличим от легитимно пустого результата (action=error).
func (r *Resolver) recordOutcome(trace *model.ResolutionTrace, out tierOutcome) {
	trace.Observe(out.tier, float64(out.latency.Microseconds())/1000, len(out.books))

	switch {
	case out.err != nil:
		trace.Add(out.tier, model.TraceError, out.err.Error())
		r.logger.Warn("Уровень завершился ошибкой",
			slog.String("tier", string(out.tier)),
			slog.String("error", out.err.Error()),
		)
	case len(out.books) > 0:
		trace.Add(out.tier, model.TraceHit, "")
	default:
		trace.Add(out.tier, model.TraceMiss, "")
	}
}

// combine сливает вклады уровней; отказ комбинатора деградирует
// до конкатенации.
func (r *Resolver) combine(q model.NormalizedQuery, trace *model.ResolutionTrace, tierResults [][]*model.Book) []*model.Book {
	merged, err := r.combiner.Merge(tierResults)
	if err == nil {
		var ranked []*model.Book
		ranked, err = r.combiner.Rank(q, merged)
		if err == nil {
			trace.Add(model.TierCombiner, model.TraceMerged, "")
			// Если основная цепочка пуста, источником становится augmentation
			if len(ranked) > 0 {
				trace.SelectSource(model.TierAugment)
			}
			return ranked
		}
	}

	r.logger.Warn("Отказ комбинатора, деградация до конкатенации",
		slog.String("error", err.Error()),
	)
	trace.Add(model.TierCombiner, model.TraceMerged, "деградация до конкатенации: "+err.Error())
	all := Concatenate(tierResults)
	if len(all) > 0 {
		trace.SelectSource(model.TierAugment)
	}
	return all
}

// writeBehind фоновым образом сохраняет live-результаты в каталог.
// Работает со снапшотом: мутации post-filter в потоке ответа
// не гонятся с чтением из горутины. Отказ не влияет на ответ.
func (r *Resolver) writeBehind(books []*model.Book) {
	books = model.CloneBooks(books)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.sideTimeout)
		defer cancel()

		for _, b := range books {
			if err := r.bookRepo.Upsert(ctx, b); err != nil {
				r.logger.Warn("Ошибка write-behind в каталог",
					slog.String("isbn", b.ISBN),
					slog.String("error", err.Error()),
				)
				return
			}
		}
	}()
}

// touchAccessed фоновым образом обновляет last_accessed и popularity
// для записей выдачи с ISBN. Отказ не влияет на ответ.
func (r *Resolver) touchAccessed(items []*model.Book) {
	isbns := make([]string, 0, len(items))
	for _, b := range items {
		if b.ISBN != "" {
			isbns = append(isbns, b.ISBN)
		}
	}
	if len(isbns) == 0 {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.sideTimeout)
		defer cancel()

		if err := r.bookRepo.TouchLastAccessed(ctx, isbns); err != nil {
			r.logger.Warn("Ошибка обновления last_accessed",
				slog.Int("isbns", len(isbns)),
				slog.String("error", err.Error()),
			)
		}
	}()
}
