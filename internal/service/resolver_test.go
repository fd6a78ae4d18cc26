package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bigkaa/kittylit/search-module/internal/domain/model"
	"github.com/bigkaa/kittylit/search-module/internal/repository"
)

// --- Моки ---

// mockBookRepo — мок BookRepository для unit-тестов.
type mockBookRepo struct {
	searchFn      func(ctx context.Context, f repository.Filters) ([]*model.Book, error)
	mostPopularFn func(ctx context.Context, limit int) ([]*model.Book, error)
	upsertFn      func(ctx context.Context, b *model.Book) error
	touchFn       func(ctx context.Context, isbns []string) error
	distinctFn    func(ctx context.Context, column string) ([]string, error)
}

func (m *mockBookRepo) Search(ctx context.Context, f repository.Filters) ([]*model.Book, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, f)
	}
	return nil, nil
}

func (m *mockBookRepo) MostPopular(ctx context.Context, limit int) ([]*model.Book, error) {
	if m.mostPopularFn != nil {
		return m.mostPopularFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockBookRepo) Upsert(ctx context.Context, b *model.Book) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, b)
	}
	return nil
}

func (m *mockBookRepo) TouchLastAccessed(ctx context.Context, isbns []string) error {
	if m.touchFn != nil {
		return m.touchFn(ctx, isbns)
	}
	return nil
}

func (m *mockBookRepo) DistinctFilterValues(ctx context.Context, column string) ([]string, error) {
	if m.distinctFn != nil {
		return m.distinctFn(ctx, column)
	}
	return nil, nil
}

func (m *mockBookRepo) DistinctAgeGroups(_ context.Context) ([]int, error) {
	return nil, nil
}

// mockLive — мок live-клиента.
type mockLive struct {
	searchFn func(ctx context.Context, q model.NormalizedQuery) ([]*model.Book, error)
	calls    atomic.Int64
}

func (m *mockLive) Search(ctx context.Context, q model.NormalizedQuery) ([]*model.Book, error) {
	m.calls.Add(1)
	if m.searchFn != nil {
		return m.searchFn(ctx, q)
	}
	return nil, nil
}

// nopSink — приёмник телеметрии, считающий вызовы Emit.
type nopSink struct {
	emits atomic.Int64
}

func (s *nopSink) Emit(_ *model.ResolutionTrace, _ time.Duration, _ int) {
	s.emits.Add(1)
}

// failingCombiner — комбинатор, всегда возвращающий ошибку.
type failingCombiner struct{}

func (failingCombiner) Merge(_ [][]*model.Book) ([]*model.Book, error) {
	return nil, errors.New("отказ комбинатора")
}

func (failingCombiner) Rank(_ model.NormalizedQuery, books []*model.Book) ([]*model.Book, error) {
	return books, nil
}

// newTestResolver собирает резолвер с переданными моками.
func newTestResolver(repo repository.BookRepository, live LiveClient, cache *ResultCache, quotaLimit int, comb Combiner) (*Resolver, *nopSink) {
	if cache == nil {
		cache = NewResultCache(100, time.Minute)
	}
	if comb == nil {
		comb = NewCombiner()
	}
	sink := &nopSink{}
	quota := NewQuotaTracker(&fakeQuotaRepo{}, quotaLimit, testLogger())
	resolver := NewResolver(
		NewCacheFirstPolicy(cache),
		cache,
		repo,
		live,
		quota,
		NewPopularityAugmenter(repo, 10, testLogger()),
		comb,
		sink,
		time.Second,
		testLogger(),
	)
	return resolver, sink
}

// --- Тесты Resolver ---

// TestResolver_StoreHit проверяет остановку цепочки на уровне store:
// live не вызывается, source_selected = store.
func TestResolver_StoreHit(t *testing.T) {
	repo := &mockBookRepo{
		searchFn: func(_ context.Context, f repository.Filters) ([]*model.Book, error) {
			if f.Genre != "fantasy" {
				t.Errorf("Genre = %q, ожидался 'fantasy'", f.Genre)
			}
			return []*model.Book{{ISBN: "1", Title: "Stored", Genre: "fantasy"}}, nil
		},
	}
	live := &mockLive{}
	resolver, sink := newTestResolver(repo, live, nil, 10, nil)

	res, err := resolver.Resolve(context.Background(), model.RawQuery{Genre: "Fantasy"}, "corr-1")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if res.Trace.SourceSelected != model.TierStore {
		t.Errorf("source_selected = %q, ожидался store", res.Trace.SourceSelected)
	}
	if live.calls.Load() != 0 {
		t.Errorf("live вызван %d раз при попадании в store", live.calls.Load())
	}
	if len(res.Items) != 1 || res.Items[0].Title != "Stored" {
		t.Errorf("неожиданная выдача: %+v", res.Items)
	}
	if res.Trace.CorrelationID != "corr-1" {
		t.Errorf("correlation_id = %q", res.Trace.CorrelationID)
	}
	if sink.emits.Load() != 1 {
		t.Errorf("телеметрия отправлена %d раз, ожидался 1", sink.emits.Load())
	}
}

// TestResolver_LiveThenCache проверяет сценарий live→cache:
// первый запрос идёт в live и кэширует результат, второй идентичный
// запрос обслуживается из кэша без второго live-вызова.
func TestResolver_LiveThenCache(t *testing.T) {
	repo := &mockBookRepo{} // store всегда пуст
	live := &mockLive{
		searchFn: func(_ context.Context, _ model.NormalizedQuery) ([]*model.Book, error) {
			return []*model.Book{{ISBN: "9780000000001", Title: "Live Book", Provenance: model.TierLive}}, nil
		},
	}
	cache := NewResultCache(100, time.Minute)
	resolver, _ := newTestResolver(repo, live, cache, 10, nil)
	ctx := context.Background()
	raw := model.RawQuery{Title: "dragon"}

	// Первый запрос — live
	res1, err := resolver.Resolve(ctx, raw, "corr-a")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if res1.Trace.SourceSelected != model.TierLive {
		t.Fatalf("source_selected = %q, ожидался live", res1.Trace.SourceSelected)
	}
	if live.calls.Load() != 1 {
		t.Fatalf("live вызван %d раз, ожидался 1", live.calls.Load())
	}

	// Второй идентичный запрос — из кэша
	res2, err := resolver.Resolve(ctx, raw, "corr-b")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if res2.Trace.SourceSelected != model.TierCache {
		t.Errorf("source_selected = %q, ожидался cache", res2.Trace.SourceSelected)
	}
	if live.calls.Load() != 1 {
		t.Errorf("live вызван %d раз, ожидался 1 (второй запрос из кэша)", live.calls.Load())
	}
}

// TestResolver_QuotaExhausted проверяет сценарий исчерпанной квоты:
// live пропускается, выдача формируется из augmentation.
func TestResolver_QuotaExhausted(t *testing.T) {
	repo := &mockBookRepo{
		mostPopularFn: func(_ context.Context, _ int) ([]*model.Book, error) {
			return []*model.Book{{ISBN: "2", Title: "Popular", Popularity: 99}}, nil
		},
	}
	live := &mockLive{
		searchFn: func(_ context.Context, _ model.NormalizedQuery) ([]*model.Book, error) {
			return []*model.Book{{ISBN: "3", Title: "Live"}}, nil
		},
	}
	// Квота 0 — live недоступен с первого запроса
	resolver, _ := newTestResolver(repo, live, nil, 0, nil)

	res, err := resolver.Resolve(context.Background(), model.RawQuery{Title: "x"}, "corr-q")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if live.calls.Load() != 0 {
		t.Errorf("live вызван %d раз при исчерпанной квоте", live.calls.Load())
	}
	if res.Trace.SourceSelected == model.TierLive {
		t.Error("source_selected = live при исчерпанной квоте")
	}
	if res.Trace.Counts[string(model.TierLive)] != 0 {
		t.Errorf("counts[live] = %d, ожидался 0", res.Trace.Counts[string(model.TierLive)])
	}
	// Выдача сформирована из augmentation
	if len(res.Items) != 1 || res.Items[0].Title != "Popular" {
		t.Errorf("неожиданная выдача: %+v", res.Items)
	}
	if res.Trace.SourceSelected != model.TierAugment {
		t.Errorf("source_selected = %q, ожидался augment", res.Trace.SourceSelected)
	}

	// В трассе зафиксирован пропуск live по квоте
	var skipped bool
	for _, s := range res.Trace.Steps {
		if s.Tier == model.TierLive && s.Action == model.TraceSkipped {
			skipped = true
		}
	}
	if !skipped {
		t.Error("пропуск live по квоте не зафиксирован в трассе")
	}
}

// TestResolver_TierErrorDegrades проверяет деградацию при отказе уровня:
// ошибка store не фатальна, цепочка продолжается в live.
func TestResolver_TierErrorDegrades(t *testing.T) {
	repo := &mockBookRepo{
		searchFn: func(_ context.Context, _ repository.Filters) ([]*model.Book, error) {
			return nil, errors.New("соединение с БД потеряно")
		},
	}
	live := &mockLive{
		searchFn: func(_ context.Context, _ model.NormalizedQuery) ([]*model.Book, error) {
			return []*model.Book{{ISBN: "4", Title: "Live Rescue"}}, nil
		},
	}
	resolver, _ := newTestResolver(repo, live, nil, 10, nil)

	res, err := resolver.Resolve(context.Background(), model.RawQuery{Title: "y"}, "corr-e")
	if err != nil {
		t.Fatalf("ошибка уровня должна деградировать, получено: %v", err)
	}
	if res.Trace.SourceSelected != model.TierLive {
		t.Errorf("source_selected = %q, ожидался live", res.Trace.SourceSelected)
	}

	// Ошибка store зафиксирована в трассе (отличима от пустого результата)
	var storeErr bool
	for _, s := range res.Trace.Steps {
		if s.Tier == model.TierStore && s.Action == model.TraceError {
			storeErr = true
		}
	}
	if !storeErr {
		t.Error("ошибка store не зафиксирована в трассе")
	}
}

// TestResolver_CombinerDegradesToConcat проверяет деградацию слияния
// до конкатенации при отказе комбинатора.
func TestResolver_CombinerDegradesToConcat(t *testing.T) {
	repo := &mockBookRepo{
		searchFn: func(_ context.Context, _ repository.Filters) ([]*model.Book, error) {
			return []*model.Book{{ISBN: "5", Title: "Stored"}}, nil
		},
		mostPopularFn: func(_ context.Context, _ int) ([]*model.Book, error) {
			return []*model.Book{{ISBN: "5", Title: "Stored"}}, nil // дубликат
		},
	}
	resolver, _ := newTestResolver(repo, &mockLive{}, nil, 10, failingCombiner{})

	res, err := resolver.Resolve(context.Background(), model.RawQuery{Title: "z"}, "corr-c")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	// Конкатенация без дедупликации: обе копии в выдаче
	if len(res.Items) != 2 {
		t.Errorf("len = %d, ожидался 2 (конкатенация)", len(res.Items))
	}
}

// TestResolver_AugmentationOnly проверяет выдачу только из augmentation
// при пустых основных уровнях.
func TestResolver_AugmentationOnly(t *testing.T) {
	repo := &mockBookRepo{
		mostPopularFn: func(_ context.Context, _ int) ([]*model.Book, error) {
			return []*model.Book{{ISBN: "6", Title: "Top"}}, nil
		},
	}
	live := &mockLive{} // пустой ответ
	resolver, _ := newTestResolver(repo, live, nil, 10, nil)

	res, err := resolver.Resolve(context.Background(), model.RawQuery{Title: "nothing"}, "corr-g")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(res.Items) != 1 || res.Items[0].Title != "Top" {
		t.Errorf("неожиданная выдача: %+v", res.Items)
	}
	if res.Trace.SourceSelected != model.TierAugment {
		t.Errorf("source_selected = %q, ожидался augment", res.Trace.SourceSelected)
	}
	if res.Items[0].Provenance != model.TierAugment {
		t.Errorf("provenance = %q, ожидался augment", res.Items[0].Provenance)
	}
}

// TestResolver_RepeatQueryStable проверяет детерминизм повторного запроса:
// идентичный запрос, обслуженный из кэша, даёт тот же порядок выдачи,
// а мутации post-filter (обогащение, маркер года) не протекают
// в кэшированный снапшот.
func TestResolver_RepeatQueryStable(t *testing.T) {
	repo := &mockBookRepo{} // store всегда пуст
	live := &mockLive{
		searchFn: func(_ context.Context, _ model.NormalizedQuery) ([]*model.Book, error) {
			return []*model.Book{
				{ISBN: "1", Title: "Recent", YearCategory: model.Year2010To2020},
				{ISBN: "2", Title: "Old", YearCategory: model.YearBefore2000, Popularity: 5},
			}, nil
		},
	}
	cache := NewResultCache(100, time.Minute)
	resolver, _ := newTestResolver(repo, live, cache, 10, nil)
	ctx := context.Background()
	raw := model.RawQuery{Genre: "fantasy", YearCategory: "2010_2020"}

	res1, err := resolver.Resolve(ctx, raw, "corr-1")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	res2, err := resolver.Resolve(ctx, raw, "corr-2")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if res2.Trace.SourceSelected != model.TierCache {
		t.Fatalf("source_selected = %q, ожидался cache", res2.Trace.SourceSelected)
	}

	// Порядок выдачи идентичен между проходами
	if len(res1.Items) != len(res2.Items) {
		t.Fatalf("len: %d != %d", len(res1.Items), len(res2.Items))
	}
	for i := range res1.Items {
		if res1.Items[i].ISBN != res2.Items[i].ISBN {
			t.Errorf("items[%d]: %q != %q — порядок повторного запроса нестабилен",
				i, res1.Items[i].ISBN, res2.Items[i].ISBN)
		}
	}

	// Штраф за несовпадение года применён уже на первом проходе
	if res1.Items[0].Title != "Recent" {
		t.Errorf("items[0] = %q, штраф за год не применён при ранжировании", res1.Items[0].Title)
	}

	// Кэшированный снапшот не затронут мутациями post-filter
	cached, ok := cache.Get(Normalize(raw).Fingerprint)
	if !ok {
		t.Fatal("ожидался cache hit по fingerprint")
	}
	for _, b := range cached {
		if b.Genre != "" || b.SoftYearMismatch {
			t.Errorf("кэшированная запись мутирована post-filter'ом: %+v", b)
		}
	}

	// В ответе обогащение и маркер присутствуют
	if res2.Items[0].Genre != "fantasy" {
		t.Errorf("Genre = %q, ожидалось обогащение из запроса", res2.Items[0].Genre)
	}
	if !res2.Items[1].SoftYearMismatch {
		t.Error("маркер несовпадения года не проставлен в ответе")
	}
}

// TestResolver_NoLimitFullList проверяет, что без явного limit выдача
// не усекается: контракт ответа — полный ранжированный список.
func TestResolver_NoLimitFullList(t *testing.T) {
	repo := &mockBookRepo{
		searchFn: func(_ context.Context, f repository.Filters) ([]*model.Book, error) {
			if f.Limit != 0 {
				t.Errorf("Filters.Limit = %d, без явного limit ожидался 0", f.Limit)
			}
			books := make([]*model.Book, 30)
			for i := range books {
				books[i] = &model.Book{ISBN: string(rune('a' + i)), Title: "B"}
			}
			return books, nil
		},
	}
	resolver, _ := newTestResolver(repo, &mockLive{}, nil, 10, nil)

	res, err := resolver.Resolve(context.Background(), model.RawQuery{Title: "b"}, "corr-f")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(res.Items) != 30 {
		t.Errorf("len = %d, ожидался полный список из 30", len(res.Items))
	}
}

// TestResolver_LimitApplied проверяет клиппинг выдачи до явного limit запроса.
func TestResolver_LimitApplied(t *testing.T) {
	repo := &mockBookRepo{
		searchFn: func(_ context.Context, _ repository.Filters) ([]*model.Book, error) {
			books := make([]*model.Book, 30)
			for i := range books {
				books[i] = &model.Book{ISBN: string(rune('a' + i)), Title: "B"}
			}
			return books, nil
		},
	}
	resolver, _ := newTestResolver(repo, &mockLive{}, nil, 10, nil)

	res, err := resolver.Resolve(context.Background(), model.RawQuery{Title: "b", Limit: 5}, "corr-l")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(res.Items) != 5 {
		t.Errorf("len = %d, ожидался клиппинг до 5", len(res.Items))
	}
}
