// augment.go — дополняющий уровень выдачи.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bigkaa/kittylit/search-module/internal/domain/model"
	"github.com/bigkaa/kittylit/search-module/internal/repository"
)

// Augmenter — дополняющий источник кандидатов.
// Выполняется на каждом запросе параллельно основной цепочке;
// его результат добавляется аддитивно и дедуплицируется комбинатором.
type Augmenter interface {
	Augment(ctx context.Context, q model.NormalizedQuery) ([]*model.Book, error)
}

// PopularityAugmenter — реализация по умолчанию: топ каталога
// по популярности. Записи получают provenance "augment".
type PopularityAugmenter struct {
	bookRepo repository.BookRepository
	limit    int
	logger   *slog.Logger
}

// NewPopularityAugmenter создаёт augmenter на основе популярности каталога.
// limit — размер дополняющей выборки.
func NewPopularityAugmenter(bookRepo repository.BookRepository, limit int, logger *slog.Logger) *PopularityAugmenter {
	return &PopularityAugmenter{
		bookRepo: bookRepo,
		limit:    limit,
		logger:   logger.With(slog.String("component", "augmenter")),
	}
}

// Augment возвращает топ каталога по популярности.
func (a *PopularityAugmenter) Augment(ctx context.Context, _ model.NormalizedQuery) ([]*model.Book, error) {
	books, err := a.bookRepo.MostPopular(ctx, a.limit)
	if err != nil {
		return nil, fmt.Errorf("дополняющая выборка: %w", err)
	}
	for _, b := range books {
		b.Provenance = model.TierAugment
	}
	return books, nil
}
