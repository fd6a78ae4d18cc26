package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// QuotaRepository — дневной счётчик обращений к live-источнику.
// Счётчик хранится в таблице api_quota (одна строка на день),
// атомарность обеспечивается на уровне SQL.
type QuotaRepository interface {
	// TryAcquire атомарно инкрементирует счётчик текущего дня,
	// если он ещё не достиг limit. Возвращает новое значение счётчика
	// или ErrQuotaExhausted.
	TryAcquire(ctx context.Context, limit int) (int, error)
	// CountToday возвращает текущее значение счётчика за сегодня.
	// Отсутствие строки — 0 (день ещё не начинался).
	CountToday(ctx context.Context) (int, error)
}

// quotaRepo — реализация QuotaRepository через pgx.
type quotaRepo struct {
	db DBTX
}

// NewQuotaRepository создаёт репозиторий квоты.
func NewQuotaRepository(db DBTX) QuotaRepository {
	return &quotaRepo{db: db}
}

// TryAcquire — атомарный check-and-increment за один SQL-запрос.
// Переход на новый день происходит естественно: CURRENT_DATE даёт
// новую строку, старые строки остаются как история.
func (r *quotaRepo) TryAcquire(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		return 0, ErrQuotaExhausted
	}

	// WHERE в DO UPDATE отфильтровывает строку при достигнутом лимите:
	// RETURNING тогда не возвращает строк — квота исчерпана.
	query := `
		INSERT INTO api_quota (day, count)
		VALUES (CURRENT_DATE, 1)
		ON CONFLICT (day) DO UPDATE
		SET count = api_quota.count + 1, updated_at = now()
		WHERE api_quota.count < $1
		RETURNING count`

	var count int
	err := r.db.QueryRow(ctx, query, limit).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrQuotaExhausted
		}
		return 0, fmt.Errorf("ошибка инкремента квоты: %w", err)
	}
	return count, nil
}

// CountToday возвращает текущее значение счётчика за сегодня.
func (r *quotaRepo) CountToday(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT count FROM api_quota WHERE day = CURRENT_DATE`,
	).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("ошибка чтения квоты: %w", err)
	}
	return count, nil
}
