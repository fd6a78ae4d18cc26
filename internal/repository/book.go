package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/bigkaa/kittylit/search-module/internal/domain/model"
)

// bookColumns — список столбцов таблицы books для SELECT-запросов.
// DRY: одно место для всех SELECT'ов.
const bookColumns = `isbn, title, author, description, genre, language,
	age_group, year_category, thumbnail_url, source, popularity, last_accessed`

// Filters — фильтры каталожного поиска.
// Пустая строка / nil = фильтр не применяется.
type Filters struct {
	// Title — подстрока названия (partial match, case-insensitive)
	Title string
	// Genre — жанр (exact match, case-insensitive)
	Genre string
	// Language — короткий код языка (exact match)
	Language string
	// AgeGroup — возрастная группа (exact match)
	AgeGroup *int
	// YearCategory — бакет года публикации (exact match)
	YearCategory string
	// Limit — количество результатов (0 — без ограничения)
	Limit int
}

// BookRepository — интерфейс доступа к каталогу books.
type BookRepository interface {
	// Search выполняет поиск книг по фильтрам.
	// Сортировка фиксирована: popularity DESC, title ASC.
	Search(ctx context.Context, f Filters) ([]*model.Book, error)
	// MostPopular возвращает топ каталога по популярности.
	MostPopular(ctx context.Context, limit int) ([]*model.Book, error)
	// Upsert вставляет книгу или обновляет существующую по isbn.
	Upsert(ctx context.Context, b *model.Book) error
	// TouchLastAccessed обновляет last_accessed и инкрементирует popularity
	// для книг, попавших в выдачу.
	TouchLastAccessed(ctx context.Context, isbns []string) error
	// DistinctFilterValues возвращает уникальные значения классификационного
	// столбца (для выпадающих списков UI). column проверяется по whitelist.
	DistinctFilterValues(ctx context.Context, column string) ([]string, error)
	// DistinctAgeGroups возвращает уникальные возрастные группы каталога
	// в возрастающем порядке.
	DistinctAgeGroups(ctx context.Context) ([]int, error)
}

// bookRepo — реализация BookRepository через pgx.
type bookRepo struct {
	db DBTX
}

// NewBookRepository создаёт репозиторий каталога.
func NewBookRepository(db DBTX) BookRepository {
	return &bookRepo{db: db}
}

// Search выполняет поиск книг с динамическими фильтрами.
// Limit <= 0 — пул кандидатов не усекается.
func (r *bookRepo) Search(ctx context.Context, f Filters) ([]*model.Book, error) {
	where, args := buildBookWhere(f, 1)

	query := fmt.Sprintf(
		`SELECT %s FROM books %s ORDER BY popularity DESC, title ASC`,
		bookColumns, where,
	)
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, f.Limit)
	}

	return r.queryBooks(ctx, query, args...)
}

// MostPopular возвращает топ каталога по популярности.
func (r *bookRepo) MostPopular(ctx context.Context, limit int) ([]*model.Book, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM books ORDER BY popularity DESC, title ASC LIMIT $1`,
		bookColumns,
	)
	return r.queryBooks(ctx, query, limit)
}

// queryBooks выполняет SELECT и сканирует строки в []*model.Book.
func (r *bookRepo) queryBooks(ctx context.Context, query string, args ...any) ([]*model.Book, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска книг: %w", err)
	}
	defer rows.Close()

	var result []*model.Book
	for rows.Next() {
		b := &model.Book{}
		if err := rows.Scan(
			&b.ISBN, &b.Title, &b.Author, &b.Description, &b.Genre, &b.Language,
			&b.AgeGroup, &b.YearCategory, &b.ThumbnailURL, &b.Source,
			&b.Popularity, &b.LastAccessed,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования книги: %w", err)
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return result, nil
}

// Upsert вставляет книгу или обновляет существующую по isbn.
// Книги без ISBN не персистятся (нет ключа конфликта) — это не ошибка.
func (r *bookRepo) Upsert(ctx context.Context, b *model.Book) error {
	if b.ISBN == "" {
		return nil
	}

	query := `
		INSERT INTO books (isbn, title, author, description, genre, language,
			age_group, year_category, thumbnail_url, source, popularity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (isbn) DO UPDATE SET
			title = EXCLUDED.title,
			author = EXCLUDED.author,
			description = COALESCE(NULLIF(EXCLUDED.description, ''), books.description),
			genre = COALESCE(NULLIF(EXCLUDED.genre, ''), books.genre),
			language = COALESCE(NULLIF(EXCLUDED.language, ''), books.language),
			age_group = COALESCE(EXCLUDED.age_group, books.age_group),
			year_category = COALESCE(NULLIF(EXCLUDED.year_category, ''), books.year_category),
			thumbnail_url = COALESCE(NULLIF(EXCLUDED.thumbnail_url, ''), books.thumbnail_url),
			updated_at = now()`

	_, err := r.db.Exec(ctx, query,
		b.ISBN, b.Title, b.Author, b.Description, b.Genre, b.Language,
		b.AgeGroup, b.YearCategory, b.ThumbnailURL, b.Source, b.Popularity,
	)
	if err != nil {
		return fmt.Errorf("ошибка сохранения книги: %w", err)
	}
	return nil
}

// TouchLastAccessed обновляет last_accessed и инкрементирует popularity.
// Пустой список — no-op.
func (r *bookRepo) TouchLastAccessed(ctx context.Context, isbns []string) error {
	if len(isbns) == 0 {
		return nil
	}

	query := `
		UPDATE books
		SET last_accessed = now(), popularity = popularity + 1
		WHERE isbn = ANY($1)`

	if _, err := r.db.Exec(ctx, query, isbns); err != nil {
		return fmt.Errorf("ошибка обновления last_accessed: %w", err)
	}
	return nil
}

// Допустимые столбцы для DistinctFilterValues (whitelist против SQL-инъекций).
var distinctColumns = map[string]bool{
	"genre":         true,
	"language":      true,
	"year_category": true,
}

// DistinctFilterValues возвращает уникальные непустые значения столбца.
func (r *bookRepo) DistinctFilterValues(ctx context.Context, column string) ([]string, error) {
	if !distinctColumns[column] {
		return nil, fmt.Errorf("недопустимый столбец для выборки значений: %s", column)
	}

	query := fmt.Sprintf(
		`SELECT DISTINCT %s FROM books WHERE %s IS NOT NULL AND %s != '' ORDER BY %s`,
		column, column, column, column,
	)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки значений фильтра: %w", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("ошибка сканирования значения: %w", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации значений: %w", err)
	}
	return values, nil
}

// DistinctAgeGroups возвращает уникальные возрастные группы каталога.
// Отдельный метод: age_group числовой, generic-выборка строк не подходит.
func (r *bookRepo) DistinctAgeGroups(ctx context.Context) ([]int, error) {
	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT age_group FROM books WHERE age_group IS NOT NULL ORDER BY age_group`,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки возрастных групп: %w", err)
	}
	defer rows.Close()

	var ages []int
	for rows.Next() {
		var age int
		if err := rows.Scan(&age); err != nil {
			return nil, fmt.Errorf("ошибка сканирования возрастной группы: %w", err)
		}
		ages = append(ages, age)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации возрастных групп: %w", err)
	}
	return ages, nil
}

// buildBookWhere строит WHERE-условие и аргументы для поиска книг.
// startArg — номер первого $-параметра (для корректной нумерации).
func buildBookWhere(f Filters, startArg int) (whereClause string, args []any) {
	var conditions []string
	argNum := startArg

	// Фильтр по названию (partial match, case-insensitive)
	if f.Title != "" {
		conditions = append(conditions, fmt.Sprintf("title ILIKE $%d", argNum))
		args = append(args, "%"+f.Title+"%")
		argNum++
	}

	// Фильтр по жанру (exact match, case-insensitive)
	if f.Genre != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(genre) = LOWER($%d)", argNum))
		args = append(args, f.Genre)
		argNum++
	}

	// Фильтр по языку (exact match, короткий код)
	if f.Language != "" {
		conditions = append(conditions, fmt.Sprintf("language = $%d", argNum))
		args = append(args, f.Language)
		argNum++
	}

	// Фильтр по возрастной группе
	if f.AgeGroup != nil {
		conditions = append(conditions, fmt.Sprintf("age_group = $%d", argNum))
		args = append(args, *f.AgeGroup)
		argNum++
	}

	// Фильтр по категории года
	if f.YearCategory != "" {
		conditions = append(conditions, fmt.Sprintf("year_category = $%d", argNum))
		args = append(args, f.YearCategory)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	return where, args
}
