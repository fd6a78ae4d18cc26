// Пакет booksapi — HTTP-клиент live-источника каталога (Google Books API).
// Клиент собирает поисковый запрос из нормализованных критериев,
// выполняет GET volumes и нормализует ответ в доменные модели.
package booksapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bigkaa/kittylit/search-module/internal/domain/model"
)

// Client — HTTP-клиент Google Books API.
type Client struct {
	baseURL    string
	apiKey     string
	maxResults int
	httpClient *http.Client
	logger     *slog.Logger
}

// New создаёт клиент live-источника.
// baseURL — базовый URL API (например, https://www.googleapis.com/books/v1).
// apiKey — ключ API (пустая строка — анонимные запросы).
// maxResults — ограничение числа томов в ответе (максимум API — 40).
func New(baseURL, apiKey string, maxResults int, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(slog.String("component", "books_api_client")),
	}
}

// volumesResponse — ответ GET /volumes (только используемые поля).
type volumesResponse struct {
	TotalItems int      `json:"totalItems"`
	Items      []volume `json:"items"`
}

type volume struct {
	VolumeInfo volumeInfo `json:"volumeInfo"`
}

type volumeInfo struct {
	Title               string               `json:"title"`
	Authors             []string             `json:"authors"`
	Description         string               `json:"description"`
	PublishedDate       string               `json:"publishedDate"`
	Language            string               `json:"language"`
	Categories          []string             `json:"categories"`
	IndustryIdentifiers []industryIdentifier `json:"industryIdentifiers"`
	ImageLinks          imageLinks           `json:"imageLinks"`
}

type industryIdentifier struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
}

type imageLinks struct {
	Thumbnail      string `json:"thumbnail"`
	SmallThumbnail string `json:"smallThumbnail"`
}

// Search выполняет live-поиск книг по нормализованному запросу.
// Формат запроса: GET {baseURL}/volumes?q=...&langRestrict=...&maxResults=...
func (c *Client) Search(ctx context.Context, q model.NormalizedQuery) ([]*model.Book, error) {
	reqURL := c.buildURL(q)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("создание запроса к live-источнику: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("запрос к live-источнику: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("live-источник вернул статус %d", resp.StatusCode)
	}

	var parsed volumesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("декодирование ответа live-источника: %w", err)
	}

	books := make([]*model.Book, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		b := normalizeVolume(item.VolumeInfo, q)
		if b.Title == "" {
			continue
		}
		books = append(books, b)
	}

	c.logger.Debug("live-поиск завершён",
		slog.Int("total_items", parsed.TotalItems),
		slog.Int("normalized", len(books)),
	)
	return books, nil
}

// buildURL собирает URL запроса volumes.
// Семантика q: intitle: для названия, subject: для жанра;
// пустой запрос — общий запрос "children".
func (c *Client) buildURL(q model.NormalizedQuery) string {
	var terms []string
	if q.Title != "" {
		terms = append(terms, "intitle:"+q.Title)
	}
	if q.Genre != "" {
		terms = append(terms, "subject:"+q.Genre)
	}
	if len(terms) == 0 {
		terms = append(terms, "children")
	}

	params := url.Values{}
	params.Set("q", strings.Join(terms, "+"))
	params.Set("printType", "books")
	params.Set("maxResults", strconv.Itoa(c.maxResults))
	if q.Language != "" {
		params.Set("langRestrict", q.Language)
	}
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	return c.baseURL + "/volumes?" + params.Encode()
}

// normalizeVolume преобразует том API в доменную модель.
// ISBN-13 предпочтительнее ISBN-10; год публикации сворачивается в бакет.
func normalizeVolume(vi volumeInfo, q model.NormalizedQuery) *model.Book {
	b := &model.Book{
		Title:        strings.TrimSpace(vi.Title),
		Author:       strings.Join(vi.Authors, ", "),
		Description:  vi.Description,
		Language:     vi.Language,
		YearCategory: model.YearCategoryFromYear(vi.PublishedDate),
		Source:       "google_books",
		Provenance:   model.TierLive,
	}

	if len(vi.Categories) > 0 {
		b.Genre = strings.ToLower(vi.Categories[0])
	}

	for _, id := range vi.IndustryIdentifiers {
		if id.Type == "ISBN_13" {
			b.ISBN = id.Identifier
			break
		}
		if id.Type == "ISBN_10" && b.ISBN == "" {
			b.ISBN = id.Identifier
		}
	}

	if vi.ImageLinks.Thumbnail != "" {
		b.ThumbnailURL = vi.ImageLinks.Thumbnail
	} else {
		b.ThumbnailURL = vi.ImageLinks.SmallThumbnail
	}

	// Live-источник не знает возрастную группу — наследуем из запроса
	if q.AgeGroup != nil {
		age := *q.AgeGroup
		b.AgeGroup = &age
	}

	return b
}
