package booksapi

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bigkaa/kittylit/search-module/internal/domain/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
}

// volumesJSON — фрагмент ответа Google Books API для тестов.
const volumesJSON = `{
	"totalItems": 2,
	"items": [
		{
			"volumeInfo": {
				"title": "The Dragon Tales",
				"authors": ["A. Writer", "B. Writer"],
				"description": "Сказки о драконах",
				"publishedDate": "2015-07-01",
				"language": "en",
				"categories": ["Fantasy"],
				"industryIdentifiers": [
					{"type": "ISBN_10", "identifier": "1234567890"},
					{"type": "ISBN_13", "identifier": "9781234567897"}
				],
				"imageLinks": {"thumbnail": "http://img/t.jpg"}
			}
		},
		{
			"volumeInfo": {
				"title": "",
				"publishedDate": "1999"
			}
		}
	]
}`

// TestClient_Search проверяет нормализацию ответа live-источника.
func TestClient_Search(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(volumesJSON))
	}))
	defer srv.Close()

	age := 8
	c := New(srv.URL, "", 40, 5*time.Second, testLogger())
	books, err := c.Search(context.Background(), model.NormalizedQuery{
		Title:    "dragon",
		Genre:    "fantasy",
		Language: "en",
		AgeGroup: &age,
	})
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	// Том без названия отбрасывается
	if len(books) != 1 {
		t.Fatalf("books count = %d, ожидался 1", len(books))
	}

	b := books[0]
	// ISBN-13 предпочтительнее ISBN-10
	if b.ISBN != "9781234567897" {
		t.Errorf("ISBN = %q, ожидался ISBN-13", b.ISBN)
	}
	if b.Author != "A. Writer, B. Writer" {
		t.Errorf("Author = %q", b.Author)
	}
	if b.Genre != "fantasy" {
		t.Errorf("Genre = %q, ожидался 'fantasy' (lowercase)", b.Genre)
	}
	if b.YearCategory != model.Year2010To2020 {
		t.Errorf("YearCategory = %q, ожидался %q", b.YearCategory, model.Year2010To2020)
	}
	if b.Source != "google_books" {
		t.Errorf("Source = %q", b.Source)
	}
	if b.Provenance != model.TierLive {
		t.Errorf("Provenance = %q, ожидался live", b.Provenance)
	}
	if b.AgeGroup == nil || *b.AgeGroup != 8 {
		t.Errorf("AgeGroup = %v, ожидался 8 (наследуется из запроса)", b.AgeGroup)
	}

	// Параметры запроса
	if !strings.Contains(gotQuery, "intitle") {
		t.Errorf("query = %q, ожидался intitle:", gotQuery)
	}
	if !strings.Contains(gotQuery, "langRestrict=en") {
		t.Errorf("query = %q, ожидался langRestrict=en", gotQuery)
	}
	if !strings.Contains(gotQuery, "maxResults=40") {
		t.Errorf("query = %q, ожидался maxResults=40", gotQuery)
	}
}

// TestClient_Search_EmptyQuery проверяет запрос по умолчанию "children".
func TestClient_Search_EmptyQuery(t *testing.T) {
	var gotQ string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQ = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(`{"totalItems":0}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "", 40, 5*time.Second, testLogger())
	books, err := c.Search(context.Background(), model.NormalizedQuery{})
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(books) != 0 {
		t.Errorf("books count = %d, ожидался 0", len(books))
	}
	if gotQ != "children" {
		t.Errorf("q = %q, ожидался 'children'", gotQ)
	}
}

// TestClient_Search_HTTPError проверяет обработку не-200 ответа.
func TestClient_Search_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(srv.URL, "", 40, 5*time.Second, testLogger())
	if _, err := c.Search(context.Background(), model.NormalizedQuery{Title: "x"}); err == nil {
		t.Fatal("ожидалась ошибка при статусе 429")
	}
}
