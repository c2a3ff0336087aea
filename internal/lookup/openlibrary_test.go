package lookup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOpenLibraryLookupMultiHop(t *testing.T) {
	setupTest(t)
	store := newMemStore()

	mux := http.NewServeMux()
	mux.HandleFunc("/isbn/9780441013593.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"title": "Dune",
			"number_of_pages": 412,
			"isbn_13": ["9780441013593"],
			"languages": [{"key": "/languages/eng"}],
			"publishers": ["Ace Books"],
			"covers": [240727],
			"publish_date": "August 1, 1965",
			"works": [{"key": "/works/OL893415W"}]
		}`))
	})
	mux.HandleFunc("/works/OL893415W.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"description": {"value": "Set on the desert planet Arrakis."},
			"subjects": ["Science fiction", "Dune (Imaginary place)"],
			"authors": [
				{"author": {"key": "/authors/OL79034A"}},
				{"author": {"key": "/authors/OL79035A"}}
			]
		}`))
	})
	mux.HandleFunc("/authors/OL79034A.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name": "Frank Herbert"}`))
	})
	mux.HandleFunc("/authors/OL79035A.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name": "Brian Herbert"}`))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	o := NewOpenLibraryWithBaseURL(store, server.URL, "https://covers.example.com")
	book := store.NewBook()

	matched, err := o.Lookup(context.Background(), "9780441013593", book)
	require.NoError(t, err)
	require.True(t, matched)

	require.Equal(t, "Dune", book.Title)
	require.Equal(t, "412", book.NumberOfPages)
	require.Equal(t, "9780441013593", book.ISBN)
	require.Equal(t, "English", book.Language.Name)
	require.Equal(t, "Ace Books", book.Publisher.Name)
	require.Equal(t, "https://covers.example.com/b/id/240727-L.jpg", book.ImageURL)
	require.Equal(t, "1965", book.YearPublished)
	require.Equal(t, "Set on the desert planet Arrakis.", book.Summary)
	require.Equal(t, "Science fiction, Dune (Imaginary place)", book.GenreNames())
	require.Equal(t, "Frank Herbert, Brian Herbert", book.AuthorNames())
}

func TestOpenLibraryNoMatch(t *testing.T) {
	setupTest(t)
	store := newMemStore()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	o := NewOpenLibraryWithBaseURL(store, server.URL, server.URL)

	matched, err := o.Lookup(context.Background(), "9780000000002", store.NewBook())
	require.NoError(t, err)
	require.False(t, matched)
}

func TestOpenLibraryEditionWithoutWork(t *testing.T) {
	setupTest(t)
	store := newMemStore()

	mux := http.NewServeMux()
	mux.HandleFunc("/isbn/123.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"title": "Standalone", "subtitle": "No Work"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	o := NewOpenLibraryWithBaseURL(store, server.URL, server.URL)
	book := store.NewBook()

	matched, err := o.Lookup(context.Background(), "123", book)
	require.NoError(t, err)
	require.True(t, matched)
	require.Equal(t, "Standalone", book.Title)
	require.Equal(t, "No Work", book.Subtitle)
	require.Empty(t, book.Authors)
}

func TestOpenLibraryWorkFallbacks(t *testing.T) {
	setupTest(t)
	store := newMemStore()

	mux := http.NewServeMux()
	mux.HandleFunc("/isbn/123.json", func(w http.ResponseWriter, r *http.Request) {
		// No subtitle, no cover on the edition.
		_, _ = w.Write([]byte(`{"title": "Dune", "works": [{"key": "/works/W1"}]}`))
	})
	mux.HandleFunc("/works/W1.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"description": "A plain string description.",
			"subtitle": "From The Work",
			"covers": [99]
		}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	o := NewOpenLibraryWithBaseURL(store, server.URL, "https://covers.example.com")
	book := store.NewBook()

	matched, err := o.Lookup(context.Background(), "123", book)
	require.NoError(t, err)
	require.True(t, matched)
	require.Equal(t, "A plain string description.", book.Summary)
	require.Equal(t, "From The Work", book.Subtitle)
	require.Equal(t, "https://covers.example.com/b/id/99-L.jpg", book.ImageURL)
}

func TestOpenLibraryAuthorFanOutFailureCancelsSiblings(t *testing.T) {
	setupTest(t)
	store := newMemStore()

	var slowCancelled atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("/isbn/123.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"title": "Dune", "works": [{"key": "/works/W1"}]}`))
	})
	mux.HandleFunc("/works/W1.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"authors": [
				{"author": {"key": "/authors/A1"}},
				{"author": {"key": "/authors/A2"}},
				{"author": {"key": "/authors/A3"}}
			]
		}`))
	})
	mux.HandleFunc("/authors/A1.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name": "First Author"}`))
	})
	mux.HandleFunc("/authors/A2.json", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/authors/A3.json", func(w http.ResponseWriter, r *http.Request) {
		// Hold the request open; cancellation propagation must abort it.
		select {
		case <-r.Context().Done():
			slowCancelled.Store(true)
		case <-time.After(5 * time.Second):
		}
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	o := NewOpenLibraryWithBaseURL(store, server.URL, server.URL)
	book := store.NewBook()

	matched, err := o.Lookup(context.Background(), "123", book)
	require.Error(t, err)
	require.False(t, matched)
	require.Empty(t, book.Authors, "no author list after a failed join")

	require.Eventually(t, slowCancelled.Load, 2*time.Second, 10*time.Millisecond,
		"sibling author fetch was not cancelled")
}

func TestParsePublishYear(t *testing.T) {
	tests := []struct {
		date string
		want string
	}{
		{"August 1, 1965", "1965"},
		{"August 1965", "1965"},
		{"Aug 1, 1965", "1965"},
		{"1965-08", "1965"},
		{"1965 August", "1965"},
		{"1965", "1965"},
		{"sometime long ago", ""},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			require.Equal(t, tt.want, parsePublishYear(tt.date))
		})
	}
}

func TestExtractDescription(t *testing.T) {
	require.Equal(t, "plain", extractDescription("plain"))
	require.Equal(t, "nested", extractDescription(map[string]any{"value": "nested"}))
	require.Equal(t, "", extractDescription(nil))
	require.Equal(t, "", extractDescription(map[string]any{"type": "/type/text"}))
	require.Equal(t, "", extractDescription(42))
}
