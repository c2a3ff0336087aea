package lookup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const googleDuneJSON = `{
	"kind": "books#volumes",
	"totalItems": 1,
	"items": [{
		"volumeInfo": {
			"title": "Dune",
			"authors": ["Frank Herbert"],
			"categories": ["Fiction"],
			"language": "en",
			"pageCount": 412,
			"publishedDate": "1965-08-01",
			"industryIdentifiers": [
				{"type": "ISBN_10", "identifier": "0441013597"},
				{"type": "ISBN_13", "identifier": "9780441013593"}
			]
		}
	}]
}`

func TestGoogleBooksLookup(t *testing.T) {
	setupTest(t)
	store := newMemStore()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "isbn:9780441013593", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(googleDuneJSON))
	}))
	defer server.Close()

	g := NewGoogleBooksWithBaseURL(store, server.URL)
	book := store.NewBook()

	matched, err := g.Lookup(context.Background(), "9780441013593", book)
	require.NoError(t, err)
	require.True(t, matched)

	require.Equal(t, "Dune", book.Title)
	require.Equal(t, "Frank Herbert", book.AuthorNames())
	require.Equal(t, "Fiction", book.GenreNames())
	require.Equal(t, "English", book.Language.Name)
	require.Equal(t, "412", book.NumberOfPages)
	require.Equal(t, "9780441013593", book.ISBN)
	require.Equal(t, "1965", book.YearPublished)
}

func TestGoogleBooksNoMatch(t *testing.T) {
	setupTest(t)
	store := newMemStore()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"kind": "books#volumes", "totalItems": 0}`))
	}))
	defer server.Close()

	g := NewGoogleBooksWithBaseURL(store, server.URL)
	book := store.NewBook()

	matched, err := g.Lookup(context.Background(), "9780000000002", book)
	require.NoError(t, err)
	require.False(t, matched)
	require.Empty(t, book.Title)
}

func TestGoogleBooksKindMismatch(t *testing.T) {
	setupTest(t)
	store := newMemStore()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"kind": "books#volume", "totalItems": 1}`))
	}))
	defer server.Close()

	g := NewGoogleBooksWithBaseURL(store, server.URL)

	matched, err := g.Lookup(context.Background(), "9780441013593", store.NewBook())
	require.ErrorIs(t, err, ErrBadPayload)
	require.False(t, matched)
}

func TestGoogleBooksMalformedPayload(t *testing.T) {
	setupTest(t)
	store := newMemStore()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`["not", "an", "object"]`))
	}))
	defer server.Close()

	g := NewGoogleBooksWithBaseURL(store, server.URL)

	matched, err := g.Lookup(context.Background(), "9780441013593", store.NewBook())
	require.ErrorIs(t, err, ErrBadPayload)
	require.False(t, matched)
}

func TestGoogleBooksNotFoundStatus(t *testing.T) {
	setupTest(t)
	store := newMemStore()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	g := NewGoogleBooksWithBaseURL(store, server.URL)

	matched, err := g.Lookup(context.Background(), "9780441013593", store.NewBook())
	require.NoError(t, err)
	require.False(t, matched)
}

func TestGoogleBooksZeroPageCountStaysEmpty(t *testing.T) {
	setupTest(t)
	store := newMemStore()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"kind": "books#volumes",
			"totalItems": 1,
			"items": [{"volumeInfo": {"title": "Dune", "pageCount": 0}}]
		}`))
	}))
	defer server.Close()

	g := NewGoogleBooksWithBaseURL(store, server.URL)
	book := store.NewBook()

	matched, err := g.Lookup(context.Background(), "9780441013593", book)
	require.NoError(t, err)
	require.True(t, matched)
	require.Empty(t, book.NumberOfPages)
}

func TestGoogleBooksLookupUsesCache(t *testing.T) {
	setupTest(t)
	store := newMemStore()

	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte(googleDuneJSON))
	}))
	defer server.Close()

	g := NewGoogleBooksWithBaseURL(store, server.URL)

	_, err := g.Lookup(context.Background(), "9780441013593", store.NewBook())
	require.NoError(t, err)

	book := store.NewBook()
	matched, err := g.Lookup(context.Background(), "9780441013593", book)
	require.NoError(t, err)
	require.True(t, matched)
	require.Equal(t, 1, hits, "second lookup must be served from cache")
	require.Equal(t, "Dune", book.Title)
}
