package lookup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const worldCatDuneXML = `<?xml version="1.0" encoding="UTF-8"?>
<oclcdcs xmlns:dc="http://purl.org/dc/elements/1.1/">
  <dc:creator>Herbert, Frank</dc:creator>
  <dc:contributor>Herbert, Brian</dc:contributor>
  <dc:title>Dune</dc:title>
  <dc:description>Set on the desert planet Arrakis.</dc:description>
  <dc:description>Winner of the first Nebula Award.</dc:description>
  <dc:language>eng</dc:language>
  <dc:format>412 p. ; 24 cm</dc:format>
  <dc:date>1965</dc:date>
  <dc:publisher>Ace Books</dc:publisher>
  <dc:identifier>9780441013593</dc:identifier>
  <dc:identifier>0441013597</dc:identifier>
  <dc:subject>Science fiction</dc:subject>
</oclcdcs>`

func TestWorldCatLookup(t *testing.T) {
	setupTest(t)
	store := newMemStore()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/catalog/content/isbn/9780441013593", r.URL.Path)
		require.Equal(t, "test-key", r.URL.Query().Get("wskey"))
		require.Equal(t, "info:srw/schema/1/dc", r.URL.Query().Get("recordSchema"))
		_, _ = w.Write([]byte(worldCatDuneXML))
	}))
	defer server.Close()

	wc := NewWorldCatWithBaseURL(store, server.URL)
	wc.wskey = func() string { return "test-key" }
	book := store.NewBook()

	matched, err := wc.Lookup(context.Background(), "9780441013593", book)
	require.NoError(t, err)
	require.True(t, matched)

	require.Equal(t, "Dune", book.Title)
	require.Equal(t, "Herbert, Frank, Herbert, Brian", book.AuthorNames())
	require.Equal(t, "Set on the desert planet Arrakis.\nWinner of the first Nebula Award.", book.Summary)
	require.Equal(t, "English", book.Language.Name)
	require.Equal(t, "412", book.NumberOfPages)
	require.Equal(t, "1965", book.YearPublished)
	require.Equal(t, "Ace Books", book.Publisher.Name)
	require.Equal(t, "9780441013593", book.ISBN)
}

func TestWorldCatNoMatch(t *testing.T) {
	setupTest(t)
	store := newMemStore()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	wc := NewWorldCatWithBaseURL(store, server.URL)
	wc.wskey = func() string { return "test-key" }

	matched, err := wc.Lookup(context.Background(), "9780000000002", store.NewBook())
	require.NoError(t, err)
	require.False(t, matched)
}

func TestWorldCatDiagnostics(t *testing.T) {
	setupTest(t)
	store := newMemStore()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<?xml version="1.0"?>
<diagnostics xmlns="http://www.loc.gov/zing/srw/diagnostic/">
  <diagnostic>
    <uri>info:srw/diagnostic/1/7</uri>
    <message>Invalid wskey</message>
  </diagnostic>
</diagnostics>`))
	}))
	defer server.Close()

	wc := NewWorldCatWithBaseURL(store, server.URL)
	wc.wskey = func() string { return "bogus" }

	matched, err := wc.Lookup(context.Background(), "9780441013593", store.NewBook())
	require.False(t, matched)
	require.Error(t, err)

	require.True(t, IsDiagnosticError(err))

	var diag *DiagnosticError
	require.ErrorAs(t, err, &diag)
	require.Equal(t, "WorldCat", diag.Source)
	require.Equal(t, "Invalid wskey", diag.Message)
}

func TestWorldCatUnexpectedRoot(t *testing.T) {
	setupTest(t)
	store := newMemStore()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>Service moved</body></html>`))
	}))
	defer server.Close()

	wc := NewWorldCatWithBaseURL(store, server.URL)
	wc.wskey = func() string { return "test-key" }

	matched, err := wc.Lookup(context.Background(), "9780441013593", store.NewBook())
	require.False(t, matched)
	require.ErrorIs(t, err, ErrBadPayload)
}

func TestWorldCatMatchWithoutTitle(t *testing.T) {
	setupTest(t)
	store := newMemStore()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<oclcdcs><dc:publisher xmlns:dc="http://purl.org/dc/elements/1.1/">Ace Books</dc:publisher></oclcdcs>`))
	}))
	defer server.Close()

	wc := NewWorldCatWithBaseURL(store, server.URL)
	wc.wskey = func() string { return "test-key" }
	book := store.NewBook()

	matched, err := wc.Lookup(context.Background(), "9780441013593", book)
	require.NoError(t, err)
	require.True(t, matched)
	require.Empty(t, book.Title)
	require.Equal(t, "Ace Books", book.Publisher.Name)
}

func TestParseDublinCoreIdentifierGate(t *testing.T) {
	rec, err := parseDublinCore(strings.NewReader(`<oclcdcs>
  <identifier>0441013597</identifier>
  <identifier>9780441013594</identifier>
  <identifier>9780441013593</identifier>
</oclcdcs>`))
	require.NoError(t, err)
	// Ten-digit and checksum-invalid identifiers are skipped.
	require.Equal(t, "9780441013593", rec.ISBN)
}
