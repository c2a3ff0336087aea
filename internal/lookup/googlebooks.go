package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/anselm67/bookshelf/internal/cache"
	"github.com/anselm67/bookshelf/internal/catalog"
	"github.com/anselm67/bookshelf/internal/ratelimit"
)

const (
	googleBooksBaseURL = "https://www.googleapis.com/books/v1"
	googleBooksKind    = "books#volumes"
)

// GoogleBooks queries the Google Books volume API, a single JSON round
// trip per lookup.
type GoogleBooks struct {
	store   LabelStore
	client  *http.Client
	limiter *ratelimit.Limiter
	baseURL string
}

var _ Source = (*GoogleBooks)(nil)

// NewGoogleBooks creates a Google Books source backed by store.
func NewGoogleBooks(store LabelStore) *GoogleBooks {
	return NewGoogleBooksWithBaseURL(store, googleBooksBaseURL)
}

// NewGoogleBooksWithBaseURL creates a source with a custom base URL, for
// testing against a local server.
func NewGoogleBooksWithBaseURL(store LabelStore, baseURL string) *GoogleBooks {
	return &GoogleBooks{
		store:   store,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: ratelimit.New("GoogleBooks", 1),
		baseURL: baseURL,
	}
}

// Name returns the human-readable name of this source.
func (g *GoogleBooks) Name() string {
	return "Google Books"
}

// Ping tests the connection to the Google Books API.
func (g *GoogleBooks) Ping(ctx context.Context) error {
	url := fmt.Sprintf("%s/volumes?q=isbn:0140447938&maxResults=1", g.baseURL)
	return pingURL(ctx, g.client, url, "Google Books")
}

type googleVolumesResponse struct {
	Kind       string `json:"kind"`
	TotalItems int    `json:"totalItems"`
	Items      []struct {
		VolumeInfo googleVolumeInfo `json:"volumeInfo"`
	} `json:"items"`
}

type googleVolumeInfo struct {
	Title               string   `json:"title"`
	Subtitle            string   `json:"subtitle"`
	Authors             []string `json:"authors"`
	Publisher           string   `json:"publisher"`
	PublishedDate       string   `json:"publishedDate"`
	Description         string   `json:"description"`
	PageCount           int      `json:"pageCount"`
	Categories          []string `json:"categories"`
	Language            string   `json:"language"`
	IndustryIdentifiers []struct {
		Type       string `json:"type"`
		Identifier string `json:"identifier"`
	} `json:"industryIdentifiers"`
	ImageLinks struct {
		Thumbnail      string `json:"thumbnail"`
		SmallThumbnail string `json:"smallThumbnail"`
	} `json:"imageLinks"`
}

type cachedGoogleResult struct {
	Record   *record `json:"record"`
	NotFound bool    `json:"not_found"`
}

// Lookup queries the volume API by ISBN and merges the first matching
// volume into book.
func (g *GoogleBooks) Lookup(ctx context.Context, isbn string, book *catalog.Book) (bool, error) {
	cached, _, err := cache.GetOrFetch("googlebooks_cache", isbn, func() (*cachedGoogleResult, error) {
		return g.fetch(ctx, isbn)
	}, cache.SelectNegativeTTL(func(r *cachedGoogleResult) bool {
		return r.NotFound
	}))
	if err != nil {
		return false, err
	}
	if cached.NotFound {
		return false, nil
	}
	if err := apply(ctx, g.store, book, cached.Record); err != nil {
		return false, err
	}
	return true, nil
}

func (g *GoogleBooks) fetch(ctx context.Context, isbn string) (*cachedGoogleResult, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/volumes?q=isbn:%s", g.baseURL, isbn)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Google Books request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return &cachedGoogleResult{NotFound: true}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Google Books returned status %d", resp.StatusCode)
	}

	var result googleVolumesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if result.Kind != googleBooksKind {
		return nil, fmt.Errorf("%w: kind %q, want %q", ErrBadPayload, result.Kind, googleBooksKind)
	}
	if result.TotalItems <= 0 || len(result.Items) == 0 {
		return &cachedGoogleResult{NotFound: true}, nil
	}

	// Multiple volumes can match one ISBN; the first one wins, matches
	// are not disambiguated.
	vol := result.Items[0].VolumeInfo

	rec := &record{
		Title:    vol.Title,
		Subtitle: vol.Subtitle,
		Summary:  vol.Description,
		Authors:  vol.Authors,
		Genres:   vol.Categories,
	}

	for _, id := range vol.IndustryIdentifiers {
		if id.Type == "ISBN_13" {
			rec.ISBN = id.Identifier
			break
		}
	}
	if vol.Language != "" {
		rec.Language = languageName(vol.Language)
	}
	if vol.Publisher != "" {
		rec.Publisher = vol.Publisher
	}
	// A page count of 0 is not a meaningful page count.
	if vol.PageCount > 0 {
		rec.NumberOfPages = strconv.Itoa(vol.PageCount)
	}
	if year := extractYear(vol.PublishedDate); year != "" {
		rec.YearPublished = year
	}
	if vol.ImageLinks.Thumbnail != "" {
		rec.ImageURL = vol.ImageLinks.Thumbnail
	} else if vol.ImageLinks.SmallThumbnail != "" {
		rec.ImageURL = vol.ImageLinks.SmallThumbnail
	}

	return &cachedGoogleResult{Record: rec}, nil
}

// pingURL issues a GET and expects a 200.
func pingURL(ctx context.Context, client *http.Client, url, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating ping request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", name, resp.StatusCode)
	}
	return nil
}
