package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/anselm67/bookshelf/internal/cache"
	"github.com/anselm67/bookshelf/internal/catalog"
	"github.com/anselm67/bookshelf/internal/ratelimit"
)

const (
	itunesBaseURL    = "https://itunes.apple.com"
	itunesDateLayout = "2006-01-02T15:04:05Z"
)

// ITunes queries the iTunes lookup API by ISBN, a single JSON round trip
// per lookup.
type ITunes struct {
	store   LabelStore
	client  *http.Client
	limiter *ratelimit.Limiter
	baseURL string
}

var _ Source = (*ITunes)(nil)

// NewITunes creates an iTunes source backed by store.
func NewITunes(store LabelStore) *ITunes {
	return NewITunesWithBaseURL(store, itunesBaseURL)
}

// NewITunesWithBaseURL creates a source with a custom base URL, for
// testing against a local server.
func NewITunesWithBaseURL(store LabelStore, baseURL string) *ITunes {
	return &ITunes{
		store:   store,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: ratelimit.New("iTunes", 1),
		baseURL: baseURL,
	}
}

// Name returns the human-readable name of this source.
func (i *ITunes) Name() string {
	return "iTunes"
}

// Ping tests the connection to the iTunes API.
func (i *ITunes) Ping(ctx context.Context) error {
	return pingURL(ctx, i.client, i.baseURL, "iTunes")
}

type itunesResponse struct {
	ResultCount int `json:"resultCount"`
	Results     []struct {
		TrackName     string   `json:"trackName"`
		ArtistName    string   `json:"artistName"`
		Genres        []string `json:"genres"`
		ArtworkURL    string   `json:"artworkUrl100"`
		ReleaseDate   string   `json:"releaseDate"`
		Description   string   `json:"description"`
	} `json:"results"`
}

type cachedITunesResult struct {
	Record   *record `json:"record"`
	NotFound bool    `json:"not_found"`
}

// Lookup queries the lookup endpoint by ISBN and merges the first result
// into book.
func (i *ITunes) Lookup(ctx context.Context, isbn string, book *catalog.Book) (bool, error) {
	cached, _, err := cache.GetOrFetch("itunes_cache", isbn, func() (*cachedITunesResult, error) {
		return i.fetch(ctx, isbn)
	}, cache.SelectNegativeTTL(func(r *cachedITunesResult) bool {
		return r.NotFound
	}))
	if err != nil {
		return false, err
	}
	if cached.NotFound {
		return false, nil
	}
	if err := apply(ctx, i.store, book, cached.Record); err != nil {
		return false, err
	}
	return true, nil
}

func (i *ITunes) fetch(ctx context.Context, isbn string) (*cachedITunesResult, error) {
	if err := i.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/lookup?isbn=%s", i.baseURL, isbn)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("iTunes request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return &cachedITunesResult{NotFound: true}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("iTunes returned status %d", resp.StatusCode)
	}

	var result itunesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if result.ResultCount <= 0 || len(result.Results) == 0 {
		return &cachedITunesResult{NotFound: true}, nil
	}

	first := result.Results[0]
	rec := &record{
		Title:    first.TrackName,
		Genres:   first.Genres,
		ImageURL: first.ArtworkURL,
	}
	if first.ArtistName != "" {
		rec.Authors = []string{first.ArtistName}
	}
	if first.Description != "" {
		rec.Summary = stripHTML(first.Description)
	}
	if first.ReleaseDate != "" {
		// Date parse failures are ignored, not treated as lookup errors.
		if t, err := time.Parse(itunesDateLayout, first.ReleaseDate); err == nil {
			rec.YearPublished = strconv.Itoa(t.Year())
		} else {
			slog.Debug("Ignoring unparseable iTunes release date", "date", first.ReleaseDate)
		}
	}

	return &cachedITunesResult{Record: rec}, nil
}
