package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/anselm67/bookshelf/internal/cache"
	"github.com/anselm67/bookshelf/internal/catalog"
	"github.com/anselm67/bookshelf/internal/ratelimit"
)

const (
	openLibraryBaseURL   = "https://openlibrary.org"
	openLibraryCoversURL = "https://covers.openlibrary.org"
)

// Ordered candidate layouts for Open Library publish dates; the first one
// that parses wins and only the year is kept.
var openLibraryDateLayouts = []string{
	"January 2, 2006",
	"January 2006",
	"Jan 2, 2006",
	"2006-01",
	"2006 January",
	"2006",
}

// OpenLibrary queries openlibrary.org. A lookup is a multi-hop chain: the
// edition record, conditionally its work record, then one concurrent
// sub-request per author key, all under the session's context.
type OpenLibrary struct {
	store     LabelStore
	client    *http.Client
	limiter   *ratelimit.Limiter
	baseURL   string
	coversURL string
}

var _ Source = (*OpenLibrary)(nil)

// NewOpenLibrary creates an Open Library source backed by store.
func NewOpenLibrary(store LabelStore) *OpenLibrary {
	return NewOpenLibraryWithBaseURL(store, openLibraryBaseURL, openLibraryCoversURL)
}

// NewOpenLibraryWithBaseURL creates a source with custom base URLs, for
// testing against a local server.
func NewOpenLibraryWithBaseURL(store LabelStore, baseURL, coversURL string) *OpenLibrary {
	return &OpenLibrary{
		store:     store,
		client:    &http.Client{Timeout: 10 * time.Second},
		// One lookup can issue several requests (edition, work, one per
		// author); the burst keeps a single chain from stalling.
		limiter:   ratelimit.NewWithBurst("OpenLibrary", 1, 10),
		baseURL:   baseURL,
		coversURL: coversURL,
	}
}

// Name returns the human-readable name of this source.
func (o *OpenLibrary) Name() string {
	return "Open Library"
}

// Ping tests the connection to Open Library.
func (o *OpenLibrary) Ping(ctx context.Context) error {
	return pingURL(ctx, o.client, o.baseURL, "Open Library")
}

type olEdition struct {
	Title         string   `json:"title"`
	Subtitle      string   `json:"subtitle"`
	NumberOfPages int      `json:"number_of_pages"`
	ISBN13        []string `json:"isbn_13"`
	Publishers    []string `json:"publishers"`
	PublishDate   string   `json:"publish_date"`
	Covers        []int64  `json:"covers"`
	Languages     []struct {
		Key string `json:"key"`
	} `json:"languages"`
	Works []struct {
		Key string `json:"key"`
	} `json:"works"`
}

type olWork struct {
	Description any      `json:"description"`
	Subtitle    string   `json:"subtitle"`
	Subjects    []string `json:"subjects"`
	Covers      []int64  `json:"covers"`
	Authors     []struct {
		Author struct {
			Key string `json:"key"`
		} `json:"author"`
	} `json:"authors"`
}

type olAuthor struct {
	Name string `json:"name"`
}

type cachedOpenLibraryResult struct {
	Record   *record `json:"record"`
	NotFound bool    `json:"not_found"`
}

// Lookup resolves isbn through the edition, work and author endpoints and
// merges the combined result into book.
func (o *OpenLibrary) Lookup(ctx context.Context, isbn string, book *catalog.Book) (bool, error) {
	cached, _, err := cache.GetOrFetch("openlibrary_cache", isbn, func() (*cachedOpenLibraryResult, error) {
		return o.fetch(ctx, isbn)
	}, cache.SelectNegativeTTL(func(r *cachedOpenLibraryResult) bool {
		return r.NotFound
	}))
	if err != nil {
		return false, err
	}
	if cached.NotFound {
		return false, nil
	}
	if err := apply(ctx, o.store, book, cached.Record); err != nil {
		return false, err
	}
	return true, nil
}

func (o *OpenLibrary) fetch(ctx context.Context, isbn string) (*cachedOpenLibraryResult, error) {
	var edition olEdition
	found, err := o.getJSON(ctx, fmt.Sprintf("%s/isbn/%s.json", o.baseURL, isbn), &edition)
	if err != nil {
		return nil, err
	}
	if !found {
		return &cachedOpenLibraryResult{NotFound: true}, nil
	}

	rec := &record{
		Title:    edition.Title,
		Subtitle: edition.Subtitle,
	}
	if edition.NumberOfPages > 0 {
		rec.NumberOfPages = strconv.Itoa(edition.NumberOfPages)
	}
	if len(edition.ISBN13) > 0 {
		rec.ISBN = edition.ISBN13[0]
	}
	if len(edition.Languages) > 0 {
		// Language keys look like "/languages/eng".
		key := edition.Languages[0].Key
		if idx := strings.LastIndex(key, "/"); idx >= 0 {
			rec.Language = languageName(key[idx+1:])
		}
	}
	if len(edition.Publishers) > 0 {
		rec.Publisher = strings.Join(edition.Publishers, ", ")
	}
	if len(edition.Covers) > 0 {
		rec.ImageURL = o.coverURL(edition.Covers[0])
	}
	if edition.PublishDate != "" {
		rec.YearPublished = parsePublishYear(edition.PublishDate)
	}

	if len(edition.Works) == 0 || edition.Works[0].Key == "" {
		return &cachedOpenLibraryResult{Record: rec}, nil
	}

	if err := o.fetchWork(ctx, edition.Works[0].Key, rec); err != nil {
		return nil, err
	}
	return &cachedOpenLibraryResult{Record: rec}, nil
}

// fetchWork fills rec from the work record, then resolves author names.
func (o *OpenLibrary) fetchWork(ctx context.Context, workKey string, rec *record) error {
	var work olWork
	found, err := o.getJSON(ctx, fmt.Sprintf("%s%s.json", o.baseURL, workKey), &work)
	if err != nil || !found {
		return err
	}

	if desc := extractDescription(work.Description); desc != "" {
		rec.Summary = desc
	}
	rec.Genres = work.Subjects
	if rec.Subtitle == "" && work.Subtitle != "" {
		rec.Subtitle = work.Subtitle
	}
	if rec.ImageURL == "" && len(work.Covers) > 0 {
		rec.ImageURL = o.coverURL(work.Covers[0])
	}

	if len(work.Authors) == 0 {
		return nil
	}

	// One concurrent fetch per author key, all sharing the session
	// context: the first error cancels the siblings and the join only
	// completes once every fetch has finished.
	names := make([]string, len(work.Authors))
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range work.Authors {
		key := a.Author.Key
		if key == "" {
			continue
		}
		g.Go(func() error {
			var author olAuthor
			found, err := o.getJSON(gctx, fmt.Sprintf("%s%s.json", o.baseURL, key), &author)
			if err != nil {
				return err
			}
			if found {
				names[i] = author.Name
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("fetching authors: %w", err)
	}

	for _, name := range names {
		if name != "" {
			rec.Authors = append(rec.Authors, name)
		}
	}
	return nil
}

// getJSON fetches url into dst. Returns false on a 404 without error.
func (o *OpenLibrary) getJSON(ctx context.Context, url string, dst any) (bool, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("creating request: %w", err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("Open Library request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("Open Library returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return false, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return true, nil
}

func (o *OpenLibrary) coverURL(coverID int64) string {
	return fmt.Sprintf("%s/b/id/%d-L.jpg", o.coversURL, coverID)
}

// parsePublishYear tries the candidate date layouts in order and keeps
// the year of the first one that parses.
func parsePublishYear(date string) string {
	for _, layout := range openLibraryDateLayouts {
		if t, err := time.Parse(layout, date); err == nil {
			return strconv.Itoa(t.Year())
		}
	}
	return ""
}

// extractDescription handles the two shapes Open Library descriptions
// take: a plain string or an object with a "value" key.
func extractDescription(desc any) string {
	switch v := desc.(type) {
	case string:
		return v
	case map[string]any:
		if val, ok := v["value"].(string); ok {
			return val
		}
	}
	return ""
}
