package lookup

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anselm67/bookshelf/internal/cache"
	"github.com/anselm67/bookshelf/internal/catalog"
	"github.com/anselm67/bookshelf/internal/config"
	"github.com/anselm67/bookshelf/internal/isbn"
	"github.com/anselm67/bookshelf/internal/ratelimit"
)

const (
	worldCatBaseURL      = "http://www.worldcat.org/webservices"
	worldCatRecordSchema = "info:srw/schema/1/dc"
)

// WorldCat queries the OCLC catalog API, which answers in Dublin Core
// XML. Parsing is a stateless pull parse per call, so the source is safe
// for concurrent use.
type WorldCat struct {
	store   LabelStore
	client  *http.Client
	limiter *ratelimit.Limiter
	baseURL string
	wskey   func() string
}

var _ Source = (*WorldCat)(nil)

// NewWorldCat creates a WorldCat source backed by store. The wskey is
// read from configuration at request time.
func NewWorldCat(store LabelStore) *WorldCat {
	return NewWorldCatWithBaseURL(store, worldCatBaseURL)
}

// NewWorldCatWithBaseURL creates a source with a custom base URL, for
// testing against a local server.
func NewWorldCatWithBaseURL(store LabelStore, baseURL string) *WorldCat {
	return &WorldCat{
		store:   store,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: ratelimit.New("WorldCat", 1),
		baseURL: baseURL,
		wskey:   config.WorldCatKey,
	}
}

// Name returns the human-readable name of this source.
func (w *WorldCat) Name() string {
	return "WorldCat"
}

// Ping tests the connection to the WorldCat API.
func (w *WorldCat) Ping(ctx context.Context) error {
	return pingURL(ctx, w.client, w.baseURL, "WorldCat")
}

type cachedWorldCatResult struct {
	Record   *record `json:"record"`
	NotFound bool    `json:"not_found"`
}

// Lookup queries the catalog content endpoint and merges the parsed
// Dublin Core record into book. Unlike the other sources, WorldCat does
// not gate on title: an empty record still counts as a match.
func (w *WorldCat) Lookup(ctx context.Context, isbnCode string, book *catalog.Book) (bool, error) {
	cached, _, err := cache.GetOrFetch("worldcat_cache", isbnCode, func() (*cachedWorldCatResult, error) {
		return w.fetch(ctx, isbnCode)
	}, cache.SelectNegativeTTL(func(r *cachedWorldCatResult) bool {
		return r.NotFound
	}))
	if err != nil {
		return false, err
	}
	if cached.NotFound {
		return false, nil
	}
	if err := apply(ctx, w.store, book, cached.Record); err != nil {
		return false, err
	}
	return true, nil
}

func (w *WorldCat) fetch(ctx context.Context, isbnCode string) (*cachedWorldCatResult, error) {
	if err := w.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/catalog/content/isbn/%s?wskey=%s&recordSchema=%s",
		w.baseURL, isbnCode, url.QueryEscape(w.wskey()), url.QueryEscape(worldCatRecordSchema))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("WorldCat request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return &cachedWorldCatResult{NotFound: true}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("WorldCat returned status %d", resp.StatusCode)
	}

	rec, err := parseDublinCore(resp.Body)
	if err != nil {
		return nil, err
	}
	return &cachedWorldCatResult{Record: rec}, nil
}

// parseDublinCore pulls one oclcdcs record out of a Dublin Core response.
// A diagnostics root is reported as an error carrying the remote message;
// any other root element is a bad payload.
func parseDublinCore(r io.Reader) (*record, error) {
	decoder := xml.NewDecoder(r)

	root, err := nextStartElement(decoder)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	switch root.Name.Local {
	case "oclcdcs":
		return parseRecord(decoder)
	case "diagnostics":
		msg, err := parseDiagnostics(decoder)
		if err != nil {
			return nil, err
		}
		return nil, &DiagnosticError{Source: "WorldCat", Message: msg}
	default:
		return nil, fmt.Errorf("%w: unexpected root element %q", ErrBadPayload, root.Name.Local)
	}
}

func parseRecord(decoder *xml.Decoder) (*record, error) {
	rec := &record{}
	var descriptions []string

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		text, err := elementText(decoder, &se)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		text = strings.TrimSpace(text)

		switch se.Name.Local {
		case "creator", "contributor":
			if text != "" {
				rec.Authors = append(rec.Authors, text)
			}
		case "title":
			rec.Title = text
		case "description":
			// Several description elements may occur; keep them all.
			if text != "" {
				descriptions = append(descriptions, text)
			}
		case "language":
			if text != "" {
				rec.Language = languageName(text)
			}
		case "format":
			if pages := extractPages(text); pages != "" {
				rec.NumberOfPages = pages
			}
		case "date":
			if year := extractYear(text); year != "" {
				rec.YearPublished = year
			}
		case "publisher":
			rec.Publisher = text
		case "identifier":
			if len(text) == 13 && isbn.ValidEAN13(text) {
				rec.ISBN = text
			}
		default:
			slog.Debug("Ignoring Dublin Core element", "element", se.Name.Local)
		}
	}

	rec.Summary = strings.Join(descriptions, "\n")
	return rec, nil
}

func parseDiagnostics(decoder *xml.Decoder) (string, error) {
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			return "", fmt.Errorf("%w: diagnostics without message", ErrBadPayload)
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "message" {
			text, err := elementText(decoder, &se)
			if err != nil {
				return "", fmt.Errorf("%w: %v", ErrBadPayload, err)
			}
			return strings.TrimSpace(text), nil
		}
	}
}

func nextStartElement(decoder *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := decoder.Token()
		if err != nil {
			return xml.StartElement{}, err
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se, nil
		}
	}
}

func elementText(decoder *xml.Decoder, se *xml.StartElement) (string, error) {
	var text string
	if err := decoder.DecodeElement(&text, se); err != nil {
		return "", err
	}
	return text, nil
}

