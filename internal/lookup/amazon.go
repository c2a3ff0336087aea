package lookup

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/anselm67/bookshelf/internal/catalog"
)

const (
	amazonImagesBaseURL = "http://images.amazon.com"

	// Amazon answers probes for unknown products with a tiny placeholder
	// image; anything at or below this size is not a real cover.
	amazonMinCoverBytes = 50
)

// Amazon is not a metadata source: it only fills in a cover image URL
// when no earlier source produced one, by probing Amazon's product image
// service with a HEAD request.
type Amazon struct {
	client  *http.Client
	baseURL string
}

var _ Source = (*Amazon)(nil)

// NewAmazon creates the Amazon cover probe.
func NewAmazon() *Amazon {
	return NewAmazonWithBaseURL(amazonImagesBaseURL)
}

// NewAmazonWithBaseURL creates a probe with a custom base URL, for
// testing against a local server.
func NewAmazonWithBaseURL(baseURL string) *Amazon {
	return &Amazon{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
	}
}

// Name returns the human-readable name of this source.
func (a *Amazon) Name() string {
	return "Amazon covers"
}

// Ping tests the connection to the image service.
func (a *Amazon) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, a.baseURL, nil)
	if err != nil {
		return fmt.Errorf("creating ping request: %w", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("Amazon covers ping failed: %w", err)
	}
	_ = resp.Body.Close()
	return nil
}

// Lookup probes for a cover image. The probe is skipped entirely when the
// book already has an image URL or when the ISBN is too short to derive a
// product key. Probe failures never surface as errors; the book is simply
// left untouched.
func (a *Amazon) Lookup(ctx context.Context, isbn string, book *catalog.Book) (bool, error) {
	if book.ImageURL != "" || len(isbn) <= 3 {
		return false, nil
	}

	// The product key is the ISBN with its EAN prefix dropped.
	url := fmt.Sprintf("%s/images/P/%s.01Z.jpg", a.baseURL, isbn[3:])
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false, nil
	}

	resp, err := a.client.Do(req)
	if err != nil {
		slog.Debug("Amazon cover probe failed", "isbn", isbn, "error", err)
		return false, nil
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK || resp.ContentLength <= amazonMinCoverBytes {
		return false, nil
	}

	book.ImageURL = url
	return true, nil
}
