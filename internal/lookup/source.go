// Package lookup implements the multi-source ISBN lookup engine. Given an
// ISBN it queries several bibliographic services in a fixed priority order,
// normalizes their divergent schemas into one accumulated catalog.Book, and
// merges contributions with fill-if-empty semantics for scalar fields and
// replace semantics for author/genre lists.
package lookup

import (
	"context"

	"github.com/anselm67/bookshelf/internal/catalog"
)

// LabelStore is the slice of the catalog store the lookup engine depends
// on: label interning and blank book creation.
type LabelStore interface {
	// Label interns a (type, name) pair, creating it on first use.
	Label(ctx context.Context, typ catalog.LabelType, name string) (*catalog.Label, error)

	// LabelIfExists resolves a pair without creating it; nil when absent.
	LabelIfExists(ctx context.Context, typ catalog.LabelType, name string) (*catalog.Label, error)

	// NewBook returns a blank book accumulator.
	NewBook() *catalog.Book
}

// Source is the contract every lookup client implements.
//
// Lookup mutates book in place and reports one of three outcomes:
//   - (true, nil): the source matched and contributed fields.
//   - (false, nil): no match (HTTP 404 or an explicit zero-result payload).
//   - (false, err): transport failure or malformed payload.
//
// Sources that resolve label text (authors, genres, publisher, language)
// route every label string through the shared interning store; this is a
// mandatory side effect so repeated lookups converge on the same label
// identities.
type Source interface {
	// Name returns the human-readable name of the source.
	Name() string

	// Ping tests the connection to the source.
	Ping(ctx context.Context) error

	// Lookup queries the source for isbn and fills book.
	Lookup(ctx context.Context, isbn string, book *catalog.Book) (bool, error)
}
