package lookup

import (
	"context"

	"github.com/anselm67/bookshelf/internal/catalog"
	"github.com/anselm67/bookshelf/internal/config"
)

// record is the source-neutral shape each client parses its payload into,
// before labels are interned and the result is merged into the accumulator.
// It is also what gets cached per source, so a cache hit replays the same
// merge and interning path as a live response.
type record struct {
	Title         string   `json:"title,omitempty"`
	Subtitle      string   `json:"subtitle,omitempty"`
	ISBN          string   `json:"isbn,omitempty"`
	Summary       string   `json:"summary,omitempty"`
	YearPublished string   `json:"year_published,omitempty"`
	NumberOfPages string   `json:"number_of_pages,omitempty"`
	ImageURL      string   `json:"image_url,omitempty"`
	Language      string   `json:"language,omitempty"`
	Publisher     string   `json:"publisher,omitempty"`
	Authors       []string `json:"authors,omitempty"`
	Genres        []string `json:"genres,omitempty"`
}

// apply merges a record into the accumulating book.
//
// Scalar fields fill forward: a value set by an earlier source is never
// overwritten. List fields (authors, genres) are replaced outright by any
// source that sets them, so the last contributing source wins those. This
// asymmetry is deliberate; do not "fix" it.
func apply(ctx context.Context, store LabelStore, book *catalog.Book, rec *record) error {
	fillString(&book.Title, rec.Title)
	fillString(&book.Subtitle, rec.Subtitle)
	fillString(&book.ISBN, rec.ISBN)
	fillString(&book.Summary, rec.Summary)
	fillString(&book.YearPublished, rec.YearPublished)
	fillString(&book.NumberOfPages, rec.NumberOfPages)
	fillString(&book.ImageURL, rec.ImageURL)

	if book.Language == nil && rec.Language != "" {
		l, err := store.Label(ctx, catalog.Language, rec.Language)
		if err != nil {
			return err
		}
		book.Language = l
	}
	if book.Publisher == nil && rec.Publisher != "" {
		l, err := store.Label(ctx, catalog.Publisher, rec.Publisher)
		if err != nil {
			return err
		}
		book.Publisher = l
	}

	if len(rec.Authors) > 0 {
		authors := make([]*catalog.Label, 0, len(rec.Authors))
		for _, name := range rec.Authors {
			l, err := store.Label(ctx, catalog.Authors, name)
			if err != nil {
				return err
			}
			authors = append(authors, l)
		}
		book.Authors = authors
	}

	if len(rec.Genres) > 0 {
		genres, err := internGenres(ctx, store, rec.Genres)
		if err != nil {
			return err
		}
		if len(genres) > 0 {
			book.Genres = genres
		}
	}
	return nil
}

func fillString(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}

// internGenres resolves genre names into labels. When the only-existing
// genres mode is active, names without a pre-existing label are silently
// dropped instead of creating new genre rows.
func internGenres(ctx context.Context, store LabelStore, names []string) ([]*catalog.Label, error) {
	onlyExisting := config.OnlyExistingGenres()
	genres := make([]*catalog.Label, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		var l *catalog.Label
		var err error
		if onlyExisting {
			l, err = store.LabelIfExists(ctx, catalog.Genres, name)
		} else {
			l, err = store.Label(ctx, catalog.Genres, name)
		}
		if err != nil {
			return nil, err
		}
		if l != nil {
			genres = append(genres, l)
		}
	}
	return genres, nil
}
