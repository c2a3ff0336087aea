package catalog

import "strings"

// Book is the record accumulated during a lookup and persisted into the
// catalog. During a lookup it is mutated in place by each participating
// source; ownership transfers to the caller once the lookup completes.
type Book struct {
	ID            int64
	Title         string
	Subtitle      string
	ISBN          string
	Summary       string
	YearPublished string
	NumberOfPages string
	ImageURL      string
	Language      *Label
	Publisher     *Label
	Location      *Label
	Authors       []*Label
	Genres        []*Label
	DateAdded     int64
}

// AuthorNames returns the book's author names, joined for display.
func (b *Book) AuthorNames() string {
	return joinLabels(b.Authors)
}

// GenreNames returns the book's genre names, joined for display.
func (b *Book) GenreNames() string {
	return joinLabels(b.Genres)
}

func joinLabels(labels []*Label) string {
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, l.Name)
	}
	return strings.Join(names, ", ")
}
