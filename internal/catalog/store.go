// Package catalog holds the book catalog data model and its SQLite-backed
// store. The store interns (type, name) label pairs into stable identities
// shared by every lookup source and persists completed book records.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

const labelSchema = `
CREATE TABLE IF NOT EXISTS labels (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	type TEXT NOT NULL,
	name TEXT NOT NULL,
	UNIQUE(type, name)
);

CREATE INDEX IF NOT EXISTS idx_labels_type ON labels(type);
`

const bookSchema = `
CREATE TABLE IF NOT EXISTS books (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	subtitle TEXT NOT NULL DEFAULT '',
	isbn TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	year_published TEXT NOT NULL DEFAULT '',
	number_of_pages TEXT NOT NULL DEFAULT '',
	image_url TEXT NOT NULL DEFAULT '',
	language_id INTEGER REFERENCES labels(id),
	publisher_id INTEGER REFERENCES labels(id),
	location_id INTEGER REFERENCES labels(id),
	date_added INTEGER NOT NULL DEFAULT (strftime('%s','now'))
);

CREATE INDEX IF NOT EXISTS idx_books_isbn ON books(isbn);
`

const bookLabelSchema = `
CREATE TABLE IF NOT EXISTS book_labels (
	book_id INTEGER NOT NULL REFERENCES books(id),
	label_id INTEGER NOT NULL REFERENCES labels(id),
	position INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (book_id, label_id)
);
`

type labelKey struct {
	typ  LabelType
	name string
}

// Store provides label interning and book persistence on top of SQLite.
// It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	dbPath string

	mu     sync.Mutex
	labels map[labelKey]*Label
}

// NewStore creates a Store backed by the SQLite database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if err := db.Ping(); err != nil {
		closeErr := db.Close()
		return nil, errors.Join(fmt.Errorf("failed to connect to catalog database: %w", err), closeErr)
	}

	s := &Store{
		db:     db,
		dbPath: dbPath,
		labels: make(map[labelKey]*Label),
	}
	for _, schema := range []string{labelSchema, bookSchema, bookLabelSchema} {
		if _, err := db.Exec(schema); err != nil {
			closeErr := db.Close()
			return nil, errors.Join(fmt.Errorf("failed to create catalog table: %w", err), closeErr)
		}
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// NewBook returns a blank book accumulator, ready to be filled by a lookup.
func (s *Store) NewBook() *Book {
	return &Book{}
}

// Label interns a (type, name) pair, creating the row on first use.
// Concurrent calls for the same pair converge on one identity: the insert
// is a no-op on conflict and the canonical row is read back.
func (s *Store) Label(ctx context.Context, typ LabelType, name string) (*Label, error) {
	key := labelKey{typ, name}

	s.mu.Lock()
	if l, ok := s.labels[key]; ok {
		s.mu.Unlock()
		return l, nil
	}
	s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO labels (type, name) VALUES (?, ?) ON CONFLICT(type, name) DO NOTHING`,
		string(typ), name)
	if err != nil {
		return nil, fmt.Errorf("failed to intern label %s/%q: %w", typ, name, err)
	}

	var id int64
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM labels WHERE type = ? AND name = ?`,
		string(typ), name).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve label %s/%q: %w", typ, name, err)
	}

	l := &Label{ID: id, Type: typ, Name: name}
	s.mu.Lock()
	// Another goroutine may have cached the row first; keep its copy so
	// callers always see one identity per pair.
	if cached, ok := s.labels[key]; ok {
		l = cached
	} else {
		s.labels[key] = l
	}
	s.mu.Unlock()
	return l, nil
}

// LabelIfExists resolves a (type, name) pair without creating it.
// Returns nil when no such label exists.
func (s *Store) LabelIfExists(ctx context.Context, typ LabelType, name string) (*Label, error) {
	key := labelKey{typ, name}

	s.mu.Lock()
	if l, ok := s.labels[key]; ok {
		s.mu.Unlock()
		return l, nil
	}
	s.mu.Unlock()

	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM labels WHERE type = ? AND name = ?`,
		string(typ), name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up label %s/%q: %w", typ, name, err)
	}

	l := &Label{ID: id, Type: typ, Name: name}
	s.mu.Lock()
	if cached, ok := s.labels[key]; ok {
		l = cached
	} else {
		s.labels[key] = l
	}
	s.mu.Unlock()
	return l, nil
}

// ListLabels returns all labels of the given type, ordered by name.
func (s *Store) ListLabels(ctx context.Context, typ LabelType) ([]*Label, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name FROM labels WHERE type = ? ORDER BY name`, string(typ))
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var labels []*Label
	for rows.Next() {
		l := &Label{Type: typ}
		if err := rows.Scan(&l.ID, &l.Name); err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

// SaveBook persists a book and its label associations, returning the book ID.
func (s *Store) SaveBook(ctx context.Context, book *Book) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO books (title, subtitle, isbn, summary, year_published,
			number_of_pages, image_url, language_id, publisher_id, location_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		book.Title, book.Subtitle, book.ISBN, book.Summary,
		book.YearPublished, book.NumberOfPages, book.ImageURL,
		labelID(book.Language), labelID(book.Publisher), labelID(book.Location))
	if err != nil {
		return 0, fmt.Errorf("failed to insert book: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get book id: %w", err)
	}

	pos := 0
	for _, l := range append(append([]*Label{}, book.Authors...), book.Genres...) {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO book_labels (book_id, label_id, position) VALUES (?, ?, ?)`,
			id, l.ID, pos)
		if err != nil {
			return 0, fmt.Errorf("failed to link label %q: %w", l.Name, err)
		}
		pos++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit book: %w", err)
	}
	book.ID = id
	return id, nil
}

// SearchBooks returns books whose title, subtitle or ISBN contains the query,
// case-insensitively, ordered by title.
func (s *Store) SearchBooks(ctx context.Context, query string) ([]*Book, error) {
	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, subtitle, isbn, summary, year_published,
			number_of_pages, image_url, date_added
		FROM books
		WHERE title LIKE ? OR subtitle LIKE ? OR isbn LIKE ?
		ORDER BY title`,
		pattern, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search books: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var books []*Book
	for rows.Next() {
		b := &Book{}
		if err := rows.Scan(&b.ID, &b.Title, &b.Subtitle, &b.ISBN, &b.Summary,
			&b.YearPublished, &b.NumberOfPages, &b.ImageURL, &b.DateAdded); err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		if err := s.loadBookLabels(ctx, b); err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func (s *Store) loadBookLabels(ctx context.Context, b *Book) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.id, l.type, l.name
		FROM book_labels bl JOIN labels l ON l.id = bl.label_id
		WHERE bl.book_id = ?
		ORDER BY bl.position`, b.ID)
	if err != nil {
		return fmt.Errorf("failed to load book labels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		l := &Label{}
		var typ string
		if err := rows.Scan(&l.ID, &typ, &l.Name); err != nil {
			return fmt.Errorf("failed to scan book label: %w", err)
		}
		l.Type = LabelType(typ)
		switch l.Type {
		case Authors:
			b.Authors = append(b.Authors, l)
		case Genres:
			b.Genres = append(b.Genres, l)
		}
	}
	return rows.Err()
}

// Counts returns the number of books and labels in the catalog.
func (s *Store) Counts(ctx context.Context) (books int64, labels int64, err error) {
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&books); err != nil {
		return 0, 0, fmt.Errorf("failed to count books: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM labels`).Scan(&labels); err != nil {
		return 0, 0, fmt.Errorf("failed to count labels: %w", err)
	}
	return books, labels, nil
}

func labelID(l *Label) any {
	if l == nil {
		return nil
	}
	return l.ID
}
