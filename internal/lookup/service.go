package lookup

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/anselm67/bookshelf/internal/catalog"
	"github.com/anselm67/bookshelf/internal/config"
	"github.com/anselm67/bookshelf/internal/isbn"
)

// Binding pairs a source with its enablement predicate. The order of the
// bindings is the fallback priority, fixed at construction.
type Binding struct {
	Source  Source
	Enabled func() bool
}

// Service orchestrates the lookup chain. For each lookup session it runs
// the enabled sources strictly in order, one at a time, merging each
// source's contribution into one accumulated book. Source errors are
// logged and swallowed; the only caller-visible failure is a book with no
// title after every enabled source has run.
type Service struct {
	store LabelStore
	chain []Binding

	counter atomic.Uint64

	mu       sync.Mutex
	sessions map[string]context.CancelFunc
}

// New builds a Service with the standard source chain: Google Books, Open
// Library, WorldCat, iTunes, then the Amazon cover probe, each gated by
// its configuration flag.
func New(store LabelStore) *Service {
	return NewWithChain(store, []Binding{
		{NewGoogleBooks(store), config.UseGoogle},
		{NewOpenLibrary(store), config.UseOpenLibrary},
		{NewWorldCat(store), config.UseWorldCat},
		{NewITunes(store), config.UseITunes},
		{NewAmazon(), config.UseAmazon},
	})
}

// NewWithChain builds a Service over an explicit source chain.
func NewWithChain(store LabelStore, chain []Binding) *Service {
	return &Service{
		store:    store,
		chain:    chain,
		sessions: make(map[string]context.CancelFunc),
	}
}

// Lookup starts an asynchronous lookup for the given ISBN and returns the
// session tag. When the chain completes, onDone is called exactly once
// with the accumulated book if it has a title, nil otherwise. A cancelled
// session delivers no callback.
func (s *Service) Lookup(queried string, onDone func(*catalog.Book)) string {
	tag := fmt.Sprintf("lookup-%d", s.counter.Add(1))

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.sessions[tag] = cancel
	s.mu.Unlock()

	go func() {
		defer s.release(tag)
		book := s.run(ctx, queried)
		if ctx.Err() != nil {
			slog.Debug("Lookup cancelled", "tag", tag, "isbn", queried)
			return
		}
		onDone(book)
	}()

	return tag
}

// Cancel cancels the session identified by tag. Every in-flight request
// issued under the session, including nested sub-requests, is aborted.
// Partial mutations already applied to the book are not rolled back.
func (s *Service) Cancel(tag string) {
	s.mu.Lock()
	cancel, ok := s.sessions[tag]
	delete(s.sessions, tag)
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

// LookupSync runs the lookup chain synchronously. It returns the
// accumulated book if any source produced a title, nil otherwise.
func (s *Service) LookupSync(ctx context.Context, queried string) (*catalog.Book, error) {
	book := s.run(ctx, queried)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return book, nil
}

func (s *Service) run(ctx context.Context, queried string) *catalog.Book {
	normalized := isbn.Normalize(queried)
	book := s.store.NewBook()

	for _, b := range s.chain {
		if ctx.Err() != nil {
			return nil
		}
		if !b.Enabled() {
			slog.Debug("Source disabled, skipping", "source", b.Source.Name())
			continue
		}

		matched, err := b.Source.Lookup(ctx, normalized, book)
		switch {
		case err != nil:
			// A misbehaving source never aborts the whole lookup.
			slog.Warn("Source lookup failed", "source", b.Source.Name(), "isbn", normalized, "error", err)
		case !matched:
			slog.Debug("Source had no match", "source", b.Source.Name(), "isbn", normalized)
		default:
			slog.Debug("Source matched", "source", b.Source.Name(), "isbn", normalized, "title", book.Title)
		}
	}

	if book.Title == "" {
		return nil
	}
	if book.ISBN == "" {
		book.ISBN = normalized
	}
	return book
}

// PingAll probes every enabled source and returns the outcome per source
// name; nil entries mean the source is reachable.
func (s *Service) PingAll(ctx context.Context) map[string]error {
	results := make(map[string]error)
	for _, b := range s.chain {
		if !b.Enabled() {
			continue
		}
		results[b.Source.Name()] = b.Source.Ping(ctx)
	}
	return results
}

func (s *Service) release(tag string) {
	s.mu.Lock()
	cancel, ok := s.sessions[tag]
	delete(s.sessions, tag)
	s.mu.Unlock()
	if ok {
		cancel()
	}
}
