package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/alecthomas/kong"
	"github.com/lepinkainen/humanlog"
	"github.com/spf13/viper"

	"github.com/anselm67/bookshelf/internal/cache"
	"github.com/anselm67/bookshelf/internal/catalog"
	"github.com/anselm67/bookshelf/internal/config"
	"github.com/anselm67/bookshelf/internal/isbn"
	"github.com/anselm67/bookshelf/internal/lookup"
)

// CLI represents the complete command structure for the bookshelf application
type CLI struct {
	// Global flags
	CatalogDBFile string `help:"Path to catalog SQLite database file" default:"./bookshelf.db"`
	Verbose       bool   `short:"v" help:"Enable debug logging"`

	// Cache flags
	CacheDBFile string `help:"Path to cache SQLite database file" default:"./cache.db"`
	CacheTTL    string `help:"Cache time-to-live duration (e.g., 720h for 30 days)" default:"720h"`

	// Source toggles
	Google      bool `help:"Query Google Books" default:"true" negatable:""`
	OpenLibrary bool `name:"openlibrary" help:"Query Open Library" default:"true" negatable:""`
	WorldCat    bool `name:"worldcat" help:"Query WorldCat (needs worldcat.wskey in config)" default:"false" negatable:""`
	ITunes      bool `name:"itunes" help:"Query the iTunes store" default:"true" negatable:""`
	Amazon      bool `help:"Probe Amazon for cover images" default:"true" negatable:""`

	OnlyExistingGenres bool `help:"Only attach genres that already exist in the catalog"`

	Lookup LookupCmd `cmd:"" help:"Look up a book by ISBN without saving it"`
	Add    AddCmd    `cmd:"" help:"Look up a book by ISBN and add it to the catalog"`
	Search SearchCmd `cmd:"" help:"Search the catalog by title, subtitle or ISBN"`
	Labels LabelsCmd `cmd:"" help:"List catalog labels"`
	Stats  StatsCmd  `cmd:"" help:"Show catalog statistics"`
	Cache  CacheCmd  `cmd:"" help:"Manage the lookup cache"`
	Ping   PingCmd   `cmd:"" help:"Check connectivity to the enabled lookup sources"`
}

// CacheCmd groups the cache maintenance subcommands.
type CacheCmd struct {
	Clear cache.ClearCmd `cmd:"" help:"Clear cached responses for one source"`
}

// LookupCmd represents the lookup command
type LookupCmd struct {
	ISBNs   []string      `arg:"" name:"isbn" help:"ISBNs to look up"`
	Timeout time.Duration `help:"Give up on each lookup after this long" default:"60s"`
}

// AddCmd represents the add command
type AddCmd struct {
	ISBNs   []string      `arg:"" name:"isbn" help:"ISBNs to look up and add"`
	Timeout time.Duration `help:"Give up on each lookup after this long" default:"60s"`
}

// SearchCmd represents the search command
type SearchCmd struct {
	Query string `arg:"" help:"Text to search for"`
}

// LabelsCmd represents the labels command
type LabelsCmd struct {
	Type string `arg:"" optional:"" help:"Label type to list: authors, genres, location, publisher, language (default: all)"`
}

// StatsCmd represents the stats command
type StatsCmd struct{}

// PingCmd represents the ping command
type PingCmd struct {
	Timeout time.Duration `help:"Per-source probe timeout" default:"10s"`
}

// Execute runs the Kong-based CLI
func Execute() {
	initConfig()

	var cli CLI

	ctx := kong.Parse(&cli,
		kong.Name("bookshelf"),
		kong.Description("Look up book metadata by ISBN and keep it in a local catalog."),
		kong.UsageOnError(),
	)

	initLogging(cli.Verbose)
	updateGlobalConfig(&cli)

	err := ctx.Run()
	if err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func initConfig() {
	config.SetDefaults()

	viper.SetConfigName("bookshelf")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("Fatal error config file", "error", err)
			os.Exit(1)
		}
	}
}

func updateGlobalConfig(cli *CLI) {
	viper.Set(config.KeyCatalogDB, cli.CatalogDBFile)
	viper.Set(config.KeyCacheDB, cli.CacheDBFile)
	viper.Set(config.KeyCacheTTL, cli.CacheTTL)

	viper.Set(config.KeyUseGoogle, cli.Google)
	viper.Set(config.KeyUseOpenLibrary, cli.OpenLibrary)
	viper.Set(config.KeyUseITunes, cli.ITunes)
	viper.Set(config.KeyUseAmazon, cli.Amazon)
	// The WorldCat flag only forces the source off; turning it on still
	// requires a wskey in the config file.
	if cli.WorldCat {
		viper.Set(config.KeyUseWorldCat, true)
	}

	if cli.OnlyExistingGenres {
		viper.Set(config.KeyOnlyExistingGenres, true)
	}
}

// Run methods for each command

func (l *LookupCmd) Run() error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	svc := lookup.New(store)
	for i, queried := range l.ISBNs {
		if i > 0 {
			fmt.Println()
		}
		book, err := runLookup(svc, queried, l.Timeout)
		if err != nil {
			return err
		}
		printBook(book)
	}
	return nil
}

func (a *AddCmd) Run() error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	svc := lookup.New(store)
	for i, queried := range a.ISBNs {
		if i > 0 {
			fmt.Println()
		}
		book, err := runLookup(svc, queried, a.Timeout)
		if err != nil {
			return err
		}
		id, err := store.SaveBook(context.Background(), book)
		if err != nil {
			return err
		}
		printBook(book)
		fmt.Printf("Added to catalog with id %d\n", id)
	}
	return nil
}

// runLookup validates one ISBN and runs the source chain synchronously.
func runLookup(svc *lookup.Service, queried string, timeout time.Duration) (*catalog.Book, error) {
	normalized := isbn.Normalize(queried)
	if len(normalized) != 13 || !isbn.ValidEAN13(normalized) {
		return nil, fmt.Errorf("%q is not a valid 13-digit ISBN", queried)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	book, err := svc.LookupSync(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, fmt.Errorf("no source had a match for %s", normalized)
	}
	return book, nil
}

func (s *SearchCmd) Run() error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	books, err := store.SearchBooks(context.Background(), s.Query)
	if err != nil {
		return err
	}
	if len(books) == 0 {
		fmt.Println("No matches.")
		return nil
	}
	for _, b := range books {
		line := b.Title
		if authors := b.AuthorNames(); authors != "" {
			line += " by " + authors
		}
		if b.YearPublished != "" {
			line += " (" + b.YearPublished + ")"
		}
		fmt.Printf("%6d  %s\n", b.ID, line)
	}
	return nil
}

func (l *LabelsCmd) Run() error {
	types := catalog.AllLabelTypes
	if l.Type != "" {
		typ, err := catalog.ParseLabelType(l.Type)
		if err != nil {
			return err
		}
		types = []catalog.LabelType{typ}
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	for _, typ := range types {
		labels, err := store.ListLabels(context.Background(), typ)
		if err != nil {
			return err
		}
		if len(labels) == 0 {
			continue
		}
		fmt.Printf("%s:\n", typ)
		for _, label := range labels {
			fmt.Printf("  %s\n", label.Name)
		}
	}
	return nil
}

func (s *StatsCmd) Run() error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	books, labels, err := store.Counts(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Books:  %d\nLabels: %d\n", books, labels)
	return nil
}

func (p *PingCmd) Run() error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), p.Timeout)
	defer cancel()

	results := lookup.New(store).PingAll(ctx)
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := 0
	for _, name := range names {
		if err := results[name]; err != nil {
			failed++
			fmt.Printf("%-16s FAILED: %v\n", name, err)
		} else {
			fmt.Printf("%-16s ok\n", name)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d source(s) unreachable", failed)
	}
	return nil
}

func openStore() (*catalog.Store, error) {
	return catalog.NewStore(config.CatalogDB())
}

func printBook(book *catalog.Book) {
	fmt.Printf("Title:     %s\n", book.Title)
	if book.Subtitle != "" {
		fmt.Printf("Subtitle:  %s\n", book.Subtitle)
	}
	if authors := book.AuthorNames(); authors != "" {
		fmt.Printf("Authors:   %s\n", authors)
	}
	if book.ISBN != "" {
		fmt.Printf("ISBN:      %s\n", book.ISBN)
	}
	if book.YearPublished != "" {
		fmt.Printf("Published: %s\n", book.YearPublished)
	}
	if book.Publisher != nil {
		fmt.Printf("Publisher: %s\n", book.Publisher)
	}
	if book.Language != nil {
		fmt.Printf("Language:  %s\n", book.Language)
	}
	if book.NumberOfPages != "" {
		fmt.Printf("Pages:     %s\n", book.NumberOfPages)
	}
	if genres := book.GenreNames(); genres != "" {
		fmt.Printf("Genres:    %s\n", genres)
	}
	if book.ImageURL != "" {
		fmt.Printf("Cover:     %s\n", book.ImageURL)
	}
	if book.Summary != "" {
		fmt.Printf("\n%s\n", book.Summary)
	}
}

func initLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := humanlog.NewHandler(os.Stderr, &humanlog.Options{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}
