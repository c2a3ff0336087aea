package cache

// SQL schemas for the per-source cache tables.
// All tables use "cache_key" as the primary key column; the key is the
// normalized ISBN the source was queried with.

// GoogleBooksSchema defines the schema for the Google Books cache.
const GoogleBooksSchema = `
CREATE TABLE IF NOT EXISTS googlebooks_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_googlebooks_cached_at ON googlebooks_cache(cached_at);
`

// OpenLibrarySchema defines the schema for the Open Library cache.
const OpenLibrarySchema = `
CREATE TABLE IF NOT EXISTS openlibrary_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_openlibrary_cached_at ON openlibrary_cache(cached_at);
`

// WorldCatSchema defines the schema for the WorldCat cache.
const WorldCatSchema = `
CREATE TABLE IF NOT EXISTS worldcat_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_worldcat_cached_at ON worldcat_cache(cached_at);
`

// ITunesSchema defines the schema for the iTunes cache.
const ITunesSchema = `
CREATE TABLE IF NOT EXISTS itunes_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_itunes_cached_at ON itunes_cache(cached_at);
`

// AllSchemas contains all cache table schemas for initialization.
var AllSchemas = []string{
	GoogleBooksSchema,
	OpenLibrarySchema,
	WorldCatSchema,
	ITunesSchema,
}

// ValidTableNames is the whitelist of allowed cache table names, used to
// prevent SQL injection when interpolating table names.
var ValidTableNames = map[string]bool{
	"googlebooks_cache": true,
	"openlibrary_cache": true,
	"worldcat_cache":    true,
	"itunes_cache":      true,
}
