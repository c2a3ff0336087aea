// Package config holds the viper-backed application configuration:
// which lookup sources are enabled, service credentials, and the catalog
// and cache database locations.
package config

import (
	"github.com/spf13/viper"
)

// Configuration keys.
const (
	KeyCatalogDB          = "catalog.dbfile"
	KeyCacheDB            = "cache.dbfile"
	KeyCacheTTL           = "cache.ttl"
	KeyUseGoogle          = "sources.google"
	KeyUseOpenLibrary     = "sources.openlibrary"
	KeyUseWorldCat        = "sources.worldcat"
	KeyUseITunes          = "sources.itunes"
	KeyUseAmazon          = "sources.amazon"
	KeyWorldCatKey        = "worldcat.wskey"
	KeyOnlyExistingGenres = "lookup.only_existing_genres"
)

// SetDefaults registers default values for every configuration key.
func SetDefaults() {
	viper.SetDefault(KeyCatalogDB, "./bookshelf.db")
	viper.SetDefault(KeyCacheDB, "./cache.db")
	viper.SetDefault(KeyCacheTTL, "720h") // 30 days

	viper.SetDefault(KeyUseGoogle, true)
	viper.SetDefault(KeyUseOpenLibrary, true)
	viper.SetDefault(KeyUseWorldCat, false) // requires a wskey
	viper.SetDefault(KeyUseITunes, true)
	viper.SetDefault(KeyUseAmazon, true)

	viper.SetDefault(KeyWorldCatKey, "")
	viper.SetDefault(KeyOnlyExistingGenres, false)
}

// UseGoogle reports whether the Google Books source is enabled.
func UseGoogle() bool { return viper.GetBool(KeyUseGoogle) }

// UseOpenLibrary reports whether the Open Library source is enabled.
func UseOpenLibrary() bool { return viper.GetBool(KeyUseOpenLibrary) }

// UseWorldCat reports whether the WorldCat source is enabled.
// WorldCat additionally needs a wskey; without one the source stays off.
func UseWorldCat() bool {
	return viper.GetBool(KeyUseWorldCat) && WorldCatKey() != ""
}

// UseITunes reports whether the iTunes source is enabled.
func UseITunes() bool { return viper.GetBool(KeyUseITunes) }

// UseAmazon reports whether the Amazon cover probe is enabled.
func UseAmazon() bool { return viper.GetBool(KeyUseAmazon) }

// WorldCatKey returns the WorldCat API key.
func WorldCatKey() string { return viper.GetString(KeyWorldCatKey) }

// OnlyExistingGenres reports whether lookups may only attach genres that
// already exist in the catalog, silently dropping unknown categories.
func OnlyExistingGenres() bool { return viper.GetBool(KeyOnlyExistingGenres) }

// CatalogDB returns the path of the catalog database file.
func CatalogDB() string { return viper.GetString(KeyCatalogDB) }
