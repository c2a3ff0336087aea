package cache

import (
	"fmt"
	"log/slog"

	"github.com/spf13/viper"
)

// ClearCmd represents the cache clear subcommand.
type ClearCmd struct {
	Source string `arg:"" help:"Cache source to clear: googlebooks, openlibrary, worldcat, itunes" required:""`
}

func (c *ClearCmd) Run() error {
	cacheDB := viper.GetString("cache.dbfile")

	slog.Info("Clearing cache", "source", c.Source, "database", cacheDB)

	tableName := c.Source + "_cache"
	if !ValidTableNames[tableName] {
		return fmt.Errorf("invalid cache source %q; valid sources are: googlebooks, openlibrary, worldcat, itunes", c.Source)
	}

	db, err := Global()
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}

	rowsDeleted, err := db.Invalidate(tableName)
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	slog.Info("Cache cleared", "source", c.Source, "rows_deleted", rowsDeleted)
	return nil
}
