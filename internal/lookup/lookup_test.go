package lookup

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/anselm67/bookshelf/internal/cache"
	"github.com/anselm67/bookshelf/internal/catalog"
	"github.com/anselm67/bookshelf/internal/config"
)

// memStore is an in-memory LabelStore for tests.
type memStore struct {
	mu     sync.Mutex
	nextID int64
	labels map[catalog.LabelType]map[string]*catalog.Label
}

func newMemStore() *memStore {
	return &memStore{labels: make(map[catalog.LabelType]map[string]*catalog.Label)}
}

func (m *memStore) Label(_ context.Context, typ catalog.LabelType, name string) (*catalog.Label, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byName := m.labels[typ]
	if byName == nil {
		byName = make(map[string]*catalog.Label)
		m.labels[typ] = byName
	}
	if l, ok := byName[name]; ok {
		return l, nil
	}
	m.nextID++
	l := &catalog.Label{ID: m.nextID, Type: typ, Name: name}
	byName[name] = l
	return l, nil
}

func (m *memStore) LabelIfExists(_ context.Context, typ catalog.LabelType, name string) (*catalog.Label, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.labels[typ][name]; ok {
		return l, nil
	}
	return nil, nil
}

func (m *memStore) NewBook() *catalog.Book {
	return &catalog.Book{}
}

// setupTest resets configuration and points the lookup cache at a
// throwaway database.
func setupTest(t *testing.T) {
	t.Helper()

	viper.Reset()
	config.SetDefaults()
	viper.Set("cache.dbfile", filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, cache.ResetGlobal())

	t.Cleanup(func() {
		_ = cache.ResetGlobal()
		viper.Reset()
	})
}
