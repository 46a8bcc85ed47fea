package service

import (
	"context"
	"errors"
	"path"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rl1809/shop-inventory/internal/adapter/storage"
)

func newTestStore(t *testing.T) *storage.SQLAdapter {
	t.Helper()

	ctx := context.Background()
	db, err := storage.OpenSQLite(ctx, filepath.Join(t.TempDir(), "shop.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := storage.NewSQLAdapter(db, storage.SQLite)
	require.NoError(t, store.Migrate(ctx))
	return store
}

var errCacheDown = errors.New("cache down")

// Mock CacheRepository
type mockCacheRepo struct {
	mu      sync.Mutex
	entries map[string][]byte
	gets    int
	hits    int
	sets    int
	deletes int
	failing bool
}

func newMockCacheRepo() *mockCacheRepo {
	return &mockCacheRepo{entries: make(map[string][]byte)}
}

func (m *mockCacheRepo) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gets++
	if m.failing {
		return nil, false, errCacheDown
	}
	v, ok := m.entries[key]
	if ok {
		m.hits++
	}
	return v, ok, nil
}

func (m *mockCacheRepo) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sets++
	if m.failing {
		return errCacheDown
	}
	m.entries[key] = value
	return nil
}

func (m *mockCacheRepo) DeletePattern(ctx context.Context, pattern string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deletes++
	if m.failing {
		return 0, errCacheDown
	}
	n := 0
	for k := range m.entries {
		if ok, _ := path.Match(pattern, k); ok {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

func (m *mockCacheRepo) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
