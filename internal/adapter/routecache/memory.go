package routecache

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/Strob0t/taskgate/internal/port/cache"
)

// Memory is the in-process L1 cache backed by ristretto.
type Memory struct {
	c *ristretto.Cache[string, []byte]
}

var _ cache.Cache = (*Memory)(nil)

// NewMemory creates a ristretto cache holding at most maxSizeMB of values.
func NewMemory(maxSizeMB int64) (*Memory, error) {
	maxCost := maxSizeMB << 20
	if maxCost <= 0 {
		return nil, fmt.Errorf("routecache: size must be positive, got %d MB", maxSizeMB)
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxCost / 100 * 10, // match results are small, ~10x expected items
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("routecache: ristretto: %w", err)
	}
	return &Memory{c: c}, nil
}

// Get returns the cached value for key.
func (m *Memory) Get(_ context.Context, key string) (data []byte, ok bool, err error) {
	val, found := m.c.Get(key)
	if !found {
		return nil, false, nil
	}
	return val, true, nil
}

// Set stores value for ttl. Ristretto admits entries asynchronously, so
// Set waits for the write buffer to drain before returning.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.c.SetWithTTL(key, value, int64(len(value)), ttl)
	m.c.Wait()
	return nil
}

// Delete removes key.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.c.Del(key)
	return nil
}

// Close releases the cache goroutines.
func (m *Memory) Close() {
	m.c.Close()
}
