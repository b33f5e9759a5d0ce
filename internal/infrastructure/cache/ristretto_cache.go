package cache

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"viberate/internal/errs"
	"viberate/internal/ports"
)

// MemoryCache is an in-process cache backed by ristretto. Values are weighed
// by their byte length against maxCost.
type MemoryCache struct {
	c *ristretto.Cache[string, string]
}

var _ ports.Cache = (*MemoryCache)(nil)

func NewMemoryCache(maxCost int64) (*MemoryCache, error) {
	if maxCost <= 0 {
		maxCost = 1 << 20
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters: maxCost / 100 * 10,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, errs.Wrap(err, "create ristretto cache")
	}
	return &MemoryCache{c: c}, nil
}

func (m *MemoryCache) Get(ctx context.Context, key string) (string, bool, error) {
	trimmedKey, err := checkKey(ctx, key)
	if err != nil {
		return "", false, err
	}
	value, found := m.c.Get(trimmedKey)
	return value, found, nil
}

// Set waits for the write buffer so a following Get observes the value.
func (m *MemoryCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	trimmedKey, err := checkKey(ctx, key)
	if err != nil {
		return err
	}
	m.c.SetWithTTL(trimmedKey, value, int64(len(value))+1, ttl)
	m.c.Wait()
	return nil
}

func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	trimmedKey, err := checkKey(ctx, key)
	if err != nil {
		return err
	}
	m.c.Del(trimmedKey)
	return nil
}

func (m *MemoryCache) Close() {
	m.c.Close()
}
