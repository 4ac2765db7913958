package features

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

type cacheKey struct {
	key    string
	offset int
}

// Cache memoises window features in half precision. A nil *Cache is valid
// and caches nothing.
type Cache struct {
	lru    *lru.Cache
	hits   uint64
	misses uint64
}

// NewCache returns a cache of size entries, or nil when size <= 0.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		return nil, nil
	}
	l, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrap(err, "feature cache")
	}
	return &Cache{lru: l}, nil
}

// Get returns the features stored for the window of key starting at offset.
func (c *Cache) Get(key string, offset int) ([]float64, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.lru.Get(cacheKey{key, offset})
	if !ok {
		atomic.AddUint64(&c.misses, 1)
		return nil, false
	}
	atomic.AddUint64(&c.hits, 1)
	return widen(v.([]float16.Float16)), true
}

// Add stores feat for the window of key starting at offset.
func (c *Cache) Add(key string, offset int, feat []float64) {
	if c == nil {
		return
	}
	c.lru.Add(cacheKey{key, offset}, narrow(feat))
}

// Stats reports hits and misses.
func (c *Cache) Stats() (hits, misses uint64) {
	if c == nil {
		return 0, 0
	}
	return atomic.LoadUint64(&c.hits), atomic.LoadUint64(&c.misses)
}

func narrow(feat []float64) []float16.Float16 {
	out := make([]float16.Float16, len(feat))
	for i, v := range feat {
		out[i] = float16.Fromfloat32(float32(v))
	}
	return out
}

func widen(h []float16.Float16) []float64 {
	out := make([]float64, len(h))
	for i, v := range h {
		out[i] = float64(v.Float32())
	}
	return out
}

// Quantize rounds feat to the precision kept by the cache, so cached and
// freshly computed features are identical.
func Quantize(feat []float64) []float64 {
	return widen(narrow(feat))
}
