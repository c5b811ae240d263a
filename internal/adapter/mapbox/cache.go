package mapbox

import (
	"container/list"
	"context"
	"math"
	"sync"

	"github.com/couchcryptid/seismic-review-service/internal/domain"
	"github.com/couchcryptid/seismic-review-service/internal/observability"
)

// coordPrecision rounds coordinates to about 11 m before they key the cache.
const coordPrecision = 1e4

// CachedGeocoder wraps a Geocoder with an in-memory LRU cache keyed by
// rounded coordinates.
type CachedGeocoder struct {
	inner   domain.Geocoder
	cache   *lruCache[coordKey, domain.GeocodingResult]
	metrics *observability.Metrics
}

type coordKey struct {
	lat, lon int64
}

func keyFor(lat, lon float64) coordKey {
	return coordKey{
		lat: int64(math.Round(lat * coordPrecision)),
		lon: int64(math.Round(lon * coordPrecision)),
	}
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner domain.Geocoder, maxEntries int, metrics *observability.Metrics) *CachedGeocoder {
	return &CachedGeocoder{
		inner:   inner,
		cache:   newLRUCache[coordKey, domain.GeocodingResult](maxEntries),
		metrics: metrics,
	}
}

func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.GeocodingResult, error) {
	key := keyFor(lat, lon)
	if result, ok := c.cache.get(key); ok {
		c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return result, nil
	}
	c.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	result, err := c.inner.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		return result, err
	}
	// Empty results are not cached so a later review can retry them.
	if result.FormattedAddress != "" {
		c.cache.put(key, result)
	}
	return result, nil
}

// lruCache is a thread-safe LRU cache. The front of order is the most
// recently used entry.
type lruCache[K comparable, V any] struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[K]*list.Element
	order      *list.List
}

type lruEntry[K comparable, V any] struct {
	key   K
	value V
}

func newLRUCache[K comparable, V any](maxEntries int) *lruCache[K, V] {
	return &lruCache[K, V]{
		maxEntries: max(maxEntries, 1),
		entries:    make(map[K]*list.Element),
		order:      list.New(),
	}
}

func (c *lruCache[K, V]) get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*lruEntry[K, V]).value, true
}

func (c *lruCache[K, V]) put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*lruEntry[K, V]).value = value
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&lruEntry[K, V]{key: key, value: value})
	if c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*lruEntry[K, V]).key)
	}
}

func (c *lruCache[K, V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
