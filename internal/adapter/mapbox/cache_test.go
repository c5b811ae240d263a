package mapbox

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/seismic-review-service/internal/domain"
)

type countingGeocoder struct {
	calls  int
	result domain.GeocodingResult
	err    error
}

func (m *countingGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (domain.GeocodingResult, error) {
	m.calls++
	return m.result, m.err
}

func TestCachedGeocoder_CacheHit(t *testing.T) {
	inner := &countingGeocoder{result: domain.GeocodingResult{FormattedAddress: "Córdoba, Argentina"}}
	metrics := testMetrics()
	cached := NewCachedGeocoder(inner, 10, metrics)

	r1, err := cached.ReverseGeocode(context.Background(), -31.4201, -64.1888)
	require.NoError(t, err)
	r2, err := cached.ReverseGeocode(context.Background(), -31.4201, -64.1888)
	require.NoError(t, err)

	assert.Equal(t, r1, r2)
	assert.Equal(t, 1, inner.calls, "should only call inner once")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.GeocodeCache.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.GeocodeCache.WithLabelValues("miss")), 0)
}

func TestCachedGeocoder_NearbyCoordinatesShareEntry(t *testing.T) {
	inner := &countingGeocoder{result: domain.GeocodingResult{FormattedAddress: "Córdoba, Argentina"}}
	cached := NewCachedGeocoder(inner, 10, testMetrics())

	_, _ = cached.ReverseGeocode(context.Background(), -31.42010, -64.18880)
	_, _ = cached.ReverseGeocode(context.Background(), -31.42012, -64.18879)
	assert.Equal(t, 1, inner.calls)

	_, _ = cached.ReverseGeocode(context.Background(), -31.43, -64.18880)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedGeocoder_EmptyResultNotCached(t *testing.T) {
	inner := &countingGeocoder{}
	cached := NewCachedGeocoder(inner, 10, testMetrics())

	_, _ = cached.ReverseGeocode(context.Background(), -55, -40)
	_, _ = cached.ReverseGeocode(context.Background(), -55, -40)

	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 0, cached.cache.len())
}

func TestCachedGeocoder_ErrorNotCached(t *testing.T) {
	inner := &countingGeocoder{err: errors.New("boom")}
	cached := NewCachedGeocoder(inner, 10, testMetrics())

	_, err := cached.ReverseGeocode(context.Background(), -31.4, -64.2)
	require.Error(t, err)
	assert.Equal(t, 0, cached.cache.len())
}

func TestLRUCache_BasicGetPut(t *testing.T) {
	c := newLRUCache[string, string](3)

	c.put("a", "A")
	c.put("b", "B")

	v, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A", v)

	_, ok = c.get("missing")
	assert.False(t, ok)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache[string, string](2)

	c.put("a", "A")
	c.put("b", "B")
	c.put("c", "C")

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")

	v, ok := c.get("b")
	assert.True(t, ok)
	assert.Equal(t, "B", v)
	assert.Equal(t, 2, c.len())
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newLRUCache[string, string](2)

	c.put("a", "A")
	c.put("b", "B")
	c.get("a")
	c.put("c", "C")

	_, ok := c.get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")
	_, ok = c.get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache[string, string](2)

	c.put("a", "A1")
	c.put("a", "A2")

	v, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A2", v)
	assert.Equal(t, 1, c.len())
}
