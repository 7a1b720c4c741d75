package mapbox

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/couchcryptid/gridcap-etl/internal/domain"
	"github.com/couchcryptid/gridcap-etl/internal/observability"
)

// CachedGeocoder wraps a Geocoder with an in-memory LRU cache keyed by the
// normalized place, so spelling variants of one substation share an entry.
type CachedGeocoder struct {
	inner   domain.Geocoder
	cache   *lru.Cache[string, domain.GeocodingResult]
	metrics *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a geocoder holding at
// most maxEntries results (at least one). metrics may be nil.
func NewCachedGeocoder(inner domain.Geocoder, maxEntries int, metrics *observability.Metrics) *CachedGeocoder {
	// lru.New only fails for a non-positive size.
	cache, _ := lru.New[string, domain.GeocodingResult](max(maxEntries, 1))
	return &CachedGeocoder{
		inner:   inner,
		cache:   cache,
		metrics: metrics,
	}
}

func (c *CachedGeocoder) ForwardGeocode(ctx context.Context, place domain.Place) (domain.GeocodingResult, error) {
	key := cacheKey(place)
	if result, ok := c.cache.Get(key); ok {
		c.observe("hit")
		return result, nil
	}
	c.observe("miss")
	result, err := c.inner.ForwardGeocode(ctx, place)
	if err != nil {
		return result, err
	}
	// Only cache non-empty results so transient "not found" responses can be retried.
	if result.FormattedAddress != "" {
		if c.cache.Add(key, result) {
			c.observe("evict")
		}
	}
	return result, nil
}

// Len returns the number of cached results.
func (c *CachedGeocoder) Len() int {
	return c.cache.Len()
}

func cacheKey(p domain.Place) string {
	return "fwd:" + domain.NormalizeName(p.Name) + "|" +
		domain.NormalizeName(p.Municipality) + "|" + domain.NormalizeName(p.District)
}

func (c *CachedGeocoder) observe(result string) {
	if c.metrics != nil {
		c.metrics.GeocodeCache.WithLabelValues(result).Inc()
	}
}
