package foursquare

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Cache stores explore results by query key.
type Cache interface {
	GetVenues(ctx context.Context, key string) ([]Venue, bool, error)
	PutVenues(ctx context.Context, key string, venues []Venue) error
}

// QueryKey identifies a query for caching. Coordinates are rounded to
// six decimals (about 0.1 m).
func QueryKey(q Query) string {
	return fmt.Sprintf("%.6f,%.6f|r=%d|l=%d", q.Lat, q.Lng, q.Radius, q.Limit)
}

// CachedRetriever wraps a Retriever with a read-through cache. Cache
// failures are logged and fall through to the wrapped retriever.
type CachedRetriever struct {
	next  Retriever
	cache Cache
}

// NewCachedRetriever returns a Retriever that consults cache before next.
func NewCachedRetriever(next Retriever, cache Cache) *CachedRetriever {
	return &CachedRetriever{next: next, cache: cache}
}

// Explore implements Retriever.
func (c *CachedRetriever) Explore(ctx context.Context, q Query) ([]Venue, error) {
	key := QueryKey(q)
	venues, ok, err := c.cache.GetVenues(ctx, key)
	if err != nil {
		zap.L().Warn("foursquare: cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		return venues, nil
	}

	venues, err = c.next.Explore(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := c.cache.PutVenues(ctx, key, venues); err != nil {
		zap.L().Warn("foursquare: cache write failed", zap.String("key", key), zap.Error(err))
	}
	return venues, nil
}
