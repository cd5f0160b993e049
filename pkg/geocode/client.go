// Package geocode resolves free-text place names to coordinates using
// Nominatim (primary) and the Google Geocoding API (fallback).
package geocode

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Client geocodes place names.
type Client interface {
	// Geocode resolves a free-text query. A query nobody can place returns
	// Matched=false and a nil error.
	Geocode(ctx context.Context, query string) (*Result, error)
}

// Result holds the geocoding output for a query.
type Result struct {
	Latitude    float64 `json:"lat"`
	Longitude   float64 `json:"lng"`
	Source      string  `json:"source"` // "nominatim", "google" or "cache"
	DisplayName string  `json:"display_name,omitempty"`
	Matched     bool    `json:"matched"`
}

// Provider is a single geocoding backend.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, query string) (*Result, error)
	Available() bool
}

// Cache stores results by CacheKey. Get reports ok=false on a miss.
type Cache interface {
	GetGeocode(ctx context.Context, key string) (*Result, bool, error)
	PutGeocode(ctx context.Context, key string, r *Result) error
}

// CacheKey returns the SHA-256 hex of the normalized query: NFKC, case
// folded, whitespace collapsed.
func CacheKey(query string) string {
	normalized := cases.Fold().String(norm.NFKC.String(strings.Join(strings.Fields(query), " ")))
	return fmt.Sprintf("%x", sha256.Sum256([]byte(normalized)))
}

// CascadeClient tries providers in order until one matches.
type CascadeClient struct {
	providers []Provider
	cache     Cache
}

// CascadeOption configures the CascadeClient.
type CascadeOption func(*CascadeClient)

// WithCache enables result caching, including negative results.
func WithCache(c Cache) CascadeOption {
	return func(cc *CascadeClient) {
		cc.cache = c
	}
}

// NewCascadeClient creates a CascadeClient that tries providers in order.
func NewCascadeClient(providers []Provider, opts ...CascadeOption) *CascadeClient {
	c := &CascadeClient{providers: providers}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Geocode implements Client. Provider errors are logged and the next
// provider is tried; if every provider errors, the last error is returned.
func (c *CascadeClient) Geocode(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return &Result{Matched: false, Source: "cascade"}, nil
	}

	key := CacheKey(query)
	if c.cache != nil {
		cached, ok, err := c.cache.GetGeocode(ctx, key)
		if err != nil {
			zap.L().Debug("geocode: cache lookup failed", zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	var lastErr error
	answered := false
	for _, p := range c.providers {
		if !p.Available() {
			continue
		}
		result, err := p.Geocode(ctx, query)
		if err != nil {
			lastErr = err
			zap.L().Debug("geocode: provider error, trying next",
				zap.String("provider", p.Name()),
				zap.String("query", query),
				zap.Error(err),
			)
			continue
		}
		answered = true
		if result != nil && result.Matched {
			c.store(ctx, key, result)
			return result, nil
		}
	}

	if !answered && lastErr != nil {
		return nil, lastErr
	}

	noMatch := &Result{Matched: false, Source: "cascade"}
	c.store(ctx, key, noMatch)
	return noMatch, nil
}

func (c *CascadeClient) store(ctx context.Context, key string, r *Result) {
	if c.cache == nil {
		return
	}
	if err := c.cache.PutGeocode(ctx, key, r); err != nil {
		zap.L().Warn("geocode: cache store failed", zap.Error(err))
	}
}
