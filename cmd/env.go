package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"googlemaps.github.io/maps"

	"github.com/sells-group/venuecluster/internal/catalog"
	"github.com/sells-group/venuecluster/internal/config"
	"github.com/sells-group/venuecluster/internal/export"
	"github.com/sells-group/venuecluster/internal/fetcher"
	"github.com/sells-group/venuecluster/internal/monitoring"
	"github.com/sells-group/venuecluster/internal/pipeline"
	"github.com/sells-group/venuecluster/internal/resilience"
	"github.com/sells-group/venuecluster/internal/store"
	"github.com/sells-group/venuecluster/pkg/foursquare"
	"github.com/sells-group/venuecluster/pkg/geocode"
)

// initStore opens and migrates the SQLite cache. It returns nil when the
// cache is disabled.
func initStore(ctx context.Context) (*store.SQLiteStore, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	day := 24 * time.Hour
	st, err := store.NewSQLite(cfg.Cache.Path,
		store.WithGeocodeTTL(time.Duration(cfg.Cache.GeocodeTTLDays)*day),
		store.WithVenueTTL(time.Duration(cfg.Cache.VenueTTLDays)*day),
	)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// requireStore is initStore for commands that only work with the cache.
func requireStore(ctx context.Context) (*store.SQLiteStore, error) {
	if !cfg.Cache.Enabled {
		return nil, eris.New("cache.enabled is false; run history lives in the cache database")
	}
	return initStore(ctx)
}

// newCatalogBuilder loads city sources and wires the HTTP fetcher.
func newCatalogBuilder(c *config.Config) (*catalog.Builder, error) {
	sources := catalog.DefaultSources()
	if c.Catalog.SourcesFile != "" {
		loaded, err := catalog.LoadSources(c.Catalog.SourcesFile)
		if err != nil {
			return nil, err
		}
		sources = loaded
	}
	return catalog.NewBuilder(fetcher.NewHTTPFetcher(catalogHTTPOptions(c)), sources), nil
}

// catalogHTTPOptions maps the catalog section onto fetcher options.
func catalogHTTPOptions(c *config.Config) fetcher.HTTPOptions {
	retry := resilience.FromAttempts(c.Catalog.MaxAttempts,
		time.Duration(c.Catalog.RetryBackoffMS)*time.Millisecond)
	return fetcher.HTTPOptions{
		UserAgent:   c.Catalog.UserAgent,
		Timeout:     time.Duration(c.Catalog.TimeoutSecs) * time.Second,
		MaxAttempts: retry.MaxAttempts,
		Retry:       &retry,
	}
}

// newGeocoder builds the Nominatim-then-Google cascade. cache may be nil.
func newGeocoder(c *config.Config, cache geocode.Cache) geocode.Client {
	timeout := time.Duration(c.Geocode.TimeoutSecs) * time.Second
	providers := []geocode.Provider{
		geocode.NewNominatimProvider(c.Geocode.UserAgent,
			geocode.WithNominatimBaseURL(c.Geocode.NominatimURL),
			geocode.WithNominatimHTTPClient(&http.Client{Timeout: timeout}),
			geocode.WithNominatimRateLimit(c.Geocode.RateLimit),
		),
	}
	if c.Geocode.GoogleAPIKey != "" {
		gp, err := geocode.NewGoogleProvider(c.Geocode.GoogleAPIKey,
			maps.WithHTTPClient(&http.Client{Timeout: timeout}),
		)
		if err != nil {
			zap.L().Warn("google geocoder disabled", zap.Error(err))
		} else {
			providers = append(providers, gp)
		}
	}

	var opts []geocode.CascadeOption
	if cache != nil {
		opts = append(opts, geocode.WithCache(cache))
	}
	return geocode.NewCascadeClient(providers, opts...)
}

// newVenueRetriever builds the Foursquare client, read-through cached when
// cache is non-nil.
func newVenueRetriever(c *config.Config, cache foursquare.Cache) (foursquare.Retriever, error) {
	client, err := foursquare.NewClient(foursquare.Credentials{
		ClientID:     c.Foursquare.ClientID,
		ClientSecret: c.Foursquare.ClientSecret,
		Version:      c.Foursquare.Version,
	},
		foursquare.WithBaseURL(c.Foursquare.BaseURL),
		foursquare.WithTimeout(time.Duration(c.Foursquare.TimeoutSecs)*time.Second),
		foursquare.WithRateLimit(c.Foursquare.RateLimit),
	)
	if err != nil {
		return nil, err
	}
	if cache == nil {
		return client, nil
	}
	return foursquare.NewCachedRetriever(client, cache), nil
}

// writeRunMetrics leaves the run's pipeline metrics in dir for the
// node_exporter textfile collector. Failures are logged, not returned.
func writeRunMetrics(m *monitoring.Metrics, dir string) {
	path, err := m.WriteTextfile(dir)
	if err != nil {
		zap.L().Warn("write run metrics", zap.Error(err))
		return
	}
	zap.L().Info("run metrics written", zap.String("path", path))
}

// newExportWriter builds the output writer from config.
func newExportWriter(c *config.Config) *export.Writer {
	return export.NewWriter(c.Output.Dir, c.Output.Formats, export.MapOptions{
		Focus:        c.Maps.Focus,
		Compare:      c.Maps.Compare,
		RadiusMeters: c.Maps.RadiusMeters,
		Zoom:         c.Maps.Zoom,
	})
}

// newPipeline wires the online pipeline. st may be nil when the cache is
// disabled.
func newPipeline(builder pipeline.CatalogBuilder, st *store.SQLiteStore) (*pipeline.Pipeline, error) {
	if st == nil {
		venues, err := newVenueRetriever(cfg, nil)
		if err != nil {
			return nil, err
		}
		return pipeline.New(cfg, builder, newGeocoder(cfg, nil), venues), nil
	}

	venues, err := newVenueRetriever(cfg, st)
	if err != nil {
		return nil, err
	}
	p := pipeline.New(cfg, builder, newGeocoder(cfg, st), venues)
	p.SetRunSaver(st)
	return p, nil
}
