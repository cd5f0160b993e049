package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/venuecluster/internal/config"
	"github.com/sells-group/venuecluster/internal/model"
	"github.com/sells-group/venuecluster/pkg/foursquare"
	"github.com/sells-group/venuecluster/pkg/geocode"
)

// --- Catalog Mock ---

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) Build(ctx context.Context) ([]model.Neighborhood, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Neighborhood), args.Error(1)
}

// --- Geocoder Mock ---

type mockGeocoder struct {
	mock.Mock
}

func (m *mockGeocoder) Geocode(ctx context.Context, query string) (*geocode.Result, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*geocode.Result), args.Error(1)
}

// --- Venue Retriever Mock ---

type mockRetriever struct {
	mock.Mock
}

func (m *mockRetriever) Explore(ctx context.Context, q foursquare.Query) ([]foursquare.Venue, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]foursquare.Venue), args.Error(1)
}

// --- Run Saver Mock ---

type mockSaver struct {
	mock.Mock
}

func (m *mockSaver) SaveRun(ctx context.Context, run *model.Run) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func testConfig(k, topN int) *config.Config {
	cfg := &config.Config{}
	cfg.Cluster.K = k
	cfg.Cluster.TopN = topN
	cfg.Cluster.MaxIterations = 300
	cfg.Foursquare.Radius = 1000
	cfg.Foursquare.Limit = 100
	cfg.Maps.Focus = "Atocha, Madrid, ES"
	return cfg
}

func matched(lat, lng float64) *geocode.Result {
	return &geocode.Result{Latitude: lat, Longitude: lng, Source: "nominatim", Matched: true}
}

func fsVenues(cats ...string) []foursquare.Venue {
	out := make([]foursquare.Venue, len(cats))
	for i, c := range cats {
		out[i] = foursquare.Venue{ID: c + "-id", Name: c + " place", Lat: 1, Lng: 2, Category: c}
	}
	return out
}
