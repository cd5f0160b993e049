package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/venuecluster/internal/cluster"
	"github.com/sells-group/venuecluster/internal/features"
	"github.com/sells-group/venuecluster/internal/model"
	"github.com/sells-group/venuecluster/internal/monitoring"
	"github.com/sells-group/venuecluster/pkg/foursquare"
)

func catalogFixture() []model.Neighborhood {
	return []model.Neighborhood{
		model.NewNeighborhood("Atocha", "Arganzuela", "Madrid", "ES"),
		model.NewNeighborhood("Louvre", "", "Paris", "FR"),
		model.NewNeighborhood("Bourse", "", "Paris", "FR"),
		model.NewNeighborhood("Nowhere", "", "Paris", "FR"),
	}
}

// setupFixture wires mocks for catalogFixture: Nowhere is not geocoded and
// Bourse's venue request fails.
func setupFixture() (*mockCatalog, *mockGeocoder, *mockRetriever) {
	cat := &mockCatalog{}
	cat.On("Build", mock.Anything).Return(catalogFixture(), nil)

	geo := &mockGeocoder{}
	geo.On("Geocode", mock.Anything, "Atocha, Madrid, ES").Return(matched(40.40, -3.69), nil)
	geo.On("Geocode", mock.Anything, "Louvre, Paris, FR").Return(matched(48.86, 2.34), nil)
	geo.On("Geocode", mock.Anything, "Bourse, Paris, FR").Return(matched(48.87, 2.34), nil)
	geo.On("Geocode", mock.Anything, "Nowhere, Paris, FR").Return(nil, errors.New("service unavailable"))

	ret := &mockRetriever{}
	ret.On("Explore", mock.Anything, foursquare.Query{Lat: 40.40, Lng: -3.69, Radius: 1000, Limit: 100}).
		Return(fsVenues("Café", "Café", "Park"), nil)
	ret.On("Explore", mock.Anything, foursquare.Query{Lat: 48.86, Lng: 2.34, Radius: 1000, Limit: 100}).
		Return(fsVenues("Museum"), nil)
	ret.On("Explore", mock.Anything, foursquare.Query{Lat: 48.87, Lng: 2.34, Radius: 1000, Limit: 100}).
		Return(nil, errors.New("quota exceeded"))

	return cat, geo, ret
}

func TestRun_HappyPath(t *testing.T) {
	cat, geo, ret := setupFixture()
	saver := &mockSaver{}
	saver.On("SaveRun", mock.Anything, mock.Anything).Return(nil)

	p := New(testConfig(2, 10), cat, geo, ret)
	p.SetRunSaver(saver)
	p.SetMetrics(monitoring.NewMetrics())

	run, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Equal(t, 1, run.GeocodeMisses)
	assert.Equal(t, 1, run.VenueFailures)
	assert.Equal(t, []string{"Bourse, Paris, FR"}, run.Excluded)
	assert.Equal(t, []string{"Café", "Museum", "Park"}, run.Categories)
	assert.Len(t, run.Venues, 4)
	require.Len(t, run.Clusters, 2)

	atocha, ok := run.Neighborhood("Atocha, Madrid, ES")
	require.True(t, ok)
	louvre, _ := run.Neighborhood("Louvre, Paris, FR")
	bourse, _ := run.Neighborhood("Bourse, Paris, FR")
	nowhere, _ := run.Neighborhood("Nowhere, Paris, FR")

	require.NotNil(t, atocha.Cluster)
	require.NotNil(t, louvre.Cluster)
	assert.NotEqual(t, *atocha.Cluster, *louvre.Cluster)
	assert.Equal(t, 3, atocha.VenueCount)
	assert.Equal(t, []string{"Café", "Park", "Museum"}, atocha.TopCategories)

	assert.Nil(t, bourse.Cluster)
	assert.Empty(t, bourse.TopCategories)
	assert.NotNil(t, bourse.Location)
	assert.Nil(t, nowhere.Cluster)
	assert.Nil(t, nowhere.Location)

	require.NotNil(t, run.Focus)
	assert.Equal(t, []string{"Café", "Park"}, run.Focus.Categories)
	assert.Equal(t, 3, run.Focus.VenueCount)

	ret.AssertNumberOfCalls(t, "Explore", 3)
	saver.AssertNumberOfCalls(t, "SaveRun", 1)
}

func TestRun_IncludeEmpty(t *testing.T) {
	cat, geo, ret := setupFixture()
	cfg := testConfig(3, 10)
	cfg.Cluster.IncludeEmpty = true

	run, err := New(cfg, cat, geo, ret).Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, run.Excluded)
	bourse, _ := run.Neighborhood("Bourse, Paris, FR")
	require.NotNil(t, bourse.Cluster)
	assert.Equal(t, 0, bourse.VenueCount)
	// All-zero row ranks as pure fillers in column order.
	assert.Equal(t, []string{"Café", "Museum", "Park"}, bourse.TopCategories)
}

func TestRun_TooFewNeighborhoodsForK(t *testing.T) {
	cat, geo, ret := setupFixture()
	saver := &mockSaver{}
	saver.On("SaveRun", mock.Anything, mock.MatchedBy(func(r *model.Run) bool {
		return r.Status == model.RunStatusFailed && r.Error != ""
	})).Return(nil)

	p := New(testConfig(3, 10), cat, geo, ret)
	p.SetRunSaver(saver)

	run, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, run)
	assert.ErrorIs(t, err, cluster.ErrTooFewPoints)
	saver.AssertExpectations(t)
}

func TestRun_InvalidParamsFailBeforeCatalog(t *testing.T) {
	tests := []struct {
		name    string
		k, topN int
		want    error
	}{
		{"zero top n", 2, 0, features.ErrInvalidTopN},
		{"negative top n", 2, -3, features.ErrInvalidTopN},
		{"zero k", 0, 10, cluster.ErrInvalidK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := &mockCatalog{}
			p := New(testConfig(tt.k, tt.topN), cat, &mockGeocoder{}, &mockRetriever{})

			_, err := p.Run(context.Background())
			assert.ErrorIs(t, err, tt.want)
			cat.AssertNotCalled(t, "Build", mock.Anything)
		})
	}
}

func TestRun_CatalogErrorIsFatal(t *testing.T) {
	cat := &mockCatalog{}
	cat.On("Build", mock.Anything).Return(nil, errors.New("wikitable not found"))
	geo := &mockGeocoder{}

	_, err := New(testConfig(2, 10), cat, geo, &mockRetriever{}).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline: build catalog")
	geo.AssertNotCalled(t, "Geocode", mock.Anything, mock.Anything)
}

func TestRun_EmptyCatalog(t *testing.T) {
	cat := &mockCatalog{}
	cat.On("Build", mock.Anything).Return([]model.Neighborhood{}, nil)

	_, err := New(testConfig(2, 10), cat, &mockGeocoder{}, &mockRetriever{}).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog is empty")
}

func TestRun_ContextCanceled(t *testing.T) {
	cat, geo, ret := setupFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(testConfig(2, 10), cat, geo, ret).Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunOffline(t *testing.T) {
	venues := []model.Venue{
		{Neighborhood: "N1", Name: "a", Lat: 1, Lng: 1, Category: "Café"},
		{Neighborhood: "N1", Name: "b", Lat: 1, Lng: 1, Category: "Café"},
		{Neighborhood: "N1", Name: "c", Lat: 1, Lng: 1, Category: "Park"},
		{Neighborhood: "N2", Name: "d", Lat: 2, Lng: 2, Category: "Museum"},
	}
	neighborhoods := model.NeighborhoodsFromVenues(venues)

	run, err := New(testConfig(2, 10), nil, nil, nil).RunOffline(context.Background(), neighborhoods, venues)
	require.NoError(t, err)

	assert.Equal(t, model.RunStatusComplete, run.Status)
	require.Len(t, run.Neighborhoods, 2)
	assert.Equal(t, []string{"Café", "Park", "Museum"}, run.Neighborhoods[0].TopCategories)
	assert.Equal(t, []string{"Museum", "Café", "Park"}, run.Neighborhoods[1].TopCategories)
	assert.Nil(t, run.Focus)
}

func TestRunOffline_KExceedsRows(t *testing.T) {
	venues := []model.Venue{
		{Neighborhood: "N1", Category: "Café"},
		{Neighborhood: "N2", Category: "Museum"},
	}
	_, err := New(testConfig(3, 10), nil, nil, nil).
		RunOffline(context.Background(), model.NeighborhoodsFromVenues(venues), venues)
	assert.ErrorIs(t, err, cluster.ErrTooFewPoints)
}
