package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/venuecluster/internal/config"
	"github.com/sells-group/venuecluster/internal/model"
	"github.com/sells-group/venuecluster/internal/monitoring"
	"github.com/sells-group/venuecluster/internal/store"
)

const venuesCSV = `Neighborhood,Venue,Venue Latitude,Venue Longitude,Venue Category
"Atocha, Madrid, ES",Café A,40.41,-3.69,Café
"Atocha, Madrid, ES",Café B,40.42,-3.69,Café
"Atocha, Madrid, ES",Retiro,40.41,-3.68,Park
"Louvre, Paris, FR",Louvre,48.86,2.33,Museum
"Louvre, Paris, FR",Orsay,48.86,2.32,Museum
"Marais, Paris, FR",Picasso,48.85,2.36,Museum
`

func writeVenuesFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "venues.csv")
	require.NoError(t, os.WriteFile(path, []byte(venuesCSV), 0o644))
	return path
}

func offlineConfig() *config.Config {
	return &config.Config{
		Cluster: config.ClusterConfig{K: 2, TopN: 3, MaxIterations: 100, Seed: 1},
	}
}

func TestLoadVenues(t *testing.T) {
	hoods, venues, err := loadVenues(writeVenuesFile(t))
	require.NoError(t, err)
	assert.Len(t, hoods, 3)
	assert.Len(t, venues, 6)
	assert.Equal(t, "Atocha, Madrid, ES", hoods[0].ID)
}

func TestLoadVenues_Missing(t *testing.T) {
	_, _, err := loadVenues(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cluster: open")
}

func TestClusterOffline(t *testing.T) {
	hoods, venues, err := loadVenues(writeVenuesFile(t))
	require.NoError(t, err)

	run, err := clusterOffline(context.Background(), offlineConfig(), hoods, venues, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Equal(t, []string{"Café", "Museum", "Park"}, run.Categories)
	require.Len(t, run.Neighborhoods, 3)
	for _, n := range run.Neighborhoods {
		require.NotNil(t, n.Cluster, n.ID)
	}
	louvre, ok := run.Neighborhood("Louvre, Paris, FR")
	require.True(t, ok)
	marais, ok := run.Neighborhood("Marais, Paris, FR")
	require.True(t, ok)
	assert.Equal(t, *louvre.Cluster, *marais.Cluster, "museum-only neighborhoods cluster together")
}

func TestClusterOffline_SavesRun(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(ctx))

	hoods, venues, err := loadVenues(writeVenuesFile(t))
	require.NoError(t, err)

	run, err := clusterOffline(ctx, offlineConfig(), hoods, venues, st, nil)
	require.NoError(t, err)

	latest, err := st.LatestCompleteRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, run.ID, latest.ID)
}

func TestClusterOffline_WritesMetrics(t *testing.T) {
	hoods, venues, err := loadVenues(writeVenuesFile(t))
	require.NoError(t, err)

	m := monitoring.NewMetrics()
	_, err = clusterOffline(context.Background(), offlineConfig(), hoods, venues, nil, m)
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "out")
	writeRunMetrics(m, dir)

	data, err := os.ReadFile(filepath.Join(dir, monitoring.TextfileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), `venuecluster_runs_total{status="complete"} 1`)
	assert.Contains(t, string(data), "venuecluster_stage_duration_seconds")
}

func TestClusterOffline_TooFewNeighborhoods(t *testing.T) {
	hoods, venues, err := loadVenues(writeVenuesFile(t))
	require.NoError(t, err)

	c := offlineConfig()
	c.Cluster.K = 5
	run, err := clusterOffline(context.Background(), c, hoods, venues, nil, nil)
	require.Error(t, err)
	assert.Nil(t, run)
}
