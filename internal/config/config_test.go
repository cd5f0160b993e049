package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 3, cfg.Cluster.K)
	assert.Equal(t, uint64(0), cfg.Cluster.Seed)
	assert.Equal(t, 300, cfg.Cluster.MaxIterations)
	assert.Equal(t, 10, cfg.Cluster.TopN)
	assert.False(t, cfg.Cluster.IncludeEmpty)
	assert.Equal(t, 1000, cfg.Foursquare.Radius)
	assert.Equal(t, 100, cfg.Foursquare.Limit)
	assert.Equal(t, "20190112", cfg.Foursquare.Version)
	assert.Equal(t, "https://nominatim.openstreetmap.org/search", cfg.Geocode.NominatimURL)
	assert.InDelta(t, 1.0, cfg.Geocode.RateLimit, 0.001)
	assert.Equal(t, 3, cfg.Catalog.MaxAttempts)
	assert.Equal(t, 500, cfg.Catalog.RetryBackoffMS)
	assert.Equal(t, "Atocha, Madrid, ES", cfg.Maps.Focus)
	assert.Equal(t, "Louvre, Paris, FR", cfg.Maps.Compare)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 90, cfg.Cache.GeocodeTTLDays)
	assert.Equal(t, "out", cfg.Output.Dir)
	assert.ElementsMatch(t, []string{"json", "csv", "xlsx", "shp", "geojson", "html"}, cfg.Output.Formats)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
  format: console
cluster:
  k: 5
  seed: 42
  include_empty: true
maps:
  focus: "Sol, Madrid, ES"
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 5, cfg.Cluster.K)
	assert.Equal(t, uint64(42), cfg.Cluster.Seed)
	assert.True(t, cfg.Cluster.IncludeEmpty)
	assert.Equal(t, "Sol, Madrid, ES", cfg.Maps.Focus)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.Equal(t, 10, cfg.Cluster.TopN)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
cluster:
  k: 5
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("VENUECLUSTER_CLUSTER_K", "4")
	t.Setenv("VENUECLUSTER_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Cluster.K)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	t.Setenv("VENUECLUSTER_FOURSQUARE_CLIENT_SECRET", "from-env")

	dotenv := "VENUECLUSTER_FOURSQUARE_CLIENT_ID=from-dotenv\nVENUECLUSTER_FOURSQUARE_CLIENT_SECRET=ignored\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(dotenv), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("VENUECLUSTER_FOURSQUARE_CLIENT_ID") })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-dotenv", cfg.Foursquare.ClientID)
	// Existing environment wins over .env.
	assert.Equal(t, "from-env", cfg.Foursquare.ClientSecret)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("cluster: [k"), 0o644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Catalog.UserAgent = "venuecluster/1.0"
	cfg.Geocode.UserAgent = "venuecluster/1.0"
	cfg.Geocode.RateLimit = 1
	cfg.Foursquare.RateLimit = 5
	cfg.Foursquare.Radius = 1000
	cfg.Foursquare.Limit = 100
	cfg.Cluster.K = 3
	cfg.Cluster.TopN = 10
	cfg.Cluster.MaxIterations = 300
	cfg.Output.Dir = "out"
	cfg.Output.Formats = []string{"json", "csv"}
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateRun_AllPresent(t *testing.T) {
	cfg := validDefaults()
	cfg.Foursquare.ClientID = "id"
	cfg.Foursquare.ClientSecret = "secret"

	assert.NoError(t, cfg.Validate("run"))
}

func TestValidateRun_MissingCredentials(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "foursquare.client_id is required")
	assert.Contains(t, err.Error(), "foursquare.client_secret is required")
}

func TestValidateRun_RateLimits(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero geocode rate", func(c *Config) { c.Geocode.RateLimit = 0 }, "geocode.rate_limit must be > 0"},
		{"negative geocode rate", func(c *Config) { c.Geocode.RateLimit = -1 }, "geocode.rate_limit must be > 0"},
		{"zero foursquare rate", func(c *Config) { c.Foursquare.RateLimit = 0 }, "foursquare.rate_limit must be > 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			cfg.Foursquare.ClientID = "id"
			cfg.Foursquare.ClientSecret = "secret"
			tt.mutate(cfg)

			err := cfg.Validate("run")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateCluster(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"zero k", func(c *Config) { c.Cluster.K = 0 }, "cluster.k must be > 0"},
		{"zero top n", func(c *Config) { c.Cluster.TopN = 0 }, "cluster.top_n must be > 0"},
		{"negative top n", func(c *Config) { c.Cluster.TopN = -1 }, "cluster.top_n must be > 0"},
		{"zero iterations", func(c *Config) { c.Cluster.MaxIterations = 0 }, "cluster.max_iterations must be > 0"},
		{"no output dir", func(c *Config) { c.Output.Dir = "" }, "output.dir is required"},
		{"bad format", func(c *Config) { c.Output.Formats = []string{"pdf"} }, "unknown format pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.mutate(cfg)
			err := cfg.Validate("cluster")
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateCatalog(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("catalog"))

	cfg.Catalog.UserAgent = ""
	assert.Error(t, cfg.Validate("catalog"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
