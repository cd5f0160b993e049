package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Catalog    CatalogConfig    `yaml:"catalog" mapstructure:"catalog"`
	Geocode    GeocodeConfig    `yaml:"geocode" mapstructure:"geocode"`
	Foursquare FoursquareConfig `yaml:"foursquare" mapstructure:"foursquare"`
	Cluster    ClusterConfig    `yaml:"cluster" mapstructure:"cluster"`
	Maps       MapsConfig       `yaml:"maps" mapstructure:"maps"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// CatalogConfig configures neighborhood list scraping.
type CatalogConfig struct {
	SourcesFile string `yaml:"sources_file" mapstructure:"sources_file"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	// RetryBackoffMS is the first retry delay; later delays grow from it.
	RetryBackoffMS int `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
}

// GeocodeConfig configures the geocoder cascade.
type GeocodeConfig struct {
	NominatimURL string  `yaml:"nominatim_url" mapstructure:"nominatim_url"`
	UserAgent    string  `yaml:"user_agent" mapstructure:"user_agent"`
	RateLimit    float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	GoogleAPIKey string  `yaml:"google_api_key" mapstructure:"google_api_key"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// FoursquareConfig holds venue API credentials and query settings.
type FoursquareConfig struct {
	ClientID     string  `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret string  `yaml:"client_secret" mapstructure:"client_secret"`
	Version      string  `yaml:"version" mapstructure:"version"`
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	Radius       int     `yaml:"radius" mapstructure:"radius"`
	Limit        int     `yaml:"limit" mapstructure:"limit"`
	RateLimit    float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ClusterConfig configures vectorization and k-means.
type ClusterConfig struct {
	K             int    `yaml:"k" mapstructure:"k"`
	Seed          uint64 `yaml:"seed" mapstructure:"seed"`
	MaxIterations int    `yaml:"max_iterations" mapstructure:"max_iterations"`
	TopN          int    `yaml:"top_n" mapstructure:"top_n"`
	IncludeEmpty  bool   `yaml:"include_empty" mapstructure:"include_empty"`
}

// MapsConfig selects the neighborhoods drawn on venue maps.
type MapsConfig struct {
	Focus        string `yaml:"focus" mapstructure:"focus"`
	Compare      string `yaml:"compare" mapstructure:"compare"`
	RadiusMeters int    `yaml:"radius_meters" mapstructure:"radius_meters"`
	Zoom         int    `yaml:"zoom" mapstructure:"zoom"`
}

// CacheConfig configures the SQLite response cache.
type CacheConfig struct {
	Enabled        bool   `yaml:"enabled" mapstructure:"enabled"`
	Path           string `yaml:"path" mapstructure:"path"`
	GeocodeTTLDays int    `yaml:"geocode_ttl_days" mapstructure:"geocode_ttl_days"`
	VenueTTLDays   int    `yaml:"venue_ttl_days" mapstructure:"venue_ttl_days"`
}

// OutputConfig configures where run artifacts are written.
type OutputConfig struct {
	Dir     string   `yaml:"dir" mapstructure:"dir"`
	Formats []string `yaml:"formats" mapstructure:"formats"`
}

// ServerConfig configures the HTTP view.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// Output formats understood by the run command.
var knownFormats = map[string]bool{
	"json": true, "csv": true, "xlsx": true, "shp": true, "geojson": true, "html": true,
}

// Load reads configuration from .env, config file and environment.
func Load() (*Config, error) {
	// .env never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: read .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("VENUECLUSTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("catalog.sources_file", "")
	v.SetDefault("catalog.user_agent", "venuecluster/1.0")
	v.SetDefault("catalog.timeout_secs", 30)
	v.SetDefault("catalog.max_attempts", 3)
	v.SetDefault("catalog.retry_backoff_ms", 500)
	v.SetDefault("geocode.nominatim_url", "https://nominatim.openstreetmap.org/search")
	v.SetDefault("geocode.user_agent", "venuecluster/1.0")
	v.SetDefault("geocode.rate_limit", 1.0)
	v.SetDefault("geocode.google_api_key", "")
	v.SetDefault("geocode.timeout_secs", 10)
	v.SetDefault("foursquare.client_id", "")
	v.SetDefault("foursquare.client_secret", "")
	v.SetDefault("foursquare.version", "20190112")
	v.SetDefault("foursquare.base_url", "https://api.foursquare.com/v2")
	v.SetDefault("foursquare.radius", 1000)
	v.SetDefault("foursquare.limit", 100)
	v.SetDefault("foursquare.rate_limit", 5.0)
	v.SetDefault("foursquare.timeout_secs", 15)
	v.SetDefault("cluster.k", 3)
	v.SetDefault("cluster.seed", 0)
	v.SetDefault("cluster.max_iterations", 300)
	v.SetDefault("cluster.top_n", 10)
	v.SetDefault("cluster.include_empty", false)
	v.SetDefault("maps.focus", "Atocha, Madrid, ES")
	v.SetDefault("maps.compare", "Louvre, Paris, FR")
	v.SetDefault("maps.radius_meters", 1000)
	v.SetDefault("maps.zoom", 14)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.path", "venuecluster.db")
	v.SetDefault("cache.geocode_ttl_days", 90)
	v.SetDefault("cache.venue_ttl_days", 7)
	v.SetDefault("output.dir", "out")
	v.SetDefault("output.formats", []string{"json", "csv", "xlsx", "shp", "geojson", "html"})
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs. mode is one of "run",
// "catalog", "cluster" or "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "run":
		if c.Foursquare.ClientID == "" {
			errs = append(errs, "foursquare.client_id is required")
		}
		if c.Foursquare.ClientSecret == "" {
			errs = append(errs, "foursquare.client_secret is required")
		}
		if c.Foursquare.Radius <= 0 {
			errs = append(errs, "foursquare.radius must be > 0")
		}
		if c.Foursquare.Limit <= 0 {
			errs = append(errs, "foursquare.limit must be > 0")
		}
		if c.Geocode.UserAgent == "" {
			errs = append(errs, "geocode.user_agent is required")
		}
		// A zero limiter admits one request and fails every later Wait.
		if c.Geocode.RateLimit <= 0 {
			errs = append(errs, "geocode.rate_limit must be > 0")
		}
		if c.Foursquare.RateLimit <= 0 {
			errs = append(errs, "foursquare.rate_limit must be > 0")
		}
		errs = append(errs, c.validateCluster()...)
		errs = append(errs, c.validateOutput()...)
	case "catalog":
		if c.Catalog.UserAgent == "" {
			errs = append(errs, "catalog.user_agent is required")
		}
	case "cluster":
		errs = append(errs, c.validateCluster()...)
		errs = append(errs, c.validateOutput()...)
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateCluster() []string {
	var errs []string
	if c.Cluster.K <= 0 {
		errs = append(errs, "cluster.k must be > 0")
	}
	if c.Cluster.TopN <= 0 {
		errs = append(errs, "cluster.top_n must be > 0")
	}
	if c.Cluster.MaxIterations <= 0 {
		errs = append(errs, "cluster.max_iterations must be > 0")
	}
	return errs
}

func (c *Config) validateOutput() []string {
	var errs []string
	if c.Output.Dir == "" {
		errs = append(errs, "output.dir is required")
	}
	for _, f := range c.Output.Formats {
		if !knownFormats[strings.ToLower(f)] {
			errs = append(errs, "output.formats: unknown format "+f)
		}
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
