package geocode

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"googlemaps.github.io/maps"
)

// GoogleProvider geocodes via the Google Geocoding API.
type GoogleProvider struct {
	client *maps.Client
}

// NewGoogleProvider creates a provider for apiKey. Extra options are passed
// to the Maps client, e.g. maps.WithBaseURL in tests.
func NewGoogleProvider(apiKey string, opts ...maps.ClientOption) (*GoogleProvider, error) {
	if apiKey == "" {
		return nil, eris.New("geocode: google api key not configured")
	}
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: google client")
	}
	return &GoogleProvider{client: client}, nil
}

// Name implements Provider.
func (p *GoogleProvider) Name() string { return "google" }

// Available implements Provider.
func (p *GoogleProvider) Available() bool { return p.client != nil }

// Geocode implements Provider.
func (p *GoogleProvider) Geocode(ctx context.Context, query string) (*Result, error) {
	results, err := p.client.Geocode(ctx, &maps.GeocodingRequest{Address: query})
	if err != nil {
		if strings.Contains(err.Error(), "ZERO_RESULTS") {
			return &Result{Matched: false, Source: "google"}, nil
		}
		return nil, eris.Wrap(err, "geocode: google request")
	}
	if len(results) == 0 {
		return &Result{Matched: false, Source: "google"}, nil
	}

	r := results[0]
	return &Result{
		Latitude:    r.Geometry.Location.Lat,
		Longitude:   r.Geometry.Location.Lng,
		Source:      "google",
		DisplayName: r.FormattedAddress,
		Matched:     true,
	}, nil
}
