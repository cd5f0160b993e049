// Package foursquare retrieves venues near a point from the Foursquare
// venues/explore endpoint.
package foursquare

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.foursquare.com/v2"
	// DefaultVersion is the API version date sent as "v".
	DefaultVersion = "20190112"
	// UnknownCategory labels venues the API returns without a category.
	UnknownCategory = "Unknown"
)

// Credentials authenticate userless requests.
type Credentials struct {
	ClientID     string
	ClientSecret string
	Version      string
}

// Query is an explore request around a point.
type Query struct {
	Lat    float64
	Lng    float64
	Radius int // meters
	Limit  int
}

// Venue is one explore result.
type Venue struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Category string  `json:"category"`
}

// Retriever fetches venues near a point.
type Retriever interface {
	Explore(ctx context.Context, q Query) ([]Venue, error)
}

// Client implements Retriever against the Foursquare API.
type Client struct {
	creds      Credentials
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root, e.g. for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: d}
	}
}

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// NewClient creates a Client. Credentials are required.
func NewClient(creds Credentials, opts ...Option) (*Client, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, eris.New("foursquare: client id and secret are required")
	}
	if creds.Version == "" {
		creds.Version = DefaultVersion
	}
	c := &Client{
		creds:      creds,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    defaultBaseURL,
		limiter:    rate.NewLimiter(5, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Explore returns the venues recommended around q, in API order.
func (c *Client) Explore(ctx context.Context, q Query) ([]Venue, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "foursquare: rate limit")
	}

	params := url.Values{
		"client_id":     {c.creds.ClientID},
		"client_secret": {c.creds.ClientSecret},
		"v":             {c.creds.Version},
		"ll":            {strconv.FormatFloat(q.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(q.Lng, 'f', -1, 64)},
	}
	if q.Radius > 0 {
		params.Set("radius", strconv.Itoa(q.Radius))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/venues/explore?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "foursquare: build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "foursquare: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "foursquare: read body")
	}
	if !gjson.ValidBytes(body) {
		return nil, eris.Errorf("foursquare: invalid json (status %d)", resp.StatusCode)
	}

	if code := gjson.GetBytes(body, "meta.code"); resp.StatusCode != http.StatusOK || (code.Exists() && code.Int() != http.StatusOK) {
		return nil, eris.Errorf("foursquare: status %d: %s %s", resp.StatusCode,
			gjson.GetBytes(body, "meta.errorType").String(),
			gjson.GetBytes(body, "meta.errorDetail").String())
	}

	return ParseExplore(body), nil
}

// ParseExplore extracts venues from an explore response body.
func ParseExplore(body []byte) []Venue {
	var venues []Venue
	gjson.GetBytes(body, "response.groups.0.items").ForEach(func(_, item gjson.Result) bool {
		v := item.Get("venue")
		if !v.Exists() {
			return true
		}
		category := v.Get("categories.0.name").String()
		if category == "" {
			category = UnknownCategory
		}
		venues = append(venues, Venue{
			ID:       v.Get("id").String(),
			Name:     v.Get("name").String(),
			Lat:      v.Get("location.lat").Float(),
			Lng:      v.Get("location.lng").Float(),
			Category: category,
		})
		return true
	})
	return venues
}
