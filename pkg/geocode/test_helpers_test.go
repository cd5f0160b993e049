package geocode

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

// memCache is an in-memory Cache for tests.
type memCache struct {
	entries map[string]*Result
	gets    int
	failGet bool
}

func newMemCache() *memCache { return &memCache{entries: map[string]*Result{}} }

func (m *memCache) GetGeocode(_ context.Context, key string) (*Result, bool, error) {
	m.gets++
	if m.failGet {
		return nil, false, errors.New("cache down")
	}
	r, ok := m.entries[key]
	return r, ok, nil
}

func (m *memCache) PutGeocode(_ context.Context, key string, r *Result) error {
	m.entries[key] = r
	return nil
}

// stubProvider returns a canned result or error and counts calls.
type stubProvider struct {
	name   string
	result *Result
	err    error
	off    bool
	calls  int
}

func (s *stubProvider) Name() string    { return s.name }
func (s *stubProvider) Available() bool { return !s.off }
func (s *stubProvider) Geocode(context.Context, string) (*Result, error) {
	s.calls++
	return s.result, s.err
}

// newNominatimServer serves body for every request and records queries.
func newNominatimServer(t *testing.T, status int, body string, queries *[]string) *NominatimProvider {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if queries != nil {
			*queries = append(*queries, r.URL.Query().Get("q"))
		}
		if r.Header.Get("User-Agent") == "" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return NewNominatimProvider("venuecluster-test",
		WithNominatimBaseURL(srv.URL),
		WithNominatimRateLimit(math.MaxFloat64),
	)
}
