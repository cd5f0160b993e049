package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/venuecluster/internal/config"
)

func TestCatalogHTTPOptions(t *testing.T) {
	c := &config.Config{Catalog: config.CatalogConfig{
		UserAgent:      "venuecluster/test",
		TimeoutSecs:    5,
		MaxAttempts:    4,
		RetryBackoffMS: 250,
	}}

	opts := catalogHTTPOptions(c)
	assert.Equal(t, "venuecluster/test", opts.UserAgent)
	assert.Equal(t, 5*time.Second, opts.Timeout)
	assert.Equal(t, 4, opts.MaxAttempts)
	require.NotNil(t, opts.Retry)
	assert.Equal(t, 4, opts.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, opts.Retry.InitialBackoff)
}

func TestCatalogHTTPOptions_Defaults(t *testing.T) {
	opts := catalogHTTPOptions(&config.Config{})
	require.NotNil(t, opts.Retry)
	assert.Equal(t, 3, opts.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, opts.Retry.InitialBackoff)
}
