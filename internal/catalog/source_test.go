package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSources(t *testing.T) {
	srcs := DefaultSources()
	require.Len(t, srcs, 2)
	assert.Equal(t, "Madrid", srcs[0].City)
	assert.Equal(t, []string{"Atocha"}, srcs[0].Include)
	assert.Equal(t, "Paris", srcs[1].City)
	assert.Empty(t, srcs[1].Include)
	for _, s := range srcs {
		assert.NoError(t, s.validate())
	}
}

func TestLoadSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sources:
  - city: Lisbon
    country: PT
    url: https://en.wikipedia.org/wiki/List_of_parishes_of_Lisbon
    name_column: Parish
    include: [Belém, Alvalade]
  - city: Porto
    country: PT
    url: https://example.org/porto
    table: table.wikitable
    name_column: Name
    split: ","
    limit: 10
`), 0o644))

	srcs, err := LoadSources(path)
	require.NoError(t, err)
	require.Len(t, srcs, 2)
	assert.Equal(t, DefaultTableSelector, srcs[0].Table)
	assert.Equal(t, []string{"Belém", "Alvalade"}, srcs[0].Include)
	assert.Equal(t, "table.wikitable", srcs[1].Table)
	assert.Equal(t, ",", srcs[1].Split)
	assert.Equal(t, 10, srcs[1].Limit)
}

func TestParseSources_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"empty", "sources: []", "no sources"},
		{"no city", "sources:\n  - url: x\n    name_column: Name", "without city"},
		{"no url", "sources:\n  - city: A\n    name_column: Name", "no url"},
		{"no name column", "sources:\n  - city: A\n    url: x", "no name_column"},
		{"bad yaml", "sources: [", "parse sources"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSources([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadSources_MissingFile(t *testing.T) {
	_, err := LoadSources(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
