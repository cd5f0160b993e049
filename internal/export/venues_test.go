package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/venuecluster/internal/model"
)

func TestWriteReadVenues(t *testing.T) {
	run := fixtureRun()
	var buf bytes.Buffer
	require.NoError(t, WriteVenues(&buf, run.Neighborhoods, run.Venues))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Neighborhood,Neighborhood Latitude,Neighborhood Longitude,Venue,Venue Latitude,Venue Longitude,Venue Category", lines[0])

	neighborhoods, venues, err := ReadVenues(&buf)
	require.NoError(t, err)
	assert.Equal(t, run.Venues, venues)
	require.Len(t, neighborhoods, 2)
	assert.Equal(t, "Atocha, Madrid, ES", neighborhoods[0].ID)
	assert.Equal(t, model.Point{Lat: 40.4065, Lng: -3.6895}, *neighborhoods[0].Location)
}

func TestWriteVenues_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteVenues(&buf, nil, nil))
	assert.True(t, strings.HasPrefix(buf.String(), "Neighborhood,"))
}

func TestWriteReadVenues_KeepsNeighborhoodsWithoutVenues(t *testing.T) {
	run := fixtureRun()
	run.Neighborhoods = append(run.Neighborhoods[:2:2],
		model.Neighborhood{ID: "Marais, Paris, FR", Name: "Marais", Location: &model.Point{Lat: 48.8566, Lng: 2.3622}},
		run.Neighborhoods[2],
	)

	var buf bytes.Buffer
	require.NoError(t, WriteVenues(&buf, run.Neighborhoods, run.Venues))
	assert.Contains(t, buf.String(), `"Marais, Paris, FR",48.8566,2.3622,,0,0,`)
	assert.NotContains(t, buf.String(), "Nowhere")

	neighborhoods, venues, err := ReadVenues(&buf)
	require.NoError(t, err)
	assert.Equal(t, run.Venues, venues)
	require.Len(t, neighborhoods, 3)
	assert.Equal(t, "Marais, Paris, FR", neighborhoods[2].ID)
	assert.Equal(t, model.Point{Lat: 48.8566, Lng: 2.3622}, *neighborhoods[2].Location)
	assert.Empty(t, model.VenuesFor(venues, "Marais, Paris, FR"))
}

func TestWriteVenues_CatalogOrder(t *testing.T) {
	hoods := []model.Neighborhood{
		{ID: "B", Location: &model.Point{Lat: 1, Lng: 1}},
		{ID: "A", Location: &model.Point{Lat: 2, Lng: 2}},
	}
	venues := []model.Venue{
		{Neighborhood: "A", Name: "a1", Category: "Café"},
		{Neighborhood: "C", Name: "c1", Category: "Park"},
		{Neighborhood: "B", Name: "b1", Category: "Museum"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteVenues(&buf, hoods, venues))

	neighborhoods, _, err := ReadVenues(&buf)
	require.NoError(t, err)
	require.Len(t, neighborhoods, 3)
	assert.Equal(t, []string{"B", "A", "C"}, []string{neighborhoods[0].ID, neighborhoods[1].ID, neighborhoods[2].ID})
}

func TestReadVenues_WithoutNeighborhoodCoordinates(t *testing.T) {
	input := `Neighborhood,Venue,Venue Latitude,Venue Longitude,Venue Category
N1,a,1,1,Café
N1,b,3,3,Park
N2,c,5,5,Museum
`
	neighborhoods, venues, err := ReadVenues(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, venues, 3)
	require.Len(t, neighborhoods, 2)
	assert.Equal(t, model.Point{Lat: 2, Lng: 2}, *neighborhoods[0].Location)
	assert.Equal(t, model.Point{Lat: 5, Lng: 5}, *neighborhoods[1].Location)
}

func TestReadVenues_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "empty"},
		{"no neighborhood", "Neighborhood,Venue,Venue Category\n,a,Café\n", "line 2 has no neighborhood"},
		{"bad float", "Neighborhood,Venue Latitude\nN1,north\n", "decode venues line 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ReadVenues(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
