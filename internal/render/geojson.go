package render

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/venuecluster/internal/model"
)

// FeatureCollection converts geocoded neighborhoods to GeoJSON point
// features. Properties carry the name, city, venue count, cluster (null
// when not clustered) and top categories.
func FeatureCollection(neighborhoods []model.Neighborhood) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: []*geojson.Feature{}}
	for _, n := range neighborhoods {
		if !n.Geocoded() {
			continue
		}
		var cluster any
		if n.Cluster != nil {
			cluster = *n.Cluster
		}
		top := n.TopCategories
		if top == nil {
			top = []string{}
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       n.ID,
			Geometry: geom.NewPointFlat(geom.XY, []float64{n.Location.Lng, n.Location.Lat}).SetSRID(4326),
			Properties: map[string]any{
				"name":           n.Name,
				"district":       n.District,
				"city":           n.City,
				"country":        n.Country,
				"venue_count":    n.VenueCount,
				"cluster":        cluster,
				"top_categories": top,
			},
		})
	}
	return fc
}

// MarshalGeoJSON encodes the neighborhoods as a GeoJSON document.
func MarshalGeoJSON(neighborhoods []model.Neighborhood) ([]byte, error) {
	data, err := json.Marshal(FeatureCollection(neighborhoods))
	if err != nil {
		return nil, eris.Wrap(err, "render: marshal geojson")
	}
	return data, nil
}
