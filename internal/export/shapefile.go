package export

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"

	"github.com/sells-group/venuecluster/internal/model"
)

// Shapefile attribute fields. dBase limits names to 10 characters.
var shapeFields = []shp.Field{
	shp.StringField("ID", 120),
	shp.StringField("NAME", 80),
	shp.StringField("CITY", 40),
	shp.NumberField("VENUES", 6),
	shp.NumberField("CLUSTER", 4),
	shp.StringField("TOP1", 60),
}

// WriteShapefile writes geocoded neighborhoods as an ESRI point shapefile
// (path.shp plus .shx and .dbf). Unclustered points get CLUSTER -1.
func WriteShapefile(path string, neighborhoods []model.Neighborhood) (int, error) {
	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return 0, eris.Wrapf(err, "export: create shapefile %s", path)
	}
	defer w.Close()

	if err := w.SetFields(shapeFields); err != nil {
		return 0, eris.Wrap(err, "export: set shapefile fields")
	}

	written := 0
	for _, n := range neighborhoods {
		if !n.Geocoded() {
			continue
		}
		cluster := -1
		if n.Cluster != nil {
			cluster = *n.Cluster
		}
		top := ""
		if len(n.TopCategories) > 0 {
			top = n.TopCategories[0]
		}

		row := int(w.Write(&shp.Point{X: n.Location.Lng, Y: n.Location.Lat}))
		for i, v := range []any{n.ID, n.Name, n.City, n.VenueCount, cluster, top} {
			if err := w.WriteAttribute(row, i, v); err != nil {
				return written, eris.Wrapf(err, "export: write shapefile attribute %s", n.ID)
			}
		}
		written++
	}
	return written, nil
}
