package export

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/venuecluster/internal/model"
	"github.com/sells-group/venuecluster/internal/render"
)

// Output file names inside the output directory.
const (
	RunFile           = "run.json"
	VenuesFile        = "venues.csv"
	NeighborhoodsFile = "neighborhoods.csv"
	ClustersFile      = "clusters.csv"
	WorkbookFile      = "results.xlsx"
	ShapefileFile     = "neighborhoods.shp"
	GeoJSONFile       = "neighborhoods.geojson"
	FocusMapFile      = "focus_map.html"
	CompareMapFile    = "compare_map.html"
	ClusterMapFile    = "clusters_map.html"
)

// MapOptions selects the neighborhoods drawn on the venue maps.
type MapOptions struct {
	Focus        string
	Compare      string
	RadiusMeters int
	Zoom         int
}

// Writer writes a finished run to a directory in the selected formats.
type Writer struct {
	dir     string
	formats map[string]bool
	maps    MapOptions
}

// NewWriter creates a Writer. Formats are json, csv, xlsx, shp, geojson
// and html.
func NewWriter(dir string, formats []string, maps MapOptions) *Writer {
	set := make(map[string]bool, len(formats))
	for _, f := range formats {
		set[strings.ToLower(f)] = true
	}
	return &Writer{dir: dir, formats: set, maps: maps}
}

// Write creates the output directory and writes every selected format. It
// returns the paths written. A venue map whose neighborhood is missing or
// was not geocoded is skipped with a warning.
func (w *Writer) Write(run *model.Run) ([]string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "export: create output dir %s", w.dir)
	}

	var written []string
	file := func(name string, fn func(f *os.File) error) error {
		path := filepath.Join(w.dir, name)
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "export: create %s", path)
		}
		if err := fn(f); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return eris.Wrapf(err, "export: close %s", path)
		}
		written = append(written, path)
		return nil
	}

	if w.formats["json"] {
		if err := file(RunFile, func(f *os.File) error { return WriteRun(f, run) }); err != nil {
			return written, err
		}
	}

	if w.formats["csv"] {
		if err := file(VenuesFile, func(f *os.File) error {
			return WriteVenues(f, run.Neighborhoods, run.Venues)
		}); err != nil {
			return written, err
		}
		if err := file(NeighborhoodsFile, func(f *os.File) error {
			return WriteSheetCSV(f, NeighborhoodSheet(run))
		}); err != nil {
			return written, err
		}
		if err := file(ClustersFile, func(f *os.File) error {
			return WriteSheetCSV(f, ClusterSheet(run))
		}); err != nil {
			return written, err
		}
	}

	if w.formats["xlsx"] {
		path := filepath.Join(w.dir, WorkbookFile)
		if err := WriteWorkbook(path, run); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	if w.formats["shp"] {
		path := filepath.Join(w.dir, ShapefileFile)
		if _, err := WriteShapefile(path, run.Neighborhoods); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	if w.formats["geojson"] {
		if err := file(GeoJSONFile, func(f *os.File) error {
			data, err := render.MarshalGeoJSON(run.Neighborhoods)
			if err != nil {
				return err
			}
			_, err = f.Write(data)
			return eris.Wrap(err, "export: write geojson")
		}); err != nil {
			return written, err
		}
	}

	if w.formats["html"] {
		if err := w.writeMaps(run, file); err != nil {
			return written, err
		}
	}

	zap.L().Info("export: run written",
		zap.String("dir", w.dir),
		zap.Int("files", len(written)),
	)
	return written, nil
}

func (w *Writer) writeMaps(run *model.Run, file func(string, func(*os.File) error) error) error {
	venueMaps := []struct{ id, name string }{
		{w.maps.Focus, FocusMapFile},
		{w.maps.Compare, CompareMapFile},
	}
	for _, vm := range venueMaps {
		if vm.id == "" {
			continue
		}
		m, err := render.VenueMap(run, vm.id, w.maps.RadiusMeters, w.maps.Zoom)
		if err != nil {
			zap.L().Warn("export: skipping venue map", zap.String("neighborhood", vm.id), zap.Error(err))
			continue
		}
		if err := file(vm.name, func(f *os.File) error { return m.Render(f) }); err != nil {
			return err
		}
	}
	return file(ClusterMapFile, func(f *os.File) error { return render.ClusterMap(run).Render(f) })
}
