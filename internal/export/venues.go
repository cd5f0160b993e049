// Package export writes run results to CSV, XLSX, shapefile, GeoJSON, HTML
// and JSON files, and reads venue CSVs back for offline clustering.
package export

import (
	"encoding/csv"
	"errors"
	"io"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/venuecluster/internal/model"
)

// VenueRecord is one row of the venues CSV. Neighborhood coordinates are
// optional on input.
type VenueRecord struct {
	Neighborhood    string   `csv:"Neighborhood"`
	NeighborhoodLat *float64 `csv:"Neighborhood Latitude,omitempty"`
	NeighborhoodLng *float64 `csv:"Neighborhood Longitude,omitempty"`
	Venue           string   `csv:"Venue"`
	VenueLat        float64  `csv:"Venue Latitude"`
	VenueLng        float64  `csv:"Venue Longitude"`
	Category        string   `csv:"Venue Category"`
}

// WriteVenues writes one row per venue, grouped by neighborhood in catalog
// order. A geocoded neighborhood without venues gets one placeholder row
// with no venue and no category, so that ReadVenues still sees it. Venues of
// neighborhoods missing from the catalog follow at the end.
func WriteVenues(w io.Writer, neighborhoods []model.Neighborhood, venues []model.Venue) error {
	byHood := make(map[string][]model.Venue)
	for _, v := range venues {
		byHood[v.Neighborhood] = append(byHood[v.Neighborhood], v)
	}

	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	rows := 0

	written := make(map[string]bool, len(neighborhoods))
	for _, n := range neighborhoods {
		if written[n.ID] {
			continue
		}
		written[n.ID] = true
		hv := byHood[n.ID]
		if len(hv) == 0 {
			if n.Location == nil {
				continue
			}
			rec := VenueRecord{Neighborhood: n.ID, NeighborhoodLat: &n.Location.Lat, NeighborhoodLng: &n.Location.Lng}
			if err := enc.Encode(rec); err != nil {
				return eris.Wrap(err, "export: encode placeholder")
			}
			rows++
			continue
		}
		for _, v := range hv {
			if err := enc.Encode(venueRecord(v, n.Location)); err != nil {
				return eris.Wrap(err, "export: encode venue")
			}
			rows++
		}
	}
	for _, v := range venues {
		if written[v.Neighborhood] {
			continue
		}
		if err := enc.Encode(venueRecord(v, nil)); err != nil {
			return eris.Wrap(err, "export: encode venue")
		}
		rows++
	}
	if rows == 0 {
		if err := enc.EncodeHeader(VenueRecord{}); err != nil {
			return eris.Wrap(err, "export: write venues header")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush venues")
}

func venueRecord(v model.Venue, loc *model.Point) VenueRecord {
	rec := VenueRecord{
		Neighborhood: v.Neighborhood,
		Venue:        v.Name,
		VenueLat:     v.Lat,
		VenueLng:     v.Lng,
		Category:     v.Category,
	}
	if loc != nil {
		rec.NeighborhoodLat = &loc.Lat
		rec.NeighborhoodLng = &loc.Lng
	}
	return rec
}

// placeholder reports whether rec only marks a neighborhood without venues.
func (rec VenueRecord) placeholder() bool {
	return rec.Venue == "" && rec.Category == ""
}

// ReadVenues parses a venues CSV. Neighborhoods are returned in first-seen
// order; one without coordinates in the file is placed at the mean of its
// venues. Placeholder rows yield a neighborhood with no venues.
func ReadVenues(r io.Reader) ([]model.Neighborhood, []model.Venue, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, eris.New("export: venues csv is empty")
		}
		return nil, nil, eris.Wrap(err, "export: read venues header")
	}

	var (
		venues []model.Venue
		order  []string
		seen   = map[string]bool{}
		given  = map[string]*model.Point{}
	)
	for line := 2; ; line++ {
		var rec VenueRecord
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, eris.Wrapf(err, "export: decode venues line %d", line)
		}
		if rec.Neighborhood == "" {
			return nil, nil, eris.Errorf("export: venues line %d has no neighborhood", line)
		}
		if !seen[rec.Neighborhood] {
			seen[rec.Neighborhood] = true
			order = append(order, rec.Neighborhood)
		}
		if rec.NeighborhoodLat != nil && rec.NeighborhoodLng != nil {
			if _, ok := given[rec.Neighborhood]; !ok {
				given[rec.Neighborhood] = &model.Point{Lat: *rec.NeighborhoodLat, Lng: *rec.NeighborhoodLng}
			}
		}
		if rec.placeholder() {
			continue
		}
		venues = append(venues, model.Venue{
			Neighborhood: rec.Neighborhood,
			Name:         rec.Venue,
			Lat:          rec.VenueLat,
			Lng:          rec.VenueLng,
			Category:     rec.Category,
		})
	}

	derived := make(map[string]model.Neighborhood)
	for _, n := range model.NeighborhoodsFromVenues(venues) {
		derived[n.ID] = n
	}
	neighborhoods := make([]model.Neighborhood, 0, len(order))
	for _, id := range order {
		n, ok := derived[id]
		if !ok {
			n = model.Neighborhood{ID: id, Name: id}
		}
		if loc, ok := given[id]; ok {
			n.Location = loc
		}
		neighborhoods = append(neighborhoods, n)
	}
	return neighborhoods, venues, nil
}
