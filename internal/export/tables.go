package export

import (
	"strings"

	"github.com/sells-group/venuecluster/internal/features"
	"github.com/sells-group/venuecluster/internal/model"
)

// Sheet is a rectangular table of typed cells: string, int, float64, or
// nil for an empty cell.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]any
}

// NeighborhoodSheet lists every catalog entry with its location, venue
// count, cluster and ranked categories ("1st Most Common Venue", ...).
func NeighborhoodSheet(run *model.Run) Sheet {
	ranks := 0
	for _, n := range run.Neighborhoods {
		ranks = max(ranks, len(n.TopCategories))
	}

	s := Sheet{
		Name:   "neighborhoods",
		Header: []string{"ID", "Name", "District", "City", "Country", "Latitude", "Longitude", "Venues", "Cluster"},
	}
	for i := range ranks {
		s.Header = append(s.Header, features.Ordinal(i+1)+" Most Common Venue")
	}

	for _, n := range run.Neighborhoods {
		row := []any{n.ID, n.Name, n.District, n.City, n.Country, nil, nil, n.VenueCount, nil}
		if n.Location != nil {
			row[5], row[6] = n.Location.Lat, n.Location.Lng
		}
		if n.Cluster != nil {
			row[8] = *n.Cluster
		}
		for i := range ranks {
			if i < len(n.TopCategories) {
				row = append(row, n.TopCategories[i])
			} else {
				row = append(row, nil)
			}
		}
		s.Rows = append(s.Rows, row)
	}
	return s
}

// ClusterSheet summarizes each cluster.
func ClusterSheet(run *model.Run) Sheet {
	s := Sheet{
		Name:   "clusters",
		Header: []string{"Cluster", "Size", "Members", "Top Categories"},
	}
	for _, c := range run.Clusters {
		s.Rows = append(s.Rows, []any{c.Label, c.Size, strings.Join(c.Members, "; "), strings.Join(c.TopCategories, "; ")})
	}
	return s
}

// FrequencySheet rebuilds the category frequency table of the run's
// geocoded neighborhoods.
func FrequencySheet(run *model.Run) Sheet {
	var ids []string
	for _, n := range run.Neighborhoods {
		if n.Geocoded() {
			ids = append(ids, n.ID)
		}
	}
	table := features.Vectorize(ids, run.Venues)

	s := Sheet{Name: "frequency", Header: append([]string{"Neighborhood"}, table.Columns()...)}
	for _, id := range table.IDs() {
		row, _ := table.Row(id)
		cells := make([]any, 0, len(row)+1)
		cells = append(cells, id)
		for _, f := range row {
			cells = append(cells, f)
		}
		s.Rows = append(s.Rows, cells)
	}
	return s
}
