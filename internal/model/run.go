package model

import "time"

// RunStatus represents the current state of an analysis run.
type RunStatus string

const (
	RunStatusCataloging RunStatus = "cataloging"
	RunStatusGeocoding  RunStatus = "geocoding"
	RunStatusVenues     RunStatus = "venues"
	RunStatusClustering RunStatus = "clustering"
	RunStatusComplete   RunStatus = "complete"
	RunStatusFailed     RunStatus = "failed"
)

// RunParams records the knobs a run was executed with.
type RunParams struct {
	K             int    `json:"k"`
	Seed          uint64 `json:"seed"`
	TopN          int    `json:"top_n"`
	MaxIterations int    `json:"max_iterations"`
	IncludeEmpty  bool   `json:"include_empty"`
	RadiusMeters  int    `json:"radius_meters"`
	VenueLimit    int    `json:"venue_limit"`
}

// ClusterSummary describes one cluster of a finished run.
type ClusterSummary struct {
	Label         int      `json:"label"`
	Size          int      `json:"size"`
	Members       []string `json:"members"`
	TopCategories []string `json:"top_categories"`
}

// Run is the serialized outcome of one pipeline execution.
type Run struct {
	ID            string           `json:"id"`
	Status        RunStatus        `json:"status"`
	Params        RunParams        `json:"params"`
	StartedAt     time.Time        `json:"started_at"`
	FinishedAt    time.Time        `json:"finished_at"`
	Neighborhoods []Neighborhood   `json:"neighborhoods"`
	Venues        []Venue          `json:"venues"`
	Categories    []string         `json:"categories"`
	Clusters      []ClusterSummary `json:"clusters"`
	Inertia       float64          `json:"inertia"`
	Iterations    int              `json:"iterations"`
	GeocodeMisses int              `json:"geocode_misses"`
	VenueFailures int              `json:"venue_failures"`
	Excluded      []string         `json:"excluded,omitempty"`
	Focus         *FocusSummary    `json:"focus,omitempty"`
	Error         string           `json:"error,omitempty"`
}

// FocusSummary describes the venue mix of the neighborhood a run centers on.
type FocusSummary struct {
	ID         string   `json:"id"`
	VenueCount int      `json:"venue_count"`
	Categories []string `json:"categories"`
}

// ClusterMembers returns the neighborhoods assigned to the given cluster.
func (r *Run) ClusterMembers(label int) []Neighborhood {
	var out []Neighborhood
	for _, n := range r.Neighborhoods {
		if n.Cluster != nil && *n.Cluster == label {
			out = append(out, n)
		}
	}
	return out
}

// Neighborhood looks up a neighborhood by identifier.
func (r *Run) Neighborhood(id string) (Neighborhood, bool) {
	for _, n := range r.Neighborhoods {
		if n.ID == id {
			return n, true
		}
	}
	return Neighborhood{}, false
}
