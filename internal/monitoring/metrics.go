// Package monitoring exposes Prometheus metrics for pipeline runs and
// summarizes stored run history.
package monitoring

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
	"github.com/rotisserie/eris"
)

// TextfileName is the metrics file written next to a run's outputs, in the
// node_exporter textfile collector format.
const TextfileName = "metrics.prom"

const namePrefix = "venuecluster_"

// Metrics holds the pipeline's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Runs            *prometheus.CounterVec
	StageDuration   *prometheus.HistogramVec
	GeocodeRequests *prometheus.CounterVec
	VenueRequests   *prometheus.CounterVec
	VenuesRetrieved prometheus.Counter
	Neighborhoods   *prometheus.GaugeVec
	ClusterInertia  prometheus.Gauge
	ClusterSizes    *prometheus.GaugeVec
}

// NewMetrics registers all collectors on a fresh registry, together with
// the Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "venuecluster_runs_total",
			Help: "Pipeline runs by final status",
		}, []string{"status"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "venuecluster_stage_duration_seconds",
			Help:    "Time spent in each pipeline stage",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"stage"}),
		GeocodeRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "venuecluster_geocode_requests_total",
			Help: "Geocode lookups by outcome (matched, unmatched, error)",
		}, []string{"outcome"}),
		VenueRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "venuecluster_venue_requests_total",
			Help: "Venue explore requests by outcome (ok, error)",
		}, []string{"outcome"}),
		VenuesRetrieved: f.NewCounter(prometheus.CounterOpts{
			Name: "venuecluster_venues_retrieved_total",
			Help: "Venues returned by the venue service",
		}),
		Neighborhoods: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "venuecluster_neighborhoods",
			Help: "Neighborhoods in the last run by state (cataloged, geocoded, clustered, excluded)",
		}, []string{"state"}),
		ClusterInertia: f.NewGauge(prometheus.GaugeOpts{
			Name: "venuecluster_cluster_inertia",
			Help: "Within-cluster sum of squared distances of the last run",
		}),
		ClusterSizes: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "venuecluster_cluster_size",
			Help: "Members per cluster in the last run",
		}, []string{"cluster"}),
	}
}

// Gatherer returns the registry backing m, for the /metrics handler.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// ObserveStage records how long a stage took.
func (m *Metrics) ObserveStage(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(seconds)
}

// Geocode counts a geocode lookup outcome.
func (m *Metrics) Geocode(outcome string) {
	if m == nil {
		return
	}
	m.GeocodeRequests.WithLabelValues(outcome).Inc()
}

// Venues counts a venue request and the venues it returned.
func (m *Metrics) Venues(outcome string, n int) {
	if m == nil {
		return
	}
	m.VenueRequests.WithLabelValues(outcome).Inc()
	m.VenuesRetrieved.Add(float64(n))
}

// SetNeighborhoods records the neighborhood count for a state.
func (m *Metrics) SetNeighborhoods(state string, n int) {
	if m == nil {
		return
	}
	m.Neighborhoods.WithLabelValues(state).Set(float64(n))
}

// RunFinished counts a run by status.
func (m *Metrics) RunFinished(status string) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(status).Inc()
}

// SetClusters records inertia and cluster sizes, replacing earlier sizes.
func (m *Metrics) SetClusters(inertia float64, sizes map[string]int) {
	if m == nil {
		return
	}
	m.ClusterInertia.Set(inertia)
	m.ClusterSizes.Reset()
	for label, n := range sizes {
		m.ClusterSizes.WithLabelValues(label).Set(float64(n))
	}
}

// Pipeline gathers only the venuecluster_* families, leaving out the Go
// runtime and process collectors.
func (m *Metrics) Pipeline() prometheus.Gatherer {
	return prometheus.GathererFunc(func() ([]*dto.MetricFamily, error) {
		families, err := m.Gatherer().Gather()
		if err != nil {
			return nil, err
		}
		out := families[:0]
		for _, f := range families {
			if strings.HasPrefix(f.GetName(), namePrefix) {
				out = append(out, f)
			}
		}
		return out, nil
	})
}

// WriteTextfile writes the pipeline metrics to dir/metrics.prom, creating
// dir if needed, and returns the file path.
func (m *Metrics) WriteTextfile(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "monitoring: create %s", dir)
	}
	path := filepath.Join(dir, TextfileName)
	if err := prometheus.WriteToTextfile(path, m.Pipeline()); err != nil {
		return "", eris.Wrapf(err, "monitoring: write %s", path)
	}
	return path, nil
}
