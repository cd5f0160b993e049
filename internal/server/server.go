// Package server exposes a finished run over HTTP: JSON endpoints, GeoJSON,
// Leaflet maps and Prometheus metrics.
package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sells-group/venuecluster/internal/model"
	"github.com/sells-group/venuecluster/internal/monitoring"
	"github.com/sells-group/venuecluster/internal/render"
)

// Server serves one run.
type Server struct {
	run       *model.Run
	metrics   *monitoring.Metrics
	collector *monitoring.Collector
	origins   []string
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics exposes m on /metrics.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithCollector enables /api/runs/summary.
func WithCollector(c *monitoring.Collector) Option {
	return func(s *Server) { s.collector = c }
}

// WithCORSOrigins sets the allowed CORS origins.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

// New creates a Server for run.
func New(run *model.Run, opts ...Option) *Server {
	s := &Server{run: run, origins: []string{"*"}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", promhttp.HandlerFor(s.metrics.Gatherer(), promhttp.HandlerOpts{}).ServeHTTP)
	r.Get("/map", s.handleClusterMap)
	r.Get("/map/{id}", s.handleVenueMap)

	r.Route("/api", func(r chi.Router) {
		r.Get("/run", s.handleRun)
		r.Get("/runs/summary", s.handleRunsSummary)
		r.Get("/clusters", s.handleClusters)
		r.Get("/neighborhoods", s.handleNeighborhoods)
		r.Get("/neighborhoods.geojson", s.handleGeoJSON)
		r.Get("/neighborhoods/{id}", s.handleNeighborhood)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "run_id": s.run.ID})
}

func (s *Server) handleRun(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.run)
}

func (s *Server) handleRunsSummary(w http.ResponseWriter, r *http.Request) {
	if s.collector == nil {
		writeError(w, http.StatusNotFound, "run history is not available")
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	snap, err := s.collector.Collect(r.Context(), limit)
	if err != nil {
		zap.L().Error("server: collect run history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to collect run history")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleClusters(w http.ResponseWriter, _ *http.Request) {
	clusters := s.run.Clusters
	if clusters == nil {
		clusters = []model.ClusterSummary{}
	}
	writeJSON(w, http.StatusOK, clusters)
}

// handleNeighborhoods lists neighborhoods, optionally only those in
// ?cluster=N.
func (s *Server) handleNeighborhoods(w http.ResponseWriter, r *http.Request) {
	out := s.run.Neighborhoods
	if v := r.URL.Query().Get("cluster"); v != "" {
		label, err := strconv.Atoi(v)
		if err != nil || label < 0 {
			writeError(w, http.StatusBadRequest, "cluster must be a non-negative integer")
			return
		}
		out = s.run.ClusterMembers(label)
	}
	if out == nil {
		out = []model.Neighborhood{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleNeighborhood(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	n, ok := s.run.Neighborhood(id)
	if !ok {
		writeError(w, http.StatusNotFound, "neighborhood not found")
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleGeoJSON(w http.ResponseWriter, _ *http.Request) {
	data, err := render.MarshalGeoJSON(s.run.Neighborhoods)
	if err != nil {
		zap.L().Error("server: geojson", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to encode geojson")
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(data)
}

func (s *Server) handleClusterMap(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render.ClusterMap(s.run).Render(w); err != nil {
		zap.L().Error("server: render cluster map", zap.Error(err))
	}
}

// handleVenueMap draws one neighborhood's venues; ?radius= overrides the
// circle radius in meters.
func (s *Server) handleVenueMap(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	radius := s.run.Params.RadiusMeters
	if radius <= 0 {
		radius = render.DefaultRadiusMeters
	}
	if v := r.URL.Query().Get("radius"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "radius must be a non-negative integer")
			return
		}
		radius = n
	}

	m, err := render.VenueMap(s.run, id, radius, render.DefaultZoom)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := m.Render(w); err != nil {
		zap.L().Error("server: render venue map", zap.Error(err))
	}
}

// pathID returns the decoded {id} segment. chi hands back the escaped
// form when the request path carries escapes such as %2C.
func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid neighborhood id")
		return "", false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("server: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
