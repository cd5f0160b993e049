// Package pipeline runs the neighborhood comparison end to end: catalog,
// geocoding, venue retrieval, vectorization, clustering and assembly.
package pipeline

import (
	"context"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/venuecluster/internal/config"
	"github.com/sells-group/venuecluster/internal/model"
	"github.com/sells-group/venuecluster/internal/monitoring"
	"github.com/sells-group/venuecluster/pkg/foursquare"
	"github.com/sells-group/venuecluster/pkg/geocode"
)

// CatalogBuilder produces the list of neighborhoods to compare.
type CatalogBuilder interface {
	Build(ctx context.Context) ([]model.Neighborhood, error)
}

// RunSaver persists run records.
type RunSaver interface {
	SaveRun(ctx context.Context, run *model.Run) error
}

// Pipeline orchestrates one comparison run.
type Pipeline struct {
	cfg      *config.Config
	catalog  CatalogBuilder
	geocoder geocode.Client
	venues   foursquare.Retriever
	runs     RunSaver
	metrics  *monitoring.Metrics
	now      func() time.Time
}

// New creates a Pipeline with its required dependencies.
func New(cfg *config.Config, catalog CatalogBuilder, geocoder geocode.Client, venues foursquare.Retriever) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		catalog:  catalog,
		geocoder: geocoder,
		venues:   venues,
		now:      time.Now,
	}
}

// SetRunSaver enables persisting finished and failed runs.
func (p *Pipeline) SetRunSaver(rs RunSaver) {
	p.runs = rs
}

// SetMetrics enables Prometheus instrumentation.
func (p *Pipeline) SetMetrics(m *monitoring.Metrics) {
	p.metrics = m
}

// Params returns the run parameters derived from cfg.
func Params(cfg *config.Config) model.RunParams {
	return model.RunParams{
		K:             cfg.Cluster.K,
		Seed:          cfg.Cluster.Seed,
		TopN:          cfg.Cluster.TopN,
		MaxIterations: cfg.Cluster.MaxIterations,
		IncludeEmpty:  cfg.Cluster.IncludeEmpty,
		RadiusMeters:  cfg.Foursquare.Radius,
		VenueLimit:    cfg.Foursquare.Limit,
	}
}

// Run executes the full pipeline. A failed run returns an error and no
// run; if a RunSaver is set the failure is still recorded.
func (p *Pipeline) Run(ctx context.Context) (*model.Run, error) {
	run := p.newRun()
	log := zap.L().With(zap.String("run_id", run.ID))
	log.Info("pipeline: starting run",
		zap.Int("k", run.Params.K),
		zap.Uint64("seed", run.Params.Seed),
		zap.Int("top_n", run.Params.TopN),
	)

	err := p.execute(ctx, run, log)
	return p.finish(ctx, run, log, err)
}

// RunOffline runs the clustering core over previously retrieved venues.
// Neighborhoods without a location are skipped like geocode misses.
func (p *Pipeline) RunOffline(ctx context.Context, neighborhoods []model.Neighborhood, venues []model.Venue) (*model.Run, error) {
	run := p.newRun()
	log := zap.L().With(zap.String("run_id", run.ID), zap.Bool("offline", true))
	log.Info("pipeline: starting offline run",
		zap.Int("neighborhoods", len(neighborhoods)),
		zap.Int("venues", len(venues)),
	)

	run.Neighborhoods = neighborhoods
	run.Venues = venues
	for _, n := range neighborhoods {
		if !n.Geocoded() {
			run.GeocodeMisses++
		}
	}
	err := p.analyze(run, log)
	return p.finish(ctx, run, log, err)
}

func (p *Pipeline) newRun() *model.Run {
	return &model.Run{
		ID:        uuid.NewString(),
		Status:    model.RunStatusCataloging,
		Params:    Params(p.cfg),
		StartedAt: p.now().UTC(),
	}
}

func (p *Pipeline) execute(ctx context.Context, run *model.Run, log *zap.Logger) error {
	// Fail fast on knobs that no data can satisfy.
	if err := validateParams(run.Params); err != nil {
		return err
	}

	var neighborhoods []model.Neighborhood
	err := p.stage(log, "catalog", func() error {
		var err error
		neighborhoods, err = p.catalog.Build(ctx)
		if err != nil {
			return eris.Wrap(err, "pipeline: build catalog")
		}
		if len(neighborhoods) == 0 {
			return eris.New("pipeline: catalog is empty")
		}
		return nil
	})
	if err != nil {
		return err
	}
	p.metrics.SetNeighborhoods("cataloged", len(neighborhoods))

	run.Status = model.RunStatusGeocoding
	if err := p.stage(log, "geocode", func() error {
		return p.geocodeAll(ctx, run, neighborhoods, log)
	}); err != nil {
		return err
	}
	run.Neighborhoods = neighborhoods

	run.Status = model.RunStatusVenues
	if err := p.stage(log, "venues", func() error {
		return p.retrieveAll(ctx, run, log)
	}); err != nil {
		return err
	}

	return p.analyze(run, log)
}

// geocodeAll attaches locations in place. A miss or a geocoder error leaves
// the location nil; only cancellation aborts.
func (p *Pipeline) geocodeAll(ctx context.Context, run *model.Run, neighborhoods []model.Neighborhood, log *zap.Logger) error {
	for i := range neighborhoods {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := &neighborhoods[i]
		res, err := p.geocoder.Geocode(ctx, n.ID)
		switch {
		case err != nil:
			log.Warn("pipeline: geocode failed", zap.String("neighborhood", n.ID), zap.Error(err))
			p.metrics.Geocode("error")
			run.GeocodeMisses++
		case res == nil || !res.Matched:
			log.Info("pipeline: geocode miss", zap.String("neighborhood", n.ID))
			p.metrics.Geocode("unmatched")
			run.GeocodeMisses++
		default:
			n.Location = &model.Point{Lat: res.Latitude, Lng: res.Longitude}
			p.metrics.Geocode("matched")
			log.Debug("pipeline: geocoded",
				zap.String("neighborhood", n.ID),
				zap.Stringer("location", n.Location),
				zap.String("source", res.Source),
			)
		}
	}
	p.metrics.SetNeighborhoods("geocoded", len(neighborhoods)-run.GeocodeMisses)
	return nil
}

// retrieveAll collects venues for every geocoded neighborhood. A failed
// request yields zero venues for that neighborhood.
func (p *Pipeline) retrieveAll(ctx context.Context, run *model.Run, log *zap.Logger) error {
	for i := range run.Neighborhoods {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := &run.Neighborhoods[i]
		if !n.Geocoded() {
			continue
		}
		found, err := p.venues.Explore(ctx, foursquare.Query{
			Lat:    n.Location.Lat,
			Lng:    n.Location.Lng,
			Radius: run.Params.RadiusMeters,
			Limit:  run.Params.VenueLimit,
		})
		if err != nil {
			log.Warn("pipeline: venue retrieval failed, using zero venues",
				zap.String("neighborhood", n.ID),
				zap.Error(err),
			)
			p.metrics.Venues("error", 0)
			run.VenueFailures++
			continue
		}
		p.metrics.Venues("ok", len(found))
		for _, v := range found {
			run.Venues = append(run.Venues, model.Venue{
				Neighborhood: n.ID,
				Name:         v.Name,
				Lat:          v.Lat,
				Lng:          v.Lng,
				Category:     v.Category,
			})
		}
		n.VenueCount = len(found)
	}
	log.Info("pipeline: venues retrieved",
		zap.Int("venues", len(run.Venues)),
		zap.Int("failures", run.VenueFailures),
	)
	return nil
}

func (p *Pipeline) analyze(run *model.Run, log *zap.Logger) error {
	run.Status = model.RunStatusClustering

	var a *Analysis
	err := p.stage(log, "cluster", func() error {
		var err error
		a, err = Analyze(run.Neighborhoods, run.Venues, run.Params)
		return err
	})
	if err != nil {
		return err
	}

	run.Neighborhoods = a.Neighborhoods
	run.Categories = a.Table.Columns()
	run.Clusters = a.Clusters
	run.Excluded = a.Excluded
	run.Inertia = a.Result.Inertia
	run.Iterations = a.Result.Iterations
	run.Focus = focusSummary(a, p.cfg.Maps.Focus)

	log.Info("pipeline: clustered",
		zap.Int("neighborhoods", a.Clustered.Len()),
		zap.Int("unique_categories", len(run.Categories)),
		zap.Int("iterations", a.Result.Iterations),
		zap.Bool("converged", a.Result.Converged),
		zap.Float64("inertia", a.Result.Inertia),
	)
	if run.Focus != nil {
		log.Info("pipeline: focus neighborhood",
			zap.String("neighborhood", run.Focus.ID),
			zap.Int("venues", run.Focus.VenueCount),
			zap.Int("unique_categories", len(run.Focus.Categories)),
		)
	}

	sizes := make(map[string]int, len(run.Clusters))
	for _, c := range run.Clusters {
		sizes[strconv.Itoa(c.Label)] = c.Size
	}
	p.metrics.SetClusters(run.Inertia, sizes)
	p.metrics.SetNeighborhoods("clustered", a.Clustered.Len())
	p.metrics.SetNeighborhoods("excluded", len(a.Excluded))
	return nil
}

func (p *Pipeline) finish(ctx context.Context, run *model.Run, log *zap.Logger, err error) (*model.Run, error) {
	run.FinishedAt = p.now().UTC()
	if err != nil {
		run.Status = model.RunStatusFailed
		run.Error = err.Error()
		log.Error("pipeline: run failed", zap.Error(err))
	} else {
		run.Status = model.RunStatusComplete
		log.Info("pipeline: run complete",
			zap.Duration("elapsed", run.FinishedAt.Sub(run.StartedAt)),
			zap.Int("clusters", len(run.Clusters)),
		)
	}
	p.metrics.RunFinished(string(run.Status))

	if p.runs != nil {
		if saveErr := p.runs.SaveRun(ctx, run); saveErr != nil {
			log.Warn("pipeline: failed to save run", zap.Error(saveErr))
		}
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// stage times fn and logs its outcome.
func (p *Pipeline) stage(log *zap.Logger, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	p.metrics.ObserveStage(name, elapsed.Seconds())
	if err != nil {
		log.Error("pipeline: stage failed",
			zap.String("stage", name),
			zap.Int64("duration_ms", elapsed.Milliseconds()),
			zap.Error(err),
		)
		return err
	}
	log.Info("pipeline: stage complete",
		zap.String("stage", name),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
	)
	return nil
}

func focusSummary(a *Analysis, id string) *model.FocusSummary {
	row, ok := a.Table.Row(id)
	if !ok {
		return nil
	}
	columns := a.Table.Columns()
	var cats []string
	for i, f := range row {
		if f > 0 {
			cats = append(cats, columns[i])
		}
	}
	slices.Sort(cats)
	return &model.FocusSummary{
		ID:         id,
		VenueCount: a.Table.VenueCount(id),
		Categories: cats,
	}
}
