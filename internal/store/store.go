// Package store persists run results and caches geocoder and venue API
// responses in SQLite.
package store

import (
	"context"
	"time"

	"github.com/sells-group/venuecluster/internal/model"
	"github.com/sells-group/venuecluster/pkg/foursquare"
	"github.com/sells-group/venuecluster/pkg/geocode"
)

// RunInfo is the listing view of a stored run.
type RunInfo struct {
	ID        string          `json:"id"`
	Status    model.RunStatus `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// Store defines the persistence interface for the pipeline.
type Store interface {
	geocode.Cache
	foursquare.Cache

	SaveRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	LatestCompleteRun(ctx context.Context) (*model.Run, error)
	ListRuns(ctx context.Context, limit int) ([]RunInfo, error)

	// DeleteExpired drops cache entries past their TTL.
	DeleteExpired(ctx context.Context) (int, error)

	Migrate(ctx context.Context) error
	Close() error
}
