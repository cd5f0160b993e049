package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/venuecluster/internal/model"
	"github.com/sells-group/venuecluster/internal/store"
)

// RunLister abstracts the store methods needed by the collector.
type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]store.RunInfo, error)
}

// Snapshot summarizes recent run history.
type Snapshot struct {
	RunsTotal    int       `json:"runs_total"`
	RunsComplete int       `json:"runs_complete"`
	RunsFailed   int       `json:"runs_failed"`
	FailRate     float64   `json:"fail_rate"`
	LastRunID    string    `json:"last_run_id,omitempty"`
	LastRunAt    time.Time `json:"last_run_at,omitzero"`
	CollectedAt  time.Time `json:"collected_at"`
}

// Collector gathers run history from the store.
type Collector struct {
	runs RunLister
}

// NewCollector creates a new run history collector.
func NewCollector(runs RunLister) *Collector {
	return &Collector{runs: runs}
}

// Collect summarizes up to limit of the most recent runs.
func (c *Collector) Collect(ctx context.Context, limit int) (*Snapshot, error) {
	infos, err := c.runs.ListRuns(ctx, limit)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap := &Snapshot{
		RunsTotal:   len(infos),
		CollectedAt: time.Now().UTC(),
	}
	for _, r := range infos {
		switch r.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
		case model.RunStatusFailed:
			snap.RunsFailed++
		}
	}
	if finished := snap.RunsComplete + snap.RunsFailed; finished > 0 {
		snap.FailRate = float64(snap.RunsFailed) / float64(finished)
	}
	if len(infos) > 0 {
		snap.LastRunID = infos[0].ID
		snap.LastRunAt = infos[0].CreatedAt
	}
	return snap, nil
}
