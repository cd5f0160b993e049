package pipeline

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/venuecluster/internal/cluster"
	"github.com/sells-group/venuecluster/internal/features"
	"github.com/sells-group/venuecluster/internal/model"
)

// Analysis is the output of the offline core: vectorize, cluster, rank and
// assemble.
type Analysis struct {
	Neighborhoods []model.Neighborhood
	Table         *features.Table
	Clustered     *features.Table
	Result        *cluster.Result
	Clusters      []model.ClusterSummary
	Excluded      []string
}

// Analyze runs the clustering core over neighborhoods and their venues.
// Only neighborhoods with a location take part. Configuration errors (k or
// top-n out of range for the data) are returned before clustering starts.
func Analyze(neighborhoods []model.Neighborhood, venues []model.Venue, params model.RunParams) (*Analysis, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(neighborhoods))
	for _, n := range neighborhoods {
		if n.Geocoded() {
			ids = append(ids, n.ID)
		}
	}

	table := features.Vectorize(ids, venues)
	clustered := table
	var excluded []string
	if !params.IncludeEmpty {
		excluded = table.Empty()
		clustered = table.WithoutEmpty()
	}
	if len(excluded) > 0 {
		zap.L().Info("pipeline: excluding neighborhoods without venues",
			zap.Strings("neighborhoods", excluded),
		)
	}

	if err := cluster.Validate(params.K, clustered.Len()); err != nil {
		return nil, eris.Wrap(err, "pipeline: validate cluster params")
	}

	result, err := cluster.KMeans(clustered.Matrix(), cluster.Options{
		K:             params.K,
		Seed:          params.Seed,
		MaxIterations: params.MaxIterations,
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: cluster")
	}

	// Venue counts reflect the input even for rows dropped from clustering.
	counted := make([]model.Neighborhood, len(neighborhoods))
	for i, n := range neighborhoods {
		if table.Has(n.ID) {
			n.VenueCount = table.VenueCount(n.ID)
		}
		counted[i] = n
	}

	assembled, err := Assemble(counted, clustered, result.Labels, params.TopN)
	if err != nil {
		return nil, err
	}
	summaries, err := Summarize(clustered, result.Labels, result.Centroids, params.TopN)
	if err != nil {
		return nil, err
	}

	return &Analysis{
		Neighborhoods: assembled,
		Table:         table,
		Clustered:     clustered,
		Result:        result,
		Clusters:      summaries,
		Excluded:      excluded,
	}, nil
}

// validateParams rejects settings that are invalid regardless of the data.
func validateParams(params model.RunParams) error {
	if params.TopN <= 0 {
		return eris.Wrapf(features.ErrInvalidTopN, "top_n=%d", params.TopN)
	}
	if params.K <= 0 {
		return eris.Wrapf(cluster.ErrInvalidK, "k=%d", params.K)
	}
	return nil
}
