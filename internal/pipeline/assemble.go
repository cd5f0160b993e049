package pipeline

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/venuecluster/internal/features"
	"github.com/sells-group/venuecluster/internal/model"
)

// Assemble joins cluster labels and top-category rankings onto the catalog.
// labels[i] belongs to the i-th row of clustered. Entries are matched by
// exact identifier; catalog entries absent from clustered get a nil cluster
// and no ranking. The catalog slice is not modified.
func Assemble(catalog []model.Neighborhood, clustered *features.Table, labels []int, topN int) ([]model.Neighborhood, error) {
	if topN <= 0 {
		return nil, features.ErrInvalidTopN
	}
	ids := clustered.IDs()
	if len(labels) != len(ids) {
		return nil, eris.Errorf("pipeline: %d labels for %d clustered rows", len(labels), len(ids))
	}

	byID := make(map[string]int, len(ids))
	for i, id := range ids {
		byID[id] = labels[i]
	}

	out := make([]model.Neighborhood, len(catalog))
	for i, n := range catalog {
		n.Cluster = nil
		n.TopCategories = nil
		if label, ok := byID[n.ID]; ok {
			n.Cluster = &label
			top, err := clustered.TopCategoryNames(n.ID, topN)
			if err != nil {
				return nil, eris.Wrapf(err, "pipeline: rank %s", n.ID)
			}
			n.TopCategories = top
		}
		out[i] = n
	}
	return out, nil
}

// Summarize builds one summary per cluster label. Members keep table order;
// top categories come from the centroid and omit zero-frequency entries.
func Summarize(clustered *features.Table, labels []int, centroids [][]float64, topN int) ([]model.ClusterSummary, error) {
	ids := clustered.IDs()
	columns := clustered.Columns()

	summaries := make([]model.ClusterSummary, len(centroids))
	for label := range summaries {
		summaries[label].Label = label
		summaries[label].Members = []string{}
	}
	for i, label := range labels {
		s := &summaries[label]
		s.Size++
		s.Members = append(s.Members, ids[i])
	}

	for label, centroid := range centroids {
		ranked, err := features.TopCategories(columns, centroid, topN)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(ranked))
		for _, r := range ranked {
			if r.Frequency > 0 {
				names = append(names, r.Category)
			}
		}
		summaries[label].TopCategories = names
	}
	return summaries, nil
}
