package main

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/venuecluster/internal/config"
	"github.com/sells-group/venuecluster/internal/export"
	"github.com/sells-group/venuecluster/internal/model"
	"github.com/sells-group/venuecluster/internal/monitoring"
	"github.com/sells-group/venuecluster/internal/pipeline"
)

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Cluster neighborhoods from a venues CSV without network access",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := applyClusterFlags(cmd); err != nil {
			return err
		}
		if err := cfg.Validate("cluster"); err != nil {
			return eris.Wrap(err, "cluster: invalid config")
		}

		path, _ := cmd.Flags().GetString("venues")
		hoods, venues, err := loadVenues(path)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		var rs pipeline.RunSaver
		if st != nil {
			defer st.Close() //nolint:errcheck
			rs = st
		}

		metrics := monitoring.NewMetrics()
		run, err := clusterOffline(ctx, cfg, hoods, venues, rs, metrics)
		writeRunMetrics(metrics, cfg.Output.Dir)
		if err != nil {
			return err
		}

		files, err := newExportWriter(cfg).Write(run)
		if err != nil {
			return eris.Wrap(err, "cluster: write outputs")
		}
		zap.L().Info("offline clustering complete",
			zap.String("run_id", run.ID),
			zap.Int("neighborhoods", len(run.Neighborhoods)),
			zap.Strings("files", files),
		)
		formatClusters(os.Stdout, run)
		return nil
	},
}

func loadVenues(path string) ([]model.Neighborhood, []model.Venue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "cluster: open %s", path)
	}
	defer f.Close() //nolint:errcheck
	return export.ReadVenues(f)
}

// clusterOffline runs the clustering core. rs and m may be nil.
func clusterOffline(ctx context.Context, c *config.Config, hoods []model.Neighborhood, venues []model.Venue, rs pipeline.RunSaver, m *monitoring.Metrics) (*model.Run, error) {
	p := pipeline.New(c, nil, nil, nil)
	p.SetMetrics(m)
	if rs != nil {
		p.SetRunSaver(rs)
	}
	return p.RunOffline(ctx, hoods, venues)
}

func init() {
	addClusterFlags(clusterCmd)
	clusterCmd.Flags().String("venues", "", "venues CSV written by a previous run")
	_ = clusterCmd.MarkFlagRequired("venues")
	rootCmd.AddCommand(clusterCmd)
}
