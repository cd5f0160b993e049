package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/venuecluster/internal/model"
	"github.com/sells-group/venuecluster/internal/monitoring"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full comparison and write outputs",
	Long:  "Builds the neighborhood catalog, geocodes it, retrieves venues, clusters the neighborhoods and writes maps and exports to the output directory.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := applyClusterFlags(cmd); err != nil {
			return err
		}
		if err := cfg.Validate("run"); err != nil {
			return eris.Wrap(err, "run: invalid config")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
		}

		builder, err := newCatalogBuilder(cfg)
		if err != nil {
			return err
		}

		p, err := newPipeline(builder, st)
		if err != nil {
			return err
		}
		metrics := monitoring.NewMetrics()
		p.SetMetrics(metrics)

		run, err := p.Run(ctx)
		writeRunMetrics(metrics, cfg.Output.Dir)
		if err != nil {
			return err
		}

		files, err := newExportWriter(cfg).Write(run)
		if err != nil {
			return eris.Wrap(err, "run: write outputs")
		}

		zap.L().Info("run complete",
			zap.String("run_id", run.ID),
			zap.Int("neighborhoods", len(run.Neighborhoods)),
			zap.Int("categories", len(run.Categories)),
			zap.Strings("files", files),
		)
		formatClusters(os.Stdout, run)
		return nil
	},
}

// applyClusterFlags copies explicitly set clustering flags over config.
func applyClusterFlags(cmd *cobra.Command) error {
	f := cmd.Flags()
	if f.Changed("k") {
		v, _ := f.GetInt("k")
		cfg.Cluster.K = v
	}
	if f.Changed("seed") {
		v, _ := f.GetUint64("seed")
		cfg.Cluster.Seed = v
	}
	if f.Changed("top-n") {
		v, _ := f.GetInt("top-n")
		cfg.Cluster.TopN = v
	}
	if f.Changed("include-empty") {
		v, _ := f.GetBool("include-empty")
		cfg.Cluster.IncludeEmpty = v
	}
	if f.Changed("output") {
		v, _ := f.GetString("output")
		if v == "" {
			return eris.New("--output must not be empty")
		}
		cfg.Output.Dir = v
	}
	return nil
}

func addClusterFlags(cmd *cobra.Command) {
	cmd.Flags().Int("k", 0, "number of clusters (default from config)")
	cmd.Flags().Uint64("seed", 0, "k-means seed (default from config)")
	cmd.Flags().Int("top-n", 0, "top categories per neighborhood (default from config)")
	cmd.Flags().Bool("include-empty", false, "cluster neighborhoods with no venues")
	cmd.Flags().String("output", "", "output directory (default from config)")
}

// formatClusters prints one line per cluster with its size, leading
// categories and members.
func formatClusters(w io.Writer, run *model.Run) {
	fmt.Fprintf(w, "Run %s: %d neighborhoods, %d categories, inertia %.4f\n",
		run.ID, len(run.Neighborhoods), len(run.Categories), run.Inertia)
	if run.Focus != nil {
		fmt.Fprintf(w, "Focus %s: %d venues, %d categories\n",
			run.Focus.ID, run.Focus.VenueCount, len(run.Focus.Categories))
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CLUSTER\tSIZE\tTOP CATEGORIES\tMEMBERS")
	for _, c := range run.Clusters {
		top := c.TopCategories
		if len(top) > 3 {
			top = top[:3]
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n",
			c.Label, c.Size, strings.Join(top, ", "), truncate(strings.Join(c.Members, ", "), 60))
	}
	tw.Flush() //nolint:errcheck

	if len(run.Excluded) > 0 {
		fmt.Fprintf(w, "Excluded (no venues): %s\n", strings.Join(run.Excluded, ", "))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func init() {
	addClusterFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}
