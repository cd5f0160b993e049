package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/venuecluster/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "venuecluster",
	Short: "Compare city neighborhoods by the venues around them",
	Long:  "Scrapes neighborhood lists, geocodes them, pulls nearby venues from Foursquare, clusters neighborhoods by venue-category mix with k-means, and renders maps and exports.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
