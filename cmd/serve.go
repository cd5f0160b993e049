package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/venuecluster/internal/export"
	"github.com/sells-group/venuecluster/internal/model"
	"github.com/sells-group/venuecluster/internal/monitoring"
	"github.com/sells-group/venuecluster/internal/server"
	"github.com/sells-group/venuecluster/internal/store"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a finished run over HTTP",
	Long:  "Serves the maps, neighborhoods and clusters of a finished run. The run is read from --results, from --run in the cache database, or defaults to the latest complete cached run.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return eris.Wrap(err, "serve: invalid config")
		}

		resultsPath, _ := cmd.Flags().GetString("results")
		runID, _ := cmd.Flags().GetString("run")

		opts := []server.Option{
			server.WithMetrics(monitoring.NewMetrics()),
			server.WithCORSOrigins(cfg.Server.CORSOrigins),
		}

		var run *model.Run
		if resultsPath != "" {
			r, err := export.LoadRun(resultsPath)
			if err != nil {
				return err
			}
			run = r
		}

		if cfg.Cache.Enabled {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			opts = append(opts, server.WithCollector(monitoring.NewCollector(st)))

			if run == nil {
				r, err := loadStoredRun(ctx, st, runID)
				if err != nil {
					return err
				}
				run = r
			}
		}
		if run == nil {
			return eris.New("serve: no run to serve; pass --results or enable the cache")
		}

		port, _ := cmd.Flags().GetInt("port")
		if port == 0 {
			port = cfg.Server.Port
		}
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err != nil {
			return eris.Wrapf(err, "serve: listen on port %d", port)
		}

		zap.L().Info("starting server",
			zap.Int("port", port),
			zap.String("run_id", run.ID),
		)
		return serveHandler(ctx, ln, server.New(run, opts...).Handler())
	},
}

// loadStoredRun returns the complete run with the given id, or the latest
// complete run when id is empty.
func loadStoredRun(ctx context.Context, st store.Store, id string) (*model.Run, error) {
	if id == "" {
		run, err := st.LatestCompleteRun(ctx)
		if errors.Is(err, store.ErrNotFound) {
			return nil, eris.New("serve: no complete runs in the cache; run `venuecluster run` first")
		}
		return run, eris.Wrap(err, "serve: load latest run")
	}

	run, err := st.GetRun(ctx, id)
	if err != nil {
		return nil, eris.Wrapf(err, "serve: load run %s", id)
	}
	if run.Status != model.RunStatusComplete {
		return nil, eris.Errorf("serve: run %s is %s, not complete", id, run.Status)
	}
	return run, nil
}

// serveHandler serves h on ln until ctx is canceled, then shuts down
// gracefully.
func serveHandler(ctx context.Context, ln net.Listener, h http.Handler) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "serve: listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return eris.Wrap(srv.Shutdown(shutdownCtx), "serve: shutdown")
	})
	return g.Wait()
}

func init() {
	serveCmd.Flags().Int("port", 0, "server port (default from config)")
	serveCmd.Flags().String("results", "", "run JSON written by a previous run")
	serveCmd.Flags().String("run", "", "run id to load from the cache database")
	rootCmd.AddCommand(serveCmd)
}
