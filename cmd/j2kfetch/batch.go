package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/mrjoshuak/go-j2kfetch/asset"
	"github.com/mrjoshuak/go-j2kfetch/batch"
	"github.com/mrjoshuak/go-j2kfetch/internal/logger"
	"github.com/mrjoshuak/go-j2kfetch/internal/metrics"
)

func newBatchCmd(a *app) *cobra.Command {
	var (
		listPath    string
		outDir      string
		workers     int
		maxDim      int
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "batch --list <file> --out-dir <dir>",
		Short: "Fetch every asset UUID in a list file",
		Long: `Fetch every asset UUID listed in --list, one per line, and write
<uuid>.png files to --out-dir. Blank lines and lines starting with '#' are
skipped.

The command exits non-zero when any asset failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxDim < 0 {
				return fmt.Errorf("--max-dim must not be negative, got %d", maxDim)
			}
			f, err := os.Open(listPath)
			if err != nil {
				return err
			}
			ids, err := batch.ReadIDs(f)
			f.Close()
			if err != nil {
				return fmt.Errorf("%s: %w", listPath, err)
			}

			if metricsAddr == "" {
				metricsAddr = a.cfg.Metrics.ListenAddr
			}
			var obs asset.Observer
			if metricsAddr != "" {
				reg := prometheus.NewRegistry()
				po, err := metrics.NewPrometheusObserver(a.cfg.Metrics.Namespace, reg)
				if err != nil {
					return err
				}
				srv, err := metrics.Listen(metricsAddr, reg)
				if err != nil {
					return fmt.Errorf("metrics listener: %w", err)
				}
				defer func() {
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(ctx)
				}()
				logger.L.Info("serving metrics", "addr", srv.Addr())
				obs = po
			}

			cfg := a.cfg.BatchConfig()
			cfg.OutDir = outDir
			cfg.MaxDim = maxDim
			if workers > 0 {
				cfg.Workers = workers
			}

			l := asset.NewLoader(a.newClient(obs), a.cfg.Retry.Policy())
			results, runErr := batch.NewRunner(l, cfg).Run(cmd.Context(), ids)

			for _, res := range results {
				if res.Err != nil {
					a.printf("FAIL %s: %v\n", res.ID, res.Err)
				} else if a.verbose {
					a.printf("ok   %s %dx%d %d bytes -> %s\n", res.ID, res.Stats.Width, res.Stats.Height, res.Bytes, res.Path)
				}
			}
			s := batch.Summarize(results)
			a.printf("%s\n", s)

			if runErr != nil {
				return runErr
			}
			if s.Failed > 0 {
				return fmt.Errorf("%d of %d assets failed", s.Failed, s.Total)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&listPath, "list", "", "file with one asset UUID per line")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "directory for <uuid>.png outputs")
	cmd.Flags().IntVar(&workers, "workers", 0, "assets in flight (default from config)")
	cmd.Flags().IntVar(&maxDim, "max-dim", batch.DefaultMaxDim, "larger side of each output in pixels (0 = full resolution)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	_ = cmd.MarkFlagRequired("list")
	_ = cmd.MarkFlagRequired("out-dir")
	return cmd
}
