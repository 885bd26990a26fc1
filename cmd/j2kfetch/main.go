// j2kfetch fetches JPEG 2000 assets over HTTP, reading only as many leading
// bytes as the requested output size needs.
//
// The server must honor byte-range requests for the savings to apply; a
// server that ignores them still works, but only the budgeted prefix is read
// from its response.
//
// Usage:
//
//	j2kfetch [global options] <command> [options]
//
// Commands:
//
//	fetch      fetch one asset by URL or UUID and save it as an image
//	batch      fetch every UUID in a list file with a worker pool
//	estimate   print the byte budget and discard level for a size
//
// Global options:
//
//	-c, --config <file>   TOML configuration (default: j2kfetch.toml if present)
//	-v, --verbose         debug logging and per-asset statistics
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mrjoshuak/go-j2kfetch/asset"
	"github.com/mrjoshuak/go-j2kfetch/config"
	"github.com/mrjoshuak/go-j2kfetch/fetch"
	"github.com/mrjoshuak/go-j2kfetch/internal/logger"
)

const version = "1.0.0"

// app carries the state shared by every command.
type app struct {
	configPath string
	verbose    bool

	cfg config.Config
	out io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:           "j2kfetch",
		Short:         "Fetch JPEG 2000 assets at reduced resolution with minimal bytes",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "TOML configuration file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging and per-asset statistics")

	root.AddCommand(
		newFetchCmd(a),
		newBatchCmd(a),
		newEstimateCmd(a),
	)
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	a.cfg = cfg
	return nil
}

// newClient builds the shared asset client from the loaded configuration.
func (a *app) newClient(obs asset.Observer) *asset.Client {
	c := asset.NewClient(fetch.NewClient(a.cfg.HTTP.ClientConfig()))
	c.Estimate = a.cfg.Estimate.Config()
	c.Limits = a.cfg.Limits.AssetLimits()
	if obs != nil {
		c.Observer = obs
	}
	return c
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
