// Package batch fetches many assets concurrently over one shared client.
//
// Each item gets its own FetchedImage and deadline; a failed or expired item
// is recorded and the rest continue.
package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mrjoshuak/go-j2kfetch/asset"
	"github.com/mrjoshuak/go-j2kfetch/internal/logger"
	"github.com/mrjoshuak/go-j2kfetch/render"
)

// Default batch settings.
const (
	DefaultWorkers     = 8
	DefaultItemTimeout = 60 * time.Second
	DefaultMaxDim      = 256
	DefaultFormat      = "png"
)

// Config controls a batch run.
type Config struct {
	// Workers bounds the number of assets in flight.
	Workers int

	// ItemTimeout is the deadline of each asset, retries included.
	ItemTimeout time.Duration

	// MaxDim is the requested larger side of every output; 0 keeps full
	// resolution.
	MaxDim int

	// OutDir receives <id>.<Format> per asset. Empty means decode only.
	OutDir string
	Format string

	// BaseURL and IDParam locate assets by id; see asset.TextureURL.
	BaseURL string
	IDParam string
}

// DefaultConfig returns a Config with 8 workers and a 60s item deadline,
// writing PNG files.
func DefaultConfig() Config {
	return Config{
		Workers:     DefaultWorkers,
		ItemTimeout: DefaultItemTimeout,
		MaxDim:      DefaultMaxDim,
		Format:      DefaultFormat,
		BaseURL:     asset.DefaultBaseURL,
		IDParam:     asset.DefaultIDParam,
	}
}

// Result is the outcome of one asset.
type Result struct {
	ID  uuid.UUID
	URL string

	// Path is the written file, if any.
	Path string

	// Stats and Bytes describe the decoded asset and the bytes held.
	Stats asset.Stats
	Bytes int

	Elapsed time.Duration
	Err     error
}

// Runner runs batches with one Loader. A Runner is safe for concurrent use.
type Runner struct {
	Loader *asset.Loader
	Config Config
}

// NewRunner returns a Runner. Zero fields of cfg take their defaults.
func NewRunner(l *asset.Loader, cfg Config) *Runner {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.ItemTimeout <= 0 {
		cfg.ItemTimeout = def.ItemTimeout
	}
	if cfg.Format == "" {
		cfg.Format = def.Format
	}
	return &Runner{Loader: l, Config: cfg}
}

// Run fetches every id and returns one Result per id, in order. Item
// failures are reported in the results, not as the returned error; Run only
// fails when ctx ends before every item was started or the output
// directory cannot be created.
func (r *Runner) Run(ctx context.Context, ids []uuid.UUID) ([]Result, error) {
	if r.Config.OutDir != "" {
		if err := os.MkdirAll(r.Config.OutDir, 0o755); err != nil {
			return nil, fmt.Errorf("batch: create output dir: %w", err)
		}
	}

	log := logger.FromContext(ctx)
	log.Info("starting batch", "assets", len(ids), "workers", r.Config.Workers, "max_dim", r.Config.MaxDim)

	results := make([]Result, len(ids))
	var g errgroup.Group
	g.SetLimit(r.Config.Workers)
	started := 0
	for i, id := range ids {
		if ctx.Err() != nil {
			break
		}
		started++
		g.Go(func() error {
			results[i] = r.runItem(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	if started < len(ids) {
		err := ctx.Err()
		for i := started; i < len(ids); i++ {
			results[i] = Result{ID: ids[i], Err: err}
		}
		return results, fmt.Errorf("batch: %d of %d assets not started: %w", len(ids)-started, len(ids), err)
	}
	return results, nil
}

func (r *Runner) runItem(ctx context.Context, id uuid.UUID) Result {
	start := time.Now()
	res := Result{ID: id}

	ctx, cancel := context.WithTimeout(ctx, r.Config.ItemTimeout)
	defer cancel()
	log := logger.FromContext(ctx).With("asset_id", id.String())
	ctx = logger.WithContext(ctx, log)

	defer func() {
		res.Elapsed = time.Since(start)
		if res.Err != nil {
			log.Warn("asset failed", "error", res.Err, "elapsed", res.Elapsed)
		} else {
			log.Info("asset done", "bytes", res.Bytes, "width", res.Stats.Width, "height", res.Stats.Height, "elapsed", res.Elapsed)
		}
	}()

	url, err := asset.TextureURL(r.Config.BaseURL, r.Config.IDParam, id.String())
	if err != nil {
		res.Err = err
		return res
	}
	res.URL = url

	img, err := r.Loader.Load(ctx, url, r.Config.MaxDim)
	res.Bytes = img.Len()
	if err != nil {
		res.Err = err
		return res
	}
	res.Stats, _ = img.Stats()

	if r.Config.OutDir == "" {
		return res
	}
	decoded, err := img.Image()
	if err != nil {
		res.Err = err
		return res
	}
	path := filepath.Join(r.Config.OutDir, id.String()+"."+r.Config.Format)
	if err := render.Save(path, render.Fit(decoded.Pixels, r.Config.MaxDim)); err != nil {
		res.Err = err
		return res
	}
	res.Path = path
	return res
}

// Summary totals a batch.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Bytes     int64

	// ByKind counts failures by asset error kind; other errors count under 0.
	ByKind map[asset.Kind]int
}

// Summarize totals results.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results), ByKind: make(map[asset.Kind]int)}
	for _, res := range results {
		s.Bytes += int64(res.Bytes)
		if res.Err != nil {
			s.Failed++
			s.ByKind[asset.KindOf(res.Err)]++
			continue
		}
		s.Succeeded++
	}
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("%d assets: %d ok, %d failed (transport %d, decode %d, content %d, other %d), %d bytes",
		s.Total, s.Succeeded, s.Failed,
		s.ByKind[asset.KindTransport], s.ByKind[asset.KindDecode], s.ByKind[asset.KindContent], s.ByKind[0],
		s.Bytes)
}
