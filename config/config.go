// Package config loads and exposes j2kfetch configuration (TOML).
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/mrjoshuak/go-j2kfetch/asset"
	"github.com/mrjoshuak/go-j2kfetch/batch"
	"github.com/mrjoshuak/go-j2kfetch/estimate"
	"github.com/mrjoshuak/go-j2kfetch/fetch"
	"github.com/mrjoshuak/go-j2kfetch/internal/metrics"
)

// DefaultConfigPath is read when Load is given an empty path.
const DefaultConfigPath = "j2kfetch.toml"

// Config is the root configuration loaded from TOML.
type Config struct {
	Log      LogConfig      `toml:"log"`
	HTTP     HTTPConfig     `toml:"http"`
	Estimate EstimateConfig `toml:"estimate"`
	Limits   LimitsConfig   `toml:"limits"`
	Retry    RetryConfig    `toml:"retry"`
	Batch    BatchConfig    `toml:"batch"`
	Asset    AssetConfig    `toml:"asset"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// HTTPConfig tunes the shared transport.
type HTTPConfig struct {
	UserAgent           string `toml:"user_agent"`
	TimeoutSeconds      int    `toml:"timeout_seconds"`
	MaxIdleConnsPerHost int    `toml:"max_idle_conns_per_host"`
	DisableCompression  bool   `toml:"disable_compression"`
}

// EstimateConfig tunes byte budgets.
type EstimateConfig struct {
	CompressionFactor float64 `toml:"compression_factor"`
	BytesPerPixel     int     `toml:"bytes_per_pixel"`
	MinimumReadSize   int64   `toml:"minimum_read_size"`
	LargestDimension  int     `toml:"largest_dimension"`
}

// LimitsConfig bounds acceptable decoded metadata.
type LimitsConfig struct {
	MaxDimension  int `toml:"max_dimension"`
	MaxComponents int `toml:"max_components"`
	MaxPrecision  int `toml:"max_precision"`
}

// RetryConfig holds the loader's backoff and refinement bounds.
type RetryConfig struct {
	MaxAttempts       uint `toml:"max_attempts"`
	InitialIntervalMS int  `toml:"initial_interval_ms"`
	MaxIntervalMS     int  `toml:"max_interval_ms"`
	MaxRefinements    int  `toml:"max_refinements"`
}

// BatchConfig holds worker pool settings.
type BatchConfig struct {
	Workers            int `toml:"workers"`
	ItemTimeoutSeconds int `toml:"item_timeout_seconds"`
}

// AssetConfig locates assets by id.
type AssetConfig struct {
	BaseURL string `toml:"base_url"`
	IDParam string `toml:"id_param"`
}

// MetricsConfig holds the Prometheus namespace and optional listen address.
type MetricsConfig struct {
	Namespace  string `toml:"namespace"`
	ListenAddr string `toml:"listen_addr"`
}

// Default returns the configuration used for every field missing in TOML.
func Default() Config {
	est := estimate.DefaultConfig()
	lim := asset.DefaultLimits()
	retry := asset.DefaultRetryPolicy()
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		HTTP: HTTPConfig{
			UserAgent:           fetch.DefaultUserAgent,
			TimeoutSeconds:      int(fetch.DefaultTimeout / time.Second),
			MaxIdleConnsPerHost: fetch.DefaultMaxIdleConnsPerHost,
		},
		Estimate: EstimateConfig{
			CompressionFactor: est.CompressionFactor,
			BytesPerPixel:     est.BytesPerPixel,
			MinimumReadSize:   est.MinimumReadSize,
			LargestDimension:  est.LargestDimension,
		},
		Limits: LimitsConfig{
			MaxDimension:  lim.MaxDimension,
			MaxComponents: lim.MaxComponents,
			MaxPrecision:  lim.MaxPrecision,
		},
		Retry: RetryConfig{
			MaxAttempts:       retry.MaxAttempts,
			InitialIntervalMS: int(retry.InitialInterval / time.Millisecond),
			MaxIntervalMS:     int(retry.MaxInterval / time.Millisecond),
			MaxRefinements:    retry.MaxRefinements,
		},
		Batch: BatchConfig{
			Workers:            batch.DefaultWorkers,
			ItemTimeoutSeconds: int(batch.DefaultItemTimeout / time.Second),
		},
		Asset: AssetConfig{
			BaseURL: asset.DefaultBaseURL,
			IDParam: asset.DefaultIDParam,
		},
		Metrics: MetricsConfig{
			Namespace: metrics.DefaultNamespace,
		},
	}
}

// Load reads and parses the TOML config file at path and applies default
// values for missing fields. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// ClientConfig converts the [http] section.
func (c HTTPConfig) ClientConfig() fetch.ClientConfig {
	return fetch.ClientConfig{
		UserAgent:           c.UserAgent,
		Timeout:             time.Duration(c.TimeoutSeconds) * time.Second,
		MaxIdleConnsPerHost: c.MaxIdleConnsPerHost,
		DisableCompression:  c.DisableCompression,
	}
}

// Config converts the [estimate] section.
func (c EstimateConfig) Config() estimate.Config {
	return estimate.Config{
		CompressionFactor: c.CompressionFactor,
		BytesPerPixel:     c.BytesPerPixel,
		MinimumReadSize:   c.MinimumReadSize,
		LargestDimension:  c.LargestDimension,
	}
}

// AssetLimits converts the [limits] section.
func (c LimitsConfig) AssetLimits() asset.Limits {
	return asset.Limits{
		MaxDimension:  c.MaxDimension,
		MaxComponents: c.MaxComponents,
		MaxPrecision:  c.MaxPrecision,
	}
}

// Policy converts the [retry] section.
func (c RetryConfig) Policy() asset.RetryPolicy {
	return asset.RetryPolicy{
		MaxAttempts:     c.MaxAttempts,
		InitialInterval: time.Duration(c.InitialIntervalMS) * time.Millisecond,
		MaxInterval:     time.Duration(c.MaxIntervalMS) * time.Millisecond,
		MaxRefinements:  c.MaxRefinements,
	}
}

// BatchConfig combines the [batch] and [asset] sections. Output settings are
// left to the caller.
func (c Config) BatchConfig() batch.Config {
	return batch.Config{
		Workers:     c.Batch.Workers,
		ItemTimeout: time.Duration(c.Batch.ItemTimeoutSeconds) * time.Second,
		Format:      batch.DefaultFormat,
		BaseURL:     c.Asset.BaseURL,
		IDParam:     c.Asset.IDParam,
	}
}
