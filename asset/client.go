// Package asset fetches progressive JPEG 2000 assets with as few bytes as the
// requested output size allows.
//
// A FetchedImage owns the lifecycle of one asset: it estimates a byte
// budget, fetches that prefix, probes the header, decodes at a reduced
// resolution and validates the result. A Loader adds the caller-side policy:
// backoff on retryable transport errors and refinement when the prefix was
// too short.
//
// Example usage:
//
//	c := asset.NewClient(fetch.NewClient(fetch.DefaultClientConfig()))
//	l := asset.NewLoader(c, asset.DefaultRetryPolicy())
//	img, err := l.Load(ctx, url, 256)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	stats, _ := img.Stats()
package asset

import (
	"net/http"

	"github.com/mrjoshuak/go-j2kfetch/codec"
	"github.com/mrjoshuak/go-j2kfetch/estimate"
)

// Client bundles the collaborators shared by every fetch. A Client is safe
// for concurrent use once built; share one per process.
type Client struct {
	// HTTP is the pooled transport client.
	HTTP *http.Client

	// Codec decodes fetched bytes.
	Codec codec.Codec

	// Estimate tunes byte budgets.
	Estimate estimate.Config

	// Limits bounds acceptable decoded metadata.
	Limits Limits

	// Observer receives telemetry. Nil means no telemetry.
	Observer Observer
}

// NewClient returns a Client using the JPEG 2000 codec and default tuning.
func NewClient(httpClient *http.Client) *Client {
	return &Client{
		HTTP:     httpClient,
		Codec:    codec.JPEG2000{},
		Estimate: estimate.DefaultConfig(),
		Limits:   DefaultLimits(),
		Observer: NopObserver(),
	}
}

func (c *Client) observer() Observer {
	if c.Observer == nil {
		return NopObserver()
	}
	return c.Observer
}
