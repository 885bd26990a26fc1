package asset

import (
	"context"
	"fmt"
	"time"

	"github.com/mrjoshuak/go-j2kfetch/codec"
	"github.com/mrjoshuak/go-j2kfetch/estimate"
	"github.com/mrjoshuak/go-j2kfetch/fetch"
	"github.com/mrjoshuak/go-j2kfetch/internal/logger"
)

// Limits bounds the metadata a decoded asset may report. Values outside
// them mean a corrupt header or a response that is not an image at all.
type Limits struct {
	// MaxDimension bounds width and height.
	MaxDimension int
	// MaxComponents bounds the component count.
	MaxComponents int
	// MaxPrecision bounds each component's bit depth.
	MaxPrecision int
}

// DefaultLimits returns an 8192 pixel, 4 component, 16 bit bound.
func DefaultLimits() Limits {
	return Limits{
		MaxDimension:  8192,
		MaxComponents: 4,
		MaxPrecision:  16,
	}
}

// Stats summarizes a decoded asset.
type Stats struct {
	// BytesPerPixel is the sum of component bit depths rounded up to bytes.
	BytesPerPixel int
	// Width and Height are the original dimensions.
	Width  int
	Height int
	// DiscardLevels is the number of reductions the codestream offers.
	DiscardLevels int
}

// FetchedImage is one asset being fetched. The zero value is ready to use
// and is in the Empty state. A FetchedImage is not safe for concurrent use;
// give each worker its own.
type FetchedImage struct {
	url    string
	limits Limits

	// data holds the leading bytes of the asset.
	data []byte
	// complete is set when data is the whole asset.
	complete bool
	fetched  bool

	// header is learned from data even when the pixel decode fails.
	header *codec.Header
	// img is set only after a successful decode of data.
	img *codec.Image
}

// Fetch fetches the asset at url so it can be decoded with its larger side
// near maxDim. maxDim 0 means full resolution.
//
// On an Empty image Fetch reads an initial prefix sized for an image exactly
// maxDim on a side. On an image that has already been fetched, Fetch
// refines: it sizes the read from the learned dimensions, widening past the
// bytes already held. When the whole asset is already held no request is
// made and the held bytes are decoded again.
//
// Fetch makes at most one round trip and never retries; see Loader.
// A transport error leaves the image unchanged.
//
// Fetch panics if maxDim is negative.
func (f *FetchedImage) Fetch(ctx context.Context, c *Client, url string, maxDim int) error {
	if maxDim < 0 {
		panic(fmt.Sprintf("asset: negative max dimension %d", maxDim))
	}
	log := logger.FromContext(ctx).With("url", url)

	if f.fetched && f.complete && url == f.url {
		log.Debug("asset already complete, decoding again", "bytes", len(f.data))
		return f.decode(ctx, c, maxDim)
	}

	budget, err := f.nextBudget(c, url, maxDim)
	if err != nil {
		return err
	}
	var rng *fetch.ByteRange
	if budget != estimate.Unbounded {
		rng = fetch.Prefix(budget)
	}
	log.Debug("fetching asset", "refine", f.fetched, "range", rangeString(rng))

	start := time.Now()
	data, err := fetch.Fetch(ctx, c.HTTP, url, rng)
	c.observer().ObserveFetch(time.Since(start), len(data), err)
	if err != nil {
		return &Error{Kind: KindTransport, URL: url, Bytes: len(f.data), Err: err}
	}

	f.url = url
	f.limits = c.Limits
	f.fetched = true
	f.data = data
	f.complete = rng == nil || int64(len(data)) < rng.Len()
	f.img = nil
	log.Debug("fetched asset", "bytes", len(data), "complete", f.complete)

	f.header = nil
	if h, err := c.Codec.ReadHeader(data); err == nil {
		f.header = h
	} else {
		log.Debug("header probe failed", "error", err)
	}
	return f.decode(ctx, c, maxDim)
}

// nextBudget picks the number of leading bytes to request.
func (f *FetchedImage) nextBudget(c *Client, url string, maxDim int) (int64, error) {
	if !f.fetched || url != f.url {
		if maxDim == 0 {
			return estimate.Unbounded, nil
		}
		return c.Estimate.InitialReadSize(maxDim), nil
	}

	held := int64(len(f.data))
	if f.header == nil {
		// Not even the main header fit; widen blindly.
		return max(2*held, c.Estimate.MinimumReadSize), nil
	}
	if v := checkHeader(f.header, c.Limits); len(v) > 0 {
		return 0, &Error{Kind: KindContent, URL: url, Bytes: len(f.data), Violations: v}
	}
	if maxDim == 0 {
		return estimate.Unbounded, nil
	}
	b := c.Estimate.ReadSize(f.header.Width, f.header.Height, bytesPerPixel(f.header), maxDim)
	if b.Bounded() && b.MaxBytes <= held {
		return 2 * held, nil
	}
	return b.MaxBytes, nil
}

// decode runs the codec over the held bytes and validates the result.
func (f *FetchedImage) decode(ctx context.Context, c *Client, maxDim int) error {
	level := f.discardLevel(c, maxDim)

	start := time.Now()
	img, err := c.Codec.Decode(f.data, level)
	c.observer().ObserveDecode(time.Since(start), err)
	if err != nil {
		f.img = nil
		return &Error{
			Kind:      KindDecode,
			URL:       f.url,
			Bytes:     len(f.data),
			Truncated: !f.complete,
			Err:       err,
		}
	}
	f.img = img
	logger.FromContext(ctx).Debug("decoded asset",
		"url", f.url,
		"width", img.Width,
		"height", img.Height,
		"discard_level", img.DiscardLevel)
	return f.SanityCheck()
}

// discardLevel picks the reduction for maxDim from the learned header.
func (f *FetchedImage) discardLevel(c *Client, maxDim int) int {
	if maxDim == 0 || f.header == nil {
		return 0
	}
	level := c.Estimate.ReadSize(f.header.Width, f.header.Height, bytesPerPixel(f.header), maxDim).DiscardLevel
	return min(level, f.header.DiscardLevels())
}

// SanityCheck validates the decoded metadata against the client's Limits,
// or DefaultLimits before any fetch. Every violated bound is reported with
// its value. The fetched bytes are kept either way.
func (f *FetchedImage) SanityCheck() error {
	if f.img == nil {
		return &Error{Kind: KindContent, URL: f.url, Bytes: len(f.data), Err: ErrNotFetched}
	}
	lim := f.limits
	if lim == (Limits{}) {
		lim = DefaultLimits()
	}
	if v := checkHeader(&f.img.Header, lim); len(v) > 0 {
		return &Error{Kind: KindContent, URL: f.url, Bytes: len(f.data), Violations: v}
	}
	return nil
}

func checkHeader(h *codec.Header, lim Limits) []string {
	var v []string
	if h.Width < 1 || h.Width > lim.MaxDimension || h.Height < 1 || h.Height > lim.MaxDimension {
		v = append(v, fmt.Sprintf("image dimensions (%d,%d) out of range [1,%d]",
			h.Width, h.Height, lim.MaxDimension))
	}
	if n := len(h.Components); n < 1 || n > lim.MaxComponents {
		v = append(v, fmt.Sprintf("image component count %d out of range [1,%d]", n, lim.MaxComponents))
	}
	for i, comp := range h.Components {
		if comp.Precision < 1 || comp.Precision > lim.MaxPrecision {
			v = append(v, fmt.Sprintf("image component %d precision %d out of range [1,%d]",
				i, comp.Precision, lim.MaxPrecision))
		}
	}
	return v
}

// Stats returns statistics about the decoded asset. ok is false until a
// decode has succeeded.
func (f *FetchedImage) Stats() (s Stats, ok bool) {
	if f.img == nil {
		return Stats{}, false
	}
	return Stats{
		BytesPerPixel: bytesPerPixel(&f.img.Header),
		Width:         f.img.Width,
		Height:        f.img.Height,
		DiscardLevels: f.img.DiscardLevels(),
	}, true
}

// Image returns the decoded image once it has passed SanityCheck.
func (f *FetchedImage) Image() (*codec.Image, error) {
	if err := f.SanityCheck(); err != nil {
		return nil, err
	}
	return f.img, nil
}

// Header returns the header learned from the held bytes, or nil.
func (f *FetchedImage) Header() *codec.Header {
	return f.header
}

// Len returns the number of asset bytes held.
func (f *FetchedImage) Len() int {
	return len(f.data)
}

// Complete reports whether the held bytes are the whole asset.
func (f *FetchedImage) Complete() bool {
	return f.complete
}

// Fetched reports whether the image has left the Empty state.
func (f *FetchedImage) Fetched() bool {
	return f.fetched
}

func bytesPerPixel(h *codec.Header) int {
	bits := 0
	for _, comp := range h.Components {
		bits += comp.Precision
	}
	return (bits + 7) / 8
}

func rangeString(rng *fetch.ByteRange) string {
	if rng == nil {
		return "all"
	}
	return rng.String()
}
