package asset

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/mrjoshuak/go-j2kfetch/fetch"
	"github.com/mrjoshuak/go-j2kfetch/internal/logger"
)

// RetryPolicy is the caller-side policy a Loader applies around Fetch.
type RetryPolicy struct {
	// MaxAttempts bounds the tries of one fetch, counting the first, when
	// the transport error is retryable.
	MaxAttempts uint

	// InitialInterval and MaxInterval shape the exponential backoff.
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// MaxRefinements bounds the wider re-fetches after a decode failure on a
	// truncated prefix.
	MaxRefinements int
}

// DefaultRetryPolicy returns 4 attempts backing off from 500ms to 10s, and
// up to 2 refinements.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     4,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		MaxRefinements:  2,
	}
}

// Loader fetches assets end to end with a retry policy. A Loader is safe for
// concurrent use; each Load works on its own FetchedImage.
type Loader struct {
	Client *Client
	Policy RetryPolicy
}

// NewLoader returns a Loader over c.
func NewLoader(c *Client, policy RetryPolicy) *Loader {
	return &Loader{Client: c, Policy: policy}
}

// Load fetches url, decoded with its larger side near maxDim (0 for full
// resolution).
//
// Retryable transport errors are retried with backoff. A decode failure on a
// truncated prefix triggers a refinement fetch. Anything else is returned
// at once. The FetchedImage is returned even on error so the caller can
// inspect what was fetched.
func (l *Loader) Load(ctx context.Context, url string, maxDim int) (*FetchedImage, error) {
	obs := l.Client.observer()
	log := logger.FromContext(ctx).With("url", url)

	img := &FetchedImage{}
	for refinement := 0; ; refinement++ {
		err := l.fetchWithRetry(ctx, img, url, maxDim)
		if err == nil {
			obs.ObserveResult(nil)
			return img, nil
		}
		if NeedsMoreData(err) && refinement < l.Policy.MaxRefinements {
			log.Info("prefix too short, refining", "bytes", img.Len(), "refinement", refinement+1)
			obs.ObserveRefinement()
			continue
		}
		obs.ObserveResult(err)
		return img, err
	}
}

func (l *Loader) fetchWithRetry(ctx context.Context, img *FetchedImage, url string, maxDim int) error {
	b := backoff.NewExponentialBackOff()
	if l.Policy.InitialInterval > 0 {
		b.InitialInterval = l.Policy.InitialInterval
	}
	if l.Policy.MaxInterval > 0 {
		b.MaxInterval = l.Policy.MaxInterval
	}

	log := logger.FromContext(ctx)
	var lastErr error
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := img.Fetch(ctx, l.Client, url, maxDim)
		lastErr = err
		switch {
		case err == nil:
			return struct{}{}, nil
		case IsRetryable(err):
			return struct{}{}, err
		default:
			return struct{}{}, backoff.Permanent(err)
		}
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(max(l.Policy.MaxAttempts, 1)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			log.Info("retrying fetch", "url", url, "error", err, "wait", wait)
		}),
	)
	if err != nil && KindOf(err) == 0 {
		// The context ended during a backoff wait.
		err = &Error{
			Kind:  KindTransport,
			URL:   url,
			Bytes: img.Len(),
			Err: &fetch.TransportError{
				Kind: fetch.Classify(err),
				URL:  url,
				Err:  errors.Join(err, lastErr),
			},
		}
	}
	if err != nil && IsRetryable(err) {
		log.Warn("giving up on fetch", "url", url, "attempts", l.Policy.MaxAttempts, "error", err)
	}
	return err
}
