// Package fetch retrieves asset bytes over HTTP, optionally restricted to a
// byte range, and classifies transport failures as retryable or fatal.
//
// Build one client per process with NewClient and share it between all
// concurrent fetches; its connection pool is safe for concurrent use.
package fetch

import (
	"net"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"
)

// Default client settings.
const (
	// DefaultTimeout bounds connect, TLS handshake, response headers and the
	// whole request. Partial fetches from an asset server should be quick.
	DefaultTimeout = 15 * time.Second

	// DefaultMaxIdleConnsPerHost keeps a few connections warm; nearly all
	// requests go to the same asset host.
	DefaultMaxIdleConnsPerHost = 4

	// DefaultUserAgent identifies the fetcher to asset servers.
	DefaultUserAgent = "go-j2kfetch/1.0"
)

// ClientConfig configures the shared HTTP client.
type ClientConfig struct {
	// UserAgent is sent with every request.
	UserAgent string

	// Timeout is applied uniformly to connect, handshake, headers and the
	// complete request.
	Timeout time.Duration

	// MaxIdleConnsPerHost bounds the idle pool per asset host.
	MaxIdleConnsPerHost int

	// DisableCompression turns off gzip/zstd negotiation for unbounded
	// fetches. Range fetches are never compressed.
	DisableCompression bool
}

// DefaultClientConfig returns the default client settings.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		UserAgent:           DefaultUserAgent,
		Timeout:             DefaultTimeout,
		MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
	}
}

// NewClient builds the pooled HTTP client shared by all fetches.
func NewClient(cfg ClientConfig) *http.Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxIdleConnsPerHost <= 0 {
		cfg.MaxIdleConnsPerHost = DefaultMaxIdleConnsPerHost
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	dialer := &net.Dialer{
		Timeout:   cfg.Timeout,
		KeepAlive: 30 * time.Second,
	}
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   cfg.Timeout,
		ResponseHeaderTimeout: cfg.Timeout,
		ExpectContinueTimeout: time.Second,
	}

	var rt http.RoundTripper = base
	if cfg.DisableCompression {
		base.DisableCompression = true
	} else {
		// gzhttp leaves requests carrying a Range header alone, so byte
		// offsets always refer to the stored file.
		rt = gzhttp.Transport(base)
	}

	return &http.Client{
		Transport: &userAgentTransport{base: rt, userAgent: cfg.UserAgent},
		Timeout:   cfg.Timeout,
	}
}

type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(req)
}
