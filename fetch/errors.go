package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
)

// ErrorKind is the transport failure category.
type ErrorKind int

const (
	// KindProtocol covers malformed URLs, unsupported schemes, TLS failures
	// and anything else the server or client cannot get past by repeating.
	KindProtocol ErrorKind = iota
	// KindTimeout is a connect, header or body timeout.
	KindTimeout
	// KindConnection is a refused, reset or dropped connection, or a DNS
	// failure.
	KindConnection
	// KindStatus is a non-success HTTP status.
	KindStatus
	// KindCanceled means the caller canceled the request.
	KindCanceled
)

// String returns the name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindProtocol:
		return "protocol"
	case KindTimeout:
		return "timeout"
	case KindConnection:
		return "connection"
	case KindStatus:
		return "status"
	case KindCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// TransportError reports a failed fetch.
type TransportError struct {
	Kind       ErrorKind
	URL        string
	Range      *ByteRange // nil for an unrestricted GET
	StatusCode int        // set for KindStatus
	Err        error
}

func (e *TransportError) Error() string {
	var where string
	if e.Range != nil {
		where = fmt.Sprintf("%s [%s]", e.URL, e.Range)
	} else {
		where = e.URL
	}
	if e.Kind == KindStatus {
		return fmt.Sprintf("fetch: %s: HTTP %d %s", where, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("fetch: %s: %s: %v", where, e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the same request may succeed.
func (e *TransportError) Retryable() bool {
	switch e.Kind {
	case KindTimeout:
		return true
	case KindConnection:
		var dnsErr *net.DNSError
		if errors.As(e.Err, &dnsErr) {
			return !dnsErr.IsNotFound
		}
		return true
	case KindStatus:
		return isRetryableStatus(e.StatusCode)
	case KindProtocol, KindCanceled:
		return false
	default:
		return false
	}
}

// IsRetryable reports whether err is a transport failure worth repeating.
// Anything that is not a *TransportError is fatal.
func IsRetryable(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable()
	}
	return false
}

// Classify maps a raw client error onto an ErrorKind.
func Classify(err error) ErrorKind {
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindConnection
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindConnection
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.EPIPE,
			syscall.ETIMEDOUT, syscall.ENETUNREACH, syscall.EHOSTUNREACH:
			return KindConnection
		}
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return KindConnection
	}
	return KindProtocol
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, // 408
		http.StatusTooEarly,            // 425
		http.StatusTooManyRequests,     // 429
		http.StatusInternalServerError, // 500
		http.StatusBadGateway,          // 502
		http.StatusServiceUnavailable,  // 503
		http.StatusGatewayTimeout:      // 504
		return true
	}
	return false
}
