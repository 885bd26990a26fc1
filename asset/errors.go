package asset

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mrjoshuak/go-j2kfetch/fetch"
)

// ErrNotFetched is the cause of a content error raised before any
// successful decode.
var ErrNotFetched = errors.New("asset: image not fetched")

// Kind tags the three ways an asset fetch can fail.
type Kind int

const (
	// KindTransport is a network or HTTP failure; the cause is a
	// *fetch.TransportError.
	KindTransport Kind = iota + 1
	// KindDecode means the codec rejected the fetched bytes; the cause is
	// usually a *codec.DecodeError.
	KindDecode
	// KindContent means the bytes decoded but failed validation, or no
	// decode has succeeded yet.
	KindContent
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindDecode:
		return "decode"
	case KindContent:
		return "content"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is the single error type returned by FetchedImage and Loader.
type Error struct {
	Kind Kind
	URL  string

	// Bytes is the number of asset bytes held when the error occurred.
	Bytes int

	// Truncated is set on decode errors when the held bytes are a strict
	// prefix of the asset, so fetching more may help.
	Truncated bool

	// Violations lists every failed bound of a content error, with the
	// offending values.
	Violations []string

	Err error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindTransport:
		return fmt.Sprintf("asset: %v", e.Err)
	case KindDecode:
		held := "complete asset"
		if e.Truncated {
			held = "truncated prefix"
		}
		return fmt.Sprintf("asset %s: decode failed on %d bytes (%s): %v", e.URL, e.Bytes, held, e.Err)
	case KindContent:
		if len(e.Violations) > 0 {
			return fmt.Sprintf("asset %s: %s", e.URL, strings.Join(e.Violations, "; "))
		}
		return fmt.Sprintf("asset %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("asset %s: %s error: %v", e.URL, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the same request may succeed. Decode
// and content errors never are: the same bytes fail the same way.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTransport:
		return fetch.IsRetryable(e.Err)
	case KindDecode, KindContent:
		return false
	default:
		return false
	}
}

// IsRetryable reports whether err is an *Error worth repeating as-is.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable()
	}
	return false
}

// NeedsMoreData reports whether err is a decode failure on a truncated
// prefix, which a wider fetch may fix.
func NeedsMoreData(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindDecode && e.Truncated
}

// KindOf returns the kind of err, or 0 if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
