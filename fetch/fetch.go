package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// ByteRange is an inclusive span of byte offsets, as in an HTTP Range header.
type ByteRange struct {
	Start int64
	End   int64
}

// Prefix returns the range covering the first n bytes, [0, n).
func Prefix(n int64) *ByteRange {
	return &ByteRange{Start: 0, End: n - 1}
}

// Len returns the number of bytes in the range.
func (r ByteRange) Len() int64 {
	return r.End - r.Start + 1
}

// String formats the range as a Range header value.
func (r ByteRange) String() string {
	return fmt.Sprintf("bytes=%d-%d", r.Start, r.End)
}

// Fetch performs one GET of url. When rng is non-nil only that span is
// requested, and at most rng.Len() bytes are read even if the server ignores
// the Range header and sends the whole entity.
//
// Every failure is returned as a *TransportError.
func Fetch(ctx context.Context, client *http.Client, url string, rng *ByteRange) ([]byte, error) {
	if rng != nil && (rng.Start < 0 || rng.End < rng.Start) {
		return nil, &TransportError{
			Kind:  KindProtocol,
			URL:   url,
			Range: rng,
			Err:   fmt.Errorf("invalid byte range %d-%d", rng.Start, rng.End),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &TransportError{Kind: KindProtocol, URL: url, Range: rng, Err: err}
	}
	if rng != nil {
		req.Header.Set("Range", rng.String())
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &TransportError{Kind: Classify(err), URL: url, Range: rng, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4<<10)
		return nil, &TransportError{
			Kind:       KindStatus,
			URL:        url,
			Range:      rng,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	if resp.StatusCode == http.StatusPartialContent && rng != nil {
		start, err := contentRangeStart(resp.Header.Get("Content-Range"))
		if err == nil && start != rng.Start {
			err = fmt.Errorf("server sent range starting at %d, requested %d", start, rng.Start)
		}
		if err != nil {
			return nil, &TransportError{Kind: KindProtocol, URL: url, Range: rng, Err: err}
		}
	}

	var body io.Reader = resp.Body
	if rng != nil {
		body = io.LimitReader(resp.Body, rng.Len())
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &TransportError{Kind: Classify(err), URL: url, Range: rng, Err: err}
	}
	return data, nil
}

// contentRangeStart returns the first offset of a "bytes a-b/n" header.
func contentRangeStart(v string) (int64, error) {
	spec, ok := strings.CutPrefix(v, "bytes ")
	if !ok {
		return 0, fmt.Errorf("malformed Content-Range %q", v)
	}
	first, _, ok := strings.Cut(spec, "-")
	if !ok {
		return 0, fmt.Errorf("malformed Content-Range %q", v)
	}
	start, err := strconv.ParseInt(strings.TrimSpace(first), 10, 64)
	if err != nil || start < 0 {
		return 0, fmt.Errorf("malformed Content-Range %q", v)
	}
	return start, nil
}
