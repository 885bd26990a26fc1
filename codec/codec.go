// Package codec is the boundary to the image codec.
//
// The controller never interprets the bitstream itself. It asks a Codec to
// read the main header of a byte prefix and to decode the prefix at a given
// discard level.
package codec

import (
	"errors"
	"fmt"
	"image"
)

// ErrEmpty is returned when there are no bytes to decode.
var ErrEmpty = errors.New("codec: no data")

// Component describes one image component (channel).
type Component struct {
	// Precision is the bit depth.
	Precision int
	// Signed reports whether samples are signed.
	Signed bool
}

// Header is the codec metadata of an image.
type Header struct {
	// Width and Height are the original, full-resolution dimensions.
	Width  int
	Height int

	// ColorSpace is the codec's color space code.
	ColorSpace int

	// Components lists every component in codestream order.
	Components []Component

	// NumResolutions is the number of resolution levels in the codestream.
	// The available discard levels are 0 through NumResolutions-1.
	NumResolutions int
}

// DiscardLevels returns the number of reductions the codestream supports.
func (h *Header) DiscardLevels() int {
	if h.NumResolutions <= 0 {
		return 0
	}
	return h.NumResolutions - 1
}

// Image is a decoded image together with its header.
type Image struct {
	Header

	// DiscardLevel is the reduction the pixels were decoded at.
	DiscardLevel int

	// Pixels holds the decoded bitmap.
	Pixels image.Image
}

// Codec reads headers and decodes images from byte buffers.
// Implementations must be safe for concurrent use.
type Codec interface {
	// ReadHeader parses the main header only.
	ReadHeader(data []byte) (*Header, error)

	// Decode decodes data at the given discard level.
	Decode(data []byte, discardLevel int) (*Image, error)
}

// DecodeError reports that the codec rejected a buffer.
type DecodeError struct {
	// Op is "header" or "decode".
	Op string
	// Len is the size of the rejected buffer.
	Len int
	// DiscardLevel is the requested level for Op "decode".
	DiscardLevel int
	Err          error
}

func (e *DecodeError) Error() string {
	if e.Op == "decode" {
		return fmt.Sprintf("codec: decode of %d bytes at discard level %d: %v", e.Len, e.DiscardLevel, e.Err)
	}
	return fmt.Sprintf("codec: %s of %d bytes: %v", e.Op, e.Len, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
