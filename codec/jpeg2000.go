package codec

import (
	"bytes"
	"fmt"

	"github.com/mrjoshuak/go-jpeg2000"
)

// JPEG2000 decodes JP2 files and raw J2K codestreams.
type JPEG2000 struct {
	// QualityLayers limits the quality layers decoded. 0 decodes all layers
	// present in the buffer.
	QualityLayers int
}

var _ Codec = JPEG2000{}

// ReadHeader parses the main header of data.
func (c JPEG2000) ReadHeader(data []byte) (*Header, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Op: "header", Err: ErrEmpty}
	}
	meta, err := jpeg2000.DecodeMetadata(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Op: "header", Len: len(data), Err: err}
	}
	return headerFromMetadata(meta), nil
}

// Decode decodes data with discardLevel resolution levels skipped. The level
// is clamped to what the codestream offers.
func (c JPEG2000) Decode(data []byte, discardLevel int) (*Image, error) {
	h, err := c.ReadHeader(data)
	if err != nil {
		return nil, err
	}
	level := min(max(discardLevel, 0), h.DiscardLevels())

	cfg := &jpeg2000.Config{
		ReduceResolution: level,
		QualityLayers:    c.QualityLayers,
	}
	pix, err := jpeg2000.DecodeConfig(bytes.NewReader(data), cfg)
	if err != nil {
		return nil, &DecodeError{Op: "decode", Len: len(data), DiscardLevel: level, Err: err}
	}
	if pix == nil || pix.Bounds().Empty() {
		return nil, &DecodeError{
			Op:           "decode",
			Len:          len(data),
			DiscardLevel: level,
			Err:          fmt.Errorf("empty image"),
		}
	}
	return &Image{Header: *h, DiscardLevel: level, Pixels: pix}, nil
}

func headerFromMetadata(m *jpeg2000.Metadata) *Header {
	n := m.NumComponents
	if n < len(m.BitsPerComponent) {
		n = len(m.BitsPerComponent)
	}
	comps := make([]Component, n)
	for i := range comps {
		if i < len(m.BitsPerComponent) {
			comps[i].Precision = m.BitsPerComponent[i]
		}
		if i < len(m.Signed) {
			comps[i].Signed = m.Signed[i]
		}
	}
	return &Header{
		Width:          m.Width,
		Height:         m.Height,
		ColorSpace:     int(m.ColorSpace),
		Components:     comps,
		NumResolutions: m.NumResolutions,
	}
}
