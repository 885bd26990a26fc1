package codec

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/mrjoshuak/go-jpeg2000"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeTestImage(t *testing.T, img image.Image, format jpeg2000.Format, resolutions int) []byte {
	t.Helper()
	opts := &jpeg2000.Options{
		Format:         format,
		Lossless:       true,
		NumResolutions: resolutions,
	}

	var buf bytes.Buffer
	require.NoError(t, jpeg2000.Encode(&buf, img, opts))
	return buf.Bytes()
}

func grayGradient(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x + y) * 4)})
		}
	}
	return img
}

func TestReadHeaderJ2K(t *testing.T) {
	data := encodeTestImage(t, grayGradient(32, 16), jpeg2000.FormatJ2K, 4)

	h, err := JPEG2000{}.ReadHeader(data)
	require.NoError(t, err)
	assert.Equal(t, 32, h.Width)
	assert.Equal(t, 16, h.Height)
	require.Len(t, h.Components, 1)
	assert.Equal(t, 8, h.Components[0].Precision)
	assert.Equal(t, 4, h.NumResolutions)
	assert.Equal(t, 3, h.DiscardLevels())
}

func TestReadHeaderJP2RGB(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 32), G: uint8(y * 32), B: 128, A: 255})
		}
	}
	data := encodeTestImage(t, img, jpeg2000.FormatJP2, 3)

	h, err := JPEG2000{}.ReadHeader(data)
	require.NoError(t, err)
	assert.Equal(t, 8, h.Width)
	assert.Equal(t, 8, h.Height)
	assert.GreaterOrEqual(t, len(h.Components), 3)
}

func TestDecodeFull(t *testing.T) {
	data := encodeTestImage(t, grayGradient(32, 32), jpeg2000.FormatJ2K, 4)

	img, err := JPEG2000{}.Decode(data, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, img.DiscardLevel)
	assert.Equal(t, 32, img.Pixels.Bounds().Dx())
	assert.Equal(t, 32, img.Pixels.Bounds().Dy())
	assert.Equal(t, 32, img.Width)
}

func TestDecodeReduced(t *testing.T) {
	data := encodeTestImage(t, grayGradient(64, 64), jpeg2000.FormatJ2K, 4)

	img, err := JPEG2000{}.Decode(data, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, img.DiscardLevel)
	// Header keeps the original size; pixels are reduced.
	assert.Equal(t, 64, img.Width)
	assert.Less(t, img.Pixels.Bounds().Dx(), 64)
}

func TestDecodeClampsLevel(t *testing.T) {
	data := encodeTestImage(t, grayGradient(32, 32), jpeg2000.FormatJ2K, 3)

	img, err := JPEG2000{}.Decode(data, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, img.DiscardLevel)
}

func TestDecodeGarbage(t *testing.T) {
	_, err := JPEG2000{}.Decode([]byte("<html>not found</html>"), 0)
	require.Error(t, err)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "header", de.Op)
	assert.Equal(t, 22, de.Len)
}

func TestReadHeaderEmpty(t *testing.T) {
	_, err := JPEG2000{}.ReadHeader(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmpty))
}

func TestDecodeErrorMessage(t *testing.T) {
	err := &DecodeError{Op: "decode", Len: 4096, DiscardLevel: 3, Err: errors.New("truncated packet")}
	assert.Equal(t, "codec: decode of 4096 bytes at discard level 3: truncated packet", err.Error())

	err = &DecodeError{Op: "header", Len: 10, Err: errors.New("bad marker")}
	assert.Equal(t, "codec: header of 10 bytes: bad marker", err.Error())
}
