package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	return img
}

func TestFit(t *testing.T) {
	tests := []struct {
		name         string
		w, h, maxDim int
		wantW, wantH int
	}{
		{"landscape", 200, 100, 50, 50, 25},
		{"portrait", 60, 240, 120, 30, 120},
		{"within bound", 40, 30, 64, 40, 30},
		{"no bound", 40, 30, 0, 40, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fit(testImage(tt.w, tt.h), tt.maxDim)
			assert.Equal(t, tt.wantW, got.Bounds().Dx())
			assert.Equal(t, tt.wantH, got.Bounds().Dy())
		})
	}
}

func TestFitKeepsSmallImage(t *testing.T) {
	src := testImage(16, 16)
	assert.Same(t, src, Fit(src, 64))
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"out.png", "out.jpg", "out.bmp"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, Save(path, testImage(20, 10)))

			img, err := imaging.Open(path)
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, 20, 10), img.Bounds())
		})
	}
}

func TestSaveUnsupportedExtension(t *testing.T) {
	err := Save(filepath.Join(t.TempDir(), "out.xyz"), testImage(4, 4))
	require.Error(t, err)
	assert.ErrorIs(t, err, imaging.ErrUnsupportedFormat)
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, testImage(8, 4), "png"))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())

	assert.Error(t, Encode(&buf, testImage(8, 4), "webp"))
}
