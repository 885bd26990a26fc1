// Package render turns decoded asset bitmaps into output files.
package render

import (
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

// JPEGQuality is the quality used when saving to .jpg or .jpeg.
const JPEGQuality = 90

// Fit shrinks img with a Lanczos filter so its larger side is at most maxDim,
// keeping the aspect ratio. Images already within maxDim, and maxDim 0, are
// returned as is.
func Fit(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	if maxDim <= 0 || (b.Dx() <= maxDim && b.Dy() <= maxDim) {
		return img
	}
	return imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
}

// Save writes img to path. The encoder is chosen from the file extension.
func Save(path string, img image.Image) error {
	if _, err := imaging.FormatFromFilename(path); err != nil {
		return fmt.Errorf("render: %s: %w", path, err)
	}
	if err := imaging.Save(img, path, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return fmt.Errorf("render: save %s: %w", path, err)
	}
	return nil
}

// Encode writes img to w in the named format ("png", "jpg", "tiff", ...).
func Encode(w io.Writer, img image.Image, format string) error {
	f, err := imaging.FormatFromExtension(format)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return imaging.Encode(w, img, f, imaging.JPEGQuality(JPEGQuality))
}
