// Package estimate decides how many leading bytes of a progressive JPEG 2000
// file to request for a target output size.
//
// Estimates are biased upward. Reading a little too much costs some extra
// bytes on the wire; reading too little costs another round trip.
//
// Example usage:
//
//	cfg := estimate.DefaultConfig()
//	b := cfg.ReadSize(512, 512, cfg.BytesPerPixel, 64)
//	fmt.Println(b.MaxBytes, b.DiscardLevel) // 14745 3
package estimate

import (
	"fmt"
	"math"
	"math/bits"
)

// Unbounded is the MaxBytes value meaning "read the whole asset".
const Unbounded int64 = math.MaxInt64

// Default tuning constants.
const (
	// DefaultCompressionFactor assumes the codec saves little over raw pixels.
	DefaultCompressionFactor = 0.9
	// DefaultBytesPerPixel assumes RGBA, 8 bits per component.
	DefaultBytesPerPixel = 4
	// DefaultMinimumReadSize is the smallest prefix whose codestream framing
	// parses reliably.
	DefaultMinimumReadSize = 4096
	// DefaultLargestDimension is the largest requested dimension that is
	// sized at all. Larger requests read everything.
	DefaultLargestDimension = 8192
)

// Config holds the estimator tuning.
type Config struct {
	// CompressionFactor scales raw pixel bytes to expected codestream bytes.
	CompressionFactor float64

	// BytesPerPixel is used when the true pixel layout is not yet known.
	BytesPerPixel int

	// MinimumReadSize is the floor for any bounded estimate.
	MinimumReadSize int64

	// LargestDimension is the ceiling above which InitialReadSize gives up
	// and returns Unbounded.
	LargestDimension int
}

// DefaultConfig returns the default estimator tuning.
func DefaultConfig() Config {
	return Config{
		CompressionFactor: DefaultCompressionFactor,
		BytesPerPixel:     DefaultBytesPerPixel,
		MinimumReadSize:   DefaultMinimumReadSize,
		LargestDimension:  DefaultLargestDimension,
	}
}

// Budget is the result of an estimate.
type Budget struct {
	// MaxBytes is the number of bytes to read from the start of the file,
	// or Unbounded.
	MaxBytes int64

	// DiscardLevel is the codec reduction to decode at. 0 is full resolution;
	// each level halves both dimensions.
	DiscardLevel int
}

// Bounded reports whether the budget restricts the read.
func (b Budget) Bounded() bool {
	return b.MaxBytes != Unbounded
}

// String returns a short description of the budget.
func (b Budget) String() string {
	if !b.Bounded() {
		return fmt.Sprintf("unbounded, discard level %d", b.DiscardLevel)
	}
	return fmt.Sprintf("%d bytes, discard level %d", b.MaxBytes, b.DiscardLevel)
}

// ReadSize estimates the bytes to read and the discard level for an image of
// known size width x height so that its larger side comes out near maxDim.
//
// A reduction ratio below 2 cannot be served by a reduced decode, so the whole
// asset is read at discard level 0.
//
// ReadSize panics if maxDim is not positive.
func (c Config) ReadSize(width, height, bytesPerPixel, maxDim int) Budget {
	if maxDim <= 0 {
		panic(fmt.Sprintf("estimate: max dimension must be positive, got %d", maxDim))
	}
	ratio := max(width, height) / maxDim
	if ratio < 2 {
		return Budget{MaxBytes: Unbounded, DiscardLevel: 0}
	}
	inPixels := int64(width) * int64(height)
	outPixels := inPixels / (int64(ratio) * int64(ratio))
	return Budget{
		MaxBytes:     c.scale(outPixels, bytesPerPixel),
		DiscardLevel: DiscardLevel(ratio),
	}
}

// InitialReadSize estimates the bytes to read before the image size is known.
// It assumes the worst case, an image exactly maxDim on a side, so no
// reduction is possible.
//
// InitialReadSize panics if maxDim is not positive.
func (c Config) InitialReadSize(maxDim int) int64 {
	if maxDim <= 0 {
		panic(fmt.Sprintf("estimate: max dimension must be positive, got %d", maxDim))
	}
	if maxDim > c.LargestDimension {
		return Unbounded
	}
	return c.scale(int64(maxDim)*int64(maxDim), c.BytesPerPixel)
}

func (c Config) scale(pixels int64, bytesPerPixel int) int64 {
	n := int64(float64(pixels*int64(bytesPerPixel)) * c.CompressionFactor)
	return max(n, c.MinimumReadSize)
}

// DiscardLevel returns the smallest level i with 2^i >= ratio, i.e.
// ceil(log2(ratio)). Rounding up keeps the output within maxDim.
//
// DiscardLevel panics if ratio is not positive.
func DiscardLevel(ratio int) int {
	if ratio <= 0 {
		panic(fmt.Sprintf("estimate: reduction ratio must be positive, got %d", ratio))
	}
	return bits.Len(uint(ratio - 1))
}
