// Package features turns input images into fixed-length feature vectors.
package features

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const (
	DefaultGrid = 8
	DefaultBins = 8
)

// ImageExtractor describes an image by a downsampled grayscale thumbnail
// followed by one intensity histogram per RGB channel. The vector width is
// Grid*Grid + 3*Bins regardless of the input size.
type ImageExtractor struct {
	Grid int
	Bins int
	// BaseDir resolves relative input paths.
	BaseDir string
}

// NewImageExtractor returns an extractor, substituting defaults for
// non-positive sizes.
func NewImageExtractor(grid, bins int, baseDir string) *ImageExtractor {
	if grid <= 0 {
		grid = DefaultGrid
	}
	if bins <= 0 {
		bins = DefaultBins
	}
	return &ImageExtractor{Grid: grid, Bins: bins, BaseDir: baseDir}
}

// Dimension returns the length of every extracted vector.
func (e *ImageExtractor) Dimension() int { return e.Grid*e.Grid + 3*e.Bins }

// Vectorize loads the image at path and extracts its features.
func (e *ImageExtractor) Vectorize(ctx context.Context, path string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.BaseDir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(e.BaseDir, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("features: open %s: %w", path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("features: decode %s: %w", path, err)
	}
	return e.Extract(img), nil
}

// Extract computes the feature vector of an in-memory image.
func (e *ImageExtractor) Extract(img image.Image) []float64 {
	out := make([]float64, 0, e.Dimension())

	thumb := image.NewGray(image.Rect(0, 0, e.Grid, e.Grid))
	draw.ApproxBiLinear.Scale(thumb, thumb.Bounds(), img, img.Bounds(), draw.Src, nil)
	for _, p := range thumb.Pix {
		out = append(out, float64(p)/255)
	}

	hist := make([]float64, 3*e.Bins)
	b := img.Bounds()
	total := float64(b.Dx() * b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			for ch, v := range [3]uint32{r, g, bl} {
				bin := int(v) * e.Bins / 0x10000
				hist[ch*e.Bins+bin]++
			}
		}
	}
	if total > 0 {
		for i := range hist {
			hist[i] /= total
		}
	}
	return append(out, hist...)
}
