package processing

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/kuzushiji-dataset/pkg/types"
)

// Processor handles image file I/O and resizing
type Processor struct {
	filter imaging.ResampleFilter
}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{filter: imaging.Lanczos}
}

// NewProcessorWithFilter creates a processor that resizes with the given filter
func NewProcessorWithFilter(filter imaging.ResampleFilter) *Processor {
	return &Processor{filter: filter}
}

// ParseFilter maps a resampling filter name to the imaging filter. The empty
// name selects Lanczos.
func ParseFilter(name string) (imaging.ResampleFilter, error) {
	switch strings.ToLower(name) {
	case "", "lanczos":
		return imaging.Lanczos, nil
	case "catmullrom":
		return imaging.CatmullRom, nil
	case "linear":
		return imaging.Linear, nil
	case "box":
		return imaging.Box, nil
	case "nearest":
		return imaging.NearestNeighbor, nil
	default:
		return imaging.ResampleFilter{}, fmt.Errorf("unknown resample filter %q", name)
	}
}

// LoadImage loads an image from a file path with WebP support
func (p *Processor) LoadImage(path string) (image.Image, error) {
	// Try imaging.Open (registered decoders)
	img, openErr := imaging.Open(path)
	if openErr == nil {
		return img, nil
	}

	// Fallback: explicit WebP decode
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err = p.decodeImageFromBytes(data, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", err, openErr)
	}
	return img, nil
}

// decodeImageFromBytes decodes an image from byte data with WebP support
func (p *Processor) decodeImageFromBytes(data []byte, name string) (image.Image, error) {
	if strings.Contains(strings.ToLower(name), ".webp") {
		if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
			return img, nil
		}
	}
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("image: unknown format for %s", name)
}

// RescaleRatio returns the factor that brings the longest edge of a w x h
// image to maxSize. The factor may be above 1.
func RescaleRatio(w, h, maxSize int) float64 {
	return float64(maxSize) / float64(max(w, h))
}

// Rescale resizes img so its longest edge is maxSize and scales the boxes by
// the same factor. Box coordinates are truncated, not rounded, and may end up
// outside the resized image.
func (p *Processor) Rescale(img image.Image, boxes []types.BoundingBox, maxSize int) (image.Image, []types.BoundingBox, error) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, nil, fmt.Errorf("invalid image dimensions %dx%d", b.Dx(), b.Dy())
	}
	if maxSize <= 0 {
		return nil, nil, fmt.Errorf("invalid max size %d", maxSize)
	}
	ratio := RescaleRatio(b.Dx(), b.Dy(), maxSize)

	newW := int(float64(b.Dx()) * ratio)
	newH := int(float64(b.Dy()) * ratio)
	if newW < 1 || newH < 1 {
		return nil, nil, fmt.Errorf("rescale of %dx%d to %d collapses the image", b.Dx(), b.Dy(), maxSize)
	}

	scaled := make([]types.BoundingBox, len(boxes))
	for i, box := range boxes {
		scaled[i] = box.Scale(ratio)
	}
	return imaging.Resize(img, newW, newH, p.filter), scaled, nil
}

// SaveImage saves an image to a file with the specified format and quality
func (p *Processor) SaveImage(img image.Image, path, format string, quality int, lossless bool) error {
	switch strings.ToLower(format) {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		opts := &webp.Options{Lossless: lossless, Quality: float32(quality)}
		return webp.Encode(f, img, opts)
	case "png":
		return imaging.Save(img, path)
	default: // jpg/jpeg
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	}
}
