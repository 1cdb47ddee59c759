// Package cropper implements random crop augmentation for detection samples.
//
// A crop window of the requested size is placed uniformly at random inside the
// image. Every box is scored by its coverage, the fraction of the box's own
// area that lies inside the window. Boxes with coverage strictly above the
// threshold survive and are shifted into crop-local coordinates; the rest are
// dropped together with their labels.
//
// Surviving boxes are NOT clipped to the window, so a remapped box can still
// extend past [0, cropW] x [0, cropH].
package cropper

import (
	"errors"
	"fmt"

	"github.com/menta2k/kuzushiji-dataset/pkg/types"
)

var (
	ErrCropTooLarge     = errors.New("crop window does not fit inside image")
	ErrInvalidCropSize  = errors.New("crop size must be positive")
	ErrInvalidThreshold = errors.New("coverage threshold must be within [0, 1]")
	ErrLengthMismatch   = errors.New("boxes and labels differ in length")
)

// DefaultThreshold is the coverage a box needs to survive a crop
const DefaultThreshold = 0.5

// Source draws uniform integers in [0, n). *math/rand/v2.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

// Result is the outcome of one crop
type Result struct {
	Image  Image
	Window types.CropWindow
	Boxes  []types.BoundingBox
	Labels []int
}

// RandomWindow places a cropW x cropH window uniformly inside an imageW x imageH image
func RandomWindow(rng Source, imageW, imageH, cropW, cropH int) (types.CropWindow, error) {
	if cropW <= 0 || cropH <= 0 {
		return types.CropWindow{}, fmt.Errorf("%w: %dx%d", ErrInvalidCropSize, cropW, cropH)
	}
	if cropW > imageW || cropH > imageH {
		return types.CropWindow{}, fmt.Errorf("%w: crop %dx%d, image %dx%d", ErrCropTooLarge, cropW, cropH, imageW, imageH)
	}
	x0 := rng.IntN(imageW - cropW + 1)
	y0 := rng.IntN(imageH - cropH + 1)
	return types.CropWindow{X0: x0, Y0: y0, X1: x0 + cropW, Y1: y0 + cropH}, nil
}

// Coverage is the intersection area of box and window divided by the area of
// the box. Disjoint and zero-area boxes have coverage 0.
func Coverage(box types.BoundingBox, w types.CropWindow) float64 {
	area := box.Area()
	if area <= 0 {
		return 0
	}
	ix := min(w.X1, box.X+box.W) - max(w.X0, box.X)
	iy := min(w.Y1, box.Y+box.H) - max(w.Y0, box.Y)
	if ix <= 0 || iy <= 0 {
		return 0
	}
	return float64(ix*iy) / float64(area)
}

// Filter keeps the boxes whose coverage is strictly greater than threshold and
// remaps them to window-local coordinates. The returned slices are freshly
// allocated and never nil.
func Filter(w types.CropWindow, boxes []types.BoundingBox, labels []int, threshold float64) ([]types.BoundingBox, []int) {
	newBoxes := make([]types.BoundingBox, 0, len(boxes))
	newLabels := make([]int, 0, len(boxes))
	for i, box := range boxes {
		if Coverage(box, w) > threshold {
			newBoxes = append(newBoxes, box.Offset(-w.X0, -w.Y0))
			newLabels = append(newLabels, labels[i])
		}
	}
	return newBoxes, newLabels
}

// Crop draws a random window, filters the boxes against it and crops the image.
// imageW and imageH are the dimensions the window is drawn from.
func Crop(rng Source, img Image, boxes []types.BoundingBox, labels []int, imageW, imageH, cropW, cropH int, threshold float64) (Result, error) {
	if threshold < 0 || threshold > 1 {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidThreshold, threshold)
	}
	if len(boxes) != len(labels) {
		return Result{}, fmt.Errorf("%w: %d boxes, %d labels", ErrLengthMismatch, len(boxes), len(labels))
	}

	window, err := RandomWindow(rng, imageW, imageH, cropW, cropH)
	if err != nil {
		return Result{}, err
	}
	newBoxes, newLabels := Filter(window, boxes, labels, threshold)

	cropped, err := img.Crop(window.Rect())
	if err != nil {
		return Result{}, fmt.Errorf("failed to crop image: %w", err)
	}

	return Result{
		Image:  cropped,
		Window: window,
		Boxes:  newBoxes,
		Labels: newLabels,
	}, nil
}

// RandomCropper binds a random source and a threshold
type RandomCropper struct {
	rng    Source
	config CropConfig
}

// CropConfig holds configuration for random cropping
type CropConfig struct {
	Threshold float64
}

// New creates a RandomCropper with the default threshold
func New(rng Source) *RandomCropper {
	return &RandomCropper{
		rng:    rng,
		config: CropConfig{Threshold: DefaultThreshold},
	}
}

// NewWithConfig creates a RandomCropper with custom configuration
func NewWithConfig(rng Source, config CropConfig) *RandomCropper {
	return &RandomCropper{rng: rng, config: config}
}

// Threshold returns the configured coverage threshold
func (c *RandomCropper) Threshold() float64 {
	return c.config.Threshold
}

// Crop crops any supported image representation to size, taking the source
// dimensions from the image itself.
func (c *RandomCropper) Crop(v any, boxes []types.BoundingBox, labels []int, size types.Size) (Result, error) {
	img, err := Adapt(v)
	if err != nil {
		return Result{}, err
	}
	return Crop(c.rng, img, boxes, labels, img.Width(), img.Height(), size.W, size.H, c.config.Threshold)
}
