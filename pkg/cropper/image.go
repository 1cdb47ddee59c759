package cropper

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

var ErrUnsupportedImage = errors.New("unsupported image type")

// UnsupportedImageError is returned by Adapt for values that have no adapter
type UnsupportedImageError struct {
	Type string
}

func (e *UnsupportedImageError) Error() string {
	return fmt.Sprintf("%v in crop: %s", ErrUnsupportedImage, e.Type)
}

func (e *UnsupportedImageError) Is(target error) bool {
	return target == ErrUnsupportedImage
}

// Image is anything the crop engine can cut a window out of
type Image interface {
	Width() int
	Height() int
	// Crop returns a newly allocated image holding the pixels inside r.
	// r is relative to the top-left corner of the image.
	Crop(r image.Rectangle) (Image, error)
}

// Adapt wraps a supported image representation. image.Image values become a
// Raster, *Tensor and existing Image values are returned as-is.
func Adapt(v any) (Image, error) {
	switch img := v.(type) {
	case Image:
		return img, nil
	case image.Image:
		return Raster{img}, nil
	default:
		return nil, &UnsupportedImageError{Type: fmt.Sprintf("%T", v)}
	}
}

func checkWindow(r image.Rectangle, w, h int) error {
	if r.Empty() || r.Min.X < 0 || r.Min.Y < 0 || r.Max.X > w || r.Max.Y > h {
		return fmt.Errorf("%w: window %v outside %dx%d image", ErrCropTooLarge, r, w, h)
	}
	return nil
}

// Raster adapts a decoded image.Image
type Raster struct {
	image.Image
}

func (r Raster) Width() int  { return r.Bounds().Dx() }
func (r Raster) Height() int { return r.Bounds().Dy() }

func (r Raster) Crop(rect image.Rectangle) (Image, error) {
	if err := checkWindow(rect, r.Width(), r.Height()); err != nil {
		return nil, err
	}
	return Raster{imaging.Crop(r.Image, rect.Add(r.Bounds().Min))}, nil
}

// Tensor is a row-major height x width x channels array of 8-bit samples,
// the layout used when images are handed over as raw arrays.
type Tensor struct {
	W, H, C int
	Pix     []uint8
}

// NewTensor allocates a zeroed tensor
func NewTensor(w, h, c int) *Tensor {
	return &Tensor{W: w, H: h, C: c, Pix: make([]uint8, w*h*c)}
}

func (t *Tensor) Width() int  { return t.W }
func (t *Tensor) Height() int { return t.H }

// At returns the samples of pixel (x, y)
func (t *Tensor) At(x, y int) []uint8 {
	i := (y*t.W + x) * t.C
	return t.Pix[i : i+t.C]
}

func (t *Tensor) Crop(rect image.Rectangle) (Image, error) {
	if err := checkWindow(rect, t.W, t.H); err != nil {
		return nil, err
	}
	out := NewTensor(rect.Dx(), rect.Dy(), t.C)
	rowLen := out.W * t.C
	for y := 0; y < out.H; y++ {
		src := ((rect.Min.Y+y)*t.W + rect.Min.X) * t.C
		copy(out.Pix[y*rowLen:(y+1)*rowLen], t.Pix[src:src+rowLen])
	}
	return out, nil
}
