// Package dataset exposes annotated images as a random-access collection of
// training samples. Each access opens the image file, optionally rescales it,
// cuts a fresh random crop and applies an optional image transform.
//
// Repeated Get calls on the same index return different crops.
package dataset

import (
	"errors"
	"fmt"
	"image"
	"math/rand/v2"

	"github.com/cyclopcam/logs"

	"github.com/menta2k/kuzushiji-dataset/pkg/annotations"
	"github.com/menta2k/kuzushiji-dataset/pkg/augment"
	"github.com/menta2k/kuzushiji-dataset/pkg/cropper"
	"github.com/menta2k/kuzushiji-dataset/pkg/processing"
	"github.com/menta2k/kuzushiji-dataset/pkg/types"
)

var ErrIndexOutOfRange = errors.New("index out of range")

// DefaultCropSize matches the input size of the detector
var DefaultCropSize = types.Square(1024)

// ImageOpener decodes an image file
type ImageOpener interface {
	LoadImage(path string) (image.Image, error)
}

// Options configures a Dataset. Zero values select the defaults.
type Options struct {
	MaxSize   int        // rescale so the longest edge is MaxSize; 0 disables
	CropSize  types.Size // defaults to DefaultCropSize
	Threshold *float64   // coverage threshold; nil selects cropper.DefaultThreshold
	Transform augment.Transform
	Rand      cropper.Source
	Processor *processing.Processor // rescales images; defaults to processing.NewProcessor()
	Opener    ImageOpener           // defaults to Processor
	Log       logs.Log
}

// Sample is one cropped training example
type Sample struct {
	Image  image.Image
	Boxes  []types.BoundingBox
	Labels []int
}

// Dataset is a random-access view over image records
type Dataset struct {
	records   []types.ImageRecord
	opts      Options
	processor *processing.Processor
	rng       cropper.Source
	threshold float64
}

// New builds a dataset over already loaded records
func New(records []types.ImageRecord, opts Options) (*Dataset, error) {
	if opts.CropSize == (types.Size{}) {
		opts.CropSize = DefaultCropSize
	}
	if opts.CropSize.W <= 0 || opts.CropSize.H <= 0 {
		return nil, fmt.Errorf("%w: %v", cropper.ErrInvalidCropSize, opts.CropSize)
	}
	threshold := cropper.DefaultThreshold
	if opts.Threshold != nil {
		threshold = *opts.Threshold
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: %v", cropper.ErrInvalidThreshold, threshold)
	}
	if opts.MaxSize < 0 {
		return nil, fmt.Errorf("max size must not be negative, got %d", opts.MaxSize)
	}
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}

	processor := opts.Processor
	if processor == nil {
		processor = processing.NewProcessor()
	}
	if opts.Opener == nil {
		opts.Opener = processor
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return &Dataset{
		records:   records,
		opts:      opts,
		processor: processor,
		rng:       rng,
		threshold: threshold,
	}, nil
}

// FromSplit loads a split through loader and builds a dataset over it
func FromSplit(loader *annotations.Loader, split annotations.Split, opts Options) (*Dataset, error) {
	records, err := loader.LoadSplit(split)
	if err != nil {
		return nil, err
	}
	return New(records, opts)
}

// WithRand returns a dataset sharing this one's records but drawing crops from
// rng. Use one per worker goroutine.
func (d *Dataset) WithRand(rng cropper.Source) *Dataset {
	c := *d
	c.rng = rng
	return &c
}

// Len is the number of records
func (d *Dataset) Len() int {
	return len(d.records)
}

// Record returns the record at idx without loading the image
func (d *Dataset) Record(idx int) (types.ImageRecord, error) {
	if idx < 0 || idx >= len(d.records) {
		return types.ImageRecord{}, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, idx, len(d.records))
	}
	return d.records[idx], nil
}

// Get loads, rescales, crops and transforms the sample at idx
func (d *Dataset) Get(idx int) (Sample, error) {
	rec, err := d.Record(idx)
	if err != nil {
		return Sample{}, err
	}

	img, err := d.opts.Opener.LoadImage(rec.File)
	if err != nil {
		return Sample{}, fmt.Errorf("failed to open %s: %w", rec.File, err)
	}

	boxes := rec.Boxes
	if d.opts.MaxSize > 0 {
		img, boxes, err = d.processor.Rescale(img, boxes, d.opts.MaxSize)
		if err != nil {
			return Sample{}, fmt.Errorf("failed to rescale %s: %w", rec.File, err)
		}
	}

	raster := cropper.Raster{Image: img}
	result, err := cropper.Crop(d.rng, raster, boxes, rec.Labels, raster.Width(), raster.Height(),
		d.opts.CropSize.W, d.opts.CropSize.H, d.threshold)
	if err != nil {
		return Sample{}, fmt.Errorf("failed to crop %s: %w", rec.File, err)
	}
	if d.opts.Log != nil {
		d.opts.Log.Debugf("%v: window %v, kept %v of %v boxes", rec.ID, result.Window.Rect(), len(result.Boxes), len(boxes))
	}

	out := result.Image.(cropper.Raster).Image
	if d.opts.Transform != nil {
		out = d.opts.Transform(out)
	}
	return Sample{Image: out, Boxes: result.Boxes, Labels: result.Labels}, nil
}
