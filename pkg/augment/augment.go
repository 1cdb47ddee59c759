// Package augment holds image-only transforms applied to a sample after it has
// been cropped. Boxes are never touched here.
package augment

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/adjust"
)

// Transform maps an image to a new image
type Transform func(image.Image) image.Image

// Compose chains transforms left to right. Nil entries are skipped.
func Compose(transforms ...Transform) Transform {
	return func(img image.Image) image.Image {
		for _, t := range transforms {
			if t != nil {
				img = t(img)
			}
		}
		return img
	}
}

// Float64Source draws uniform floats in [0, 1). *math/rand/v2.Rand satisfies it.
type Float64Source interface {
	Float64() float64
}

// ColorJitter randomly perturbs brightness, contrast, saturation and hue.
//
// Brightness, Contrast and Saturation are spreads around an unchanged image:
// a value of 0.3 draws a factor uniformly from [0.7, 1.3]. Hue is a fraction
// of a full turn in [0, 0.5]; 0.1 draws a shift from [-36, 36] degrees.
//
// A ColorJitter owns its random source and is not safe for concurrent use.
type ColorJitter struct {
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Saturation float64 `json:"saturation"`
	Hue        float64 `json:"hue"`

	rng Float64Source
}

// NewColorJitter validates the spreads and binds a random source
func NewColorJitter(rng Float64Source, brightness, contrast, saturation, hue float64) (*ColorJitter, error) {
	for name, v := range map[string]float64{"brightness": brightness, "contrast": contrast, "saturation": saturation} {
		if v < 0 || v > 1 {
			return nil, fmt.Errorf("%s jitter must be within [0, 1], got %v", name, v)
		}
	}
	if hue < 0 || hue > 0.5 {
		return nil, fmt.Errorf("hue jitter must be within [0, 0.5], got %v", hue)
	}
	return &ColorJitter{
		Brightness: brightness,
		Contrast:   contrast,
		Saturation: saturation,
		Hue:        hue,
		rng:        rng,
	}, nil
}

// uniform draws from [-spread, spread]
func (j *ColorJitter) uniform(spread float64) float64 {
	return (2*j.rng.Float64() - 1) * spread
}

// Apply perturbs img. Zero spreads leave the corresponding property alone.
func (j *ColorJitter) Apply(img image.Image) image.Image {
	if j.Brightness > 0 {
		img = adjust.Brightness(img, j.uniform(j.Brightness))
	}
	if j.Contrast > 0 {
		img = adjust.Contrast(img, j.uniform(j.Contrast))
	}
	if j.Saturation > 0 {
		img = adjust.Saturation(img, j.uniform(j.Saturation))
	}
	if j.Hue > 0 {
		img = adjust.Hue(img, int(j.uniform(j.Hue)*360))
	}
	return img
}

// Transform returns Apply as a Transform
func (j *ColorJitter) Transform() Transform {
	return j.Apply
}
