package augment

import (
	"image"
	"image/color"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 4), uint8(y * 4), 100, 255})
		}
	}
	return img
}

func TestCompose(t *testing.T) {
	var order []string
	tag := func(name string) Transform {
		return func(img image.Image) image.Image {
			order = append(order, name)
			return img
		}
	}

	img := createTestImage(4, 4)
	out := Compose(tag("a"), nil, tag("b"))(img)
	require.Same(t, img.(*image.RGBA), out.(*image.RGBA))
	require.Equal(t, []string{"a", "b"}, order)
}

func TestColorJitterKeepsSize(t *testing.T) {
	j, err := NewColorJitter(rand.New(rand.NewPCG(1, 2)), 0.3, 0.5, 0.5, 0.1)
	require.NoError(t, err)

	img := createTestImage(32, 24)
	for i := 0; i < 5; i++ {
		out := j.Apply(img)
		require.Equal(t, 32, out.Bounds().Dx())
		require.Equal(t, 24, out.Bounds().Dy())
	}
}

func TestColorJitterZeroIsIdentity(t *testing.T) {
	j, err := NewColorJitter(rand.New(rand.NewPCG(1, 2)), 0, 0, 0, 0)
	require.NoError(t, err)

	img := createTestImage(8, 8)
	out := j.Transform()(img)
	require.Same(t, img.(*image.RGBA), out.(*image.RGBA))
}

type constSource float64

func (c constSource) Float64() float64 { return float64(c) }

func TestColorJitterChangesPixels(t *testing.T) {
	// 0.99 maps to a brightness change of +0.882
	j, err := NewColorJitter(constSource(0.99), 0.9, 0, 0, 0)
	require.NoError(t, err)

	img := createTestImage(16, 16)
	out := j.Apply(img)
	require.NotEqual(t, img.At(8, 8), out.At(8, 8))
}

func TestNewColorJitterValidation(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	_, err := NewColorJitter(rng, 1.5, 0, 0, 0)
	require.Error(t, err)
	_, err = NewColorJitter(rng, 0, -0.1, 0, 0)
	require.Error(t, err)
	_, err = NewColorJitter(rng, 0, 0, 0, 0.6)
	require.Error(t, err)
}
