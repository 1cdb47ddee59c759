// Package overlay draws boxes and their glyphs on top of an image for visual
// inspection of samples.
package overlay

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/menta2k/kuzushiji-dataset/pkg/catalog"
	"github.com/menta2k/kuzushiji-dataset/pkg/types"
)

var ErrUnsupportedMode = errors.New("unsupported box mode")

// Mode is the convention the four numbers of a box are read in
type Mode string

// ModePixels reads boxes as (x, y, width, height) in pixels
const ModePixels Mode = "pixels"

// Config holds configuration for the overlay renderer
type Config struct {
	FontPath     string  `json:"font_path"` // TrueType/OpenType font; empty selects a built-in bitmap font
	FontSize     float64 `json:"font_size"`
	Mode         Mode    `json:"mode"`
	ColorByClass bool    `json:"color_by_class"`
	Stroke       int     `json:"stroke"`
}

// DefaultConfig returns the renderer defaults
func DefaultConfig() Config {
	return Config{
		FontSize: 14,
		Mode:     ModePixels,
		Stroke:   1,
	}
}

var (
	red   = color.NRGBA{255, 0, 0, 255}
	white = color.NRGBA{255, 255, 255, 255}
	black = color.NRGBA{0, 0, 0, 255}
)

// Drawer renders annotated copies of images
type Drawer struct {
	catalog *catalog.Catalog
	face    font.Face
	config  Config
}

// New loads the configured font and returns a Drawer
func New(cat *catalog.Catalog, config Config) (*Drawer, error) {
	if config.FontSize <= 0 {
		config.FontSize = 14
	}
	if config.Stroke <= 0 {
		config.Stroke = 1
	}
	if config.Mode == "" {
		config.Mode = ModePixels
	}

	var face font.Face = basicfont.Face7x13
	if config.FontPath != "" {
		data, err := os.ReadFile(config.FontPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read font: %w", err)
		}
		fnt, err := opentype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse font %s: %w", config.FontPath, err)
		}
		face, err = opentype.NewFace(fnt, &opentype.FaceOptions{
			Size:    config.FontSize,
			DPI:     72,
			Hinting: font.HintingNone,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create font face: %w", err)
		}
	}

	return &Drawer{catalog: cat, face: face, config: config}, nil
}

// Draw returns a copy of img with every box outlined and labelled with its glyph
func (d *Drawer) Draw(img image.Image, boxes []types.BoundingBox, labels []int) (*image.NRGBA, error) {
	if d.config.Mode != ModePixels {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMode, d.config.Mode)
	}
	if len(boxes) != len(labels) {
		return nil, fmt.Errorf("%d boxes but %d labels", len(boxes), len(labels))
	}

	out := imaging.Clone(img)
	for i, box := range boxes {
		glyph, err := d.catalog.Glyph(labels[i])
		if err != nil {
			return nil, fmt.Errorf("box %d: %w", i, err)
		}
		r := box.Rect()
		drawBox(out, r, d.classColor(labels[i]), d.config.Stroke)
		d.drawLabel(out, r.Min, glyph)
	}
	return out, nil
}

func (d *Drawer) classColor(class int) color.NRGBA {
	if !d.config.ColorByClass {
		return red
	}
	// Golden angle spacing keeps neighbouring class ids apart on the wheel
	hue := math.Mod(float64(class)*137.508, 360)
	r, g, b := colorful.Hsv(hue, 0.9, 0.95).RGB255()
	return color.NRGBA{r, g, b, 255}
}

// drawLabel paints a white tag above the top-left corner of a box and writes the glyph on it
func (d *Drawer) drawLabel(img *image.NRGBA, at image.Point, glyph string) {
	metrics := d.face.Metrics()
	ascent := metrics.Ascent.Ceil()
	height := ascent + metrics.Descent.Ceil()
	width := font.MeasureString(d.face, glyph).Ceil()

	bg := image.Rect(at.X, at.Y-height, at.X+width+4, at.Y+4)
	draw.Draw(img, bg, image.NewUniform(white), image.Point{}, draw.Src)

	dr := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(black),
		Face: d.face,
		Dot:  fixed.P(at.X+2, at.Y-height+2+ascent),
	}
	dr.DrawString(glyph)
}

func drawBox(img *image.NRGBA, r image.Rectangle, c color.NRGBA, stroke int) {
	for s := 0; s < stroke; s++ {
		drawHLine(img, r.Min.Y+s, r.Min.X, r.Max.X, c)
		drawHLine(img, r.Max.Y-1-s, r.Min.X, r.Max.X, c)
		drawVLine(img, r.Min.X+s, r.Min.Y, r.Max.Y, c)
		drawVLine(img, r.Max.X-1-s, r.Min.Y, r.Max.Y, c)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x1 <= 0 || x0 >= img.Bounds().Dx() {
		return
	}
	if x0 < 0 {
		x0 = 0
	}
	if x1 > img.Bounds().Dx() {
		x1 = img.Bounds().Dx()
	}
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y1 <= 0 || y0 >= img.Bounds().Dy() {
		return
	}
	if y0 < 0 {
		y0 = 0
	}
	if y1 > img.Bounds().Dy() {
		y1 = img.Bounds().Dy()
	}
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
