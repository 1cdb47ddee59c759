package types

import (
	"encoding/json"
	"fmt"
	"image"
)

// BoundingBox is an axis-aligned box in pixel units, stored as (x, y, width, height).
// After a rescale a box may extend past the image bounds.
type BoundingBox struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Area returns the area of the box in pixels
func (b BoundingBox) Area() int {
	return b.W * b.H
}

// Rect converts the box to corner form (x, y)-(x+w, y+h)
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.W, b.Y+b.H)
}

// Offset shifts the origin of the box, leaving width and height untouched
func (b BoundingBox) Offset(dx, dy int) BoundingBox {
	return BoundingBox{X: b.X + dx, Y: b.Y + dy, W: b.W, H: b.H}
}

// Scale multiplies every component by ratio and truncates toward zero
func (b BoundingBox) Scale(ratio float64) BoundingBox {
	return BoundingBox{
		X: int(float64(b.X) * ratio),
		Y: int(float64(b.Y) * ratio),
		W: int(float64(b.W) * ratio),
		H: int(float64(b.H) * ratio),
	}
}

// CropWindow is a pixel rectangle (X0,Y0) inclusive to (X1,Y1) exclusive
type CropWindow struct {
	X0 int `json:"x0"`
	Y0 int `json:"y0"`
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
}

func (w CropWindow) Width() int  { return w.X1 - w.X0 }
func (w CropWindow) Height() int { return w.Y1 - w.Y0 }

func (w CropWindow) Rect() image.Rectangle {
	return image.Rect(w.X0, w.Y0, w.X1, w.Y1)
}

// ImageRecord is one row of an annotation table
type ImageRecord struct {
	ID     string        `json:"id"`
	File   string        `json:"file"`
	Boxes  []BoundingBox `json:"boxes"`
	Labels []int         `json:"labels"`
	Usage  string        `json:"usage,omitempty"` // test split only
}

// Validate checks that boxes and labels are parallel
func (r ImageRecord) Validate() error {
	if len(r.Boxes) != len(r.Labels) {
		return fmt.Errorf("record %s: %d boxes but %d labels", r.ID, len(r.Boxes), len(r.Labels))
	}
	return nil
}

// Size is a width/height pair. In JSON it may be written as a single number
// for a square, or as a two element array.
type Size struct {
	W int
	H int
}

// Square returns a Size with equal sides
func Square(n int) Size {
	return Size{W: n, H: n}
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.W, s.H)
}

func (s Size) MarshalJSON() ([]byte, error) {
	if s.W == s.H {
		return json.Marshal(s.W)
	}
	return json.Marshal([2]int{s.W, s.H})
}

func (s *Size) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*s = Square(n)
		return nil
	}
	var pair [2]int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("size must be a number or [width, height]: %w", err)
	}
	*s = Size{W: pair[0], H: pair[1]}
	return nil
}
