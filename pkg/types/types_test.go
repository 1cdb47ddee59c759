package types

import (
	"encoding/json"
	"image"
	"testing"
)

func TestBoundingBoxScaleTruncates(t *testing.T) {
	b := BoundingBox{X: 10, Y: 15, W: 7, H: 3}

	got := b.Scale(0.5)
	want := BoundingBox{X: 5, Y: 7, W: 3, H: 1}
	if got != want {
		t.Errorf("Scale(0.5): got %+v, want %+v", got, want)
	}
}

func TestBoundingBoxRect(t *testing.T) {
	b := BoundingBox{X: 10, Y: 20, W: 30, H: 40}
	if b.Rect() != image.Rect(10, 20, 40, 60) {
		t.Errorf("Rect: got %v", b.Rect())
	}
	if b.Area() != 1200 {
		t.Errorf("Area: got %d, want 1200", b.Area())
	}
	if o := b.Offset(-10, -5); o != (BoundingBox{X: 0, Y: 15, W: 30, H: 40}) {
		t.Errorf("Offset: got %+v", o)
	}
}

func TestImageRecordValidate(t *testing.T) {
	ok := ImageRecord{ID: "a", Boxes: []BoundingBox{{}}, Labels: []int{1}}
	if err := ok.Validate(); err != nil {
		t.Errorf("expected valid record: %v", err)
	}
	bad := ImageRecord{ID: "b", Boxes: []BoundingBox{{}}, Labels: nil}
	if err := bad.Validate(); err == nil {
		t.Error("expected mismatch error")
	}
}

func TestSizeJSON(t *testing.T) {
	tests := []struct {
		in   string
		want Size
	}{
		{"512", Size{512, 512}},
		{"[640, 480]", Size{640, 480}},
	}
	for _, tt := range tests {
		var s Size
		if err := json.Unmarshal([]byte(tt.in), &s); err != nil {
			t.Fatalf("Unmarshal(%s): %v", tt.in, err)
		}
		if s != tt.want {
			t.Errorf("Unmarshal(%s): got %v, want %v", tt.in, s, tt.want)
		}
	}

	var s Size
	if err := json.Unmarshal([]byte(`"big"`), &s); err == nil {
		t.Error("expected error for string size")
	}

	out, err := json.Marshal(Size{640, 480})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "[640,480]" {
		t.Errorf("Marshal: got %s", out)
	}
	out, _ = json.Marshal(Square(256))
	if string(out) != "256" {
		t.Errorf("Marshal square: got %s", out)
	}
}
