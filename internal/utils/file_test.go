package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestImagePath(t *testing.T) {
	tests := []struct {
		dir, id, ext string
		want         string
	}{
		{"data/train", "100241706_00004_2", ".jpg", filepath.Join("data/train", "100241706_00004_2.jpg")},
		{"data/test", "abc", "png", filepath.Join("data/test", "abc.png")},
		{"d", "abc", "..webp", filepath.Join("d", "abc.webp")},
		{"d", "abc", "", filepath.Join("d", "abc")},
	}
	for _, tt := range tests {
		if got := ImagePath(tt.dir, tt.id, tt.ext); got != tt.want {
			t.Errorf("ImagePath(%q, %q, %q) = %q, want %q", tt.dir, tt.id, tt.ext, got, tt.want)
		}
	}
}

func TestGenerateOutputFilename(t *testing.T) {
	got := GenerateOutputFilename("data/train/img:1.jpg", "out", "000_", "_crop", "png")
	want := filepath.Join("out", "000_img_1_crop.png")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	got = GenerateOutputFilename("a/b.webp", "out", "", "", "")
	if got != filepath.Join("out", "b.webp") {
		t.Errorf("format from input: got %q", got)
	}
}

func TestEnsureDirAndExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if DirExists(dir) {
		t.Fatal("dir should not exist yet")
	}
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	if !DirExists(dir) {
		t.Error("dir should exist")
	}

	file := filepath.Join(dir, "f.txt")
	if FileExists(file) {
		t.Error("file should not exist yet")
	}
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !FileExists(file) {
		t.Error("file should exist")
	}
	if FileExists(dir) {
		t.Error("a directory is not a file")
	}
}
