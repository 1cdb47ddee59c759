// Package catalog maps Unicode code points ("U+4E00") to dense class indices
// and class indices back to the glyph they stand for.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	ErrUnknownCodePoint = errors.New("unknown code point")
	ErrUnknownClass     = errors.New("unknown class index")
)

// UnknownCodePointError is returned by ClassOf for code points that are not in the catalog
type UnknownCodePointError struct {
	CodePoint string
}

func (e *UnknownCodePointError) Error() string {
	return fmt.Sprintf("%v: %q", ErrUnknownCodePoint, e.CodePoint)
}

func (e *UnknownCodePointError) Is(target error) bool {
	return target == ErrUnknownCodePoint
}

// Entry is one (code point, glyph) row
type Entry struct {
	CodePoint string `json:"unicode"`
	Glyph     string `json:"char"`
}

// Forgotten lists characters that appear in the training labels but are
// missing from the published translation table.
var Forgotten = []Entry{
	{CodePoint: "U+770C", Glyph: "県"},
	{CodePoint: "U+4FA1", Glyph: "価"},
	{CodePoint: "U+7A83", Glyph: "窃"},
	{CodePoint: "U+515A", Glyph: "党"},
	{CodePoint: "U+5E81", Glyph: "庁"},
	{CodePoint: "U+5039", Glyph: "倹"},
}

// Catalog is immutable once built and safe to share between goroutines.
type Catalog struct {
	entries []Entry
	index   map[string]int
}

// Build concatenates overrides after base. The class index of an entry is its
// position in the concatenated list. If a code point appears more than once,
// the last occurrence wins for lookups by code point.
func Build(base, overrides []Entry) *Catalog {
	entries := make([]Entry, 0, len(base)+len(overrides))
	entries = append(entries, base...)
	entries = append(entries, overrides...)

	index := make(map[string]int, len(entries))
	for i, e := range entries {
		index[e.CodePoint] = i
	}
	return &Catalog{entries: entries, index: index}
}

// Load reads the base table from path and appends Forgotten
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	base, err := ReadBase(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Build(base, Forgotten), nil
}

// ReadBase parses a CSV table with "Unicode" and "char" columns
func ReadBase(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	cpCol, glyphCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF")) {
		case "Unicode":
			cpCol = i
		case "char":
			glyphCol = i
		}
	}
	if cpCol < 0 || glyphCol < 0 {
		return nil, fmt.Errorf("header must contain Unicode and char columns, got %v", header)
	}

	var entries []Entry
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		entries = append(entries, Entry{CodePoint: row[cpCol], Glyph: row[glyphCol]})
	}
	return entries, nil
}

// ClassOf returns the class index of a code point
func (c *Catalog) ClassOf(codePoint string) (int, error) {
	idx, ok := c.index[codePoint]
	if !ok {
		return 0, &UnknownCodePointError{CodePoint: codePoint}
	}
	return idx, nil
}

// Glyph returns the character for a class index
func (c *Catalog) Glyph(class int) (string, error) {
	if class < 0 || class >= len(c.entries) {
		return "", fmt.Errorf("%w: %d", ErrUnknownClass, class)
	}
	return c.entries[class].Glyph, nil
}

// CodePoint returns the code point for a class index
func (c *Catalog) CodePoint(class int) (string, error) {
	if class < 0 || class >= len(c.entries) {
		return "", fmt.Errorf("%w: %d", ErrUnknownClass, class)
	}
	return c.entries[class].CodePoint, nil
}

// Len is the number of classes
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Entries returns a copy of all entries in class order
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}
