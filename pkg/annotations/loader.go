// Package annotations reads the per-image label tables of the dataset into
// ImageRecords.
//
// A training row looks like
//
//	image_id,labels
//	100241706_00004_2,U+306F 1231 3465 133 53 U+304C 275 1652 84 69 ...
//
// where labels is a flat, whitespace separated list of (code point, x, y, w, h)
// groups. Test rows carry no labels, only a free-text usage tag.
package annotations

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cyclopcam/logs"

	"github.com/menta2k/kuzushiji-dataset/internal/utils"
	"github.com/menta2k/kuzushiji-dataset/pkg/catalog"
	"github.com/menta2k/kuzushiji-dataset/pkg/types"
)

// Split names one of the annotation tables
type Split string

const (
	Train Split = "train"
	Test  Split = "test"
)

var (
	ErrUnknownSplit    = errors.New("unknown split")
	ErrMalformedLabels = errors.New("malformed label string")
	ErrMissingColumn   = errors.New("missing column")
)

// groupSize is the number of tokens per box: code point, x, y, w, h
const groupSize = 5

// Config locates the annotation tables and image directories. Relative
// paths are resolved against Root.
type Config struct {
	Root        string `json:"root"`
	TrainCSV    string `json:"train_csv"`
	TestCSV     string `json:"test_csv"`
	TrainDir    string `json:"train_dir"`
	TestDir     string `json:"test_dir"`
	ImageExt    string `json:"image_ext"`
	UsageColumn string `json:"usage_column"`
}

// DefaultConfig returns the layout of the published dataset
func DefaultConfig() Config {
	return Config{
		Root:        ".",
		TrainCSV:    "train.csv",
		TestCSV:     "sample_submission.csv",
		TrainDir:    "data/train",
		TestDir:     "data/test",
		ImageExt:    ".jpg",
		UsageColumn: "Usage",
	}
}

// Loader turns annotation tables into records
type Loader struct {
	config  Config
	catalog *catalog.Catalog
	log     logs.Log
}

// NewLoader creates a loader. log may be nil.
func NewLoader(config Config, cat *catalog.Catalog, log logs.Log) *Loader {
	return &Loader{config: config, catalog: cat, log: log}
}

// Catalog returns the catalog used to translate code points
func (l *Loader) Catalog() *catalog.Catalog {
	return l.catalog
}

func (l *Loader) resolve(p string) string {
	if filepath.IsAbs(p) || l.config.Root == "" {
		return p
	}
	return filepath.Join(l.config.Root, p)
}

// LoadSplit reads every row of the split's table. Any malformed row aborts the
// whole split.
func (l *Loader) LoadSplit(split Split) ([]types.ImageRecord, error) {
	var csvPath, imageDir string
	switch split {
	case Train:
		csvPath, imageDir = l.config.TrainCSV, l.config.TrainDir
	case Test:
		csvPath, imageDir = l.config.TestCSV, l.config.TestDir
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSplit, split)
	}

	f, err := os.Open(l.resolve(csvPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s annotations: %w", split, err)
	}
	defer f.Close()

	records, err := l.Read(f, split, l.resolve(imageDir))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s split: %w", split, err)
	}

	if l.log != nil {
		nBoxes := 0
		for _, r := range records {
			nBoxes += len(r.Boxes)
		}
		l.log.Infof("Loaded %v split: %v images, %v boxes", split, len(records), nBoxes)
	}
	return records, nil
}

// Read parses an annotation table from r. imageDir is joined with each row's
// image_id to form the record's file path.
func (l *Loader) Read(r io.Reader, split Split, imageDir string) ([]types.ImageRecord, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF"))] = i
	}

	idCol, ok := cols["image_id"]
	if !ok {
		return nil, fmt.Errorf("%w: image_id", ErrMissingColumn)
	}
	var dataCol int
	switch split {
	case Train:
		if dataCol, ok = cols["labels"]; !ok {
			return nil, fmt.Errorf("%w: labels", ErrMissingColumn)
		}
	case Test:
		if dataCol, ok = cols[l.config.UsageColumn]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, l.config.UsageColumn)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSplit, split)
	}

	var records []types.ImageRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		id := row[idCol]
		rec := types.ImageRecord{
			ID:     id,
			File:   utils.ImagePath(imageDir, id, l.config.ImageExt),
			Boxes:  []types.BoundingBox{},
			Labels: []int{},
		}
		if split == Train {
			rec.Boxes, rec.Labels, err = ParseLabels(row[dataCol], l.catalog)
			if err != nil {
				return nil, fmt.Errorf("line %d (%s): %w", line, id, err)
			}
		} else {
			rec.Usage = row[dataCol]
		}
		records = append(records, rec)
	}
	return records, nil
}

// ParseLabels splits a label string into boxes and class indices
func ParseLabels(s string, cat *catalog.Catalog) ([]types.BoundingBox, []int, error) {
	tokens := strings.Fields(s)
	if len(tokens)%groupSize != 0 {
		return nil, nil, fmt.Errorf("%w: %d tokens is not a multiple of %d", ErrMalformedLabels, len(tokens), groupSize)
	}

	n := len(tokens) / groupSize
	boxes := make([]types.BoundingBox, 0, n)
	labels := make([]int, 0, n)
	for i := 0; i < n; i++ {
		g := tokens[i*groupSize : (i+1)*groupSize]
		class, err := cat.ClassOf(g[0])
		if err != nil {
			return nil, nil, fmt.Errorf("box %d: %w", i, err)
		}
		var v [4]int
		for j := range v {
			v[j], err = strconv.Atoi(g[j+1])
			if err != nil {
				return nil, nil, fmt.Errorf("%w: box %d: %v", ErrMalformedLabels, i, err)
			}
		}
		if v[2] < 0 || v[3] < 0 {
			return nil, nil, fmt.Errorf("%w: box %d has negative size %dx%d", ErrMalformedLabels, i, v[2], v[3])
		}
		boxes = append(boxes, types.BoundingBox{X: v[0], Y: v[1], W: v[2], H: v[3]})
		labels = append(labels, class)
	}
	return boxes, labels, nil
}
