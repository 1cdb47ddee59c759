package kuzushiji

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/disintegration/imaging"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/kuzushiji-dataset/pkg/annotations"
)

// createTestImage creates a page with dark strokes on a light background
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if (x/10)%3 == 0 && (y/10)%2 == 0 {
				img.Set(x, y, color.RGBA{30, 30, 30, 255})
			} else {
				img.Set(x, y, color.RGBA{230, 220, 200, 255})
			}
		}
	}
	return img
}

// recordingLog keeps every message by level
type recordingLog struct {
	mu    sync.Mutex
	lines map[string][]string
}

func newRecordingLog() *recordingLog {
	return &recordingLog{lines: map[string][]string{}}
}

func (l *recordingLog) add(level, format string, a ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines[level] = append(l.lines[level], fmt.Sprintf(format, a...))
}

func (l *recordingLog) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lines[level])
}

func (l *recordingLog) Close()                                    {}
func (l *recordingLog) Debugf(format string, a ...interface{})    { l.add("debug", format, a...) }
func (l *recordingLog) Infof(format string, a ...interface{})     { l.add("info", format, a...) }
func (l *recordingLog) Warnf(format string, a ...interface{})     { l.add("warn", format, a...) }
func (l *recordingLog) Errorf(format string, a ...interface{})    { l.add("error", format, a...) }
func (l *recordingLog) Criticalf(format string, a ...interface{}) { l.add("critical", format, a...) }

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// setupDataset lays out a miniature copy of the published dataset in a
// temporary directory and returns a matching config.
func setupDataset(t *testing.T) *Config {
	t.Helper()
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "unicode_translation.csv"), "Unicode,char\nU+0041,A\nU+0042,B\n")
	writeFile(t, filepath.Join(root, "train.csv"),
		"image_id,labels\nimg1,U+0041 10 10 40 40 U+0042 100 60 30 30\nimg2,\n")
	writeFile(t, filepath.Join(root, "sample_submission.csv"), "image_id,Usage\nimg3,Public\n")

	for _, p := range []string{"data/train/img1.png", "data/train/img2.png", "data/test/img3.png"} {
		path := filepath.Join(root, p)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, imaging.Save(createTestImage(200, 150), path))
	}

	cfg := DefaultConfig()
	cfg.Paths.Annotations.Root = root
	cfg.Paths.Annotations.ImageExt = ".png"
	cfg.Dataset.MaxSize = 100
	cfg.Dataset.CropSize.W = 64
	cfg.Dataset.CropSize.H = 64
	cfg.Dataset.Seed = 7
	cfg.Output.Dir = filepath.Join(root, "preview")
	return cfg
}

func TestNew(t *testing.T) {
	p, err := New(setupDataset(t), logs.NewTestingLog(t))
	require.NoError(t, err)
	require.NotNil(t, p.Loader())

	// Two base entries plus the forgotten characters
	require.Equal(t, 8, p.Catalog().Len())
	class, err := p.Catalog().ClassOf("U+0042")
	require.NoError(t, err)
	require.Equal(t, 1, class)
}

func TestNewErrors(t *testing.T) {
	cfg := setupDataset(t)
	cfg.Dataset.Threshold = 2
	_, err := New(cfg, nil)
	require.Error(t, err)

	cfg = setupDataset(t)
	cfg.Paths.Catalog = "missing.csv"
	_, err = New(cfg, nil)
	require.Error(t, err)

	cfg = setupDataset(t)
	cfg.Paths.Annotations.Root = filepath.Join(t.TempDir(), "nowhere")
	_, err = New(cfg, nil)
	require.ErrorContains(t, err, "not a directory")
}

func TestCropLogging(t *testing.T) {
	for _, logCrops := range []bool{false, true} {
		cfg := setupDataset(t)
		cfg.Dataset.LogCrops = logCrops
		log := newRecordingLog()

		p, err := New(cfg, log)
		require.NoError(t, err)
		ds, err := p.Dataset(annotations.Train)
		require.NoError(t, err)
		_, err = p.Preview(ds, 0, cfg.Output.Dir)
		require.NoError(t, err)

		// Catalog, split and preview messages are logged either way
		require.GreaterOrEqual(t, log.count("info"), 3)
		if logCrops {
			require.Equal(t, 1, log.count("debug"))
		} else {
			require.Zero(t, log.count("debug"))
		}
	}
}

func TestZeroThresholdReachesDataset(t *testing.T) {
	cfg := setupDataset(t)
	cfg.Dataset.MaxSize = 0
	cfg.Dataset.CropSize.W = 200
	cfg.Dataset.CropSize.H = 150
	cfg.Dataset.Threshold = 0
	// A quarter of this box lies on the page
	writeFile(t, filepath.Join(cfg.Paths.Annotations.Root, "train.csv"),
		"image_id,labels\nimg1,U+0041 180 10 80 40\n")
	p, err := New(cfg, nil)
	require.NoError(t, err)

	ds, err := p.Dataset(annotations.Train)
	require.NoError(t, err)
	s, err := ds.Get(0)
	require.NoError(t, err)
	require.Equal(t, []int{0}, s.Labels)

	cfg.Dataset.Threshold = 0.5
	p, err = New(cfg, nil)
	require.NoError(t, err)
	ds, err = p.Dataset(annotations.Train)
	require.NoError(t, err)
	s, err = ds.Get(0)
	require.NoError(t, err)
	require.Empty(t, s.Labels)
}

func TestPreview(t *testing.T) {
	cfg := setupDataset(t)
	p, err := New(cfg, logs.NewTestingLog(t))
	require.NoError(t, err)

	ds, err := p.Dataset(annotations.Train)
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())

	path, err := p.Preview(ds, 0, cfg.Output.Dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(cfg.Output.Dir, "img1_preview.png"), path)

	img, err := imaging.Open(path)
	require.NoError(t, err)
	require.Equal(t, 64, img.Bounds().Dx())
	require.Equal(t, 64, img.Bounds().Dy())

	_, err = p.Preview(ds, 5, cfg.Output.Dir)
	require.Error(t, err)
}

func TestPreviewTestSplit(t *testing.T) {
	cfg := setupDataset(t)
	cfg.Output.Format = "jpg"
	p, err := New(cfg, nil)
	require.NoError(t, err)

	ds, err := p.Dataset(annotations.Test)
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())

	path, err := p.Preview(ds, 0, cfg.Output.Dir)
	require.NoError(t, err)
	require.FileExists(t, path)
}

func TestDatasetSeedIsReproducible(t *testing.T) {
	cfg := setupDataset(t)
	p, err := New(cfg, nil)
	require.NoError(t, err)

	a, err := p.Dataset(annotations.Train)
	require.NoError(t, err)
	b, err := p.Dataset(annotations.Train)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		sa, err := a.Get(0)
		require.NoError(t, err)
		sb, err := b.Get(0)
		require.NoError(t, err)
		if diff := cmp.Diff(sa.Boxes, sb.Boxes); diff != "" {
			t.Errorf("draw %d boxes mismatch (-a +b):\n%s", i, diff)
		}
		require.Equal(t, sa.Labels, sb.Labels)
	}
}

func TestDatasetUnknownSplit(t *testing.T) {
	p, err := New(setupDataset(t), nil)
	require.NoError(t, err)

	_, err = p.Dataset(annotations.Split("valid"))
	require.ErrorIs(t, err, annotations.ErrUnknownSplit)
}

func TestSummarize(t *testing.T) {
	p, err := New(setupDataset(t), nil)
	require.NoError(t, err)

	s, err := p.Summarize(annotations.Train)
	require.NoError(t, err)
	require.Equal(t, 2, s.Images)
	require.Equal(t, 2, s.Boxes)
	require.Equal(t, 1, s.EmptyImages)
	require.Equal(t, map[int]int{0: 1, 1: 1}, s.ClassCounts)
}
