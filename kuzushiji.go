// Package kuzushiji prepares the Kuzushiji character detection dataset for
// training. It ties together the character catalog, the annotation loader,
// the random crop dataset and the preview renderer.
package kuzushiji

import (
	"fmt"
	"math/rand/v2"
	"path/filepath"

	"github.com/cyclopcam/logs"

	"github.com/menta2k/kuzushiji-dataset/internal/config"
	"github.com/menta2k/kuzushiji-dataset/internal/utils"
	"github.com/menta2k/kuzushiji-dataset/pkg/analyzer"
	"github.com/menta2k/kuzushiji-dataset/pkg/annotations"
	"github.com/menta2k/kuzushiji-dataset/pkg/augment"
	"github.com/menta2k/kuzushiji-dataset/pkg/catalog"
	"github.com/menta2k/kuzushiji-dataset/pkg/dataset"
	"github.com/menta2k/kuzushiji-dataset/pkg/overlay"
	"github.com/menta2k/kuzushiji-dataset/pkg/processing"
)

// Version of the pipeline
const Version = "1.0.0"

// Config is the pipeline configuration
type Config = config.Config

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return config.Default()
}

// Pipeline is the main entry point for dataset preparation
type Pipeline struct {
	config    *Config
	log       logs.Log
	catalog   *catalog.Catalog
	loader    *annotations.Loader
	drawer    *overlay.Drawer
	processor *processing.Processor
}

// New validates cfg, loads the catalog and builds the loader and overlay
// renderer. log may be nil.
func New(cfg *Config, log logs.Log) (*Pipeline, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	root := cfg.Paths.Annotations.Root
	if root != "" && !utils.DirExists(root) {
		return nil, fmt.Errorf("dataset root %s is not a directory", root)
	}
	filter, err := processing.ParseFilter(cfg.Dataset.Filter)
	if err != nil {
		return nil, err
	}

	catalogPath := cfg.Paths.Catalog
	if root != "" && !filepath.IsAbs(catalogPath) {
		catalogPath = filepath.Join(root, catalogPath)
	}
	cat, err := catalog.Load(catalogPath)
	if err != nil {
		return nil, err
	}
	if log != nil {
		log.Infof("Loaded catalog with %v classes", cat.Len())
	}

	drawer, err := overlay.New(cat, cfg.Overlay)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		config:    cfg,
		log:       log,
		catalog:   cat,
		loader:    annotations.NewLoader(cfg.Paths.Annotations, cat, log),
		drawer:    drawer,
		processor: processing.NewProcessorWithFilter(filter),
	}, nil
}

// Catalog returns the character catalog
func (p *Pipeline) Catalog() *catalog.Catalog {
	return p.catalog
}

// Loader returns the annotation loader
func (p *Pipeline) Loader() *annotations.Loader {
	return p.loader
}

// Dataset loads split and wraps it in a random crop dataset. A non-zero
// dataset seed makes the crops and jitter reproducible.
func (p *Pipeline) Dataset(split annotations.Split) (*dataset.Dataset, error) {
	var rng *rand.Rand
	if seed := p.config.Dataset.Seed; seed != 0 {
		rng = rand.New(rand.NewPCG(seed, seed))
	} else {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	threshold := p.config.Dataset.Threshold
	opts := dataset.Options{
		MaxSize:   p.config.Dataset.MaxSize,
		CropSize:  p.config.Dataset.CropSize,
		Threshold: &threshold,
		Rand:      rng,
		Processor: p.processor,
	}
	if p.config.Dataset.LogCrops {
		opts.Log = p.log
	}
	if j := p.config.Jitter; j.Enabled {
		jitter, err := augment.NewColorJitter(rng, j.Brightness, j.Contrast, j.Saturation, j.Hue)
		if err != nil {
			return nil, err
		}
		opts.Transform = jitter.Transform()
	}

	return dataset.FromSplit(p.loader, split, opts)
}

// Preview draws sample idx of ds with its boxes and glyphs and writes it to
// outDir. It returns the written path.
func (p *Pipeline) Preview(ds *dataset.Dataset, idx int, outDir string) (string, error) {
	rec, err := ds.Record(idx)
	if err != nil {
		return "", err
	}
	sample, err := ds.Get(idx)
	if err != nil {
		return "", err
	}

	img, err := p.drawer.Draw(sample.Image, sample.Boxes, sample.Labels)
	if err != nil {
		return "", fmt.Errorf("failed to draw %s: %w", rec.ID, err)
	}

	if err := utils.EnsureDir(outDir); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	out := p.config.Output
	path := utils.GenerateOutputFilename(rec.ID, outDir, out.Prefix, out.Suffix, out.Format)
	if err := p.processor.SaveImage(img, path, out.Format, out.Quality, out.Lossless); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", path, err)
	}

	if p.log != nil {
		p.log.Infof("Wrote %v (%v boxes)", path, len(sample.Boxes))
	}
	return path, nil
}

// Summarize loads split and collects its annotation statistics
func (p *Pipeline) Summarize(split annotations.Split) (analyzer.Summary, error) {
	records, err := p.loader.LoadSplit(split)
	if err != nil {
		return analyzer.Summary{}, err
	}
	return analyzer.Summarize(records), nil
}
