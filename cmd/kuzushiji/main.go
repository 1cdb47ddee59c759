package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"

	kuzushiji "github.com/menta2k/kuzushiji-dataset"
	"github.com/menta2k/kuzushiji-dataset/internal/config"
	"github.com/menta2k/kuzushiji-dataset/internal/utils"
	"github.com/menta2k/kuzushiji-dataset/pkg/annotations"
)

func check(log logs.Log, err error) {
	if err != nil {
		log.Criticalf("%v", err)
		log.Close()
		os.Exit(1)
	}
}

// loadConfig reads path if given, then the per-user config if it exists,
// falling back to defaults
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	if p := config.GetConfigPath(); utils.FileExists(p) {
		return config.LoadFromFile(p)
	}
	return config.Default(), nil
}

func main() {
	parser := argparse.NewParser("kuzushiji", "Kuzushiji character detection dataset tools")
	configFile := parser.String("c", "config", &argparse.Options{Help: "Config file path (defaults to the per-user config)", Default: ""})
	root := parser.String("r", "root", &argparse.Options{Help: "Dataset root directory, overrides the config", Default: ""})
	verbose := parser.Flag("v", "verbose", &argparse.Options{Help: "Log every crop window", Default: false})

	previewCmd := parser.NewCommand("preview", "Write random training crops with their boxes and glyphs drawn on top")
	previewSplit := previewCmd.String("s", "split", &argparse.Options{Help: "Split to sample: train or test", Default: string(annotations.Train)})
	previewCount := previewCmd.Int("n", "count", &argparse.Options{Help: "Number of images to preview", Default: 4})
	previewOut := previewCmd.String("o", "out", &argparse.Options{Help: "Output directory, overrides the config", Default: ""})
	previewSeed := previewCmd.Int("", "seed", &argparse.Options{Help: "Random seed, 0 for a random one", Default: 0})

	statsCmd := parser.NewCommand("stats", "Print annotation statistics for a split")
	statsSplit := statsCmd.String("s", "split", &argparse.Options{Help: "Split to summarise: train or test", Default: string(annotations.Train)})
	statsTop := statsCmd.Int("t", "top", &argparse.Options{Help: "Number of most frequent classes to list", Default: 10})
	statsJSON := statsCmd.Flag("j", "json", &argparse.Options{Help: "Print the summary as JSON", Default: false})

	configCmd := parser.NewCommand("config", "Write the effective configuration to a file")
	configWrite := configCmd.String("w", "write", &argparse.Options{Help: "Destination path (defaults to the per-user config)", Default: ""})

	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	log, err := logs.NewLog()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()
	log.Infof("kuzushiji %v", kuzushiji.Version)

	cfg, err := loadConfig(*configFile)
	check(log, err)
	if *root != "" {
		cfg.Paths.Annotations.Root = *root
	}

	switch {
	case configCmd.Happened():
		dest := *configWrite
		if dest == "" {
			dest = config.GetConfigPath()
		}
		check(log, cfg.Validate())
		check(log, cfg.SaveToFile(dest))
		log.Infof("Wrote config to %v", dest)

	case previewCmd.Happened():
		if *previewSeed != 0 {
			cfg.Dataset.Seed = uint64(*previewSeed)
		}
		if *previewOut != "" {
			cfg.Output.Dir = *previewOut
		}
		if *verbose {
			cfg.Dataset.LogCrops = true
		}
		pipeline, err := kuzushiji.New(cfg, log)
		check(log, err)
		ds, err := pipeline.Dataset(annotations.Split(*previewSplit))
		check(log, err)

		n := min(*previewCount, ds.Len())
		for i := 0; i < n; i++ {
			path, err := pipeline.Preview(ds, i, cfg.Output.Dir)
			check(log, err)
			fmt.Println(path)
		}
		log.Infof("Wrote %v previews to %v", n, cfg.Output.Dir)

	case statsCmd.Happened():
		pipeline, err := kuzushiji.New(cfg, log)
		check(log, err)
		summary, err := pipeline.Summarize(annotations.Split(*statsSplit))
		check(log, err)

		if *statsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			check(log, enc.Encode(summary))
			return
		}

		fmt.Printf("Images:          %d (%d without boxes)\n", summary.Images, summary.EmptyImages)
		fmt.Printf("Boxes:           %d\n", summary.Boxes)
		fmt.Printf("Boxes per image: mean %.1f, std %.1f, median %.0f, max %.0f\n",
			summary.BoxesPerImage.Mean, summary.BoxesPerImage.StdDev, summary.BoxesPerImage.Median, summary.BoxesPerImage.Max)
		fmt.Printf("Box width:       mean %.1f, std %.1f, median %.0f\n",
			summary.BoxWidth.Mean, summary.BoxWidth.StdDev, summary.BoxWidth.Median)
		fmt.Printf("Box height:      mean %.1f, std %.1f, median %.0f\n",
			summary.BoxHeight.Mean, summary.BoxHeight.StdDev, summary.BoxHeight.Median)
		fmt.Printf("Classes used:    %d of %d\n", len(summary.ClassCounts), pipeline.Catalog().Len())
		for _, c := range summary.TopClasses(*statsTop) {
			glyph, err := pipeline.Catalog().Glyph(c.Class)
			check(log, err)
			cp, err := pipeline.Catalog().CodePoint(c.Class)
			check(log, err)
			fmt.Printf("  %-8s %s %6d\n", cp, glyph, c.Count)
		}
	}
}
