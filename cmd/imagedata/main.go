// imagedata inspects and prepares an image classification dataset: it indexes the splits, prints the
// class distribution and balancing weights, and optionally resizes the images into a cache.
//
// Usage:
//
//	imagedata -config data.yaml
//	imagedata -root ~/data/cells -balance adjusted -resize 128 -histogram classes.png
//
// Flags override the values of the configuration file.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gomlx/imagedata/pkg/data/bundle"
	"github.com/gomlx/imagedata/pkg/data/config"
	"github.com/gomlx/imagedata/pkg/data/dataset"
	"github.com/gomlx/imagedata/pkg/data/images"
	"github.com/janpfeifer/must"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"
	"k8s.io/klog/v2"
)

var (
	flagConfig = flag.String("config", "", "YAML configuration file of the dataset. "+
		"If not given, the defaults are used, and can be changed with the flags below.")
	flagSaveConfig = flag.String("save_config", "", "Save the resulting configuration (after flags) to this file.")

	flagRoot      = flag.String("root", "", "Root directory of the dataset.")
	flagSource    = flag.String("source", "", fmt.Sprintf("Source of the labels: %q or %q.", config.SourceFolders, config.SourceCSV))
	flagTrain     = flag.String("train", "", "Folder with the training split.")
	flagValid     = flag.String("valid", "", "Folder with the validation split.")
	flagTest      = flag.String("test", "", "Folder with the test split.")
	flagTestLabel = flag.Bool("test_with_labels", false, "Test folder has label sub-folders.")
	flagCSV       = flag.String("csv", "", "Manifest with the labels, for -source=csv.")
	flagCSVFolder = flag.String("csv_folder", "", "Folder with the images listed in the manifest.")
	flagSuffix    = flag.String("suffix", "", "Suffix appended to the filenames of the manifest.")
	flagBalance   = flag.String("balance", "", "Balancing of the training split: none, weights, adjusted or oversample.")
	flagBatch     = flag.Int("batch", 0, "Batch size.")
	flagWorkers   = flag.Int("workers", 0, "Number of images loaded in parallel.")
	flagSize      = flag.Int("size", 0, "Scale and crop images to this size in the transforms.")

	flagResize    = flag.Int("resize", 0, "If > 0, resize images so their smaller side has this size, into the cache folder.")
	flagCache     = flag.String("cache", "", "Cache folder for resized images, relative to the root.")
	flagHistogram = flag.String("histogram", "", "Plot the class distribution of the splits to this PNG file.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if len(flag.Args()) > 0 {
		klog.Errorf("Unexpected arguments %q. See 'imagedata -help'.", flag.Args())
		os.Exit(1)
	}
	fs := afero.NewOsFs()
	cfg := config.Default()
	if *flagConfig != "" {
		cfg = must.M1(config.Load(fs, *flagConfig))
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		klog.Errorf("Invalid configuration: %v", err)
		os.Exit(1)
	}
	if *flagSaveConfig != "" {
		must.M(cfg.Save(fs, *flagSaveConfig))
	}

	// Resizing is done below, with a progress bar.
	target := cfg.Resize.Target
	cfg.Resize.Target = 0
	b, err := cfg.Open(fs, nil)
	if err != nil {
		klog.Errorf("Failed to read dataset: %+v", err)
		os.Exit(1)
	}
	if target > 0 {
		b = resize(b, target, cfg.Resize)
	}
	report(b)
	if *flagHistogram != "" {
		must.M(writeHistogram(fs, *flagHistogram, b))
		fmt.Printf("Class histogram saved to %q\n", *flagHistogram)
	}
}

// applyFlags overrides the configuration with the flags explicitly set.
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "root":
			cfg.Root = *flagRoot
		case "source":
			cfg.Source = *flagSource
		case "train":
			cfg.Folders.Train = *flagTrain
		case "valid":
			cfg.Folders.Valid = *flagValid
		case "test":
			cfg.Folders.Test = *flagTest
			cfg.CSV.Test = *flagTest
		case "test_with_labels":
			cfg.Folders.TestWithLabels = *flagTestLabel
		case "csv":
			cfg.CSV.File = *flagCSV
		case "csv_folder":
			cfg.CSV.Folder = *flagCSVFolder
		case "suffix":
			cfg.CSV.Suffix = *flagSuffix
		case "balance":
			cfg.Balance = *flagBalance
		case "batch":
			cfg.Loader.BatchSize = *flagBatch
		case "workers":
			cfg.Loader.Workers = *flagWorkers
			cfg.Resize.Workers = *flagWorkers
		case "size":
			cfg.Transforms.Size = *flagSize
		case "resize":
			cfg.Resize.Target = *flagResize
		case "cache":
			cfg.Resize.Cache = *flagCache
		}
	})
}

// resize the bundle images, displaying a progress bar.
func resize(b *bundle.Bundle, target int, cfg config.Resize) *bundle.Bundle {
	var total int
	splits := b.Splits()
	for _, samples := range []*dataset.Samples{splits.Train, splits.Valid, splits.Test} {
		if samples != nil && samples.IsFileBacked() {
			total += samples.Len()
		}
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription(fmt.Sprintf("Resizing to %d", target)),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionSetTheme(progressbar.ThemeUnicode),
	)
	resized, err := b.Resize(target, cfg.Cache, images.ResizeOptions{
		Workers:  cfg.Workers,
		Progress: func(int) { _ = bar.Add(1) },
	})
	_ = bar.Finish()
	fmt.Println()
	if err != nil {
		klog.Errorf("Failed to resize dataset: %v", err)
		os.Exit(1)
	}
	return resized
}
