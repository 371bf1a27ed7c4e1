// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package config defines the YAML configuration of an image dataset: where the data is, how it is
// labeled and split, how it's balanced, transformed, resized and batched.
//
// Example:
//
//	root: ~/data/cells
//	source: folders
//	folders:
//	  train: train
//	  valid: valid
//	class_rule:
//	  separator: "_"
//	  segment: 1
//	balance: adjusted
//	loader:
//	  batch_size: 32
package config

import (
	"os"
	"path/filepath"

	"github.com/gomlx/imagedata/pkg/data/bundle"
	"github.com/gomlx/imagedata/pkg/data/dataerrors"
	"github.com/gomlx/imagedata/pkg/data/images"
	"github.com/gomlx/imagedata/pkg/data/index"
	"github.com/gomlx/imagedata/pkg/data/labels"
	"github.com/gomlx/imagedata/pkg/data/split"
	"github.com/gomlx/imagedata/pkg/data/transforms"
	"github.com/gomlx/imagedata/pkg/data/weights"
	"github.com/gomlx/imagedata/pkg/support/fsutil"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Sources of the labels.
const (
	SourceFolders = "folders"
	SourceCSV     = "csv"
)

// Config of a dataset. Use Default for a populated default, and Validate before use.
type Config struct {
	// Root directory of the data. A leading "~" is expanded to the home directory.
	Root string `yaml:"root"`

	// Source is either "folders" (labels are sub-folder names) or "csv" (labels in a manifest).
	Source string `yaml:"source"`

	Folders    Folders    `yaml:"folders"`
	CSV        CSV        `yaml:"csv"`
	ClassRule  ClassRule  `yaml:"class_rule"`
	Balance    string     `yaml:"balance"`
	Loader     Loader     `yaml:"loader"`
	Transforms Transforms `yaml:"transforms"`
	Resize     Resize     `yaml:"resize"`
}

// Folders configures the "folders" source.
type Folders struct {
	Train          string `yaml:"train"`
	Valid          string `yaml:"valid"`
	Test           string `yaml:"test,omitempty"`
	TestWithLabels bool   `yaml:"test_with_labels,omitempty"`
}

// CSV configures the "csv" source.
type CSV struct {
	File              string  `yaml:"file"`
	Folder            string  `yaml:"folder"`
	SkipHeader        bool    `yaml:"skip_header"`
	Delimiter         string  `yaml:"delimiter"`
	CategorySeparator string  `yaml:"category_separator"`
	Suffix            string  `yaml:"suffix,omitempty"`
	Continuous        bool    `yaml:"continuous,omitempty"`
	ValPct            float64 `yaml:"val_pct"`
	CVIdx             int     `yaml:"cv_idx"`
	Seed              int64   `yaml:"seed"`
	Test              string  `yaml:"test,omitempty"`
}

// ClassRule derives the class of a label folder from one of its Separator separated segments.
// A negative Segment uses the whole folder name.
type ClassRule struct {
	Separator string `yaml:"separator"`
	Segment   int    `yaml:"segment"`
}

// Loader configures the batching.
type Loader struct {
	BatchSize int   `yaml:"batch_size"`
	Workers   int   `yaml:"workers"`
	Seed      int64 `yaml:"seed"`
}

// Transforms configures the transform pipelines: images are scaled and center cropped to Size
// (if > 0), randomly flipped when training, and normalized if Mean and Std are given.
type Transforms struct {
	Size     int       `yaml:"size"`
	FlipProb float64   `yaml:"flip_prob"`
	Mean     []float32 `yaml:"mean,omitempty,flow"`
	Std      []float32 `yaml:"std,omitempty,flow"`
}

// Resize configures the resized images cache. A Target of 0 disables it.
type Resize struct {
	Target  int    `yaml:"target"`
	Cache   string `yaml:"cache"`
	Workers int    `yaml:"workers"`
}

// Default returns the default configuration, reading folders "train" and "valid" under the current directory.
func Default() *Config {
	csvOpts := index.DefaultCSVOptions()
	return &Config{
		Root:   ".",
		Source: SourceFolders,
		Folders: Folders{
			Train: "train",
			Valid: "valid",
		},
		CSV: CSV{
			File:              "labels.csv",
			Folder:            "train",
			SkipHeader:        csvOpts.SkipHeader,
			Delimiter:         string(csvOpts.Delimiter),
			CategorySeparator: csvOpts.CategorySeparator,
			ValPct:            split.DefaultValPct,
			Seed:              split.DefaultSeed,
		},
		ClassRule: ClassRule{Separator: "_", Segment: 1},
		Balance:   weights.None.String(),
		Loader:    Loader{BatchSize: 64, Workers: 8, Seed: 42},
		Transforms: Transforms{
			FlipProb: 0.5,
		},
		Resize: Resize{Cache: "tmp"},
	}
}

// Load reads the configuration at filePath, on top of the Default one, and validates it.
func Load(fs afero.Fs, filePath string) (*Config, error) {
	contents, err := afero.ReadFile(fs, filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, dataerrors.NotFoundf("configuration file %q", filePath)
		}
		return nil, errors.Wrapf(err, "failed to read configuration %q", filePath)
	}
	c := Default()
	if err = yaml.Unmarshal(contents, c); err != nil {
		return nil, dataerrors.Configurationf("parsing %q: %v", filePath, err)
	}
	if err = c.Validate(); err != nil {
		return nil, errors.WithMessagef(err, "configuration %q", filePath)
	}
	return c, nil
}

// Save writes the configuration to filePath in YAML.
func (c *Config) Save(fs afero.Fs, filePath string) error {
	contents, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to serialize configuration")
	}
	if dir := filepath.Dir(filePath); dir != "." {
		if err = fs.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "failed to create directory for %q", filePath)
		}
	}
	return errors.Wrapf(afero.WriteFile(fs, filePath, contents, 0644), "failed to write configuration %q", filePath)
}

// Validate returns an error of kind dataerrors.ErrConfiguration describing the first invalid value.
func (c *Config) Validate() error {
	if c.Root == "" {
		return dataerrors.Configurationf("root directory not set")
	}
	relative := func(name, value string) error {
		if filepath.IsAbs(value) {
			return dataerrors.Configurationf("%s %q must be relative to the root", name, value)
		}
		return nil
	}
	switch c.Source {
	case SourceFolders:
		if c.Folders.Train == "" || c.Folders.Valid == "" {
			return dataerrors.Configurationf("folders.train and folders.valid are required")
		}
		for name, value := range map[string]string{
			"folders.train": c.Folders.Train, "folders.valid": c.Folders.Valid, "folders.test": c.Folders.Test} {
			if err := relative(name, value); err != nil {
				return err
			}
		}
	case SourceCSV:
		if c.CSV.File == "" {
			return dataerrors.Configurationf("csv.file is required")
		}
		if err := relative("csv.folder", c.CSV.Folder); err != nil {
			return err
		}
		if len([]rune(c.CSV.Delimiter)) != 1 {
			return dataerrors.Configurationf("csv.delimiter must be a single character, got %q", c.CSV.Delimiter)
		}
		if c.CSV.ValPct <= 0 || c.CSV.ValPct >= 1 {
			return dataerrors.Configurationf("csv.val_pct must be in (0, 1), got %g", c.CSV.ValPct)
		}
		if c.CSV.CVIdx < 0 {
			return dataerrors.Configurationf("csv.cv_idx must be >= 0, got %d", c.CSV.CVIdx)
		}
	default:
		return dataerrors.Configurationf("unknown source %q, valid values are %q or %q", c.Source, SourceFolders, SourceCSV)
	}
	if _, err := weights.ParseMode(c.Balance); err != nil {
		return err
	}
	if c.Loader.BatchSize <= 0 {
		return dataerrors.Configurationf("loader.batch_size must be > 0, got %d", c.Loader.BatchSize)
	}
	if c.Transforms.Size < 0 {
		return dataerrors.Configurationf("transforms.size must be >= 0, got %d", c.Transforms.Size)
	}
	if c.Transforms.FlipProb < 0 || c.Transforms.FlipProb > 1 {
		return dataerrors.Configurationf("transforms.flip_prob must be in [0, 1], got %g", c.Transforms.FlipProb)
	}
	if len(c.Transforms.Mean) != len(c.Transforms.Std) {
		return dataerrors.Configurationf("transforms.mean and transforms.std must have the same length")
	}
	if c.Resize.Target < 0 {
		return dataerrors.Configurationf("resize.target must be >= 0, got %d", c.Resize.Target)
	}
	if c.Resize.Target > 0 {
		if err := relative("resize.cache", c.Resize.Cache); err != nil {
			return err
		}
	}
	return nil
}

// ExpandedRoot returns Root with a leading "~" replaced by the home directory.
func (c *Config) ExpandedRoot() (string, error) {
	return fsutil.ReplaceTildeInDir(c.Root)
}

// Rule returns the label to class rule.
func (c *Config) Rule() labels.Rule {
	if c.ClassRule.Segment < 0 {
		return labels.Identity
	}
	return labels.SplitSegment(c.ClassRule.Separator, c.ClassRule.Segment)
}

// BundleOptions returns the loaders and balancing options.
func (c *Config) BundleOptions() (bundle.Options, error) {
	mode, err := weights.ParseMode(c.Balance)
	if err != nil {
		return bundle.Options{}, err
	}
	return bundle.Options{
		BatchSize: c.Loader.BatchSize,
		Workers:   c.Loader.Workers,
		Seed:      c.Loader.Seed,
		Balance:   mode,
	}, nil
}

// FolderOptions returns the options of the "folders" source.
func (c *Config) FolderOptions() bundle.FolderOptions {
	return bundle.FolderOptions{
		Train:          c.Folders.Train,
		Valid:          c.Folders.Valid,
		Test:           c.Folders.Test,
		TestWithLabels: c.Folders.TestWithLabels,
		Rule:           c.Rule(),
	}
}

// CSVOptions returns the options of the "csv" source.
func (c *Config) CSVOptions() bundle.CSVOptions {
	csvOpts := bundle.DefaultCSVOptions()
	csvOpts.Folder = c.CSV.Folder
	csvOpts.File = c.CSV.File
	csvOpts.Parse.SkipHeader = c.CSV.SkipHeader
	if runes := []rune(c.CSV.Delimiter); len(runes) == 1 {
		csvOpts.Parse.Delimiter = runes[0]
	}
	csvOpts.Parse.CategorySeparator = c.CSV.CategorySeparator
	csvOpts.Suffix = c.CSV.Suffix
	csvOpts.Continuous = c.CSV.Continuous
	csvOpts.ValPct = c.CSV.ValPct
	csvOpts.CVIdx = c.CSV.CVIdx
	csvOpts.Seed = c.CSV.Seed
	csvOpts.Test = c.CSV.Test
	return csvOpts
}

// TransformSet builds the train and eval pipelines.
func (c *Config) TransformSet() (transforms.Set, error) {
	var geometry []transforms.Transform
	if size := c.Transforms.Size; size > 0 {
		geometry = append(geometry, transforms.Scale(size), transforms.CenterCrop(size))
	}
	var normalize []transforms.Transform
	if len(c.Transforms.Mean) > 0 {
		norm, err := transforms.NewNormalize(c.Transforms.Mean, c.Transforms.Std)
		if err != nil {
			return transforms.Set{}, err
		}
		normalize = append(normalize, norm)
	}
	trainSteps := append([]transforms.Transform{}, geometry...)
	if c.Transforms.FlipProb > 0 {
		trainSteps = append(trainSteps, transforms.FlipHorizontal(c.Transforms.FlipProb, c.Loader.Seed))
	}
	trainSteps = append(trainSteps, normalize...)
	evalSteps := append(append([]transforms.Transform{}, geometry...), normalize...)
	return transforms.NewSet(
		transforms.NewPipeline(c.Transforms.Size, trainSteps...),
		transforms.NewPipeline(c.Transforms.Size, evalSteps...))
}

// Open reads the dataset described by the configuration into a Bundle.
//
// If resizing is configured, the returned Bundle reads from the resized images; resizing progress
// is reported to progress, if not nil.
func (c *Config) Open(fs afero.Fs, progress func(done int)) (*bundle.Bundle, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	root, err := c.ExpandedRoot()
	if err != nil {
		return nil, err
	}
	opts, err := c.BundleOptions()
	if err != nil {
		return nil, err
	}
	tfms, err := c.TransformSet()
	if err != nil {
		return nil, err
	}
	var b *bundle.Bundle
	if c.Source == SourceCSV {
		b, err = bundle.FromCSV(fs, root, c.CSVOptions(), tfms, opts)
	} else {
		var builder *bundle.Builder
		builder, err = bundle.FromFolders(fs, root, c.FolderOptions(), opts)
		if err == nil {
			b, err = builder.Build(tfms)
		}
	}
	if err != nil {
		return nil, err
	}
	if c.Resize.Target > 0 {
		return b.Resize(c.Resize.Target, c.Resize.Cache, images.ResizeOptions{Workers: c.Resize.Workers, Progress: progress})
	}
	return b, nil
}
