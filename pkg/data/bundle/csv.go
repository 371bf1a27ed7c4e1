// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package bundle

import (
	"path"
	"path/filepath"

	"github.com/gomlx/imagedata/pkg/data/dataerrors"
	"github.com/gomlx/imagedata/pkg/data/dataset"
	"github.com/gomlx/imagedata/pkg/data/index"
	"github.com/gomlx/imagedata/pkg/data/labels"
	"github.com/gomlx/imagedata/pkg/data/split"
	"github.com/gomlx/imagedata/pkg/data/transforms"
	"github.com/gomlx/imagedata/pkg/support/xslices"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// CSVOptions configures FromCSV.
type CSVOptions struct {
	// Folder with the images, relative to the root. Filenames in the manifest are relative to it.
	Folder string

	// File is the manifest, relative to the root unless absolute.
	File string

	// Parse configures the manifest format.
	Parse index.CSVOptions

	// Suffix appended to each filename of the manifest, e.g. ".png" if it lists names without extension.
	Suffix string

	// Continuous parses the labels as floats, for regression.
	Continuous bool

	// ValIdxs are the manifest positions (in sorted filename order) used for validation. If nil,
	// they're selected with split.CVIndices(n, CVIdx, ValPct, Seed).
	ValIdxs []int
	CVIdx   int
	ValPct  float64
	Seed    int64

	// Test is the optional folder with unlabeled test images.
	Test string
}

// DefaultCSVOptions returns the default manifest format, with 20% of the samples used for validation.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		Parse:  index.DefaultCSVOptions(),
		ValPct: split.DefaultValPct,
		Seed:   split.DefaultSeed,
	}
}

// FromCSV creates a Bundle from a folder of images and a manifest with the labels of each file.
//
// Both the train and eval transforms are required, and the image folder must be relative: otherwise
// an error of kind dataerrors.ErrConfiguration is returned.
//
// Filenames with a single label each produce a single-label dataset, otherwise a multi-label one
// (or a regression one if Continuous is set).
func FromCSV(fs afero.Fs, root string, csvOpts CSVOptions, tfms transforms.Set, opts Options) (*Bundle, error) {
	if err := tfms.Validate(); err != nil {
		return nil, err
	}
	if filepath.IsAbs(csvOpts.Folder) {
		return nil, dataerrors.Configurationf("image folder %q must be relative to the root", csvOpts.Folder)
	}
	csvPath := csvOpts.File
	if !filepath.IsAbs(csvPath) {
		csvPath = path.Join(root, csvPath)
	}
	manifest, err := index.ParseCSVLabels(fs, csvPath, csvOpts.Parse)
	if err != nil {
		return nil, err
	}
	fnames, lbls, classes, err := labels.DictSource(csvOpts.Folder, manifest.Filenames, manifest.Labels,
		csvOpts.Suffix, csvOpts.Continuous)
	if err != nil {
		return nil, errors.WithMessagef(err, "labels of %q", csvPath)
	}
	valIdxs := csvOpts.ValIdxs
	if valIdxs == nil {
		valIdxs, err = split.CVIndices(len(fnames), csvOpts.CVIdx, csvOpts.ValPct, csvOpts.Seed)
		if err != nil {
			return nil, err
		}
	}
	return FromNamesAndLabels(fs, root, fnames, lbls, classes, valIdxs, csvOpts.Test, tfms, opts)
}

// FromNamesAndLabels creates a Bundle from the files root/fnames[i] labeled lbls, splitting the samples
// at the positions valIdxs for validation. If valIdxs is nil, split.CVIndices defaults are used.
//
// If testFolder is given, its files are listed and labeled with zeros.
func FromNamesAndLabels(fs afero.Fs, root string, fnames []string, lbls *labels.Array, classes []string,
	valIdxs []int, testFolder string, tfms transforms.Set, opts Options) (*Bundle, error) {
	if lbls == nil || lbls.Len() != len(fnames) {
		return nil, dataerrors.Configurationf("%d filenames must have as many labels", len(fnames))
	}
	if valIdxs == nil {
		var err error
		valIdxs, err = split.CVIndices(len(fnames), 0, split.DefaultValPct, split.DefaultSeed)
		if err != nil {
			return nil, err
		}
	}
	all, err := dataset.NewFileSamples(fs, root, fnames, lbls, nil)
	if err != nil {
		return nil, err
	}
	splits, err := splitSamples(all, valIdxs)
	if err != nil {
		return nil, err
	}
	if testFolder != "" {
		splits.Test, err = unlabeledSamples(fs, root, testFolder, splits.Train)
		if err != nil {
			return nil, errors.WithMessage(err, "reading test split")
		}
	}
	return New(root, splits, classes, tfms, opts)
}

// splitSamples separates the validation samples at valIdxs from the training ones, preserving
// their relative order.
func splitSamples(all *dataset.Samples, valIdxs []int) (Splits, error) {
	validIdxs, trainIdxs, err := split.ByIndex(valIdxs, xslices.Iota(0, all.Len()))
	if err != nil {
		return Splits{}, err
	}
	var splits Splits
	if splits.Train, err = all.Subset(trainIdxs); err != nil {
		return Splits{}, err
	}
	if splits.Valid, err = all.Subset(validIdxs); err != nil {
		return Splits{}, err
	}
	return splits, nil
}
