// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package bundle

import (
	"github.com/gomlx/imagedata/pkg/data/dataset"
	"github.com/gomlx/imagedata/pkg/data/index"
	"github.com/gomlx/imagedata/pkg/data/labels"
	"github.com/gomlx/imagedata/pkg/data/transforms"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// FolderOptions configures FromFolders.
type FolderOptions struct {
	// Train and Valid are the split folders under the root.
	Train, Valid string

	// Test is the optional test folder: empty for no test data.
	Test string

	// TestWithLabels indicates the test folder has label sub-folders like train and valid.
	// Otherwise, its files are listed directly, and labeled with class 0.
	TestWithLabels bool

	// Rule derives the class from each label folder name. Nil uses labels.Identity.
	Rule labels.Rule
}

// DefaultFolderOptions returns the "train" and "valid" folders, without test data, with classes
// taken from the second "_" separated segment of each label folder (e.g. "0_wt" is class "wt").
func DefaultFolderOptions() FolderOptions {
	return FolderOptions{Train: "train", Valid: "valid", Rule: labels.DefaultRule}
}

// Builder holds the scanned splits of FromFolders, waiting for the transforms to create the Bundle.
type Builder struct {
	root    string
	splits  Splits
	classes []string
	opts    Options

	// Table is shared by the train and valid splits. It's finalized.
	Table *labels.Table

	// TestTable resolves the test split, when it has labels. It's empty otherwise.
	TestTable *labels.Table
}

// FromFolders reads the splits from the folder layout root/<split>/<label>/<file>.
//
// The train split is resolved first and populates the label table, which is then used, finalized,
// for the valid split: a label folder in valid that is not in train is an error of kind
// dataerrors.ErrLabelUniverse. A labeled test split uses its own label table.
func FromFolders(fs afero.Fs, root string, folderOpts FolderOptions, opts Options) (*Builder, error) {
	b := &Builder{
		root:      root,
		opts:      opts,
		Table:     labels.NewTable(),
		TestTable: labels.NewTable(),
	}
	train, err := folderSamples(fs, root, folderOpts.Train, b.Table, folderOpts.Rule)
	if err != nil {
		return nil, errors.WithMessage(err, "reading training split")
	}
	b.Table.Finalize()
	valid, err := folderSamples(fs, root, folderOpts.Valid, b.Table, folderOpts.Rule)
	if err != nil {
		return nil, errors.WithMessage(err, "reading validation split")
	}
	b.splits = Splits{Train: train, Valid: valid}
	b.classes = b.Table.ClassNames()

	if folderOpts.Test != "" {
		if folderOpts.TestWithLabels {
			b.splits.Test, err = folderSamples(fs, root, folderOpts.Test, b.TestTable, folderOpts.Rule)
		} else {
			b.splits.Test, err = unlabeledSamples(fs, root, folderOpts.Test, train)
		}
		if err != nil {
			return nil, errors.WithMessage(err, "reading test split")
		}
	}
	return b, nil
}

// folderSamples scans and resolves one labeled split.
func folderSamples(fs afero.Fs, root, folder string, table *labels.Table, rule labels.Rule) (*dataset.Samples, error) {
	src, err := labels.FromFolder(fs, root, folder, table, rule)
	if err != nil {
		return nil, err
	}
	return dataset.NewFileSamples(fs, root, src.Filenames, &labels.Array{Indices: src.ClassIdx}, src.SourceIdx)
}

// unlabeledSamples lists root/folder, labeling every file with zeros shaped like the labels of like.
func unlabeledSamples(fs afero.Fs, root, folder string, like *dataset.Samples) (*dataset.Samples, error) {
	fnames, err := index.ReadDir(fs, root, folder)
	if err != nil {
		return nil, err
	}
	return dataset.NewFileSamples(fs, root, fnames, zeroLabels(like.Labels(), len(fnames)), nil)
}

// zeroLabels returns n all-zero labels with the same shape as like.
func zeroLabels(like *labels.Array, n int) *labels.Array {
	if like.IsIndices() {
		return &labels.Array{Indices: make([]int, n)}
	}
	width := 0
	if len(like.Vectors) > 0 {
		width = len(like.Vectors[0])
	}
	zeros := &labels.Array{Continuous: like.Continuous, Vectors: make([][]float32, n)}
	for ii := range zeros.Vectors {
		zeros.Vectors[ii] = make([]float32, width)
	}
	return zeros
}

// Splits returns the scanned splits.
func (b *Builder) Splits() Splits { return b.splits }

// Classes returns the class names of the training split, in class index order.
func (b *Builder) Classes() []string { return b.classes }

// Build creates the Bundle with the given transforms.
func (b *Builder) Build(tfms transforms.Set) (*Bundle, error) {
	return New(b.root, b.splits, b.classes, tfms, b.opts)
}
