// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package bundle groups the dataset views and loaders used to train and evaluate an image classifier.
//
// A Bundle holds up to three splits (train, validation and optional test), and six views over them:
//
//   - Train: training samples with training transforms (augmentation).
//   - Valid: validation samples with evaluation transforms.
//   - Fix: training samples with evaluation transforms.
//   - Aug: validation samples with training transforms.
//   - Test: test samples with test transforms (by default the evaluation ones).
//   - TestAug: test samples with training transforms.
//
// Views over the same split share its samples. Each view has a loader; only the training loader
// shuffles and is balanced (see Options.Balance).
//
// Bundles are created with FromFolders, FromCSV, FromNamesAndLabels or FromArrays, or with New from
// already built samples.
package bundle

import (
	"math/rand"

	"github.com/gomlx/imagedata/pkg/data/dataerrors"
	"github.com/gomlx/imagedata/pkg/data/dataset"
	"github.com/gomlx/imagedata/pkg/data/images"
	"github.com/gomlx/imagedata/pkg/data/labels"
	"github.com/gomlx/imagedata/pkg/data/loader"
	"github.com/gomlx/imagedata/pkg/data/transforms"
	"github.com/gomlx/imagedata/pkg/data/weights"
	"github.com/gomlx/imagedata/pkg/support/xslices"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ViewKind enumerates the views of a Bundle.
type ViewKind int

const (
	TrainView ViewKind = iota
	ValidView
	FixView
	AugView
	TestView
	TestAugView
	NumViews
)

var viewNames = [NumViews]string{"train", "valid", "fix", "aug", "test", "test_aug"}

// String implements fmt.Stringer.
func (k ViewKind) String() string {
	if k < 0 || k >= NumViews {
		return "unknown"
	}
	return viewNames[k]
}

// Options configures the loaders of a Bundle.
type Options struct {
	// BatchSize of all loaders.
	BatchSize int

	// Workers is the number of samples loaded in parallel by each loader.
	Workers int

	// Seed for the shuffling and sampling of the training loader, and for oversampling.
	Seed int64

	// Balance selects how the training split is balanced. It requires single-label training data.
	Balance weights.Mode
}

// DefaultOptions returns batches of 64, loaded by 8 workers, without balancing.
func DefaultOptions() Options {
	return Options{BatchSize: 64, Workers: 8, Seed: 42}
}

// Splits holds the samples of each split. Test may be nil.
type Splits struct {
	Train, Valid, Test *dataset.Samples
}

// Bundle holds the views and loaders of a dataset. See package documentation.
type Bundle struct {
	root    string
	classes []string
	tfms    transforms.Set
	opts    Options

	// splits as given, before balancing.
	splits       Splits
	trainWeights []float64

	views   [NumViews]*dataset.View
	loaders [NumViews]*loader.Loader
}

// New creates a Bundle from the samples of each split.
//
// Root is the directory the data was read from (for file-backed samples, their root). Classes are the
// class names, in class index order. Nil transforms pipelines leave the images unchanged.
func New(root string, splits Splits, classes []string, tfms transforms.Set, opts Options) (*Bundle, error) {
	if splits.Train == nil || splits.Valid == nil {
		return nil, dataerrors.Configurationf("bundle requires train and validation splits")
	}
	if opts.BatchSize <= 0 {
		return nil, dataerrors.Configurationf("invalid batch size %d", opts.BatchSize)
	}
	b := &Bundle{
		root:    root,
		classes: classes,
		tfms:    tfms,
		opts:    opts,
		splits:  splits,
	}

	train := splits.Train
	if opts.Balance != weights.None {
		if train.Kind() != dataset.SingleLabel {
			return nil, dataerrors.Configurationf("balance mode %q requires single-label training data, got %s",
				opts.Balance, train.Kind())
		}
		var err error
		if opts.Balance == weights.Oversampling {
			train, err = oversample(train, opts.Seed)
		} else {
			b.trainWeights, err = opts.Balance.Compute(train.Labels().Indices)
		}
		if err != nil {
			return nil, errors.WithMessagef(err, "balancing training data with %q", opts.Balance)
		}
	}

	b.views[TrainView] = dataset.NewView(train, tfms.Train)
	b.views[ValidView] = dataset.NewView(splits.Valid, tfms.Eval)
	b.views[FixView] = dataset.NewView(train, tfms.Eval)
	b.views[AugView] = dataset.NewView(splits.Valid, tfms.Train)
	if splits.Test != nil {
		b.views[TestView] = dataset.NewView(splits.Test, tfms.TestPipeline())
		b.views[TestAugView] = dataset.NewView(splits.Test, tfms.Train)
	}

	for kind, view := range b.views {
		if view == nil {
			continue
		}
		loaderOpts := loader.Options{BatchSize: opts.BatchSize, Workers: opts.Workers, Seed: opts.Seed}
		if ViewKind(kind) == TrainView {
			loaderOpts.Shuffle = true
			loaderOpts.Weights = b.trainWeights
		}
		l, err := loader.New(ViewKind(kind).String(), view, loaderOpts)
		if err != nil {
			return nil, err
		}
		b.loaders[kind] = l
	}
	klog.V(1).Infof("bundle %q: %d train, %d valid, %d test samples, %d classes",
		root, train.Len(), splits.Valid.Len(), b.Len(TestView), len(classes))
	return b, nil
}

// oversample returns the training samples with the minority classes oversampled.
func oversample(train *dataset.Samples, seed int64) (*dataset.Samples, error) {
	indices, _, err := weights.Oversample(xslices.Iota(0, train.Len()), train.Labels().Indices, rand.New(rand.NewSource(seed)))
	if err != nil {
		return nil, err
	}
	return train.Subset(indices)
}

// View returns the given view, or nil for the test views of a bundle without test data.
func (b *Bundle) View(kind ViewKind) *dataset.View { return b.views[kind] }

// Loader returns the loader of the given view, or nil for the test views of a bundle without test data.
func (b *Bundle) Loader(kind ViewKind) *loader.Loader { return b.loaders[kind] }

// Len returns the number of samples of the view, 0 if it doesn't exist.
func (b *Bundle) Len(kind ViewKind) int {
	if b.views[kind] == nil {
		return 0
	}
	return b.views[kind].Len()
}

// HasTest returns whether the bundle has test data.
func (b *Bundle) HasTest() bool { return b.views[TestView] != nil }

// Root directory of the data.
func (b *Bundle) Root() string { return b.root }

// Classes returns the class names, in class index order.
func (b *Bundle) Classes() []string { return b.classes }

// Options returns the options the bundle was created with.
func (b *Bundle) Options() Options { return b.opts }

// Transforms returns the transforms the views were created with.
func (b *Bundle) Transforms() transforms.Set { return b.tfms }

// Splits returns the samples of each split, as given to New (before balancing).
func (b *Bundle) Splits() Splits { return b.splits }

// NumClasses returns the number of classes of the training view.
func (b *Bundle) NumClasses() int { return b.views[TrainView].NumClasses() }

// Size returns the canonical image size of the training view.
func (b *Bundle) Size() (int, error) { return b.views[TrainView].Size() }

// IsMulti returns whether the training data is multi-label.
func (b *Bundle) IsMulti() bool { return b.views[TrainView].IsMulti() }

// IsRegression returns whether the training data is for regression.
func (b *Bundle) IsRegression() bool { return b.views[TrainView].IsRegression() }

// TrainLabels returns the labels of the training view (after oversampling, if configured).
func (b *Bundle) TrainLabels() *labels.Array { return b.views[TrainView].Samples().Labels() }

// ValidLabels returns the labels of the validation view.
func (b *Bundle) ValidLabels() *labels.Array { return b.views[ValidView].Samples().Labels() }

// TrainWeights returns the per-sample sampling weights of the training loader, or nil if it is
// not weighted.
func (b *Bundle) TrainWeights() []float64 { return b.trainWeights }

// Resize resizes the images of every file-backed split to target (see images.ResizeAll), and returns
// a new Bundle reading from the resized copies in root/cacheFolder/target. In-memory splits are kept as is.
//
// All splits are processed even if some images fail: the failures are returned together.
func (b *Bundle) Resize(target int, cacheFolder string, opts images.ResizeOptions) (*Bundle, error) {
	var failed dataerrors.FileErrors
	newRoot := b.root
	resize := func(samples *dataset.Samples) *dataset.Samples {
		if samples == nil || !samples.IsFileBacked() {
			return samples
		}
		destRoot, err := images.ResizeAll(samples.Fs(), samples.Root(), samples.Filenames(), target, cacheFolder, opts)
		if err != nil {
			failed = append(failed, err)
		}
		if samples == b.splits.Train {
			newRoot = destRoot
		}
		return samples.WithRoot(destRoot)
	}
	splits := Splits{
		Train: resize(b.splits.Train),
		Valid: resize(b.splits.Valid),
		Test:  resize(b.splits.Test),
	}
	if len(failed) > 0 {
		return nil, errors.WithMessagef(failed, "resizing bundle %q to %d", b.root, target)
	}
	return New(newRoot, splits, b.classes, b.tfms, b.opts)
}
