// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package dataset implements indexed, random-access image datasets.
//
// The data of a split is owned by Samples: either files under a root directory, or arrays
// already in memory, plus their labels and source indices. A View binds Samples to a transform
// pipeline: many views (training with augmentation, evaluation without) share the same Samples
// without copying it.
//
// Views are read-only: Get and Slice are safe for concurrent use.
package dataset

import (
	"path"

	"github.com/gomlx/imagedata/pkg/data/dataerrors"
	"github.com/gomlx/imagedata/pkg/data/images"
	"github.com/gomlx/imagedata/pkg/data/labels"
	"github.com/gomlx/imagedata/pkg/support/xslices"
	"github.com/spf13/afero"
)

// LabelKind selects how the labels of a dataset are interpreted.
type LabelKind int

const (
	// SingleLabel datasets have one class index per sample.
	SingleLabel LabelKind = iota

	// MultiLabel datasets have one n-hot indicator vector per sample.
	MultiLabel

	// Regression datasets have one float vector per sample.
	Regression
)

// String implements fmt.Stringer.
func (k LabelKind) String() string {
	switch k {
	case SingleLabel:
		return "SingleLabel"
	case MultiLabel:
		return "MultiLabel"
	case Regression:
		return "Regression"
	default:
		return "UnknownLabelKind"
	}
}

// KindOf returns the LabelKind of the labels.
func KindOf(lbls *labels.Array) LabelKind {
	switch {
	case lbls.IsIndices():
		return SingleLabel
	case lbls.Continuous:
		return Regression
	default:
		return MultiLabel
	}
}

// NoSource is the source index of samples without provenance information.
const NoSource = -1

// Samples owns the images, labels and source indices of one split.
type Samples struct {
	fs        afero.Fs
	root      string
	filenames []string
	arrays    []*images.Array

	labels  *labels.Array
	sources []int
	kind    LabelKind
}

func checkAligned(n int, lbls *labels.Array, sources []int) error {
	if lbls == nil {
		return dataerrors.Configurationf("labels are required")
	}
	if lbls.Len() != n {
		return dataerrors.Configurationf("%d samples but %d labels", n, lbls.Len())
	}
	if sources != nil && len(sources) != n {
		return dataerrors.Configurationf("%d samples but %d source indices", n, len(sources))
	}
	return nil
}

// NewFileSamples creates Samples backed by the image files root/filenames[i].
// Sources may be nil, in which case every sample has source NoSource.
func NewFileSamples(fs afero.Fs, root string, filenames []string, lbls *labels.Array, sources []int) (*Samples, error) {
	if err := checkAligned(len(filenames), lbls, sources); err != nil {
		return nil, err
	}
	return &Samples{
		fs:        fs,
		root:      root,
		filenames: filenames,
		labels:    lbls,
		sources:   sources,
		kind:      KindOf(lbls),
	}, nil
}

// NewArraySamples creates Samples backed by images already in memory. The arrays are not copied
// and must not be modified afterward.
func NewArraySamples(arrays []*images.Array, lbls *labels.Array, sources []int) (*Samples, error) {
	if err := checkAligned(len(arrays), lbls, sources); err != nil {
		return nil, err
	}
	return &Samples{
		arrays:  arrays,
		labels:  lbls,
		sources: sources,
		kind:    KindOf(lbls),
	}, nil
}

// WithRoot returns Samples sharing the same filenames and labels, but read from another root
// directory, e.g. a cache of resized images. It returns s itself for in-memory samples.
func (s *Samples) WithRoot(root string) *Samples {
	if !s.IsFileBacked() {
		return s
	}
	clone := *s
	clone.root = root
	return &clone
}

// Len returns the number of samples.
func (s *Samples) Len() int { return s.labels.Len() }

// IsFileBacked returns whether the samples are read from files.
func (s *Samples) IsFileBacked() bool { return s.arrays == nil }

// Fs returns the filesystem of file-backed samples.
func (s *Samples) Fs() afero.Fs { return s.fs }

// Root returns the root directory of file-backed samples.
func (s *Samples) Root() string { return s.root }

// Filenames returns the files relative to Root, or nil for in-memory samples.
func (s *Samples) Filenames() []string { return s.filenames }

// Labels returns the labels of all samples.
func (s *Samples) Labels() *labels.Array { return s.labels }

// Kind returns how the labels are interpreted.
func (s *Samples) Kind() LabelKind { return s.kind }

// Source returns the source index of sample i, or NoSource.
func (s *Samples) Source(i int) int {
	if s.sources == nil {
		return NoSource
	}
	return s.sources[i]
}

// Sources returns the source indices, or nil if the samples have none.
func (s *Samples) Sources() []int { return s.sources }

// checkIndex returns dataerrors.ErrIndexOutOfRange if i is not in [0, Len()).
func (s *Samples) checkIndex(i int) error {
	if i < 0 || i >= s.Len() {
		return dataerrors.IndexOutOfRangef("sample %d out of range for dataset with %d samples", i, s.Len())
	}
	return nil
}

// Load returns the image of sample i, before transformations. In-memory images are returned as a
// copy, so the caller owns the result.
func (s *Samples) Load(i int) (*images.Array, error) {
	if err := s.checkIndex(i); err != nil {
		return nil, err
	}
	if !s.IsFileBacked() {
		return s.arrays[i].Clone(), nil
	}
	return images.Open(s.fs, path.Join(s.root, s.filenames[i]))
}

// NumClasses returns the number of classes: the maximum class index plus 1 for single-label samples,
// the width of the label vectors otherwise (0 for regression samples without vectors).
func (s *Samples) NumClasses() int {
	if s.kind == SingleLabel {
		if len(s.labels.Indices) == 0 {
			return 0
		}
		return max(0, xslices.Max(s.labels.Indices)+1)
	}
	if len(s.labels.Vectors) == 0 {
		return 0
	}
	return len(s.labels.Vectors[0])
}

// Subset returns new Samples with the samples at the given indices, in that order. Indices may repeat,
// e.g. to oversample.
func (s *Samples) Subset(indices []int) (*Samples, error) {
	for _, idx := range indices {
		if err := s.checkIndex(idx); err != nil {
			return nil, err
		}
	}
	sub := &Samples{fs: s.fs, root: s.root, kind: s.kind}
	if s.IsFileBacked() {
		sub.filenames = xslices.Gather(s.filenames, indices)
	} else {
		sub.arrays = xslices.Gather(s.arrays, indices)
	}
	if s.sources != nil {
		sub.sources = xslices.Gather(s.sources, indices)
	}
	sub.labels = &labels.Array{Continuous: s.labels.Continuous}
	if s.labels.IsIndices() {
		sub.labels.Indices = xslices.Gather(s.labels.Indices, indices)
	} else {
		sub.labels.Vectors = xslices.Gather(s.labels.Vectors, indices)
	}
	return sub, nil
}
