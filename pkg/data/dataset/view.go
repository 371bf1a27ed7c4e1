// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"slices"

	"github.com/gomlx/imagedata/pkg/data/dataerrors"
	"github.com/gomlx/imagedata/pkg/data/images"
	"github.com/gomlx/imagedata/pkg/data/transforms"
	"github.com/pkg/errors"
)

// Item is one sample read from a View. It owns its Input and Vector: changing them doesn't affect
// the dataset.
type Item struct {
	// Index of the sample in the dataset.
	Index int

	Input *images.Array

	// Class is set for SingleLabel datasets, Vector for the others.
	Class  int
	Vector []float32

	Source int
}

// Batch is a contiguous group of items, with the inputs stacked.
type Batch struct {
	Inputs *images.Batch

	// Classes is set for SingleLabel datasets, Vectors for the others.
	Classes []int
	Vectors [][]float32

	Sources []int

	// Indices of the samples in the dataset.
	Indices []int
}

// Len returns the number of items in the batch.
func (b *Batch) Len() int { return len(b.Sources) }

// NewBatch stacks the items, which must have inputs of the same shape.
func NewBatch(kind LabelKind, items []*Item) (*Batch, error) {
	inputs := make([]*images.Array, len(items))
	b := &Batch{Sources: make([]int, len(items)), Indices: make([]int, len(items))}
	if kind == SingleLabel {
		b.Classes = make([]int, len(items))
	} else {
		b.Vectors = make([][]float32, len(items))
	}
	for ii, item := range items {
		inputs[ii] = item.Input
		b.Sources[ii] = item.Source
		b.Indices[ii] = item.Index
		if kind == SingleLabel {
			b.Classes[ii] = item.Class
		} else {
			b.Vectors[ii] = item.Vector
		}
	}
	var err error
	b.Inputs, err = images.Stack(inputs)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// View binds Samples to a transform pipeline.
type View struct {
	samples   *Samples
	transform *transforms.Pipeline
}

// NewView returns a view over samples. A nil transform returns the images as loaded.
func NewView(samples *Samples, transform *transforms.Pipeline) *View {
	return &View{samples: samples, transform: transform}
}

// Samples returns the underlying samples, shared with other views.
func (v *View) Samples() *Samples { return v.samples }

// Transform returns the transform pipeline of the view, possibly nil.
func (v *View) Transform() *transforms.Pipeline { return v.transform }

// Len returns the number of samples.
func (v *View) Len() int { return v.samples.Len() }

// Kind returns how the labels are interpreted.
func (v *View) Kind() LabelKind { return v.samples.kind }

// IsMulti returns whether this is a multi-label dataset.
func (v *View) IsMulti() bool { return v.samples.kind == MultiLabel }

// IsRegression returns whether this is a regression dataset.
func (v *View) IsRegression() bool { return v.samples.kind == Regression }

// NumClasses returns the number of classes, see Samples.NumClasses.
func (v *View) NumClasses() int { return v.samples.NumClasses() }

// Size returns the canonical image size: the size of the transform pipeline if set, or else the
// height of the first image. It returns 0 for an empty dataset.
func (v *View) Size() (int, error) {
	if v.transform != nil && v.transform.Size > 0 {
		return v.transform.Size, nil
	}
	if v.Len() == 0 {
		return 0, nil
	}
	arr, err := v.samples.Load(0)
	if err != nil {
		return 0, errors.WithMessage(err, "reading first image to find dataset size")
	}
	return arr.Height, nil
}

// Get returns sample i with the transformations of epoch 0, see GetInEpoch.
func (v *View) Get(i int) (*Item, error) { return v.GetInEpoch(i, 0) }

// GetInEpoch loads sample i, applies the transforms with the sample context of the given epoch,
// and attaches its label and source index.
//
// It returns an error of kind dataerrors.ErrIndexOutOfRange if i is not in [0, Len()), or the errors
// of loading the image (dataerrors.ErrNotFound, dataerrors.ErrDecode).
func (v *View) GetInEpoch(i, epoch int) (*Item, error) {
	arr, err := v.samples.Load(i)
	if err != nil {
		return nil, err
	}
	arr, err = v.transform.Apply(transforms.Context{Index: i, Epoch: epoch}, arr)
	if err != nil {
		return nil, errors.WithMessagef(err, "transforming sample %d", i)
	}
	item := &Item{Index: i, Input: arr, Source: v.samples.Source(i)}
	lbls := v.samples.labels
	if v.samples.kind == SingleLabel {
		item.Class = lbls.Indices[i]
	} else {
		item.Vector = slices.Clone(lbls.Vectors[i])
	}
	return item, nil
}

// Slice returns the samples in [start, end) stacked in a Batch.
func (v *View) Slice(start, end int) (*Batch, error) {
	if start < 0 || end > v.Len() || start > end {
		return nil, dataerrors.IndexOutOfRangef("slice [%d:%d] out of range for dataset with %d samples", start, end, v.Len())
	}
	items := make([]*Item, 0, end-start)
	for ii := start; ii < end; ii++ {
		item, err := v.Get(ii)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return NewBatch(v.samples.kind, items)
}

// Denorm reverses the normalization of the view's transforms, see transforms.Pipeline.Denorm.
func (v *View) Denorm(arr *images.Array) (*images.Array, error) {
	return v.transform.Denorm(arr)
}
