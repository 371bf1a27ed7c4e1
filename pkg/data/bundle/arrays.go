// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package bundle

import (
	"github.com/gomlx/imagedata/pkg/data/dataset"
	"github.com/gomlx/imagedata/pkg/data/images"
	"github.com/gomlx/imagedata/pkg/data/labels"
	"github.com/gomlx/imagedata/pkg/data/transforms"
	"github.com/pkg/errors"
)

// ArraySplit holds in-memory images and their class indices.
type ArraySplit struct {
	X []*images.Array
	Y []int
}

func (s ArraySplit) samples() (*dataset.Samples, error) {
	return dataset.NewArraySamples(s.X, &labels.Array{Indices: s.Y}, nil)
}

// FromArrays creates a Bundle from images already in memory. Test images are optional, and labeled
// with class 0. Root is only informative.
func FromArrays(root string, train, valid ArraySplit, test []*images.Array, classes []string,
	tfms transforms.Set, opts Options) (*Bundle, error) {
	var splits Splits
	var err error
	if splits.Train, err = train.samples(); err != nil {
		return nil, errors.WithMessage(err, "training split")
	}
	if splits.Valid, err = valid.samples(); err != nil {
		return nil, errors.WithMessage(err, "validation split")
	}
	if test != nil {
		if splits.Test, err = (ArraySplit{X: test, Y: make([]int, len(test))}).samples(); err != nil {
			return nil, errors.WithMessage(err, "test split")
		}
	}
	return New(root, splits, classes, tfms, opts)
}
