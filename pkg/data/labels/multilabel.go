// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package labels

import (
	"path"
	"strconv"

	"github.com/gomlx/imagedata/pkg/data/dataerrors"
	"github.com/gomlx/imagedata/pkg/support/sets"
	"github.com/pkg/errors"
)

// Array holds the labels of a split, in one of three shapes:
//
//   - Indices (Vectors is nil): one class index per sample.
//   - Vectors with Continuous false: one n-hot indicator vector per sample.
//   - Vectors with Continuous true: one float vector per sample, for regression.
type Array struct {
	Indices    []int
	Vectors    [][]float32
	Continuous bool
}

// Len returns the number of samples labeled.
func (a *Array) Len() int {
	if a.Vectors != nil {
		return len(a.Vectors)
	}
	return len(a.Indices)
}

// IsIndices returns whether the labels are scalar class indices.
func (a *Array) IsIndices() bool { return a.Vectors == nil }

// NHot returns a vector of length c with 1 at the positions ids, and 0 elsewhere.
func NHot(ids []int, c int) []float32 {
	res := make([]float32, c)
	for _, id := range ids {
		res[id] = 1
	}
	return res
}

// NHotLabels converts the label set of each filename in fnames to an n-hot vector with one position
// per element of columns.
func NHotLabels(columns *sets.Ordered[string], csvLabels map[string][]string, fnames []string) ([][]float32, error) {
	c := columns.Len()
	vectors := make([][]float32, len(fnames))
	for ii, fname := range fnames {
		lbls, found := csvLabels[fname]
		if !found {
			return nil, dataerrors.LabelUniversef("filename %q has no labels", fname)
		}
		ids := make([]int, len(lbls))
		for jj, lbl := range lbls {
			idx, found := columns.Index(lbl)
			if !found {
				return nil, dataerrors.LabelUniversef("label %q of %q is not one of the %d known labels", lbl, fname, c)
			}
			ids[jj] = idx
		}
		vectors[ii] = NHot(ids, c)
	}
	return vectors, nil
}

// CollapseSingle returns the index of the active label of each vector if every vector has
// exactly one active label, and nil otherwise.
func CollapseSingle(vectors [][]float32) []int {
	indices := make([]int, len(vectors))
	for ii, v := range vectors {
		var sum float32
		argmax := 0
		for jj, x := range v {
			sum += x
			if x > v[argmax] {
				argmax = jj
			}
		}
		if sum != 1 {
			return nil
		}
		indices[ii] = argmax
	}
	return indices
}

// DictSource builds the labels for fnames from their label sets.
//
// The returned fullNames are path.Join(folder, fname+suffix). allLabels are the distinct labels
// across all filenames, sorted: their position is the column of the n-hot encoding. If every
// sample has exactly one label, the labels collapse to class indices.
//
// If continuous is set, each token is parsed as a float32 and the labels are regression vectors.
func DictSource(folder string, fnames []string, csvLabels map[string][]string, suffix string, continuous bool) (
	fullNames []string, labels *Array, allLabels []string, err error) {
	all := sets.Make[string]()
	for _, lbls := range csvLabels {
		all.Insert(lbls...)
	}
	allLabels = sets.Sorted(all)
	fullNames = make([]string, len(fnames))
	for ii, fname := range fnames {
		fullNames[ii] = path.Join(folder, fname+suffix)
	}

	if continuous {
		labels = &Array{Continuous: true, Vectors: make([][]float32, len(fnames))}
		for ii, fname := range fnames {
			tokens := csvLabels[fname]
			v := make([]float32, len(tokens))
			for jj, token := range tokens {
				x, parseErr := strconv.ParseFloat(token, 32)
				if parseErr != nil {
					err = dataerrors.Configurationf("continuous label %q of %q: %v", token, fname, parseErr)
					return
				}
				v[jj] = float32(x)
			}
			labels.Vectors[ii] = v
		}
		return
	}

	vectors, err := NHotLabels(sets.MakeOrdered(allLabels...), csvLabels, fnames)
	if err != nil {
		err = errors.WithMessage(err, "building n-hot labels")
		return
	}
	if indices := CollapseSingle(vectors); indices != nil {
		labels = &Array{Indices: indices}
	} else {
		labels = &Array{Vectors: vectors}
	}
	return
}
