// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package split partitions the samples of a dataset into validation and training subsets.
//
// The validation indices are drawn from a seeded permutation, so the same (n, cvIdx, valPct, seed)
// always selects the same samples. A Mask built from them is then applied to every slice aligned with
// the samples (filenames, labels, source indices) to split them consistently.
package split

import (
	"math/rand"

	"github.com/gomlx/imagedata/pkg/data/dataerrors"
)

// Default parameters used when no explicit validation indices are given.
const (
	DefaultValPct = 0.2
	DefaultSeed   = 42
)

// NumValidation returns floor(valPct * n).
func NumValidation(n int, valPct float64) int {
	return int(valPct * float64(n))
}

// CVIndices returns the indices of the validation set for the fold cvIdx: a random permutation of
// [0, n) is generated from seed, and the slice [cvIdx*nVal, (cvIdx+1)*nVal) of it is returned, where
// nVal = floor(valPct * n).
//
// It returns an error of kind dataerrors.ErrConfiguration if valPct is outside of [0, 1] or if the
// fold cvIdx doesn't fit in n.
func CVIndices(n, cvIdx int, valPct float64, seed int64) ([]int, error) {
	if valPct < 0 || valPct > 1 {
		return nil, dataerrors.Configurationf("validation fraction %g must be within [0, 1]", valPct)
	}
	if n < 0 || cvIdx < 0 {
		return nil, dataerrors.Configurationf("invalid n=%d or cv_idx=%d", n, cvIdx)
	}
	nVal := NumValidation(n, valPct)
	start := cvIdx * nVal
	if start+nVal > n {
		return nil, dataerrors.Configurationf("fold cv_idx=%d of %d validation samples doesn't fit %d samples",
			cvIdx, nVal, n)
	}
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(n)
	idxs := make([]int, nVal)
	copy(idxs, perm[start:start+nVal])
	return idxs, nil
}

// Mask selects a subset of [0, n): true for the selected (validation) positions.
type Mask []bool

// NewMask returns a Mask of length n with the positions in idxs selected.
// Repeated indices are allowed and select the position once.
func NewMask(n int, idxs []int) (Mask, error) {
	m := make(Mask, n)
	for _, idx := range idxs {
		if idx < 0 || idx >= n {
			return nil, dataerrors.IndexOutOfRangef("index %d for mask of %d elements", idx, n)
		}
		m[idx] = true
	}
	return m, nil
}

// Len returns the number of positions in the mask.
func (m Mask) Len() int { return len(m) }

// Count returns the number of selected positions.
func (m Mask) Count() (count int) {
	for _, selected := range m {
		if selected {
			count++
		}
	}
	return
}

// Apply splits s into the elements selected by the mask and the remaining ones, both preserving the
// relative order of s.
//
// It returns an error of kind dataerrors.ErrConfiguration if s is not of the same length as the mask.
func Apply[T any](m Mask, s []T) (selected, rest []T, err error) {
	if len(s) != len(m) {
		err = dataerrors.Configurationf("cannot split slice of %d elements with a mask of %d", len(s), len(m))
		return
	}
	numSelected := m.Count()
	selected = make([]T, 0, numSelected)
	rest = make([]T, 0, len(s)-numSelected)
	for ii, e := range s {
		if m[ii] {
			selected = append(selected, e)
		} else {
			rest = append(rest, e)
		}
	}
	return
}

// ByIndex is a shortcut to build a Mask from idxs and Apply it to s.
func ByIndex[T any](idxs []int, s []T) (selected, rest []T, err error) {
	m, err := NewMask(len(s), idxs)
	if err != nil {
		return nil, nil, err
	}
	return Apply(m, s)
}
