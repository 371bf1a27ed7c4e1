// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package weights counteracts imbalanced class distributions, either by computing per-sample
// sampling weights (for a weighted sampler) or by oversampling the minority classes.
//
// Class indices are used as histogram bins: they must be non-negative, and a very large class index
// allocates a correspondingly large histogram.
package weights

import (
	"math/rand"
	"slices"

	"github.com/gomlx/imagedata/pkg/data/dataerrors"
	"golang.org/x/exp/constraints"
	"k8s.io/klog/v2"
)

// Bincount returns the number of occurrences of each value in [0, max(labels)].
// It returns an error of kind dataerrors.ErrConfiguration for negative values.
func Bincount[T constraints.Integer](labels []T) ([]int, error) {
	var maxLabel T
	for _, l := range labels {
		if l < 0 {
			return nil, dataerrors.Configurationf("negative class index %d can't be counted", l)
		}
		maxLabel = max(maxLabel, l)
	}
	if len(labels) == 0 {
		return nil, nil
	}
	counts := make([]int, int(maxLabel)+1)
	for _, l := range labels {
		counts[l]++
	}
	return counts, nil
}

// probabilities returns the bincount of classes and the percentage of samples in each class.
func probabilities(classes []int) (counts []int, probs []float64, err error) {
	if len(classes) == 0 {
		err = dataerrors.EmptyDatasetf("can't compute weights without samples")
		return
	}
	counts, err = Bincount(classes)
	if err != nil {
		return
	}
	n := float64(len(classes))
	probs = make([]float64, len(counts))
	for k, c := range counts {
		probs[k] = 100 * float64(c) / n
	}
	return
}

// Default returns for each sample the probability mass (percentage) of its class divided by the
// number of samples of that class.
//
// Notice this reduces to 100/n for every sample: it doesn't change the sampling distribution. Use
// Adjusted to balance classes.
func Default(classes []int) ([]float64, error) {
	counts, probs, err := probabilities(classes)
	if err != nil {
		return nil, err
	}
	weights := make([]float64, len(classes))
	for ii, k := range classes {
		weights[ii] = probs[k] / float64(counts[k])
	}
	return weights, nil
}

// Adjusted returns Default weights plus, for the samples of each class k, the correction
// (desired - prob_k) / count_k, where desired = 100/K and K is the number of classes observed.
//
// The sum of the weights of the samples of each observed class is then 100/K.
func Adjusted(classes []int) ([]float64, error) {
	counts, probs, err := probabilities(classes)
	if err != nil {
		return nil, err
	}
	var numObserved int
	for _, c := range counts {
		if c > 0 {
			numObserved++
		}
	}
	desired := 100 / float64(numObserved)
	weights := make([]float64, len(classes))
	for ii, k := range classes {
		count := float64(counts[k])
		weights[ii] = probs[k]/count + (desired-probs[k])/count
	}
	return weights, nil
}

// Oversample balances the classes by appending duplicates of minority class samples until
// every class has as many samples as the majority class. Samples can be filenames, or indices
// to gather several aligned slices.
//
// The returned slices start with all the original samples, unmodified and in order, followed by the
// duplicates. The duplicates of a class are drawn from that class' own samples without replacement,
// the pool being reshuffled whenever it is exhausted. Ties for the majority are broken by first
// appearance.
func Oversample[T any](samples []T, classes []int, rng *rand.Rand) (outSamples []T, outClasses []int, err error) {
	if len(samples) != len(classes) {
		err = dataerrors.Configurationf("%d samples but %d class indices", len(samples), len(classes))
		return
	}
	if len(classes) == 0 {
		err = dataerrors.EmptyDatasetf("can't oversample without samples")
		return
	}
	pools := make(map[int][]T)
	var order []int // Classes in order of first appearance.
	for ii, k := range classes {
		if _, found := pools[k]; !found {
			order = append(order, k)
		}
		pools[k] = append(pools[k], samples[ii])
	}
	majority := order[0]
	for _, k := range order {
		if len(pools[k]) > len(pools[majority]) {
			majority = k
		}
	}
	maxCount := len(pools[majority])
	klog.V(1).Infof("Oversample: before %v", classCounts(pools))

	outSamples = slices.Clone(samples)
	outClasses = slices.Clone(classes)
	sorted := slices.Clone(order)
	slices.Sort(sorted)
	for _, k := range sorted {
		if k == majority {
			continue
		}
		pool := slices.Clone(pools[k])
		delta := maxCount - len(pool)
		for drawn := 0; drawn < delta; {
			rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
			take := min(len(pool), delta-drawn)
			outSamples = append(outSamples, pool[:take]...)
			for range take {
				outClasses = append(outClasses, k)
			}
			drawn += take
		}
	}
	klog.V(1).Infof("Oversample: after %d samples, %d per class", len(outSamples), maxCount)
	return
}

func classCounts[T any](pools map[int][]T) map[int]int {
	counts := make(map[int]int, len(pools))
	for k, p := range pools {
		counts[k] = len(p)
	}
	return counts
}
