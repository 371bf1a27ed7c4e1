// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package transforms

import (
	"math"

	"github.com/gomlx/imagedata/pkg/data/dataerrors"
	"github.com/gomlx/imagedata/pkg/data/images"
)

// Normalize subtracts the per-channel Mean and divides by the per-channel Std.
type Normalize struct {
	Mean, Std []float32
}

// NewNormalize returns a Normalize transform. Mean and std must have the same length, one value
// per channel, and std must not have zeros. See Stats to measure them.
func NewNormalize(mean, std []float32) (*Normalize, error) {
	if len(mean) != len(std) || len(mean) == 0 {
		return nil, dataerrors.Configurationf("normalization requires one mean and std per channel, got %d means and %d stds",
			len(mean), len(std))
	}
	for ch, s := range std {
		if s == 0 {
			return nil, dataerrors.Configurationf("std for channel %d is 0", ch)
		}
	}
	return &Normalize{Mean: mean, Std: std}, nil
}

func (n *Normalize) check(arr *images.Array) error {
	if arr.Channels != len(n.Mean) {
		return dataerrors.Configurationf("normalization configured for %d channels, image has %d", len(n.Mean), arr.Channels)
	}
	return nil
}

// Apply implements Transform.
func (n *Normalize) Apply(_ Context, arr *images.Array) (*images.Array, error) {
	if err := n.check(arr); err != nil {
		return nil, err
	}
	out := arr.Clone()
	for ii, v := range out.Data {
		ch := ii % arr.Channels
		out.Data[ii] = (v - n.Mean[ch]) / n.Std[ch]
	}
	return out, nil
}

// Denorm reverses the normalization, e.g. to display the images seen by a model.
func (n *Normalize) Denorm(arr *images.Array) (*images.Array, error) {
	if err := n.check(arr); err != nil {
		return nil, err
	}
	out := arr.Clone()
	for ii, v := range out.Data {
		ch := ii % arr.Channels
		out.Data[ii] = v*n.Std[ch] + n.Mean[ch]
	}
	return out, nil
}

// minStd below which a channel is considered constant.
const minStd = 1e-6

// Stats returns the per-channel mean and standard deviation over all arrays, which must have the
// same number of channels. Channels with zero deviation (constant) get a std of 1, so the result
// can be used with NewNormalize directly.
func Stats(arrays ...*images.Array) (mean, std []float32, err error) {
	if len(arrays) == 0 {
		err = dataerrors.EmptyDatasetf("no images to compute normalization statistics")
		return
	}
	channels := arrays[0].Channels
	sum := make([]float64, channels)
	sumSq := make([]float64, channels)
	var count float64
	for ii, arr := range arrays {
		if arr.Channels != channels {
			err = dataerrors.Configurationf("image #%d has %d channels, image #0 has %d", ii, arr.Channels, channels)
			return
		}
		for jj, v := range arr.Data {
			sum[jj%channels] += float64(v)
			sumSq[jj%channels] += float64(v) * float64(v)
		}
		count += float64(arr.Height * arr.Width)
	}
	if count == 0 {
		err = dataerrors.EmptyDatasetf("no pixels to compute normalization statistics")
		return
	}
	mean = make([]float32, channels)
	std = make([]float32, channels)
	for ch := range channels {
		m := sum[ch] / count
		variance := max(sumSq[ch]/count-m*m, 0)
		mean[ch] = float32(m)
		std[ch] = float32(math.Sqrt(variance))
		if std[ch] < minStd {
			std[ch] = 1
		}
	}
	return
}

// Denorm reverses the Normalize steps of the pipeline, in reverse order. Other steps are
// not reversible and are ignored. A nil Pipeline returns arr unchanged.
func (p *Pipeline) Denorm(arr *images.Array) (*images.Array, error) {
	if p == nil {
		return arr, nil
	}
	var err error
	for ii := len(p.Steps) - 1; ii >= 0; ii-- {
		norm, ok := p.Steps[ii].(*Normalize)
		if !ok {
			continue
		}
		arr, err = norm.Denorm(arr)
		if err != nil {
			return nil, err
		}
	}
	return arr, nil
}
