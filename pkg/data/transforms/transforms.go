// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package transforms defines the per-sample transformations applied to images when they are read
// from a dataset view: augmentations (random flips), geometry (scale, center crop) and normalization.
//
// Random transformations are deterministic: the randomness is derived from a seed and the Context
// of each sample (index and epoch), so reading the same sample in the same epoch always returns the
// same values, from any goroutine.
package transforms

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"math/rand"

	"github.com/disintegration/imaging"
	"github.com/gomlx/imagedata/pkg/data/dataerrors"
	"github.com/gomlx/imagedata/pkg/data/images"
)

// Context identifies the sample being transformed.
type Context struct {
	// Index of the sample in the dataset.
	Index int

	// Epoch is incremented by the loader every time the dataset is restarted, so random
	// augmentations change from one epoch to the next.
	Epoch int
}

// Transform is applied to one image. Implementations must not modify the input array, and must be
// safe for concurrent use.
type Transform interface {
	Apply(ctx Context, arr *images.Array) (*images.Array, error)
}

// Func adapts a function to a Transform.
type Func func(ctx Context, arr *images.Array) (*images.Array, error)

// Apply implements Transform.
func (fn Func) Apply(ctx Context, arr *images.Array) (*images.Array, error) { return fn(ctx, arr) }

// Pipeline applies a sequence of transforms. Size is the canonical side length of the images it
// produces, reported by datasets as their size. It is 0 if unknown.
type Pipeline struct {
	Size  int
	Steps []Transform
}

// NewPipeline creates a Pipeline with the given canonical size.
func NewPipeline(size int, steps ...Transform) *Pipeline {
	return &Pipeline{Size: size, Steps: steps}
}

// Apply implements Transform. A nil Pipeline returns the input unchanged.
func (p *Pipeline) Apply(ctx Context, arr *images.Array) (*images.Array, error) {
	if p == nil {
		return arr, nil
	}
	var err error
	for _, step := range p.Steps {
		arr, err = step.Apply(ctx, arr)
		if err != nil {
			return nil, err
		}
	}
	return arr, nil
}

// Set holds the transforms for the training data (usually with augmentation), for evaluation
// and, optionally, for the test data. Test defaults to Eval.
type Set struct {
	Train, Eval, Test *Pipeline
}

// NewSet returns a Set with Test defaulting to Eval. Both train and eval are required.
func NewSet(train, eval *Pipeline) (Set, error) {
	s := Set{Train: train, Eval: eval}
	return s, s.Validate()
}

// Validate returns an error of kind dataerrors.ErrConfiguration if the train or eval transforms
// are missing.
func (s Set) Validate() error {
	if s.Train == nil || s.Eval == nil {
		return dataerrors.Configurationf("both train and eval transforms are required (train set: %v, eval set: %v)",
			s.Train != nil, s.Eval != nil)
	}
	return nil
}

// TestPipeline returns Test, or Eval if Test is not set.
func (s Set) TestPipeline() *Pipeline {
	if s.Test != nil {
		return s.Test
	}
	return s.Eval
}

// SampleRand returns a random number generator seeded from seed and the sample context.
// The hash of the seed and the sample position follows the same scheme used to assign samples to folds.
func SampleRand(seed int64, ctx Context) *rand.Rand {
	var buffer bytes.Buffer
	_ = binary.Write(&buffer, binary.LittleEndian, seed)
	_ = binary.Write(&buffer, binary.LittleEndian, int32(ctx.Epoch))
	_ = binary.Write(&buffer, binary.LittleEndian, int32(ctx.Index))
	return rand.New(rand.NewSource(int64(crc32.ChecksumIEEE(buffer.Bytes()))))
}

// OnImage adapts an image.Image function to a Transform: the array is converted to an image, transformed
// and converted back, preserving the number of channels.
//
// The round trip quantizes values to 16 bits and clips them to [0, 1], so image transforms should come
// before normalization.
func OnImage(fn func(ctx Context, img image.Image) image.Image) Transform {
	return Func(func(ctx Context, arr *images.Array) (*images.Array, error) {
		img, err := images.ToImage(arr)
		if err != nil {
			return nil, err
		}
		out := images.FromImage(fn(ctx, img))
		if arr.Channels == 1 {
			out = firstChannel(out)
		}
		return out, nil
	})
}

func firstChannel(arr *images.Array) *images.Array {
	gray := images.NewArray(arr.Height, arr.Width, 1)
	for ii := range gray.Data {
		gray.Data[ii] = arr.Data[ii*arr.Channels]
	}
	return gray
}

// FlipHorizontal randomly mirrors images left to right with the given probability.
func FlipHorizontal(prob float64, seed int64) Transform {
	flip := OnImage(func(_ Context, img image.Image) image.Image { return imaging.FlipH(img) })
	return Func(func(ctx Context, arr *images.Array) (*images.Array, error) {
		if SampleRand(seed, ctx).Float64() >= prob {
			return arr, nil
		}
		return flip.Apply(ctx, arr)
	})
}

// CenterCrop crops a size x size square from the center of the image. Images smaller than size are
// cropped to their intersection with the square.
func CenterCrop(size int) Transform {
	return OnImage(func(_ Context, img image.Image) image.Image { return imaging.CropCenter(img, size, size) })
}

// Scale resizes images such that their smaller side becomes size, see images.Resize.
func Scale(size int) Transform {
	return OnImage(func(_ Context, img image.Image) image.Image { return images.Resize(img, size) })
}
