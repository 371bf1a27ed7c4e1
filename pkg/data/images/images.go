// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package images opens image files as normalized float arrays, and maintains resized copies of
// image collections in a cache folder.
//
// All file access goes through an afero.Fs, so the same code runs on the OS filesystem
// (afero.NewOsFs) or in memory (afero.NewMemMapFs).
package images

import (
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/gomlx/imagedata/pkg/data/dataerrors"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Array holds one image in (height, width, channels) layout, with values normalized to [0.0, 1.0].
//
// Grayscale images have 1 channel, everything else is converted to 3 channels (RGB), dropping
// any alpha channel.
type Array struct {
	Height, Width, Channels int
	Data                    []float32
}

// NewArray returns a zero-filled array of the given shape.
func NewArray(height, width, channels int) *Array {
	return &Array{
		Height:   height,
		Width:    width,
		Channels: channels,
		Data:     make([]float32, height*width*channels),
	}
}

// Shape returns (height, width, channels).
func (a *Array) Shape() [3]int { return [3]int{a.Height, a.Width, a.Channels} }

// Index returns the position in Data of the value at (y, x, c).
func (a *Array) Index(y, x, c int) int { return (y*a.Width+x)*a.Channels + c }

// At returns the value at (y, x, c).
func (a *Array) At(y, x, c int) float32 { return a.Data[a.Index(y, x, c)] }

// Clone returns a deep copy.
func (a *Array) Clone() *Array {
	clone := *a
	clone.Data = make([]float32, len(a.Data))
	copy(clone.Data, a.Data)
	return &clone
}

// maxValue of the 16 bits channels returned by the color models.
const maxValue = float32(0xFFFF)

// FromImage converts img to an Array. 8-bit images are normalized by 255 and 16-bit images
// (e.g. TIFF microscopy images) by 65535: both come out in [0, 1].
func FromImage(img image.Image) *Array {
	bounds := img.Bounds()
	channels := 3
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		channels = 1
	}
	arr := NewArray(bounds.Dy(), bounds.Dx(), channels)
	pos := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if channels == 1 {
				g := color.Gray16Model.Convert(img.At(x, y)).(color.Gray16)
				arr.Data[pos] = float32(g.Y) / maxValue
				pos++
				continue
			}
			c := color.NRGBA64Model.Convert(img.At(x, y)).(color.NRGBA64)
			for _, channel := range [3]uint16{c.R, c.G, c.B} {
				arr.Data[pos] = float32(channel) / maxValue
				pos++
			}
		}
	}
	return arr
}

// ToImage converts the array back to an opaque 16-bit image. Values are clipped to [0, 1].
// It accepts 1 (grayscale) or 3 channels.
func ToImage(arr *Array) (*image.NRGBA64, error) {
	if arr.Channels != 1 && arr.Channels != 3 {
		return nil, dataerrors.Configurationf("can't convert array with %d channels to image, only 1 or 3 supported", arr.Channels)
	}
	img := image.NewNRGBA64(image.Rect(0, 0, arr.Width, arr.Height))
	toUint16 := func(v float32) uint16 {
		v = min(max(v, 0), 1)
		return uint16(v*maxValue + 0.5)
	}
	for y := 0; y < arr.Height; y++ {
		for x := 0; x < arr.Width; x++ {
			var c color.NRGBA64
			c.A = 0xFFFF
			if arr.Channels == 1 {
				v := toUint16(arr.At(y, x, 0))
				c.R, c.G, c.B = v, v, v
			} else {
				c.R, c.G, c.B = toUint16(arr.At(y, x, 0)), toUint16(arr.At(y, x, 1)), toUint16(arr.At(y, x, 2))
			}
			img.SetNRGBA64(x, y, c)
		}
	}
	return img, nil
}

// Decode opens and decodes the image at filePath.
//
// It returns an error of kind dataerrors.ErrNotFound if the path doesn't exist or if it is a
// directory (with distinct messages), and a dataerrors.DecodeError if the contents can't be decoded.
func Decode(fs afero.Fs, filePath string) (image.Image, error) {
	info, err := fs.Stat(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, dataerrors.NotFoundf("no such file or directory: %q", filePath)
		}
		return nil, errors.Wrapf(err, "failed to stat %q", filePath)
	}
	if info.IsDir() {
		return nil, dataerrors.NotFoundf("is a directory: %q", filePath)
	}
	f, err := fs.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %q", filePath)
	}
	defer func() { _ = f.Close() }()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, dataerrors.NewDecodeError(filePath, err)
	}
	return img, nil
}

// Open decodes the image at filePath and converts it to a normalized Array.
// See Decode for the errors returned.
func Open(fs afero.Fs, filePath string) (*Array, error) {
	img, err := Decode(fs, filePath)
	if err != nil {
		return nil, err
	}
	return FromImage(img), nil
}

// Batch is a stack of arrays of the same shape, in (count, height, width, channels) layout.
type Batch struct {
	Count, Height, Width, Channels int
	Data                           []float32
}

// Stack copies the arrays, which must all have the same shape, into one Batch.
// An empty input returns an empty Batch.
func Stack(arrays []*Array) (*Batch, error) {
	if len(arrays) == 0 {
		return &Batch{}, nil
	}
	first := arrays[0]
	b := &Batch{
		Count:    len(arrays),
		Height:   first.Height,
		Width:    first.Width,
		Channels: first.Channels,
	}
	itemSize := len(first.Data)
	b.Data = make([]float32, 0, itemSize*len(arrays))
	for ii, arr := range arrays {
		if arr.Shape() != first.Shape() {
			return nil, dataerrors.Configurationf(
				"can't stack images of different shapes: image #%d has shape %v, image #0 has shape %v -- use a transform to crop or resize them",
				ii, arr.Shape(), first.Shape())
		}
		b.Data = append(b.Data, arr.Data...)
	}
	return b, nil
}

// Item returns a copy of the i-th array of the batch.
func (b *Batch) Item(i int) *Array {
	arr := NewArray(b.Height, b.Width, b.Channels)
	size := len(arr.Data)
	copy(arr.Data, b.Data[i*size:(i+1)*size])
	return arr
}
