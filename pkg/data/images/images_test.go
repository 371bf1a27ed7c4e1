package images

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"path"
	"testing"

	"github.com/gomlx/imagedata/pkg/data/dataerrors"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"
)

// writePNG writes a width x height image filled with c.
func writePNG(t *testing.T, fs afero.Fs, filePath string, width, height int, c color.Color) {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, fs.MkdirAll(path.Dir(filePath), 0755))
	require.NoError(t, afero.WriteFile(fs, filePath, buf.Bytes(), 0644))
}

func TestOpen(t *testing.T) {
	fs := afero.NewMemMapFs()
	writePNG(t, fs, "data/train/0_wt/a.png", 4, 3, color.NRGBA{R: 255, G: 51, B: 0, A: 255})
	arr, err := Open(fs, "data/train/0_wt/a.png")
	require.NoError(t, err)
	assert.Equal(t, [3]int{3, 4, 3}, arr.Shape())
	assert.InDelta(t, 1.0, arr.At(2, 3, 0), 1e-6)
	assert.InDelta(t, 0.2, arr.At(2, 3, 1), 1e-6)
	assert.InDelta(t, 0.0, arr.At(2, 3, 2), 1e-6)
	for _, v := range arr.Data {
		assert.True(t, v >= 0 && v <= 1)
	}
}

func TestOpen16BitsTIFF(t *testing.T) {
	fs := afero.NewMemMapFs()
	img := image.NewGray16(image.Rect(0, 0, 2, 2))
	img.SetGray16(0, 0, color.Gray16{Y: 0xFFFF})
	img.SetGray16(1, 0, color.Gray16{Y: 0x8000})
	var buf bytes.Buffer
	require.NoError(t, tiff.Encode(&buf, img, nil))
	require.NoError(t, afero.WriteFile(fs, "cells.tif", buf.Bytes(), 0644))

	arr, err := Open(fs, "cells.tif")
	require.NoError(t, err)
	assert.Equal(t, [3]int{2, 2, 1}, arr.Shape())
	assert.InDelta(t, 1.0, arr.At(0, 0, 0), 1e-6)
	assert.InDelta(t, float64(0x8000)/0xFFFF, arr.At(0, 1, 0), 1e-6)
	assert.InDelta(t, 0.0, arr.At(1, 1, 0), 1e-6)
}

func TestOpenErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("data/train", 0755))
	require.NoError(t, afero.WriteFile(fs, "data/garbage.png", []byte("not an image"), 0644))

	_, errMissing := Open(fs, "data/missing.png")
	require.Error(t, errMissing)
	assert.True(t, errors.Is(errMissing, dataerrors.ErrNotFound))

	_, errDir := Open(fs, "data/train")
	require.Error(t, errDir)
	assert.True(t, errors.Is(errDir, dataerrors.ErrNotFound))
	assert.NotEqual(t, errMissing.Error(), errDir.Error())
	assert.Contains(t, errDir.Error(), "is a directory")

	_, err := Open(fs, "data/garbage.png")
	require.Error(t, err)
	assert.True(t, errors.Is(err, dataerrors.ErrDecode))
	assert.False(t, errors.Is(err, dataerrors.ErrNotFound))
	var decodeErr *dataerrors.DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Equal(t, "data/garbage.png", decodeErr.Path)
	assert.NotNil(t, decodeErr.Err)
}

func TestToImage(t *testing.T) {
	arr := NewArray(2, 3, 3)
	arr.Data[arr.Index(1, 2, 0)] = 1.0
	arr.Data[arr.Index(1, 2, 1)] = 2.0 // Clipped.
	arr.Data[arr.Index(0, 0, 2)] = -1  // Clipped.
	img := must.M1(ToImage(arr))
	assert.Equal(t, image.Pt(3, 2), img.Bounds().Size())
	c := img.NRGBA64At(2, 1)
	assert.Equal(t, color.NRGBA64{R: 0xFFFF, G: 0xFFFF, B: 0, A: 0xFFFF}, c)
	assert.Equal(t, uint16(0), img.NRGBA64At(0, 0).B)

	back := FromImage(img)
	assert.Equal(t, arr.Shape(), back.Shape())
	assert.InDelta(t, 1.0, back.At(1, 2, 0), 1e-6)

	_, err := ToImage(NewArray(1, 1, 2))
	assert.True(t, errors.Is(err, dataerrors.ErrConfiguration))
}

func TestStack(t *testing.T) {
	a, b := NewArray(2, 2, 3), NewArray(2, 2, 3)
	b.Data[0] = 0.5
	batch, err := Stack([]*Array{a, b})
	require.NoError(t, err)
	assert.Equal(t, 2, batch.Count)
	assert.Len(t, batch.Data, 2*2*2*3)
	assert.Equal(t, float32(0.5), batch.Data[12])
	assert.Equal(t, b.Data, batch.Item(1).Data)

	_, err = Stack([]*Array{a, NewArray(3, 2, 3)})
	assert.True(t, errors.Is(err, dataerrors.ErrConfiguration))

	empty, err := Stack(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Count)
}
