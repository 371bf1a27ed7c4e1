package transforms

import (
	"testing"

	"github.com/gomlx/imagedata/pkg/data/dataerrors"
	"github.com/gomlx/imagedata/pkg/data/images"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gradient returns an image whose red channel grows from left to right.
func gradient(height, width, channels int) *images.Array {
	arr := images.NewArray(height, width, channels)
	for y := range height {
		for x := range width {
			arr.Data[arr.Index(y, x, 0)] = float32(x) / float32(width-1)
		}
	}
	return arr
}

func TestPipeline(t *testing.T) {
	addOne := Func(func(_ Context, arr *images.Array) (*images.Array, error) {
		out := arr.Clone()
		for ii := range out.Data {
			out.Data[ii]++
		}
		return out, nil
	})
	p := NewPipeline(4, addOne, addOne)
	arr := images.NewArray(1, 1, 1)
	out := must.M1(p.Apply(Context{}, arr))
	assert.Equal(t, float32(2), out.Data[0])
	assert.Equal(t, float32(0), arr.Data[0], "input must not be modified")

	var nilPipeline *Pipeline
	out = must.M1(nilPipeline.Apply(Context{}, arr))
	assert.Same(t, arr, out)

	failing := NewPipeline(0, Func(func(Context, *images.Array) (*images.Array, error) {
		return nil, dataerrors.Configurationf("boom")
	}), addOne)
	_, err := failing.Apply(Context{}, arr)
	assert.True(t, errors.Is(err, dataerrors.ErrConfiguration))
}

func TestSet(t *testing.T) {
	train, eval := NewPipeline(8), NewPipeline(8)
	_, err := NewSet(train, nil)
	assert.True(t, errors.Is(err, dataerrors.ErrConfiguration))
	_, err = NewSet(nil, eval)
	assert.True(t, errors.Is(err, dataerrors.ErrConfiguration))

	s := must.M1(NewSet(train, eval))
	assert.Same(t, eval, s.TestPipeline())
	test := NewPipeline(8)
	s.Test = test
	assert.Same(t, test, s.TestPipeline())
}

func TestFlipHorizontal(t *testing.T) {
	arr := gradient(2, 5, 3)

	always := FlipHorizontal(1.0, 7)
	out := must.M1(always.Apply(Context{Index: 3}, arr))
	assert.Equal(t, arr.Shape(), out.Shape())
	assert.InDelta(t, 1.0, out.At(0, 0, 0), 1e-4)
	assert.InDelta(t, 0.0, out.At(1, 4, 0), 1e-4)

	never := FlipHorizontal(0.0, 7)
	out = must.M1(never.Apply(Context{Index: 3}, arr))
	assert.Same(t, arr, out)

	// Deterministic given seed and context, and flips about half of the samples.
	half := FlipHorizontal(0.5, 11)
	var flipped int
	for ii := range 200 {
		ctx := Context{Index: ii, Epoch: 1}
		first := must.M1(half.Apply(ctx, arr))
		second := must.M1(half.Apply(ctx, arr))
		assert.Equal(t, first.Data, second.Data)
		if first != arr {
			flipped++
		}
	}
	assert.Greater(t, flipped, 60)
	assert.Less(t, flipped, 140)
}

func TestGrayscaleKeepsChannels(t *testing.T) {
	arr := gradient(3, 4, 1)
	out := must.M1(FlipHorizontal(1.0, 0).Apply(Context{}, arr))
	assert.Equal(t, [3]int{3, 4, 1}, out.Shape())
	assert.InDelta(t, 1.0, out.At(0, 0, 0), 1e-4)
}

func TestCenterCropAndScale(t *testing.T) {
	arr := gradient(6, 10, 3)
	out := must.M1(CenterCrop(4).Apply(Context{}, arr))
	assert.Equal(t, [3]int{4, 4, 3}, out.Shape())

	out = must.M1(Scale(3).Apply(Context{}, arr))
	assert.Equal(t, [3]int{3, 5, 3}, out.Shape())

	p := NewPipeline(3, Scale(3), CenterCrop(3))
	out = must.M1(p.Apply(Context{}, arr))
	assert.Equal(t, [3]int{3, 3, 3}, out.Shape())
}

func TestNormalize(t *testing.T) {
	_, err := NewNormalize([]float32{0.5}, []float32{0.5, 0.5})
	assert.True(t, errors.Is(err, dataerrors.ErrConfiguration))
	_, err = NewNormalize([]float32{0.5}, []float32{0})
	assert.True(t, errors.Is(err, dataerrors.ErrConfiguration))

	norm := must.M1(NewNormalize([]float32{0.5, 0, 0.25}, []float32{0.5, 1, 0.25}))
	arr := images.NewArray(1, 2, 3)
	copy(arr.Data, []float32{1, 0.5, 0.5, 0, 0, 0})
	out := must.M1(norm.Apply(Context{}, arr))
	assert.InDeltaSlice(t, []float32{1, 0.5, 1, -1, 0, -1}, out.Data, 1e-6)

	back := must.M1(norm.Denorm(out))
	assert.InDeltaSlice(t, arr.Data, back.Data, 1e-6)

	_, err = norm.Apply(Context{}, images.NewArray(1, 1, 1))
	assert.True(t, errors.Is(err, dataerrors.ErrConfiguration))
}

func TestStats(t *testing.T) {
	a := images.NewArray(1, 2, 2)
	copy(a.Data, []float32{0, 0.5, 1, 0.5})
	b := images.NewArray(1, 2, 2)
	copy(b.Data, []float32{0, 0.5, 1, 0.5})
	mean, std, err := Stats(a, b)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0.5, 0.5}, mean, 1e-6)
	assert.InDelta(t, 0.5, std[0], 1e-6)
	assert.Equal(t, float32(1), std[1], "constant channel gets std 1")

	_, _, err = Stats()
	assert.True(t, errors.Is(err, dataerrors.ErrEmptyDataset))
	_, _, err = Stats(a, images.NewArray(1, 1, 3))
	assert.True(t, errors.Is(err, dataerrors.ErrConfiguration))
}

func TestPipelineDenorm(t *testing.T) {
	norm := must.M1(NewNormalize([]float32{0.5}, []float32{0.25}))
	p := NewPipeline(2, FlipHorizontal(0, 1), norm)
	arr := gradient(2, 2, 1)
	out := must.M1(p.Apply(Context{}, arr))
	back := must.M1(p.Denorm(out))
	assert.InDeltaSlice(t, arr.Data, back.Data, 1e-6)
}
