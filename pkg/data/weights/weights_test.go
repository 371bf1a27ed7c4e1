package weights

import (
	"math"
	"math/rand"
	"testing"

	"github.com/gomlx/imagedata/pkg/data/dataerrors"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// imbalanced returns counts[k] samples of each class k.
func imbalanced(counts ...int) []int {
	var classes []int
	for k, c := range counts {
		for range c {
			classes = append(classes, k)
		}
	}
	return classes
}

func sumPerClass(classes []int, weights []float64) map[int]float64 {
	sums := make(map[int]float64)
	for ii, k := range classes {
		sums[k] += weights[ii]
	}
	return sums
}

func TestBincount(t *testing.T) {
	counts, err := Bincount([]int32{0, 2, 2, 5})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 2, 0, 0, 1}, counts)

	_, err = Bincount([]int{1, -1})
	assert.True(t, errors.Is(err, dataerrors.ErrConfiguration))
}

func TestDefault(t *testing.T) {
	classes := imbalanced(80, 20)
	weights, err := Default(classes)
	require.NoError(t, err)
	require.Len(t, weights, 100)
	for ii, w := range weights {
		require.InDeltaf(t, 1.0, w, 1e-9, "sample %d", ii) // 100/n
	}
	sums := sumPerClass(classes, weights)
	assert.InDelta(t, 80.0, sums[0], 1e-6)
	assert.InDelta(t, 20.0, sums[1], 1e-6)
}

func TestAdjusted(t *testing.T) {
	classes := imbalanced(80, 20)
	weights, err := Adjusted(classes)
	require.NoError(t, err)
	sums := sumPerClass(classes, weights)
	assert.InDelta(t, sums[0], sums[1], 1e-6)
	assert.InDelta(t, 50.0, sums[0], 1e-6)
	assert.InDelta(t, 50.0, sums[1], 1e-6)

	// Same class, same weight.
	assert.Equal(t, weights[0], weights[79])
	assert.Equal(t, weights[80], weights[99])
	assert.Greater(t, weights[80], weights[0])

	// Three classes, one of the indices never observed.
	classes = append(imbalanced(10, 0, 30), imbalanced(0, 0, 0, 5)...)
	weights, err = Adjusted(classes)
	require.NoError(t, err)
	desired := 100.0 / 3
	for k, sum := range sumPerClass(classes, weights) {
		assert.InDeltaf(t, desired, sum, 1e-6, "class %d", k)
	}
	for _, w := range weights {
		assert.False(t, math.IsNaN(w))
		assert.GreaterOrEqual(t, w, 0.0)
	}
}

func TestEmpty(t *testing.T) {
	_, err := Default(nil)
	assert.True(t, errors.Is(err, dataerrors.ErrEmptyDataset))
	_, err = Adjusted([]int{})
	assert.True(t, errors.Is(err, dataerrors.ErrEmptyDataset))
	_, _, err = Oversample[string](nil, nil, rand.New(rand.NewSource(1)))
	assert.True(t, errors.Is(err, dataerrors.ErrEmptyDataset))
}

func TestOversample(t *testing.T) {
	fnames := []string{"a1", "b1", "a2", "a3"}
	classes := []int{0, 1, 0, 0}
	outNames, outClasses, err := Oversample(fnames, classes, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	require.Len(t, outNames, 6)
	require.Len(t, outClasses, 6)

	// Originals untouched, in order.
	assert.Equal(t, fnames, outNames[:4])
	assert.Equal(t, classes, outClasses[:4])
	assert.Equal(t, []string{"a1", "b1", "a2", "a3"}, fnames, "input must not be modified")

	// Synthetic entries come from the B pool.
	assert.Equal(t, []string{"b1", "b1"}, outNames[4:])
	assert.Equal(t, []int{1, 1}, outClasses[4:])

	counts, err := Bincount(outClasses)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 3}, counts)
}

func TestOversampleNoReplacementWithinPool(t *testing.T) {
	// Class 1 lacks 3 samples and has a pool of 4: all 3 duplicates must be distinct.
	classes := imbalanced(7, 4)
	fnames := make([]string, len(classes))
	for ii := range fnames {
		fnames[ii] = string(rune('a' + ii))
	}
	outNames, outClasses, err := Oversample(fnames, classes, rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	require.Len(t, outNames, 14)
	extra := outNames[11:]
	seen := make(map[string]bool)
	for ii, name := range extra {
		assert.Equal(t, 1, outClasses[11+ii])
		assert.Contains(t, fnames[7:], name)
		assert.False(t, seen[name], "duplicate %q drawn twice", name)
		seen[name] = true
	}
}

func TestOversampleIndices(t *testing.T) {
	indices := []int{0, 1, 2, 3, 4}
	classes := []int{2, 2, 2, 0, 0}
	out, outClasses, err := Oversample(indices, classes, rand.New(rand.NewSource(5)))
	require.NoError(t, err)
	assert.Len(t, out, 6)
	assert.Contains(t, []int{3, 4}, out[5])
	assert.Equal(t, 0, outClasses[5])

	_, _, err = Oversample(indices, classes[:3], rand.New(rand.NewSource(5)))
	assert.True(t, errors.Is(err, dataerrors.ErrConfiguration))
}

func TestMode(t *testing.T) {
	for _, m := range []Mode{None, DefaultWeights, AdjustedWeights, Oversampling} {
		parsed, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}
	m, err := ParseMode(" Adjusted ")
	require.NoError(t, err)
	assert.Equal(t, AdjustedWeights, m)
	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, None, m)
	_, err = ParseMode("smote")
	assert.True(t, errors.Is(err, dataerrors.ErrConfiguration))

	classes := imbalanced(3, 1)
	w, err := AdjustedWeights.Compute(classes)
	require.NoError(t, err)
	assert.Len(t, w, 4)
	w, err = Oversampling.Compute(classes)
	require.NoError(t, err)
	assert.Nil(t, w)
}
