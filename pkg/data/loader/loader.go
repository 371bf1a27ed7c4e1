// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package loader iterates over a dataset view in batches.
//
// A Loader follows the usual dataset iteration protocol: Yield returns the next batch until the
// epoch is exhausted, when it returns io.EOF; Reset starts a new epoch. Each epoch visits the
// samples sequentially, in a random permutation (Shuffle), or drawn with replacement proportionally to
// per-sample Weights.
//
// Within a batch, samples are loaded and transformed in parallel, and assembled in order.
package loader

import (
	"io"
	"math/rand"
	"sort"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/imagedata/internal/workerspool"
	"github.com/gomlx/imagedata/pkg/data/dataerrors"
	"github.com/gomlx/imagedata/pkg/data/dataset"
	"github.com/gomlx/imagedata/pkg/support/xslices"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Options configures a Loader.
type Options struct {
	// BatchSize is the maximum number of samples per batch. The last batch of an epoch may be smaller.
	BatchSize int

	// Shuffle visits the samples in a new random order every epoch.
	Shuffle bool

	// Weights, if set, has one non-negative weight per sample. Every epoch then draws Len()
	// samples with replacement, with probability proportional to their weight. It takes precedence
	// over Shuffle.
	Weights []float64

	// Workers is the number of samples loaded in parallel. 0 loads them in the goroutine calling Yield,
	// and a negative value doesn't limit parallelism.
	Workers int

	// Seed for the shuffling and sampling.
	Seed int64
}

// Loader yields batches of a dataset.View. It is not safe for concurrent use: Yield and Reset
// should be called from one goroutine.
type Loader struct {
	name string
	view *dataset.View
	opts Options

	rng        *rand.Rand
	pool       *workerspool.Pool
	cumWeights []float64

	order []int
	pos   int
	epoch int
}

// New creates a loader for view. The name is used for logging.
func New(name string, view *dataset.View, opts Options) (*Loader, error) {
	if opts.BatchSize <= 0 {
		return nil, dataerrors.Configurationf("loader %q: invalid batch size %d", name, opts.BatchSize)
	}
	l := &Loader{
		name: name,
		view: view,
		opts: opts,
		rng:  rand.New(rand.NewSource(opts.Seed)),
		pool: workerspool.NewWithParallelism(opts.Workers),
	}
	if opts.Weights != nil {
		if len(opts.Weights) != view.Len() {
			return nil, dataerrors.Configurationf("loader %q: %d weights given for %d samples", name, len(opts.Weights), view.Len())
		}
		l.cumWeights = make([]float64, len(opts.Weights))
		var total float64
		for ii, w := range opts.Weights {
			if w < 0 {
				return nil, dataerrors.Configurationf("loader %q: negative weight %g for sample %d", name, w, ii)
			}
			total += w
			l.cumWeights[ii] = total
		}
		if total <= 0 && view.Len() > 0 {
			return nil, dataerrors.Configurationf("loader %q: weights sum to %g", name, total)
		}
	}
	l.newEpoch()
	return l, nil
}

// Name of the loader.
func (l *Loader) Name() string { return l.name }

// View returns the dataset view iterated.
func (l *Loader) View() *dataset.View { return l.view }

// BatchSize returns the configured batch size.
func (l *Loader) BatchSize() int { return l.opts.BatchSize }

// Epoch returns the current epoch, starting at 0 and incremented by Reset.
func (l *Loader) Epoch() int { return l.epoch }

// NumBatches returns the number of batches per epoch.
func (l *Loader) NumBatches() int {
	return (len(l.order) + l.opts.BatchSize - 1) / l.opts.BatchSize
}

// newEpoch selects the order in which samples are visited.
func (l *Loader) newEpoch() {
	n := l.view.Len()
	l.pos = 0
	switch {
	case l.cumWeights != nil && n > 0:
		l.order = make([]int, n)
		total := l.cumWeights[n-1]
		for ii := range l.order {
			// First cumulative weight strictly above r: zero weight samples are never selected.
			r := l.rng.Float64() * total
			l.order[ii] = sort.Search(n, func(i int) bool { return l.cumWeights[i] > r })
		}
	case l.opts.Shuffle:
		l.order = l.rng.Perm(n)
	default:
		l.order = xslices.Iota(0, n)
	}
}

// Reset starts a new epoch.
func (l *Loader) Reset() {
	l.epoch++
	l.newEpoch()
	klog.V(2).Infof("loader %q: epoch %d", l.name, l.epoch)
}

// Yield returns the next batch, or io.EOF when the epoch is over.
//
// Errors loading or transforming any of the samples are returned, and panics are converted to errors.
// The batch is then skipped: calling Yield again continues with the next batch.
func (l *Loader) Yield() (*dataset.Batch, error) {
	if l.pos >= len(l.order) {
		return nil, io.EOF
	}
	end := min(l.pos+l.opts.BatchSize, len(l.order))
	indices := l.order[l.pos:end]
	l.pos = end

	items := make([]*dataset.Item, len(indices))
	errs := make([]error, len(indices))
	for ii, idx := range indices {
		l.pool.WaitToStart(func() {
			items[ii], errs[ii] = l.load(idx)
		})
	}
	l.pool.Wait()
	for ii, err := range errs {
		if err != nil {
			return nil, errors.WithMessagef(err, "loader %q: loading sample %d", l.name, indices[ii])
		}
	}
	return dataset.NewBatch(l.view.Kind(), items)
}

// load one sample, converting panics to errors.
func (l *Loader) load(idx int) (item *dataset.Item, err error) {
	exception := exceptions.Try(func() {
		item, err = l.view.GetInEpoch(idx, l.epoch)
	})
	if exception != nil {
		if e, ok := exception.(error); ok {
			return nil, errors.WithMessage(e, "panic")
		}
		return nil, errors.Errorf("panic: %v", exception)
	}
	return
}
