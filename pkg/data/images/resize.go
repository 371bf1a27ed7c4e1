// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package images

import (
	"image"
	"math"
	"path"
	"strconv"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/gomlx/imagedata/internal/workerspool"
	"github.com/gomlx/imagedata/pkg/data/dataerrors"
	"github.com/gomlx/imagedata/pkg/support/fsutil"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"k8s.io/klog/v2"
)

// DefaultResizeWorkers is the number of images resized in parallel by ResizeAll, if not configured.
const DefaultResizeWorkers = 8

// ScaleTo returns side scaled by ratio (rounded down), but never smaller than target.
func ScaleTo(side int, ratio float64, target int) int {
	return max(int(math.Floor(float64(side)*ratio)), target)
}

// TargetSize returns the dimensions to resize an image of the given dimensions, such that the
// smaller side becomes target, preserving the aspect ratio.
func TargetSize(width, height, target int) (newWidth, newHeight int) {
	ratio := float64(target) / float64(min(width, height))
	return ScaleTo(width, ratio, target), ScaleTo(height, ratio, target)
}

// Resize img with a linear filter such that its smaller side becomes target.
// The result is opaque: any alpha channel is dropped.
func Resize(img image.Image, target int) *image.NRGBA {
	size := img.Bounds().Size()
	width, height := TargetSize(size.X, size.Y, target)
	resized := imaging.Resize(img, width, height, imaging.Linear)
	for ii := 3; ii < len(resized.Pix); ii += 4 {
		resized.Pix[ii] = 0xFF
	}
	return resized
}

// CacheDir returns the directory where ResizeAll writes the images resized to target.
func CacheDir(root, cacheFolder string, target int) string {
	return path.Join(root, cacheFolder, strconv.Itoa(target))
}

// ResizeFile resizes root/fname into destRoot/fname, see Resize. The output format is taken from
// the file extension.
//
// It does nothing if the destination already exists.
func ResizeFile(fs afero.Fs, root, fname string, target int, destRoot string) error {
	dst := path.Join(destRoot, fname)
	exists, err := fsutil.FileExists(fs, dst)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	format, err := imaging.FormatFromFilename(dst)
	if err != nil {
		return dataerrors.Configurationf("can't resize %q: %v", fname, err)
	}
	img, err := Decode(fs, path.Join(root, fname))
	if err != nil {
		return err
	}
	resized := Resize(img, target)
	if err = fs.MkdirAll(path.Dir(dst), 0755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %q", dst)
	}
	f, err := fs.Create(dst)
	if err != nil {
		return errors.Wrapf(err, "failed to create %q", dst)
	}
	if err = imaging.Encode(f, resized, format); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "failed to encode %q", dst)
	}
	return errors.Wrapf(f.Close(), "failed to close %q", dst)
}

// ResizeOptions configures ResizeAll.
type ResizeOptions struct {
	// Workers is the number of images resized in parallel, defaults to DefaultResizeWorkers.
	Workers int

	// Progress, if set, is called after each image is processed, with the number of images processed
	// so far. Calls are serialized.
	Progress func(done int)
}

// ResizeAll resizes every root/fname to the cache directory root/cacheFolder/target/fname, and
// returns the cache directory.
//
// Files whose destination already exists are skipped, so re-running after a partial failure only
// resizes the missing ones.
//
// Failures of individual files don't stop the others: they are logged and returned together
// as a dataerrors.FileErrors once all files were processed.
func ResizeAll(fs afero.Fs, root string, fnames []string, target int, cacheFolder string, opts ResizeOptions) (string, error) {
	destRoot := CacheDir(root, cacheFolder, target)
	if target <= 0 {
		return destRoot, dataerrors.Configurationf("invalid resize target %d", target)
	}
	if len(fnames) == 0 {
		return destRoot, nil
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultResizeWorkers
	}
	pool := workerspool.NewWithParallelism(workers)
	var (
		mu     sync.Mutex
		done   int
		failed dataerrors.FileErrors
	)
	for _, fname := range fnames {
		pool.WaitToStart(func() {
			err := ResizeFile(fs, root, fname, target, destRoot)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				klog.Errorf("failed to resize %q: %v", fname, err)
				failed = append(failed, errors.WithMessagef(err, "resizing %q", fname))
			}
			done++
			if opts.Progress != nil {
				opts.Progress(done)
			}
		})
	}
	pool.Wait()
	if len(failed) > 0 {
		return destRoot, errors.WithMessagef(failed, "%d of %d images failed to resize", len(failed), len(fnames))
	}
	klog.V(1).Infof("resized %d images from %q to %q", len(fnames), root, destRoot)
	return destRoot, nil
}
