// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package index discovers image files and their raw labels, either from a folder tree
// (`root/<split-folder>/<raw-label-folder>/<file>`) or from a CSV manifest.
//
// It only produces raw (filename, label string) pairs: mapping labels to indices is done by
// package labels.
package index

import (
	"os"
	"path"
	"slices"

	"github.com/gomlx/imagedata/pkg/data/dataerrors"
	"github.com/gomlx/imagedata/pkg/support/fsutil"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"k8s.io/klog/v2"
)

// RawRecord is one physical sample and one of its raw labels.
type RawRecord struct {
	// Path of the file relative to the dataset root, e.g. "train/01_wt/img_003.tif".
	Path string

	// Label is the raw label: the sub-folder name or the manifest token.
	Label string
}

// FolderScan is the result of scanning a split folder.
type FolderScan struct {
	// Folder is the split folder scanned, relative to the root.
	Folder string

	// Records are sorted by label folder and then by file name.
	Records []RawRecord

	// Labels holds every label folder found, sorted, including folders without any file.
	Labels []string
}

// Paths returns the file paths of the records, in order.
func (s *FolderScan) Paths() []string {
	paths := make([]string, len(s.Records))
	for ii, r := range s.Records {
		paths[ii] = r.Path
	}
	return paths
}

// RawLabels returns the label of each record, in order.
func (s *FolderScan) RawLabels() []string {
	lbls := make([]string, len(s.Records))
	for ii, r := range s.Records {
		lbls[ii] = r.Label
	}
	return lbls
}

// checkDir returns ErrNotFound if dirPath doesn't exist or is not a directory.
func checkDir(fs afero.Fs, dirPath, folder string) error {
	info, err := fs.Stat(dirPath)
	if errors.Is(err, os.ErrNotExist) {
		return dataerrors.NotFoundf("folder %q doesn't exist (looked at %q)", folder, dirPath)
	} else if err != nil {
		return errors.Wrapf(err, "failed to stat %q", dirPath)
	}
	if !info.IsDir() {
		return dataerrors.NotFoundf("%q is not a folder (looked at %q)", folder, dirPath)
	}
	return nil
}

// ScanFolder enumerates the immediate sub-directories of root/folder, using each sub-directory name as
// a raw label, and every file inside it as one RawRecord.
//
// Hidden entries (".DS_Store", ".ipynb_checkpoints", other dot-files) are skipped, as are plain files
// directly under root/folder and directories nested inside a label folder.
//
// It returns an error of kind dataerrors.ErrNotFound if the folder is absent, or if it has no label
// sub-directory or no file at all.
func ScanFolder(fs afero.Fs, root, folder string) (*FolderScan, error) {
	fullPath := path.Join(root, folder)
	if err := checkDir(fs, fullPath, folder); err != nil {
		return nil, err
	}
	entries, err := afero.ReadDir(fs, fullPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list folder %q", fullPath)
	}
	scan := &FolderScan{Folder: folder}
	for _, entry := range entries {
		if fsutil.IsHidden(entry.Name()) {
			continue
		}
		if !entry.IsDir() {
			klog.Warningf("ScanFolder(%q): skipping file %q, expected only label folders", fullPath, entry.Name())
			continue
		}
		label := entry.Name()
		scan.Labels = append(scan.Labels, label)
		files, err := afero.ReadDir(fs, path.Join(fullPath, label))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list label folder %q", path.Join(fullPath, label))
		}
		for _, file := range files {
			if fsutil.IsHidden(file.Name()) {
				continue
			}
			if file.IsDir() {
				klog.V(1).Infof("ScanFolder(%q): skipping nested folder %q", fullPath, path.Join(label, file.Name()))
				continue
			}
			scan.Records = append(scan.Records, RawRecord{
				Path:  path.Join(folder, label, file.Name()),
				Label: label,
			})
		}
	}
	// afero.ReadDir returns entries sorted by name, but make it explicit.
	slices.Sort(scan.Labels)
	if len(scan.Labels) == 0 {
		return nil, dataerrors.NotFoundf("folder %q has no label sub-folders", folder)
	}
	if len(scan.Records) == 0 {
		return nil, dataerrors.NotFoundf("folder %q has %d label sub-folders but no files", folder, len(scan.Labels))
	}
	klog.V(1).Infof("ScanFolder(%q): %d files in %d labels", fullPath, len(scan.Records), len(scan.Labels))
	return scan, nil
}

// ReadDir returns the paths, relative to root, of all files in root/folder whose name has an extension
// (the glob "*.*"). It's used for unlabeled splits, typically the test set.
//
// It returns an error of kind dataerrors.ErrNotFound if the folder doesn't exist or has no such file.
func ReadDir(fs afero.Fs, root, folder string) ([]string, error) {
	fullPath := path.Join(root, folder)
	matches, err := afero.Glob(fs, path.Join(fullPath, "*.*"))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %q", fullPath)
	}
	var fnames []string
	for _, match := range matches {
		name := path.Base(match)
		if fsutil.IsHidden(name) {
			continue
		}
		if info, err := fs.Stat(match); err == nil && info.IsDir() {
			continue
		}
		fnames = append(fnames, path.Join(folder, name))
	}
	if len(fnames) == 0 {
		return nil, dataerrors.NotFoundf("%s folder doesn't exist or is empty", folder)
	}
	slices.Sort(fnames)
	return fnames, nil
}
