// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package labels

import (
	"github.com/gomlx/imagedata/pkg/data/dataerrors"
	"github.com/gomlx/imagedata/pkg/data/index"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Resolved holds the per-record indices of a resolution, aligned with the records given.
type Resolved struct {
	Paths   []string
	Classes []int
	Sources []int
}

// Resolve maps each record to its class and source indices using table.
//
// If the table is empty it is first populated with universe (or, if universe is nil, with the
// distinct labels of records in order of appearance). Otherwise, the records are only looked up, and
// a raw label not in the table yields an error of kind dataerrors.ErrLabelUniverse.
func Resolve(table *Table, universe []string, records []index.RawRecord, rule Rule) (*Resolved, error) {
	if table.Len() == 0 {
		if table.IsFinalized() {
			return nil, dataerrors.Configurationf("label table is finalized but empty")
		}
		if universe == nil {
			universe = make([]string, 0, len(records))
			for _, r := range records {
				universe = append(universe, r.Label)
			}
		}
		if err := table.Populate(universe, rule); err != nil {
			return nil, err
		}
	}
	res := &Resolved{
		Paths:   make([]string, len(records)),
		Classes: make([]int, len(records)),
		Sources: make([]int, len(records)),
	}
	for ii, r := range records {
		entry, err := table.Lookup(r.Label)
		if err != nil {
			return nil, errors.WithMessagef(err, "resolving %q", r.Path)
		}
		res.Paths[ii] = r.Path
		res.Classes[ii] = entry.Class
		res.Sources[ii] = entry.Source
	}
	return res, nil
}

// FolderSource is a labeled split read from a folder tree.
type FolderSource struct {
	// Filenames relative to the dataset root.
	Filenames []string

	// ClassIdx and SourceIdx are aligned with Filenames.
	ClassIdx, SourceIdx []int

	// ClassNames in class index order.
	ClassNames []string

	// RawLabels are all the label folders found in this split, sorted.
	RawLabels []string
}

// Len returns the number of samples.
func (src *FolderSource) Len() int { return len(src.Filenames) }

// FromFolder scans root/folder and resolves its labels with table. Folders listed but empty still
// take part in the populated label universe.
func FromFolder(fs afero.Fs, root, folder string, table *Table, rule Rule) (*FolderSource, error) {
	scan, err := index.ScanFolder(fs, root, folder)
	if err != nil {
		return nil, err
	}
	res, err := Resolve(table, scan.Labels, scan.Records, rule)
	if err != nil {
		return nil, errors.WithMessagef(err, "in folder %q", folder)
	}
	return &FolderSource{
		Filenames:  res.Paths,
		ClassIdx:   res.Classes,
		SourceIdx:  res.Sources,
		ClassNames: table.ClassNames(),
		RawLabels:  scan.Labels,
	}, nil
}
