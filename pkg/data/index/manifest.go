// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package index

import (
	"bytes"
	"slices"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/gomlx/imagedata/pkg/data/dataerrors"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"k8s.io/klog/v2"
)

// CSVOptions configures ParseCSVLabels.
type CSVOptions struct {
	// SkipHeader indicates the first row is a header and not a sample.
	SkipHeader bool

	// Delimiter of the columns. Defaults to ','.
	Delimiter rune

	// CategorySeparator separates the labels in the second column. Defaults to " ".
	CategorySeparator string
}

// DefaultCSVOptions returns the CSVOptions for a comma separated file with header and
// space separated categories.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{SkipHeader: true, Delimiter: ',', CategorySeparator: " "}
}

// Manifest holds the contents of a CSV manifest.
type Manifest struct {
	// Filenames as listed in the first column, sorted.
	Filenames []string

	// Labels maps each filename to its labels, in the order they are listed.
	Labels map[string][]string
}

// Records returns one RawRecord per (filename, label) pair, sorted by filename.
// A filename with several labels yields several records.
func (m *Manifest) Records() []RawRecord {
	var records []RawRecord
	for _, fname := range m.Filenames {
		for _, lbl := range m.Labels[fname] {
			records = append(records, RawRecord{Path: fname, Label: lbl})
		}
	}
	return records
}

// ParseCSVLabels parses a two columns table: the first column is the filename and the second the
// list of categories separated by opts.CategorySeparator.
//
// Empty tokens (e.g. from repeated separators) are dropped. If a filename appears more than once,
// the last row wins. A manifest without any sample row returns an error of kind dataerrors.ErrNotFound.
func ParseCSVLabels(fs afero.Fs, csvPath string, opts CSVOptions) (*Manifest, error) {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	if opts.CategorySeparator == "" {
		opts.CategorySeparator = " "
	}
	contents, err := afero.ReadFile(fs, csvPath)
	if err != nil {
		return nil, dataerrors.NotFoundf("manifest %q: %v", csvPath, err)
	}
	minRows := 1
	if opts.SkipHeader {
		minRows = 2
	}
	if countRows(contents) < minRows {
		return nil, dataerrors.NotFoundf("manifest %q has no samples", csvPath)
	}

	df := dataframe.ReadCSV(bytes.NewReader(contents),
		dataframe.HasHeader(opts.SkipHeader),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nil),
		dataframe.WithDelimiter(opts.Delimiter))
	if df.Err != nil {
		return nil, errors.Wrapf(df.Err, "failed to parse manifest %q", csvPath)
	}
	names := df.Names()
	if len(names) < 2 {
		return nil, dataerrors.Configurationf("manifest %q has %d column(s), expected filename and categories",
			csvPath, len(names))
	}
	if len(names) > 2 {
		klog.Warningf("ParseCSVLabels(%q): ignoring %d extra columns", csvPath, len(names)-2)
	}
	fnameCol := df.Col(names[0]).Records()
	catsCol := df.Col(names[1]).Records()
	if len(fnameCol) == 0 {
		return nil, dataerrors.NotFoundf("manifest %q has no samples", csvPath)
	}

	m := &Manifest{Labels: make(map[string][]string, len(fnameCol))}
	for row, fname := range fnameCol {
		if _, found := m.Labels[fname]; found {
			klog.Warningf("ParseCSVLabels(%q): filename %q repeated in row %d, using the last one", csvPath, fname, row)
		} else {
			m.Filenames = append(m.Filenames, fname)
		}
		var cats []string
		for _, token := range strings.Split(catsCol[row], opts.CategorySeparator) {
			if token = strings.TrimSpace(token); token != "" {
				cats = append(cats, token)
			}
		}
		m.Labels[fname] = cats
	}
	slices.Sort(m.Filenames)
	return m, nil
}

// countRows returns the number of non-blank lines.
func countRows(contents []byte) (n int) {
	for _, line := range bytes.Split(contents, []byte("\n")) {
		if len(bytes.TrimSpace(line)) > 0 {
			n++
		}
	}
	return
}
