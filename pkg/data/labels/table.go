// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package labels maps raw label strings (folder names or manifest tokens) to two index spaces:
// the fine-grained source index (one per raw label) and the coarse class index (one per semantic
// class, possibly shared by many raw labels).
//
// The mapping lives in a Table that is populated by the first resolution (usually the training
// split) and then shared by the following ones (validation, test), so indices are stable across
// splits. Call order matters: the first split resolved defines the universe of labels, and later
// splits can only use labels already in it.
package labels

import (
	"strings"

	"github.com/gomlx/imagedata/pkg/data/dataerrors"
	"github.com/gomlx/imagedata/pkg/support/sets"
)

// Rule derives the class name from a raw label.
type Rule func(rawLabel string) (className string, err error)

// Identity uses the raw label as the class name: one source per class.
func Identity(rawLabel string) (string, error) { return rawLabel, nil }

// SplitSegment returns a Rule that splits the raw label on sep and takes the given segment
// (0-based). E.g. SplitSegment("_", 1) maps "exp01_wt_day3" to "wt".
//
// The Rule returns an error of kind dataerrors.ErrConfiguration if the raw label has too few segments.
func SplitSegment(sep string, segment int) Rule {
	return func(rawLabel string) (string, error) {
		parts := strings.Split(rawLabel, sep)
		if segment < 0 || segment >= len(parts) {
			return "", dataerrors.Configurationf("raw label %q has no segment #%d when split by %q",
				rawLabel, segment, sep)
		}
		return parts[segment], nil
	}
}

// DefaultRule takes the second "_" separated segment of the folder name as the class, so
// "01_wt" and "02_wt" are two sources of the class "wt".
var DefaultRule = SplitSegment("_", 1)

// Entry is the resolution of one raw label.
type Entry struct {
	Source    int
	Class     int
	ClassName string
}

// Table holds the mapping from raw label to Entry.
//
// It is mutated only while being populated. After Finalize it is read-only and safe for
// concurrent use.
type Table struct {
	entries   map[string]Entry
	classes   *sets.Ordered[string]
	sources   *sets.Ordered[string]
	finalized bool
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{
		entries: make(map[string]Entry),
		classes: sets.MakeOrdered[string](),
		sources: sets.MakeOrdered[string](),
	}
}

// Len returns the number of raw labels in the table.
func (t *Table) Len() int { return len(t.entries) }

// Finalize freezes the table: Populate will fail from now on.
func (t *Table) Finalize() { t.finalized = true }

// IsFinalized returns whether Finalize was called.
func (t *Table) IsFinalized() bool { return t.finalized }

// Populate adds the raw labels in universe, in order. The class index of each new class name is
// its order of first appearance, and the source index of each raw label likewise.
//
// Raw labels already present keep their entry, so populating never changes an existing mapping.
func (t *Table) Populate(universe []string, rule Rule) error {
	if t.finalized {
		return dataerrors.Configurationf("cannot populate a finalized label table")
	}
	if rule == nil {
		rule = Identity
	}
	for _, raw := range universe {
		if _, found := t.entries[raw]; found {
			continue
		}
		className, err := rule(raw)
		if err != nil {
			return err
		}
		t.entries[raw] = Entry{
			Source:    t.sources.Insert(raw),
			Class:     t.classes.Insert(className),
			ClassName: className,
		}
	}
	return nil
}

// Lookup returns the entry of the raw label, or an error of kind dataerrors.ErrLabelUniverse if
// it was not present when the table was populated.
func (t *Table) Lookup(raw string) (Entry, error) {
	entry, found := t.entries[raw]
	if !found {
		return Entry{}, dataerrors.LabelUniversef("raw label %q (table has %d labels: %v)",
			raw, len(t.entries), t.sources.Elements())
	}
	return entry, nil
}

// ClassNames returns the class names in class index order (the ClassSpace).
func (t *Table) ClassNames() []string { return t.classes.Elements() }

// NumClasses returns the number of distinct classes.
func (t *Table) NumClasses() int { return t.classes.Len() }

// RawLabels returns the raw labels in source index order.
func (t *Table) RawLabels() []string { return t.sources.Elements() }
