// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package weights

import (
	"strings"

	"github.com/gomlx/imagedata/pkg/data/dataerrors"
)

// Mode selects how the training split is balanced.
type Mode int

const (
	// None leaves the training split as is, sampled uniformly.
	None Mode = iota

	// DefaultWeights samples the training split with Default weights.
	DefaultWeights

	// AdjustedWeights samples the training split with Adjusted weights, so every class is drawn
	// with the same probability.
	AdjustedWeights

	// Oversampling duplicates minority class samples of the training split, see Oversample.
	Oversampling
)

var modeNames = map[Mode]string{
	None:            "none",
	DefaultWeights:  "weights",
	AdjustedWeights: "adjusted",
	Oversampling:    "oversample",
}

// String implements fmt.Stringer, returning the name accepted by ParseMode.
func (m Mode) String() string {
	if name, found := modeNames[m]; found {
		return name
	}
	return "unknown"
}

// ParseMode converts a name ("none", "weights", "adjusted" or "oversample", case-insensitive) to a Mode.
// The empty string is None.
func ParseMode(name string) (Mode, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return None, nil
	}
	for m, n := range modeNames {
		if n == name {
			return m, nil
		}
	}
	return None, dataerrors.Configurationf("unknown balance mode %q, valid values are none, weights, adjusted or oversample", name)
}

// Compute returns the per-sample sampling weights of the mode for classes, or nil for
// None and Oversampling.
func (m Mode) Compute(classes []int) ([]float64, error) {
	switch m {
	case DefaultWeights:
		return Default(classes)
	case AdjustedWeights:
		return Adjusted(classes)
	default:
		return nil, nil
	}
}
