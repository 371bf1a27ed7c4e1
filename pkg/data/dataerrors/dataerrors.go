// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package dataerrors defines the kinds of errors returned by the imagedata packages.
//
// Errors are created with github.com/pkg/errors wrapping one of the sentinel kinds below,
// so callers can test the kind with errors.Is and still get a stack trace with "%+v".
//
// Example:
//
//	_, err := images.Open(fs, "train/0_wt/missing.png")
//	if errors.Is(err, dataerrors.ErrNotFound) { ... }
package dataerrors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned for missing paths or folders, or folders without any usable entry.
	ErrNotFound = errors.New("not found")

	// ErrDecode is matched by DecodeError: a file exists but its contents can't be decoded.
	ErrDecode = errors.New("decode failed")

	// ErrLabelUniverse is returned when a raw label is looked up that was not present when
	// the LabelTable was first populated.
	ErrLabelUniverse = errors.New("label not in label universe")

	// ErrEmptyDataset is returned by computations that require at least one sample.
	ErrEmptyDataset = errors.New("empty dataset")

	// ErrConfiguration is returned for invalid arguments or configuration.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrIndexOutOfRange is returned when a sample position is outside of [0, n).
	ErrIndexOutOfRange = errors.New("index out of range")
)

// NotFoundf returns an error of kind ErrNotFound with the formatted message.
func NotFoundf(format string, args ...any) error {
	return errors.Wrapf(ErrNotFound, format, args...)
}

// LabelUniversef returns an error of kind ErrLabelUniverse with the formatted message.
func LabelUniversef(format string, args ...any) error {
	return errors.Wrapf(ErrLabelUniverse, format, args...)
}

// EmptyDatasetf returns an error of kind ErrEmptyDataset with the formatted message.
func EmptyDatasetf(format string, args ...any) error {
	return errors.Wrapf(ErrEmptyDataset, format, args...)
}

// Configurationf returns an error of kind ErrConfiguration with the formatted message.
func Configurationf(format string, args ...any) error {
	return errors.Wrapf(ErrConfiguration, format, args...)
}

// IndexOutOfRangef returns an error of kind ErrIndexOutOfRange with the formatted message.
func IndexOutOfRangef(format string, args ...any) error {
	return errors.Wrapf(ErrIndexOutOfRange, format, args...)
}

// DecodeError is returned when a file exists but can't be decoded. It wraps the underlying cause.
type DecodeError struct {
	Path string
	Err  error
}

// NewDecodeError wraps err as a DecodeError for path, with a stack trace.
func NewDecodeError(path string, err error) error {
	return errors.WithStack(&DecodeError{Path: path, Err: err})
}

// Error implements error.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode image at %q: %v", e.Path, e.Err)
}

// Unwrap returns the underlying decoding error.
func (e *DecodeError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrDecode) true for any DecodeError.
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// FileErrors aggregates the failures of a pass over many files, keyed by the order they were
// reported. It is returned only when there is at least one failure.
type FileErrors []error

// Error implements error, listing the first few failures.
func (fe FileErrors) Error() string {
	const maxListed = 5
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "%d file(s) failed", len(fe))
	for ii, err := range fe {
		if ii >= maxListed {
			_, _ = fmt.Fprintf(&sb, "; ... (%d more)", len(fe)-maxListed)
			break
		}
		_, _ = fmt.Fprintf(&sb, "; %v", err)
	}
	return sb.String()
}

// Unwrap returns all individual errors, so errors.Is and errors.As visit each of them.
func (fe FileErrors) Unwrap() []error { return fe }
