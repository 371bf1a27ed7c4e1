// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package sets implement a set type as a `map[T]struct{}` but with better ergonomics, and
// an Ordered set that remembers the order of first insertion.
package sets

import (
	"cmp"
	"slices"
)

// Set implements a Set for the key type T.
type Set[T comparable] map[T]struct{}

// Make returns an empty Set of the given type. Size is optional, and if given
// will reserve the expected size.
func Make[T comparable](size ...int) Set[T] {
	if len(size) == 0 {
		return make(Set[T])
	}
	return make(Set[T], size[0])
}

// Insert keys into set.
func (s Set[T]) Insert(keys ...T) {
	for _, key := range keys {
		s[key] = struct{}{}
	}
}

// Sorted returns the elements of the set in ascending order.
func Sorted[T cmp.Ordered](s Set[T]) []T {
	keys := make([]T, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Ordered is a set that assigns to each element the position of its first insertion.
// The zero value is not usable, create it with MakeOrdered.
type Ordered[T comparable] struct {
	index    map[T]int
	elements []T
}

// MakeOrdered returns an Ordered set with the given elements inserted in order.
func MakeOrdered[T comparable](elements ...T) *Ordered[T] {
	o := &Ordered[T]{index: make(map[T]int, len(elements))}
	for _, e := range elements {
		o.Insert(e)
	}
	return o
}

// Insert adds e if not yet present, and returns its position either way.
func (o *Ordered[T]) Insert(e T) int {
	if idx, found := o.index[e]; found {
		return idx
	}
	idx := len(o.elements)
	o.index[e] = idx
	o.elements = append(o.elements, e)
	return idx
}

// Index returns the position of e and whether it is present.
func (o *Ordered[T]) Index(e T) (int, bool) {
	idx, found := o.index[e]
	return idx, found
}

// Len returns the number of distinct elements.
func (o *Ordered[T]) Len() int { return len(o.elements) }

// Elements returns the distinct elements in order of first insertion. The returned slice
// must not be modified.
func (o *Ordered[T]) Elements() []T { return o.elements }
