// Package sortutil provides the sorting helpers shared by the Synth tooling.
package sortutil

import (
	"cmp"
	"slices"
)

// ByName sorts a slice of elements using a function that extracts the name.
func ByName[S ~[]E, E any](s S, getName func(E) string) {
	slices.SortFunc(s, func(a, b E) int {
		return cmp.Compare(getName(a), getName(b))
	})
}

// ByLineColumn sorts elements by line, then column.
// This is the common ordering for findings and diagnostics within one file.
func ByLineColumn[S ~[]E, E any](s S, getLine func(E) int, getCol func(E) int) {
	slices.SortFunc(s, func(a, b E) int {
		return or(
			cmp.Compare(getLine(a), getLine(b)),
			cmp.Compare(getCol(a), getCol(b)),
		)
	})
}

// ByLocation sorts elements by path, then line, then column.
// This is the ordering for findings aggregated across files.
func ByLocation[S ~[]E, E any](s S, getPath func(E) string, getLine func(E) int, getCol func(E) int) {
	slices.SortFunc(s, func(a, b E) int {
		return or(
			cmp.Compare(getPath(a), getPath(b)),
			cmp.Compare(getLine(a), getLine(b)),
			cmp.Compare(getCol(a), getCol(b)),
		)
	})
}

// or is cmp.Or copied verbatim from the Go 1.22 standard library: the build
// toolchain is pinned to go1.21, which predates it. It returns the first of
// its arguments that is not equal to the zero value.
func or[T comparable](vals ...T) T {
	var zero T
	for _, val := range vals {
		if val != zero {
			return val
		}
	}
	return zero
}

// Asc sorts elements by an integer field in ascending order.
func Asc[S ~[]E, E any](s S, getValue func(E) int) {
	slices.SortFunc(s, func(a, b E) int {
		return cmp.Compare(getValue(a), getValue(b))
	})
}

// Desc sorts elements by an integer field in descending order.
func Desc[S ~[]E, E any](s S, getValue func(E) int) {
	slices.SortFunc(s, func(a, b E) int {
		return cmp.Compare(getValue(b), getValue(a))
	})
}
