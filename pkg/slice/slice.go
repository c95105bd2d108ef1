// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package slice holds generic helpers the standard [slices] package lacks.
package slice

// Filter returns a new slice with the elements of input that satisfy keep, in
// their original order. It never aliases input, so callers may hand the
// result out while input stays shared. A nil input yields nil.
func Filter[T any](input []T, keep func(T) bool) []T {
	if input == nil {
		return nil
	}

	result := make([]T, 0, len(input))
	for _, v := range input {
		if keep(v) {
			result = append(result, v)
		}
	}
	return result
}
