package utils

import (
	"golang.org/x/exp/slices"
)

// SortUniq sorts in place with cmp, keeps the first element of each run of equal values,
// and overwrites the freed tail with fill. Returns the number of kept elements.
// Equal values must compare as equal under cmp, so that they end up adjacent.
func SortUniq[T comparable](in []T, cmp func(a, b T) int, fill T) int {
	if len(in) < 2 {
		return len(in)
	}
	slices.SortFunc(in, cmp)
	n := len(slices.Compact(in))
	for i := n; i < len(in); i++ {
		in[i] = fill
	}
	return n
}

// CompactSentinel moves all elements that are not the sentinel to the front (stable)
// and returns how many there are. The tail is left as is.
func CompactSentinel[T comparable](in []T, sentinel T) int {
	n := 0
	for i := range in {
		if in[i] != sentinel {
			in[n] = in[i]
			n++
		}
	}
	return n
}
