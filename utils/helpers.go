package utils

import (
	"golang.org/x/exp/constraints"
)

// RoundUp rounds x up to a multiple of align. align need not be a power of two.
func RoundUp[T constraints.Integer](x, align T) T {
	if r := x % align; r != 0 {
		return x + align - r
	}
	return x
}

// CeilDiv is ceil(x / y) for non-negative x and positive y.
func CeilDiv[T constraints.Integer](x, y T) T {
	return (x + y - 1) / y
}

func Max[T constraints.Ordered](x, y T) T {
	if x < y {
		return y
	}
	return x
}

func Min[T constraints.Ordered](x, y T) T {
	if y < x {
		return y
	}
	return x
}

func Sum[T constraints.Integer | constraints.Float](slice []T) (sum T) {
	for i := range slice {
		sum += slice[i]
	}
	return sum
}

// PartialRange splits [offset, offset+size) into np contiguous pieces and returns piece id.
// The first size%np pieces receive one extra element.
func PartialRange[T constraints.Integer](size, offset T, np, id int) (start, end T) {
	qt, rm := size/T(np), size%T(np)
	i := T(id)
	start = qt*i + Min(i, rm) + offset
	end = qt*(i+1) + Min(i+1, rm) + offset
	return start, end
}
