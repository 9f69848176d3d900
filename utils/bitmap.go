package utils

import (
	"sync/atomic"
)

// ------------------ Ranged Atomic Bitmap ------------------

// Bitmap covers the vertex ids [Base, Base+64*len(Words)). Base is always a multiple of 64,
// so word i holds ids Base+64*i .. Base+64*i+63. The words may live in a node-local block.
type Bitmap struct {
	Words []uint64
	Base  int64
}

// NewBitmap wraps existing storage. The storage is not cleared.
func NewBitmap(words []uint64, base int64) Bitmap {
	if base&63 != 0 {
		panic("bitmap base must be word aligned")
	}
	return Bitmap{Words: words, Base: base}
}

// WordsFor is the number of words needed to hold n bits.
func WordsFor(n int64) int64 {
	return (n + 63) >> 6
}

func (bm *Bitmap) locate(x int64) (idx int64, mask uint64) {
	x -= bm.Base
	return x >> 6, 1 << uint(x&63)
}

// Set (non atomic). Only for use where the word is owned by the caller.
func (bm *Bitmap) Set(x int64) {
	idx, mask := bm.locate(x)
	bm.Words[idx] |= mask
}

// IsSet is an atomic load of the word holding x.
func (bm *Bitmap) IsSet(x int64) bool {
	idx, mask := bm.locate(x)
	return atomic.LoadUint64(&bm.Words[idx])&mask != 0
}

// Has is a plain read. Valid when no one writes concurrently.
func (bm *Bitmap) Has(x int64) bool {
	idx, mask := bm.locate(x)
	return bm.Words[idx]&mask != 0
}

// TestAndSet atomically sets bit x and reports whether it was already set.
// Exactly one concurrent caller observes false for a given bit.
func (bm *Bitmap) TestAndSet(x int64) (wasSet bool) {
	idx, mask := bm.locate(x)
	return atomic.OrUint64(&bm.Words[idx], mask)&mask != 0
}

// Word returns the word with global index i (i.e. holding ids 64*i ..).
func (bm *Bitmap) Word(i int64) uint64 {
	return bm.Words[i-bm.Base>>6]
}

// SetWord overwrites the word with global index i.
func (bm *Bitmap) SetWord(i int64, w uint64) {
	bm.Words[i-bm.Base>>6] = w
}

// OrWord merges w into the word with global index i (non atomic).
func (bm *Bitmap) OrWord(i int64, w uint64) {
	bm.Words[i-bm.Base>>6] |= w
}

// ClearWords zeroes the global word range [lo, hi).
func (bm *Bitmap) ClearWords(lo, hi int64) {
	b := bm.Base >> 6
	clear(bm.Words[lo-b : hi-b])
}

// ValidMask is the mask of bits belonging to [lo, hi) within the word with global index i.
func ValidMask(i, lo, hi int64) uint64 {
	first := i << 6
	var m uint64 = ^uint64(0)
	if lo > first {
		m &= ^uint64(0) << uint(lo-first)
	}
	if end := first + 64; hi < end {
		if hi <= first {
			return 0
		}
		m &= ^uint64(0) >> uint(end-hi)
	}
	return m
}
