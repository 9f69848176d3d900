package utils

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartialRangeCovers(t *testing.T) {
	for trial := 0; trial < 100; trial++ {
		size := int64(rand.Intn(1000))
		offset := int64(rand.Intn(100))
		np := rand.Intn(16-1) + 1

		next := offset
		for id := 0; id < np; id++ {
			s, e := PartialRange(size, offset, np, id)
			assert.Equal(t, next, s)
			assert.LessOrEqual(t, s, e)
			assert.LessOrEqual(t, e-s, size/int64(np)+1)
			next = e
		}
		assert.Equal(t, offset+size, next)
	}
}

func TestPartialRangeRemainderFirst(t *testing.T) {
	s, e := PartialRange(10, 0, 3, 0)
	assert.Equal(t, [2]int{0, 4}, [2]int{s, e})
	s, e = PartialRange(10, 0, 3, 1)
	assert.Equal(t, [2]int{4, 7}, [2]int{s, e})
	s, e = PartialRange(10, 0, 3, 2)
	assert.Equal(t, [2]int{7, 10}, [2]int{s, e})
}

func TestRounding(t *testing.T) {
	assert.Equal(t, int64(64), RoundUp(int64(1), 64))
	assert.Equal(t, int64(128), RoundUp(int64(128), 64))
	assert.Equal(t, 0, RoundUp(0, 64))
	assert.Equal(t, 21, RoundUp(20, 7))
	assert.Equal(t, int64(3), CeilDiv(int64(5), 2))
	assert.Equal(t, 11, Sum([]int{3, 7, 1}))
}
