package utils

import (
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAtomicMinMax(t *testing.T) {
	threads := rand.Intn(8-1) + 1
	min, max := int64(math.MaxInt64), int64(math.MinInt64)
	var wg sync.WaitGroup
	for th := 0; th < threads; th++ {
		wg.Add(1)
		go func(th int) {
			defer wg.Done()
			for i := int64(0); i < 1000; i++ {
				v := i*int64(threads) + int64(th) - 500
				AtomicMinInt64(&min, v)
				AtomicMaxInt64(&max, v)
			}
		}(th)
	}
	wg.Wait()
	assert.Equal(t, int64(-500), min)
	assert.Equal(t, int64(999*threads+threads-1-500), max)
}

func TestFetchAddSlots(t *testing.T) {
	threads := rand.Intn(8-1) + 1
	const each = 500
	cursor := int64(0)
	slots := make([]int32, threads*each)
	var wg sync.WaitGroup
	for th := 0; th < threads; th++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				slots[FetchAdd(&cursor, 1)]++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(threads*each), cursor)
	for i := range slots {
		assert.Equal(t, int32(1), slots[i])
	}
}
