package utils

import (
	"sync/atomic"
)

//go:nosplit
func AtomicMinInt64(targetVal *int64, new int64) (old int64) {
	for {
		old = atomic.LoadInt64(targetVal)
		if new >= old || atomic.CompareAndSwapInt64(targetVal, old, new) {
			return old
		}
	}
}

//go:nosplit
func AtomicMaxInt64(targetVal *int64, new int64) (old int64) {
	for {
		old = atomic.LoadInt64(targetVal)
		if new <= old || atomic.CompareAndSwapInt64(targetVal, old, new) {
			return old
		}
	}
}

// FetchAdd returns the value before the addition (fetch-and-add), not the new value.
//
//go:nosplit
func FetchAdd(targetVal *int64, delta int64) (old int64) {
	return atomic.AddInt64(targetVal, delta) - delta
}
