package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_Watch(t *testing.T) {
	watch := Watch{}

	watch.Start()
	time.Sleep(200 * time.Millisecond)
	assert.InDelta(t, 0.2, watch.Elapsed().Seconds(), 0.05, "seconds mismatch")
	time.Sleep(200 * time.Millisecond)
	assert.InDelta(t, 0.4, watch.Elapsed().Seconds(), 0.05, "seconds mismatch")
}

func Test_WatchLap(t *testing.T) {
	watch := Watch{}
	watch.Start()
	time.Sleep(100 * time.Millisecond)
	first := watch.Lap()
	time.Sleep(50 * time.Millisecond)
	second := watch.Lap()
	assert.InDelta(t, 0.1, first.Seconds(), 0.04)
	assert.InDelta(t, 0.05, second.Seconds(), 0.04)
	assert.InDelta(t, 0.15, watch.Elapsed().Seconds(), 0.04)
}

func Test_WatchMisuse(t *testing.T) {
	watch := Watch{}
	watch.Start()
	assert.Panics(t, func() { watch.Start() })
}
