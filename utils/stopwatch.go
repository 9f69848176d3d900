package utils

import (
	"sync"
	"time"
)

// Watch measures the time since Start, and laps within it.
type Watch struct {
	mu        sync.RWMutex
	started   bool
	startTime time.Time
	lapTime   time.Time
}

func (w *Watch) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		panic("watch already started")
	}
	w.started = true
	w.startTime = time.Now()
	w.lapTime = w.startTime
	w.mu.Unlock()
}

func (w *Watch) Elapsed() time.Duration {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return time.Since(w.startTime)
}

// Lap returns the absolute time since the previous Lap (or Start) and begins a new lap.
func (w *Watch) Lap() time.Duration {
	w.mu.Lock()
	now := time.Now()
	d := now.Sub(w.lapTime)
	w.lapTime = now
	w.mu.Unlock()
	return d
}
