package stats

import (
	"sync"
	"time"
)

// Sample is the outcome of one timed BFS.
type Sample struct {
	RunID          string
	Index          int // Position of the root in the root list.
	Root           int64
	Hops           int64
	Elapsed        time.Duration
	TraversedEdges int64
}

// TEPS is traversed edges per second.
func (s Sample) TEPS() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.TraversedEdges) / s.Elapsed.Seconds()
}

// Collector gathers samples from concurrent observers. With KeepBest set, a sample replaces
// an earlier one of the same index only if its TEPS is higher.
type Collector struct {
	KeepBest bool

	mu      sync.Mutex
	samples []Sample
	index   map[int]int
}

func NewCollector(keepBest bool) *Collector {
	return &Collector{KeepBest: keepBest, index: make(map[int]int)}
}

func (c *Collector) Observe(s Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.KeepBest {
		if at, ok := c.index[s.Index]; ok {
			if s.TEPS() > c.samples[at].TEPS() {
				c.samples[at] = s
			}
			return
		}
		c.index[s.Index] = len(c.samples)
	}
	c.samples = append(c.samples, s)
}

func (c *Collector) Samples() []Sample {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Sample, len(c.samples))
	copy(out, c.samples)
	return out
}

func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.samples)
}

func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples = c.samples[:0]
	clear(c.index)
}

// Times, Edges and Rates project samples for Summarize.
func Times(samples []Sample) []float64 {
	return project(samples, func(s Sample) float64 { return s.Elapsed.Seconds() })
}

func Edges(samples []Sample) []float64 {
	return project(samples, func(s Sample) float64 { return float64(s.TraversedEdges) })
}

func Rates(samples []Sample) []float64 {
	return project(samples, Sample.TEPS)
}

func project(samples []Sample, f func(Sample) float64) []float64 {
	out := make([]float64, len(samples))
	for i := range samples {
		out[i] = f(samples[i])
	}
	return out
}
