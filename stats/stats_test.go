package stats

import (
	"bytes"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeOdd(t *testing.T) {
	data := []float64{7, 3, 1, 5, 2, 6, 4}
	s := Summarize(data)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 2.0, s.FirstQuartile)
	assert.Equal(t, 4.0, s.Median)
	assert.Equal(t, 6.0, s.ThirdQuartile)
	assert.Equal(t, 7.0, s.Max)
	assert.InDelta(t, 4.0, s.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(28.0/6), s.StdDev, 1e-12)
	assert.Equal(t, 7.0, data[0], "input must not be sorted in place")
}

func TestSummarizeInterpolates(t *testing.T) {
	s := Summarize([]float64{4, 3, 2, 1})
	assert.InDelta(t, 1.25, s.FirstQuartile, 1e-12)
	assert.InDelta(t, 2.5, s.Median, 1e-12)
	assert.InDelta(t, 3.75, s.ThirdQuartile, 1e-12)
}

func TestSummarizeSmall(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil))

	s := Summarize([]float64{3})
	assert.Equal(t, 3.0, s.Min)
	assert.Equal(t, 3.0, s.FirstQuartile)
	assert.Equal(t, 3.0, s.Median)
	assert.Equal(t, 3.0, s.ThirdQuartile)
	assert.Equal(t, 0.0, s.StdDev)
	assert.InDelta(t, 3.0, s.HarmonicMean, 1e-12)
	assert.Equal(t, 0.0, s.HarmonicStdDev)
}

func TestHarmonic(t *testing.T) {
	s := Summarize([]float64{1, 2, 4})
	assert.InDelta(t, 3/1.75, s.HarmonicMean, 1e-12)
	assert.Greater(t, s.HarmonicStdDev, 0.0)

	s = Summarize([]float64{0, 2})
	assert.InDelta(t, 4.0, s.HarmonicMean, 1e-12)

	s = Summarize([]float64{0, 0})
	assert.Equal(t, 0.0, s.HarmonicMean)
}

func TestSampleTEPS(t *testing.T) {
	s := Sample{TraversedEdges: 1000, Elapsed: 500 * time.Millisecond}
	assert.InDelta(t, 2000.0, s.TEPS(), 1e-9)
	assert.Equal(t, 0.0, Sample{TraversedEdges: 5}.TEPS())
}

func TestCollectorKeepBest(t *testing.T) {
	c := NewCollector(true)
	c.Observe(Sample{Index: 0, Root: 5, TraversedEdges: 10, Elapsed: time.Second})
	c.Observe(Sample{Index: 1, Root: 9, TraversedEdges: 10, Elapsed: time.Second})
	c.Observe(Sample{Index: 0, Root: 5, TraversedEdges: 10, Elapsed: 2 * time.Second})
	c.Observe(Sample{Index: 1, Root: 9, TraversedEdges: 10, Elapsed: time.Second / 2})

	got := c.Samples()
	require.Len(t, got, 2)
	assert.Equal(t, time.Second, got[0].Elapsed)
	assert.Equal(t, time.Second/2, got[1].Elapsed)

	c.Reset()
	assert.Equal(t, 0, c.Len())
	c.Observe(Sample{Index: 1})
	assert.Equal(t, 1, c.Len())
}

func TestCollectorConcurrent(t *testing.T) {
	c := NewCollector(false)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Observe(Sample{Index: i})
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 800, c.Len())
}

func TestResultsWrite(t *testing.T) {
	r := Results{
		RunID: "abc", Scale: 4, NumVertices: 16, EdgeFactor: 16,
		A: 0.57, B: 0.19, C: 0.19, D: 0.05,
		GenerationTime: time.Second, ConstructionTime: 2 * time.Second,
		Samples: []Sample{
			{Index: 0, TraversedEdges: 100, Elapsed: time.Millisecond},
			{Index: 1, TraversedEdges: 200, Elapsed: time.Millisecond},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, r.Write(&buf))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "run_id: abc\nSCALE: 4\nnvtx: 16\nedgefactor: 16\n"))
	for _, key := range []string{
		"terasize:", "generation_time: 1.00000000000000000e+00", "construction_time: 2.00000000000000000e+00",
		"nbfs: 2\n", "min_time:", "stddev_nedge:", "max_nedge: 2.00000000000000000e+02",
		"harmonic_mean_TEPS:", "harmonic_stddev_TEPS:",
	} {
		assert.Contains(t, out, key)
	}
	assert.NotContains(t, out, "\nmean_TEPS:", "rates report the harmonic mean only")
}
