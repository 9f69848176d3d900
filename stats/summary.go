package stats

import (
	"math"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary holds the graph500 order statistics of a set of measurements.
type Summary struct {
	Min            float64
	FirstQuartile  float64
	Median         float64
	ThirdQuartile  float64
	Max            float64
	Mean           float64
	StdDev         float64
	HarmonicMean   float64
	HarmonicStdDev float64
}

// Summarize does not modify data.
func Summarize(data []float64) (s Summary) {
	n := len(data)
	if n == 0 {
		return s
	}
	sorted := slices.Clone(data)
	slices.Sort(sorted)

	s.Min = floats.Min(sorted)
	s.Max = floats.Max(sorted)
	s.FirstQuartile = quartile(sorted, float64(n+1)/4, 0.75)
	s.Median = quartile(sorted, float64(n+1)/2, 0.5)
	s.ThirdQuartile = quartile(sorted, 3*float64(n+1)/4, 0.25)
	s.Mean = stat.Mean(sorted, nil)
	if n > 1 {
		s.StdDev = stat.StdDev(sorted, nil)
	}
	s.HarmonicMean, s.HarmonicStdDev = harmonic(sorted)
	return s
}

// quartile reads position t (1-based) of sorted data, weighting the lower neighbour by w
// when t falls between two samples.
func quartile(sorted []float64, t float64, w float64) float64 {
	n := len(sorted)
	at := func(k int) float64 {
		return sorted[min(max(k, 1), n)-1]
	}
	k := int(t)
	if t == float64(k) {
		return at(k)
	}
	return w*at(k) + (1-w)*at(k+1)
}

// harmonic reports the harmonic mean and its standard error (Norris, 1940). Zero samples
// contribute nothing to the sum of inverses.
func harmonic(data []float64) (mean, stddev float64) {
	n := float64(len(data))
	inv := make([]float64, len(data))
	for i, x := range data {
		if x != 0 {
			inv[i] = 1 / x
		}
	}
	sum := floats.Sum(inv)
	if sum == 0 {
		return 0, 0
	}
	mean = n / sum
	if len(data) < 2 {
		return mean, 0
	}
	invMean := sum / n
	var sq float64
	for _, v := range inv {
		sq += (v - invMean) * (v - invMean)
	}
	stddev = math.Sqrt(sq) / (n - 1) * mean * mean
	return mean, stddev
}
