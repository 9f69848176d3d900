package stats

import (
	"bufio"
	"fmt"
	"io"
	"time"
)

// Results is the input of the graph500 report.
type Results struct {
	RunID            string
	Scale            int
	NumVertices      int64
	EdgeFactor       int
	A, B, C, D       float64
	GenerationTime   time.Duration
	ConstructionTime time.Duration
	Samples          []Sample
}

// TeraSize is the size in terabytes of the generated edge list (two int64 per edge).
func (r *Results) TeraSize() float64 {
	return float64((int64(1)<<r.Scale)*int64(r.EdgeFactor)*2*8) / 1e12
}

// Write prints the report in the key: value form other graph500 tooling parses.
func (r *Results) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if r.RunID != "" {
		fmt.Fprintf(bw, "run_id: %s\n", r.RunID)
	}
	fmt.Fprintf(bw, "SCALE: %d\nnvtx: %d\nedgefactor: %d\nterasize: %20.17e\n",
		r.Scale, r.NumVertices, r.EdgeFactor, r.TeraSize())
	fmt.Fprintf(bw, "A: %20.17e\nB: %20.17e\nC: %20.17e\nD: %20.17e\n", r.A, r.B, r.C, r.D)
	fmt.Fprintf(bw, "generation_time: %20.17e\n", r.GenerationTime.Seconds())
	fmt.Fprintf(bw, "construction_time: %20.17e\n", r.ConstructionTime.Seconds())
	fmt.Fprintf(bw, "nbfs: %d\n", len(r.Samples))

	writeSummary(bw, "time", Summarize(Times(r.Samples)), false)
	writeSummary(bw, "nedge", Summarize(Edges(r.Samples)), false)
	writeSummary(bw, "TEPS", Summarize(Rates(r.Samples)), true)
	return bw.Flush()
}

func writeSummary(w io.Writer, label string, s Summary, rate bool) {
	fmt.Fprintf(w, "min_%s: %20.17e\n", label, s.Min)
	fmt.Fprintf(w, "firstquartile_%s: %20.17e\n", label, s.FirstQuartile)
	fmt.Fprintf(w, "median_%s: %20.17e\n", label, s.Median)
	fmt.Fprintf(w, "thirdquartile_%s: %20.17e\n", label, s.ThirdQuartile)
	fmt.Fprintf(w, "max_%s: %20.17e\n", label, s.Max)
	if rate {
		fmt.Fprintf(w, "harmonic_mean_%s: %20.17e\n", label, s.HarmonicMean)
		fmt.Fprintf(w, "harmonic_stddev_%s: %20.17e\n", label, s.HarmonicStdDev)
	} else {
		fmt.Fprintf(w, "mean_%s: %20.17e\n", label, s.Mean)
		fmt.Fprintf(w, "stddev_%s: %20.17e\n", label, s.StdDev)
	}
}
