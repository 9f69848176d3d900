package metrics

import (
	"errors"
	"sync"

	"github.com/htsst/netalx/bfs"
	"github.com/htsst/netalx/graph"
	"github.com/htsst/netalx/stats"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds the benchmark instruments on a private prometheus registry.
type Registry struct {
	BFSDuration       prometheus.Histogram
	TraversedEdges    prometheus.Counter
	TEPS              prometheus.Gauge
	Levels            prometheus.Histogram
	LevelAlgorithm    *prometheus.CounterVec
	ConstructionPhase *prometheus.GaugeVec
	GraphEdges        *prometheus.GaugeVec
	ValidationFailed  *prometheus.CounterVec

	registry *prometheus.Registry
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Registry{
		registry: reg,
		BFSDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "netalx_bfs_duration_seconds",
			Help:    "Wall time of one traversal",
			Buckets: prometheus.ExponentialBuckets(1e-4, 4, 12),
		}),
		TraversedEdges: f.NewCounter(prometheus.CounterOpts{
			Name: "netalx_bfs_traversed_edges_total",
			Help: "Input edges inside validated bfs trees",
		}),
		TEPS: f.NewGauge(prometheus.GaugeOpts{
			Name: "netalx_bfs_teps",
			Help: "Traversed edges per second of the last traversal",
		}),
		Levels: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "netalx_bfs_levels",
			Help:    "Frontier expansions per traversal",
			Buckets: prometheus.LinearBuckets(1, 2, 16),
		}),
		LevelAlgorithm: f.NewCounterVec(prometheus.CounterOpts{
			Name: "netalx_bfs_level_algorithm_total",
			Help: "Levels expanded per direction",
		}, []string{"algorithm"}),
		ConstructionPhase: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "netalx_construction_phase_seconds",
			Help: "Duration of each graph construction phase",
		}, []string{"phase"}),
		GraphEdges: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "netalx_graph_edges",
			Help: "Adjacency entries of the built graph and the input edges dropped",
		}, []string{"kind"}),
		ValidationFailed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "netalx_validation_failures_total",
			Help: "Rejected bfs trees by first error kind",
		}, []string{"kind"}),
	}
}

func (r *Registry) Prometheus() *prometheus.Registry {
	return r.registry
}

// Observe records one timed traversal.
func (r *Registry) Observe(s stats.Sample) {
	r.BFSDuration.Observe(s.Elapsed.Seconds())
	r.TraversedEdges.Add(float64(s.TraversedEdges))
	r.TEPS.Set(s.TEPS())
}

func (r *Registry) RecordProfile(p *bfs.Profile) {
	if p == nil {
		return
	}
	r.Levels.Observe(float64(len(p.Levels)))
	for _, algo := range []bfs.Algorithm{bfs.TopDown, bfs.BottomUp} {
		r.LevelAlgorithm.WithLabelValues(algo.String()).Add(float64(p.LevelsUsing(algo)))
	}
}

func (r *Registry) RecordBuild(g *graph.Graph, bs graph.BuildStats) {
	for _, ph := range bs.Phases {
		r.ConstructionPhase.WithLabelValues(ph.Name).Set(ph.Elapsed.Seconds())
	}
	r.GraphEdges.WithLabelValues("directed").Set(float64(g.M))
	r.GraphEdges.WithLabelValues("self_loops").Set(float64(bs.SelfLoops))
	r.GraphEdges.WithLabelValues("duplicates").Set(float64(bs.Duplicates))
}

// RecordValidation counts err by kind; other errors are labelled "other".
func (r *Registry) RecordValidation(err error) {
	if err == nil {
		return
	}
	kind := "other"
	var ve *bfs.ValidationError
	if errors.As(err, &ve) {
		kind = ve.Kind.String()
	}
	r.ValidationFailed.WithLabelValues(kind).Inc()
}
