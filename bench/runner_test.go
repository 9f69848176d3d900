package bench

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/htsst/netalx/bfs"
	"github.com/htsst/netalx/generator"
	"github.com/htsst/netalx/graph"
	"github.com/htsst/netalx/numa"
	"github.com/htsst/netalx/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu          sync.Mutex
	samples     []stats.Sample
	profiles    int
	validations int
	failures    int
}

func (r *recorder) Observe(s stats.Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, s)
}

func (r *recorder) RecordProfile(p *bfs.Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles++
}

func (r *recorder) RecordValidation(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validations++
	if err != nil {
		r.failures++
	}
}

func newRunner(t *testing.T, roots int, reporters ...Reporter) *Runner {
	nodes := 1 + rand.Intn(2)
	topo, err := numa.NewTopology(nodes, nodes*(1+rand.Intn(3)), false)
	require.NoError(t, err)
	pool := graph.NewPool(topo, false)
	t.Cleanup(pool.Close)

	p := generator.DefaultParams(9, 8)
	p.Lists = nodes
	el, err := generator.Generate(context.Background(), p, 2)
	require.NoError(t, err)
	rs, err := generator.SampleRoots(el, roots, 1)
	require.NoError(t, err)

	g, _, err := graph.Build(el, pool, graph.BuildOptions{})
	require.NoError(t, err)
	st, err := bfs.Allocate(g, pool, bfs.AllocOptions{})
	require.NoError(t, err)
	t.Cleanup(func() {
		st.Free()
		g.Free()
	})
	return NewRunner(g, el, pool, bfs.NewEngine(g, st, pool, bfs.Options{}), rs, reporters...)
}

func TestRunAll(t *testing.T) {
	rec := &recorder{}
	r := newRunner(t, 8, rec)
	samples, err := r.RunAll(context.Background(), bfs.KroneckerThresholds)
	require.NoError(t, err)
	require.Len(t, samples, 8)

	for i, s := range samples {
		assert.Equal(t, i, s.Index)
		assert.Equal(t, r.Roots()[i], s.Root)
		assert.Equal(t, r.RunID, s.RunID)
		assert.Positive(t, s.TraversedEdges)
		assert.GreaterOrEqual(t, s.Hops, int64(1))
	}
	assert.Len(t, rec.samples, 8)
	assert.Equal(t, 8, rec.profiles)
	assert.Equal(t, 8, rec.validations)
	assert.Zero(t, rec.failures)
}

func TestSkipValidation(t *testing.T) {
	rec := &recorder{}
	r := newRunner(t, 5, rec)
	r.SkipValidation = true
	samples, err := r.RunAll(context.Background(), bfs.KroneckerThresholds)
	require.NoError(t, err)
	require.Len(t, samples, 5)
	assert.Equal(t, 1, rec.validations)
	for _, s := range samples {
		assert.Equal(t, samples[0].TraversedEdges, s.TraversedEdges)
	}
}

func TestRunAllCancelled(t *testing.T) {
	r := newRunner(t, 4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	samples, err := r.RunAll(ctx, bfs.KroneckerThresholds)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, samples)
}

func TestBadRoot(t *testing.T) {
	r := newRunner(t, 2)
	r.roots[1] = r.g.N
	_, err := r.RunAll(context.Background(), bfs.KroneckerThresholds)
	assert.Error(t, err)
}

func TestEnergyLoop(t *testing.T) {
	rec := &recorder{}
	r := newRunner(t, 3, rec)
	samples, err := r.EnergyLoop(context.Background(), bfs.KroneckerThresholds, 50*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.GreaterOrEqual(t, len(rec.samples), 3)
	assert.Equal(t, 3, rec.validations, "each root is validated once")

	best := make(map[int]float64)
	for _, s := range rec.samples {
		best[s.Index] = max(best[s.Index], s.TEPS())
	}
	for _, s := range samples {
		assert.Equal(t, best[s.Index], s.TEPS())
	}
}

func TestTune(t *testing.T) {
	rec := &recorder{}
	r := newRunner(t, 4, rec)
	pairs := []bfs.Thresholds{{Alpha: 1, Beta: 1}, {Alpha: 64, Beta: 4}, {Alpha: 1 << 20, Beta: 1 << 20}}
	results, err := r.Tune(context.Background(), pairs)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 4, rec.validations)
	for i, res := range results {
		assert.Equal(t, pairs[i], res.Thresholds)
		require.Len(t, res.Samples, 4)
		for j, s := range res.Samples {
			assert.Equal(t, results[0].Samples[j].TraversedEdges, s.TraversedEdges, "edge counts do not depend on thresholds")
		}
		assert.LessOrEqual(t, res.TEPS.Min, res.TEPS.Median)
	}
	assert.Contains(t, pairs, Best(results).Thresholds)
}

func TestBest(t *testing.T) {
	results := []TuningResult{
		{Thresholds: bfs.Thresholds{Alpha: 1, Beta: 1}, TEPS: stats.Summary{Median: 3}},
		{Thresholds: bfs.Thresholds{Alpha: 2, Beta: 1}, TEPS: stats.Summary{Median: 9}},
		{Thresholds: bfs.Thresholds{Alpha: 4, Beta: 1}, TEPS: stats.Summary{Median: 5}},
	}
	assert.Equal(t, int64(2), Best(results).Thresholds.Alpha)
	assert.Equal(t, TuningResult{}, Best(nil))
}
