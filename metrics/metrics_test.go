package metrics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/htsst/netalx/bfs"
	"github.com/htsst/netalx/graph"
	"github.com/htsst/netalx/stats"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, m prometheus.Metric) *dto.Metric {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	return &out
}

func TestDefaultRegistry(t *testing.T) {
	assert.Same(t, DefaultRegistry(), DefaultRegistry())
}

func TestObserve(t *testing.T) {
	r := NewRegistry()
	r.Observe(stats.Sample{TraversedEdges: 100, Elapsed: time.Second})
	r.Observe(stats.Sample{TraversedEdges: 300, Elapsed: time.Second})

	assert.Equal(t, 400.0, value(t, r.TraversedEdges).GetCounter().GetValue())
	assert.Equal(t, 300.0, value(t, r.TEPS).GetGauge().GetValue())
	assert.Equal(t, uint64(2), value(t, r.BFSDuration).GetHistogram().GetSampleCount())
}

func TestRecordProfile(t *testing.T) {
	r := NewRegistry()
	r.RecordProfile(&bfs.Profile{Levels: []bfs.Level{
		{Algorithm: bfs.TopDown}, {Algorithm: bfs.BottomUp}, {Algorithm: bfs.BottomUp}, {Algorithm: bfs.TopDown},
	}})
	r.RecordProfile(nil)

	td, err := r.LevelAlgorithm.GetMetricWithLabelValues("TD")
	require.NoError(t, err)
	bu, err := r.LevelAlgorithm.GetMetricWithLabelValues("BU")
	require.NoError(t, err)
	assert.Equal(t, 2.0, value(t, td).GetCounter().GetValue())
	assert.Equal(t, 2.0, value(t, bu).GetCounter().GetValue())
	assert.Equal(t, 4.0, value(t, r.Levels).GetHistogram().GetSampleSum())
}

func TestRecordBuild(t *testing.T) {
	r := NewRegistry()
	r.RecordBuild(&graph.Graph{M: 42}, graph.BuildStats{
		SelfLoops: 3, Duplicates: 5,
		Phases: []graph.PhaseTime{{Name: "scatter", Elapsed: 2 * time.Second}},
	})
	for kind, want := range map[string]float64{"directed": 42, "self_loops": 3, "duplicates": 5} {
		g, err := r.GraphEdges.GetMetricWithLabelValues(kind)
		require.NoError(t, err)
		assert.Equal(t, want, value(t, g).GetGauge().GetValue(), kind)
	}
	g, err := r.ConstructionPhase.GetMetricWithLabelValues("scatter")
	require.NoError(t, err)
	assert.Equal(t, 2.0, value(t, g).GetGauge().GetValue())
}

func TestRecordValidation(t *testing.T) {
	r := NewRegistry()
	r.RecordValidation(nil)
	r.RecordValidation(&bfs.ValidationError{Kind: bfs.LevelMismatch, Root: 1, Count: 2})
	r.RecordValidation(fmt.Errorf("run 3: %w", &bfs.ValidationError{Kind: bfs.LevelMismatch}))
	r.RecordValidation(io.EOF)

	c, err := r.ValidationFailed.GetMetricWithLabelValues(bfs.LevelMismatch.String())
	require.NoError(t, err)
	assert.Equal(t, 2.0, value(t, c).GetCounter().GetValue())
	c, err = r.ValidationFailed.GetMetricWithLabelValues("other")
	require.NoError(t, err)
	assert.Equal(t, 1.0, value(t, c).GetCounter().GetValue())
}

func TestServe(t *testing.T) {
	r := NewRegistry()
	r.Observe(stats.Sample{TraversedEdges: 7, Elapsed: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	addr, err := Serve(ctx, "127.0.0.1:0", r)
	require.NoError(t, err)

	resp, err := http.Get("http://" + addr.String() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "netalx_bfs_traversed_edges_total 7"))

	_, err = Serve(ctx, "256.0.0.1:bad", r)
	assert.Error(t, err)
}
