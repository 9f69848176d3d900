package bfs

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/htsst/netalx/graph"
	"github.com/htsst/netalx/numa"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	el     *graph.EdgeList
	g      *graph.Graph
	st     *State
	engine *Engine
	pool   *graph.Pool
}

func newTestPool(t testing.TB, nodes, threads int) *graph.Pool {
	topo, err := numa.NewTopology(nodes, threads, false)
	require.NoError(t, err)
	pool := graph.NewPool(topo, false)
	t.Cleanup(pool.Close)
	return pool
}

func newFixture(t testing.TB, pool *graph.Pool, n int64, edges []graph.Edge) *fixture {
	el := graph.SplitEdges(n, edges, pool.NumPartitions())
	g, _, err := graph.Build(el, pool, graph.BuildOptions{})
	require.NoError(t, err)
	st, err := Allocate(g, pool, AllocOptions{})
	require.NoError(t, err)
	t.Cleanup(func() {
		st.Free()
		g.Free()
	})
	return &fixture{el: el, g: g, st: st, engine: NewEngine(g, st, pool, Options{}), pool: pool}
}

func (f *fixture) run(t testing.TB, root int64, th Thresholds) (int64, int64) {
	f.st.Reset(f.pool)
	hops, _ := f.engine.Run(root, th)
	trav, err := Validate(f.g, f.st, f.el, root, f.pool)
	require.NoError(t, err)
	return hops, trav
}

func (f *fixture) parent(v int64) int64 {
	return f.st.Parent(f.g.Parts, v)
}

// setParent corrupts the owner's copy, which is what validation merges from.
func (f *fixture) setParent(v, p int64) {
	f.st.Locals[f.g.Parts.PartitionOf(v)].Tree[v] = p
}

func line(n int64) []graph.Edge {
	var edges []graph.Edge
	for v := int64(0); v+1 < n; v++ {
		edges = append(edges, graph.Edge{V0: v, V1: v + 1})
	}
	return edges
}

// distances by a sequential queue, -1 when unreachable
func distances(n int64, edges []graph.Edge, root int64) []int64 {
	adj := make([][]int64, n)
	for _, e := range edges {
		if e.V0 != e.V1 {
			adj[e.V0] = append(adj[e.V0], e.V1)
			adj[e.V1] = append(adj[e.V1], e.V0)
		}
	}
	dist := make([]int64, n)
	for i := range dist {
		dist[i] = -1
	}
	dist[root] = 0
	queue := []int64{root}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, u := range adj[v] {
			if dist[u] < 0 {
				dist[u] = dist[v] + 1
				queue = append(queue, u)
			}
		}
	}
	return dist
}

func TestLineGraph(t *testing.T) {
	for _, nodes := range []int{1, 2} {
		pool := newTestPool(t, nodes, nodes*2)
		f := newFixture(t, pool, 5, line(5))
		hops, trav := f.run(t, 0, KroneckerThresholds)
		assert.Equal(t, int64(4), hops)
		assert.Equal(t, int64(4), trav)
		for v, want := range []int64{0, 0, 1, 2, 3} {
			assert.Equal(t, want, f.parent(int64(v)))
		}
	}
}

func TestStarGraph(t *testing.T) {
	const leaves = 300
	var edges []graph.Edge
	for v := int64(1); v <= leaves; v++ {
		edges = append(edges, graph.Edge{V0: 0, V1: v})
	}
	for _, nodes := range []int{1, 2, 3} {
		pool := newTestPool(t, nodes, nodes*2)
		f := newFixture(t, pool, leaves+1, edges)
		for _, th := range []Thresholds{KroneckerThresholds, RMATThresholds} {
			hops, trav := f.run(t, 0, th)
			assert.Equal(t, int64(1), hops)
			assert.Equal(t, int64(leaves), trav)
			for v := int64(1); v <= leaves; v++ {
				assert.Equal(t, int64(0), f.parent(v))
				assert.Equal(t, int32(1), f.st.Locals[0].Hops[v])
			}
		}
	}
}

func TestSingleVertex(t *testing.T) {
	pool := newTestPool(t, 1, 2)
	f := newFixture(t, pool, 1, nil)
	hops, trav := f.run(t, 0, KroneckerThresholds)
	assert.Equal(t, int64(0), hops)
	assert.Equal(t, int64(0), trav)
	assert.Equal(t, int64(0), f.parent(0))
}

func TestTwoComponents(t *testing.T) {
	pool := newTestPool(t, 2, 4)
	edges := []graph.Edge{{0, 1}, {1, 2}, {3, 4}}
	f := newFixture(t, pool, 5, edges)
	hops, trav := f.run(t, 0, KroneckerThresholds)
	assert.Equal(t, int64(2), hops)
	assert.Equal(t, int64(2), trav)
	assert.Equal(t, int64(-1), f.parent(3))
	assert.Equal(t, int64(-1), f.parent(4))
}

func TestRootOutOfRange(t *testing.T) {
	pool := newTestPool(t, 1, 1)
	f := newFixture(t, pool, 3, line(3))
	hops, _ := f.engine.Run(7, KroneckerThresholds)
	assert.Equal(t, int64(-1), hops)
	_, err := Validate(f.g, f.st, f.el, 7, f.pool)
	assert.ErrorIs(t, err, ErrRootNotInTree)
}

func TestResetIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	edges := randomEdges(rng, 300, 1500)
	pool := newTestPool(t, 1, 1)
	f := newFixture(t, pool, 300, edges)

	f.st.Reset(pool)
	f.engine.Run(5, KroneckerThresholds)
	once := append([]int64(nil), f.st.Locals[0].Tree[:300]...)

	f.st.Reset(pool)
	f.st.Reset(pool)
	f.engine.Run(5, KroneckerThresholds)
	assert.Equal(t, once, f.st.Locals[0].Tree[:300])
}

func TestProfileRecordsLevels(t *testing.T) {
	pool := newTestPool(t, 2, 2)
	f := newFixture(t, pool, 5, line(5))
	f.st.Reset(pool)
	hops, prof := f.engine.Run(0, KroneckerThresholds)
	require.Len(t, prof.Levels, int(hops)+1)
	assert.Equal(t, int64(5), prof.Visited)
	assert.Equal(t, TopDown, prof.Levels[0].Algorithm)
	total := int64(0)
	for _, lv := range prof.Levels {
		total += lv.Discovered
		assert.Len(t, lv.PerPartition, 2)
	}
	assert.Equal(t, int64(4), total)
	assert.Equal(t, int64(0), prof.Levels[len(prof.Levels)-1].Discovered)
	assert.Equal(t, len(prof.Levels), prof.LevelsUsing(TopDown)+prof.LevelsUsing(BottomUp))
	prof.Log()
}

func randomEdges(rng *rand.Rand, n int64, m int) []graph.Edge {
	edges := make([]graph.Edge, m)
	for i := range edges {
		edges[i] = graph.Edge{V0: rng.Int63n(n), V1: rng.Int63n(n)}
	}
	return edges
}

func TestTraversalProperties(t *testing.T) {
	pools := map[int]*graph.Pool{}
	for _, nodes := range []int{1, 2, 3} {
		pools[nodes] = newTestPool(t, nodes, nodes+rand.Intn(3))
	}
	thresholds := []Thresholds{{0, 0}, KroneckerThresholds, RMATThresholds, {1 << 40, 1 << 40}}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("tree validates and its levels are shortest path distances", prop.ForAll(
		func(seed int64, n int64, density int, nodes int, which int) bool {
			rng := rand.New(rand.NewSource(seed))
			edges := randomEdges(rng, n, int(n)*density/4)
			f := newFixture(t, pools[nodes], n, edges)
			root := rng.Int63n(n)
			th := thresholds[which]

			f.st.Reset(f.pool)
			hops, _ := f.engine.Run(root, th)
			trav, err := Validate(f.g, f.st, f.el, root, f.pool)
			if err != nil {
				t.Log(err)
				return false
			}

			dist := distances(n, edges, root)
			ecc, inside := int64(0), int64(0)
			for _, e := range edges {
				if dist[e.V0] >= 0 {
					inside++
				}
			}
			hopsOf := f.st.Locals[0].Hops
			for v := int64(0); v < n; v++ {
				reached := f.parent(v) >= 0
				if reached != (dist[v] >= 0) {
					return false
				}
				if reached && int64(hopsOf[v]) != dist[v] {
					return false
				}
				if dist[v] > ecc {
					ecc = dist[v]
				}
			}
			return hops == ecc && trav == inside
		},
		gen.Int64(),
		gen.Int64Range(1, 600),
		gen.IntRange(0, 40),
		gen.IntRange(1, 3),
		gen.IntRange(0, 3),
	))

	properties.TestingRun(t)
}

func TestValidationErrorMatching(t *testing.T) {
	err := error(&ValidationError{Kind: Cycle, Root: 3, Count: 2})
	assert.True(t, errors.Is(err, ErrCycle))
	assert.False(t, errors.Is(err, ErrDisconnected))
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, int64(2), ve.Count)
	assert.Equal(t, "bfs tree of root 3 invalid: cycle (2)", err.Error())
	assert.Equal(t, "root_not_in_tree", RootNotInTree.String())
}
