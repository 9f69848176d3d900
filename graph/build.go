package graph

import (
	"cmp"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/htsst/netalx/enforce"
	"github.com/htsst/netalx/numa"
	"github.com/htsst/netalx/utils"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
)

type BuildOptions struct {
	HugePages      bool // Round partition blocks to large pages.
	Bind           bool // Bind partition blocks to their node.
	KeepDuplicates bool // Skip the duplicate removal pass.
}

type PhaseTime struct {
	Name    string
	Elapsed time.Duration
}

type BuildStats struct {
	SelfLoops  int64 // Input edges (v, v), dropped.
	Duplicates int64 // Directed adjacency entries removed by deduplication.
	MinDegree  int64
	MaxDegree  int64
	Phases     []PhaseTime
}

func (bs *BuildStats) Total() (total time.Duration) {
	for _, p := range bs.Phases {
		total += p.Elapsed
	}
	return total
}

type builder struct {
	el     *EdgeList
	pool   *Pool
	pm     PartitionMap
	g      *Graph
	counts []int64
	degree []int64
	stats  BuildStats
	watch  utils.Watch
}

// Build converts the edge list into a partitioned, symmetric, self-loop free CSR with one
// partition per pool node.
func Build(el *EdgeList, pool *Pool, opts BuildOptions) (*Graph, BuildStats, error) {
	p := pool.NumPartitions()
	b := &builder{
		el:     el,
		pool:   pool,
		pm:     NewPartitionMap(el.NumVertices, p),
		counts: make([]int64, p),
	}
	b.g = &Graph{N: el.NumVertices, Parts: b.pm, Subgraphs: make([]Subgraph, p)}
	b.watch.Start()

	if bad := b.countEdgelistSize(); bad > 0 {
		return nil, b.stats, fmt.Errorf("edge list has %d edges with endpoints outside [0, %d)", bad, el.NumVertices)
	}
	b.phase("count")

	if err := b.allocate(opts); err != nil {
		return nil, b.stats, err
	}
	b.phase("allocate")

	b.countNodeDegree()
	b.prefixSum()
	b.phase("degree")

	b.scatter()
	b.phase("scatter")

	b.degree = make([]int64, el.NumVertices)
	b.updateDegreeTable()
	if !opts.KeepDuplicates {
		b.removeDuplicates()
		b.updateDegreeTable()
		b.phase("dedup")
	}
	b.degree = nil

	log.Debug().Msg("CSR built: n " + utils.V(b.g.N) + " m " + utils.V(b.g.M) + " self-loops " + utils.V(b.stats.SelfLoops) +
		" duplicates " + utils.V(b.stats.Duplicates) + " degree [" + utils.V(b.stats.MinDegree) + ", " + utils.V(b.stats.MaxDegree) + "]")
	return b.g, b.stats, nil
}

func (b *builder) phase(name string) {
	d := b.watch.Lap()
	b.stats.Phases = append(b.stats.Phases, PhaseTime{Name: name, Elapsed: d})
	log.Debug().Str("phase", name).Dur("elapsed", d).Msg("Construction phase done")
}

func valid(e Edge) bool {
	return e.V0 >= 0 && e.V1 >= 0 && e.V0 != e.V1
}

// countEdgelistSize fills counts[k] with the adjacency entries partition k will hold.
// Returns the number of edges with an endpoint beyond n.
func (b *builder) countEdgelistSize() (bad int64) {
	p := b.pm.P
	n := b.pm.N
	var selfLoops int64
	bad = b.pool.ParallelFor(func(w *Worker) int64 {
		local := make([]int64, p)
		loops, outside := int64(0), int64(0)
		for _, j := range b.el.ListsOf(w.Node, p) {
			sl := &b.el.Lists[j]
			s, e := utils.PartialRange(sl.Length, 0, w.Cores, w.Core)
			for _, edge := range sl.Edges[s:e] {
				if edge.V0 < 0 || edge.V1 < 0 {
					continue
				}
				if edge.V0 >= n || edge.V1 >= n {
					outside++
					continue
				}
				if edge.V0 == edge.V1 {
					loops++
					continue
				}
				local[b.pm.PartitionOf(edge.V0)]++
				local[b.pm.PartitionOf(edge.V1)]++
			}
		}
		for k := range local {
			atomic.AddInt64(&b.counts[k], local[k])
		}
		atomic.AddInt64(&selfLoops, loops)
		return outside
	})
	b.stats.SelfLoops = selfLoops
	return bad
}

// allocate reserves one node-local block per partition and pre-faults it from that node.
func (b *builder) allocate(opts BuildOptions) error {
	var eg errgroup.Group
	for k := 0; k < b.pm.P; k++ {
		eg.Go(func() error {
			n, m := b.pm.OwnerChunkSize(k), b.counts[k]
			blk, err := numa.Alloc(numa.Footprint(int(n+1)*8, int(m+1)*8), k, numa.AllocOptions{HugePages: opts.HugePages, Bind: opts.Bind})
			if err != nil {
				return fmt.Errorf("allocating partition %d (n %d, m %d): %w", k, n, m, err)
			}
			b.g.Subgraphs[k] = Subgraph{N: n, M: m, Offset: b.pm.Offset(k), block: blk}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		b.g.Free()
		return err
	}

	b.pool.Run(func(w *Worker) {
		b.g.Subgraphs[w.Node].block.Touch(w.Core, w.Cores)
	})

	for k := range b.g.Subgraphs {
		sg := &b.g.Subgraphs[k]
		a := numa.NewArena(sg.block)
		sg.Start = a.Int64s(sg.N + 1)
		sg.End = a.Int64s(sg.M + 1)
		b.g.M += sg.M
		log.Trace().Int("partition", k).Msg("Block " + utils.V(sg.block.Size()>>20) + " MiB, used " + utils.V(a.Used()))
	}
	return nil
}

// forEachRingEdge visits, for worker w, its share of every sublist; the sublist order starts
// after the worker's own node so partitions do not all read the same list at once.
func (b *builder) forEachRingEdge(w *Worker, fn func(e Edge)) {
	lists := len(b.el.Lists)
	for k := 0; k < lists; k++ {
		sl := &b.el.Lists[(w.Node+k+1)%lists]
		s, e := utils.PartialRange(sl.Length, 0, w.Cores, w.Core)
		for _, edge := range sl.Edges[s:e] {
			if valid(edge) {
				fn(edge)
			}
		}
	}
}

// countNodeDegree leaves deg(v) in Start[v-offset+1] for every owned v.
func (b *builder) countNodeDegree() {
	b.pool.Run(func(w *Worker) {
		sg := &b.g.Subgraphs[w.Node]
		s, e := utils.PartialRange(sg.N+1, 0, w.Cores, w.Core)
		clear(sg.Start[s:e])
		w.Barrier()

		lo, hi := sg.Offset, sg.Offset+sg.N
		b.forEachRingEdge(w, func(edge Edge) {
			if edge.V0 >= lo && edge.V0 < hi {
				atomic.AddInt64(&sg.Start[edge.V0+1-lo], 1)
			}
			if edge.V1 >= lo && edge.V1 < hi {
				atomic.AddInt64(&sg.Start[edge.V1+1-lo], 1)
			}
		})
	})
}

// prefixSum turns the degrees into row offsets: each worker sums its slice, the partition's
// master combines the slice totals, then every worker adds its slice offset.
func (b *builder) prefixSum() {
	psOff := make([][]int64, b.pm.P)
	for k := range psOff {
		psOff[k] = make([]int64, b.pool.Topology().WorkersIn(k)+1)
	}

	b.pool.Run(func(w *Worker) {
		sg := &b.g.Subgraphs[w.Node]
		off := psOff[w.Node]
		s, e := utils.PartialRange(sg.N+1, 0, w.Cores, w.Core)
		for j := s + 1; j < e; j++ {
			sg.Start[j] += sg.Start[j-1]
		}
		if e > s {
			off[w.Core+1] = sg.Start[e-1]
		}
		w.Barrier()
		if w.Master() {
			for c := 1; c <= w.Cores; c++ {
				off[c] += off[c-1]
			}
		}
		w.Barrier()
		for j := s; j < e; j++ {
			sg.Start[j] += off[w.Core]
		}
	})

	for k := range b.g.Subgraphs {
		sg := &b.g.Subgraphs[k]
		enforce.ENFORCE(sg.Start[sg.N] == sg.M, "partition ", k, ": start[n] ", sg.Start[sg.N], " != m ", sg.M)
	}
}

// scatter places every edge into both endpoints' rows using Start as atomic cursors, then
// shifts Start back so that it holds row beginnings again.
func (b *builder) scatter() {
	b.pool.Run(func(w *Worker) {
		sg := &b.g.Subgraphs[w.Node]
		lo, hi := sg.Offset, sg.Offset+sg.N
		b.forEachRingEdge(w, func(edge Edge) {
			if edge.V1 >= lo && edge.V1 < hi {
				sg.End[utils.FetchAdd(&sg.Start[edge.V1-lo], 1)] = edge.V0
			}
			if edge.V0 >= lo && edge.V0 < hi {
				sg.End[utils.FetchAdd(&sg.Start[edge.V0-lo], 1)] = edge.V1
			}
		})
		w.Barrier()
		if w.Master() {
			for j := sg.N; j > 0; j-- {
				sg.Start[j] = sg.Start[j-1]
			}
			sg.Start[0] = 0
			sg.End[sg.M] = -1
		}
	})
}

// updateDegreeTable records the current degree of every vertex and checks their sum.
func (b *builder) updateDegreeTable() {
	var sum int64
	min, max := int64(math.MaxInt64), int64(0)
	b.pool.Run(func(w *Worker) {
		sg := &b.g.Subgraphs[w.Node]
		s, e := utils.PartialRange(sg.N, 0, w.Cores, w.Core)
		lsum, lmin, lmax := int64(0), int64(math.MaxInt64), int64(0)
		for j := s; j < e; j++ {
			d := sg.Start[j+1] - sg.Start[j]
			b.degree[sg.Offset+j] = d
			lsum += d
			lmin = utils.Min(lmin, d)
			lmax = utils.Max(lmax, d)
		}
		atomic.AddInt64(&sum, lsum)
		utils.AtomicMinInt64(&min, lmin)
		utils.AtomicMaxInt64(&max, lmax)
	})
	enforce.ENFORCE(sum == b.g.M, "degree sum ", sum, " != m ", b.g.M)
	if b.g.N == 0 {
		min = 0
	}
	b.stats.MinDegree, b.stats.MaxDegree = min, max
}

// removeDuplicates sorts every row by (neighbor degree desc, id asc), drops repeats, and
// compacts each partition's rows. Self loops are already gone.
func (b *builder) removeDuplicates() {
	degree := b.degree
	order := func(x, y int64) int {
		if c := cmp.Compare(degree[y], degree[x]); c != 0 {
			return c
		}
		return cmp.Compare(x, y)
	}

	removed := b.pool.ParallelFor(func(w *Worker) int64 {
		sg := &b.g.Subgraphs[w.Node]
		s, e := utils.PartialRange(sg.N, 0, w.Cores, w.Core)
		dropped := int64(0)
		for j := s; j < e; j++ {
			row := sg.Row(j)
			dropped += int64(len(row) - utils.SortUniq(row, order, -1))
		}
		return dropped
	})

	b.pool.Run(func(w *Worker) {
		if !w.Master() {
			return
		}
		sg := &b.g.Subgraphs[w.Node]
		out := int64(0)
		for j := int64(0); j < sg.N; j++ {
			row := sg.Row(j)
			sg.Start[j] = out
			if kept := slices.Index(row, -1); kept >= 0 {
				out += int64(kept)
			} else {
				out += int64(len(row))
			}
		}
		sg.Start[sg.N] = out
		kept := utils.CompactSentinel(sg.End[:sg.M], -1)
		enforce.ENFORCE(int64(kept) == out, "partition ", w.Node, ": kept ", kept, " != ", out)
		for i := out; i <= sg.M; i++ {
			sg.End[i] = -1
		}
		sg.M = out
	})

	b.g.M = 0
	for k := range b.g.Subgraphs {
		b.g.M += b.g.Subgraphs[k].M
	}
	b.stats.Duplicates = removed
}
