package bfs

import (
	"math/bits"
	"sync/atomic"
	"time"

	"github.com/htsst/netalx/graph"
	"github.com/htsst/netalx/utils"
)

type Options struct {
	// EdgeFactor scales the work estimates of the direction switch. Zero derives it from the
	// graph as M/(2N).
	EdgeFactor int64
}

// Engine runs hybrid top-down / bottom-up traversals over a partitioned graph.
// A single Engine runs one traversal at a time.
type Engine struct {
	g          *graph.Graph
	st         *State
	pool       *graph.Pool
	edgeFactor int64

	queueCount   atomic.Int64 // Vertices visited so far, root included.
	topdownEdges atomic.Int64
	scanned      atomic.Int64
	discovered   []atomic.Int64 // Per partition, for the profile.
}

func NewEngine(g *graph.Graph, st *State, pool *graph.Pool, opts Options) *Engine {
	ef := opts.EdgeFactor
	if ef <= 0 {
		ef = 1
		if g.N > 0 {
			ef = utils.Max(1, g.M/(2*g.N))
		}
	}
	return &Engine{g: g, st: st, pool: pool, edgeFactor: ef, discovered: make([]atomic.Int64, g.NumPartitions())}
}

func (e *Engine) EdgeFactor() int64 { return e.edgeFactor }

func (e *Engine) State() *State { return e.st }

// Run traverses from root and returns the number of levels below the root (the depth of the
// tree). The tree is left in the per partition state; the state is cleared first.
// A root outside the graph leaves an empty tree and returns -1.
func (e *Engine) Run(root int64, th Thresholds) (hops int64, prof *Profile) {
	parts := e.g.Parts
	p := e.g.NumPartitions()
	prof = &Profile{Root: root, Thresholds: th}
	if root < 0 || root >= e.g.N {
		e.st.Reset(e.pool)
		return -1, prof
	}
	e.queueCount.Store(1)
	e.topdownEdges.Store(0)
	e.scanned.Store(0)
	for k := range e.discovered {
		e.discovered[k].Store(0)
	}
	began := time.Now()

	e.pool.Run(func(w *graph.Worker) {
		l := &e.st.Locals[w.Node]
		sg := e.g.Subgraph(w.Node)
		e.st.clearLocal(w)
		w.Barrier()
		if w.Master() {
			l.Frontier.Set(root)
			if root >= l.Lo && root < l.Hi {
				l.Visited.Set(root)
				l.Tree[root] = root
			}
		}
		w.Barrier()

		ownLo, ownHi := utils.PartialRange(l.WordHi-l.WordLo, l.WordLo, w.Cores, w.Core)
		globLo, globHi := utils.PartialRange(e.st.Words, 0, w.Cores, w.Core)
		algo := TopDown
		start, end, frontierSize := int64(0), int64(1), int64(1)
		var levelBegan time.Time

		level := int64(0)
		for ; end != start; level++ {
			if w.ID == 0 {
				levelBegan = time.Now()
			}
			var queued, tdEdges, scanned int64

			if algo == TopDown {
				l.Neighbors.ClearWords(ownLo, ownHi)
				w.Barrier()
				for i := ownLo; i < ownHi; i++ {
					for word := l.Frontier.Word(i); word != 0; word &= word - 1 {
						v := i<<6 + int64(bits.TrailingZeros64(word))
						for _, u := range sg.Row(v - sg.Offset) {
							scanned++
							tl := &e.st.Locals[parts.PartitionOf(u)]
							if !tl.Visited.IsSet(u) && !tl.Visited.TestAndSet(u) {
								tl.Tree[u] = v
								tl.Neighbors.TestAndSet(u)
								tdEdges += e.g.Degree(u)
								queued++
							}
						}
					}
				}
			} else {
				for i := ownLo; i < ownHi; i++ {
					var found uint64
					for todo := ^l.Visited.Word(i) & utils.ValidMask(i, l.Lo, l.Hi); todo != 0; todo &= todo - 1 {
						t := bits.TrailingZeros64(todo)
						u := i<<6 + int64(t)
						for _, v := range sg.Row(u - sg.Offset) {
							scanned++
							if l.Frontier.Has(v) {
								l.Tree[u] = v
								found |= 1 << uint(t)
								queued++
								break
							}
						}
					}
					l.Visited.OrWord(i, found)
					l.Neighbors.SetWord(i, found)
				}
			}

			e.queueCount.Add(queued)
			e.topdownEdges.Add(tdEdges)
			e.scanned.Add(scanned)
			e.discovered[w.Node].Add(queued)
			w.Barrier()

			total := e.queueCount.Load()
			next, est := ChooseNext(algo, LevelStats{
				FrontierSize: frontierSize,
				NeighborSize: total - end,
				TopDownEdges: e.topdownEdges.Load(),
				Unvisited:    e.st.N - end,
				EdgeFactor:   e.edgeFactor,
			}, th)
			if w.ID == 0 {
				prof.Levels = append(prof.Levels, e.levelRecord(algo, next, frontierSize, total-end, est, time.Since(levelBegan)))
			}
			algo = next

			// Merge: every partition's frontier becomes the union of all neighbor sets.
			mergeBegan := time.Now()
			l.Frontier.ClearWords(globLo, globHi)
			w.Barrier()
			if w.ID == 0 {
				e.topdownEdges.Store(0)
				e.scanned.Store(0)
				for k := range e.discovered {
					e.discovered[k].Store(0)
				}
			}
			for k := 0; k < p; k++ {
				target := &e.st.Locals[(w.Node+k+1)%p].Frontier
				for i := ownLo; i < ownHi; i++ {
					target.OrWord(i, l.Neighbors.Word(i))
				}
				w.Barrier()
			}
			if w.ID == 0 {
				prof.Levels[len(prof.Levels)-1].Merge = time.Since(mergeBegan)
			}

			start, end = end, total
			frontierSize = end - start
		}
		if w.ID == 0 {
			hops = level - 1
		}
	})

	prof.Elapsed = time.Since(began)
	prof.Visited = e.queueCount.Load()
	return hops, prof
}

func (e *Engine) levelRecord(algo, next Algorithm, frontier, discovered int64, est Estimate, elapsed time.Duration) Level {
	lv := Level{
		Algorithm:    algo,
		Next:         next,
		Frontier:     frontier,
		Discovered:   discovered,
		PerPartition: make([]int64, len(e.discovered)),
		Scanned:      e.scanned.Load(),
		Estimate:     est,
		Elapsed:      elapsed,
	}
	for k := range e.discovered {
		lv.PerPartition[k] = e.discovered[k].Load()
	}
	return lv
}
