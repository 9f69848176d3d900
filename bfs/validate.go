package bfs

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/htsst/netalx/graph"
	"github.com/htsst/netalx/utils"
	"github.com/rs/zerolog/log"
)

type ErrorKind uint8

const (
	Cycle          ErrorKind = iota + 1 // A parent chain never reaches a leveled vertex.
	RootNotFound                        // A parent chain runs into an unreached vertex.
	OutOfRange                          // An input edge endpoint or a parent is not a vertex of the graph.
	Disconnected                        // An input edge joins a reached and an unreached vertex.
	LevelMismatch                       // An input edge joins vertices more than one level apart.
	EdgeNotVisited                      // A reached vertex's parent edge is not an input edge.
	MultipleRoots                       // A vertex other than the root is its own parent.
	RootNotInTree                       // The root is out of range or not its own parent.
)

func (k ErrorKind) String() string {
	switch k {
	case Cycle:
		return "cycle"
	case RootNotFound:
		return "root_not_found"
	case OutOfRange:
		return "out_of_range"
	case Disconnected:
		return "disconnected"
	case LevelMismatch:
		return "level_mismatch"
	case EdgeNotVisited:
		return "edge_not_visited"
	case MultipleRoots:
		return "multiple_roots"
	case RootNotInTree:
		return "root_not_in_tree"
	}
	return "unknown(" + strconv.Itoa(int(k)) + ")"
}

// ValidationError reports the first failing check. Count is how many vertices or edges failed it.
type ValidationError struct {
	Kind  ErrorKind
	Root  int64
	Count int64
}

func (e *ValidationError) Error() string {
	return "bfs tree of root " + utils.V(e.Root) + " invalid: " + e.Kind.String() + " (" + utils.V(e.Count) + ")"
}

// Is matches any ValidationError of the same kind, so errors.Is(err, ErrCycle) works.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Kind == e.Kind
}

var (
	ErrCycle          = &ValidationError{Kind: Cycle}
	ErrRootNotFound   = &ValidationError{Kind: RootNotFound}
	ErrOutOfRange     = &ValidationError{Kind: OutOfRange}
	ErrDisconnected   = &ValidationError{Kind: Disconnected}
	ErrLevelMismatch  = &ValidationError{Kind: LevelMismatch}
	ErrEdgeNotVisited = &ValidationError{Kind: EdgeNotVisited}
	ErrMultipleRoots  = &ValidationError{Kind: MultipleRoots}
	ErrRootNotInTree  = &ValidationError{Kind: RootNotInTree}
)

type counters [MultipleRoots + 1]int64

func (c *counters) add(other *counters) {
	for k := range other {
		if other[k] != 0 {
			atomic.AddInt64(&c[k], other[k])
		}
	}
}

// first reports the first kind with a non zero count, in declaration order.
func (c *counters) first(root int64) error {
	for k := Cycle; k <= MultipleRoots; k++ {
		if c[k] != 0 {
			return &ValidationError{Kind: k, Root: root, Count: c[k]}
		}
	}
	return nil
}

// Validate checks the tree left in st by a traversal from root against the input edges. On
// success it returns the number of input edges with both endpoints in the tree (self loops and
// repeats included). The per partition trees are merged into every copy first.
func Validate(g *graph.Graph, st *State, el *graph.EdgeList, root int64, pool *graph.Pool) (int64, error) {
	n := g.N
	began := time.Now()
	mergeTrees(st, pool)
	merged := time.Since(began)

	if root < 0 || root >= n || st.Locals[0].Tree[root] != root {
		return 0, &ValidationError{Kind: RootNotInTree, Root: root, Count: 1}
	}

	var errs counters
	computeLevels(st, root, pool, &errs)
	leveled := time.Since(began)
	if err := errs.first(root); err != nil {
		return 0, err
	}
	copyHops(st, pool)

	seen := utils.NewBitmap(make([]uint64, st.Words), 0)
	trav := scanEdges(g, st, el, pool, &seen, &errs)
	scanned := time.Since(began)
	if err := errs.first(root); err != nil {
		return 0, err
	}

	checkCoverage(st, root, pool, &seen, &errs)
	log.Trace().Dur("merge", merged).Dur("levels", leveled-merged).Dur("edges", scanned-leveled).
		Dur("total", time.Since(began)).Msg("Validated root " + utils.V(root))
	if err := errs.first(root); err != nil {
		return 0, err
	}
	return trav, nil
}

// mergeTrees copies each partition's own range of the tree to all other partitions, one ring
// step at a time.
func mergeTrees(st *State, pool *graph.Pool) {
	p := len(st.Locals)
	pool.Run(func(w *graph.Worker) {
		l := &st.Locals[w.Node]
		s, e := utils.PartialRange(l.Hi-l.Lo, l.Lo, w.Cores, w.Core)
		for k := 0; k < p-1; k++ {
			target := st.Locals[(w.Node+k+1)%p].Tree
			copy(target[s:e], l.Tree[s:e])
			w.Barrier()
		}
	})
}

// computeLevels fills Locals[0].Hops with each reached vertex's depth.
// Concurrent walks may level the same chain; they write identical values.
func computeLevels(st *State, root int64, pool *graph.Pool, errs *counters) {
	n := st.N
	hops := st.Locals[0].Hops
	pool.Run(func(w *graph.Worker) {
		tree := st.Locals[w.Node].Tree
		s, e := utils.PartialRange(n, 0, w.Workers(), w.ID)
		for k := s; k < e; k++ {
			if k == root {
				atomic.StoreInt32(&hops[k], 0)
			} else {
				atomic.StoreInt32(&hops[k], -1)
			}
		}
		w.Barrier()

		var local counters
		for k := s; k < e; k++ {
			if k == root || tree[k] < 0 || atomic.LoadInt32(&hops[k]) >= 0 {
				continue
			}
			parent, nhop := k, int64(0)
			for parent >= 0 && parent < n && atomic.LoadInt32(&hops[parent]) < 0 && nhop < n {
				parent = tree[parent]
				nhop++
			}
			if parent >= n {
				local[OutOfRange]++
				continue
			}
			if nhop >= n {
				local[Cycle]++
				continue
			}
			if parent < 0 {
				local[RootNotFound]++
				continue
			}
			level := nhop + int64(atomic.LoadInt32(&hops[parent]))
			for parent = k; atomic.LoadInt32(&hops[parent]) < 0; parent = tree[parent] {
				atomic.StoreInt32(&hops[parent], int32(level))
				level--
			}
		}
		errs.add(&local)
	})
}

func copyHops(st *State, pool *graph.Pool) {
	src := st.Locals[0].Hops
	pool.Run(func(w *graph.Worker) {
		if w.Node == 0 {
			return
		}
		s, e := utils.PartialRange(st.N, 0, w.Cores, w.Core)
		copy(st.Locals[w.Node].Hops[s:e], src[s:e])
	})
}

// scanEdges checks every input edge against the tree and levels, marks the tree edges that
// appear in the input, and counts edges inside the tree.
func scanEdges(g *graph.Graph, st *State, el *graph.EdgeList, pool *graph.Pool, seen *utils.Bitmap, errs *counters) int64 {
	n := g.N
	p := g.NumPartitions()
	return pool.ParallelFor(func(w *graph.Worker) int64 {
		tree := st.Locals[w.Node].Tree
		hops := st.Locals[w.Node].Hops
		var local counters
		trav := int64(0)
		for _, j := range el.ListsOf(w.Node, p) {
			sl := &el.Lists[j]
			s, e := utils.PartialRange(sl.Length, 0, w.Cores, w.Core)
			for _, edge := range sl.Edges[s:e] {
				v, u := edge.V0, edge.V1
				if v < 0 || u < 0 {
					continue
				}
				if v >= n || u >= n {
					local[OutOfRange]++
					continue
				}
				inV, inU := tree[v] >= 0, tree[u] >= 0
				if inV != inU {
					local[Disconnected]++
					continue
				}
				if !inV {
					continue
				}
				trav++
				if v != u {
					if tree[v] == u {
						seen.TestAndSet(v)
					}
					if tree[u] == v {
						seen.TestAndSet(u)
					}
				}
				if diff := hops[v] - hops[u]; diff > 1 || diff < -1 {
					local[LevelMismatch]++
				}
			}
		}
		errs.add(&local)
		return trav
	})
}

// checkCoverage requires every reached vertex but the root to hang off an input edge, and to
// not be a root itself.
func checkCoverage(st *State, root int64, pool *graph.Pool, seen *utils.Bitmap, errs *counters) {
	pool.Run(func(w *graph.Worker) {
		l := &st.Locals[w.Node]
		s, e := utils.PartialRange(l.Hi-l.Lo, l.Lo, w.Cores, w.Core)
		var local counters
		for k := s; k < e; k++ {
			if k == root {
				continue
			}
			if l.Tree[k] >= 0 && !seen.IsSet(k) {
				local[EdgeNotVisited]++
			}
			if l.Tree[k] == k {
				local[MultipleRoots]++
			}
		}
		errs.add(&local)
	})
}
