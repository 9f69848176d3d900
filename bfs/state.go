package bfs

import (
	"errors"
	"fmt"

	"github.com/htsst/netalx/graph"
	"github.com/htsst/netalx/numa"
	"github.com/htsst/netalx/utils"
	"golang.org/x/sync/errgroup"
)

// Local is the traversal state kept on one partition's node.
//
// Visited and Neighbors cover only the partition's own range; Frontier is a full copy of the
// global frontier. Tree and Hops are indexed by global id; during a traversal only the own
// range of Tree is written, the validator later fills in the rest.
type Local struct {
	Visited   utils.Bitmap
	Neighbors utils.Bitmap
	Frontier  utils.Bitmap
	Tree      []int64 // Parent per vertex, -1 when unreached.
	Hops      []int32 // Level per vertex, used by validation.
	Lo, Hi    int64   // Own vertex range.
	WordLo    int64   // Own bitmap word range.
	WordHi    int64
	block     *numa.Block
}

// State holds one Local per partition.
type State struct {
	N      int64
	Words  int64 // Words of the global frontier.
	Locals []Local
}

type AllocOptions struct {
	HugePages bool
	Bind      bool
}

// Allocate reserves the per partition state on each partition's node.
func Allocate(g *graph.Graph, pool *graph.Pool, opts AllocOptions) (*State, error) {
	p := g.NumPartitions()
	st := &State{N: g.N, Words: utils.WordsFor(g.N), Locals: make([]Local, p)}

	var eg errgroup.Group
	for k := 0; k < p; k++ {
		eg.Go(func() error {
			lo, hi := g.Parts.Range(k)
			wlo, whi := g.Parts.WordRange(k)
			own := whi - wlo
			size := numa.Footprint(int(own)*8, int(own)*8, int(st.Words)*8, int(g.N+1)*8, int(g.N+1)*4)
			blk, err := numa.Alloc(size, k, numa.AllocOptions{HugePages: opts.HugePages, Bind: opts.Bind})
			if err != nil {
				return fmt.Errorf("allocating bfs state of partition %d: %w", k, err)
			}
			a := numa.NewArena(blk)
			st.Locals[k] = Local{
				Visited:   utils.NewBitmap(a.Uint64s(own), wlo<<6),
				Neighbors: utils.NewBitmap(a.Uint64s(own), wlo<<6),
				Frontier:  utils.NewBitmap(a.Uint64s(st.Words), 0),
				Tree:      a.Int64s(g.N + 1),
				Hops:      a.Int32s(g.N + 1),
				Lo:        lo,
				Hi:        hi,
				WordLo:    wlo,
				WordHi:    whi,
				block:     blk,
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		st.Free()
		return nil, err
	}
	pool.Run(func(w *graph.Worker) {
		st.Locals[w.Node].block.Touch(w.Core, w.Cores)
	})
	return st, nil
}

// Reset clears every bitmap and marks the own range of each tree unreached.
func (st *State) Reset(pool *graph.Pool) {
	pool.Run(func(w *graph.Worker) {
		st.clearLocal(w)
	})
}

func (st *State) clearLocal(w *graph.Worker) {
	l := &st.Locals[w.Node]
	s, e := utils.PartialRange(l.WordHi-l.WordLo, l.WordLo, w.Cores, w.Core)
	l.Visited.ClearWords(s, e)
	l.Neighbors.ClearWords(s, e)
	s, e = utils.PartialRange(st.Words, 0, w.Cores, w.Core)
	l.Frontier.ClearWords(s, e)
	s, e = utils.PartialRange(l.Hi-l.Lo, l.Lo, w.Cores, w.Core)
	for v := s; v < e; v++ {
		l.Tree[v] = -1
	}
}

// Parent of v as recorded by its owner partition.
func (st *State) Parent(parts graph.PartitionMap, v int64) int64 {
	return st.Locals[parts.PartitionOf(v)].Tree[v]
}

// Free releases every partition block.
func (st *State) Free() error {
	var errs []error
	for k := range st.Locals {
		errs = append(errs, st.Locals[k].block.Free())
		st.Locals[k].Tree, st.Locals[k].Hops = nil, nil
	}
	return errors.Join(errs...)
}
