package generator

import (
	"errors"
	"math/rand/v2"
	"sync"

	"github.com/htsst/netalx/graph"
	"github.com/htsst/netalx/utils"
	"github.com/rs/zerolog/log"
)

var ErrNoRoots = errors.New("no vertex with a non self loop edge to use as bfs root")

// SampleRoots picks up to count distinct vertices, in ascending order, among those with at
// least one non self loop edge. Sampling is sequential selection over all ids, so it is a
// function of the seed and the edges only.
func SampleRoots(el *graph.EdgeList, count int, seed uint64) ([]int64, error) {
	n := el.NumVertices
	hasAdj := utils.NewBitmap(make([]uint64, utils.WordsFor(n)), 0)
	var wg sync.WaitGroup
	for j := range el.Lists {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sl := &el.Lists[j]
			for _, e := range sl.Edges[:sl.Length] {
				if e.V0 >= 0 && e.V1 >= 0 && e.V0 != e.V1 {
					hasAdj.TestAndSet(e.V0)
					hasAdj.TestAndSet(e.V1)
				}
			}
		}()
	}
	wg.Wait()

	rng := rand.New(rand.NewPCG(seed, 0x5EED))
	want := int64(count)
	roots := make([]int64, 0, count)
	for v := int64(0); int64(len(roots)) < want && v < n; v++ {
		r := float64(n-v) * rng.Float64()
		if !hasAdj.Has(v) || r > float64(want-int64(len(roots))) {
			continue
		}
		roots = append(roots, v)
	}

	if len(roots) < count {
		if len(roots) == 0 {
			return nil, ErrNoRoots
		}
		log.Warn().Msg("Cannot find " + utils.V(count) + " sample roots of non-self degree > 0, using " + utils.V(len(roots)))
	}
	return roots, nil
}
