package generator

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/htsst/netalx/graph"
	"github.com/htsst/netalx/utils"
	"golang.org/x/sync/errgroup"
)

type Kind uint8

const (
	Kronecker Kind = iota // Scrambled vertex ids, fixed quadrant probabilities.
	RMAT                  // Unscrambled ids, per level noise on the probabilities.
)

func (k Kind) String() string {
	if k == RMAT {
		return "R-MAT"
	}
	return "Kronecker"
}

// Edges are generated in fixed size blocks, each from its own stream, so the output depends
// only on the seed and not on the number of workers.
const blockEdges = 1 << 14

type Params struct {
	Scale      int
	EdgeFactor int
	Kind       Kind
	A, B, C    float64
	Seed       uint64
	Lists      int // Number of edge sublists (usually the number of partitions).
}

func DefaultParams(scale, edgeFactor int) Params {
	return Params{Scale: scale, EdgeFactor: edgeFactor, A: 0.57, B: 0.19, C: 0.19, Seed: 1, Lists: 1}
}

func (p Params) D() float64 { return 1 - (p.A + p.B + p.C) }

func (p Params) NumVertices() int64 { return int64(1) << p.Scale }

func (p Params) NumEdges() int64 { return p.NumVertices() * int64(p.EdgeFactor) }

func (p Params) validate() error {
	if p.Scale < 1 || p.Scale > 40 {
		return fmt.Errorf("scale %d out of range [1, 40]", p.Scale)
	}
	if p.EdgeFactor < 1 {
		return fmt.Errorf("edgefactor %d must be positive", p.EdgeFactor)
	}
	if p.A < 0 || p.B < 0 || p.C < 0 || p.D() < 0 {
		return fmt.Errorf("quadrant probabilities %.3f %.3f %.3f %.3f must be non-negative", p.A, p.B, p.C, p.D())
	}
	if p.Lists < 1 {
		return fmt.Errorf("need at least one edge list")
	}
	return nil
}

// Generate produces 2^scale * edgefactor undirected edges split into p.Lists sublists.
func Generate(ctx context.Context, p Params, workers int) (*graph.EdgeList, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	m := p.NumEdges()
	edges := make([]graph.Edge, m)
	blocks := utils.CeilDiv(m, blockEdges)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(utils.Max(workers, 1))
	for b := int64(0); b < blocks; b++ {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(p.Seed, uint64(b)))
			lo, hi := b*blockEdges, utils.Min((b+1)*blockEdges, m)
			for i := lo; i < hi; i++ {
				edges[i] = p.edge(rng)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return graph.SplitEdges(p.NumVertices(), edges, p.Lists), nil
}

func (p Params) edge(rng *rand.Rand) graph.Edge {
	a, b, c, d := p.A, p.B, p.C, p.D()
	var i, j uint64
	for bit := uint64(1) << (p.Scale - 1); bit != 0; bit >>= 1 {
		r := rng.Float64()
		switch {
		case r < a:
		case r < a+b:
			j |= bit
		case r < a+b+c:
			i |= bit
		default:
			i |= bit
			j |= bit
		}
		if p.Kind == RMAT {
			// Keep each probability within +/- 5% of the previous level and renormalize.
			a *= 0.95 + rng.Float64()/10
			b *= 0.95 + rng.Float64()/10
			c *= 0.95 + rng.Float64()/10
			d *= 0.95 + rng.Float64()/10
			norm := 1 / (a + b + c + d)
			a, b, c = a*norm, b*norm, c*norm
			d = 1 - (a + b + c)
		}
	}
	if p.Kind == Kronecker {
		i, j = p.scramble(i), p.scramble(j)
	}
	return graph.Edge{V0: int64(i), V1: int64(j)}
}

// scramble is a bijection on [0, 2^scale) that hides the recursive structure of the ids.
func (p Params) scramble(v uint64) uint64 {
	mask := uint64(1)<<p.Scale - 1
	k1 := (p.Seed*0x9E3779B97F4A7C15 | 1)
	k2 := p.Seed * 0xBF58476D1CE4E5B9
	v = (v*k1 + k2) & mask
	v ^= v >> (uint(p.Scale)/2 + 1)
	v = (v * 0x94D049BB133111EB) & mask
	v ^= v >> (uint(p.Scale)/3 + 1)
	return v
}
