package bench

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/htsst/netalx/bfs"
	"github.com/htsst/netalx/graph"
	"github.com/htsst/netalx/stats"
	"github.com/htsst/netalx/utils"
	"github.com/rs/zerolog/log"
)

// Reporter receives every timed traversal. Reporters that also implement RecordProfile or
// RecordValidation get the level profile and the validation outcome.
type Reporter interface {
	Observe(s stats.Sample)
}

type profileRecorder interface {
	RecordProfile(p *bfs.Profile)
}

type validationRecorder interface {
	RecordValidation(err error)
}

// Runner times traversals from a fixed list of roots.
type Runner struct {
	RunID          string
	SkipValidation bool // Validate only the first root and reuse its edge count for the others.

	g         *graph.Graph
	el        *graph.EdgeList
	pool      *graph.Pool
	engine    *bfs.Engine
	roots     []int64
	reporters []Reporter

	trav []int64 // Validated edge count per root index, -1 until known.
}

func NewRunner(g *graph.Graph, el *graph.EdgeList, pool *graph.Pool, engine *bfs.Engine, roots []int64, reporters ...Reporter) *Runner {
	trav := make([]int64, len(roots))
	for i := range trav {
		trav[i] = -1
	}
	return &Runner{
		RunID:     uuid.NewString(),
		g:         g,
		el:        el,
		pool:      pool,
		engine:    engine,
		roots:     roots,
		reporters: reporters,
		trav:      trav,
	}
}

func (r *Runner) Roots() []int64 { return r.roots }

// Once runs and times the traversal from root index i. When validate is set, or no count is
// known for i, the tree is validated and its edge count cached.
func (r *Runner) Once(i int, th bfs.Thresholds, validate bool) (stats.Sample, error) {
	root := r.roots[i]
	began := time.Now()
	hops, prof := r.engine.Run(root, th)
	elapsed := time.Since(began)
	if hops < 0 {
		return stats.Sample{}, fmt.Errorf("bfs from root %d of index %d failed", root, i)
	}
	prof.Log()

	if validate || r.trav[i] < 0 {
		if r.SkipValidation && !validate && r.known() >= 0 {
			r.trav[i] = r.known()
		} else {
			trav, err := bfs.Validate(r.g, r.engine.State(), r.el, root, r.pool)
			r.recordValidation(err)
			if err != nil {
				return stats.Sample{}, fmt.Errorf("failed verification of bfs %d: %w", i, err)
			}
			r.trav[i] = trav
		}
	}

	s := stats.Sample{RunID: r.RunID, Index: i, Root: root, Hops: hops, Elapsed: elapsed, TraversedEdges: r.trav[i]}
	for _, rep := range r.reporters {
		rep.Observe(s)
		if pr, ok := rep.(profileRecorder); ok {
			pr.RecordProfile(prof)
		}
	}
	return s, nil
}

// known is the first cached edge count, or -1.
func (r *Runner) known() int64 {
	for _, t := range r.trav {
		if t >= 0 {
			return t
		}
	}
	return -1
}

func (r *Runner) recordValidation(err error) {
	for _, rep := range r.reporters {
		if vr, ok := rep.(validationRecorder); ok {
			vr.RecordValidation(err)
		}
	}
}

// RunAll times one traversal per root, validating each tree (only the first with
// SkipValidation). It stops at the first failure.
func (r *Runner) RunAll(ctx context.Context, th bfs.Thresholds) ([]stats.Sample, error) {
	out := make([]stats.Sample, 0, len(r.roots))
	began := time.Now()
	width := len(strconv.Itoa(len(r.roots)))
	for i := range r.roots {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		s, err := r.Once(i, th, !r.SkipValidation)
		if err != nil {
			return out, err
		}
		log.Info().Str("run", r.RunID).Msg(fmt.Sprintf("[%.2fs] %0*d/%0*d bfs(s=%d), %d hops, %.3fs, %d edges, %e E/s",
			time.Since(began).Seconds(), width, i+1, width, len(r.roots), s.Root+1, s.Hops, s.Elapsed.Seconds(), s.TraversedEdges, s.TEPS()))
		out = append(out, s)
	}
	return out, nil
}

// EnergyLoop repeats every root until limit has passed, keeping the best TEPS of each root.
// A set of roots is always completed once started.
func (r *Runner) EnergyLoop(ctx context.Context, th bfs.Thresholds, limit time.Duration) ([]stats.Sample, error) {
	best := stats.NewCollector(true)
	watch := utils.Watch{}
	watch.Start()
	for set := 0; watch.Elapsed() < limit; set++ {
		for i := range r.roots {
			if err := ctx.Err(); err != nil {
				return best.Samples(), err
			}
			s, err := r.Once(i, th, false)
			if err != nil {
				return best.Samples(), err
			}
			best.Observe(s)
			log.Debug().Msg(fmt.Sprintf("[%03d-%02d] [tentative TEPS %e E/s] %.1fs", set, i+1, s.TEPS(), watch.Elapsed().Seconds()))
		}
	}
	log.Info().Msg("Energy loop done. (" + utils.V(best.Len()) + " roots, " + utils.F("%.2f", watch.Elapsed().Seconds()) + " seconds)")
	return best.Samples(), nil
}

// TuningResult is the TEPS summary of one (alpha, beta) pair.
type TuningResult struct {
	Thresholds bfs.Thresholds
	Samples    []stats.Sample
	TEPS       stats.Summary
}

// Tune runs every root for each threshold pair. Each root is validated once, on its first
// traversal.
func (r *Runner) Tune(ctx context.Context, pairs []bfs.Thresholds) ([]TuningResult, error) {
	out := make([]TuningResult, 0, len(pairs))
	for _, th := range pairs {
		samples := make([]stats.Sample, 0, len(r.roots))
		for i := range r.roots {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			s, err := r.Once(i, th, false)
			if err != nil {
				return out, err
			}
			samples = append(samples, s)
		}
		res := TuningResult{Thresholds: th, Samples: samples, TEPS: stats.Summarize(stats.Rates(samples))}
		log.Debug().Int64("alpha", th.Alpha).Int64("beta", th.Beta).Float64("median_teps", res.TEPS.Median).Msg("Tuned")
		out = append(out, res)
	}
	return out, nil
}

// Best is the pair with the highest median TEPS.
func Best(results []TuningResult) (best TuningResult) {
	top := math.Inf(-1)
	for _, res := range results {
		if res.TEPS.Median > top {
			top, best = res.TEPS.Median, res
		}
	}
	return best
}
