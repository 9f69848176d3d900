package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/htsst/netalx/bench"
	"github.com/htsst/netalx/bfs"
	"github.com/htsst/netalx/config"
	"github.com/htsst/netalx/generator"
	"github.com/htsst/netalx/graph"
	"github.com/htsst/netalx/metrics"
	"github.com/htsst/netalx/numa"
	"github.com/htsst/netalx/stats"
	"github.com/htsst/netalx/utils"
	"github.com/rs/zerolog/log"
)

const Version = "2.0.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout)
	switch {
	case err == nil, errors.Is(err, errDumped):
	case errors.Is(err, flag.ErrHelp):
		config.Usage()
		os.Exit(1)
	default:
		log.Fatal().Err(err).Msg("netalx failed")
	}
}

// errDumped ends the program after a requested dump.
var errDumped = errors.New("dump written")

func run(ctx context.Context, args []string, out io.Writer) error {
	opts, err := config.Load(args)
	if err != nil {
		return err
	}
	utils.ConfigureLogging(opts.Debug, opts.NoColour, opts.LogJSON)
	if opts.Threads > numa.NumCPUs() {
		log.Warn().Msg("Thread count is greater than CPU count?")
	}

	reg := metrics.DefaultRegistry()
	for i, addr := range []string{opts.Metrics, opts.Pprof} {
		if addr == "" || (i == 1 && addr == opts.Metrics) {
			continue
		}
		if _, err := metrics.Serve(ctx, addr, reg); err != nil {
			return fmt.Errorf("serving on %s: %w", addr, err)
		}
	}

	topo, err := numa.NewTopology(opts.Nodes, opts.Threads, opts.NodeMajor)
	if err != nil {
		return err
	}
	banner(out, &opts, topo)
	pool := graph.NewPool(topo, opts.Pin)
	defer pool.Close()

	el, genTime, err := edgeList(ctx, &opts)
	if err != nil {
		return err
	}
	if opts.DumpEdge != "" {
		return dump(opts.DumpEdge, "edge list", func(w io.Writer) error { return graph.WriteEdgeList(w, el) })
	}

	g, bs, err := graph.Build(el, pool, graph.BuildOptions{HugePages: opts.HugePages, Bind: true})
	if err != nil {
		return err
	}
	defer g.Free()
	conTime := bs.Total()
	reg.RecordBuild(g, bs)
	g.LogStats()
	log.Info().Msg("Graph construction takes " + utils.F("%.3f", conTime.Seconds()) + " seconds. self loops " +
		utils.V(bs.SelfLoops) + " duplicates " + utils.V(bs.Duplicates) + " degree [" + utils.V(bs.MinDegree) + ", " + utils.V(bs.MaxDegree) + "]")

	switch {
	case opts.DumpGraph != "":
		return dump(opts.DumpGraph, "graph", func(w io.Writer) error { return graph.WriteGraph(w, g) })
	case opts.DumpDC != "":
		return dump(opts.DumpDC, "degree centrality", func(w io.Writer) error { return graph.WriteDegrees(w, g, instance(&opts)) })
	case opts.DumpDegree != "":
		return dump(opts.DumpDegree, "degree distribution", func(w io.Writer) error {
			return graph.WriteDegreeDistribution(w, graph.DegreeDistribution(g, pool))
		})
	}

	st, err := bfs.Allocate(g, pool, bfs.AllocOptions{HugePages: opts.HugePages, Bind: true})
	if err != nil {
		return err
	}
	defer st.Free()
	utils.MemoryStats()
	engine := bfs.NewEngine(g, st, pool, bfs.Options{EdgeFactor: int64(opts.EdgeFactor)})

	runner := bench.NewRunner(g, el, pool, engine, el.Roots, reg)
	runner.SkipValidation = opts.SkipValidation
	log.Info().Str("run", runner.RunID).Msg("BFS on G(n=" + utils.V(g.N) + ", m=" + utils.V(g.M) + ") from " +
		utils.V(len(el.Roots)) + " roots, alpha=" + utils.V(opts.Alpha) + " beta=" + utils.V(opts.Beta))

	results := stats.Results{
		RunID: runner.RunID, Scale: opts.Scale, NumVertices: g.N, EdgeFactor: opts.EdgeFactor,
		GenerationTime: genTime, ConstructionTime: conTime,
	}
	gp := opts.Generator()
	results.A, results.B, results.C, results.D = gp.A, gp.B, gp.C, gp.D()

	if opts.Tuning {
		return tune(ctx, out, &opts, runner, results)
	}

	if opts.EnergyLoop {
		log.Info().Msg("Entering energy loop for " + opts.EnergyLimit.String() + " ...")
		samples, err := runner.EnergyLoop(ctx, opts.Thresholds(), opts.EnergyLimit)
		if err != nil {
			return err
		}
		results.Samples = samples
		if err := results.Write(out); err != nil {
			return err
		}
	}

	samples, err := runner.RunAll(ctx, opts.Thresholds())
	if err != nil {
		reg.RecordValidation(err)
		return err
	}
	results.Samples = samples
	return results.Write(out)
}

// edgeList reads opts.Input or generates a graph, then samples the bfs roots.
func edgeList(ctx context.Context, opts *config.Options) (el *graph.EdgeList, took time.Duration, err error) {
	watch := utils.Watch{}
	watch.Start()
	if opts.Input != "" {
		r, err := utils.OpenReader(opts.Input)
		if err != nil {
			return nil, 0, err
		}
		defer r.Close()
		if el, err = graph.ReadEdgeList(r, opts.Nodes); err != nil {
			return nil, 0, fmt.Errorf("reading %s: %w", opts.Input, err)
		}
		opts.Scale = 0
		for n := el.NumVertices; n > 1; n >>= 1 {
			opts.Scale++
		}
		if el.NumVertices > 0 {
			opts.EdgeFactor = int(utils.Max(1, el.NumEdges/el.NumVertices))
		}
	} else {
		p := opts.Generator()
		log.Info().Msg("Generating " + p.Kind.String() + " graph SCALE " + utils.V(p.Scale) + " edgefactor " + utils.V(p.EdgeFactor) +
			" (A=" + utils.V(p.A) + " B=" + utils.V(p.B) + " C=" + utils.V(p.C) + " D=" + utils.F("%.2f", p.D()) + ")")
		if el, err = generator.Generate(ctx, p, opts.Threads); err != nil {
			return nil, 0, err
		}
	}
	if len(el.Roots) == 0 {
		if el.Roots, err = generator.SampleRoots(el, opts.NumRoots, opts.Seed); err != nil {
			return nil, 0, err
		}
	}
	took = watch.Elapsed()
	log.Info().Msg("Graph generation takes " + utils.F("%.3f", took.Seconds()) + " seconds.")
	return el, took, nil
}

func dump(path, what string, write func(w io.Writer) error) error {
	watch := utils.Watch{}
	watch.Start()
	log.Info().Msg("Dumping " + what + " into '" + path + "' ...")
	w, err := utils.CreateWriter(path)
	if err != nil {
		return err
	}
	if err := write(w); err != nil {
		w.Close()
		return fmt.Errorf("dumping %s: %w", what, err)
	}
	if err := w.Close(); err != nil {
		return err
	}
	log.Info().Msg("Done. (" + utils.F("%.3f", watch.Elapsed().Seconds()) + " seconds)")
	return errDumped
}

func instance(opts *config.Options) string {
	return fmt.Sprintf("%s SCALE %d edgefactor %d", opts.Generator().Kind, opts.Scale, opts.EdgeFactor)
}

func tune(ctx context.Context, out io.Writer, opts *config.Options, runner *bench.Runner, results stats.Results) error {
	var pairs []bfs.Thresholds
	for _, p := range opts.Range.Pairs() {
		pairs = append(pairs, bfs.Thresholds{Alpha: p[0], Beta: p[1]})
	}
	tuned, err := runner.Tune(ctx, pairs)
	if err != nil {
		return err
	}
	kind := opts.Generator().Kind
	for _, res := range tuned {
		results.Samples = res.Samples
		if err := results.Write(out); err != nil {
			return err
		}
		t := res.TEPS
		fmt.Fprintf(out, "%s  SCALE=%d  edgefactor=%d  alpha=%d  beta=%d  np=%d  %.9e  %.9e  %.9e  %.9e  %.9e\n",
			kind, opts.Scale, opts.EdgeFactor, res.Thresholds.Alpha, res.Thresholds.Beta, opts.Threads,
			t.Min, t.FirstQuartile, t.Median, t.ThirdQuartile, t.Max)
	}
	best := bench.Best(tuned)
	log.Info().Msg("Best median TEPS " + utils.F("%e", best.TEPS.Median) + " with alpha=" + utils.V(best.Thresholds.Alpha) +
		" beta=" + utils.V(best.Thresholds.Beta))
	return nil
}

func banner(out io.Writer, opts *config.Options, topo *numa.Topology) {
	fmt.Fprintf(out, "netalx %s (%s %s/%s) cpus %d, nodes %d, threads %d, %s\n",
		Version, runtime.Version(), runtime.GOOS, runtime.GOARCH, numa.NumCPUs(), topo.NumPartitions(), topo.NumWorkers(), placement(opts))
	fmt.Fprintln(out, "< CPU affinity >")
	for k := 0; k < topo.NumPartitions(); k++ {
		var cpus []string
		for tid := 0; tid < topo.NumWorkers(); tid++ {
			if topo.HomePartition(tid) == k {
				cpus = append(cpus, fmt.Sprintf("%2d", topo.CPU(tid)))
			}
		}
		fmt.Fprintf(out, "[node%02d (%2dcores)] = [ %s ]\n", k, topo.WorkersIn(k), strings.Join(cpus, " "))
	}
	fmt.Fprintln(out)
}

func placement(opts *config.Options) string {
	s := "core-major"
	if opts.NodeMajor {
		s = "node-major"
	}
	if opts.Pin {
		s += ", pinned"
	}
	return s
}
