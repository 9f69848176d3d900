package main

import (
	"context"
	"flag"
	"math/rand/v2"
	"os"
	"runtime"

	"github.com/htsst/netalx/enforce"
	"github.com/htsst/netalx/generator"
	"github.com/htsst/netalx/graph"
	"github.com/htsst/netalx/utils"
	"github.com/rs/zerolog/log"
)

// Generates (or reads) an edge list and writes it in the 'p sp' / 'a v w 1' format, optionally
// shuffled. Paths ending in .sz are snappy compressed.
func main() {
	inPtr := flag.String("i", "", "Read this edge list instead of generating one.")
	outPtr := flag.String("o", "", "Output file. Defaults to the input name with .shuffled appended.")
	scalePtr := flag.Int("s", 16, "Generate 2^SCALE vertices.")
	efPtr := flag.Int("e", 16, "Generate n*edgefactor edges.")
	rmatPtr := flag.Bool("R", false, "Generate an R-MAT graph (default: Kronecker).")
	seedPtr := flag.Uint64("seed", 1, "Generator and shuffle seed.")
	shufflePtr := flag.Bool("shuffle", false, "Shuffle the edge order.")
	threadPtr := flag.Int("t", runtime.NumCPU(), "Thread count for generation.")
	debugPtr := flag.Int("debug", 0, "Level 0 for info, 1 for debug.")
	colourPtr := flag.Bool("nc", false, "Removes the colouring from the log output.")
	flag.Parse()

	utils.ConfigureLogging(*debugPtr, *colourPtr, false)

	out := *outPtr
	var el *graph.EdgeList
	var err error
	watch := utils.Watch{}
	watch.Start()
	if *inPtr != "" {
		r, err := utils.OpenReader(*inPtr)
		enforce.ENFORCE(err)
		el, err = graph.ReadEdgeList(r, 1)
		enforce.ENFORCE(err)
		r.Close()
		if out == "" {
			out = *inPtr + ".shuffled"
		}
	} else {
		p := generator.DefaultParams(*scalePtr, *efPtr)
		if *rmatPtr {
			p.Kind = generator.RMAT
		}
		p.Seed = *seedPtr
		el, err = generator.Generate(context.Background(), p, *threadPtr)
		enforce.ENFORCE(err)
	}
	if out == "" {
		flag.Usage()
		os.Exit(1)
	}
	log.Info().Msg("Edges: " + utils.V(el.NumEdges) + " vertices: " + utils.V(el.NumVertices) + " in (ms) " + utils.V(watch.Lap().Milliseconds()))

	if *shufflePtr {
		edges := el.Edges()
		rng := rand.New(rand.NewPCG(*seedPtr, uint64(len(edges))))
		rng.Shuffle(len(edges), func(i, j int) { edges[i], edges[j] = edges[j], edges[i] })
		el = graph.SplitEdges(el.NumVertices, edges, 1)
	}

	w, err := utils.CreateWriter(out)
	enforce.ENFORCE(err)
	enforce.ENFORCE(graph.WriteEdgeList(w, el))
	enforce.ENFORCE(w.Close())
	log.Info().Msg("Wrote " + out + " in (ms) " + utils.V(watch.Lap().Milliseconds()))
}
