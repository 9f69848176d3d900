package graph

import (
	"errors"

	"github.com/htsst/netalx/numa"
	"github.com/htsst/netalx/utils"
	"github.com/rs/zerolog/log"
)

// Subgraph is the CSR of the vertices owned by one partition. Row j (local) describes
// global vertex Offset+j; its neighbors are End[Start[j]:Start[j+1]] as global ids.
type Subgraph struct {
	N      int64 // Owned vertices.
	M      int64 // Directed adjacency entries.
	Offset int64
	Start  []int64 // N+1 entries.
	End    []int64 // M (+ slack) entries.
	block  *numa.Block
}

// Row is the adjacency of local vertex j.
func (sg *Subgraph) Row(j int64) []int64 {
	return sg.End[sg.Start[j]:sg.Start[j+1]]
}

// Graph is the partitioned CSR: one Subgraph per partition.
type Graph struct {
	N         int64
	M         int64 // Sum of the subgraphs' M (each undirected edge twice).
	Parts     PartitionMap
	Subgraphs []Subgraph
}

func (g *Graph) NumPartitions() int { return len(g.Subgraphs) }

func (g *Graph) Subgraph(k int) *Subgraph { return &g.Subgraphs[k] }

// Neighbors of global vertex v.
func (g *Graph) Neighbors(v int64) []int64 {
	sg := &g.Subgraphs[g.Parts.PartitionOf(v)]
	return sg.Row(v - sg.Offset)
}

// Degree of global vertex v.
func (g *Graph) Degree(v int64) int64 {
	sg := &g.Subgraphs[g.Parts.PartitionOf(v)]
	j := v - sg.Offset
	return sg.Start[j+1] - sg.Start[j]
}

// Free releases every partition block. The graph must not be used afterwards.
func (g *Graph) Free() error {
	var errs []error
	for k := range g.Subgraphs {
		errs = append(errs, g.Subgraphs[k].block.Free())
		g.Subgraphs[k].Start, g.Subgraphs[k].End = nil, nil
	}
	return errors.Join(errs...)
}

// LogStats prints the per partition layout.
func (g *Graph) LogStats() {
	log.Info().Msg("Partitioned CSR: n " + utils.V(g.N) + " m " + utils.V(g.M) + " partitions " + utils.V(len(g.Subgraphs)) +
		" chunk " + utils.V(g.Parts.Chunk))
	for k := range g.Subgraphs {
		sg := &g.Subgraphs[k]
		log.Info().Int("partition", k).Msg("offset " + utils.V(sg.Offset) + " n " + utils.V(sg.N) +
			" (" + utils.F("%.1f", pct(sg.N, g.N)) + "%) m " + utils.V(sg.M) +
			" (" + utils.F("%.1f", pct(sg.M, g.M)) + "%)")
	}
}

func pct(a, b int64) float64 {
	if b == 0 {
		return 0
	}
	return 100 * float64(a) / float64(b)
}
