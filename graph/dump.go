package graph

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/htsst/netalx/utils"
)

// Text format shared by edge list and graph dumps (ids are 1-based):
//
//	p sp <n> <m>
//	a <v> <w> 1

// WriteEdgeList writes the input edges, padding excluded.
func WriteEdgeList(w io.Writer, el *EdgeList) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "p sp %d %d\n", el.NumVertices, el.NumEdges)
	for j := range el.Lists {
		sl := &el.Lists[j]
		for _, e := range sl.Edges[:sl.Length] {
			if e.V0 < 0 || e.V1 < 0 {
				continue
			}
			fmt.Fprintf(bw, "a %d %d 1\n", e.V0+1, e.V1+1)
		}
	}
	return bw.Flush()
}

// WriteGraph writes every directed CSR entry as an arc (neighbor, vertex).
func WriteGraph(w io.Writer, g *Graph) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "p sp %d %d\n", g.N, g.M)
	for k := range g.Subgraphs {
		sg := &g.Subgraphs[k]
		for j := int64(0); j < sg.N; j++ {
			for _, v := range sg.Row(j) {
				fmt.Fprintf(bw, "a %d %d 1\n", v+1, sg.Offset+j+1)
			}
		}
	}
	return bw.Flush()
}

// WriteDegrees writes one "d <v> <degree> <log2 degree>" line per vertex.
func WriteDegrees(w io.Writer, g *Graph, instance string) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "c instance name: %s\n", instance)
	fmt.Fprintf(bw, "c created: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(bw, "c\np sp %d %d\n", g.N, g.M)
	fmt.Fprintf(bw, "l Degree\nl Degree in log2 scale\nc\n")
	for v := int64(0); v < g.N; v++ {
		d := g.Degree(v)
		fmt.Fprintf(bw, "d %d %d %d\n", v+1, d, ilog2(d))
	}
	return bw.Flush()
}

// DegreeDistribution counts vertices per degree.
func DegreeDistribution(g *Graph, pool *Pool) []int64 {
	// Sum of the partitions' maxima: an upper bound on any degree.
	bound := pool.ParallelFor(func(w *Worker) int64 {
		if !w.Master() {
			return 0
		}
		sg := &g.Subgraphs[w.Node]
		m := int64(0)
		for j := int64(0); j < sg.N; j++ {
			m = utils.Max(m, sg.Start[j+1]-sg.Start[j])
		}
		return m
	})
	dist := make([]int64, bound+1)
	pool.Run(func(w *Worker) {
		sg := &g.Subgraphs[w.Node]
		s, e := utils.PartialRange(sg.N, 0, w.Cores, w.Core)
		local := make(map[int64]int64)
		for j := s; j < e; j++ {
			local[sg.Start[j+1]-sg.Start[j]]++
		}
		for d, c := range local {
			utils.FetchAdd(&dist[d], c)
		}
	})
	top := len(dist) - 1
	for top > 0 && dist[top] == 0 {
		top--
	}
	return dist[:top+1]
}

// WriteDegreeDistribution writes "<degree> <#vertices> <cumulative>" from the largest degree down.
func WriteDegreeDistribution(w io.Writer, dist []int64) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# degree #nodes\n")
	sum := int64(0)
	for d := len(dist) - 1; d >= 0; d-- {
		sum += dist[d]
		if dist[d] != 0 {
			fmt.Fprintf(bw, "%d %d %d\n", d, dist[d], sum)
		}
	}
	return bw.Flush()
}

// maxPresize bounds the edge slice allocated up front from the problem line's edge count.
const maxPresize = 1 << 24

// ReadEdgeList parses the dump format back into numLists sublists. Comment ("c") and label
// ("l") lines are skipped.
func ReadEdgeList(r io.Reader, numLists int) (*EdgeList, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1<<16), 1<<20)
	var n int64 = -1
	var edges []Edge
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "c", "l", "#":
		case "p":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: malformed problem line", line)
			}
			nv, err := strconv.ParseInt(fields[2], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			m, err := strconv.ParseInt(fields[3], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			if nv < 0 || m < 0 {
				return nil, fmt.Errorf("line %d: negative problem size", line)
			}
			n = nv
			edges = make([]Edge, 0, utils.Min(m, maxPresize))
		case "a":
			if n < 0 {
				return nil, fmt.Errorf("line %d: arc before problem line", line)
			}
			if len(fields) < 3 {
				return nil, fmt.Errorf("line %d: malformed arc", line)
			}
			v, err := strconv.ParseInt(fields[1], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			u, err := strconv.ParseInt(fields[2], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			if v < 1 || u < 1 || v > n || u > n {
				return nil, fmt.Errorf("line %d: arc (%d, %d) outside [1, %d]", line, v, u, n)
			}
			edges = append(edges, Edge{V0: v - 1, V1: u - 1})
		default:
			return nil, fmt.Errorf("line %d: unknown line type %q", line, fields[0])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("missing problem line")
	}
	return SplitEdges(n, edges, numLists), nil
}

func ilog2(x int64) int {
	l := -1
	for x > 0 {
		x >>= 1
		l++
	}
	return utils.Max(l, 0)
}
