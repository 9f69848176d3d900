package graph

import (
	"github.com/htsst/netalx/utils"
)

// Edge is one undirected input edge. Endpoints < 0 mark padding and are ignored.
type Edge struct {
	V0 int64
	V1 int64
}

// EdgeSublist is an independent slice of the input, usually generated near one node.
type EdgeSublist struct {
	Offset int64 // Index of the first edge within the whole list.
	Length int64
	Edges  []Edge
}

// EdgeList is the raw undirected input, split into sublists.
type EdgeList struct {
	NumVertices int64
	NumEdges    int64
	Lists       []EdgeSublist
	Roots       []int64 // BFS roots chosen for this input (may be empty).
}

// SplitEdges distributes edges into numLists sublists of (nearly) equal length.
func SplitEdges(n int64, edges []Edge, numLists int) *EdgeList {
	el := &EdgeList{NumVertices: n, NumEdges: int64(len(edges)), Lists: make([]EdgeSublist, numLists)}
	for j := 0; j < numLists; j++ {
		s, e := utils.PartialRange(int64(len(edges)), 0, numLists, j)
		el.Lists[j] = EdgeSublist{Offset: s, Length: e - s, Edges: edges[s:e]}
	}
	return el
}

// Edges returns all sublists concatenated, in order.
func (el *EdgeList) Edges() []Edge {
	out := make([]Edge, 0, el.NumEdges)
	for j := range el.Lists {
		out = append(out, el.Lists[j].Edges[:el.Lists[j].Length]...)
	}
	return out
}

// ListsOf reports the sublists handled by partition k in counting passes (j mod P == k).
func (el *EdgeList) ListsOf(k, p int) []int {
	var out []int
	for j := k; j < len(el.Lists); j += p {
		out = append(out, j)
	}
	return out
}
