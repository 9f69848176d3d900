package graph

import (
	"github.com/htsst/netalx/utils"
)

// ChunkAlign keeps every partition boundary on a bitmap word.
const ChunkAlign = 64

// PartitionMap assigns vertex ids to P contiguous ranges. All ranges but the last have
// Chunk vertices; trailing partitions may be empty when n is small.
type PartitionMap struct {
	N     int64 // Global vertex count.
	P     int   // Number of partitions.
	Chunk int64 // Vertices per partition, multiple of ChunkAlign.
}

func NewPartitionMap(n int64, p int) PartitionMap {
	if p <= 0 {
		panic("partition count must be positive")
	}
	chunk := utils.RoundUp(utils.CeilDiv(n, int64(p)), ChunkAlign)
	if chunk == 0 {
		chunk = ChunkAlign
	}
	return PartitionMap{N: n, P: p, Chunk: chunk}
}

// PartitionOf gives the owner partition of v.
func (pm PartitionMap) PartitionOf(v int64) int {
	return int(v / pm.Chunk)
}

// LocalOffset is the index of v within its owner partition.
func (pm PartitionMap) LocalOffset(v int64) int64 {
	return v - int64(pm.PartitionOf(v))*pm.Chunk
}

// Offset is the first global id of partition k.
func (pm PartitionMap) Offset(k int) int64 {
	return utils.Min(int64(k)*pm.Chunk, pm.N)
}

// OwnerChunkSize is the number of vertices owned by partition k.
func (pm PartitionMap) OwnerChunkSize(k int) int64 {
	return utils.Max(0, utils.Min(pm.Chunk, pm.N-int64(k)*pm.Chunk))
}

// Range is [Offset(k), Offset(k)+OwnerChunkSize(k)).
func (pm PartitionMap) Range(k int) (lo, hi int64) {
	lo = pm.Offset(k)
	return lo, lo + pm.OwnerChunkSize(k)
}

// WordRange is the range of global bitmap words covering partition k.
func (pm PartitionMap) WordRange(k int) (lo, hi int64) {
	s, e := pm.Range(k)
	if s == e {
		w := utils.WordsFor(s)
		return w, w
	}
	return s >> 6, utils.WordsFor(e)
}
