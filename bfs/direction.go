package bfs

// Algorithm is the traversal direction used for one level.
type Algorithm uint8

const (
	TopDown Algorithm = iota
	BottomUp
)

func (a Algorithm) String() string {
	switch a {
	case TopDown:
		return "TD"
	case BottomUp:
		return "BU"
	}
	return "??"
}

// Thresholds tune the direction switch. Larger Alpha switches to bottom-up earlier while the
// frontier grows; larger Beta returns to top-down later while it shrinks.
type Thresholds struct {
	Alpha int64
	Beta  int64
}

var (
	KroneckerThresholds = Thresholds{Alpha: 64, Beta: 4}
	RMATThresholds      = Thresholds{Alpha: 256, Beta: 2}
)

// LevelStats are the globally reduced counters at the end of one level.
type LevelStats struct {
	FrontierSize int64 // Vertices in the frontier that was just expanded.
	NeighborSize int64 // Vertices discovered by this level.
	TopDownEdges int64 // Exact sum of the discovered vertices' degrees (top-down levels only).
	Unvisited    int64 // Vertices not yet discovered, n - visited so far.
	EdgeFactor   int64
}

// Estimate is the prediction the decision was based on.
type Estimate struct {
	TopDownEdges  int64
	BottomUpEdges int64
	Exact         bool // TopDownEdges is the measured value, not frontier*edgefactor.
	Growing       bool
}

// ChooseNext decides the direction of the next level. It is a pure function of its inputs.
//
// While the frontier grows, a top-down level compares its exact work to the predicted
// bottom-up work with alpha, and a bottom-up level stays bottom-up. Once it shrinks the
// approximated top-down work is compared with beta.
func ChooseNext(current Algorithm, ls LevelStats, th Thresholds) (Algorithm, Estimate) {
	est := Estimate{
		BottomUpEdges: ls.Unvisited*ls.EdgeFactor + ls.FrontierSize,
		Growing:       ls.FrontierSize < ls.NeighborSize,
	}
	if est.Growing {
		if current == TopDown {
			est.TopDownEdges = ls.TopDownEdges
			est.Exact = true
			if scaledBelow(est.TopDownEdges, th.Alpha, est.BottomUpEdges) {
				return TopDown, est
			}
			return BottomUp, est
		}
		est.TopDownEdges = ls.FrontierSize * ls.EdgeFactor
		return BottomUp, est
	}
	est.TopDownEdges = ls.FrontierSize * ls.EdgeFactor
	if scaledBelow(est.TopDownEdges, th.Beta, est.BottomUpEdges) {
		return TopDown, est
	}
	return BottomUp, est
}

// scaledBelow is x*scale < limit for non negative x and scale, without overflowing.
func scaledBelow(x, scale, limit int64) bool {
	if limit <= 0 {
		return false
	}
	if scale <= 0 {
		return true
	}
	return x <= (limit-1)/scale
}
