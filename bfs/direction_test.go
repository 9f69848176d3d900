package bfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChooseNext(t *testing.T) {
	th := Thresholds{Alpha: 4, Beta: 2}
	tests := []struct {
		name    string
		current Algorithm
		ls      LevelStats
		want    Algorithm
		est     Estimate
	}{
		{
			name:    "growing top-down stays while cheap",
			current: TopDown,
			ls:      LevelStats{FrontierSize: 1, NeighborSize: 10, TopDownEdges: 20, Unvisited: 100, EdgeFactor: 2},
			want:    TopDown,
			est:     Estimate{TopDownEdges: 20, BottomUpEdges: 201, Exact: true, Growing: true},
		},
		{
			name:    "growing top-down switches when the exact work is large",
			current: TopDown,
			ls:      LevelStats{FrontierSize: 1, NeighborSize: 10, TopDownEdges: 60, Unvisited: 100, EdgeFactor: 2},
			want:    BottomUp,
			est:     Estimate{TopDownEdges: 60, BottomUpEdges: 201, Exact: true, Growing: true},
		},
		{
			name:    "growing bottom-up stays",
			current: BottomUp,
			ls:      LevelStats{FrontierSize: 5, NeighborSize: 50, TopDownEdges: 0, Unvisited: 1000, EdgeFactor: 2},
			want:    BottomUp,
			est:     Estimate{TopDownEdges: 10, BottomUpEdges: 2005, Growing: true},
		},
		{
			name:    "shrinking returns to top-down",
			current: BottomUp,
			ls:      LevelStats{FrontierSize: 50, NeighborSize: 5, Unvisited: 200, EdgeFactor: 2},
			want:    TopDown,
			est:     Estimate{TopDownEdges: 100, BottomUpEdges: 450},
		},
		{
			name:    "shrinking but still heavy stays bottom-up",
			current: BottomUp,
			ls:      LevelStats{FrontierSize: 50, NeighborSize: 40, Unvisited: 20, EdgeFactor: 2},
			want:    BottomUp,
			est:     Estimate{TopDownEdges: 100, BottomUpEdges: 90},
		},
		{
			name:    "equal sizes count as shrinking",
			current: TopDown,
			ls:      LevelStats{FrontierSize: 3, NeighborSize: 3, TopDownEdges: 999, Unvisited: 100, EdgeFactor: 1},
			want:    TopDown,
			est:     Estimate{TopDownEdges: 3, BottomUpEdges: 103},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, est := ChooseNext(tt.current, tt.ls, th)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.est, est)
		})
	}
}

func TestChooseNextLargeThresholds(t *testing.T) {
	// 2^20 * 2^62 wraps to 0 in int64.
	th := Thresholds{Alpha: 1 << 62, Beta: 1 << 62}
	grow := LevelStats{FrontierSize: 1, NeighborSize: 10, TopDownEdges: 1 << 20, Unvisited: 1 << 30, EdgeFactor: 16}
	got, _ := ChooseNext(TopDown, grow, th)
	assert.Equal(t, BottomUp, got)

	shrink := LevelStats{FrontierSize: 1 << 16, NeighborSize: 1, Unvisited: 1 << 30, EdgeFactor: 16}
	got, _ = ChooseNext(BottomUp, shrink, th)
	assert.Equal(t, BottomUp, got)

	assert.True(t, scaledBelow(3, 4, 13))
	assert.False(t, scaledBelow(3, 4, 12))
	assert.True(t, scaledBelow(5, 0, 1))
	assert.False(t, scaledBelow(0, 4, 0))
}

func TestChooseNextPure(t *testing.T) {
	ls := LevelStats{FrontierSize: 7, NeighborSize: 70, TopDownEdges: 300, Unvisited: 5000, EdgeFactor: 16}
	a1, e1 := ChooseNext(TopDown, ls, KroneckerThresholds)
	a2, e2 := ChooseNext(TopDown, ls, KroneckerThresholds)
	assert.Equal(t, a1, a2)
	assert.Equal(t, e1, e2)
	assert.Equal(t, "TD", TopDown.String())
	assert.Equal(t, "BU", BottomUp.String())
}
