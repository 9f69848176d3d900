package bfs

import (
	"time"

	"github.com/htsst/netalx/utils"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Level describes one expanded frontier.
type Level struct {
	Algorithm    Algorithm // Direction used for this level.
	Next         Algorithm // Direction chosen for the following level.
	Frontier     int64     // Size of the expanded frontier.
	Discovered   int64     // Newly visited vertices.
	PerPartition []int64   // Newly visited vertices per owner partition.
	Scanned      int64     // Adjacency entries examined.
	Estimate     Estimate
	Elapsed      time.Duration // Expansion, excluding the merge.
	Merge        time.Duration
}

// Profile is the level history of one traversal.
type Profile struct {
	Root       int64
	Thresholds Thresholds
	Levels     []Level
	Visited    int64
	Elapsed    time.Duration
}

// Switches counts direction changes between consecutive levels.
func (p *Profile) Switches() (n int) {
	for i := 1; i < len(p.Levels); i++ {
		if p.Levels[i].Algorithm != p.Levels[i-1].Algorithm {
			n++
		}
	}
	return n
}

// LevelsUsing counts levels expanded with algorithm a.
func (p *Profile) LevelsUsing(a Algorithm) (n int) {
	for i := range p.Levels {
		if p.Levels[i].Algorithm == a {
			n++
		}
	}
	return n
}

func flagString(est Estimate) string {
	s := "APPROX"
	if est.Exact {
		s = "EXACT "
	}
	if est.Growing {
		return s + " GROWING"
	}
	return s + " SHRINKING"
}

// Log prints the level table at debug level.
func (p *Profile) Log() {
	if log.Logger.GetLevel() > zerolog.DebugLevel {
		return
	}
	log.Debug().Msg("BFS root " + utils.V(p.Root) + " alpha " + utils.V(p.Thresholds.Alpha) + " beta " + utils.V(p.Thresholds.Beta) +
		" visited " + utils.V(p.Visited) + " in " + utils.V(p.Elapsed) + " switches " + utils.V(p.Switches()))
	log.Debug().Msg(utils.Sep(100))
	for i := range p.Levels {
		lv := &p.Levels[i]
		log.Debug().Msg(utils.F("%3d ", i) + lv.Algorithm.String() + "->" + lv.Next.String() +
			" frontier " + utils.F("%10d", lv.Frontier) + " discovered " + utils.F("%10d", lv.Discovered) +
			" scanned " + utils.F("%12d", lv.Scanned) +
			" td " + utils.F("%12d", lv.Estimate.TopDownEdges) + " bu " + utils.F("%12d", lv.Estimate.BottomUpEdges) +
			" " + flagString(lv.Estimate) + " " + utils.V(lv.PerPartition) +
			" level " + utils.V(lv.Elapsed) + " merge " + utils.V(lv.Merge))
	}
}
