package numa

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/htsst/netalx/utils"
)

// Placement is where one worker lives.
type Placement struct {
	Node int // Home partition (NUMA node).
	Core int // Index of the worker within its node.
	CPU  int // OS cpu id used for pinning; -1 when unknown.
}

// Topology is a static mapping of workers to partitions. Every partition has at least one worker.
type Topology struct {
	nodes   int
	workers []Placement
	perNode [][]int // worker ids per node, in core order
}

// NewTopology places threads workers over nodes partitions. Core-major (default) deals workers
// round-robin over nodes, node-major fills node 0 first.
func NewTopology(nodes, threads int, nodeMajor bool) (*Topology, error) {
	if nodes <= 0 {
		return nil, fmt.Errorf("invalid number of nodes: %d", nodes)
	}
	if threads < nodes {
		return nil, fmt.Errorf("need at least one worker per node: %d threads for %d nodes", threads, nodes)
	}
	t := &Topology{nodes: nodes, workers: make([]Placement, threads), perNode: make([][]int, nodes)}
	cpus := nodeCPUs(nodes)
	for tid := 0; tid < threads; tid++ {
		var node int
		if nodeMajor {
			for k := 0; k < nodes; k++ {
				if s, e := utils.PartialRange(threads, 0, nodes, k); tid >= s && tid < e {
					node = k
					break
				}
			}
		} else {
			node = tid % nodes
		}
		core := len(t.perNode[node])
		cpu := -1
		if list := cpus[node]; len(list) > 0 {
			cpu = list[core%len(list)]
		}
		t.workers[tid] = Placement{Node: node, Core: core, CPU: cpu}
		t.perNode[node] = append(t.perNode[node], tid)
	}
	return t, nil
}

func (t *Topology) NumPartitions() int { return t.nodes }

func (t *Topology) NumWorkers() int { return len(t.workers) }

func (t *Topology) WorkersIn(k int) int { return len(t.perNode[k]) }

func (t *Topology) HomePartition(tid int) int { return t.workers[tid].Node }

func (t *Topology) CPU(tid int) int { return t.workers[tid].CPU }

func (t *Topology) Placement(tid int) Placement { return t.workers[tid] }

func (t *Topology) String() string {
	var sb strings.Builder
	for k := 0; k < t.nodes; k++ {
		if k > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString("node" + strconv.Itoa(k) + ":" + strconv.Itoa(len(t.perNode[k])))
	}
	return sb.String()
}

const (
	sysNodeDir = "/sys/devices/system/node"
	sysCPUDir  = "/sys/devices/system/cpu"
)

var physicalOnly bool

// DisableHyperThreads restricts later topologies to the first hardware thread of each core.
func DisableHyperThreads() { physicalOnly = true }

// isPrimaryThread reports whether cpu is the lowest id among its core's siblings. Unknown
// cpus are kept.
func isPrimaryThread(cpu int) bool {
	buf, err := os.ReadFile(filepath.Join(sysCPUDir, "cpu"+strconv.Itoa(cpu), "topology", "thread_siblings_list"))
	if err != nil {
		return true
	}
	ids, err := ParseCPUList(strings.TrimSpace(string(buf)))
	if err != nil || len(ids) == 0 {
		return true
	}
	return ids[0] == cpu
}

func primaryThreads(ids []int) []int {
	if !physicalOnly {
		return ids
	}
	out := ids[:0:0]
	for _, c := range ids {
		if isPrimaryThread(c) {
			out = append(out, c)
		}
	}
	return out
}

// NumCPUs is the number of usable cpus, counting one per core after DisableHyperThreads.
func NumCPUs() int {
	if !physicalOnly {
		return runtime.NumCPU()
	}
	n := 0
	for c := 0; c < runtime.NumCPU(); c++ {
		if isPrimaryThread(c) {
			n++
		}
	}
	return utils.Max(n, 1)
}

// DetectNodes reports the number of online NUMA nodes, or 1 when it cannot be determined.
func DetectNodes() int {
	buf, err := os.ReadFile(filepath.Join(sysNodeDir, "online"))
	if err != nil {
		return 1
	}
	ids, err := ParseCPUList(strings.TrimSpace(string(buf)))
	if err != nil || len(ids) == 0 {
		return 1
	}
	return len(ids)
}

// nodeCPUs reads the cpu list of each node; missing entries fall back to an even split of
// the os cpus.
func nodeCPUs(nodes int) [][]int {
	out := make([][]int, nodes)
	ncpu := runtime.NumCPU()
	for k := 0; k < nodes; k++ {
		buf, err := os.ReadFile(filepath.Join(sysNodeDir, "node"+strconv.Itoa(k), "cpulist"))
		if err == nil {
			if ids, err := ParseCPUList(strings.TrimSpace(string(buf))); err == nil && len(ids) > 0 {
				out[k] = primaryThreads(ids)
				continue
			}
		}
		s, e := utils.PartialRange(ncpu, 0, nodes, k)
		for c := s; c < e; c++ {
			out[k] = append(out[k], c)
		}
		out[k] = primaryThreads(out[k])
	}
	return out
}

// ParseCPUList parses the kernel list format, e.g. "0-3,8,10-11".
func ParseCPUList(s string) ([]int, error) {
	var out []int
	if s == "" {
		return out, nil
	}
	for _, part := range strings.Split(s, ",") {
		lo, hi, isRange := strings.Cut(part, "-")
		a, err := strconv.Atoi(lo)
		if err != nil {
			return nil, fmt.Errorf("bad cpu list %q: %w", s, err)
		}
		b := a
		if isRange {
			if b, err = strconv.Atoi(hi); err != nil {
				return nil, fmt.Errorf("bad cpu list %q: %w", s, err)
			}
		}
		if b < a {
			return nil, fmt.Errorf("bad cpu range %q", part)
		}
		for c := a; c <= b; c++ {
			out = append(out, c)
		}
	}
	return out, nil
}
