package graph

import (
	"sync"

	"github.com/htsst/netalx/numa"
	"github.com/htsst/netalx/utils"
	"github.com/rs/zerolog/log"
)

// Worker is the view a parallel region body has of its own goroutine.
type Worker struct {
	ID    int // Global worker id.
	Node  int // Home partition.
	Core  int // Index within the home partition.
	Cores int // Workers in the home partition.
	pool  *Pool
}

// Barrier waits for every worker of the pool.
func (w *Worker) Barrier() {
	w.pool.barrier.Wait()
}

// Master is true for the first worker of each partition (the designated worker).
func (w *Worker) Master() bool {
	return w.Core == 0
}

// Workers is the total number of workers in the pool.
func (w *Worker) Workers() int {
	return len(w.pool.workers)
}

// Pool is a fixed team of worker goroutines, each locked to an OS thread, optionally pinned
// to a cpu of its home node. Run is a fork-join region over the whole team.
type Pool struct {
	topo    *numa.Topology
	workers []Worker
	jobs    []chan func(*Worker)
	wg      sync.WaitGroup
	barrier *utils.Barrier
	mu      sync.Mutex // Serializes regions.
}

func NewPool(topo *numa.Topology, pin bool) *Pool {
	p := &Pool{
		topo:    topo,
		workers: make([]Worker, topo.NumWorkers()),
		jobs:    make([]chan func(*Worker), topo.NumWorkers()),
		barrier: utils.NewBarrier(topo.NumWorkers()),
	}
	var ready sync.WaitGroup
	for tid := range p.workers {
		pl := topo.Placement(tid)
		p.workers[tid] = Worker{ID: tid, Node: pl.Node, Core: pl.Core, Cores: topo.WorkersIn(pl.Node), pool: p}
		p.jobs[tid] = make(chan func(*Worker))
		ready.Add(1)
		go p.loop(&p.workers[tid], pin, pl.CPU, &ready)
	}
	ready.Wait()
	return p
}

func (p *Pool) loop(w *Worker, pin bool, cpu int, ready *sync.WaitGroup) {
	if !pin {
		cpu = -1
	}
	if err := numa.Pin(cpu); err != nil {
		log.Warn().Err(err).Int("worker", w.ID).Int("cpu", cpu).Msg("Failed to pin worker")
	}
	defer numa.Unpin()
	ready.Done()
	for body := range p.jobs[w.ID] {
		body(w)
		p.wg.Done()
	}
}

func (p *Pool) Topology() *numa.Topology { return p.topo }

func (p *Pool) NumWorkers() int { return len(p.workers) }

func (p *Pool) NumPartitions() int { return p.topo.NumPartitions() }

// Run executes body once on every worker concurrently and returns when all are done.
func (p *Pool) Run(body func(w *Worker)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.wg.Add(len(p.workers))
	for tid := range p.jobs {
		p.jobs[tid] <- body
	}
	p.wg.Wait()
}

// ParallelFor runs applicator on every worker and sums what they return.
func (p *Pool) ParallelFor(applicator func(w *Worker) (accumulated int64)) (accumulator int64) {
	res := make([]int64, len(p.workers))
	p.Run(func(w *Worker) {
		res[w.ID] = applicator(w)
	})
	return utils.Sum(res)
}

// Close stops the workers. The pool cannot be used afterwards.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for tid := range p.jobs {
		close(p.jobs[tid])
	}
}
