package dist

import (
	"fmt"
	"sync"
)

// Group coordinates a fixed number of in-process workers, one goroutine
// each, through a blocking sum barrier. It implements the collective for
// data-parallel training and tests inside a single process; each worker
// obtains its Communicator from Worker.
//
// Example:
//
//	group := dist.NewGroup(2)
//	for rank := range 2 {
//	    go trainWorker(group.Worker(rank))
//	}
type Group struct {
	mu      sync.Mutex
	cond    *sync.Cond
	size    int
	arrived int
	pending float64 // running sum of the round being assembled
	result  float64 // sum of the last completed round
	round   uint64
}

// NewGroup creates a collective group of the given size.
// Panics if size < 1.
func NewGroup(size int) *Group {
	if size < 1 {
		panic(fmt.Sprintf("dist: group size must be at least 1, got %d", size))
	}
	g := &Group{size: size}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Size returns the number of workers in the group.
func (g *Group) Size() int {
	return g.size
}

// Worker returns the Communicator for the given rank.
// Panics if rank is out of range.
func (g *Group) Worker(rank int) *Worker {
	if rank < 0 || rank >= g.size {
		panic(fmt.Sprintf("dist: rank %d out of range for group of size %d", rank, g.size))
	}
	return &Worker{group: g, rank: rank}
}

// reduce contributes v to the current round and blocks until all workers
// have contributed, then returns the round's sum.
func (g *Group) reduce(v float64) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	round := g.round
	g.pending += v
	g.arrived++

	if g.arrived == g.size {
		// Last arrival publishes the sum and opens the next round.
		g.result = g.pending
		g.pending = 0
		g.arrived = 0
		g.round++
		g.cond.Broadcast()
		return g.result
	}

	for round == g.round {
		g.cond.Wait()
	}
	// A new round cannot complete (and overwrite result) until every
	// worker blocked here has returned and called reduce again.
	return g.result
}

// Worker is one rank's view of a Group. It implements Communicator.
type Worker struct {
	group *Group
	rank  int
}

// Rank returns this worker's rank within the group.
func (w *Worker) Rank() int {
	return w.rank
}

// SumAllReduce blocks until all workers in the group have contributed,
// then returns the sum of their values.
func (w *Worker) SumAllReduce(v float64) float64 {
	return w.group.reduce(v)
}

// WorldSize returns the group size.
func (w *Worker) WorldSize() int {
	return w.group.size
}
