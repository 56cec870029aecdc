// Package dist defines the collective-communication contract the optimizers
// synchronize through, plus two implementations: Local for single-process
// training and Group for in-process multi-worker training.
//
// The contract is deliberately minimal: a blocking scalar sum-all-reduce and
// the world size. There are no timeouts and no cancellation; correctness
// depends on every worker invoking the collective the same number of times,
// for the same quantities, in the same order within a step. The optimizers
// uphold that by traversing parameters in registration order and by making
// every outlier decision from cross-worker-reduced inputs.
package dist

// Communicator sums scalars across cooperating worker processes.
type Communicator interface {
	// SumAllReduce returns the sum of v across all workers.
	//
	// Blocks until every worker has contributed. A worker that skips a
	// SumAllReduce call other workers make hangs the job indefinitely.
	SumAllReduce(v float64) float64

	// WorldSize returns the number of cooperating workers.
	WorldSize() int
}

// Local is the single-process Communicator. Both operations are no-ops.
type Local struct{}

// SumAllReduce returns v unchanged.
func (Local) SumAllReduce(v float64) float64 { return v }

// WorldSize returns 1.
func (Local) WorldSize() int { return 1 }
