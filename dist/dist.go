// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package dist provides the public API for the scalar collective the
// optimizers use in data-parallel training.
//
// The optimizers only ever need one collective: summing a float64 across
// workers. Any transport that can do that (NCCL bindings, MPI, a parameter
// server) plugs in through the Communicator interface. Group provides an
// in-process implementation for tests and single-machine data parallelism
// over goroutines.
//
// All workers must issue the same sequence of collective calls; see the
// Communicator documentation.
package dist

import (
	"github.com/born-ml/lion/internal/dist"
)

// Communicator sums scalars across the workers of a training job.
type Communicator = dist.Communicator

// Local is the no-op Communicator for single-process training.
type Local = dist.Local

// Group coordinates an in-process worker group over goroutines.
type Group = dist.Group

// Worker is one rank's Communicator within a Group.
type Worker = dist.Worker

// NewGroup creates an in-process group of size workers. Panics if size < 1.
func NewGroup(size int) *Group {
	return dist.NewGroup(size)
}
