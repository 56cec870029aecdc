// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides Lion-family optimizers with online outlier
// detection for large-model training.
//
// # Overview
//
// This package contains:
//   - SkipLion: skips updates whose prospective momentum is an outlier
//   - AdaBetaLion: softens the betas while outliers are recent
//   - AdaLRLion: lowers the learning rate while outliers are recent
//   - ClipLion: clips outlier gradients to a robust magnitude
//   - FullyAdaptiveLion: adapts lr, betas and weight decay together
//   - OutlierDetector: the statistical gate the variants build on
//   - Optimizer interface for custom optimizers
//
// All variants share the Lion sign-momentum update with decoupled weight
// decay. They differ only in what they do when the detector flags a batch.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/lion/nn"
//	    "github.com/born-ml/lion/optim"
//	)
//
//	func main() {
//	    optimizer, err := optim.NewSkipLion(
//	        model.Parameters(),
//	        optim.SkipLionConfig{
//	            LR:          1e-4,
//	            Betas:       [2]float64{0.9, 0.99},
//	            WeightDecay: 1e-5,
//	        },
//	        nil, // single process
//	    )
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    // Training loop
//	    for batch := range loader {
//	        for _, p := range model.Parameters() {
//	            p.SetGrad(gradients(p, batch))
//	        }
//	        optimizer.Step(nil)
//	    }
//	}
//
// # Data-Parallel Training
//
// Pass a dist.Communicator and the detectors operate on global norms, so
// every worker makes the same skip/adapt/clip decision:
//
//	optimizer, err := optim.NewSkipLion(shardParams, config, comm)
//
// The optimizers issue collective calls in parameter registration order.
// Every worker must register the same parameters in the same order and call
// Step and DistReduceMetrics in lockstep.
//
// # Metric Reporting
//
// Per-parameter diagnostics aggregate across workers in two phases:
//
//	metrics := optim.Metrics{}
//	for name, p := range params {
//	    metrics = optimizer.ReportPerParameterMetrics(p, name, metrics)
//	}
//	metrics = optimizer.PreReduceMetrics(metrics)   // local encode
//	metrics = optimizer.DistReduceMetrics(metrics)  // crosses the collective
//
// After DistReduceMetrics, l2_norm/* values are global norms, cosine/*
// values are global cosines, and counter families (skipped_batches,
// clipped_batches, betas, layerwise_lr, wd_scaling) are per-worker values.
package optim
