// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"github.com/born-ml/lion/dist"
	"github.com/born-ml/lion/internal/optim"
	"github.com/born-ml/lion/nn"
)

// Optimizer interface defines the common interface for the Lion variants.
type Optimizer = optim.Optimizer

// Closure recomputes the training loss for Step.
type Closure = optim.Closure

// Metrics maps hierarchical metric keys to scalar values.
type Metrics = optim.Metrics

// ParamGroup holds parameters that share one set of hyperparameters.
type ParamGroup = optim.ParamGroup

// OutlierDetector is the statistical gate the variants build on, exported
// for standalone use on any stream of magnitudes.
type OutlierDetector = optim.OutlierDetector

// NewOutlierDetector creates a detector that flags observations above
// threshold times the slow moving average.
func NewOutlierDetector(threshold float64) *OutlierDetector {
	return optim.NewOutlierDetector(threshold)
}

// Construction errors, matched with errors.Is.
var (
	ErrInvalidLearningRate = optim.ErrInvalidLearningRate
	ErrInvalidBetas        = optim.ErrInvalidBetas
	ErrInvalidThreshold    = optim.ErrInvalidThreshold
)

// SkipLion

// SkipLion represents the Lion optimizer that skips outlier updates.
type SkipLion = optim.SkipLion

// SkipLionConfig contains configuration for SkipLion.
type SkipLionConfig = optim.SkipLionConfig

// NewSkipLion creates a new SkipLion optimizer. A nil comm means
// single-process training.
//
// Example:
//
//	optimizer, err := optim.NewSkipLion(
//	    model.Parameters(),
//	    optim.SkipLionConfig{
//	        LR:          1e-4,
//	        Betas:       [2]float64{0.9, 0.99},
//	        WeightDecay: 1e-5,
//	    },
//	    nil,
//	)
func NewSkipLion(params []*nn.Parameter, config SkipLionConfig, comm dist.Communicator) (*SkipLion, error) {
	return optim.NewSkipLion(params, config, comm)
}

// AdaBetaLion

// AdaBetaLion represents the Lion optimizer with outlier-adapted betas.
type AdaBetaLion = optim.AdaBetaLion

// AdaBetaLionConfig contains configuration for AdaBetaLion.
type AdaBetaLionConfig = optim.AdaBetaLionConfig

// DefaultAdaBetaLionConfig returns the canonical AdaBetaLion configuration,
// including Increase=true. Prefer it over a zero-value config, whose
// Increase field selects the decreasing direction.
func DefaultAdaBetaLionConfig() AdaBetaLionConfig {
	return optim.DefaultAdaBetaLionConfig()
}

// NewAdaBetaLion creates a new AdaBetaLion optimizer. A nil comm means
// single-process training.
func NewAdaBetaLion(params []*nn.Parameter, config AdaBetaLionConfig, comm dist.Communicator) (*AdaBetaLion, error) {
	return optim.NewAdaBetaLion(params, config, comm)
}

// AdaLRLion

// AdaLRLion represents the Lion optimizer with an outlier-adapted learning
// rate.
type AdaLRLion = optim.AdaLRLion

// AdaLRLionConfig contains configuration for AdaLRLion.
type AdaLRLionConfig = optim.AdaLRLionConfig

// NewAdaLRLion creates a new AdaLRLion optimizer. A nil comm means
// single-process training.
func NewAdaLRLion(params []*nn.Parameter, config AdaLRLionConfig, comm dist.Communicator) (*AdaLRLion, error) {
	return optim.NewAdaLRLion(params, config, comm)
}

// ClipLion

// ClipLion represents the Lion optimizer with outlier gradient clipping.
type ClipLion = optim.ClipLion

// ClipLionConfig contains configuration for ClipLion.
type ClipLionConfig = optim.ClipLionConfig

// NewClipLion creates a new ClipLion optimizer. A nil comm means
// single-process training.
func NewClipLion(params []*nn.Parameter, config ClipLionConfig, comm dist.Communicator) (*ClipLion, error) {
	return optim.NewClipLion(params, config, comm)
}

// FullyAdaptiveLion

// FullyAdaptiveLion represents the Lion optimizer that adapts learning
// rate, betas and weight decay together.
type FullyAdaptiveLion = optim.FullyAdaptiveLion

// FullyAdaptiveLionConfig contains configuration for FullyAdaptiveLion.
type FullyAdaptiveLionConfig = optim.FullyAdaptiveLionConfig

// NewFullyAdaptiveLion creates a new FullyAdaptiveLion optimizer. A nil
// comm means single-process training.
func NewFullyAdaptiveLion(params []*nn.Parameter, config FullyAdaptiveLionConfig, comm dist.Communicator) (*FullyAdaptiveLion, error) {
	return optim.NewFullyAdaptiveLion(params, config, comm)
}
