// Package optim implements the Lion optimizer family with online outlier
// detection for large-model training.
//
// This package provides:
//   - OutlierDetector: statistical gate over a stream of magnitudes
//   - SkipLion: skips updates whose prospective momentum is an outlier
//   - AdaBetaLion: de-weights momentum decay while outliers are recent
//   - AdaLRLion: de-weights the learning rate while outliers are recent
//   - ClipLion: clips outlier gradients to a robust magnitude
//   - FullyAdaptiveLion: adapts lr, betas and weight decay together
//
// All variants share the sign-momentum update rule with decoupled weight
// decay and the two-phase metric-reduction protocol that makes per-worker
// diagnostics aggregate correctly under a sum-only collective.
package optim

import (
	"github.com/born-ml/lion/internal/nn"
)

// Closure recomputes the training loss for optimizers that want a fresh
// forward pass before the update (line-search-style usage). It runs before
// any parameter is touched.
type Closure func() float64

// Metrics maps hierarchical metric keys to scalar values.
//
// Keys encode a metric family and a parameter name, e.g.
// "l2_norm/grad/decoder.w" or "cosine/update_grad/decoder.w". The maps are
// transient: produced by ReportPerParameterMetrics, mutated in place by the
// two reduction phases, consumed by reporting.
type Metrics map[string]float64

// Optimizer is the interface shared by the five Lion variants.
//
// Step consumes the gradients the training loop stored on the parameters
// and updates parameters and momentum in place. The three metric operations
// implement the reporting protocol:
//
//	for name, p := range params {
//	    metrics = opt.ReportPerParameterMetrics(p, name, metrics)
//	}
//	metrics = opt.PreReduceMetrics(metrics)
//	metrics = opt.DistReduceMetrics(metrics) // crosses the collective
type Optimizer interface {
	// Step applies one optimization step. If closure is non-nil it is
	// invoked first; its loss is returned with ok=true.
	Step(closure Closure) (loss float64, ok bool)

	// PreReduceMetrics prepares per-worker metric values for a sum
	// reduction (squares norms, pre-scales cosines).
	PreReduceMetrics(metrics Metrics) Metrics

	// DistReduceMetrics folds metric values across workers and undoes the
	// pre-reduce encoding, yielding human-reportable values.
	DistReduceMetrics(metrics Metrics) Metrics

	// ReportPerParameterMetrics emits the diagnostics for one parameter
	// into metrics and returns it.
	ReportPerParameterMetrics(param *nn.Parameter, name string, metrics Metrics) Metrics
}

// runClosure evaluates an optional loss closure.
func runClosure(closure Closure) (float64, bool) {
	if closure == nil {
		return 0, false
	}
	return closure(), true
}

// eligible reports whether a parameter takes part in the step: it must have
// a gradient and not be frozen. Eligibility must be identical on every
// worker, or the per-parameter collective calls desynchronize.
func eligible(p *nn.Parameter) bool {
	return p.Grad() != nil && p.RequiresGrad()
}
