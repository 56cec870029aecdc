package optim

import (
	"math"

	"github.com/born-ml/lion/internal/dist"
	"github.com/born-ml/lion/internal/nn"
)

// AdaLRLion is the Lion optimizer with an outlier-adapted learning rate.
//
// It keeps the same outlier window as AdaBetaLion and scales the learning
// rate down geometrically with the window length n:
//
//	lr' = lr * max(MinScale, LRPenalty^n)
//
// The update always applies; the decay scale lr/initialLR is computed from
// the unadapted learning rate.
type AdaLRLion struct {
	lionBase
	lrPenalty float64
	minScale  float64
}

// AdaLRLionConfig holds configuration for AdaLRLion.
type AdaLRLionConfig struct {
	LR               float64    // Learning rate (default: 1e-4)
	Betas            [2]float64 // Momentum interpolation weights (default: [0.9, 0.99])
	WeightDecay      float64    // Decoupled weight decay (default: 0)
	OutlierThreshold float64    // Outlier threshold on the moment norm (default: 10)
	Timeout          int        // Outlier window length in steps (default: 100)
	LRPenalty        float64    // Per-outlier learning-rate penalty (default: 0.707)
	MinScale         float64    // Floor on the learning-rate scale (default: 1e-4)
}

func (c *AdaLRLionConfig) applyDefaults() {
	if c.LR == 0 {
		c.LR = 1e-4
	}
	if c.Betas[0] == 0 {
		c.Betas[0] = 0.9
	}
	if c.Betas[1] == 0 {
		c.Betas[1] = 0.99
	}
	if c.OutlierThreshold == 0 {
		c.OutlierThreshold = 10
	}
	if c.Timeout == 0 {
		c.Timeout = 100
	}
	if c.LRPenalty == 0 {
		c.LRPenalty = 0.707
	}
	if c.MinScale == 0 {
		c.MinScale = 1e-4
	}
}

// NewAdaLRLion creates an AdaLRLion over params. A nil comm means
// single-process training.
func NewAdaLRLion(params []*nn.Parameter, config AdaLRLionConfig, comm dist.Communicator) (*AdaLRLion, error) {
	config.applyDefaults()
	base, err := newLionBase(params, config.LR, config.Betas, config.WeightDecay, config.OutlierThreshold, config.Timeout, comm)
	if err != nil {
		return nil, err
	}
	return &AdaLRLion{lionBase: base, lrPenalty: config.LRPenalty, minScale: config.MinScale}, nil
}

// adjustLR scales lr down for a window of n recent outliers, floored at
// minScale.
func adjustLR(lr, penalty float64, n int, minScale float64) float64 {
	return lr * math.Max(minScale, math.Pow(penalty, float64(n)))
}

// Step performs a single optimization step with the learning rate adapted
// to the current outlier window.
func (o *AdaLRLion) Step(closure Closure) (float64, bool) {
	loss, ok := runClosure(closure)

	for _, group := range o.groups {
		beta1, beta2 := group.Betas[0], group.Betas[1]
		for _, p := range group.Params {
			if !eligible(p) {
				continue
			}
			st := o.state(p)

			norm := o.prospectiveMomentNorm(st, p.Grad(), beta2)
			if st.detector.InsertObservation(norm) {
				st.window.record(st.step)
			}
			st.window.evict(st.step)

			lr := adjustLR(group.LR, o.lrPenalty, st.window.size(), o.minScale)
			lionUpdate(p, p.Grad(), st.momentum, lr, group.initialLR, group.WeightDecay, beta1, beta2)
			st.step++
		}
	}
	return loss, ok
}

// ReportPerParameterMetrics emits the core diagnostics plus the adapted
// per-layer learning rate for one parameter. The update-tensor diagnostics
// use the group's unadapted learning rate; the adapted value is reported
// under layerwise_lr.
func (o *AdaLRLion) ReportPerParameterMetrics(param *nn.Parameter, name string, metrics Metrics) Metrics {
	st, ok := o.materializedState(param)
	if !ok || param.Grad() == nil {
		return metrics
	}
	group := o.groups[0]

	o.reportCoreMetrics(param, st, name, metrics, group.LR, group.initialLR, group.WeightDecay, group.Betas[0])
	metrics["layerwise_lr/"+name] = adjustLR(group.LR, o.lrPenalty, st.window.size(), o.minScale)
	return metrics
}
