package optim

import (
	"github.com/born-ml/lion/internal/dist"
	"github.com/born-ml/lion/internal/nn"
)

// SkipLion is the Lion optimizer with outlier skipping.
//
// Each step, per parameter, it computes the global norm the momentum would
// have after absorbing the gradient. When the detector flags that norm as
// an outlier the whole update is dropped: parameter and momentum are left
// exactly as they were and the parameter's skipped-batch counter increments.
// Otherwise the standard sign-momentum update applies.
//
// Example:
//
//	opt, err := optim.NewSkipLion(params, optim.SkipLionConfig{
//	    LR:               3e-4,
//	    OutlierThreshold: 10,
//	}, nil)
type SkipLion struct {
	lionBase
}

// SkipLionConfig holds configuration for SkipLion.
type SkipLionConfig struct {
	LR               float64    // Learning rate (default: 1e-4)
	Betas            [2]float64 // Momentum interpolation weights (default: [0.9, 0.99])
	WeightDecay      float64    // Decoupled weight decay (default: 0)
	OutlierThreshold float64    // Outlier threshold on the moment norm (default: 10)
}

func (c *SkipLionConfig) applyDefaults() {
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
}

// NewSkipLion creates a SkipLion over params. A nil comm means
// single-process training.
func NewSkipLion(params []*nn.Parameter, config SkipLionConfig, comm dist.Communicator) (*SkipLion, error) {
	config.applyDefaults()
	base, err := newLionBase(params, config.LR, config.Betas, config.WeightDecay, config.OutlierThreshold, 0, comm)
	if err != nil {
		return nil, err
	}
	return &SkipLion{lionBase: base}, nil
}

// Step performs a single optimization step, skipping any parameter whose
// prospective moment norm is an outlier.
func (o *SkipLion) Step(closure Closure) (float64, bool) {
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
				st.skipped++
				continue
			}

			lionUpdate(p, p.Grad(), st.momentum, group.LR, group.initialLR, group.WeightDecay, beta1, beta2)
		}
	}
	return loss, ok
}

// SkippedBatches returns how many updates have been skipped for param.
// Returns 0 for parameters that have not taken a step yet.
func (o *SkipLion) SkippedBatches(param *nn.Parameter) float64 {
	st, ok := o.materializedState(param)
	if !ok {
		return 0
	}
	return st.skipped
}

// ReportPerParameterMetrics emits the core diagnostics plus the
// skipped-batch counter for one parameter.
func (o *SkipLion) ReportPerParameterMetrics(param *nn.Parameter, name string, metrics Metrics) Metrics {
	st, ok := o.materializedState(param)
	if !ok || param.Grad() == nil {
		return metrics
	}
	group := o.groups[0]

	o.reportCoreMetrics(param, st, name, metrics, group.LR, group.initialLR, group.WeightDecay, group.Betas[0])
	metrics["skipped_batches/"+name] = st.skipped
	return metrics
}
