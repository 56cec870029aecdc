package optim

import (
	"github.com/born-ml/lion/internal/dist"
	"github.com/born-ml/lion/internal/nn"
)

// ClipLion is the Lion optimizer with outlier gradient clipping.
//
// Unlike the moment-watching variants it tracks the raw gradient norm. When
// the detector flags a gradient as an outlier the update still applies, but
// with the gradient rescaled to magnitude SlowMVA()*threshold, the robust
// baseline times the threshold, i.e. right at the edge of what the detector
// considers normal. Direction is preserved. The detector's baseline is not
// updated on clip steps, so clipped spikes never inflate the clip target.
// The gradient stored on the parameter is never modified; the update
// consumes a rescaled copy.
type ClipLion struct {
	lionBase
}

// ClipLionConfig holds configuration for ClipLion.
type ClipLionConfig struct {
	LR               float64    // Learning rate (default: 1e-4)
	Betas            [2]float64 // Momentum interpolation weights (default: [0.9, 0.99])
	WeightDecay      float64    // Decoupled weight decay (default: 0)
	OutlierThreshold float64    // Outlier threshold on the gradient norm (default: 5)
}

func (c *ClipLionConfig) applyDefaults() {
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
		c.OutlierThreshold = 5
	}
}

// NewClipLion creates a ClipLion over params. A nil comm means
// single-process training.
func NewClipLion(params []*nn.Parameter, config ClipLionConfig, comm dist.Communicator) (*ClipLion, error) {
	config.applyDefaults()
	base, err := newLionBase(params, config.LR, config.Betas, config.WeightDecay, config.OutlierThreshold, 0, comm)
	if err != nil {
		return nil, err
	}
	return &ClipLion{lionBase: base}, nil
}

// Step performs a single optimization step, clipping any gradient whose
// global norm is an outlier.
func (o *ClipLion) Step(closure Closure) (float64, bool) {
	loss, ok := runClosure(closure)

	for _, group := range o.groups {
		beta1, beta2 := group.Betas[0], group.Betas[1]
		for _, p := range group.Params {
			if !eligible(p) {
				continue
			}
			st := o.state(p)

			grad := p.Grad()
			gradNorm := o.crossWorkerNorm(grad.Norm())
			if st.detector.InsertObservation(gradNorm) {
				st.clipped++
				clipNorm := st.detector.SlowMVA() * o.threshold
				grad = grad.Clone()
				grad.ScaleInPlace(clipNorm / gradNorm)
			}

			lionUpdate(p, grad, st.momentum, group.LR, group.initialLR, group.WeightDecay, beta1, beta2)
		}
	}
	return loss, ok
}

// ClippedBatches returns how many gradients have been clipped for param.
// Returns 0 for parameters that have not taken a step yet.
func (o *ClipLion) ClippedBatches(param *nn.Parameter) float64 {
	st, ok := o.materializedState(param)
	if !ok {
		return 0
	}
	return st.clipped
}

// ReportPerParameterMetrics emits the core diagnostics plus the
// clipped-batch counter for one parameter.
func (o *ClipLion) ReportPerParameterMetrics(param *nn.Parameter, name string, metrics Metrics) Metrics {
	st, ok := o.materializedState(param)
	if !ok || param.Grad() == nil {
		return metrics
	}
	group := o.groups[0]

	o.reportCoreMetrics(param, st, name, metrics, group.LR, group.initialLR, group.WeightDecay, group.Betas[0])
	metrics["clipped_batches/"+name] = st.clipped
	return metrics
}
