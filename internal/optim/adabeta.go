package optim

import (
	"math"

	"github.com/born-ml/lion/internal/dist"
	"github.com/born-ml/lion/internal/nn"
)

// AdaBetaLion is the Lion optimizer with outlier-adapted betas.
//
// Instead of skipping anomalous updates it keeps a window of the step
// indices at which outliers were flagged within the last Timeout steps, and
// re-shapes both betas as a function of the window length n:
//
//	beta' = 1 - (1-beta) * scale^n
//
// with scale 0.5 when Increase (betas move toward 1, updates lean harder on
// accumulated momentum) and 1.5 otherwise. The update itself always applies.
type AdaBetaLion struct {
	lionBase
	increase bool
}

// AdaBetaLionConfig holds configuration for AdaBetaLion.
//
// The zero value of Increase selects the decreasing direction (scale 1.5);
// use DefaultAdaBetaLionConfig for the canonical increasing behavior.
type AdaBetaLionConfig struct {
	LR               float64    // Learning rate (default: 1e-4)
	Betas            [2]float64 // Momentum interpolation weights (default: [0.9, 0.99])
	WeightDecay      float64    // Decoupled weight decay (default: 0)
	OutlierThreshold float64    // Outlier threshold on the moment norm (default: 10)
	Increase         bool       // Direction of the beta adjustment
	Timeout          int        // Outlier window length in steps (default: 50)
}

// DefaultAdaBetaLionConfig returns the canonical AdaBetaLion configuration,
// including Increase=true.
func DefaultAdaBetaLionConfig() AdaBetaLionConfig {
	return AdaBetaLionConfig{
		LR:               1e-4,
		Betas:            [2]float64{0.9, 0.99},
		OutlierThreshold: 10,
		Increase:         true,
		Timeout:          50,
	}
}

func (c *AdaBetaLionConfig) applyDefaults() {
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
		c.Timeout = 50
	}
}

// NewAdaBetaLion creates an AdaBetaLion over params. A nil comm means
// single-process training.
func NewAdaBetaLion(params []*nn.Parameter, config AdaBetaLionConfig, comm dist.Communicator) (*AdaBetaLion, error) {
	config.applyDefaults()
	base, err := newLionBase(params, config.LR, config.Betas, config.WeightDecay, config.OutlierThreshold, config.Timeout, comm)
	if err != nil {
		return nil, err
	}
	return &AdaBetaLion{lionBase: base, increase: config.Increase}, nil
}

// adjustBetas re-shapes both betas for a window of n recent outliers:
// beta' = 1 - (1-beta)*scale^n, scale 0.5 when increasing else 1.5.
func adjustBetas(beta1, beta2 float64, increase bool, n int) (float64, float64) {
	scale := 1.5
	if increase {
		scale = 0.5
	}
	factor := math.Pow(scale, float64(n))
	return 1 - (1-beta1)*factor, 1 - (1-beta2)*factor
}

// Step performs a single optimization step with betas adapted to the
// current outlier window.
func (o *AdaBetaLion) Step(closure Closure) (float64, bool) {
	loss, ok := runClosure(closure)

	for _, group := range o.groups {
		for _, p := range group.Params {
			if !eligible(p) {
				continue
			}
			st := o.state(p)

			norm := o.prospectiveMomentNorm(st, p.Grad(), group.Betas[1])
			if st.detector.InsertObservation(norm) {
				st.window.record(st.step)
			}
			st.window.evict(st.step)

			beta1, beta2 := adjustBetas(group.Betas[0], group.Betas[1], o.increase, st.window.size())
			lionUpdate(p, p.Grad(), st.momentum, group.LR, group.initialLR, group.WeightDecay, beta1, beta2)
			st.step++
		}
	}
	return loss, ok
}

// ReportPerParameterMetrics emits the core diagnostics plus the adapted
// betas for one parameter. The update-tensor diagnostics use the adapted
// beta1, matching what the next step would apply.
func (o *AdaBetaLion) ReportPerParameterMetrics(param *nn.Parameter, name string, metrics Metrics) Metrics {
	st, ok := o.materializedState(param)
	if !ok || param.Grad() == nil {
		return metrics
	}
	group := o.groups[0]

	beta1, beta2 := adjustBetas(group.Betas[0], group.Betas[1], o.increase, st.window.size())
	o.reportCoreMetrics(param, st, name, metrics, group.LR, group.initialLR, group.WeightDecay, beta1)
	metrics["betas/beta1/"+name] = beta1
	metrics["betas/beta2/"+name] = beta2
	return metrics
}
