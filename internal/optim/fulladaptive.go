package optim

import (
	"math"

	"github.com/born-ml/lion/internal/dist"
	"github.com/born-ml/lion/internal/nn"
)

// FullyAdaptiveLion adapts the learning rate, both betas and the weight
// decay at once.
//
// The learning rate and betas scale geometrically with the outlier window
// length n, v' = v * ParamAdjustment^n. Beta2 scales from the already
// adjusted beta1, not from the configured beta2.
//
// Weight decay is not a hyperparameter here: it derives entirely from
// parameter drift. The parameter's initial global L2 norm is captured once
// on its first step; after every step the current global norm yields the
// scaling (‖p_t‖-‖p_0‖)/‖p_0‖, and the next step applies
// wd = adaptedLR * scaling. Parameters that have grown decay, parameters
// that have shrunk get a negative decay and are pushed back up. The ratio
// is undefined for parameters whose initial global norm is zero; such
// parameters are not supported by this variant.
type FullyAdaptiveLion struct {
	lionBase
	paramAdjustment float64
}

// FullyAdaptiveLionConfig holds configuration for FullyAdaptiveLion.
// There is no WeightDecay field; decay derives from parameter drift.
type FullyAdaptiveLionConfig struct {
	LR               float64    // Learning rate (default: 1e-4)
	Betas            [2]float64 // Momentum interpolation weights (default: [0.9, 0.99])
	OutlierThreshold float64    // Outlier threshold on the moment norm (default: 7.5)
	Timeout          int        // Outlier window length in steps (default: 20)
	ParamAdjustment  float64    // Per-outlier scale on lr and betas (default: 0.5)
}

func (c *FullyAdaptiveLionConfig) applyDefaults() {
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
		c.OutlierThreshold = 7.5
	}
	if c.Timeout == 0 {
		c.Timeout = 20
	}
	if c.ParamAdjustment == 0 {
		c.ParamAdjustment = 0.5
	}
}

// NewFullyAdaptiveLion creates a FullyAdaptiveLion over params. A nil comm
// means single-process training.
func NewFullyAdaptiveLion(params []*nn.Parameter, config FullyAdaptiveLionConfig, comm dist.Communicator) (*FullyAdaptiveLion, error) {
	config.applyDefaults()
	base, err := newLionBase(params, config.LR, config.Betas, 0, config.OutlierThreshold, config.Timeout, comm)
	if err != nil {
		return nil, err
	}
	return &FullyAdaptiveLion{lionBase: base, paramAdjustment: config.ParamAdjustment}, nil
}

// adjustParam scales v geometrically with the outlier window length.
func adjustParam(v, adjustment float64, n int) float64 {
	return v * math.Pow(adjustment, float64(n))
}

// normEntry defers a squared-norm reduction until after the parameter loop.
// Entries are appended in registration order, which keeps the deferred
// collective calls aligned across workers.
type normEntry struct {
	st *paramState
	sq float64
}

// Step performs a single optimization step with lr, betas and weight decay
// all adapted.
func (o *FullyAdaptiveLion) Step(closure Closure) (float64, bool) {
	loss, ok := runClosure(closure)

	var pendingInit, pendingCurrent []normEntry
	for _, group := range o.groups {
		for _, p := range group.Params {
			if !eligible(p) {
				continue
			}
			st := o.state(p)

			if !st.hasInitNorm {
				local := p.Tensor().Norm()
				pendingInit = append(pendingInit, normEntry{st: st, sq: local * local})
			}

			norm := o.prospectiveMomentNorm(st, p.Grad(), group.Betas[1])
			if st.detector.InsertObservation(norm) {
				st.window.record(st.step)
			}
			st.window.evict(st.step)
			n := st.window.size()

			lr := adjustParam(group.LR, o.paramAdjustment, n)
			beta1 := adjustParam(group.Betas[0], o.paramAdjustment, n)
			// beta2 scales from the adjusted beta1, not the configured beta2.
			beta2 := adjustParam(beta1, o.paramAdjustment, n)
			wd := lr * st.wdScale

			lionUpdate(p, p.Grad(), st.momentum, lr, group.initialLR, wd, beta1, beta2)
			st.step++

			local := p.Tensor().Norm()
			pendingCurrent = append(pendingCurrent, normEntry{st: st, sq: local * local})
		}
	}

	// Deferred norm reductions, in the same registration order on every
	// worker. Initial norms first: a parameter's first step needs its
	// initial norm resolved before the drift below can read it.
	for _, e := range pendingInit {
		e.st.initNorm = math.Sqrt(o.sumReduce(e.sq))
		e.st.hasInitNorm = true
	}
	for _, e := range pendingCurrent {
		current := math.Sqrt(o.sumReduce(e.sq))
		e.st.wdScale = (current - e.st.initNorm) / e.st.initNorm
	}

	return loss, ok
}

// WeightDecayScaling returns the drift-derived weight-decay scaling for
// param, zero until the parameter's first step completes.
func (o *FullyAdaptiveLion) WeightDecayScaling(param *nn.Parameter) float64 {
	st, ok := o.materializedState(param)
	if !ok {
		return 0
	}
	return st.wdScale
}

// ReportPerParameterMetrics emits the core diagnostics plus the adapted
// learning rate, betas and weight-decay scaling for one parameter. The
// update-tensor diagnostics use the adapted values, matching what the next
// step would apply.
func (o *FullyAdaptiveLion) ReportPerParameterMetrics(param *nn.Parameter, name string, metrics Metrics) Metrics {
	st, ok := o.materializedState(param)
	if !ok || param.Grad() == nil {
		return metrics
	}
	group := o.groups[0]
	n := st.window.size()

	lr := adjustParam(group.LR, o.paramAdjustment, n)
	beta1 := adjustParam(group.Betas[0], o.paramAdjustment, n)
	beta2 := adjustParam(beta1, o.paramAdjustment, n)
	wd := lr * st.wdScale

	o.reportCoreMetrics(param, st, name, metrics, lr, group.initialLR, wd, beta1)
	metrics["layerwise_lr/"+name] = lr
	metrics["betas/beta1/"+name] = beta1
	metrics["betas/beta2/"+name] = beta2
	metrics["wd_scaling/"+name] = st.wdScale
	return metrics
}
