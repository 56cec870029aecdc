package optim

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/born-ml/lion/internal/dist"
	"github.com/born-ml/lion/internal/nn"
	"github.com/born-ml/lion/internal/tensor"
)

// Sentinel errors for optimizer construction.
// Use errors.Is to check: errors.Is(err, optim.ErrInvalidLearningRate).
var (
	ErrInvalidLearningRate = errors.New("optim: learning rate must be positive")
	ErrInvalidBetas        = errors.New("optim: betas must lie in [0, 1]")
	ErrInvalidThreshold    = errors.New("optim: outlier threshold must be positive")
)

// highWeightDecay is the level at which decoupled weight decay starts to
// shrink weights noticeably every step; construction warns but proceeds.
const highWeightDecay = 1e-3

// ParamGroup holds parameters that share one set of hyperparameters.
//
// LR, Betas and WeightDecay may be mutated between steps, e.g. by a
// learning-rate scheduler. The initial learning rate is fixed at
// registration and only feeds the decoupled-decay scale lr/initialLR.
type ParamGroup struct {
	Params      []*nn.Parameter
	LR          float64
	Betas       [2]float64
	WeightDecay float64

	initialLR float64
}

// InitialLR returns the learning rate the group was registered with.
func (g *ParamGroup) InitialLR() float64 {
	return g.initialLR
}

// paramState is the per-parameter optimizer state. One instance exists per
// registered parameter for the optimizer's lifetime; the momentum buffer and
// detector materialize lazily on the parameter's first step.
type paramState struct {
	id       int
	momentum *tensor.Tensor
	detector *OutlierDetector
	window   *outlierWindow // nil for variants without a timeout
	step     int

	skipped float64 // SkipLion: batches skipped
	clipped float64 // ClipLion: batches clipped

	// FullyAdaptiveLion: parameter-drift bookkeeping.
	initNorm    float64
	hasInitNorm bool
	wdScale     float64
}

// lionBase carries the machinery the five variants share: parameter groups,
// the index-addressed state arena, the collective, and the detector
// threshold. Parameters are traversed strictly in registration order so
// that every worker issues the same sequence of collective calls.
type lionBase struct {
	groups    []*ParamGroup
	comm      dist.Communicator
	threshold float64
	timeout   int // 0 for variants without an outlier window

	ids   map[*nn.Parameter]int
	arena []*paramState
}

func newLionBase(params []*nn.Parameter, lr float64, betas [2]float64, wd, threshold float64, timeout int, comm dist.Communicator) (lionBase, error) {
	if comm == nil {
		comm = dist.Local{}
	}
	if err := validateHyperparameters(lr, betas); err != nil {
		return lionBase{}, err
	}
	if threshold <= 0 {
		return lionBase{}, fmt.Errorf("%w: got %v", ErrInvalidThreshold, threshold)
	}
	warnHighWeightDecay(wd)

	b := lionBase{
		comm:      comm,
		threshold: threshold,
		timeout:   timeout,
		ids:       make(map[*nn.Parameter]int),
	}
	b.register(&ParamGroup{
		Params:      params,
		LR:          lr,
		Betas:       betas,
		WeightDecay: wd,
		initialLR:   lr,
	})
	return b, nil
}

func validateHyperparameters(lr float64, betas [2]float64) error {
	if lr <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidLearningRate, lr)
	}
	for _, beta := range betas {
		if beta < 0 || beta > 1 {
			return fmt.Errorf("%w: got %v", ErrInvalidBetas, betas)
		}
	}
	return nil
}

func warnHighWeightDecay(wd float64) {
	if wd >= highWeightDecay {
		slog.Warn("high weight decay for decoupled lion: weights are multiplied by 1-weight_decay*(lr/initial_lr) every step",
			"weight_decay", wd)
	}
}

// register appends a group and assigns a stable arena slot to every
// parameter not seen before. Slot order is registration order.
func (b *lionBase) register(g *ParamGroup) {
	b.groups = append(b.groups, g)
	for _, p := range g.Params {
		if _, ok := b.ids[p]; ok {
			continue
		}
		st := &paramState{id: len(b.arena)}
		b.ids[p] = st.id
		b.arena = append(b.arena, st)
	}
}

// Groups returns the parameter groups for inspection or scheduling.
// Mutating LR, Betas or WeightDecay takes effect on the next step.
func (b *lionBase) Groups() []*ParamGroup {
	return b.groups
}

// AddGroup registers an additional parameter group with its own
// hyperparameters. The group's initial learning rate is fixed to its
// current LR. All workers must add the same groups in the same order.
func (b *lionBase) AddGroup(g *ParamGroup) error {
	if err := validateHyperparameters(g.LR, g.Betas); err != nil {
		return err
	}
	warnHighWeightDecay(g.WeightDecay)
	g.initialLR = g.LR
	b.register(g)
	return nil
}

// state returns the arena slot for p, materializing the momentum buffer,
// detector and window on first use.
func (b *lionBase) state(p *nn.Parameter) *paramState {
	st := b.arena[b.ids[p]]
	if st.momentum == nil {
		st.momentum = tensor.ZerosLike(p.Tensor())
		st.detector = NewOutlierDetector(b.threshold)
		if b.timeout > 0 {
			st.window = newOutlierWindow(b.timeout)
		}
	}
	return st
}

// materializedState returns the state for p only if the parameter has
// already taken a step; metric reporting skips parameters without state.
func (b *lionBase) materializedState(p *nn.Parameter) (*paramState, bool) {
	id, ok := b.ids[p]
	if !ok {
		return nil, false
	}
	st := b.arena[id]
	if st.momentum == nil {
		return nil, false
	}
	return st, true
}

// sumReduce folds a scalar across workers. The collective is skipped at
// world size 1, where it would be a no-op.
func (b *lionBase) sumReduce(v float64) float64 {
	if b.comm.WorldSize() > 1 {
		return b.comm.SumAllReduce(v)
	}
	return v
}

// crossWorkerNorm folds a shard-local L2 norm into the global norm:
// square, sum across workers, square-root. Feeding detectors only global
// norms keeps the outlier decision identical on every worker.
func (b *lionBase) crossWorkerNorm(local float64) float64 {
	return math.Sqrt(b.sumReduce(local * local))
}

// prospectiveMomentNorm is the tracked magnitude of the moment-watching
// variants: the global norm the momentum would have after absorbing grad.
func (b *lionBase) prospectiveMomentNorm(st *paramState, grad *tensor.Tensor, beta2 float64) float64 {
	return b.crossWorkerNorm(st.momentum.Lerp(grad, 1-beta2).Norm())
}

// lionUpdate applies the shared sign-momentum rule in place:
//
//  1. decoupled weight decay: param *= 1 - wd*(lr/initialLR)
//  2. param -= lr * sign(lerp(momentum, grad, 1-beta1))
//  3. momentum = lerp(momentum, grad, 1-beta2)
//
// The decay scale falls back to 1 when initialLR is zero.
func lionUpdate(p *nn.Parameter, grad, momentum *tensor.Tensor, lr, initialLR, wd, beta1, beta2 float64) {
	if wd != 0 {
		decay := 1.0
		if initialLR != 0 {
			decay = lr / initialLR
		}
		p.Tensor().ScaleInPlace(1 - decay*wd)
	}

	update := momentum.Lerp(grad, 1-beta1)
	update.SignInPlace()
	p.Tensor().AddScaled(update, -lr)

	momentum.LerpInPlace(grad, 1-beta2)
}

// rebuildStep reconstructs the step tensor lr*sign(lerp(momentum, grad,
// 1-beta1)) - wd*decay*param from stored state, for metric reporting at a
// cadence decoupled from stepping.
func rebuildStep(p *nn.Parameter, st *paramState, lr, initialLR, wd, beta1 float64) *tensor.Tensor {
	step := st.momentum.Lerp(p.Grad(), 1-beta1)
	step.SignInPlace()
	step.ScaleInPlace(lr)

	decay := 1.0
	if initialLR != 0 {
		decay = lr / initialLR
	}
	step.AddScaled(p.Tensor(), -wd*decay)
	return step
}
