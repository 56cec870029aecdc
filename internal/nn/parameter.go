package nn

import (
	"github.com/born-ml/lion/internal/tensor"
)

// Parameter represents a trainable parameter tracked by an optimizer.
//
// A Parameter couples a value tensor with the gradient the training loop
// produced for it. In a sharded training job each worker's Parameter holds
// only that worker's shard of the logical tensor; the optimizers in
// internal/optim reconcile shard-local quantities through the collective.
//
// Example:
//
//	// Create a weight parameter
//	weight := nn.NewParameter("weight", weightTensor)
//
//	// Training loop sets the gradient, the optimizer consumes it
//	weight.SetGrad(grad)
type Parameter struct {
	name         string
	tensor       *tensor.Tensor // The parameter tensor
	grad         *tensor.Tensor // Gradient tensor (set by the training loop)
	requiresGrad bool           // Whether the optimizer should update this parameter
}

// NewParameter creates a new trainable parameter.
//
// The parameter tensor should be initialized before creating the Parameter.
// The gradient starts nil and is supplied by the training loop each step.
//
// Parameters:
//   - name: Descriptive name for this parameter (e.g., "linear1.weight").
//     The name doubles as the parameter's stable identity in metric keys,
//     so it must be unique within an optimizer and identical across workers.
//   - tensor: The initialized parameter tensor
func NewParameter(name string, t *tensor.Tensor) *Parameter {
	return &Parameter{
		name:         name,
		tensor:       t,
		grad:         nil,
		requiresGrad: true,
	}
}

// Name returns the parameter name.
func (p *Parameter) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter) Tensor() *tensor.Tensor {
	return p.tensor
}

// Grad returns the gradient tensor.
//
// Returns nil if no gradient has been set for the current step.
func (p *Parameter) Grad() *tensor.Tensor {
	return p.grad
}

// SetGrad sets the gradient tensor.
//
// This is typically called by the training loop after the backward pass.
func (p *Parameter) SetGrad(grad *tensor.Tensor) {
	p.grad = grad
}

// ZeroGrad clears the gradient tensor.
//
// This should be called before each training iteration to avoid
// consuming stale gradients.
func (p *Parameter) ZeroGrad() {
	p.grad = nil
}

// RequiresGrad reports whether the optimizer should update this parameter.
func (p *Parameter) RequiresGrad() bool {
	return p.requiresGrad
}

// SetRequiresGrad toggles optimization for this parameter (freezing).
func (p *Parameter) SetRequiresGrad(requires bool) {
	p.requiresGrad = requires
}
