// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the public API for trainable parameters.
package nn

import (
	"github.com/born-ml/lion/internal/nn"
	"github.com/born-ml/lion/tensor"
)

// Parameter represents a trainable parameter.
//
// Parameters are tensors that carry a gradient slot and a name. The name is
// the parameter's stable identity in metric keys, so it must be unique
// within a model and identical across workers for the same logical
// parameter.
//
// Example:
//
//	w, _ := tensor.FromSlice(weights, tensor.Shape{out, in})
//	param := nn.NewParameter("decoder.w", w)
//
//	// Training loop: store the batch gradient, then step the optimizer.
//	param.SetGrad(grad)
//
// Methods:
//
//	Name() string
//	    Returns the parameter name.
//
//	Tensor() *tensor.Tensor
//	    Returns the parameter tensor.
//
//	Grad() *tensor.Tensor
//	    Returns the gradient tensor (nil if none stored).
//
//	SetGrad(grad *tensor.Tensor)
//	    Stores the gradient tensor.
//
//	ZeroGrad()
//	    Clears the stored gradient.
//
//	RequiresGrad() bool / SetRequiresGrad(bool)
//	    Frozen parameters are skipped by the optimizers.
type Parameter = nn.Parameter

// NewParameter creates a named parameter wrapping t, with gradients enabled.
func NewParameter(name string, t *tensor.Tensor) *Parameter {
	return nn.NewParameter(name, t)
}
