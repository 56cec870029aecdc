// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for the dense float64 tensors the
// optimizers operate on.
//
// The package defines:
//   - Tensor: a contiguous float64 tensor with in-place update primitives
//   - Shape: tensor dimensions
//   - CosineSimilarity: the cosine diagnostic used by metric reporting
//
// Example:
//
//	x, err := tensor.FromSlice([]float64{1, 2, 3}, tensor.Shape{3})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	n := x.Norm() // sqrt(14)
package tensor

import (
	"github.com/born-ml/lion/internal/tensor"
)

// Type aliases for public API

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3, 4} represents a 3D tensor with dimensions 2×3×4.
type Shape = tensor.Shape

// Tensor is a dense float64 tensor.
type Tensor = tensor.Tensor

// FromSlice creates a tensor from data with the given shape. The data is
// copied; the tensor does not alias the input slice.
func FromSlice(data []float64, shape Shape) (*Tensor, error) {
	return tensor.FromSlice(data, shape)
}

// Zeros creates a zero-filled tensor with the given shape.
func Zeros(shape Shape) *Tensor {
	return tensor.Zeros(shape)
}

// ZerosLike creates a zero-filled tensor with the same shape as t.
func ZerosLike(t *Tensor) *Tensor {
	return tensor.ZerosLike(t)
}

// CosineSimilarity returns the cosine of the angle between a and b, treating
// each as a flat vector. Returns 0 when either vector is (near) zero.
func CosineSimilarity(a, b *Tensor) float64 {
	return tensor.CosineSimilarity(a, b)
}
