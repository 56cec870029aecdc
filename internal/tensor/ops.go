package tensor

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// cosineEps floors the cosine-similarity denominator so zero vectors yield
// a similarity of zero instead of NaN.
const cosineEps = 1e-8

// Lerp returns a new tensor interpolated between t and other:
//
//	out = t + weight*(other - t)
//
// Panics if the shapes differ.
func (t *Tensor) Lerp(other *Tensor, weight float64) *Tensor {
	out := t.Clone()
	out.LerpInPlace(other, weight)
	return out
}

// LerpInPlace interpolates t toward other in place:
//
//	t = t + weight*(other - t)
//
// Panics if the shapes differ.
func (t *Tensor) LerpInPlace(other *Tensor, weight float64) {
	t.assertSameShape(other)
	for i, v := range t.data {
		t.data[i] = v + weight*(other.data[i]-v)
	}
}

// SignInPlace maps every element to -1, 0 or +1 in place.
func (t *Tensor) SignInPlace() {
	for i, v := range t.data {
		switch {
		case v > 0:
			t.data[i] = 1
		case v < 0:
			t.data[i] = -1
		default:
			t.data[i] = 0
		}
	}
}

// ScaleInPlace multiplies every element by c in place.
func (t *Tensor) ScaleInPlace(c float64) {
	floats.Scale(c, t.data)
}

// AddScaled accumulates alpha*other into t in place:
//
//	t = t + alpha*other
//
// Panics if the shapes differ.
func (t *Tensor) AddScaled(other *Tensor, alpha float64) {
	t.assertSameShape(other)
	floats.AddScaled(t.data, alpha, other.data)
}

// Norm returns the L2 norm of the flattened tensor.
func (t *Tensor) Norm() float64 {
	return floats.Norm(t.data, 2)
}

// Dot returns the dot product of the flattened tensors.
// Panics if the shapes differ.
func (t *Tensor) Dot(other *Tensor) float64 {
	t.assertSameShape(other)
	return floats.Dot(t.data, other.data)
}

// CosineSimilarity returns the cosine similarity of the flattened tensors.
// Panics if the shapes differ.
func CosineSimilarity(a, b *Tensor) float64 {
	dot := a.Dot(b)
	return dot / math.Max(a.Norm()*b.Norm(), cosineEps)
}
