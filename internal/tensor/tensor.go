package tensor

import "fmt"

// Tensor is a dense float64 tensor.
//
// Optimizer state and parameter data live in flat float64 buffers; every
// operation this package offers is elementwise or a reduction over the flat
// buffer, so shapes only matter for validation and bookkeeping.
//
// Example:
//
//	w, _ := tensor.FromSlice([]float64{1, 2, 3}, tensor.Shape{3})
//	m := tensor.ZerosLike(w)
//	m.LerpInPlace(w, 0.1)
type Tensor struct {
	shape Shape
	data  []float64
}

// FromSlice creates a tensor from a Go slice.
// The slice is copied into the tensor's memory.
func FromSlice(data []float64, shape Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	buf := make([]float64, len(data))
	copy(buf, data)
	return &Tensor{shape: shape.Clone(), data: buf}, nil
}

// Zeros creates a zero-filled tensor with the given shape.
func Zeros(shape Shape) *Tensor {
	return &Tensor{
		shape: shape.Clone(),
		data:  make([]float64, shape.NumElements()),
	}
}

// ZerosLike creates a zero-filled tensor with the same shape as t.
func ZerosLike(t *Tensor) *Tensor {
	return Zeros(t.shape)
}

// Shape returns the tensor's shape.
func (t *Tensor) Shape() Shape {
	return t.shape
}

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int {
	return t.shape.NumElements()
}

// Data returns the underlying flat buffer.
//
// The caller may read or mutate elements in place; the buffer is shared,
// not copied.
func (t *Tensor) Data() []float64 {
	return t.data
}

// Clone returns a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	buf := make([]float64, len(t.data))
	copy(buf, t.data)
	return &Tensor{shape: t.shape.Clone(), data: buf}
}

// CopyFrom overwrites the tensor's data with other's data.
// Panics if the shapes differ.
func (t *Tensor) CopyFrom(other *Tensor) {
	t.assertSameShape(other)
	copy(t.data, other.data)
}

func (t *Tensor) assertSameShape(other *Tensor) {
	if !t.shape.Equal(other.shape) {
		panic(fmt.Sprintf("tensor: shape mismatch: %v vs %v", t.shape, other.shape))
	}
}
