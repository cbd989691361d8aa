// Package tensor provides the dense float64 values carried through the
// backward graph: forward outputs, saved states and gradients.
//
// Tensors are immutable once built; every kernel returns a fresh tensor. This
// lets the checkpointer and the gradient accumulator share values without
// copying.
package tensor

import (
	"fmt"
	"math"
	"strings"

	"github.com/born-ml/autograph/internal/parallel"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// Tensor is a dense, row-major float64 tensor.
type Tensor struct {
	shape Shape
	data  []float64
}

// FromSlice creates a tensor from data, which is copied.
func FromSlice(data []float64, shape Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, errors.Wrap(err, "tensor.FromSlice")
	}
	if len(data) != shape.NumElements() {
		return nil, errors.Errorf("tensor.FromSlice: %d values do not fill shape %s (%d elements)",
			len(data), shape, shape.NumElements())
	}
	buf := make([]float64, len(data))
	copy(buf, data)
	return &Tensor{shape: shape.Clone(), data: buf}, nil
}

// Vector creates a rank-1 tensor holding values.
func Vector(values ...float64) *Tensor {
	buf := make([]float64, len(values))
	copy(buf, values)
	return &Tensor{shape: Shape{len(values)}, data: buf}
}

// Scalar creates a rank-0 tensor.
func Scalar(v float64) *Tensor {
	return &Tensor{shape: Shape{}, data: []float64{v}}
}

// Full creates a tensor of the given shape with every element set to v.
func Full(shape Shape, v float64) *Tensor {
	data := make([]float64, shape.NumElements())
	for i := range data {
		data[i] = v
	}
	return &Tensor{shape: shape.Clone(), data: data}
}

// Zeros creates a zero-filled tensor.
func Zeros(shape Shape) *Tensor { return Full(shape, 0) }

// Ones creates a one-filled tensor.
func Ones(shape Shape) *Tensor { return Full(shape, 1) }

// Shape returns the tensor dimensions.
func (t *Tensor) Shape() Shape { return t.shape }

// Len returns the number of elements.
func (t *Tensor) Len() int { return len(t.data) }

// Data returns a copy of the elements in row-major order.
func (t *Tensor) Data() []float64 {
	out := make([]float64, len(t.data))
	copy(out, t.data)
	return out
}

// At returns the i-th element in row-major order.
func (t *Tensor) At(i int) float64 { return t.data[i] }

// Item returns the single value of a one-element tensor.
func (t *Tensor) Item() float64 {
	if len(t.data) != 1 {
		exceptions.Panicf("tensor.Item: tensor of shape %s has %d elements", t.shape, len(t.data))
	}
	return t.At(0)
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{shape: t.shape.Clone(), data: t.Data()}
}

// Equal reports whether both tensors have the same shape and exactly the same values.
func (t *Tensor) Equal(other *Tensor) bool {
	return t.AllClose(other, 0)
}

// AllClose reports whether both tensors have the same shape and every pair of
// elements differs by at most tol.
func (t *Tensor) AllClose(other *Tensor, tol float64) bool {
	if other == nil || !t.shape.Equal(other.shape) {
		return false
	}
	for i, v := range t.data {
		if math.Abs(v-other.data[i]) > tol {
			return false
		}
	}
	return true
}

// String formats the tensor as "[1 2 3](3)".
func (t *Tensor) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range t.data {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%g", v)
	}
	sb.WriteByte(']')
	sb.WriteString(t.shape.String())
	return sb.String()
}

var kernelConfig = parallel.DefaultConfig()

// SetParallelConfig changes how element-wise kernels split their loops.
// It must not be called while kernels are running.
func SetParallelConfig(cfg parallel.Config) {
	kernelConfig = cfg
}
