package tensor

import (
	"math"

	"github.com/born-ml/autograph/internal/parallel"
	"github.com/gomlx/exceptions"
)

// Map applies fn to every element.
func (t *Tensor) Map(fn func(x float64) float64) *Tensor {
	out := make([]float64, len(t.data))
	parallel.For(len(out), kernelConfig, func(i int) {
		out[i] = fn(t.data[i])
	})
	return &Tensor{shape: t.shape.Clone(), data: out}
}

// Zip combines two same-shaped tensors element by element.
// It panics if the shapes differ.
func (t *Tensor) Zip(other *Tensor, fn func(a, b float64) float64) *Tensor {
	if !t.shape.Equal(other.shape) {
		exceptions.Panicf("tensor: shape mismatch %s vs %s", t.shape, other.shape)
	}
	out := make([]float64, len(t.data))
	parallel.For(len(out), kernelConfig, func(i int) {
		out[i] = fn(t.data[i], other.data[i])
	})
	return &Tensor{shape: t.shape.Clone(), data: out}
}

// Add returns t + other.
func (t *Tensor) Add(other *Tensor) *Tensor {
	return t.Zip(other, func(a, b float64) float64 { return a + b })
}

// Sub returns t - other.
func (t *Tensor) Sub(other *Tensor) *Tensor {
	return t.Zip(other, func(a, b float64) float64 { return a - b })
}

// Mul returns the element-wise product.
func (t *Tensor) Mul(other *Tensor) *Tensor {
	return t.Zip(other, func(a, b float64) float64 { return a * b })
}

// Div returns the element-wise quotient.
func (t *Tensor) Div(other *Tensor) *Tensor {
	return t.Zip(other, func(a, b float64) float64 { return a / b })
}

// Neg returns -t.
func (t *Tensor) Neg() *Tensor {
	return t.Map(func(x float64) float64 { return -x })
}

// Scale multiplies every element by f.
func (t *Tensor) Scale(f float64) *Tensor {
	return t.Map(func(x float64) float64 { return x * f })
}

// Exp returns e^t.
func (t *Tensor) Exp() *Tensor { return t.Map(math.Exp) }

// Log returns the natural logarithm of t.
func (t *Tensor) Log() *Tensor { return t.Map(math.Log) }

// Tanh returns tanh(t).
func (t *Tensor) Tanh() *Tensor { return t.Map(math.Tanh) }

// ReLU returns max(t, 0).
func (t *Tensor) ReLU() *Tensor {
	return t.Map(func(x float64) float64 { return max(x, 0) })
}

// Sigmoid returns 1 / (1 + e^-t).
func (t *Tensor) Sigmoid() *Tensor {
	return t.Map(func(x float64) float64 { return 1 / (1 + math.Exp(-x)) })
}

// Sum reduces all elements to a scalar.
func (t *Tensor) Sum() *Tensor {
	var s float64
	for _, v := range t.data {
		s += v
	}
	return Scalar(s)
}
