// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the dense float64 tensors gradients are computed on.
//
// Tensors are immutable: every operation returns a new tensor.
//
//	x := tensor.Vector(1, 2, 3)
//	m, err := tensor.FromSlice([]float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
package tensor

import (
	"github.com/born-ml/autograph/internal/tensor"
)

// Tensor is an immutable dense float64 tensor.
type Tensor = tensor.Tensor

// Shape is the size of each dimension; an empty shape is a scalar.
type Shape = tensor.Shape

// FromSlice creates a tensor of the given shape holding a copy of data.
func FromSlice(data []float64, shape Shape) (*Tensor, error) {
	return tensor.FromSlice(data, shape)
}

// Vector creates a 1-D tensor.
func Vector(values ...float64) *Tensor { return tensor.Vector(values...) }

// Scalar creates a 0-D tensor.
func Scalar(v float64) *Tensor { return tensor.Scalar(v) }

// Full creates a tensor of the given shape filled with v.
func Full(shape Shape, v float64) *Tensor { return tensor.Full(shape, v) }

// Zeros creates a tensor of zeros.
func Zeros(shape Shape) *Tensor { return tensor.Zeros(shape) }

// Ones creates a tensor of ones.
func Ones(shape Shape) *Tensor { return tensor.Ones(shape) }
