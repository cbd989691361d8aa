// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides reverse-mode automatic differentiation.
//
// A Backend computes forward values and, while its tape records, registers
// one backward step per operation. Backward walks the steps reachable from a
// root and accumulates the gradient of every tracked input.
//
// Example:
//
//	import (
//	    "github.com/born-ml/autograph/autodiff"
//	    "github.com/born-ml/autograph/tensor"
//	)
//
//	func main() {
//	    b := autodiff.New()
//	    b.Tape().StartRecording()
//
//	    x := b.Variable(tensor.Vector(1, 2, 3))
//	    loss := b.Sum(b.Mul(x, x))
//
//	    grads := b.Backward(loss)
//	    dx, _ := autodiff.Grad(grads, x) // [2 4 6](3)
//	}
//
// Several goroutines may record into one tape through backends created with
// Fork; each fork is a separate stream.
package autodiff

import (
	"github.com/born-ml/autograph/internal/autodiff"
	"github.com/born-ml/autograph/internal/autodiff/checkpoint"
	"github.com/born-ml/autograph/internal/autodiff/grads"
	"github.com/born-ml/autograph/internal/autodiff/graph"
	"github.com/born-ml/autograph/internal/tensor"
)

// Backend records differentiable operations on a gradient tape.
type Backend = autodiff.Backend

// Tensor is a forward value together with its node in the backward graph.
type Tensor = autodiff.Tensor

// Option configures a Backend.
type Option = autodiff.Option

// GradientTape holds the backward steps recorded by one or more backends.
type GradientTape = autodiff.GradientTape

// PassStats summarizes the last backward pass of a tape.
type PassStats = autodiff.PassStats

// Gradients maps nodes to their accumulated gradient.
type Gradients = grads.Gradients

// Strategy selects how forward values needed by the backward pass are kept.
type Strategy = checkpoint.Strategy

// Checkpointing strategies.
const (
	MemoryBound  = checkpoint.MemoryBound
	ComputeBound = checkpoint.ComputeBound
)

// New creates a backend with its own tape unless WithTape is given.
func New(opts ...Option) *Backend {
	return autodiff.New(opts...)
}

// NewGradientTape creates a new, not recording, gradient tape.
func NewGradientTape() *GradientTape {
	return autodiff.NewGradientTape()
}

// WithTape makes the backend record on tape.
func WithTape(tape *GradientTape) Option { return autodiff.WithTape(tape) }

// WithStrategy sets the checkpointing strategy.
func WithStrategy(s Strategy) Option { return autodiff.WithStrategy(s) }

// WithStream makes the backend record on the given stream.
func WithStream(s graph.StreamID) Option { return autodiff.WithStream(s) }

// Grad returns the gradient computed for t, if any.
func Grad(g *Gradients, t *Tensor) (*tensor.Tensor, bool) {
	return autodiff.Grad(g, t)
}
