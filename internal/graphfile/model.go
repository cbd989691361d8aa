package graphfile

import (
	"github.com/born-ml/autograph/internal/autodiff"
	"github.com/born-ml/autograph/internal/tensor"
	"github.com/hashicorp/hcl/v2"
)

// Leaf is a variable or constant block.
type Leaf struct {
	Name string
	// Variable is true for variable blocks, whose gradient is reported.
	Variable bool
	Value    *tensor.Tensor
	Stream   string
	Range    hcl.Range
}

// Op is an op block.
type Op struct {
	Name   string
	Kind   string
	Inputs []string
	Stream string
	Range  hcl.Range
}

// File is a decoded graph description.
type File struct {
	Root      string
	RootRange hcl.Range
	Leaves    []*Leaf
	Ops       []*Op
}

// opKind describes how an op kind is applied and how its output shape follows
// from its inputs.
type opKind struct {
	arity int
	apply func(b *autodiff.Backend, in []*autodiff.Tensor) *autodiff.Tensor
	// shape returns the output shape; ok is false if the inputs do not fit.
	shape func(in []tensor.Shape) (out tensor.Shape, ok bool)
}

func sameShape(in []tensor.Shape) (tensor.Shape, bool) {
	for _, s := range in[1:] {
		if !s.Equal(in[0]) {
			return nil, false
		}
	}
	return in[0], true
}

func scalarShape([]tensor.Shape) (tensor.Shape, bool) {
	return tensor.Shape{}, true
}

func binary(fn func(b *autodiff.Backend, x, y *autodiff.Tensor) *autodiff.Tensor) opKind {
	return opKind{
		arity: 2,
		apply: func(b *autodiff.Backend, in []*autodiff.Tensor) *autodiff.Tensor { return fn(b, in[0], in[1]) },
		shape: sameShape,
	}
}

func unary(fn func(b *autodiff.Backend, x *autodiff.Tensor) *autodiff.Tensor) opKind {
	return opKind{
		arity: 1,
		apply: func(b *autodiff.Backend, in []*autodiff.Tensor) *autodiff.Tensor { return fn(b, in[0]) },
		shape: sameShape,
	}
}

var opKinds = map[string]opKind{
	"add":     binary((*autodiff.Backend).Add),
	"sub":     binary((*autodiff.Backend).Sub),
	"mul":     binary((*autodiff.Backend).Mul),
	"div":     binary((*autodiff.Backend).Div),
	"neg":     unary((*autodiff.Backend).Neg),
	"exp":     unary((*autodiff.Backend).Exp),
	"log":     unary((*autodiff.Backend).Log),
	"relu":    unary((*autodiff.Backend).ReLU),
	"sigmoid": unary((*autodiff.Backend).Sigmoid),
	"tanh":    unary((*autodiff.Backend).Tanh),
	"sum": {
		arity: 1,
		apply: func(b *autodiff.Backend, in []*autodiff.Tensor) *autodiff.Tensor { return b.Sum(in[0]) },
		shape: scalarShape,
	},
}
