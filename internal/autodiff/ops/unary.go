package ops

import (
	"github.com/born-ml/autograph/internal/autodiff/graph"
	"github.com/born-ml/autograph/internal/tensor"
)

// ExpStep is the backward step of y = exp(x).
//
// Backward pass:
//   - d(exp(x))/dx = exp(x) = y
//   - grad_x = grad * y
type ExpStep struct {
	base
	input *graph.Node
}

// NewExp creates the step of y = exp(x). The output is kept as state.
func NewExp(out, x Input, states States) *ExpStep {
	states.saveOutput(out, x, (*tensor.Tensor).Exp)
	return &ExpStep{base: base{out.Node}, input: x.Node}
}

// Execute propagates grad * y.
func (s *ExpStep) Execute(grads graph.Gradients, ckpt graph.Checkpointer) {
	grad := grads.Consume(s.node)
	grads.Register(s.input.ID, grad.Mul(ckpt.Retrieve(s.node.ID)))
}

// LogStep is the backward step of y = ln(x): grad_x = grad / x.
type LogStep struct {
	base
	input *graph.Node
}

// NewLog creates the step of y = ln(x). The input is kept as state.
func NewLog(out, x Input, states States) *LogStep {
	states.save(x)
	return &LogStep{base: base{out.Node}, input: x.Node}
}

// Execute propagates grad / x.
func (s *LogStep) Execute(grads graph.Gradients, ckpt graph.Checkpointer) {
	grad := grads.Consume(s.node)
	grads.Register(s.input.ID, grad.Div(ckpt.Retrieve(s.input.ID)))
}

// ReLUStep is the backward step of y = max(x, 0).
//
// The gradient passes where x > 0 and is zero elsewhere, including x == 0.
type ReLUStep struct {
	base
	input *graph.Node
}

// NewReLU creates the step of y = max(x, 0). The input is kept as state.
func NewReLU(out, x Input, states States) *ReLUStep {
	states.save(x)
	return &ReLUStep{base: base{out.Node}, input: x.Node}
}

// Execute masks grad with x > 0.
func (s *ReLUStep) Execute(grads graph.Gradients, ckpt graph.Checkpointer) {
	grad := grads.Consume(s.node)
	x := ckpt.Retrieve(s.input.ID)
	grads.Register(s.input.ID, grad.Zip(x, func(g, v float64) float64 {
		if v > 0 {
			return g
		}
		return 0
	}))
}

// SigmoidStep is the backward step of y = σ(x) = 1 / (1 + exp(-x)).
//
// Since dσ/dx = σ(x) * (1 - σ(x)) the output is all that is needed:
// grad_x = grad * y * (1 - y).
type SigmoidStep struct {
	base
	input *graph.Node
}

// NewSigmoid creates the step of y = σ(x). The output is kept as state.
func NewSigmoid(out, x Input, states States) *SigmoidStep {
	states.saveOutput(out, x, (*tensor.Tensor).Sigmoid)
	return &SigmoidStep{base: base{out.Node}, input: x.Node}
}

// Execute propagates grad * y * (1 - y).
func (s *SigmoidStep) Execute(grads graph.Gradients, ckpt graph.Checkpointer) {
	grad := grads.Consume(s.node)
	y := ckpt.Retrieve(s.node.ID)
	grads.Register(s.input.ID, grad.Zip(y, func(g, v float64) float64 {
		return g * v * (1 - v)
	}))
}

// TanhStep is the backward step of y = tanh(x): grad_x = grad * (1 - y²).
type TanhStep struct {
	base
	input *graph.Node
}

// NewTanh creates the step of y = tanh(x). The output is kept as state.
func NewTanh(out, x Input, states States) *TanhStep {
	states.saveOutput(out, x, (*tensor.Tensor).Tanh)
	return &TanhStep{base: base{out.Node}, input: x.Node}
}

// Execute propagates grad * (1 - y²).
func (s *TanhStep) Execute(grads graph.Gradients, ckpt graph.Checkpointer) {
	grad := grads.Consume(s.node)
	y := ckpt.Retrieve(s.node.ID)
	grads.Register(s.input.ID, grad.Zip(y, func(g, v float64) float64 {
		return g * (1 - v*v)
	}))
}

// SumStep is the backward step of y = Σx: every element of x receives grad.
type SumStep struct {
	base
	input *graph.Node
	shape tensor.Shape
}

// NewSum creates the step of y = Σx. Only the input shape is kept.
func NewSum(node *graph.Node, x Input) *SumStep {
	return &SumStep{base: base{node}, input: x.Node, shape: x.Value.Shape().Clone()}
}

// Execute broadcasts the scalar grad to the input shape.
func (s *SumStep) Execute(grads graph.Gradients, _ graph.Checkpointer) {
	grad := grads.Consume(s.node)
	grads.Register(s.input.ID, tensor.Ones(s.shape).Scale(grad.Item()))
}
