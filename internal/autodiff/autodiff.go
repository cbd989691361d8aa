// Package autodiff implements reverse-mode automatic differentiation over a
// backward graph.
//
// A Backend computes forward values on one stream and, while its tape is
// recording, registers a backward step for every tracked output. Backends
// forked from one another share the tape, so a graph can be assembled by
// several goroutines, each on its own stream.
//
// Usage:
//
//	b := autodiff.New()
//	b.Tape().StartRecording()
//	x := b.Variable(tensor.Vector(2))
//	y := b.Mul(x, x) // y = x²
//	g := b.Backward(y)
//	grad, _ := autodiff.Grad(g, x) // dy/dx = 2x = 4
package autodiff

import (
	"github.com/born-ml/autograph/internal/autodiff/checkpoint"
	"github.com/born-ml/autograph/internal/autodiff/grads"
	"github.com/born-ml/autograph/internal/autodiff/graph"
	"github.com/born-ml/autograph/internal/autodiff/ops"
	"github.com/born-ml/autograph/internal/tensor"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// Tensor is a forward value together with its node in the backward graph.
type Tensor struct {
	Value *tensor.Tensor
	Node  *graph.Node
}

// Requirement returns whether a gradient flows through t.
func (t *Tensor) Requirement() graph.Requirement { return t.Node.Requirement }

// Backend records differentiable operations of one stream on a GradientTape.
type Backend struct {
	tape     *GradientTape
	stream   graph.StreamID
	strategy checkpoint.Strategy
}

// Option configures a Backend.
type Option func(*Backend)

// WithTape makes the backend record on tape instead of a fresh one.
func WithTape(tape *GradientTape) Option {
	return func(b *Backend) { b.tape = tape }
}

// WithStrategy selects how forward states are kept for the backward pass.
func WithStrategy(s checkpoint.Strategy) Option {
	return func(b *Backend) { b.strategy = s }
}

// WithStream sets the stream id instead of generating one.
func WithStream(s graph.StreamID) Option {
	return func(b *Backend) { b.stream = s }
}

// New creates a Backend on a new stream.
func New(opts ...Option) *Backend {
	b := &Backend{stream: graph.NewStreamID()}
	for _, opt := range opts {
		opt(b)
	}
	if b.tape == nil {
		b.tape = NewGradientTape()
	}
	return b
}

// Fork returns a Backend on a new stream sharing the tape and strategy of b.
func (b *Backend) Fork() *Backend {
	return &Backend{tape: b.tape, stream: graph.NewStreamID(), strategy: b.strategy}
}

// Tape returns the gradient tape for manual control.
func (b *Backend) Tape() *GradientTape { return b.tape }

// Stream returns the stream operations of b are recorded on.
func (b *Backend) Stream() graph.StreamID { return b.stream }

// Strategy returns the checkpointing strategy.
func (b *Backend) Strategy() checkpoint.Strategy { return b.strategy }

// Variable wraps value as a leaf whose gradient is wanted.
func (b *Backend) Variable(value *tensor.Tensor) *Tensor {
	return &Tensor{Value: value, Node: graph.NewLeaf(graph.Grad, b.stream)}
}

// Constant wraps value as a leaf no gradient flows into.
func (b *Backend) Constant(value *tensor.Tensor) *Tensor {
	return &Tensor{Value: value, Node: graph.NewLeaf(graph.None, b.stream)}
}

func (b *Backend) states() ops.States {
	return ops.States{Checkpointer: b.tape.Checkpointer(), Strategy: b.strategy}
}

// record wraps value as the output of an operation over inputs and, if it
// needs a gradient and the tape records, registers the step built by build.
func (b *Backend) record(value *tensor.Tensor, build func(out ops.Input) graph.Step, inputs ...*Tensor) *Tensor {
	nodes := make([]*graph.Node, len(inputs))
	for i, in := range inputs {
		nodes[i] = in.Node
	}
	out := &Tensor{Value: value, Node: graph.NewNode(b.stream, nodes...)}
	if out.Node.Requirement.IsNone() {
		return out
	}
	if !b.tape.IsRecording() {
		out.Node.Requirement = graph.None
		out.Node.Parents = nil
		return out
	}
	step := build(ops.Input{Node: out.Node, Value: value})
	if err := b.tape.Record(b.stream, step); err != nil {
		// Node ids are unique, so this is a broken invariant, not a user error.
		panic(err)
	}
	return out
}

func input(t *Tensor) ops.Input {
	return ops.Input{Node: t.Node, Value: t.Value}
}

// Add returns x + y.
func (b *Backend) Add(x, y *Tensor) *Tensor {
	return b.record(x.Value.Add(y.Value), func(out ops.Input) graph.Step {
		return ops.NewAdd(out.Node, x.Node, y.Node)
	}, x, y)
}

// Sub returns x - y.
func (b *Backend) Sub(x, y *Tensor) *Tensor {
	return b.record(x.Value.Sub(y.Value), func(out ops.Input) graph.Step {
		return ops.NewSub(out.Node, x.Node, y.Node)
	}, x, y)
}

// Mul returns the element-wise product x * y.
func (b *Backend) Mul(x, y *Tensor) *Tensor {
	return b.record(x.Value.Mul(y.Value), func(out ops.Input) graph.Step {
		return ops.NewMul(out.Node, input(x), input(y), b.states())
	}, x, y)
}

// Div returns the element-wise quotient x / y.
func (b *Backend) Div(x, y *Tensor) *Tensor {
	return b.record(x.Value.Div(y.Value), func(out ops.Input) graph.Step {
		return ops.NewDiv(out.Node, input(x), input(y), b.states())
	}, x, y)
}

// Neg returns -x.
func (b *Backend) Neg(x *Tensor) *Tensor {
	return b.record(x.Value.Neg(), func(out ops.Input) graph.Step {
		return ops.NewNeg(out.Node, x.Node)
	}, x)
}

// Exp returns e^x.
func (b *Backend) Exp(x *Tensor) *Tensor {
	return b.record(x.Value.Exp(), func(out ops.Input) graph.Step {
		return ops.NewExp(out, input(x), b.states())
	}, x)
}

// Log returns ln(x).
func (b *Backend) Log(x *Tensor) *Tensor {
	return b.record(x.Value.Log(), func(out ops.Input) graph.Step {
		return ops.NewLog(out, input(x), b.states())
	}, x)
}

// ReLU returns max(x, 0).
func (b *Backend) ReLU(x *Tensor) *Tensor {
	return b.record(x.Value.ReLU(), func(out ops.Input) graph.Step {
		return ops.NewReLU(out, input(x), b.states())
	}, x)
}

// Sigmoid returns 1 / (1 + e^-x).
func (b *Backend) Sigmoid(x *Tensor) *Tensor {
	return b.record(x.Value.Sigmoid(), func(out ops.Input) graph.Step {
		return ops.NewSigmoid(out, input(x), b.states())
	}, x)
}

// Tanh returns tanh(x).
func (b *Backend) Tanh(x *Tensor) *Tensor {
	return b.record(x.Value.Tanh(), func(out ops.Input) graph.Step {
		return ops.NewTanh(out, input(x), b.states())
	}, x)
}

// Sum reduces x to a scalar.
func (b *Backend) Sum(x *Tensor) *Tensor {
	return b.record(x.Value.Sum(), func(out ops.Input) graph.Step {
		return ops.NewSum(out.Node, input(x))
	}, x)
}

// Backward computes the gradients of root with respect to every tracked
// tensor it depends on, seeding root's gradient with ones.
//
// It panics if root is untracked or a step fails; see TryBackward.
func (b *Backend) Backward(root *Tensor) *grads.Gradients {
	if root.Node.Requirement.IsNone() {
		exceptions.Panicf("autodiff: backward from untracked %s (was the tape recording?)", root.Node.ID)
	}
	return b.tape.Backward(root.Node, tensor.Ones(root.Value.Shape()))
}

// TryBackward is Backward returning failures as errors.
func (b *Backend) TryBackward(root *Tensor) (g *grads.Gradients, err error) {
	exception := exceptions.Try(func() { g = b.Backward(root) })
	if exception == nil {
		return g, nil
	}
	if e, ok := exception.(error); ok {
		return nil, errors.WithMessage(e, "autodiff: backward failed")
	}
	return nil, errors.Errorf("autodiff: backward failed: %v", exception)
}

// Grad returns the gradient of t held in g.
func Grad(g *grads.Gradients, t *Tensor) (*tensor.Tensor, bool) {
	return g.Get(t.Node.ID)
}
