package ops

import "github.com/born-ml/autograph/internal/autodiff/graph"

// AddStep is the backward step of output = a + b.
//
// Backward pass:
//   - grad_a = grad
//   - grad_b = grad
type AddStep struct {
	base
	lhs, rhs *graph.Node
}

// NewAdd creates the step of node = a + b.
func NewAdd(node, a, b *graph.Node) *AddStep {
	return &AddStep{base: base{node}, lhs: tracked(a), rhs: tracked(b)}
}

// Execute propagates the output gradient unchanged to both inputs.
func (s *AddStep) Execute(grads graph.Gradients, _ graph.Checkpointer) {
	grad := grads.Consume(s.node)
	if s.lhs != nil {
		grads.Register(s.lhs.ID, grad)
	}
	if s.rhs != nil {
		grads.Register(s.rhs.ID, grad)
	}
}

// SubStep is the backward step of output = a - b.
//
// Backward pass:
//   - grad_a = grad
//   - grad_b = -grad
type SubStep struct {
	base
	lhs, rhs *graph.Node
}

// NewSub creates the step of node = a - b.
func NewSub(node, a, b *graph.Node) *SubStep {
	return &SubStep{base: base{node}, lhs: tracked(a), rhs: tracked(b)}
}

// Execute propagates grad to a and -grad to b.
func (s *SubStep) Execute(grads graph.Gradients, _ graph.Checkpointer) {
	grad := grads.Consume(s.node)
	if s.lhs != nil {
		grads.Register(s.lhs.ID, grad)
	}
	if s.rhs != nil {
		grads.Register(s.rhs.ID, grad.Neg())
	}
}

// NegStep is the backward step of output = -x.
type NegStep struct {
	base
	input *graph.Node
}

// NewNeg creates the step of node = -x.
func NewNeg(node, x *graph.Node) *NegStep {
	return &NegStep{base: base{node}, input: x}
}

// Execute propagates -grad.
func (s *NegStep) Execute(grads graph.Gradients, _ graph.Checkpointer) {
	grads.Register(s.input.ID, grads.Consume(s.node).Neg())
}
