package ops

import "github.com/born-ml/autograph/internal/autodiff/graph"

// MulStep is the backward step of output = a * b.
//
// Backward pass:
//   - grad_a = grad * b
//   - grad_b = grad * a
//
// Only the operand needed by a tracked side is checkpointed.
type MulStep struct {
	base
	lhs, rhs     *graph.Node
	lhsID, rhsID graph.NodeID // States saved for the other side.
}

// NewMul creates the step of node = a * b and checkpoints the operands it needs.
func NewMul(node *graph.Node, a, b Input, states States) *MulStep {
	s := &MulStep{
		base:  base{node},
		lhs:   tracked(a.Node),
		rhs:   tracked(b.Node),
		lhsID: a.Node.ID,
		rhsID: b.Node.ID,
	}
	if s.lhs != nil {
		states.save(b)
	}
	if s.rhs != nil {
		states.save(a)
	}
	return s
}

// Execute propagates grad*b to a and grad*a to b.
func (s *MulStep) Execute(grads graph.Gradients, ckpt graph.Checkpointer) {
	grad := grads.Consume(s.node)
	if s.lhs != nil {
		grads.Register(s.lhs.ID, grad.Mul(ckpt.Retrieve(s.rhsID)))
	}
	if s.rhs != nil {
		grads.Register(s.rhs.ID, grad.Mul(ckpt.Retrieve(s.lhsID)))
	}
}

// DivStep is the backward step of output = a / b.
//
// Backward pass:
//   - grad_a = grad / b
//   - grad_b = -grad * a / b²
type DivStep struct {
	base
	lhs, rhs     *graph.Node
	lhsID, rhsID graph.NodeID
}

// NewDiv creates the step of node = a / b and checkpoints the operands it needs.
func NewDiv(node *graph.Node, a, b Input, states States) *DivStep {
	s := &DivStep{
		base:  base{node},
		lhs:   tracked(a.Node),
		rhs:   tracked(b.Node),
		lhsID: a.Node.ID,
		rhsID: b.Node.ID,
	}
	// b is needed by both sides but retrieved once.
	states.save(b)
	if s.rhs != nil {
		states.save(a)
	}
	return s
}

// Execute propagates the quotient rule.
func (s *DivStep) Execute(grads graph.Gradients, ckpt graph.Checkpointer) {
	grad := grads.Consume(s.node)
	b := ckpt.Retrieve(s.rhsID)
	if s.lhs != nil {
		grads.Register(s.lhs.ID, grad.Div(b))
	}
	if s.rhs != nil {
		a := ckpt.Retrieve(s.lhsID)
		grads.Register(s.rhs.ID, grad.Mul(a).Div(b.Mul(b)).Neg())
	}
}
