// Package ops defines the backward steps of every differentiable operation.
//
// Each step satisfies graph.Step. A step is built during the forward pass,
// together with the checkpoints it will need, and executed once during the
// backward pass:
//   - AddStep: d(a+b)/da = 1, d(a+b)/db = 1
//   - SubStep: d(a-b)/da = 1, d(a-b)/db = -1
//   - MulStep: d(a*b)/da = b, d(a*b)/db = a
//   - DivStep: d(a/b)/da = 1/b, d(a/b)/db = -a/b²
//   - NegStep, ExpStep, LogStep, ReLUStep, SigmoidStep, TanhStep: unary element-wise
//   - SumStep: reduction to a scalar
package ops

import (
	"github.com/born-ml/autograph/internal/autodiff/checkpoint"
	"github.com/born-ml/autograph/internal/autodiff/graph"
	"github.com/born-ml/autograph/internal/tensor"
)

// Input is one operand of an operation as seen by the forward pass.
type Input struct {
	Node  *graph.Node
	Value *tensor.Tensor
}

// tracked returns n if a gradient must flow into it, nil otherwise.
func tracked(n *graph.Node) *graph.Node {
	if n == nil || n.Requirement.IsNone() {
		return nil
	}
	return n
}

// States saves the forward values steps will retrieve during backward.
type States struct {
	Checkpointer *checkpoint.Checkpointer
	Strategy     checkpoint.Strategy
}

func (s States) save(in Input) {
	s.Checkpointer.Checkpoint(in.Node.ID, in.Value)
}

// saveOutput keeps the output of a unary element-wise op: as-is when memory
// bound, or as a recomputation from the input value when compute bound.
func (s States) saveOutput(out, in Input, forward func(*tensor.Tensor) *tensor.Tensor) {
	if s.Strategy != checkpoint.ComputeBound {
		s.save(out)
		return
	}
	x := in.Value
	s.Checkpointer.RegisterRetroForward(out.Node.ID, func(*checkpoint.Checkpointer) *tensor.Tensor {
		return forward(x)
	})
}

// base implements the read-only part of graph.Step from the step's node.
type base struct {
	node *graph.Node
}

// Node returns the id of the node this step differentiates.
func (b base) Node() graph.NodeID { return b.node.ID }

// Parents returns the tracked inputs of the node.
func (b base) Parents() []graph.NodeID { return b.node.ParentIDs() }

// ParentStreams returns the stream of each tracked input.
func (b base) ParentStreams() []graph.StreamID { return b.node.ParentStreams() }

// Depth returns the order of the node.
func (b base) Depth() int { return b.node.Order }

// Compile-time checks.
var (
	_ graph.Step = (*AddStep)(nil)
	_ graph.Step = (*SubStep)(nil)
	_ graph.Step = (*MulStep)(nil)
	_ graph.Step = (*DivStep)(nil)
	_ graph.Step = (*NegStep)(nil)
	_ graph.Step = (*ExpStep)(nil)
	_ graph.Step = (*LogStep)(nil)
	_ graph.Step = (*ReLUStep)(nil)
	_ graph.Step = (*SigmoidStep)(nil)
	_ graph.Step = (*TanhStep)(nil)
	_ graph.Step = (*SumStep)(nil)
)
