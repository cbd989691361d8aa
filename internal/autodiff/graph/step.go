package graph

import "github.com/born-ml/autograph/internal/tensor"

// Gradients is the accumulator a step reads its incoming gradient from and
// propagates into. The traversal never calls it.
type Gradients interface {
	// Consume returns the gradient accumulated for node.
	Consume(node *Node) *tensor.Tensor
	// Register adds g to the gradient of id.
	Register(id NodeID, g *tensor.Tensor)
}

// Checkpointer hands out forward values saved (or recomputed) for the backward pass.
type Checkpointer interface {
	Retrieve(id NodeID) *tensor.Tensor
}

// Step is the backward computation of one node.
//
// Execute consumes the step: once a step has been taken out of a Registry and
// executed it must not be used again. Implementations may assume Execute is
// called at most once.
type Step interface {
	// Node is the id of the node this step computes a gradient for.
	Node() NodeID
	// Parents are the nodes this step propagates gradients into.
	Parents() []NodeID
	// ParentStreams gives the stream of each parent, aligned with Parents.
	ParentStreams() []StreamID
	// Depth is the distance of the node from the first leaf of its graph.
	Depth() int
	// Execute computes the local gradient and registers the parent contributions.
	Execute(grads Gradients, ckpt Checkpointer)
}
