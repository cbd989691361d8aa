// Package grads accumulates the gradients propagated by backward steps.
package grads

import (
	"slices"

	"github.com/born-ml/autograph/internal/autodiff/graph"
	"github.com/born-ml/autograph/internal/tensor"
	"github.com/gomlx/exceptions"
)

// Gradients maps node ids to their accumulated gradient.
//
// Gradients is used by a single backward pass and is not safe for concurrent use.
type Gradients struct {
	container map[graph.NodeID]*tensor.Tensor
}

// New creates the gradients of a backward pass seeded with the gradient of the root.
func New(root *graph.Node, seed *tensor.Tensor) *Gradients {
	g := &Gradients{container: make(map[graph.NodeID]*tensor.Tensor)}
	g.Register(root.ID, seed)
	return g
}

// Consume returns the gradient of node for its step to propagate.
//
// Leaves marked graph.Grad keep their entry so the caller can read it after the
// pass; intermediates lose it since nothing reads it again.
func (g *Gradients) Consume(node *graph.Node) *tensor.Tensor {
	var (
		grad  *tensor.Tensor
		found bool
	)
	switch node.Requirement {
	case graph.Grad:
		grad, found = g.Get(node.ID)
	case graph.GradInBackward:
		grad, found = g.Remove(node.ID)
	default:
		exceptions.Panicf("grads: consuming the gradient of untracked %s", node.ID)
	}
	if !found {
		exceptions.Panicf("grads: consuming %s before any gradient was registered for it", node.ID)
	}
	return grad
}

// Register adds grad to the gradient accumulated for id.
func (g *Gradients) Register(id graph.NodeID, grad *tensor.Tensor) {
	if existing, found := g.container[id]; found {
		g.container[id] = existing.Add(grad)
		return
	}
	g.container[id] = grad
}

// Get returns the gradient of id, if any.
func (g *Gradients) Get(id graph.NodeID) (*tensor.Tensor, bool) {
	grad, found := g.container[id]
	return grad, found
}

// Remove takes the gradient of id out of the container.
func (g *Gradients) Remove(id graph.NodeID) (*tensor.Tensor, bool) {
	grad, found := g.container[id]
	if found {
		delete(g.container, id)
	}
	return grad, found
}

// Len returns how many gradients are held.
func (g *Gradients) Len() int { return len(g.container) }

// IDs returns the ids holding a gradient, ascending.
func (g *Gradients) IDs() []graph.NodeID {
	ids := make([]graph.NodeID, 0, len(g.container))
	for id := range g.container {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
