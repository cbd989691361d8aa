package grads

import (
	"testing"

	"github.com/born-ml/autograph/internal/autodiff/graph"
	"github.com/born-ml/autograph/internal/tensor"
	"github.com/gomlx/exceptions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGradients_RegisterAccumulates(t *testing.T) {
	root := graph.NewLeaf(graph.Grad, graph.DefaultStream)
	g := New(root, tensor.Vector(1, 1))
	g.Register(root.ID, tensor.Vector(2, 3))

	got, ok := g.Get(root.ID)
	require.True(t, ok)
	assert.Equal(t, []float64{3, 4}, got.Data())
	assert.Equal(t, 1, g.Len())
}

func TestGradients_ConsumeKeepsLeafGradient(t *testing.T) {
	leaf := graph.NewLeaf(graph.Grad, graph.DefaultStream)
	g := New(leaf, tensor.Scalar(5))

	assert.Equal(t, 5.0, g.Consume(leaf).Item())
	_, ok := g.Get(leaf.ID)
	assert.True(t, ok, "Grad leaves are kept for the caller")
}

func TestGradients_ConsumeDropsIntermediate(t *testing.T) {
	x := graph.NewLeaf(graph.Grad, graph.DefaultStream)
	y := graph.NewNode(graph.DefaultStream, x)
	g := New(y, tensor.Scalar(1))

	assert.Equal(t, 1.0, g.Consume(y).Item())
	_, ok := g.Get(y.ID)
	assert.False(t, ok)
}

func TestGradients_ConsumeErrors(t *testing.T) {
	x := graph.NewLeaf(graph.Grad, graph.DefaultStream)
	untracked := graph.NewLeaf(graph.None, graph.DefaultStream)
	g := New(x, tensor.Scalar(1))

	err := exceptions.TryCatch[error](func() { g.Consume(untracked) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "untracked")

	other := graph.NewNode(graph.DefaultStream, x)
	err = exceptions.TryCatch[error](func() { g.Consume(other) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "before any gradient")
}

func TestGradients_RemoveAndIDs(t *testing.T) {
	a := graph.NewLeaf(graph.Grad, graph.DefaultStream)
	b := graph.NewLeaf(graph.Grad, graph.DefaultStream)
	g := New(b, tensor.Scalar(1))
	g.Register(a.ID, tensor.Scalar(2))
	assert.Equal(t, []graph.NodeID{a.ID, b.ID}, g.IDs())

	removed, ok := g.Remove(a.ID)
	require.True(t, ok)
	assert.Equal(t, 2.0, removed.Item())
	_, ok = g.Remove(a.ID)
	assert.False(t, ok)
	assert.Equal(t, []graph.NodeID{b.ID}, g.IDs())
}
