package graph

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewNodeID_Unique(t *testing.T) {
	const n = 1000
	var mu sync.Mutex
	seen := make(map[NodeID]bool, n)
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := NewNodeID()
			mu.Lock()
			defer mu.Unlock()
			seen[id] = true
		}()
	}
	wg.Wait()
	assert.Len(t, seen, n)
}

func TestStreamID(t *testing.T) {
	assert.True(t, DefaultStream.IsDefault())
	assert.Equal(t, "default", DefaultStream.String())

	s1, s2 := NewStreamID(), NewStreamID()
	assert.False(t, s1.IsDefault())
	assert.NotEqual(t, s1, s2)
	assert.Len(t, s1.String(), 8)
}

func TestInferRequirement(t *testing.T) {
	leaf := NewLeaf(Grad, DefaultStream)
	constant := NewLeaf(None, DefaultStream)

	assert.Equal(t, None, InferRequirement())
	assert.Equal(t, None, InferRequirement(constant, nil))
	assert.Equal(t, GradInBackward, InferRequirement(constant, leaf))
}

func TestNewNode(t *testing.T) {
	s1, s2 := NewStreamID(), NewStreamID()
	x := NewLeaf(Grad, s1)
	c := NewLeaf(None, s1)
	y := NewNode(s1, x, c)
	z := NewNode(s2, y, x)

	assert.Equal(t, 1, y.Order)
	assert.Equal(t, 2, z.Order)
	assert.Equal(t, GradInBackward, z.Requirement)

	// The constant does not need a gradient and is not a parent.
	assert.Equal(t, []NodeID{x.ID}, y.ParentIDs())
	assert.Equal(t, []NodeID{y.ID, x.ID}, z.ParentIDs())
	assert.Equal(t, []StreamID{s1, s1}, z.ParentStreams())
	assert.Equal(t, s2, z.Stream)

	untracked := NewNode(s1, c)
	assert.Equal(t, None, untracked.Requirement)
	assert.Empty(t, untracked.Parents)
	assert.Equal(t, 1, untracked.Order)
}

func TestRequirement_String(t *testing.T) {
	assert.Equal(t, "Grad", Grad.String())
	assert.Equal(t, "GradInBackward", GradInBackward.String())
	assert.Equal(t, "None", None.String())
}
