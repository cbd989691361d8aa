package graph

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStep records nothing numeric; it only carries the graph shape.
type fakeStep struct {
	id      NodeID
	parents []NodeID
	depth   int
}

func (s *fakeStep) Node() NodeID      { return s.id }
func (s *fakeStep) Parents() []NodeID { return s.parents }
func (s *fakeStep) Depth() int        { return s.depth }

func (s *fakeStep) ParentStreams() []StreamID {
	return make([]StreamID, len(s.parents))
}

func (s *fakeStep) Execute(Gradients, Checkpointer) {}

func step(id NodeID, parents ...NodeID) *fakeStep {
	return &fakeStep{id: id, parents: parents}
}

func registryOf(t *testing.T, steps ...*fakeStep) *Registry {
	t.Helper()
	r := NewRegistry()
	for _, s := range steps {
		require.NoError(t, r.Register(s))
	}
	return r
}

// traverse runs the search and returns the ids in callback order.
func traverse(rootID NodeID, root Step, r *Registry) []NodeID {
	var order []NodeID
	BreadthFirstSearch{}.Traverse(rootID, root, r, func(id NodeID, s Step) {
		if id != s.Node() {
			panic("callback id does not match step node")
		}
		order = append(order, id)
	})
	return order
}

const (
	nodeA NodeID = iota + 1
	nodeB
	nodeC
	nodeD
	nodeZ
)

func TestTraverse_Diamond(t *testing.T) {
	r := registryOf(t,
		step(nodeA),
		step(nodeB, nodeA),
		step(nodeC, nodeA),
	)
	order := traverse(nodeD, step(nodeD, nodeB, nodeC), r)

	// Last-in-first-out: C is discovered last so it is explored first, and A
	// is reached through C before B is popped.
	want := []NodeID{nodeD, nodeC, nodeA, nodeB}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("visit order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 0, r.Len())
}

func TestTraverse_RootFirst(t *testing.T) {
	r := registryOf(t, step(nodeA))
	order := traverse(nodeB, step(nodeB, nodeA), r)
	require.NotEmpty(t, order)
	assert.Equal(t, nodeB, order[0])
}

func TestTraverse_RootWithoutParents(t *testing.T) {
	r := registryOf(t, step(nodeA))
	order := traverse(nodeB, step(nodeB), r)
	assert.Equal(t, []NodeID{nodeB}, order)
	assert.True(t, r.Contains(nodeA), "unreachable step must stay registered")
}

func TestTraverse_MissingParentIsLeaf(t *testing.T) {
	// nodeZ never got a step: it is a leaf input.
	r := registryOf(t, step(nodeA, nodeZ))
	order := traverse(nodeB, step(nodeB, nodeA, nodeZ), r)
	assert.Equal(t, []NodeID{nodeB, nodeA}, order)
	assert.NotContains(t, order, nodeZ)
}

func TestTraverse_DrainLeavesUnreachable(t *testing.T) {
	r := registryOf(t,
		step(nodeA),
		step(nodeB, nodeA),
		step(nodeC, nodeA),
		step(nodeZ),
	)
	order := traverse(nodeD, step(nodeD, nodeB, nodeC), r)

	for _, id := range order {
		assert.False(t, r.Contains(id), "%s was reported but is still registered", id)
	}
	assert.Equal(t, []NodeID{nodeZ}, r.IDs())
}

func TestTraverse_Cycle(t *testing.T) {
	r := registryOf(t,
		step(nodeA, nodeB),
		step(nodeB, nodeA),
	)
	order := traverse(nodeC, step(nodeC, nodeA), r)
	assert.Equal(t, []NodeID{nodeC, nodeA, nodeB}, order)
	assert.Equal(t, 0, r.Len())
}

func TestTraverse_SelfLoop(t *testing.T) {
	r := registryOf(t, step(nodeA, nodeA))
	order := traverse(nodeB, step(nodeB, nodeA), r)
	assert.Equal(t, []NodeID{nodeB, nodeA}, order)
}

func TestTraverse_ParentListedTwice(t *testing.T) {
	r := registryOf(t,
		step(nodeA),
		step(nodeB, nodeA),
	)
	// A is pushed by the root and again by B before it is popped.
	order := traverse(nodeC, step(nodeC, nodeA, nodeB), r)
	assert.Equal(t, []NodeID{nodeC, nodeB, nodeA}, order)
}

func TestTraverse_DoesNotMutateRootParents(t *testing.T) {
	parents := make([]NodeID, 1, 8)
	parents[0] = nodeA
	root := &fakeStep{id: nodeC, parents: parents}
	r := registryOf(t, step(nodeA, nodeB), step(nodeB))

	traverse(nodeC, root, r)
	assert.Equal(t, []NodeID{nodeA}, root.parents)
	assert.Equal(t, []NodeID{nodeA, 0}, parents[:2], "spare capacity must not be written")
}

func TestTraverse_ExactlyOnceOnLayeredGraph(t *testing.T) {
	// Every node of layer k depends on every node of layer k-1.
	const layers, width = 6, 5
	r := NewRegistry()
	var prev []NodeID
	next := NodeID(100)
	for range layers {
		var cur []NodeID
		for range width {
			next++
			require.NoError(t, r.Register(step(next, prev...)))
			cur = append(cur, next)
		}
		prev = cur
	}
	rootID := NodeID(1)
	order := traverse(rootID, step(rootID, prev...), r)

	counts := make(map[NodeID]int)
	for _, id := range order {
		counts[id]++
	}
	assert.Len(t, counts, layers*width+1)
	for id, c := range counts {
		assert.Equalf(t, 1, c, "%s reported %d times", id, c)
	}
	assert.Equal(t, 0, r.Len())
}

type item struct {
	id      NodeID
	parents []NodeID
}

func (i item) Node() NodeID      { return i.id }
func (i item) Parents() []NodeID { return i.parents }

func TestWalk_PlainItems(t *testing.T) {
	items := map[NodeID]item{
		nodeA: {id: nodeA},
		nodeB: {id: nodeB, parents: []NodeID{nodeA}},
	}
	var order []NodeID
	Walk(nodeC, item{id: nodeC, parents: []NodeID{nodeB}}, items, func(id NodeID, _ item) {
		order = append(order, id)
	})
	assert.Equal(t, []NodeID{nodeC, nodeB, nodeA}, order)
	assert.Empty(t, items)
}

func TestWalk_DiscardsAlreadyVisitedNode(t *testing.T) {
	// The entry under B resolves to A, which was already reported: it is
	// removed but not reported again.
	items := map[NodeID]item{
		nodeB: {id: nodeA, parents: []NodeID{nodeC}},
		nodeC: {id: nodeC},
	}
	var order []NodeID
	Walk(nodeA, item{id: nodeA, parents: []NodeID{nodeB}}, items, func(id NodeID, _ item) {
		order = append(order, id)
	})
	assert.Equal(t, []NodeID{nodeA}, order)
	assert.Equal(t, map[NodeID]item{nodeC: {id: nodeC}}, items)
}
