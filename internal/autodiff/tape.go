package autodiff

import (
	"sync"

	"github.com/born-ml/autograph/internal/autodiff/checkpoint"
	"github.com/born-ml/autograph/internal/autodiff/grads"
	"github.com/born-ml/autograph/internal/autodiff/graph"
	"github.com/born-ml/autograph/internal/tensor"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// GradientTape records backward steps during the forward pass and runs them
// during the backward pass.
//
// Each stream records into its own graph.Registry, so several Backends, one
// per stream, may record concurrently. A backward pass merges the pending
// steps of every stream into one registry, walks it from the root, and hands
// the unreachable steps back to the streams that recorded them.
//
// Usage:
//
//	tape := NewGradientTape()
//	tape.StartRecording()
//	// ... perform operations on backends sharing the tape ...
//	gradients := tape.Backward(root, seed)
type GradientTape struct {
	mu        sync.Mutex
	recording bool
	streams   map[graph.StreamID]*graph.Registry // Pending steps of each stream.
	owner     map[graph.NodeID]graph.StreamID    // Stream that recorded each pending step.
	ckpt      *checkpoint.Checkpointer
	visitHook func(id graph.NodeID, depth int)
	lastPass  PassStats
}

// PassStats summarizes one backward pass.
type PassStats struct {
	Root             graph.NodeID
	Executed         int // Steps executed, root included.
	Levels           int // Distinct depths executed.
	CrossStreamEdges int // Edges whose parent was recorded on another stream.
	Remaining        int // Steps left on the tape, unreachable from the root.
}

// visit is one traversal callback, replayed to the visit hook after the pass.
type visit struct {
	id    graph.NodeID
	depth int
}

// NewGradientTape creates a new, not recording, gradient tape.
func NewGradientTape() *GradientTape {
	return &GradientTape{
		streams: make(map[graph.StreamID]*graph.Registry),
		owner:   make(map[graph.NodeID]graph.StreamID),
		ckpt:    checkpoint.New(),
	}
}

// StartRecording enables step recording.
func (t *GradientTape) StartRecording() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recording = true
}

// StopRecording disables step recording.
func (t *GradientTape) StopRecording() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recording = false
}

// IsRecording returns true if the tape is currently recording.
func (t *GradientTape) IsRecording() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.recording
}

// Record adds the step recorded by stream.
// A node has at most one pending step across all streams.
func (t *GradientTape) Record(stream graph.StreamID, step graph.Step) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := step.Node()
	if other, found := t.owner[id]; found && other != stream {
		return errors.Errorf("recording on stream %s: %s already has a step on stream %s", stream, id, other)
	}
	if err := t.registry(stream).Register(step); err != nil {
		return errors.WithMessagef(err, "recording on stream %s", stream)
	}
	t.owner[id] = stream
	return nil
}

// registry returns the registry of stream, creating it if needed.
func (t *GradientTape) registry(stream graph.StreamID) *graph.Registry {
	r, found := t.streams[stream]
	if !found {
		r = graph.NewRegistry()
		t.streams[stream] = r
	}
	return r
}

// NumOps returns the number of pending steps.
func (t *GradientTape) NumOps() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.numOps()
}

func (t *GradientTape) numOps() int {
	n := 0
	for _, r := range t.streams {
		n += r.Len()
	}
	return n
}

// Streams returns the number of pending steps per recording stream.
// Streams without pending steps are omitted.
func (t *GradientTape) Streams() map[graph.StreamID]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	counts := make(map[graph.StreamID]int, len(t.streams))
	for stream, r := range t.streams {
		if n := r.Len(); n > 0 {
			counts[stream] = n
		}
	}
	return counts
}

// Checkpointer returns the forward states saved for the pending steps.
func (t *GradientTape) Checkpointer() *checkpoint.Checkpointer {
	return t.ckpt
}

// SetVisitHook installs fn to be called for every step a backward pass
// visited, in traversal order. Calls happen once the pass has completed and
// released the tape, so fn may use the tape. A pass that panics calls nothing.
// A nil fn removes the hook.
func (t *GradientTape) SetVisitHook(fn func(id graph.NodeID, depth int)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.visitHook = fn
}

// LastPass returns the statistics of the latest completed backward pass.
func (t *GradientTape) LastPass() PassStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastPass
}

// Clear drops every pending step and saved state.
// Recording state is preserved.
func (t *GradientTape) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range t.streams {
		r.Clear()
	}
	clear(t.owner)
	t.ckpt.Clear()
}

// Backward runs the backward pass from root, whose gradient is seed.
//
// Algorithm:
//  1. Merge the pending steps of every stream into one registry
//  2. Take the root step out of it (a root without step is a leaf: its
//     gradient is the seed and nothing else happens)
//  3. Traverse the graph from the root, bucketing every reachable step by
//     depth, and give the unreachable steps back to their streams
//  4. Execute the buckets deepest first, so a node's consumers have all
//     registered their contribution before its own step consumes it
//
// Every reachable step is removed from the tape, even if a step panics; steps
// unreachable from root stay for a later pass. Two streams holding a step for
// the same node make Backward panic with an error before anything runs.
func (t *GradientTape) Backward(root *graph.Node, seed *tensor.Tensor) *grads.Gradients {
	g, visits, hook := t.backward(root, seed)
	for _, v := range visits {
		hook(v.id, v.depth)
	}
	return g
}

// backward runs the pass under the tape lock and returns the visits to replay
// to hook, if one is installed.
func (t *GradientTape) backward(root *graph.Node, seed *tensor.Tensor) (*grads.Gradients, []visit, func(graph.NodeID, int)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Stop recording during backward pass so nothing is recorded by accident.
	wasRecording := t.recording
	t.recording = false
	defer func() {
		t.recording = wasRecording
	}()

	steps, err := t.gather()
	if err != nil {
		t.scatter(steps)
		panic(errors.WithMessage(err, "backward: merging stream steps"))
	}

	g := grads.New(root, seed)
	hook := t.visitHook
	rootStep, found := steps.Take(root.ID)
	if !found {
		t.scatter(steps)
		klog.V(1).Infof("backward: %s has no step, nothing to propagate", root.ID)
		t.lastPass = PassStats{Root: root.ID, Remaining: t.numOps()}
		return g, nil, hook
	}

	stats := PassStats{Root: root.ID}
	var visits []visit
	levels := make([][]graph.Step, rootStep.Depth()+1)
	graph.BreadthFirstSearch{}.Traverse(root.ID, rootStep, steps, func(id graph.NodeID, step graph.Step) {
		depth := step.Depth()
		for depth >= len(levels) {
			levels = append(levels, nil)
		}
		levels[depth] = append(levels[depth], step)
		stats.CrossStreamEdges += t.release(id, step)
		if hook != nil {
			visits = append(visits, visit{id, depth})
		}
	})
	t.scatter(steps)

	for depth := len(levels) - 1; depth >= 0; depth-- {
		if len(levels[depth]) == 0 {
			continue
		}
		stats.Levels++
		for _, step := range levels[depth] {
			klog.V(2).Infof("backward: executing %s (depth %d)", step.Node(), depth)
			step.Execute(g, t.ckpt)
			stats.Executed++
		}
	}

	stats.Remaining = t.numOps()
	t.lastPass = stats
	klog.V(1).Infof("backward: root %s executed %d steps over %d levels, %d cross-stream edges, %d steps left",
		root.ID, stats.Executed, stats.Levels, stats.CrossStreamEdges, stats.Remaining)
	return g, visits, hook
}

// gather moves the pending steps of every stream into a new registry. On a
// duplicate the steps merged so far are returned with the error.
func (t *GradientTape) gather() (*graph.Registry, error) {
	steps := graph.NewRegistry()
	for stream, r := range t.streams {
		if err := steps.Merge(r); err != nil {
			return steps, errors.WithMessagef(err, "stream %s", stream)
		}
	}
	return steps, nil
}

// scatter gives the steps left in steps back to the streams that recorded them.
func (t *GradientTape) scatter(steps *graph.Registry) {
	for _, id := range steps.IDs() {
		step, _ := steps.Take(id)
		stream := t.owner[id]
		r := t.registry(stream)
		if r.Contains(id) {
			klog.Warningf("backward: dropping %s, stream %s already holds a step for it", id, stream)
			continue
		}
		// Cannot fail: the id is absent from r.
		_ = r.Register(step)
	}
}

// release drops the stream bookkeeping of a visited step and returns how many
// of its parents were recorded on another stream.
func (t *GradientTape) release(id graph.NodeID, step graph.Step) int {
	stream, found := t.owner[id]
	if !found {
		return 0
	}
	delete(t.owner, id)
	cross := 0
	for _, ps := range step.ParentStreams() {
		if ps != stream {
			cross++
		}
	}
	return cross
}
