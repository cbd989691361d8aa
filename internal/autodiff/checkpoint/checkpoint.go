// Package checkpoint keeps the forward values backward steps need.
//
// A value is either saved as-is (memory bound) or registered as a
// retro-forward closure that recomputes it on demand (compute bound). Each
// registration accounts for one later retrieval; a state is dropped once all
// of its retrievals happened.
package checkpoint

import (
	"sync"

	"github.com/born-ml/autograph/internal/autodiff/graph"
	"github.com/born-ml/autograph/internal/tensor"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Strategy selects how forward values needed by the backward pass are kept.
type Strategy int

const (
	// MemoryBound saves every needed value.
	MemoryBound Strategy = iota
	// ComputeBound recomputes cheap element-wise outputs from their input.
	ComputeBound
)

// String implements fmt.Stringer.
func (s Strategy) String() string {
	switch s {
	case MemoryBound:
		return "memory"
	case ComputeBound:
		return "compute"
	default:
		return "unknown"
	}
}

// ParseStrategy returns the strategy named by s, as printed by String.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "memory":
		return MemoryBound, nil
	case "compute":
		return ComputeBound, nil
	}
	return MemoryBound, errors.Errorf("checkpoint: unknown strategy %q, want \"memory\" or \"compute\"", s)
}

// RetroForward recomputes a forward value. It may retrieve other states from c.
type RetroForward func(c *Checkpointer) *tensor.Tensor

type state struct {
	value   *tensor.Tensor
	retro   RetroForward
	pending int
}

// Checkpointer holds the forward states of one graph.
// It is safe for concurrent use.
type Checkpointer struct {
	mu     sync.Mutex
	states map[graph.NodeID]*state
}

// New creates an empty Checkpointer.
func New() *Checkpointer {
	return &Checkpointer{states: make(map[graph.NodeID]*state)}
}

// Checkpoint saves value for one retrieval of id.
func (c *Checkpointer) Checkpoint(id graph.NodeID, value *tensor.Tensor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.states[id]
	if s == nil {
		s = &state{}
		c.states[id] = s
	}
	if s.value == nil {
		s.value = value
	}
	s.pending++
}

// RegisterRetroForward registers fn to recompute id for one retrieval.
// A value already saved for id takes precedence over fn.
func (c *Checkpointer) RegisterRetroForward(id graph.NodeID, fn RetroForward) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.states[id]
	if s == nil {
		s = &state{}
		c.states[id] = s
	}
	if s.retro == nil {
		s.retro = fn
	}
	s.pending++
}

// Retrieve returns the state of id, recomputing it if needed.
// It panics if nothing was registered for id.
func (c *Checkpointer) Retrieve(id graph.NodeID) *tensor.Tensor {
	c.mu.Lock()
	s := c.states[id]
	if s == nil {
		c.mu.Unlock()
		exceptions.Panicf("checkpoint: no state registered for %s", id)
	}
	value, retro := s.value, s.retro
	c.mu.Unlock()

	if value == nil {
		// The lock is released so the retro-forward can retrieve its own inputs.
		klog.V(2).Infof("checkpoint: recomputing %s", id)
		value = retro(c)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	s.value = value
	s.pending--
	if s.pending <= 0 {
		delete(c.states, id)
	}
	return value
}

// Len returns how many states are held.
func (c *Checkpointer) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.states)
}

// Clear drops every state.
func (c *Checkpointer) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.states)
}
