package graph

import (
	"slices"

	"github.com/pkg/errors"
)

// Registry maps node ids to their pending, not yet executed, steps.
//
// A Registry is owned by a single backward pass and is not safe for
// concurrent use.
type Registry struct {
	steps map[NodeID]Step
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{steps: make(map[NodeID]Step)}
}

// Register adds step under its node id. A node id may hold only one step.
func (r *Registry) Register(step Step) error {
	id := step.Node()
	if _, found := r.steps[id]; found {
		return errors.Errorf("graph: a step is already registered for %s", id)
	}
	r.steps[id] = step
	return nil
}

// Take removes the step of id and hands it to the caller.
func (r *Registry) Take(id NodeID) (Step, bool) {
	step, found := r.steps[id]
	if found {
		delete(r.steps, id)
	}
	return step, found
}

// Contains reports whether id has a pending step.
func (r *Registry) Contains(id NodeID) bool {
	_, found := r.steps[id]
	return found
}

// Len returns the number of pending steps.
func (r *Registry) Len() int { return len(r.steps) }

// IDs returns the ids of the pending steps in ascending order.
func (r *Registry) IDs() []NodeID {
	ids := make([]NodeID, 0, len(r.steps))
	for id := range r.steps {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Merge moves every step of other into r. Steps whose id is already present
// in r stay in other and are reported in the returned error.
func (r *Registry) Merge(other *Registry) error {
	var dup []NodeID
	for id, step := range other.steps {
		if _, found := r.steps[id]; found {
			dup = append(dup, id)
			continue
		}
		r.steps[id] = step
		delete(other.steps, id)
	}
	if len(dup) > 0 {
		slices.Sort(dup)
		return errors.Errorf("graph: merge left %d duplicated steps behind: %v", len(dup), dup)
	}
	return nil
}

// Clear drops every pending step.
func (r *Registry) Clear() {
	clear(r.steps)
}
