// Package graph holds the backward graph of reverse-mode autodiff: node and
// stream identifiers, the Step contract every backward operation satisfies,
// the Registry of pending steps, and the traversal that drains it.
//
// The traversal is the only algorithm here. It never looks at gradient values;
// numeric work happens in the callback handed to it.
package graph

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// NodeID identifies one node (one operation output) of the backward graph.
type NodeID uint64

var lastNodeID atomic.Uint64

// NewNodeID returns an id never handed out before in this process.
func NewNodeID() NodeID {
	return NodeID(lastNodeID.Add(1))
}

// String implements fmt.Stringer.
func (id NodeID) String() string {
	return fmt.Sprintf("node#%d", uint64(id))
}

// StreamID identifies the execution stream that built a node. The zero value
// is the default stream.
type StreamID struct {
	uuid uuid.UUID
}

// DefaultStream is the stream of nodes built without an explicit stream.
var DefaultStream = StreamID{}

// NewStreamID returns a new random stream id.
func NewStreamID() StreamID {
	return StreamID{uuid: uuid.New()}
}

// IsDefault reports whether s is the default stream.
func (s StreamID) IsDefault() bool {
	return s.uuid == uuid.Nil
}

// String returns the first block of the underlying UUID, or "default".
func (s StreamID) String() string {
	if s.IsDefault() {
		return "default"
	}
	return s.uuid.String()[:8]
}
