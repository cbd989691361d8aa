package graph

// Parent is one backward edge: the parent node and the stream it came from.
type Parent struct {
	ID     NodeID
	Stream StreamID
}

// Requirement tells whether a node takes part in gradient computation.
type Requirement int

const (
	// None marks nodes that no gradient flows through.
	None Requirement = iota
	// Grad marks leaves whose gradient the caller wants to read.
	Grad
	// GradInBackward marks intermediates that only relay a gradient.
	GradInBackward
)

// String implements fmt.Stringer.
func (r Requirement) String() string {
	switch r {
	case None:
		return "None"
	case Grad:
		return "Grad"
	case GradInBackward:
		return "GradInBackward"
	default:
		return "Unknown"
	}
}

// IsNone reports whether no gradient is needed.
func (r Requirement) IsNone() bool { return r == None }

// InferRequirement derives the requirement of an operation output from its inputs.
func InferRequirement(parents ...*Node) Requirement {
	for _, p := range parents {
		if p != nil && !p.Requirement.IsNone() {
			return GradInBackward
		}
	}
	return None
}

// Node describes one operation output in the backward graph.
type Node struct {
	ID NodeID
	// Parents lists only the inputs that need a gradient.
	Parents []Parent
	// Order is the distance from the first leaf: 0 for leaves, one more than
	// the deepest parent otherwise.
	Order       int
	Requirement Requirement
	Stream      StreamID
}

// NewLeaf creates a node without parents.
func NewLeaf(req Requirement, stream StreamID) *Node {
	return &Node{
		ID:          NewNodeID(),
		Requirement: req,
		Stream:      stream,
	}
}

// NewNode creates the node of an operation applied to inputs. Inputs that do
// not require a gradient are left out of the parent list.
func NewNode(stream StreamID, inputs ...*Node) *Node {
	n := &Node{
		ID:          NewNodeID(),
		Requirement: InferRequirement(inputs...),
		Stream:      stream,
	}
	for _, in := range inputs {
		if in == nil {
			continue
		}
		n.Order = max(n.Order, in.Order+1)
		if in.Requirement.IsNone() {
			continue
		}
		n.Parents = append(n.Parents, Parent{ID: in.ID, Stream: in.Stream})
	}
	return n
}

// ParentIDs returns the ids of the parents, in order.
func (n *Node) ParentIDs() []NodeID {
	ids := make([]NodeID, len(n.Parents))
	for i, p := range n.Parents {
		ids[i] = p.ID
	}
	return ids
}

// ParentStreams returns the stream of each parent, in order.
func (n *Node) ParentStreams() []StreamID {
	streams := make([]StreamID, len(n.Parents))
	for i, p := range n.Parents {
		streams[i] = p.Stream
	}
	return streams
}
