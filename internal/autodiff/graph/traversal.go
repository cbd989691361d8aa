package graph

// Item is anything the traversal can walk: a node id and the ids it depends on.
type Item interface {
	Node() NodeID
	Parents() []NodeID
}

// BreadthFirstSearch walks a backward graph from its root.
//
// Despite the name the frontier is a stack, so siblings are explored
// last-discovered-first. The only ordering guarantees are that the root comes
// first and that a node is reported before its ancestors reachable through it.
type BreadthFirstSearch struct{}

// Traverse reports rootStep and every step reachable from it exactly once,
// removing each reachable step from steps. rootStep must not be in steps.
// Ids missing from steps are leaves (or pruned steps) and are skipped.
func (BreadthFirstSearch) Traverse(rootID NodeID, rootStep Step, steps *Registry, callback func(NodeID, Step)) {
	Walk(rootID, rootStep, steps.steps, callback)
}

// Walk is the traversal behind BreadthFirstSearch.Traverse, for any item type
// kept in a plain map.
func Walk[I Item](rootID NodeID, root I, items map[NodeID]I, callback func(NodeID, I)) {
	visited := map[NodeID]struct{}{rootID: {}}
	frontier := append([]NodeID(nil), root.Parents()...)

	callback(rootID, root)

	for len(frontier) > 0 {
		id := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]

		item, found := items[id]
		if !found {
			continue
		}
		delete(items, id)

		node := item.Node()
		if _, seen := visited[node]; seen {
			continue
		}
		visited[node] = struct{}{}

		for _, parent := range item.Parents() {
			if _, seen := visited[parent]; !seen {
				frontier = append(frontier, parent)
			}
		}

		callback(node, item)
	}
}
