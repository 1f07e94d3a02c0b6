package aggregates

import (
	"inkboard-backend/domain/core/entities"
)

// Snapshot is an immutable deep copy of a canvas's node/edge state at one
// instant. Snapshots hold their own clones: neither the canvas nor a later
// mutation can reach into them.
type Snapshot struct {
	nodes []*entities.Node
	edges []*entities.Edge
}

// NodeCount returns the number of nodes captured
func (s Snapshot) NodeCount() int {
	return len(s.nodes)
}

// EdgeCount returns the number of edges captured
func (s Snapshot) EdgeCount() int {
	return len(s.edges)
}

// Nodes returns clones of the captured nodes in z-order
func (s Snapshot) Nodes() []*entities.Node {
	out := make([]*entities.Node, len(s.nodes))
	for i, n := range s.nodes {
		out[i] = n.Clone()
	}
	return out
}

// Edges returns clones of the captured edges
func (s Snapshot) Edges() []*entities.Edge {
	out := make([]*entities.Edge, len(s.edges))
	for i, e := range s.edges {
		out[i] = e.Clone()
	}
	return out
}
