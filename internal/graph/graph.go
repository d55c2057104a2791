// Package graph implements the node/edge arena that backs every composite
// value the language exposes: a list is a graph with sequential edges, a hash
// a graph with no edges, a tree a graph with a bundled ruleset.
//
// Nodes and edges are stored by stable identifier in owner-indexed maps;
// edges reference their endpoints by id, never by pointer. Adjacency lists
// live on the nodes themselves, so single-hop queries are O(1) amortized and
// never require a global scan.
package graph

import (
	"reflect"

	pkgerrors "lattice/pkg/errors"
)

// Kind distinguishes directed from undirected graphs.
type Kind int

const (
	// Directed edges are consulted from their source endpoint only.
	Directed Kind = iota
	// Undirected graphs store a single directed edge consulted from both
	// endpoints; neighbor and degree queries read both adjacency lists.
	Undirected
)

// Graph is the arena owning all node and edge data. Iteration over nodes and
// edges follows insertion order, which keeps traversal output and repair
// choices deterministic.
type Graph struct {
	kind      Kind
	nodes     map[string]*Node
	edges     map[string]*Edge
	nodeOrder []string
	edgeOrder []string
}

// UndoFunc reverses a single committed mutation. Undo functions from a
// composite operation must run in reverse order of the mutations they
// reverse; doing so restores the graph exactly, including adjacency list
// ordering.
type UndoFunc func()

// New creates an empty graph of the given kind.
func New(kind Kind) *Graph {
	return &Graph{
		kind:  kind,
		nodes: make(map[string]*Node),
		edges: make(map[string]*Edge),
	}
}

// Kind returns whether the graph is directed or undirected.
func (g *Graph) Kind() Kind {
	return g.kind
}

// NodeCount returns the number of nodes in the graph
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Node retrieves a node by id.
func (g *Graph) Node(id string) (*Node, error) {
	node, exists := g.nodes[id]
	if !exists {
		return nil, pkgerrors.NewReferential("node not found", id)
	}
	return node, nil
}

// Edge retrieves an edge by id.
func (g *Graph) Edge(id string) (*Edge, error) {
	edge, exists := g.edges[id]
	if !exists {
		return nil, pkgerrors.NewReferential("edge not found", id)
	}
	return edge, nil
}

// HasNode checks if a node exists without error
func (g *Graph) HasNode(id string) bool {
	_, exists := g.nodes[id]
	return exists
}

// HasEdge checks if an edge exists without error
func (g *Graph) HasEdge(id string) bool {
	_, exists := g.edges[id]
	return exists
}

// HasEdgeBetween reports whether any edge connects from to to. For
// undirected graphs the reverse direction counts as well.
func (g *Graph) HasEdgeBetween(from, to string) bool {
	node, exists := g.nodes[from]
	if !exists {
		return false
	}
	for _, edgeID := range node.outgoing {
		if g.edges[edgeID].TargetID == to {
			return true
		}
	}
	if g.kind == Undirected {
		for _, edgeID := range node.incoming {
			if g.edges[edgeID].SourceID == to {
				return true
			}
		}
	}
	return false
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		nodes = append(nodes, g.nodes[id])
	}
	return nodes
}

// NodeIDs returns all node ids in insertion order.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, len(g.nodeOrder))
	copy(ids, g.nodeOrder)
	return ids
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []*Edge {
	edges := make([]*Edge, 0, len(g.edgeOrder))
	for _, id := range g.edgeOrder {
		edges = append(edges, g.edges[id])
	}
	return edges
}

// AddNode adds a node to the graph. The returned undo reverses the addition.
func (g *Graph) AddNode(node *Node) (UndoFunc, error) {
	if node == nil {
		return nil, pkgerrors.NewValidation("node cannot be nil")
	}
	if _, exists := g.nodes[node.id]; exists {
		return nil, pkgerrors.NewValidation("node already exists: " + node.id)
	}

	g.nodes[node.id] = node
	g.nodeOrder = append(g.nodeOrder, node.id)

	id := node.id
	return func() {
		delete(g.nodes, id)
		g.nodeOrder = removeID(g.nodeOrder, id)
	}, nil
}

// AddEdge adds an edge to the graph, wiring both endpoints' adjacency lists.
func (g *Graph) AddEdge(edge *Edge) (UndoFunc, error) {
	if edge == nil {
		return nil, pkgerrors.NewValidation("edge cannot be nil")
	}
	source, exists := g.nodes[edge.SourceID]
	if !exists {
		return nil, pkgerrors.NewReferential("source node not found", edge.SourceID)
	}
	target, exists := g.nodes[edge.TargetID]
	if !exists {
		return nil, pkgerrors.NewReferential("target node not found", edge.TargetID)
	}
	if _, exists := g.edges[edge.ID]; exists {
		return nil, pkgerrors.NewValidation("edge already exists: " + edge.ID)
	}

	g.edges[edge.ID] = edge
	g.edgeOrder = append(g.edgeOrder, edge.ID)
	source.addOutgoing(edge.ID)
	target.addIncoming(edge.ID)

	id := edge.ID
	return func() {
		delete(g.edges, id)
		g.edgeOrder = removeID(g.edgeOrder, id)
		source.removeOutgoing(id)
		target.removeIncoming(id)
	}, nil
}

// RemoveEdge removes an edge by id, returning the removed edge.
func (g *Graph) RemoveEdge(id string) (*Edge, UndoFunc, error) {
	edge, exists := g.edges[id]
	if !exists {
		return nil, nil, pkgerrors.NewReferential("edge not found", id)
	}
	source := g.nodes[edge.SourceID]
	target := g.nodes[edge.TargetID]

	orderIdx := indexOf(g.edgeOrder, id)
	outIdx := indexOf(source.outgoing, id)
	inIdx := indexOf(target.incoming, id)

	delete(g.edges, id)
	g.edgeOrder = removeID(g.edgeOrder, id)
	source.removeOutgoing(id)
	target.removeIncoming(id)

	undo := func() {
		g.edges[id] = edge
		g.edgeOrder = insertAt(g.edgeOrder, orderIdx, id)
		source.outgoing = insertAt(source.outgoing, outIdx, id)
		target.incoming = insertAt(target.incoming, inIdx, id)
	}
	return edge, undo, nil
}

// RemoveNode removes a node and every incident edge. The removed edges are
// returned so callers can report the cascade.
func (g *Graph) RemoveNode(id string) ([]*Edge, UndoFunc, error) {
	node, exists := g.nodes[id]
	if !exists {
		return nil, nil, pkgerrors.NewReferential("node not found", id)
	}

	// Collect incident edge ids first; removing mutates the lists.
	incident := make([]string, 0, len(node.outgoing)+len(node.incoming))
	incident = append(incident, node.outgoing...)
	for _, edgeID := range node.incoming {
		// Self-loops appear in both lists once each under the same id.
		if !containsID(incident, edgeID) {
			incident = append(incident, edgeID)
		}
	}

	removed := make([]*Edge, 0, len(incident))
	undos := make([]UndoFunc, 0, len(incident)+1)
	for _, edgeID := range incident {
		edge, undo, err := g.RemoveEdge(edgeID)
		if err != nil {
			// Roll back the partial cascade before reporting.
			for i := len(undos) - 1; i >= 0; i-- {
				undos[i]()
			}
			return nil, nil, pkgerrors.Wrap(err, "cascade removal failed")
		}
		removed = append(removed, edge)
		undos = append(undos, undo)
	}

	orderIdx := indexOf(g.nodeOrder, id)
	delete(g.nodes, id)
	g.nodeOrder = removeID(g.nodeOrder, id)
	undos = append(undos, func() {
		g.nodes[id] = node
		g.nodeOrder = insertAt(g.nodeOrder, orderIdx, id)
	})

	undo := func() {
		for i := len(undos) - 1; i >= 0; i-- {
			undos[i]()
		}
	}
	return removed, undo, nil
}

// Neighbors returns the ids of nodes reachable over one edge from id,
// optionally restricted to an edge type. Order follows the adjacency lists.
// For undirected graphs both endpoints see each other as neighbors.
func (g *Graph) Neighbors(id string, edgeTypes ...string) ([]string, error) {
	node, exists := g.nodes[id]
	if !exists {
		return nil, pkgerrors.NewReferential("node not found", id)
	}

	matches := func(t string) bool {
		if len(edgeTypes) == 0 {
			return true
		}
		for _, want := range edgeTypes {
			if t == want {
				return true
			}
		}
		return false
	}

	neighbors := []string{}
	seen := make(map[string]bool)
	for _, edgeID := range node.outgoing {
		edge := g.edges[edgeID]
		if matches(edge.Type) && !seen[edge.TargetID] {
			seen[edge.TargetID] = true
			neighbors = append(neighbors, edge.TargetID)
		}
	}
	if g.kind == Undirected {
		for _, edgeID := range node.incoming {
			edge := g.edges[edgeID]
			if matches(edge.Type) && !seen[edge.SourceID] {
				seen[edge.SourceID] = true
				neighbors = append(neighbors, edge.SourceID)
			}
		}
	}
	return neighbors, nil
}

// Degree returns the node's degree. Directed graphs count in plus out;
// undirected graphs count each incident edge once.
func (g *Graph) Degree(id string) (int, error) {
	node, exists := g.nodes[id]
	if !exists {
		return 0, pkgerrors.NewReferential("node not found", id)
	}
	return len(node.outgoing) + len(node.incoming), nil
}

// Contains reports whether any node's payload equals the given value.
func (g *Graph) Contains(value any) bool {
	for _, id := range g.nodeOrder {
		if reflect.DeepEqual(g.nodes[id].value, value) {
			return true
		}
	}
	return false
}

// FindByValue returns the ids of nodes whose payload equals value, in
// insertion order.
func (g *Graph) FindByValue(value any) []string {
	var ids []string
	for _, id := range g.nodeOrder {
		if reflect.DeepEqual(g.nodes[id].value, value) {
			ids = append(ids, id)
		}
	}
	return ids
}

// FindByAttribute returns the ids of nodes whose named attribute equals
// value, in insertion order. This is the linear scan the optimizer replaces
// with an index once the property runs hot.
func (g *Graph) FindByAttribute(name string, value any) []string {
	var ids []string
	for _, id := range g.nodeOrder {
		if attr, ok := g.nodes[id].attributes[name]; ok && reflect.DeepEqual(attr, value) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Roots returns the ids of nodes with no incoming edges, in insertion order.
// Only meaningful for directed graphs; an undirected graph has no root
// notion and every node is reported.
func (g *Graph) Roots() []string {
	var roots []string
	for _, id := range g.nodeOrder {
		if len(g.nodes[id].incoming) == 0 {
			roots = append(roots, id)
		}
	}
	return roots
}

// Clone produces a deep copy of the graph. Used for staging attach-time
// repairs so a failed repair leaves the original untouched.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		kind:      g.kind,
		nodes:     make(map[string]*Node, len(g.nodes)),
		edges:     make(map[string]*Edge, len(g.edges)),
		nodeOrder: make([]string, len(g.nodeOrder)),
		edgeOrder: make([]string, len(g.edgeOrder)),
	}
	for id, node := range g.nodes {
		c.nodes[id] = node.clone()
	}
	for id, edge := range g.edges {
		c.edges[id] = edge.clone()
	}
	copy(c.nodeOrder, g.nodeOrder)
	copy(c.edgeOrder, g.edgeOrder)
	return c
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func insertAt(ids []string, idx int, id string) []string {
	if idx < 0 || idx >= len(ids) {
		return append(ids, id)
	}
	ids = append(ids, "")
	copy(ids[idx+1:], ids[idx:])
	ids[idx] = id
	return ids
}

func containsID(ids []string, id string) bool {
	return indexOf(ids, id) >= 0
}
