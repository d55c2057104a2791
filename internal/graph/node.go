package graph

import (
	pkgerrors "lattice/pkg/errors"
)

// Node is the atomic storage unit of a Graph. It owns a payload value, an
// open attribute map, and its own adjacency lists (outgoing and incoming
// edge ids), so single-hop queries never scan the whole graph.
type Node struct {
	id         string
	value      any
	attributes map[string]any
	outgoing   []string
	incoming   []string
}

// NewNode creates a node with the given id and payload value.
func NewNode(id string, value any) (*Node, error) {
	if id == "" {
		return nil, pkgerrors.NewValidation("node id is required")
	}
	return &Node{
		id:         id,
		value:      value,
		attributes: make(map[string]any),
	}, nil
}

// ID returns the node's unique identifier
func (n *Node) ID() string {
	return n.id
}

// Value returns the node's payload value
func (n *Node) Value() any {
	return n.value
}

// SetValue replaces the node's payload value
func (n *Node) SetValue(value any) {
	n.value = value
}

// Attribute returns the named attribute and whether it is set
func (n *Node) Attribute(name string) (any, bool) {
	v, ok := n.attributes[name]
	return v, ok
}

// SetAttribute sets an open attribute on the node
func (n *Node) SetAttribute(name string, value any) {
	n.attributes[name] = value
}

// RemoveAttribute deletes an attribute, reporting whether it existed
func (n *Node) RemoveAttribute(name string) bool {
	_, ok := n.attributes[name]
	delete(n.attributes, name)
	return ok
}

// Attributes returns a copy of the attribute map to maintain encapsulation
func (n *Node) Attributes() map[string]any {
	attrs := make(map[string]any, len(n.attributes))
	for k, v := range n.attributes {
		attrs[k] = v
	}
	return attrs
}

// Outgoing returns a copy of the outgoing edge-id list
func (n *Node) Outgoing() []string {
	out := make([]string, len(n.outgoing))
	copy(out, n.outgoing)
	return out
}

// Incoming returns a copy of the incoming edge-id list
func (n *Node) Incoming() []string {
	in := make([]string, len(n.incoming))
	copy(in, n.incoming)
	return in
}

// OutDegree returns the number of outgoing edges
func (n *Node) OutDegree() int {
	return len(n.outgoing)
}

// InDegree returns the number of incoming edges
func (n *Node) InDegree() int {
	return len(n.incoming)
}

// clone produces a deep copy for snapshot/rollback support.
func (n *Node) clone() *Node {
	c := &Node{
		id:         n.id,
		value:      n.value,
		attributes: make(map[string]any, len(n.attributes)),
		outgoing:   make([]string, len(n.outgoing)),
		incoming:   make([]string, len(n.incoming)),
	}
	for k, v := range n.attributes {
		c.attributes[k] = v
	}
	copy(c.outgoing, n.outgoing)
	copy(c.incoming, n.incoming)
	return c
}

func (n *Node) addOutgoing(edgeID string) {
	n.outgoing = append(n.outgoing, edgeID)
}

func (n *Node) addIncoming(edgeID string) {
	n.incoming = append(n.incoming, edgeID)
}

func (n *Node) removeOutgoing(edgeID string) {
	n.outgoing = removeID(n.outgoing, edgeID)
}

func (n *Node) removeIncoming(edgeID string) {
	n.incoming = removeID(n.incoming, edgeID)
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
