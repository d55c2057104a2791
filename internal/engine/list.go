package engine

import (
	"time"

	"github.com/google/uuid"

	"lattice/internal/behaviors"
	"lattice/internal/graph"
	pkgerrors "lattice/pkg/errors"
)

// NextEdgeType is the edge type linking consecutive list elements. A list
// is a graph whose edges are strictly sequential next-links.
const NextEdgeType = "next"

// isList reports whether the graph currently has list shape: every edge is
// a next-link and no node has more than one successor or predecessor.
func (e *Engine) isList() bool {
	for _, edge := range e.graph.Edges() {
		if edge.Type != NextEdgeType {
			return false
		}
	}
	for _, node := range e.graph.Nodes() {
		if node.OutDegree() > 1 || node.InDegree() > 1 {
			return false
		}
	}
	return true
}

// sequence returns node ids in list order: from the head along next-links.
// An edge-free graph falls back to insertion order, which is what hashes
// and fresh lists share.
func (e *Engine) sequence() []string {
	if e.graph.EdgeCount() == 0 {
		return e.graph.NodeIDs()
	}

	roots := e.graph.Roots()
	if len(roots) != 1 {
		return e.graph.NodeIDs()
	}

	var order []string
	seen := make(map[string]bool)
	current := roots[0]
	for current != "" && !seen[current] {
		seen[current] = true
		order = append(order, current)
		current = e.successor(current)
	}
	return order
}

// successor returns the id the node's next-link points at, or "".
func (e *Engine) successor(id string) string {
	node, err := e.graph.Node(id)
	if err != nil {
		return ""
	}
	for _, edgeID := range node.Outgoing() {
		edge, err := e.graph.Edge(edgeID)
		if err == nil && edge.Type == NextEdgeType {
			return edge.TargetID
		}
	}
	return ""
}

// nextEdgeID returns the id of the next-link from a to b, or "".
func (e *Engine) nextEdgeID(a, b string) string {
	node, err := e.graph.Node(a)
	if err != nil {
		return ""
	}
	for _, edgeID := range node.Outgoing() {
		edge, err := e.graph.Edge(edgeID)
		if err == nil && edge.Type == NextEdgeType && edge.TargetID == b {
			return edgeID
		}
	}
	return ""
}

// collectionIDs returns the ids of the collection's elements in collection
// order.
func (e *Engine) collectionIDs() []string {
	return e.sequence()
}

// collectionValues returns the payloads of the collection's elements in
// collection order.
func (e *Engine) collectionValues() []any {
	ids := e.collectionIDs()
	vals := make([]any, 0, len(ids))
	for _, id := range ids {
		if node, err := e.graph.Node(id); err == nil {
			vals = append(vals, node.Value())
		}
	}
	return vals
}

// Items returns the list's values in order.
func (e *Engine) Items() []any {
	e.opt.RecordOperation("items")
	return e.collectionValues()
}

// Append adds a value to the list. With an ordering behavior attached the
// value lands at its sorted position instead of the tail; either way the
// value first passes through every attached behavior, and the whole splice
// commits or rolls back as one unit.
func (e *Engine) Append(value any) (string, error) {
	defer e.observe("append", time.Now())
	e.opt.RecordOperation("append")

	transformed, err := e.behaviorEng.Apply(e.invoker, e.behaviorInstances, value)
	if err != nil {
		e.reject(err)
		return "", err
	}
	e.metrics.RecordBehaviorApplied()

	position := -1 // tail
	if ordering := behaviors.OrderingInstance(e.behaviorInstances); ordering != nil {
		position, err = e.behaviorEng.InsertPosition(e.invoker, ordering, e.collectionValues(), transformed)
		if err != nil {
			e.reject(err)
			return "", err
		}
	}
	return e.spliceIn(transformed, position)
}

// InsertAt places a value at the given position, shifting later elements.
// Positions past the end append.
func (e *Engine) InsertAt(index int, value any) (string, error) {
	defer e.observe("insert_at", time.Now())
	e.opt.RecordOperation("insert_at")

	if index < 0 {
		return "", pkgerrors.NewValidation("list index cannot be negative")
	}
	transformed, err := e.behaviorEng.Apply(e.invoker, e.behaviorInstances, value)
	if err != nil {
		e.reject(err)
		return "", err
	}
	e.metrics.RecordBehaviorApplied()
	return e.spliceIn(transformed, index)
}

// spliceIn inserts an already transformed value at position (or the tail
// when position is -1 or past the end) as one composite operation.
func (e *Engine) spliceIn(value any, position int) (string, error) {
	ids := e.sequence()
	if position < 0 || position > len(ids) {
		position = len(ids)
	}

	node, err := graph.NewNode(uuid.New().String(), value)
	if err != nil {
		return "", err
	}

	var undos []graph.UndoFunc
	rollback := func() {
		for i := len(undos) - 1; i >= 0; i-- {
			undos[i]()
		}
	}
	commit := func(undo graph.UndoFunc, err error) error {
		if err != nil {
			rollback()
			return err
		}
		undos = append(undos, undo)
		return nil
	}

	var newEdges []*graph.Edge
	addLink := func(from, to string) error {
		edge := graph.NewEdge(from, to, NextEdgeType, graph.DefaultWeight)
		undo, err := e.graph.AddEdge(edge)
		if err == nil {
			newEdges = append(newEdges, edge)
		}
		return commit(undo, err)
	}

	undo, err := e.graph.AddNode(node)
	if err != nil {
		return "", err
	}
	undos = append(undos, undo)

	var removedEdge *graph.Edge
	switch {
	case len(ids) == 0:
		// First element: no links.
	case position == len(ids):
		if err := addLink(ids[len(ids)-1], node.ID()); err != nil {
			return "", err
		}
	case position == 0:
		if err := addLink(node.ID(), ids[0]); err != nil {
			return "", err
		}
	default:
		prev, next := ids[position-1], ids[position]
		if linkID := e.nextEdgeID(prev, next); linkID != "" {
			edge, undo, err := e.graph.RemoveEdge(linkID)
			if err := commit(undo, err); err != nil {
				return "", err
			}
			removedEdge = edge
		}
		if err := addLink(prev, node.ID()); err != nil {
			return "", err
		}
		if err := addLink(node.ID(), next); err != nil {
			return "", err
		}
	}

	if err := e.ruleEngine.ValidateAll(e.graph, e.ruleInstances); err != nil {
		rollback()
		e.reject(err)
		return "", err
	}

	e.opt.OnNodeAdded(node)
	e.metrics.RecordNodeCreated()
	if removedEdge != nil {
		e.opt.OnEdgeRemoved(removedEdge)
		e.metrics.RecordEdgeDeleted()
	}
	for _, edge := range newEdges {
		e.opt.OnEdgeAdded(edge)
		e.metrics.RecordEdgeCreated()
	}
	return node.ID(), nil
}

// resortList rewires the list's next-links so values appear in the ordering
// behavior's sort order. Nodes keep their payloads and attributes; only the
// links move.
func (e *Engine) resortList(inst *behaviors.Instance) error {
	ids := e.sequence()
	if len(ids) < 2 {
		return nil
	}

	// Insertion-sort the ids by payload, mirroring sorted insertion so the
	// attach-time re-sort and per-insert placement agree.
	sorted := make([]string, 0, len(ids))
	sortedVals := make([]any, 0, len(ids))
	for _, id := range ids {
		node, err := e.graph.Node(id)
		if err != nil {
			return err
		}
		pos, err := e.behaviorEng.InsertPosition(e.invoker, inst, sortedVals, node.Value())
		if err != nil {
			e.reject(err)
			return err
		}
		sorted = append(sorted, "")
		copy(sorted[pos+1:], sorted[pos:])
		sorted[pos] = id
		sortedVals = append(sortedVals, nil)
		copy(sortedVals[pos+1:], sortedVals[pos:])
		sortedVals[pos] = node.Value()
	}

	var undos []graph.UndoFunc
	rollback := func() {
		for i := len(undos) - 1; i >= 0; i-- {
			undos[i]()
		}
	}

	var removed, added []*graph.Edge
	for _, edge := range e.graph.Edges() {
		if edge.Type != NextEdgeType {
			continue
		}
		gone, undo, err := e.graph.RemoveEdge(edge.ID)
		if err != nil {
			rollback()
			return err
		}
		removed = append(removed, gone)
		undos = append(undos, undo)
	}
	for i := 0; i < len(sorted)-1; i++ {
		edge := graph.NewEdge(sorted[i], sorted[i+1], NextEdgeType, graph.DefaultWeight)
		undo, err := e.graph.AddEdge(edge)
		if err != nil {
			rollback()
			return err
		}
		added = append(added, edge)
		undos = append(undos, undo)
	}

	if err := e.ruleEngine.ValidateAll(e.graph, e.ruleInstances); err != nil {
		rollback()
		e.reject(err)
		return pkgerrors.NewAttachConflict(inst.Name(), "re-sort violates an attached rule: "+err.Error())
	}

	for _, edge := range removed {
		e.opt.OnEdgeRemoved(edge)
	}
	for _, edge := range added {
		e.opt.OnEdgeAdded(edge)
	}
	return nil
}
