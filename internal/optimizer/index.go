// Package optimizer makes a graph faster without being asked: it counts
// accesses per property and edge type, builds indices once a dimension runs
// hot, and swaps in cheaper algorithms when a declared rule guarantees the
// precondition the cheaper algorithm needs. All of its state is derived;
// nothing here is ever a source of truth.
package optimizer

import (
	"time"

	"lattice/internal/graph"
	"lattice/internal/values"
)

// IndexKind distinguishes the indexed dimension.
type IndexKind string

const (
	// PropertyIndex maps a node attribute's display value to node ids.
	PropertyIndex IndexKind = "property"
	// EdgeTypeIndex maps an edge type to edge ids.
	EdgeTypeIndex IndexKind = "edge-type"
)

// Index is an auto-created lookup structure for one dimension. Strictly a
// derived cache: always reconstructible from node/edge data, incrementally
// maintained on every mutation touching the dimension, never consulted for
// correctness.
type Index struct {
	Kind      IndexKind
	Dimension string
	// entries maps a value's display form to the id set.
	entries map[string]map[string]struct{}
	// AccessesAtCreation is the counter value that triggered the build.
	AccessesAtCreation int
	CreatedAt          time.Time
}

// buildPropertyIndex scans the graph once and indexes every node carrying
// the property.
func buildPropertyIndex(g *graph.Graph, property string, accesses int) *Index {
	idx := &Index{
		Kind:               PropertyIndex,
		Dimension:          property,
		entries:            make(map[string]map[string]struct{}),
		AccessesAtCreation: accesses,
		CreatedAt:          time.Now(),
	}
	for _, node := range g.Nodes() {
		if v, ok := node.Attribute(property); ok {
			idx.add(values.Display(v), node.ID())
		}
	}
	return idx
}

// buildEdgeTypeIndex scans the graph once and indexes every edge of the
// type.
func buildEdgeTypeIndex(g *graph.Graph, edgeType string, accesses int) *Index {
	idx := &Index{
		Kind:               EdgeTypeIndex,
		Dimension:          edgeType,
		entries:            make(map[string]map[string]struct{}),
		AccessesAtCreation: accesses,
		CreatedAt:          time.Now(),
	}
	for _, edge := range g.Edges() {
		if edge.Type == edgeType {
			idx.add(edgeType, edge.ID)
		}
	}
	return idx
}

// candidates returns the id set bucketed under the value's display form.
// Distinct values can share a display form, so the set is a superset of the
// true matches; lookups verify each candidate against live graph data before
// returning it.
func (i *Index) candidates(value any) map[string]struct{} {
	return i.entries[values.Display(value)]
}

// empty reports whether the index covers no ids at all, meaning the last
// carrier of its dimension is gone.
func (i *Index) empty() bool {
	return len(i.entries) == 0
}

// Size returns the number of ids the index currently covers.
func (i *Index) Size() int {
	total := 0
	for _, set := range i.entries {
		total += len(set)
	}
	return total
}

func (i *Index) add(key, id string) {
	set, ok := i.entries[key]
	if !ok {
		set = make(map[string]struct{})
		i.entries[key] = set
	}
	set[id] = struct{}{}
}

func (i *Index) remove(key, id string) {
	if set, ok := i.entries[key]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(i.entries, key)
		}
	}
}
