package optimizer

import (
	"sort"

	"lattice/internal/graph"
)

// IndexInfo describes one auto-created index for stats output.
type IndexInfo struct {
	Kind      IndexKind
	Dimension string
	Entries   int
	// Rationale is the human-readable reason the index exists, e.g.
	// `10 lookups on property "email"`.
	Rationale string
}

// DegreeSummary aggregates the graph's degree distribution.
type DegreeSummary struct {
	Min  int
	Max  int
	Mean float64
}

// Stats is the aggregate counter snapshot the introspection surface
// returns.
type Stats struct {
	Nodes   int
	Edges   int
	Degrees DegreeSummary
	// Indices lists every auto-created index with its rationale.
	Indices []IndexInfo
	// Substitutions is the log of rule-licensed algorithm swaps.
	Substitutions []Substitution
	// Operations counts engine operations by name.
	Operations map[string]int
	// PropertyAccess holds the per-property access counters driving
	// auto-indexing.
	PropertyAccess map[string]int
}

// Stats snapshots the graph's counters and the optimizer's derived state.
func (o *Optimizer) Stats(g *graph.Graph) *Stats {
	s := &Stats{
		Nodes:          g.NodeCount(),
		Edges:          g.EdgeCount(),
		Operations:     make(map[string]int, len(o.operations)),
		PropertyAccess: make(map[string]int, len(o.propertyAccess)),
	}
	for k, v := range o.operations {
		s.Operations[k] = v
	}
	for k, v := range o.propertyAccess {
		s.PropertyAccess[k] = v
	}

	first := true
	total := 0
	for _, id := range g.NodeIDs() {
		degree, err := g.Degree(id)
		if err != nil {
			continue
		}
		total += degree
		if first || degree < s.Degrees.Min {
			s.Degrees.Min = degree
		}
		if first || degree > s.Degrees.Max {
			s.Degrees.Max = degree
		}
		first = false
	}
	if g.NodeCount() > 0 {
		s.Degrees.Mean = float64(total) / float64(g.NodeCount())
	}

	for _, idx := range o.propIndices {
		s.Indices = append(s.Indices, IndexInfo{
			Kind:      idx.Kind,
			Dimension: idx.Dimension,
			Entries:   idx.Size(),
			Rationale: indexRationale(idx),
		})
	}
	for _, idx := range o.typeIndices {
		s.Indices = append(s.Indices, IndexInfo{
			Kind:      idx.Kind,
			Dimension: idx.Dimension,
			Entries:   idx.Size(),
			Rationale: indexRationale(idx),
		})
	}
	sort.Slice(s.Indices, func(i, j int) bool {
		if s.Indices[i].Kind != s.Indices[j].Kind {
			return s.Indices[i].Kind < s.Indices[j].Kind
		}
		return s.Indices[i].Dimension < s.Indices[j].Dimension
	})

	s.Substitutions = append(s.Substitutions, o.substitutions...)
	return s
}

// HasIndex reports whether stats would list an index on the dimension.
func (s *Stats) HasIndex(kind IndexKind, dimension string) bool {
	for _, idx := range s.Indices {
		if idx.Kind == kind && idx.Dimension == dimension {
			return true
		}
	}
	return false
}
