package optimizer

import (
	"fmt"
	"reflect"
	"time"

	"go.uber.org/zap"

	"lattice/internal/graph"
	"lattice/internal/observability"
	"lattice/internal/values"
)

// DefaultThreshold is the access count after which a dimension gets an
// index.
const DefaultThreshold = 10

// Substitution records one rule-licensed algorithm swap for the stats log.
type Substitution struct {
	Operation  string
	Default    string
	Chosen     string
	LicensedBy string
	At         time.Time
}

// Optimizer observes one graph's access patterns and maintains its derived
// index structures. All counters live here, on the graph's optimizer facet;
// there is no process-wide registry.
type Optimizer struct {
	threshold int
	logger    *zap.Logger
	metrics   *observability.Collector

	propertyAccess map[string]int
	edgeTypeAccess map[string]int
	propIndices    map[string]*Index
	typeIndices    map[string]*Index

	substitutions []Substitution
	operations    map[string]int
}

// New creates an optimizer with the given index threshold; threshold <= 0
// selects DefaultThreshold. logger may be nil; metrics may be nil.
func New(threshold int, logger *zap.Logger, metrics *observability.Collector) *Optimizer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Optimizer{
		threshold:      threshold,
		logger:         logger,
		metrics:        metrics,
		propertyAccess: make(map[string]int),
		edgeTypeAccess: make(map[string]int),
		propIndices:    make(map[string]*Index),
		typeIndices:    make(map[string]*Index),
		operations:     make(map[string]int),
	}
}

// Threshold returns the current index-creation threshold.
func (o *Optimizer) Threshold() int {
	return o.threshold
}

// SetThreshold retunes the index-creation threshold for subsequent
// accesses; existing indices are kept.
func (o *Optimizer) SetThreshold(threshold int) {
	if threshold > 0 {
		o.threshold = threshold
	}
}

// RecordOperation counts one engine operation for stats.
func (o *Optimizer) RecordOperation(name string) {
	o.operations[name]++
}

// FindByProperty answers a property lookup, counting the access and routing
// through the property's index once one exists. The index narrows the scan
// to its candidate bucket and every candidate is verified against the node's
// live attribute, so both paths return identical ids in insertion order.
func (o *Optimizer) FindByProperty(g *graph.Graph, property string, value any) []string {
	o.propertyAccess[property]++
	o.maybeBuildPropertyIndex(g, property)

	if idx, ok := o.propIndices[property]; ok {
		o.metrics.RecordIndexHit()
		return verifyPropertyCandidates(g, property, value, idx.candidates(value))
	}
	o.metrics.RecordIndexMiss()
	return g.FindByAttribute(property, value)
}

// verifyPropertyCandidates filters an index bucket against live attribute
// values. The index groups ids by display form, so distinct values (int 1,
// string "1") can share a bucket; re-checking with the same equality the
// linear scan uses keeps the index out of correctness decisions.
func verifyPropertyCandidates(g *graph.Graph, property string, value any, candidates map[string]struct{}) []string {
	var ids []string
	for _, id := range g.NodeIDs() {
		if _, ok := candidates[id]; !ok {
			continue
		}
		node, err := g.Node(id)
		if err != nil {
			continue
		}
		if attr, ok := node.Attribute(property); ok && reflect.DeepEqual(attr, value) {
			ids = append(ids, id)
		}
	}
	return ids
}

// EdgesByType answers an edge-type lookup, counting the access and routing
// through the type's index once one exists. Both paths report edge ids in
// insertion order.
func (o *Optimizer) EdgesByType(g *graph.Graph, edgeType string) []string {
	o.edgeTypeAccess[edgeType]++
	o.maybeBuildEdgeTypeIndex(g, edgeType)

	if idx, ok := o.typeIndices[edgeType]; ok {
		o.metrics.RecordIndexHit()
		set := idx.candidates(edgeType)
		var ids []string
		for _, edge := range g.Edges() {
			if _, ok := set[edge.ID]; ok && edge.Type == edgeType {
				ids = append(ids, edge.ID)
			}
		}
		return ids
	}
	o.metrics.RecordIndexMiss()
	var ids []string
	for _, edge := range g.Edges() {
		if edge.Type == edgeType {
			ids = append(ids, edge.ID)
		}
	}
	return ids
}

// HasPropertyIndex reports whether the property is currently indexed.
func (o *Optimizer) HasPropertyIndex(property string) bool {
	_, ok := o.propIndices[property]
	return ok
}

func (o *Optimizer) maybeBuildPropertyIndex(g *graph.Graph, property string) {
	if _, exists := o.propIndices[property]; exists {
		return
	}
	count := o.propertyAccess[property]
	if count < o.threshold {
		return
	}
	idx := buildPropertyIndex(g, property, count)
	o.propIndices[property] = idx
	o.metrics.RecordIndexBuilt()
	o.logger.Info("auto-created property index",
		zap.String("property", property),
		zap.Int("accesses", count),
		zap.Int("entries", idx.Size()),
	)
}

func (o *Optimizer) maybeBuildEdgeTypeIndex(g *graph.Graph, edgeType string) {
	if _, exists := o.typeIndices[edgeType]; exists {
		return
	}
	count := o.edgeTypeAccess[edgeType]
	if count < o.threshold {
		return
	}
	idx := buildEdgeTypeIndex(g, edgeType, count)
	o.typeIndices[edgeType] = idx
	o.metrics.RecordIndexBuilt()
	o.logger.Info("auto-created edge-type index",
		zap.String("edgeType", edgeType),
		zap.Int("accesses", count),
		zap.Int("entries", idx.Size()),
	)
}

// Incremental index maintenance. The engine calls these after every
// committed mutation touching the dimension; indices are never left stale.

// OnNodeAdded indexes a new node's attributes.
func (o *Optimizer) OnNodeAdded(node *graph.Node) {
	for property, idx := range o.propIndices {
		if v, ok := node.Attribute(property); ok {
			idx.add(values.Display(v), node.ID())
		}
	}
}

// OnNodeRemoved drops a removed node from every property index.
func (o *Optimizer) OnNodeRemoved(node *graph.Node) {
	for property, idx := range o.propIndices {
		if v, ok := node.Attribute(property); ok {
			idx.remove(values.Display(v), node.ID())
			o.dropIfVacated(PropertyIndex, property, idx)
		}
	}
}

// OnAttributeChanged moves a node between index entries. old is only
// consulted when hadOld is true.
func (o *Optimizer) OnAttributeChanged(nodeID, property string, old any, hadOld bool, next any) {
	idx, ok := o.propIndices[property]
	if !ok {
		return
	}
	if hadOld {
		idx.remove(values.Display(old), nodeID)
	}
	idx.add(values.Display(next), nodeID)
}

// OnAttributeRemoved drops a node's entry for a removed attribute.
func (o *Optimizer) OnAttributeRemoved(nodeID, property string, old any) {
	if idx, ok := o.propIndices[property]; ok {
		idx.remove(values.Display(old), nodeID)
		o.dropIfVacated(PropertyIndex, property, idx)
	}
}

// OnEdgeAdded indexes a new edge's type.
func (o *Optimizer) OnEdgeAdded(edge *graph.Edge) {
	if idx, ok := o.typeIndices[edge.Type]; ok {
		idx.add(edge.Type, edge.ID)
	}
}

// OnEdgeRemoved drops a removed edge from its type index.
func (o *Optimizer) OnEdgeRemoved(edge *graph.Edge) {
	if idx, ok := o.typeIndices[edge.Type]; ok {
		idx.remove(edge.Type, edge.ID)
		o.dropIfVacated(EdgeTypeIndex, edge.Type, idx)
	}
}

// dropIfVacated destroys an index whose dimension no longer appears anywhere
// in the graph. Maintenance keeps entries exact, so an empty index means the
// last carrier of the dimension is gone. The access counter survives; a
// later lookup past the threshold rebuilds the index immediately.
func (o *Optimizer) dropIfVacated(kind IndexKind, dimension string, idx *Index) {
	if !idx.empty() {
		return
	}
	o.DropDimension(kind, dimension)
	o.logger.Info("index dropped: dimension vacated",
		zap.String("kind", string(kind)),
		zap.String("dimension", dimension),
	)
}

// DropDimension destroys the index for a dimension whose enabling rule was
// detached or whose data dimension disappeared.
func (o *Optimizer) DropDimension(kind IndexKind, dimension string) {
	switch kind {
	case PropertyIndex:
		delete(o.propIndices, dimension)
	case EdgeTypeIndex:
		delete(o.typeIndices, dimension)
	}
}

// Algorithm selection.

// PathAlgorithm names the algorithm a path query will run.
type PathAlgorithm string

const (
	AlgoBFS      PathAlgorithm = "bfs"
	AlgoDijkstra PathAlgorithm = "dijkstra"
	AlgoDAG      PathAlgorithm = "dag-shortest-path"
)

// SelectPathAlgorithm picks the shortest-path algorithm. hasRule reports
// whether a named rule is attached; a no-cycles rule licenses topological
// relaxation instead of general search with cycle guards. Selection never
// changes results, only cost, and every substitution is logged.
func (o *Optimizer) SelectPathAlgorithm(g *graph.Graph, hasRule func(string) bool) (PathAlgorithm, string) {
	def := AlgoBFS
	if g.Weighted() {
		def = AlgoDijkstra
	}
	if hasRule != nil && hasRule("no-cycles") {
		o.recordSubstitution("shortest_path", string(def), string(AlgoDAG), "no-cycles")
		return AlgoDAG, "no-cycles"
	}
	return def, ""
}

// SkipReachabilityCheck reports whether a connectivity rule licenses
// skipping component-reachability prechecks, naming the licensing rule.
func (o *Optimizer) SkipReachabilityCheck(hasRule func(string) bool) (bool, string) {
	if hasRule != nil && hasRule("connected") {
		return true, "connected"
	}
	return false, ""
}

// BranchingBound returns the branching factor a max-degree or max-children
// rule guarantees, or 0 when unbounded. Used for cost estimates only.
func (o *Optimizer) BranchingBound(limitFor func(string) (int, bool)) (int, string) {
	if limitFor == nil {
		return 0, ""
	}
	if limit, ok := limitFor("max-degree"); ok {
		return limit, "max-degree"
	}
	if limit, ok := limitFor("max-children"); ok {
		return limit, "max-children"
	}
	return 0, ""
}

func (o *Optimizer) recordSubstitution(operation, def, chosen, licensedBy string) {
	// Log each distinct substitution once; repeats only bump metrics.
	for _, s := range o.substitutions {
		if s.Operation == operation && s.Chosen == chosen && s.LicensedBy == licensedBy {
			o.metrics.RecordSubstitution()
			return
		}
	}
	o.substitutions = append(o.substitutions, Substitution{
		Operation:  operation,
		Default:    def,
		Chosen:     chosen,
		LicensedBy: licensedBy,
		At:         time.Now(),
	})
	o.metrics.RecordSubstitution()
	o.logger.Info("rule-licensed algorithm substitution",
		zap.String("operation", operation),
		zap.String("default", def),
		zap.String("chosen", chosen),
		zap.String("licensedBy", licensedBy),
	)
}

// indexRationale renders the human-readable reason an index exists.
func indexRationale(idx *Index) string {
	noun := "property"
	if idx.Kind == EdgeTypeIndex {
		noun = "edge type"
	}
	return fmt.Sprintf("%d lookups on %s %q", idx.AccessesAtCreation, noun, idx.Dimension)
}
