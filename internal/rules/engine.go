package rules

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"lattice/internal/graph"
	"lattice/internal/values"
	pkgerrors "lattice/pkg/errors"
)

// Conflict describes one way the current graph state violates a rule.
type Conflict struct {
	Rule        string
	Description string
	// Resource identifies the offending node/edge id when one is known.
	Resource string
}

// AttachReport describes the outcome of attaching a rule to a non-empty
// graph under its retroactive policy.
type AttachReport struct {
	Attached bool
	// Conflicts found in pre-existing data. Populated by PolicyWarn and by
	// failed PolicyClean/PolicyEnforce attaches.
	Conflicts []Conflict
	// Repaired lists edge ids removed or added by PolicyClean repair.
	Repaired []string
}

// Engine evaluates a graph's attached rules against proposed states. It is
// stateless: the instance list lives on the graph's owner, and the engine
// only ever reads graph state (mutating it solely during Clean repair, with
// full rollback on failure).
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates a rule engine. A nil logger disables logging.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Validate checks whether g currently satisfies the rule, returning a
// StructuralViolation describing the first conflict found.
func (e *Engine) Validate(g *graph.Graph, inst *Instance) error {
	conflicts := e.conflicts(g, inst, true)
	if len(conflicts) == 0 {
		return nil
	}
	c := conflicts[0]
	return pkgerrors.NewStructuralViolation(c.Rule, c.Description, c.Resource)
}

// ValidateAll checks every attached rule in attachment order, returning the
// first violation.
func (e *Engine) ValidateAll(g *graph.Graph, instances []*Instance) error {
	for _, inst := range instances {
		if err := e.Validate(g, inst); err != nil {
			return err
		}
	}
	return nil
}

// Conflicts reports every way g currently violates the rule.
func (e *Engine) Conflicts(g *graph.Graph, inst *Instance) []Conflict {
	return e.conflicts(g, inst, false)
}

// Attach reconciles pre-existing data with the rule per its retroactive
// policy. It never appends to the caller's instance list; the report's
// Attached flag says whether the caller should. When Clean repair altered
// the graph, the returned undo restores the pre-repair state; callers that
// bundle several attaches into one unit run it when a later member fails.
func (e *Engine) Attach(g *graph.Graph, inst *Instance, mode RepairMode) (*AttachReport, graph.UndoFunc, error) {
	switch inst.Policy {
	case PolicyIgnore:
		return &AttachReport{Attached: true}, nil, nil

	case PolicyWarn:
		report := &AttachReport{Attached: true, Conflicts: e.Conflicts(g, inst)}
		for _, c := range report.Conflicts {
			e.logger.Warn("rule attached over conflicting data",
				zap.String("rule", c.Rule),
				zap.String("conflict", c.Description),
				zap.String("resource", c.Resource),
			)
		}
		return report, nil, nil

	case PolicyEnforce:
		conflicts := e.Conflicts(g, inst)
		if len(conflicts) > 0 {
			return &AttachReport{Conflicts: conflicts}, nil,
				pkgerrors.NewAttachConflict(inst.Name(), conflicts[0].Description)
		}
		return &AttachReport{Attached: true}, nil, nil

	case PolicyClean:
		return e.attachClean(g, inst, mode)

	default:
		return nil, nil, pkgerrors.NewValidation("unknown retroactive policy")
	}
}

// attachClean attempts automatic repair of conflicting data. Repair either
// completes totally or rolls the graph back and fails the attach.
func (e *Engine) attachClean(g *graph.Graph, inst *Instance, mode RepairMode) (*AttachReport, graph.UndoFunc, error) {
	if err := e.Validate(g, inst); err == nil {
		return &AttachReport{Attached: true}, nil, nil
	}

	repaired, undo, err := e.repair(g, inst, mode)
	if err != nil {
		return &AttachReport{Conflicts: e.Conflicts(g, inst)}, nil, err
	}

	// Repair must be total: the repaired state has to satisfy the rule.
	if verr := e.Validate(g, inst); verr != nil {
		undo()
		return &AttachReport{Conflicts: e.Conflicts(g, inst)}, nil,
			pkgerrors.NewAttachConflict(inst.Name(), "automatic repair incomplete: "+verr.Error())
	}

	e.logger.Info("rule attached after automatic repair",
		zap.String("rule", inst.Name()),
		zap.Strings("repaired", repaired),
	)
	return &AttachReport{Attached: true, Repaired: repaired}, undo, nil
}

// repair applies a deterministic fix for the rule's conflicts, returning the
// affected edge ids and an undo restoring the pre-repair state.
//
// Repairable kinds: NoCycles (remove cycle-closing edges; under RepairAny
// the first conflicting edge in insertion order, under RepairStrict only
// self-loops, whose removal is uniquely determined), Bidirectional (add the
// missing reverse edges, a unique repair under both modes), and under
// RepairAny the edge-count bounds MaxEdges/MaxChildren/MaxDegree (drop the
// newest offending edges). SingleRoot, Connected, Sorted and MaxNodes have
// no automatic repair that does not guess at or discard user data.
func (e *Engine) repair(g *graph.Graph, inst *Instance, mode RepairMode) ([]string, graph.UndoFunc, error) {
	var repaired []string
	var undos []graph.UndoFunc
	undoAll := func() {
		for i := len(undos) - 1; i >= 0; i-- {
			undos[i]()
		}
	}
	fail := func(msg string) ([]string, graph.UndoFunc, error) {
		undoAll()
		return nil, nil, pkgerrors.NewAttachConflict(inst.Name(), msg)
	}

	switch inst.Spec.Kind {
	case NoCycles:
		for {
			edge := g.FindCycleEdge()
			if edge == nil {
				break
			}
			if mode == RepairStrict && edge.SourceID != edge.TargetID {
				return fail("multiple equally valid repairs exist; strict mode refuses to guess")
			}
			_, undo, err := g.RemoveEdge(edge.ID)
			if err != nil {
				undoAll()
				return nil, nil, pkgerrors.Wrap(err, "cycle repair failed")
			}
			repaired = append(repaired, edge.ID)
			undos = append(undos, undo)
		}

	case Bidirectional:
		if g.Kind() != graph.Undirected {
			for _, edge := range g.Edges() {
				if g.HasEdgeBetween(edge.TargetID, edge.SourceID) {
					continue
				}
				reverse := graph.NewEdge(edge.TargetID, edge.SourceID, edge.Type, edge.Weight)
				undo, err := g.AddEdge(reverse)
				if err != nil {
					undoAll()
					return nil, nil, pkgerrors.Wrap(err, "bidirectional repair failed")
				}
				repaired = append(repaired, reverse.ID)
				undos = append(undos, undo)
			}
		}

	case MaxEdges:
		if mode == RepairStrict {
			return fail("multiple equally valid repairs exist; strict mode refuses to guess")
		}
		edges := g.Edges()
		for i := len(edges) - 1; i >= 0 && g.EdgeCount() > inst.Spec.Limit; i-- {
			_, undo, err := g.RemoveEdge(edges[i].ID)
			if err != nil {
				undoAll()
				return nil, nil, pkgerrors.Wrap(err, "edge-count repair failed")
			}
			repaired = append(repaired, edges[i].ID)
			undos = append(undos, undo)
		}

	case MaxChildren, MaxDegree:
		if mode == RepairStrict {
			return fail("multiple equally valid repairs exist; strict mode refuses to guess")
		}
		// Drop the newest incident edges of each offending node until it is
		// back within its bound.
		for _, id := range g.NodeIDs() {
			for e.nodeOverBound(g, id, inst) {
				edgeID := e.newestIncidentEdge(g, id, inst.Spec.Kind == MaxChildren)
				if edgeID == "" {
					return fail("degree repair found no removable edge")
				}
				_, undo, err := g.RemoveEdge(edgeID)
				if err != nil {
					undoAll()
					return nil, nil, pkgerrors.Wrap(err, "degree repair failed")
				}
				repaired = append(repaired, edgeID)
				undos = append(undos, undo)
			}
		}

	default:
		return fail("rule cannot be automatically repaired")
	}

	return repaired, undoAll, nil
}

func (e *Engine) nodeOverBound(g *graph.Graph, id string, inst *Instance) bool {
	node, err := g.Node(id)
	if err != nil {
		return false
	}
	if inst.Spec.Kind == MaxChildren {
		return node.OutDegree() > inst.Spec.Limit
	}
	degree, _ := g.Degree(id)
	return degree > inst.Spec.Limit
}

// newestIncidentEdge returns the incident edge added last, in global
// insertion order. outgoingOnly restricts the search to children edges.
func (e *Engine) newestIncidentEdge(g *graph.Graph, id string, outgoingOnly bool) string {
	node, err := g.Node(id)
	if err != nil {
		return ""
	}
	candidates := make(map[string]bool)
	for _, edgeID := range node.Outgoing() {
		candidates[edgeID] = true
	}
	if !outgoingOnly {
		for _, edgeID := range node.Incoming() {
			candidates[edgeID] = true
		}
	}
	newest := ""
	for _, edge := range g.Edges() {
		if candidates[edge.ID] {
			newest = edge.ID
		}
	}
	return newest
}

// conflicts gathers the rule's violations. firstOnly stops at the first
// conflict, which is all mutation validation needs.
func (e *Engine) conflicts(g *graph.Graph, inst *Instance, firstOnly bool) []Conflict {
	name := inst.Name()
	var found []Conflict
	add := func(description, resource string) bool {
		found = append(found, Conflict{Rule: name, Description: description, Resource: resource})
		return firstOnly
	}

	switch inst.Spec.Kind {
	case NoCycles:
		if edge := g.FindCycleEdge(); edge != nil {
			add(fmt.Sprintf("edge %s -> %s closes a cycle", edge.SourceID, edge.TargetID), edge.ID)
		}

	case SingleRoot:
		roots := g.Roots()
		if g.NodeCount() > 0 && len(roots) == 0 {
			add("graph has no root: every node has incoming edges", "")
		}
		if len(roots) > 1 {
			add(fmt.Sprintf("graph has %d roots: %s", len(roots), strings.Join(roots, ", ")), roots[1])
		}

	case Connected:
		if !g.IsConnected() {
			add("graph is not connected", "")
		}

	case MaxChildren:
		for _, node := range g.Nodes() {
			if node.OutDegree() > inst.Spec.Limit {
				if add(fmt.Sprintf("node %s has %d children (limit %d)",
					node.ID(), node.OutDegree(), inst.Spec.Limit), node.ID()) {
					break
				}
			}
		}

	case Sorted:
		for _, root := range g.Roots() {
			order, err := g.InOrder(root)
			if err != nil {
				continue
			}
			for i := 1; i < len(order); i++ {
				prev, _ := g.Node(order[i-1])
				curr, _ := g.Node(order[i])
				cmp, cerr := values.Compare(prev.Value(), curr.Value())
				if cerr != nil {
					if add(cerr.Error(), curr.ID()) {
						return found
					}
					continue
				}
				if cmp > 0 {
					if add(fmt.Sprintf("value %s sorts before %s but follows it in order",
						values.Display(curr.Value()), values.Display(prev.Value())), curr.ID()) {
						return found
					}
				}
			}
		}

	case MaxNodes:
		if g.NodeCount() > inst.Spec.Limit {
			add(fmt.Sprintf("graph has %d nodes (limit %d)", g.NodeCount(), inst.Spec.Limit), "")
		}

	case MaxEdges:
		if g.EdgeCount() > inst.Spec.Limit {
			add(fmt.Sprintf("graph has %d edges (limit %d)", g.EdgeCount(), inst.Spec.Limit), "")
		}

	case MaxDegree:
		for _, id := range g.NodeIDs() {
			degree, err := g.Degree(id)
			if err != nil {
				continue
			}
			if degree > inst.Spec.Limit {
				if add(fmt.Sprintf("node %s has degree %d (limit %d)", id, degree, inst.Spec.Limit), id) {
					break
				}
			}
		}

	case Bidirectional:
		if g.Kind() != graph.Undirected {
			for _, edge := range g.Edges() {
				if !g.HasEdgeBetween(edge.TargetID, edge.SourceID) {
					if add(fmt.Sprintf("edge %s -> %s has no reverse counterpart",
						edge.SourceID, edge.TargetID), edge.ID) {
						break
					}
				}
			}
		}
	}

	return found
}
