package optimizer

import (
	"fmt"

	"lattice/internal/graph"
)

// PlanStep is one ordered step of an execution plan.
type PlanStep struct {
	Description string
	Algorithm   string
	// LicensedBy names the declared rule that licensed this step, or "".
	LicensedBy string
	// Cost is the estimated operation count for the step.
	Cost int
}

// Plan is the structured execution plan Explain returns. It reflects what
// would actually execute: the same selection logic the live operations use
// builds it, read-only and side-effect-free.
type Plan struct {
	Operation     string
	Steps         []PlanStep
	EstimatedCost int
	UsesIndex     bool
}

// ExplainFindByProperty plans a property lookup without counting the access
// or building anything.
func (o *Optimizer) ExplainFindByProperty(g *graph.Graph, property string) *Plan {
	plan := &Plan{Operation: fmt.Sprintf("find_node(property: %q)", property)}
	if idx, ok := o.propIndices[property]; ok {
		plan.UsesIndex = true
		plan.Steps = append(plan.Steps, PlanStep{
			Description: fmt.Sprintf("look up display form in index on property %q", property),
			Algorithm:   "index-lookup",
			Cost:        1,
		}, PlanStep{
			Description: fmt.Sprintf("materialize id set (%d indexed entries)", idx.Size()),
			Algorithm:   "set-copy",
			Cost:        maxInt(1, idx.Size()/maxInt(1, len(o.propIndices))),
		})
	} else {
		plan.Steps = append(plan.Steps, PlanStep{
			Description: fmt.Sprintf("scan all %d nodes comparing property %q", g.NodeCount(), property),
			Algorithm:   "linear-scan",
			Cost:        g.NodeCount(),
		})
	}
	plan.EstimatedCost = totalCost(plan.Steps)
	return plan
}

// ExplainShortestPath plans a shortest-path query using the same selection
// logic the live operation uses, without recording a substitution.
func (o *Optimizer) ExplainShortestPath(g *graph.Graph, hasRule func(string) bool, limitFor func(string) (int, bool)) *Plan {
	plan := &Plan{Operation: "shortest_path"}

	algo := AlgoBFS
	licensed := ""
	if g.Weighted() {
		algo = AlgoDijkstra
	}
	if hasRule != nil && hasRule("no-cycles") {
		algo = AlgoDAG
		licensed = "no-cycles"
	}

	n := g.NodeCount()
	e := g.EdgeCount()

	if skip, rule := o.SkipReachabilityCheck(hasRule); skip {
		plan.Steps = append(plan.Steps, PlanStep{
			Description: "skip component-reachability precheck",
			Algorithm:   "noop",
			LicensedBy:  rule,
			Cost:        0,
		})
	} else {
		plan.Steps = append(plan.Steps, PlanStep{
			Description: "verify endpoints share a component",
			Algorithm:   "bfs-reachability",
			Cost:        n + e,
		})
	}

	cost := n + e
	switch algo {
	case AlgoDAG:
		plan.Steps = append(plan.Steps, PlanStep{
			Description: "order nodes topologically",
			Algorithm:   "kahn",
			LicensedBy:  licensed,
			Cost:        n + e,
		}, PlanStep{
			Description: "relax edges in topological order",
			Algorithm:   string(AlgoDAG),
			LicensedBy:  licensed,
			Cost:        cost,
		})
	case AlgoDijkstra:
		plan.Steps = append(plan.Steps, PlanStep{
			Description: "expand nodes by minimal accumulated weight",
			Algorithm:   string(AlgoDijkstra),
			Cost:        costDijkstra(n, e),
		})
	default:
		if bound, rule := o.BranchingBound(limitFor); bound > 0 {
			plan.Steps = append(plan.Steps, PlanStep{
				Description: fmt.Sprintf("breadth-first search with branching bounded by %d", bound),
				Algorithm:   string(AlgoBFS),
				LicensedBy:  rule,
				Cost:        n * bound,
			})
		} else {
			plan.Steps = append(plan.Steps, PlanStep{
				Description: "breadth-first search with cycle guard",
				Algorithm:   string(AlgoBFS),
				Cost:        cost,
			})
		}
	}

	plan.EstimatedCost = totalCost(plan.Steps)
	return plan
}

// ExplainTraversal plans a full traversal (bfs/dfs/ordered walks).
func (o *Optimizer) ExplainTraversal(g *graph.Graph, operation string) *Plan {
	plan := &Plan{Operation: operation}
	plan.Steps = append(plan.Steps, PlanStep{
		Description: fmt.Sprintf("visit every reachable node (%d nodes, %d edges)", g.NodeCount(), g.EdgeCount()),
		Algorithm:   operation,
		Cost:        g.NodeCount() + g.EdgeCount(),
	})
	plan.EstimatedCost = totalCost(plan.Steps)
	return plan
}

func totalCost(steps []PlanStep) int {
	total := 0
	for _, s := range steps {
		total += s.Cost
	}
	return total
}

func costDijkstra(n, e int) int {
	// (n + e) log n, integer-rounded.
	logN := 0
	for v := n; v > 1; v /= 2 {
		logN++
	}
	if logN == 0 {
		logN = 1
	}
	return (n + e) * logN
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
