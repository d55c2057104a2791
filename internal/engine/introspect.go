package engine

import (
	"lattice/internal/optimizer"
	pkgerrors "lattice/pkg/errors"
)

// Introspection surface. Explain and Stats are read-only: they never count
// accesses, build indices, or log substitutions.

// Explain returns the execution plan an operation would use right now. The
// plan is built by the same selection logic the live operation runs, so it
// reflects current indices and declared rules.
//
// Supported operations: "find_node" (args: property name), "shortest_path",
// and the traversals "bfs", "dfs", "pre_order", "in_order", "post_order",
// "topological_sort".
func (e *Engine) Explain(operation string, args ...string) (*optimizer.Plan, error) {
	switch operation {
	case "find_node":
		if len(args) < 1 {
			return nil, pkgerrors.NewValidation("find_node explain requires a property name")
		}
		return e.opt.ExplainFindByProperty(e.graph, args[0]), nil

	case "shortest_path":
		return e.opt.ExplainShortestPath(e.graph, e.HasRule, e.ruleLimit), nil

	case "bfs", "dfs", "pre_order", "in_order", "post_order", "topological_sort":
		return e.opt.ExplainTraversal(e.graph, operation), nil

	default:
		return nil, pkgerrors.NewValidation("cannot explain operation: " + operation)
	}
}

// Stats snapshots the engine's observable state: sizes, degree distribution,
// auto-created indices with their rationales, the substitution log, and the
// raw access counters.
func (e *Engine) Stats() *optimizer.Stats {
	return e.opt.Stats(e.graph)
}
