package engine

import (
	"time"

	"lattice/internal/graph"
	"lattice/internal/optimizer"
	pkgerrors "lattice/pkg/errors"
)

// Read operations. None of them invoke behaviors, and none can violate a
// rule; they only consult the optimizer for routing and record accesses.

// HasNode reports whether the node exists.
func (e *Engine) HasNode(id string) bool {
	return e.graph.HasNode(id)
}

// HasEdge reports whether the edge exists.
func (e *Engine) HasEdge(id string) bool {
	return e.graph.HasEdge(id)
}

// NodeValue returns a node's payload value.
func (e *Engine) NodeValue(id string) (any, error) {
	node, err := e.graph.Node(id)
	if err != nil {
		return nil, err
	}
	return node.Value(), nil
}

// Contains reports whether any node's payload equals value.
func (e *Engine) Contains(value any) bool {
	e.opt.RecordOperation("contains")
	return e.graph.Contains(value)
}

// Neighbors returns the ids one hop from id, optionally filtered by edge
// type. Single-hop queries read the node's adjacency lists directly.
func (e *Engine) Neighbors(id string, edgeTypes ...string) ([]string, error) {
	e.opt.RecordOperation("neighbors")
	return e.graph.Neighbors(id, edgeTypes...)
}

// FindNodes returns the ids of nodes whose named property equals value.
// Every call counts toward the property's auto-index threshold; once the
// property runs hot the lookup is served from the index instead of a scan.
func (e *Engine) FindNodes(property string, value any) []string {
	defer e.observe("find_node", time.Now())
	e.opt.RecordOperation("find_node")
	return e.opt.FindByProperty(e.graph, property, value)
}

// EdgesByType returns the ids of edges carrying the given type, counted
// toward the type's auto-index threshold.
func (e *Engine) EdgesByType(edgeType string) []string {
	defer e.observe("edges_by_type", time.Now())
	e.opt.RecordOperation("edges_by_type")
	return e.opt.EdgesByType(e.graph, edgeType)
}

// BFS returns node ids in breadth-first order from start.
func (e *Engine) BFS(start string) ([]string, error) {
	e.opt.RecordOperation("bfs")
	return e.graph.BFS(start)
}

// DFS returns node ids in depth-first order from start.
func (e *Engine) DFS(start string) ([]string, error) {
	e.opt.RecordOperation("dfs")
	return e.graph.DFS(start)
}

// PreOrder walks the graph tree-style from root.
func (e *Engine) PreOrder(root string) ([]string, error) {
	e.opt.RecordOperation("pre_order")
	return e.graph.PreOrder(root)
}

// InOrder walks the graph tree-style from root, assuming binary branching.
func (e *Engine) InOrder(root string) ([]string, error) {
	e.opt.RecordOperation("in_order")
	return e.graph.InOrder(root)
}

// PostOrder walks the graph tree-style from root.
func (e *Engine) PostOrder(root string) ([]string, error) {
	e.opt.RecordOperation("post_order")
	return e.graph.PostOrder(root)
}

// ShortestPath returns a shortest path between two nodes. The algorithm is
// picked by the optimizer — BFS, Dijkstra, or, when a no-cycles rule
// licenses it, topological relaxation — without changing the result. A
// connectivity rule licenses skipping the component precheck.
func (e *Engine) ShortestPath(from, to string) ([]string, error) {
	defer e.observe("shortest_path", time.Now())
	e.opt.RecordOperation("shortest_path")

	if err := e.precheckReachable(from, to); err != nil {
		return nil, err
	}

	algo, _ := e.opt.SelectPathAlgorithm(e.graph, e.HasRule)
	switch algo {
	case optimizer.AlgoDAG:
		return e.graph.ShortestPathDAG(from, to)
	case optimizer.AlgoDijkstra:
		return e.graph.ShortestPathDijkstra(from, to)
	default:
		return e.graph.ShortestPathBFS(from, to)
	}
}

// HasPath reports whether a directed path exists from from to to.
func (e *Engine) HasPath(from, to string) (bool, error) {
	e.opt.RecordOperation("has_path")
	return e.graph.HasPath(from, to)
}

// Distance returns the shortest-path length: hops on unweighted graphs,
// total weight otherwise.
func (e *Engine) Distance(from, to string) (float64, error) {
	defer e.observe("distance", time.Now())
	e.opt.RecordOperation("distance")

	path, err := e.ShortestPath(from, to)
	if err != nil {
		return 0, err
	}
	if !e.graph.Weighted() {
		return float64(len(path) - 1), nil
	}
	return e.graph.Distance(from, to)
}

// AllPaths enumerates every simple path from from to to with at most maxLen
// edges; maxLen <= 0 selects the configured default bound.
func (e *Engine) AllPaths(from, to string, maxLen int) ([][]string, error) {
	defer e.observe("all_paths", time.Now())
	e.opt.RecordOperation("all_paths")

	if maxLen <= 0 {
		maxLen = e.cfg.AllPathsMaxLength
	}
	return e.graph.AllPaths(from, to, maxLen)
}

// TopologicalSort orders the nodes topologically, failing with a distinct
// cycle error when the graph is cyclic — whether or not an acyclicity rule
// is declared.
func (e *Engine) TopologicalSort() ([]string, error) {
	defer e.observe("topological_sort", time.Now())
	e.opt.RecordOperation("topological_sort")
	return e.graph.TopologicalSort()
}

// Roots returns the ids of nodes with no incoming edges.
func (e *Engine) Roots() []string {
	return e.graph.Roots()
}

// precheckReachable fails path queries fast when the endpoints provably
// share no component. A declared connectivity rule guarantees one component
// and licenses skipping the check; skipping can never change the result
// because weak non-reachability already proves no directed path exists.
func (e *Engine) precheckReachable(from, to string) error {
	if skip, _ := e.opt.SkipReachabilityCheck(e.HasRule); skip {
		return nil
	}
	if !e.graph.HasNode(from) {
		return pkgerrors.NewReferential("start node not found", from)
	}
	if !e.graph.HasNode(to) {
		return pkgerrors.NewReferential("end node not found", to)
	}
	if !e.graph.WeaklyReachable(from, to) {
		return pkgerrors.NewReferential("no path between nodes", from+" -> "+to)
	}
	return nil
}

// Kind returns whether the engine's graph is directed or undirected.
func (e *Engine) Kind() graph.Kind {
	return e.graph.Kind()
}

// NodeCount returns the number of nodes.
func (e *Engine) NodeCount() int {
	return e.graph.NodeCount()
}

// EdgeCount returns the number of edges.
func (e *Engine) EdgeCount() int {
	return e.graph.EdgeCount()
}
