package graph

import (
	"container/heap"

	pkgerrors "lattice/pkg/errors"
)

// ErrCycle is returned when an algorithm requiring an acyclic graph meets a
// cycle. It is distinct from not-found failures so callers can tell a
// structural precondition failure from a missing path.
var ErrCycle = pkgerrors.NewStructuralViolation("acyclic-precondition", "graph contains a cycle", "")

// Weighted reports whether any edge carries a weight other than the default.
// Path routines use this to pick plain BFS over Dijkstra.
func (g *Graph) Weighted() bool {
	for _, id := range g.edgeOrder {
		if g.edges[id].Weight != DefaultWeight {
			return true
		}
	}
	return false
}

// ShortestPath returns the node ids of a shortest path from from to to:
// fewest edges on unweighted graphs (BFS), minimal total weight otherwise
// (Dijkstra). Returns a referential error when either endpoint is missing
// and a not-found path error when no path exists.
func (g *Graph) ShortestPath(from, to string) ([]string, error) {
	if g.Weighted() {
		return g.ShortestPathDijkstra(from, to)
	}
	return g.ShortestPathBFS(from, to)
}

// ShortestPathBFS finds a fewest-edges path using breadth-first search.
func (g *Graph) ShortestPathBFS(from, to string) ([]string, error) {
	if err := g.checkEndpoints(from, to); err != nil {
		return nil, err
	}
	if from == to {
		return []string{from}, nil
	}

	visited := map[string]bool{from: true}
	parent := make(map[string]string)
	queue := []string{from}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		neighbors, _ := g.Neighbors(current)
		for _, next := range neighbors {
			if visited[next] {
				continue
			}
			visited[next] = true
			parent[next] = current
			if next == to {
				return buildPath(parent, from, to), nil
			}
			queue = append(queue, next)
		}
	}
	return nil, pkgerrors.NewReferential("no path between nodes", from+" -> "+to)
}

// ShortestPathDijkstra finds a minimal-weight path. Ties break toward the
// node inserted earlier, keeping results deterministic.
func (g *Graph) ShortestPathDijkstra(from, to string) ([]string, error) {
	if err := g.checkEndpoints(from, to); err != nil {
		return nil, err
	}
	if from == to {
		return []string{from}, nil
	}

	orderIdx := make(map[string]int, len(g.nodeOrder))
	for i, id := range g.nodeOrder {
		orderIdx[id] = i
	}

	dist := map[string]float64{from: 0}
	parent := make(map[string]string)
	done := make(map[string]bool)

	pq := &nodeQueue{}
	heap.Init(pq)
	heap.Push(pq, &queueItem{id: from, dist: 0, order: orderIdx[from]})

	for pq.Len() > 0 {
		item := heap.Pop(pq).(*queueItem)
		if done[item.id] {
			continue
		}
		done[item.id] = true
		if item.id == to {
			return buildPath(parent, from, to), nil
		}

		for _, next := range g.weightedNeighbors(item.id) {
			if done[next.id] {
				continue
			}
			candidate := dist[item.id] + next.weight
			if current, seen := dist[next.id]; !seen || candidate < current {
				dist[next.id] = candidate
				parent[next.id] = item.id
				heap.Push(pq, &queueItem{id: next.id, dist: candidate, order: orderIdx[next.id]})
			}
		}
	}
	return nil, pkgerrors.NewReferential("no path between nodes", from+" -> "+to)
}

// ShortestPathDAG finds a shortest path by relaxing edges in topological
// order. Requires an acyclic graph; returns ErrCycle otherwise. On
// unweighted graphs edge count and total weight coincide, so results match
// ShortestPathBFS.
func (g *Graph) ShortestPathDAG(from, to string) ([]string, error) {
	if err := g.checkEndpoints(from, to); err != nil {
		return nil, err
	}
	if from == to {
		return []string{from}, nil
	}

	topo, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}

	dist := map[string]float64{from: 0}
	parent := make(map[string]string)
	started := false
	for _, id := range topo {
		if id == from {
			started = true
		}
		if !started {
			continue
		}
		current, reached := dist[id]
		if !reached {
			continue
		}
		for _, next := range g.weightedNeighbors(id) {
			candidate := current + next.weight
			if existing, seen := dist[next.id]; !seen || candidate < existing {
				dist[next.id] = candidate
				parent[next.id] = id
			}
		}
	}
	if _, reached := dist[to]; !reached {
		return nil, pkgerrors.NewReferential("no path between nodes", from+" -> "+to)
	}
	return buildPath(parent, from, to), nil
}

// HasPath reports whether to is reachable from from.
func (g *Graph) HasPath(from, to string) (bool, error) {
	if err := g.checkEndpoints(from, to); err != nil {
		return false, err
	}
	if from == to {
		return true, nil
	}
	visited := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		neighbors, _ := g.Neighbors(current)
		for _, next := range neighbors {
			if next == to {
				return true, nil
			}
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false, nil
}

// Distance returns the length of the shortest path: edge count on
// unweighted graphs, total weight otherwise.
func (g *Graph) Distance(from, to string) (float64, error) {
	path, err := g.ShortestPath(from, to)
	if err != nil {
		return 0, err
	}
	if !g.Weighted() {
		return float64(len(path) - 1), nil
	}
	total := 0.0
	for i := 0; i < len(path)-1; i++ {
		total += g.edgeWeightBetween(path[i], path[i+1])
	}
	return total, nil
}

// AllPaths returns every simple path from from to to with at most maxLen
// edges, in depth-first discovery order.
func (g *Graph) AllPaths(from, to string, maxLen int) ([][]string, error) {
	if err := g.checkEndpoints(from, to); err != nil {
		return nil, err
	}
	if maxLen <= 0 {
		return nil, pkgerrors.NewValidation("max path length must be positive")
	}

	var paths [][]string
	onPath := make(map[string]bool)
	var walk func(id string, path []string)
	walk = func(id string, path []string) {
		if id == to {
			found := make([]string, len(path))
			copy(found, path)
			paths = append(paths, found)
			return
		}
		if len(path)-1 >= maxLen {
			return
		}
		onPath[id] = true
		neighbors, _ := g.Neighbors(id)
		for _, next := range neighbors {
			if !onPath[next] {
				walk(next, append(path, next))
			}
		}
		onPath[id] = false
	}
	walk(from, []string{from})
	return paths, nil
}

// TopologicalSort returns a topological ordering of all nodes using Kahn's
// algorithm, breaking ties by insertion order. Returns ErrCycle when the
// graph is cyclic.
func (g *Graph) TopologicalSort() ([]string, error) {
	inDegree := make(map[string]int, len(g.nodes))
	for _, id := range g.nodeOrder {
		inDegree[id] = len(g.nodes[id].incoming)
	}

	var ready []string
	for _, id := range g.nodeOrder {
		if inDegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	var order []string
	for len(ready) > 0 {
		current := ready[0]
		ready = ready[1:]
		order = append(order, current)

		for _, edgeID := range g.nodes[current].outgoing {
			target := g.edges[edgeID].TargetID
			inDegree[target]--
			if inDegree[target] == 0 {
				ready = append(ready, target)
			}
		}
	}
	if len(order) != len(g.nodes) {
		return nil, ErrCycle
	}
	return order, nil
}

// HasCycle reports whether the directed graph contains a cycle.
func (g *Graph) HasCycle() bool {
	_, err := g.TopologicalSort()
	return err != nil
}

// FindCycleEdge returns the first edge, in insertion order, whose removal
// would break a cycle: the earliest edge that closes a path back to a node
// already reachable from its target. Returns nil when the graph is acyclic.
// The insertion-order guarantee is what makes "any"-mode repair
// deterministic.
func (g *Graph) FindCycleEdge() *Edge {
	for _, edgeID := range g.edgeOrder {
		edge := g.edges[edgeID]
		// The edge closes a cycle iff its source is reachable from its
		// target without using the edge itself.
		if g.reachableWithout(edge.TargetID, edge.SourceID, edgeID) {
			return edge
		}
	}
	return nil
}

// IsConnected reports whether the graph is weakly connected: ignoring edge
// direction, every node reaches every other. The empty graph is connected.
func (g *Graph) IsConnected() bool {
	if len(g.nodes) <= 1 {
		return true
	}
	start := g.nodeOrder[0]
	visited := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		node := g.nodes[current]
		for _, edgeID := range node.outgoing {
			next := g.edges[edgeID].TargetID
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
		for _, edgeID := range node.incoming {
			next := g.edges[edgeID].SourceID
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return len(visited) == len(g.nodes)
}

// WeaklyReachable reports whether to is reachable from from ignoring edge
// direction. A false result proves no directed path exists either, which is
// what makes it usable as a cheap precheck before path searches.
func (g *Graph) WeaklyReachable(from, to string) bool {
	if from == to {
		return g.HasNode(from)
	}
	if !g.HasNode(from) || !g.HasNode(to) {
		return false
	}
	visited := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		node := g.nodes[current]
		step := func(next string) bool {
			if next == to {
				return true
			}
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
			return false
		}
		for _, edgeID := range node.outgoing {
			if step(g.edges[edgeID].TargetID) {
				return true
			}
		}
		for _, edgeID := range node.incoming {
			if step(g.edges[edgeID].SourceID) {
				return true
			}
		}
	}
	return false
}

// reachableWithout reports whether to is reachable from from while skipping
// the named edge.
func (g *Graph) reachableWithout(from, to, skipEdgeID string) bool {
	if from == to {
		return true
	}
	visited := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, edgeID := range g.nodes[current].outgoing {
			if edgeID == skipEdgeID {
				continue
			}
			next := g.edges[edgeID].TargetID
			if next == to {
				return true
			}
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

func (g *Graph) checkEndpoints(from, to string) error {
	if !g.HasNode(from) {
		return pkgerrors.NewReferential("start node not found", from)
	}
	if !g.HasNode(to) {
		return pkgerrors.NewReferential("end node not found", to)
	}
	return nil
}

func (g *Graph) edgeWeightBetween(from, to string) float64 {
	node := g.nodes[from]
	best := 0.0
	found := false
	for _, edgeID := range node.outgoing {
		edge := g.edges[edgeID]
		if edge.TargetID == to && (!found || edge.Weight < best) {
			best = edge.Weight
			found = true
		}
	}
	if g.kind == Undirected {
		for _, edgeID := range node.incoming {
			edge := g.edges[edgeID]
			if edge.SourceID == to && (!found || edge.Weight < best) {
				best = edge.Weight
				found = true
			}
		}
	}
	return best
}

type weightedNeighbor struct {
	id     string
	weight float64
}

// weightedNeighbors lists one entry per adjacent edge, keeping parallel
// edges distinct so the cheapest is free to win relaxation.
func (g *Graph) weightedNeighbors(id string) []weightedNeighbor {
	node := g.nodes[id]
	out := make([]weightedNeighbor, 0, len(node.outgoing))
	for _, edgeID := range node.outgoing {
		edge := g.edges[edgeID]
		out = append(out, weightedNeighbor{id: edge.TargetID, weight: edge.Weight})
	}
	if g.kind == Undirected {
		for _, edgeID := range node.incoming {
			edge := g.edges[edgeID]
			out = append(out, weightedNeighbor{id: edge.SourceID, weight: edge.Weight})
		}
	}
	return out
}

func buildPath(parent map[string]string, from, to string) []string {
	path := []string{to}
	for current := to; current != from; {
		current = parent[current]
		path = append([]string{current}, path...)
	}
	return path
}

// Priority queue for Dijkstra.

type queueItem struct {
	id    string
	dist  float64
	order int
}

type nodeQueue []*queueItem

func (q nodeQueue) Len() int { return len(q) }

func (q nodeQueue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	return q[i].order < q[j].order
}

func (q nodeQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *nodeQueue) Push(x any) { *q = append(*q, x.(*queueItem)) }

func (q *nodeQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
