package graph

import (
	pkgerrors "lattice/pkg/errors"
)

// BFS returns node ids in breadth-first order from start. Neighbor order
// follows the adjacency lists, so output is deterministic.
func (g *Graph) BFS(start string) ([]string, error) {
	if !g.HasNode(start) {
		return nil, pkgerrors.NewReferential("start node not found", start)
	}

	visited := map[string]bool{start: true}
	order := []string{start}
	queue := []string{start}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		neighbors, _ := g.Neighbors(current)
		for _, next := range neighbors {
			if !visited[next] {
				visited[next] = true
				order = append(order, next)
				queue = append(queue, next)
			}
		}
	}
	return order, nil
}

// DFS returns node ids in depth-first preorder from start.
func (g *Graph) DFS(start string) ([]string, error) {
	if !g.HasNode(start) {
		return nil, pkgerrors.NewReferential("start node not found", start)
	}

	visited := make(map[string]bool)
	var order []string
	var visit func(id string)
	visit = func(id string) {
		visited[id] = true
		order = append(order, id)
		neighbors, _ := g.Neighbors(id)
		for _, next := range neighbors {
			if !visited[next] {
				visit(next)
			}
		}
	}
	visit(start)
	return order, nil
}

// children returns the outgoing targets of id in adjacency-list order.
// Tree-style traversals always follow outgoing edges, even on undirected
// graphs, so a parent is never revisited as its own child.
func (g *Graph) children(id string) []string {
	node := g.nodes[id]
	out := make([]string, 0, len(node.outgoing))
	for _, edgeID := range node.outgoing {
		out = append(out, g.edges[edgeID].TargetID)
	}
	return out
}

// PreOrder returns root, then each subtree left to right.
func (g *Graph) PreOrder(root string) ([]string, error) {
	if !g.HasNode(root) {
		return nil, pkgerrors.NewReferential("root node not found", root)
	}
	var order []string
	visited := make(map[string]bool)
	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		order = append(order, id)
		for _, child := range g.children(id) {
			visit(child)
		}
	}
	visit(root)
	return order, nil
}

// PostOrder returns each subtree left to right, then root.
func (g *Graph) PostOrder(root string) ([]string, error) {
	if !g.HasNode(root) {
		return nil, pkgerrors.NewReferential("root node not found", root)
	}
	var order []string
	visited := make(map[string]bool)
	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, child := range g.children(id) {
			visit(child)
		}
		order = append(order, id)
	}
	visit(root)
	return order, nil
}

// InOrder returns left subtree, node, right subtree, assuming binary
// branching: the first outgoing edge is the left child, the second the
// right. For nodes with more than two children the first child is traversed
// before the node and all remaining children after it, in edge order. This
// generalization is implementation-defined; callers wanting strict binary
// semantics should attach a max-children rule.
func (g *Graph) InOrder(root string) ([]string, error) {
	if !g.HasNode(root) {
		return nil, pkgerrors.NewReferential("root node not found", root)
	}
	var order []string
	visited := make(map[string]bool)
	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		children := g.children(id)
		if len(children) > 0 {
			visit(children[0])
		}
		order = append(order, id)
		if len(children) > 1 {
			for _, child := range children[1:] {
				visit(child)
			}
		}
	}
	visit(root)
	return order, nil
}
