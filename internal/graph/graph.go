package graph

import (
	"sort"

	"github.com/rigflow/rigflow/internal/pipeline"
)

// Graph is the execution dependency structure of a pipeline: vertices are
// node ids, edges point from a producing node to a consuming node. Parallel
// edges between the same pair (distinct handles) collapse to one dependency.
type Graph struct {
	ids  []string
	succ map[string][]string
	pred map[string][]string
}

// Build constructs a Graph from a definition's nodes and edges. Edges whose
// endpoints are unknown are ignored; definition validation reports those.
func Build(nodes []pipeline.Node, edges []pipeline.Edge) *Graph {
	g := &Graph{
		succ: make(map[string][]string, len(nodes)),
		pred: make(map[string][]string, len(nodes)),
	}

	seen := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		if _, dup := seen[n.ID]; dup {
			continue
		}
		seen[n.ID] = struct{}{}
		g.ids = append(g.ids, n.ID)
	}

	type pair struct{ from, to string }
	linked := make(map[pair]struct{}, len(edges))
	for _, e := range edges {
		if _, ok := seen[e.Source]; !ok {
			continue
		}
		if _, ok := seen[e.Target]; !ok {
			continue
		}
		p := pair{e.Source, e.Target}
		if _, dup := linked[p]; dup {
			continue
		}
		linked[p] = struct{}{}
		g.succ[e.Source] = append(g.succ[e.Source], e.Target)
		g.pred[e.Target] = append(g.pred[e.Target], e.Source)
	}

	for id := range g.succ {
		sort.Strings(g.succ[id])
	}
	for id := range g.pred {
		sort.Strings(g.pred[id])
	}

	return g
}

// Len returns the number of vertices.
func (g *Graph) Len() int {
	return len(g.ids)
}

// NodeIDs returns the vertex ids in insertion order.
func (g *Graph) NodeIDs() []string {
	return append([]string(nil), g.ids...)
}

// Successors returns the direct dependents of a node.
func (g *Graph) Successors(id string) []string {
	return append([]string(nil), g.succ[id]...)
}

// Predecessors returns the direct dependencies of a node.
func (g *Graph) Predecessors(id string) []string {
	return append([]string(nil), g.pred[id]...)
}

// IsDAG reports whether the graph is acyclic.
func (g *Graph) IsDAG() bool {
	_, err := g.TopologicalOrder()
	return err == nil
}

// TopologicalOrder computes a deterministic topological order using Kahn's
// algorithm, with ids sorted inside each ready set. Returns errCycle when
// the graph contains a cycle.
func (g *Graph) TopologicalOrder() ([]string, error) {
	indegree := make(map[string]int, len(g.ids))
	for _, id := range g.ids {
		indegree[id] = len(g.pred[id])
	}

	var queue []string
	for _, id := range g.ids {
		if indegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	order := make([]string, 0, len(g.ids))
	for len(queue) > 0 {
		current := queue
		var next []string
		for _, id := range current {
			order = append(order, id)
			for _, dep := range g.succ[id] {
				indegree[dep]--
				if indegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		sort.Strings(next)
		queue = next
	}

	if len(order) != len(g.ids) {
		return nil, errCycle
	}
	return order, nil
}

// Levels groups vertices into ready sets: each level contains every node
// whose remaining predecessors are all in earlier levels. If nothing is
// ready while nodes remain (impossible on a valid DAG), one remaining node
// is emitted as a singleton level so the scheduler never hangs.
func (g *Graph) Levels() [][]string {
	remaining := make(map[string]struct{}, len(g.ids))
	for _, id := range g.ids {
		remaining[id] = struct{}{}
	}

	var levels [][]string
	for len(remaining) > 0 {
		var ready []string
		for id := range remaining {
			blocked := false
			for _, dep := range g.pred[id] {
				if _, pending := remaining[dep]; pending {
					blocked = true
					break
				}
			}
			if !blocked {
				ready = append(ready, id)
			}
		}

		if len(ready) == 0 {
			var rest []string
			for id := range remaining {
				rest = append(rest, id)
			}
			sort.Strings(rest)
			ready = rest[:1]
		}

		sort.Strings(ready)
		for _, id := range ready {
			delete(remaining, id)
		}
		levels = append(levels, ready)
	}

	return levels
}
