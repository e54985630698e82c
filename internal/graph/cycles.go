package graph

import (
	"errors"
	"sort"
)

var errCycle = errors.New("graph contains a cycle")

// Cycles enumerates every simple cycle in the graph. Each cycle is reported
// once, rotated so its lexicographically smallest vertex leads, and closed by
// repeating the leading vertex ("a -> b -> a" reports as [a b a]). The result
// is nonempty exactly when the graph is not a DAG.
func (g *Graph) Cycles() [][]string {
	ids := append([]string(nil), g.ids...)
	sort.Strings(ids)

	rank := make(map[string]int, len(ids))
	for i, id := range ids {
		rank[id] = i
	}

	var cycles [][]string
	var path []string
	onPath := make(map[string]bool, len(ids))

	var dfs func(start, current string)
	dfs = func(start, current string) {
		path = append(path, current)
		onPath[current] = true

		for _, next := range g.succ[current] {
			if next == start {
				cycle := append(append([]string(nil), path...), start)
				cycles = append(cycles, cycle)
				continue
			}
			// Only walk vertices ranked after the start so every cycle is
			// discovered from its smallest vertex exactly once.
			if rank[next] <= rank[start] || onPath[next] {
				continue
			}
			dfs(start, next)
		}

		onPath[current] = false
		path = path[:len(path)-1]
	}

	for _, id := range ids {
		dfs(id, id)
	}

	sort.Slice(cycles, func(i, j int) bool {
		a, b := cycles[i], cycles[j]
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return len(a) < len(b)
	})

	return cycles
}
