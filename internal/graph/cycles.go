package graph

import (
	"sort"
	"strings"
)

// Cycles reports prerequisite cycles between rules, one "a -> b -> a"
// string per cycle. Prerequisites that no rule produces (source files)
// are leaves. Output is deterministic.
func (g *BuildGraph) Cycles() []string {
	edges := make(map[string][]string, len(g.Rules))
	known := make(map[string]bool, len(g.Rules))
	for _, r := range g.Rules {
		known[r.Target] = true
		edges[r.Target] = append(edges[r.Target], r.Prereqs...)
	}

	nodes := make([]string, 0, len(known))
	for n := range known {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)

	// 0 unvisited, 1 on stack, 2 done.
	color := make(map[string]int)
	var cycles []string
	var path []string

	var dfs func(node string)
	dfs = func(node string) {
		switch color[node] {
		case 2:
			return
		case 1:
			for i, n := range path {
				if n == node {
					loop := append(append([]string{}, path[i:]...), node)
					cycles = append(cycles, strings.Join(loop, " -> "))
					return
				}
			}
			return
		}
		color[node] = 1
		path = append(path, node)
		next := append([]string{}, edges[node]...)
		sort.Strings(next)
		for _, n := range next {
			if known[n] {
				dfs(n)
			}
		}
		path = path[:len(path)-1]
		color[node] = 2
	}

	for _, n := range nodes {
		if color[n] == 0 {
			dfs(n)
		}
	}
	return cycles
}
