package graph

import (
	"fmt"
	"sort"
	"strings"
)

type dependentsGraph map[string]map[string]bool

// buildDependents inverts the prerequisite edges of every artifact rule.
// Phony aggregates are left out so impact reports only name files make
// would rebuild.
func buildDependents(g *BuildGraph) dependentsGraph {
	deps := make(dependentsGraph)
	for _, r := range g.Rules {
		if r.Phony {
			continue
		}
		for _, p := range r.Prereqs {
			if p == "" || p == r.Target {
				continue
			}
			if deps[p] == nil {
				deps[p] = make(map[string]bool)
			}
			deps[p][r.Target] = true
		}
	}
	return deps
}

// Dependents returns the artifact targets that list node as a direct
// prerequisite, sorted.
func (g *BuildGraph) Dependents(node string) []string {
	deps := buildDependents(g)[node]
	out := make([]string, 0, len(deps))
	for t := range deps {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// ImpactReport lists what rebuilds after Root changes, one level per hop.
type ImpactReport struct {
	Root   string     `json:"root" yaml:"root"`
	Levels [][]string `json:"levels" yaml:"levels"`
}

// Total is the number of artifacts across all levels.
func (r ImpactReport) Total() int {
	n := 0
	for _, l := range r.Levels {
		n += len(l)
	}
	return n
}

// Impact walks dependents breadth-first from root, which may be a source
// path or an artifact target.
func (g *BuildGraph) Impact(root string) ImpactReport {
	dependents := buildDependents(g)
	visited := map[string]bool{root: true}
	frontier := []string{root}
	var levels [][]string

	for len(frontier) > 0 {
		var next []string
		for _, f := range frontier {
			for dep := range dependents[f] {
				if visited[dep] {
					continue
				}
				visited[dep] = true
				next = append(next, dep)
			}
		}
		if len(next) == 0 {
			break
		}
		sort.Strings(next)
		levels = append(levels, next)
		frontier = next
	}

	return ImpactReport{Root: root, Levels: levels}
}

// Format renders the report for terminal output.
func (r ImpactReport) Format() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("  %s\n", r.Root))
	if len(r.Levels) == 0 {
		b.WriteString("    nothing depends on it\n")
		return b.String()
	}
	for i, level := range r.Levels {
		b.WriteString(fmt.Sprintf("    level %d (%d): %s\n", i+1, len(level), strings.Join(level, ", ")))
	}
	return b.String()
}
