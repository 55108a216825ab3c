package indexer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/robert-at-pretension-io/rtl-inventory/internal/facts"
)

// dependentsGraph maps a module name to the modules that instantiate it.
type dependentsGraph map[string]map[string]bool

func buildDependentsGraph(idx facts.Index) dependentsGraph {
	graph := make(dependentsGraph)
	for _, row := range idx.Modules {
		for _, parent := range row.InstantiatedBy {
			if parent == row.ModuleName {
				continue
			}
			if graph[row.ModuleName] == nil {
				graph[row.ModuleName] = make(map[string]bool)
			}
			graph[row.ModuleName][parent] = true
		}
	}
	return graph
}

// ImpactReport lists the transitive instantiators of a module, grouped by
// distance: level 1 instantiates Root directly, level 2 instantiates level 1,
// and so on.
type ImpactReport struct {
	Root   string     `json:"root"`
	Levels [][]string `json:"levels"`
}

// Total counts every module reached.
func (r ImpactReport) Total() int {
	n := 0
	for _, level := range r.Levels {
		n += len(level)
	}
	return n
}

// Impact computes the instantiator closure of module over the index.
func Impact(idx facts.Index, module string) ImpactReport {
	return computeImpact(module, buildDependentsGraph(idx))
}

func computeImpact(root string, dependents dependentsGraph) ImpactReport {
	visited := map[string]bool{root: true}
	frontier := []string{root}
	levels := [][]string{}

	for len(frontier) > 0 {
		var next []string
		for _, m := range frontier {
			for dep := range dependents[m] {
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

// Format renders the report as indented text.
func (r ImpactReport) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %s\n", r.Root)
	for i, level := range r.Levels {
		fmt.Fprintf(&b, "    level %d (%d): %s\n", i+1, len(level), strings.Join(level, ", "))
	}
	return b.String()
}
