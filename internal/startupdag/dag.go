package startupdag

import (
	"sort"
	"strings"
	"sync"

	"github.com/angeloszaimis/recovery-kernel/internal/registry"
)

// CycleError reports a dependency cycle. Path holds the components along
// the cycle with the entry node repeated at the end, e.g. [a b c a].
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "dependency cycle detected: " + strings.Join(e.Path, " -> ")
}

// DAG builds and caches the tiered startup plan for a registry's fleet.
// Build is synchronous and deterministic: tiers are sorted lexicographically
// and the same definitions always produce the same plan.
type DAG struct {
	registry registry.Registry

	mutex sync.Mutex
	graph map[string][]string
	tiers [][]string
}

func New(reg registry.Registry) *DAG {
	return &DAG{registry: reg}
}

// Build collects every referenced node (declared components plus names that
// only appear as dependencies), rejects cycles, and returns the startup
// tiers. The result is cached until the next Build call.
func (d *DAG) Build() ([][]string, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.graph = make(map[string][]string)
	for _, defn := range d.registry.AllDefinitions() {
		deps := make([]string, 0, len(defn.Dependencies))
		for _, dep := range defn.Dependencies {
			deps = append(deps, dep.Component)
		}
		d.graph[defn.Name] = deps
	}

	if cycle := d.detectCycle(); cycle != nil {
		d.tiers = nil
		return nil, &CycleError{Path: cycle}
	}

	d.tiers = d.topologicalTiers()
	return d.tiers, nil
}

// Tiers returns the cached plan from the last successful Build, or nil if
// Build has not run.
func (d *DAG) Tiers() [][]string {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.tiers
}

// Tier returns the tier index of a component, building the plan first if
// needed. Unknown components yield -1.
func (d *DAG) Tier(component string) (int, error) {
	d.mutex.Lock()
	built := d.tiers != nil
	d.mutex.Unlock()

	if !built {
		if _, err := d.Build(); err != nil {
			return -1, err
		}
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()
	for i, tier := range d.tiers {
		for _, name := range tier {
			if name == component {
				return i, nil
			}
		}
	}
	return -1, nil
}

const (
	unvisited = iota
	inProgress
	visited
)

// detectCycle runs a three-color DFS over the graph. It returns the cycle
// path if a back-edge is found, nil otherwise. Nodes are walked in sorted
// order so the reported cycle is deterministic.
func (d *DAG) detectCycle() []string {
	nodes := d.allNodes()

	color := make(map[string]int, len(nodes))
	var path []string

	var dfs func(node string) []string
	dfs = func(node string) []string {
		switch color[node] {
		case visited:
			return nil
		case inProgress:
			for i, seen := range path {
				if seen == node {
					cycle := append([]string{}, path[i:]...)
					return append(cycle, node)
				}
			}
			return append([]string{}, node, node)
		}

		color[node] = inProgress
		path = append(path, node)

		for _, dep := range d.graph[node] {
			if cycle := dfs(dep); cycle != nil {
				return cycle
			}
		}

		path = path[:len(path)-1]
		color[node] = visited
		return nil
	}

	for _, node := range nodes {
		if color[node] == unvisited {
			if cycle := dfs(node); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// topologicalTiers runs a Kahn's algorithm variant: every node whose
// remaining dependency count is zero joins the current tier, then the tier
// is removed and dependents are decremented. Assumes detectCycle passed.
func (d *DAG) topologicalTiers() [][]string {
	inDegree := make(map[string]int)
	for _, node := range d.allNodes() {
		inDegree[node] = 0
	}
	for node, deps := range d.graph {
		inDegree[node] = len(deps)
	}

	remaining := make(map[string]bool, len(inDegree))
	for node := range inDegree {
		remaining[node] = true
	}

	var tiers [][]string
	for len(remaining) > 0 {
		var tier []string
		for node := range remaining {
			if inDegree[node] == 0 {
				tier = append(tier, node)
			}
		}
		if len(tier) == 0 {
			// Unreachable once detectCycle passed.
			return tiers
		}
		sort.Strings(tier)
		tiers = append(tiers, tier)

		for _, node := range tier {
			delete(remaining, node)
			for other, deps := range d.graph {
				if !remaining[other] {
					continue
				}
				for _, dep := range deps {
					if dep == node {
						inDegree[other]--
					}
				}
			}
		}
	}
	return tiers
}

// allNodes returns declared components plus every name referenced only as a
// dependency, sorted for deterministic traversal.
func (d *DAG) allNodes() []string {
	seen := make(map[string]bool, len(d.graph))
	for node, deps := range d.graph {
		seen[node] = true
		for _, dep := range deps {
			seen[dep] = true
		}
	}

	nodes := make([]string, 0, len(seen))
	for node := range seen {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	return nodes
}
