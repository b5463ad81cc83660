package compiler

import (
	"fmt"
	"strings"
)

// Cycle is a loop of node bindings: each node in Path feeds the next, and
// the last feeds the first again.
type Cycle struct {
	Path    []string `json:"path"` // e.g. ["LPF1", "FFT1", "LPF1"]
	Message string   `json:"message"`
}

// AnalyzeCycles finds binding loops among the nodes of a graph description.
//
// A node's outputs may never reach its own inputs, so unlike a live graph,
// where each binding is checked as it is made, a description can be checked
// as a whole before anything is built. Edges run from a node to every node
// it reads from; strongly connected components of more than one node, and
// nodes reading their own output, are loops.
//
// Nodes are visited in declaration order so results are stable.
func AnalyzeCycles(spec *GraphSpec) []Cycle {
	deps := buildDependencyGraph(spec)
	if len(deps.order) == 0 {
		return []Cycle{}
	}

	var cycles []Cycle
	for _, scc := range tarjanSCC(deps) {
		if len(scc) > 1 || hasSelfLoop(scc[0], deps) {
			cycles = append(cycles, sccToCycle(scc, deps))
		}
	}
	if cycles == nil {
		return []Cycle{}
	}
	return cycles
}

// dependencyGraph maps a node to the nodes it reads from.
type dependencyGraph struct {
	order []string
	edges map[string][]string
}

func buildDependencyGraph(spec *GraphSpec) dependencyGraph {
	g := dependencyGraph{edges: make(map[string][]string)}
	nodes := make(map[string]bool, len(spec.Nodes))
	for _, n := range spec.Nodes {
		nodes[n.HWName] = true
		g.order = append(g.order, n.HWName)
	}
	for _, n := range spec.Nodes {
		g.edges[n.HWName] = []string{}
		for _, in := range n.Inputs {
			up := refProducer(in.Stream)
			if nodes[up] {
				g.edges[n.HWName] = append(g.edges[n.HWName], up)
			}
		}
	}
	return g
}

// refProducer returns the first component of a stream reference.
func refProducer(ref string) string {
	ref = strings.TrimSpace(ref)
	if i := strings.IndexByte(ref, '.'); i >= 0 {
		return ref[:i]
	}
	return ref
}

func hasSelfLoop(node string, g dependencyGraph) bool {
	for _, up := range g.edges[node] {
		if up == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Single-node components without a self-loop are not loops.
func tarjanSCC(g dependencyGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.edges[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range g.order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

func sccToCycle(scc []string, g dependencyGraph) Cycle {
	if len(scc) == 1 {
		n := scc[0]
		return Cycle{
			Path:    []string{n, n},
			Message: fmt.Sprintf("node %s reads its own output", n),
		}
	}
	path := reconstructCyclePath(scc, g)
	return Cycle{
		Path:    path,
		Message: fmt.Sprintf("binding loop: %s", strings.Join(path, " <- ")),
	}
}

// reconstructCyclePath walks edges inside the component from its first
// member until it returns to it.
func reconstructCyclePath(scc []string, g dependencyGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)
	for {
		visited[current] = true

		var next string
		for _, up := range g.edges[current] {
			if members[up] && (!visited[up] || up == start) {
				next = up
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
