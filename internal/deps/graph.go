// Package deps validates and repairs the dependency graph of a task
// collection.
package deps

import (
	"sort"
	"strings"

	"github.com/randalmurphal/taskmaster/internal/task"
)

// Edge is a dependency edge: From depends on To.
type Edge struct {
	From task.Ref
	To   task.Ref
}

// graph maps each task or subtask to the refs it depends on, with subtask
// sibling shorthand already resolved.
type graph map[task.Ref][]task.Ref

func buildGraph(tasks []task.Task, extra []Edge) graph {
	g := make(graph)
	for _, t := range tasks {
		owner := t.Ref()
		for _, dep := range t.Dependencies {
			g[owner] = append(g[owner], dep)
		}
		for _, s := range t.Subtasks {
			owner := s.Ref(t.ID)
			for _, dep := range s.Dependencies {
				g[owner] = append(g[owner], task.ResolveDep(tasks, owner, dep))
			}
		}
	}
	for _, e := range extra {
		g[e.From] = append(g[e.From], e.To)
	}
	return g
}

// nodes returns every node in the graph in a stable order.
func (g graph) nodes() []task.Ref {
	out := make([]task.Ref, 0, len(g))
	for n := range g {
		out = append(out, n)
	}
	sortRefs(out)
	return out
}

type frame struct {
	node task.Ref
	next int
}

// IsCircular reports whether a depth-first walk of the dependency graph
// starting at start reaches a node that is still on the walk's stack.
// Extra edges are treated as if already present, which lets callers check a
// prospective dependency before applying it. The walk is iterative.
func IsCircular(tasks []task.Task, start task.Ref, extra ...Edge) bool {
	g := buildGraph(tasks, extra)
	return walkFindsBackEdge(g, start, make(map[task.Ref]bool))
}

func walkFindsBackEdge(g graph, start task.Ref, visited map[task.Ref]bool) bool {
	onStack := map[task.Ref]bool{start: true}
	visited[start] = true
	stack := []frame{{node: start}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		edges := g[top.node]
		if top.next >= len(edges) {
			onStack[top.node] = false
			stack = stack[:len(stack)-1]
			continue
		}
		next := edges[top.next]
		top.next++

		if onStack[next] {
			return true
		}
		if visited[next] {
			continue
		}
		visited[next] = true
		onStack[next] = true
		stack = append(stack, frame{node: next})
	}
	return false
}

// HasCycle reports whether any cycle exists in the collection.
func HasCycle(tasks []task.Task) bool {
	g := buildGraph(tasks, nil)
	visited := make(map[task.Ref]bool)
	for _, n := range g.nodes() {
		if visited[n] {
			continue
		}
		if walkFindsBackEdge(g, n, visited) {
			return true
		}
	}
	return false
}

// FindCycles returns each distinct cycle in the collection as the ordered
// list of refs along it, rotated to start at its smallest ref.
func FindCycles(tasks []task.Task) [][]task.Ref {
	g := buildGraph(tasks, nil)
	visited := make(map[task.Ref]bool)
	seen := make(map[string]bool)
	var cycles [][]task.Ref

	for _, root := range g.nodes() {
		if visited[root] {
			continue
		}
		visited[root] = true
		onStack := map[task.Ref]bool{root: true}
		stack := []frame{{node: root}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			edges := g[top.node]
			if top.next >= len(edges) {
				onStack[top.node] = false
				stack = stack[:len(stack)-1]
				continue
			}
			next := edges[top.next]
			top.next++

			if onStack[next] {
				cycle := cycleFromStack(stack, next)
				if key := cycleKey(cycle); !seen[key] {
					seen[key] = true
					cycles = append(cycles, cycle)
				}
				continue
			}
			if visited[next] {
				continue
			}
			visited[next] = true
			onStack[next] = true
			stack = append(stack, frame{node: next})
		}
	}
	return cycles
}

// cycleFromStack extracts the stack segment from target to the top and
// rotates it to begin at its smallest ref.
func cycleFromStack(stack []frame, target task.Ref) []task.Ref {
	start := 0
	for i, f := range stack {
		if f.node == target {
			start = i
			break
		}
	}
	cycle := make([]task.Ref, 0, len(stack)-start)
	for _, f := range stack[start:] {
		cycle = append(cycle, f.node)
	}
	lo := 0
	for i := range cycle {
		if refLess(cycle[i], cycle[lo]) {
			lo = i
		}
	}
	rotated := make([]task.Ref, 0, len(cycle))
	rotated = append(rotated, cycle[lo:]...)
	return append(rotated, cycle[:lo]...)
}

func cycleKey(cycle []task.Ref) string {
	parts := make([]string, len(cycle))
	for i, r := range cycle {
		parts[i] = r.String()
	}
	return strings.Join(parts, "->")
}

func refLess(a, b task.Ref) bool {
	if a.ID != b.ID {
		return a.ID < b.ID
	}
	return a.Sub < b.Sub
}

func sortRefs(refs []task.Ref) {
	sort.Slice(refs, func(i, j int) bool { return refLess(refs[i], refs[j]) })
}
