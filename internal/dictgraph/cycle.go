package dictgraph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/heartmarshall/submission-backend/internal/domain"
)

// CycleError reports a foreign-key cycle between schemas.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("foreign key cycle: %s", strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error { return domain.ErrBadRequest }

// ValidateAcyclic returns a *CycleError when the foreign keys of schemas form a
// cycle, including a schema that references itself.
func ValidateAcyclic(schemas []domain.Schema) error {
	edges := make(map[string][]string, len(schemas))
	for _, s := range schemas {
		if _, ok := edges[s.Name]; !ok {
			edges[s.Name] = nil
		}
		for _, fk := range s.ForeignKeys {
			edges[s.Name] = append(edges[s.Name], fk.Schema)
		}
	}

	for _, scc := range stronglyConnected(edges) {
		if len(scc) > 1 {
			return &CycleError{Path: cyclePath(scc, edges)}
		}
		if hasSelfLoop(scc[0], edges) {
			return &CycleError{Path: []string{scc[0], scc[0]}}
		}
	}
	return nil
}

func hasSelfLoop(node string, edges map[string][]string) bool {
	for _, w := range edges[node] {
		if w == node {
			return true
		}
	}
	return false
}

// stronglyConnected runs Tarjan's algorithm. Nodes are visited in name order so
// the reported cycle is stable.
func stronglyConnected(edges map[string][]string) [][]string {
	var (
		index   int
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var connect func(string)
	connect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range edges[v] {
			if _, seen := indices[w]; !seen {
				connect(w)
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

	names := make([]string, 0, len(edges))
	for name := range edges {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, seen := indices[name]; !seen {
			connect(name)
		}
	}
	return sccs
}

// cyclePath walks edges inside scc from its smallest member until it returns
// to the start.
func cyclePath(scc []string, edges map[string][]string) []string {
	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}
	sorted := append([]string(nil), scc...)
	sort.Strings(sorted)
	start := sorted[0]

	path := []string{start}
	visited := map[string]bool{start: true}
	current := start
	for {
		next := ""
		for _, w := range edges[current] {
			if w == start {
				return append(path, start)
			}
			if members[w] && !visited[w] && next == "" {
				next = w
			}
		}
		if next == "" {
			return append(path, start)
		}
		visited[next] = true
		path = append(path, next)
		current = next
	}
}
