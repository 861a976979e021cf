package graph

import (
	"slices"
	"strings"
)

// FindCycles returns the circular dependency chains of s, each reported once
// in canonical rotation (starting at its lexicographically smallest member).
//
// A depth-first search starts from every node, in Files order, that is not
// already part of a reported cycle. The search tracks its path stack and
// emits the stack slice whenever it reaches a node already on the stack.
// Paths longer than maxDepth are not explored, so the result is exhaustive
// only for cycles of at most maxDepth modules; a cycle that is only reachable
// through an already-explored branch of the same search may be missed and
// found from a later start node instead. Self-imports are reported as cycles
// of length one.
func FindCycles(s *Structure, maxDepth int) []Cycle {
	if s == nil || maxDepth < 1 {
		return []Cycle{}
	}

	cycles := []Cycle{}
	reported := make(map[string]bool)
	covered := make(map[string]bool)

	for _, start := range s.Files {
		if covered[start] {
			continue
		}

		visited := make(map[string]bool)
		onStack := make(map[string]int)
		var stack []string

		var visit func(id string)
		visit = func(id string) {
			visited[id] = true
			onStack[id] = len(stack)
			stack = append(stack, id)

			for _, next := range s.Graph[id].AdjacentTo {
				if i, ok := onStack[next]; ok {
					found := stack[i:]
					if len(found) > maxDepth {
						continue
					}
					c := canonical(found)
					key := strings.Join(c, "\x00")
					if reported[key] {
						continue
					}
					reported[key] = true
					cycles = append(cycles, c)
					for _, m := range c {
						covered[m] = true
					}
					continue
				}
				if visited[next] || len(stack) >= maxDepth {
					continue
				}
				visit(next)
			}

			stack = stack[:len(stack)-1]
			delete(onStack, id)
		}
		visit(start)
	}
	return cycles
}

// canonical returns a copy of c rotated to start at its smallest member.
func canonical(c []string) Cycle {
	minIdx := 0
	for i := range c {
		if c[i] < c[minIdx] {
			minIdx = i
		}
	}
	out := make(Cycle, 0, len(c))
	out = append(out, c[minIdx:]...)
	out = append(out, c[:minIdx]...)
	return out
}

// HasEdge reports whether from imports to in s.
func (s *Structure) HasEdge(from, to string) bool {
	n, ok := s.Graph[from]
	return ok && slices.Contains(n.AdjacentTo, to)
}
