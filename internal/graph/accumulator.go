package graph

import (
	"slices"
	"sync"
)

// Accumulator collects nodes, edges and diagnostics while a build pass runs.
// Concurrent workers may call any method; one node exists per identity no
// matter how many parents discover it.
type Accumulator struct {
	mu    sync.Mutex
	nodes map[string]*Node
	order []string
	diags []Diagnostic
}

// NewAccumulator returns an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{nodes: make(map[string]*Node)}
}

// Register creates the node id if it does not exist yet and reports whether
// it did. Registration order becomes the order of Structure.Files.
func (a *Accumulator) Register(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.registerLocked(id)
}

func (a *Accumulator) registerLocked(id string) bool {
	if _, ok := a.nodes[id]; ok {
		return false
	}
	a.nodes[id] = &Node{ID: id, AdjacentTo: []string{}}
	a.order = append(a.order, id)
	return true
}

// Has reports whether id is registered.
func (a *Accumulator) Has(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.nodes[id]
	return ok
}

// SetBody records the metadata of a registered node.
func (a *Accumulator) SetBody(id string, body Body) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n, ok := a.nodes[id]; ok {
		n.Body = Body{
			Size:                   body.Size,
			BuiltinDependencies:    appendUnique(nil, body.BuiltinDependencies...),
			ThirdPartyDependencies: appendUnique(nil, body.ThirdPartyDependencies...),
		}
	}
}

// AddEdges appends edges from -> to. Both ends must be registered; edges to
// unknown identities are ignored so the graph never holds orphan edges.
func (a *Accumulator) AddEdges(from string, to ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	n, ok := a.nodes[from]
	if !ok {
		return
	}
	for _, t := range to {
		if _, ok := a.nodes[t]; ok {
			n.AdjacentTo = appendUnique(n.AdjacentTo, t)
		}
	}
}

// Diagnose records recovered problems.
func (a *Accumulator) Diagnose(d ...Diagnostic) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.diags = append(a.diags, d...)
}

// Len returns the number of registered nodes.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.order)
}

// Freeze copies the accumulated state into a Structure. Later changes to the
// accumulator do not affect the returned value.
func (a *Accumulator) Freeze(id, entrypoint string) *Structure {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := &Structure{
		ID:          id,
		Graph:       make(map[string]Node, len(a.nodes)),
		Files:       slices.Clone(a.order),
		Entrypoint:  entrypoint,
		Cycles:      []Cycle{},
		Diagnostics: slices.Clone(a.diags),
	}
	if s.Files == nil {
		s.Files = []string{}
	}
	for _, nid := range a.order {
		n := a.nodes[nid]
		s.Graph[nid] = Node{
			ID:         n.ID,
			AdjacentTo: slices.Clone(n.AdjacentTo),
			Body: Body{
				Size:                   n.Body.Size,
				BuiltinDependencies:    nonNil(slices.Clone(n.Body.BuiltinDependencies)),
				ThirdPartyDependencies: nonNil(slices.Clone(n.Body.ThirdPartyDependencies)),
			},
		}
	}
	return s
}

func appendUnique(dst []string, vals ...string) []string {
	for _, v := range vals {
		if !slices.Contains(dst, v) {
			dst = append(dst, v)
		}
	}
	return dst
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
