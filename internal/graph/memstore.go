package graph

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store with maps. IMPORTS edges are additionally
// indexed in both directions so traversals never scan the edge list.
// Safe for concurrent use.
type MemStore struct {
	mu         sync.RWMutex
	files      map[string]FileNode
	packages   map[string]PackageNode
	clusters   map[string]ClusterNode
	edges      []Edge
	imports    map[string][]string // file -> files it imports
	importedBy map[string][]string // file -> files importing it
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		files:      make(map[string]FileNode),
		packages:   make(map[string]PackageNode),
		clusters:   make(map[string]ClusterNode),
		imports:    make(map[string][]string),
		importedBy: make(map[string][]string),
	}
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

func (m *MemStore) AddFile(_ context.Context, node FileNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[node.Path] = node
	return nil
}

func (m *MemStore) AddPackage(_ context.Context, node PackageNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.packages[node.Name] = node
	return nil
}

func (m *MemStore) AddCluster(_ context.Context, node ClusterNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	node.Members = slices.Clone(node.Members)
	m.clusters[node.Name] = node
	return nil
}

func (m *MemStore) AddEdge(_ context.Context, edge Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges = append(m.edges, edge)
	if edge.Kind == EdgeKindImports {
		m.imports[edge.SourceID] = append(m.imports[edge.SourceID], edge.TargetID)
		m.importedBy[edge.TargetID] = append(m.importedBy[edge.TargetID], edge.SourceID)
	}
	return nil
}

// GetFile returns a copy of the file stored under path, or nil.
func (m *MemStore) GetFile(_ context.Context, path string) (*FileNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[path]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

// QueryFiles returns files whose path contains query (case-insensitive),
// sorted by path. A limit <= 0 returns all matches.
func (m *MemStore) QueryFiles(_ context.Context, query string, limit int) ([]FileNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q := strings.ToLower(query)
	var out []FileNode
	for _, f := range m.files {
		if strings.Contains(strings.ToLower(f.Path), q) {
			out = append(out, f)
		}
	}
	slices.SortFunc(out, func(a, b FileNode) int { return strings.Compare(a.Path, b.Path) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// PackageUsers returns the files with a USES edge to name, sorted by path.
func (m *MemStore) PackageUsers(_ context.Context, name string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := make(map[string]bool)
	for _, e := range m.edges {
		if e.Kind == EdgeKindUses && e.TargetID == name {
			users[e.SourceID] = true
		}
	}
	return setToSlice(users), nil
}

func (m *MemStore) GetDependencies(_ context.Context, nodeID string, direction Direction, maxDepth int) ([]DependencyChain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return walkChains(nodeID, maxDepth, m.hop(direction))
}

// hop returns the adjacency lookup for direction.
func (m *MemStore) hop(direction Direction) neighborFunc {
	index := m.imports
	if direction == DirectionDownstream {
		index = m.importedBy
	}
	return func(id string) ([]string, error) { return index[id], nil }
}

func (m *MemStore) AssessImpact(_ context.Context, changedFiles []string) (*ImpactResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return impactOf(changedFiles, m.hop(DirectionDownstream), len(m.files))
}

// GetClusters returns all stored clusters sorted by name.
func (m *MemStore) GetClusters(_ context.Context) ([]ClusterNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ClusterNode, 0, len(m.clusters))
	for _, c := range m.clusters {
		c.Members = slices.Clone(c.Members)
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b ClusterNode) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// GetAllEdges returns a copy of all edges in insertion order.
func (m *MemStore) GetAllEdges(_ context.Context) ([]Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.edges), nil
}

func (m *MemStore) Stats(_ context.Context) (*GraphStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &GraphStats{
		FileCount:    len(m.files),
		PackageCount: len(m.packages),
		ClusterCount: len(m.clusters),
		EdgeCount:    len(m.edges),
	}, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}
