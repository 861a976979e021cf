package graph

import (
	"context"
	"io"
)

// Store is the query backend a finished Structure is loaded into for
// traversal and impact queries.
// Implementations: KuzuStore (embedded graph database), MemStore (maps).
type Store interface {
	io.Closer

	// Schema setup, called once before any data is inserted.
	InitSchema(ctx context.Context) error

	// Write operations.
	AddFile(ctx context.Context, node FileNode) error
	AddPackage(ctx context.Context, node PackageNode) error
	AddCluster(ctx context.Context, node ClusterNode) error
	AddEdge(ctx context.Context, edge Edge) error

	// Read operations.
	GetFile(ctx context.Context, path string) (*FileNode, error)
	QueryFiles(ctx context.Context, query string, limit int) ([]FileNode, error)
	PackageUsers(ctx context.Context, name string) ([]string, error)

	// Graph traversal.
	GetDependencies(ctx context.Context, nodeID string, direction Direction, maxDepth int) ([]DependencyChain, error)
	AssessImpact(ctx context.Context, changedFiles []string) (*ImpactResult, error)
	GetClusters(ctx context.Context) ([]ClusterNode, error)
	GetAllEdges(ctx context.Context) ([]Edge, error)

	// Stats.
	Stats(ctx context.Context) (*GraphStats, error)
}

// Direction controls dependency traversal direction.
type Direction string

const (
	DirectionUpstream   Direction = "upstream"   // what does this depend on?
	DirectionDownstream Direction = "downstream" // what depends on this?
)
