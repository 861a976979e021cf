package mcptools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/depgraph/internal/config"
	"github.com/dusk-indust/depgraph/internal/engine"
	"github.com/dusk-indust/depgraph/internal/fsys"
	"github.com/dusk-indust/depgraph/internal/graph"
	"github.com/dusk-indust/depgraph/internal/walker"
)

// StoreFactory opens an empty query store for a new build.
type StoreFactory func() (graph.Store, error)

// ReaderFactory returns the file-system reader for a project root.
type ReaderFactory func(root string, opts fsys.Options) (fsys.Reader, error)

func osReader(root string, opts fsys.Options) (fsys.Reader, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("cannot access repoPath: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("repoPath is not a directory: %s", root)
	}
	return fsys.NewRootedReader(root, opts), nil
}

// GraphService holds the last built graph and the query store it was
// indexed into. Every build_graph call replaces both.
type GraphService struct {
	newStore  StoreFactory
	newReader ReaderFactory
	cache     *walker.Cache
	logger    *log.Logger

	mu        sync.RWMutex
	engine    *engine.Engine
	structure *graph.Structure
	store     graph.Store
}

// ServiceOption configures a GraphService.
type ServiceOption func(*GraphService)

// WithReaderFactory replaces the OS-backed reader, mostly for tests.
func WithReaderFactory(f ReaderFactory) ServiceOption {
	return func(s *GraphService) { s.newReader = f }
}

// WithLogger sets the logger handed to every engine.
func WithLogger(l *log.Logger) ServiceOption {
	return func(s *GraphService) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewGraphService creates a GraphService indexing into stores from newStore.
// One walk cache is shared by all builds so repeated builds of the same
// project only reparse changed files.
func NewGraphService(newStore StoreFactory, opts ...ServiceOption) (*GraphService, error) {
	cache, err := walker.NewCache(walker.DefaultCacheSize)
	if err != nil {
		return nil, err
	}
	s := &GraphService{
		newStore:  newStore,
		newReader: osReader,
		cache:     cache,
		logger:    log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the current store. Later queries fail with errNoGraph.
func (s *GraphService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return nil
	}
	err := s.store.Close()
	s.engine, s.structure, s.store = nil, nil, nil
	return err
}

var errNoGraph = errors.New("no graph built yet: call build_graph first")

// view runs fn against the last structure and store under the read lock, so
// a concurrent build cannot close the store while fn is using it.
func (s *GraphService) view(fn func(*graph.Structure, graph.Store) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.structure == nil {
		return errNoGraph
	}
	return fn(s.structure, s.store)
}

// BuildGraph runs a build pass over a project and indexes the Structure into
// a fresh store. Returns graph statistics.
func (s *GraphService) BuildGraph(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input BuildGraphInput,
) (*mcp.CallToolResult, BuildGraphOutput, error) {
	if input.RepoPath == "" {
		return nil, BuildGraphOutput{}, fmt.Errorf("repoPath is required")
	}

	cfg := config.Default()
	cfg.Entrypoint = input.Entrypoint
	cfg.IncludeBaseDir = input.IncludeBaseDir
	cfg.IgnorePattern = input.IgnorePattern
	if len(input.FileExtensions) > 0 {
		cfg.FileExtensions = input.FileExtensions
	}
	cfg.DependencyTracking.Builtin = input.TrackBuiltin
	cfg.DependencyTracking.ThirdParty = input.TrackThirdParty
	cfg.DependencyTracking.TypeOnly = !input.IgnoreTypeOnly
	if input.CircularMaxDepth > 0 {
		cfg.CircularMaxDepth = input.CircularMaxDepth
	}

	reader, err := s.newReader(input.RepoPath, fsys.Options{Cwd: cfg.Cwd, IgnorePattern: cfg.IgnorePattern})
	if err != nil {
		return nil, BuildGraphOutput{}, err
	}
	eng, err := engine.New(cfg, reader, engine.WithLogger(s.logger), engine.WithCache(s.cache))
	if err != nil {
		return nil, BuildGraphOutput{}, err
	}
	structure, err := eng.Initialize(ctx)
	if err != nil {
		return nil, BuildGraphOutput{}, fmt.Errorf("build: %w", err)
	}

	store, err := s.newStore()
	if err != nil {
		return nil, BuildGraphOutput{}, fmt.Errorf("open store: %w", err)
	}
	if _, err := graph.Index(ctx, store, structure); err != nil {
		store.Close()
		return nil, BuildGraphOutput{}, fmt.Errorf("index: %w", err)
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		store.Close()
		return nil, BuildGraphOutput{}, fmt.Errorf("stats: %w", err)
	}

	// Lock waits for in-flight queries, so none still holds old.
	s.mu.Lock()
	old := s.store
	s.engine, s.structure, s.store = eng, structure, store
	s.mu.Unlock()
	if old != nil {
		if err := old.Close(); err != nil {
			s.logger.Warn("closing previous store", "err", err)
		}
	}

	return nil, BuildGraphOutput{
		ID:          structure.ID,
		Stats:       *stats,
		Cycles:      len(structure.Cycles),
		Diagnostics: len(structure.Diagnostics),
	}, nil
}

// GetStructure returns the last built Structure.
func (s *GraphService) GetStructure(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ GetStructureInput,
) (*mcp.CallToolResult, GetStructureOutput, error) {
	var out GetStructureOutput
	err := s.view(func(structure *graph.Structure, _ graph.Store) error {
		out.Structure = *structure
		return nil
	})
	if err != nil {
		return nil, GetStructureOutput{}, err
	}
	return nil, out, nil
}

// FindCycles reruns cycle detection with a different depth bound.
func (s *GraphService) FindCycles(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input FindCyclesInput,
) (*mcp.CallToolResult, FindCyclesOutput, error) {
	var out FindCyclesOutput
	err := s.view(func(structure *graph.Structure, _ graph.Store) error {
		out.Cycles = structure.Cycles
		if input.MaxDepth > 0 {
			out.Cycles = graph.FindCycles(structure, input.MaxDepth)
		}
		return nil
	})
	if err != nil {
		return nil, FindCyclesOutput{}, err
	}
	return nil, out, nil
}

// QueryFiles searches for modules by path substring match.
func (s *GraphService) QueryFiles(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryFilesInput,
) (*mcp.CallToolResult, QueryFilesOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	var files []graph.FileNode
	err := s.view(func(_ *graph.Structure, store graph.Store) error {
		var err error
		if files, err = store.QueryFiles(ctx, input.Query, limit); err != nil {
			return fmt.Errorf("query files: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, QueryFilesOutput{}, err
	}
	return nil, QueryFilesOutput{Files: files, Total: len(files)}, nil
}

// GetDependencies traverses the dependency graph from a given module.
func (s *GraphService) GetDependencies(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetDependenciesInput,
) (*mcp.CallToolResult, GetDependenciesOutput, error) {
	if input.NodeID == "" {
		return nil, GetDependenciesOutput{}, fmt.Errorf("nodeId is required")
	}
	direction := graph.DirectionDownstream
	if strings.EqualFold(input.Direction, "upstream") {
		direction = graph.DirectionUpstream
	}

	maxDepth := input.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 5
	}

	var chains []graph.DependencyChain
	err := s.view(func(_ *graph.Structure, store graph.Store) error {
		var err error
		if chains, err = store.GetDependencies(ctx, input.NodeID, direction, maxDepth); err != nil {
			return fmt.Errorf("get dependencies: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, GetDependenciesOutput{}, err
	}
	if chains == nil {
		chains = []graph.DependencyChain{}
	}
	return nil, GetDependenciesOutput{Chains: chains}, nil
}

// AssessImpact computes the blast radius of modifying a set of modules.
func (s *GraphService) AssessImpact(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AssessImpactInput,
) (*mcp.CallToolResult, AssessImpactOutput, error) {
	if len(input.ChangedFiles) == 0 {
		return nil, AssessImpactOutput{}, fmt.Errorf("changedFiles is required")
	}
	var impact *graph.ImpactResult
	err := s.view(func(_ *graph.Structure, store graph.Store) error {
		var err error
		if impact, err = store.AssessImpact(ctx, input.ChangedFiles); err != nil {
			return fmt.Errorf("assess impact: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, AssessImpactOutput{}, err
	}
	return nil, AssessImpactOutput{Impact: *impact}, nil
}

// GetClusters returns all module clusters in the graph.
func (s *GraphService) GetClusters(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ GetClustersInput,
) (*mcp.CallToolResult, GetClustersOutput, error) {
	var clusters []graph.ClusterNode
	err := s.view(func(_ *graph.Structure, store graph.Store) error {
		var err error
		if clusters, err = store.GetClusters(ctx); err != nil {
			return fmt.Errorf("get clusters: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, GetClustersOutput{}, err
	}
	return nil, GetClustersOutput{Clusters: clusters}, nil
}

// PackageUsers lists the modules using a built-in or third-party package.
func (s *GraphService) PackageUsers(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input PackageUsersInput,
) (*mcp.CallToolResult, PackageUsersOutput, error) {
	if input.Name == "" {
		return nil, PackageUsersOutput{}, fmt.Errorf("name is required")
	}
	var out PackageUsersOutput
	err := s.view(func(_ *graph.Structure, store graph.Store) error {
		files, err := store.PackageUsers(ctx, input.Name)
		if err != nil {
			return fmt.Errorf("package users: %w", err)
		}
		out.Files = files
		manifests, err := s.engine.Manifests()
		if err != nil {
			return err
		}
		for _, f := range files {
			if kind, ok := manifests.DependencyKind(f, input.Name); ok {
				if out.DeclaredAs == nil {
					out.DeclaredAs = make(map[string]string)
				}
				out.DeclaredAs[f] = string(kind)
			}
		}
		return nil
	})
	if err != nil {
		return nil, PackageUsersOutput{}, err
	}
	return nil, out, nil
}

// UnusedDependencies lists manifest dependencies no module references.
func (s *GraphService) UnusedDependencies(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ UnusedDependenciesInput,
) (*mcp.CallToolResult, UnusedDependenciesOutput, error) {
	s.mu.RLock()
	eng := s.engine
	s.mu.RUnlock()
	if eng == nil {
		return nil, UnusedDependenciesOutput{}, errNoGraph
	}
	if !eng.Config().DependencyTracking.ThirdParty {
		return nil, UnusedDependenciesOutput{}, fmt.Errorf("unused dependencies need a build with trackThirdParty")
	}
	deps, err := eng.UnusedDependencies()
	if err != nil {
		return nil, UnusedDependenciesOutput{}, err
	}
	return nil, UnusedDependenciesOutput{Dependencies: deps}, nil
}
