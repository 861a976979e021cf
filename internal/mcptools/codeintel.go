package mcptools

import "github.com/dusk-indust/depgraph/internal/graph"

// --- MCP Tool Input Types ---
// These structs define the JSON schema for each MCP tool's input.
// The MCP Go SDK auto-generates JSON schemas from struct tags.

// BuildGraphInput is the input for the build_graph MCP tool.
type BuildGraphInput struct {
	RepoPath         string   `json:"repoPath" jsonschema:"the absolute path to the project to analyse"`
	Entrypoint       string   `json:"entrypoint,omitempty" jsonschema:"file to start from, relative to repoPath; omit to scan every file"`
	IncludeBaseDir   bool     `json:"includeBaseDir,omitempty" jsonschema:"follow imports above the entrypoint's directory (requires entrypoint)"`
	IgnorePattern    string   `json:"ignorePattern,omitempty" jsonschema:"newline separated glob patterns of files to skip"`
	FileExtensions   []string `json:"fileExtensions,omitempty" jsonschema:"extensions to walk (default: .js .mjs .cjs .jsx .ts .mts .cts .tsx)"`
	TrackBuiltin     bool     `json:"trackBuiltin,omitempty" jsonschema:"record built-in module usage"`
	TrackThirdParty  bool     `json:"trackThirdParty,omitempty" jsonschema:"record third-party package usage"`
	IgnoreTypeOnly   bool     `json:"ignoreTypeOnly,omitempty" jsonschema:"drop edges that come from type-only imports"`
	CircularMaxDepth int      `json:"circularMaxDepth,omitempty" jsonschema:"longest cycle reported (default: 20)"`
}

// BuildGraphOutput is the result of the build_graph MCP tool.
type BuildGraphOutput struct {
	ID          string           `json:"id"`
	Stats       graph.GraphStats `json:"stats"`
	Cycles      int              `json:"cycles"`
	Diagnostics int              `json:"diagnostics"`
}

// GetStructureInput is the input for the get_structure MCP tool.
type GetStructureInput struct{}

// GetStructureOutput is the result of the get_structure MCP tool.
type GetStructureOutput struct {
	Structure graph.Structure `json:"structure"`
}

// FindCyclesInput is the input for the find_cycles MCP tool.
type FindCyclesInput struct {
	MaxDepth int `json:"maxDepth,omitempty" jsonschema:"longest cycle reported (default: the build's circularMaxDepth)"`
}

// FindCyclesOutput is the result of the find_cycles MCP tool.
type FindCyclesOutput struct {
	Cycles []graph.Cycle `json:"cycles"`
}

// QueryFilesInput is the input for the query_files MCP tool.
type QueryFilesInput struct {
	Query string `json:"query" jsonschema:"substring of the file path (case-insensitive)"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results (default: 20)"`
}

// QueryFilesOutput is the result of the query_files MCP tool.
type QueryFilesOutput struct {
	Files []graph.FileNode `json:"files"`
	Total int              `json:"total"`
}

// GetDependenciesInput is the input for the get_dependencies MCP tool.
type GetDependenciesInput struct {
	NodeID    string `json:"nodeId" jsonschema:"module path as it appears in the structure"`
	Direction string `json:"direction,omitempty" jsonschema:"upstream (what it imports) or downstream (what imports it). Default: downstream"`
	MaxDepth  int    `json:"maxDepth,omitempty" jsonschema:"maximum traversal depth (default: 5)"`
}

// GetDependenciesOutput is the result of the get_dependencies MCP tool.
type GetDependenciesOutput struct {
	Chains []graph.DependencyChain `json:"chains"`
}

// AssessImpactInput is the input for the assess_impact MCP tool.
type AssessImpactInput struct {
	ChangedFiles []string `json:"changedFiles" jsonschema:"list of module paths that will be modified"`
}

// AssessImpactOutput is the result of the assess_impact MCP tool.
type AssessImpactOutput struct {
	Impact graph.ImpactResult `json:"impact"`
}

// GetClustersInput is the input for the get_clusters MCP tool.
type GetClustersInput struct{}

// GetClustersOutput is the result of the get_clusters MCP tool.
type GetClustersOutput struct {
	Clusters []graph.ClusterNode `json:"clusters"`
}

// PackageUsersInput is the input for the package_users MCP tool.
type PackageUsersInput struct {
	Name string `json:"name" jsonschema:"built-in module or package name, e.g. fs or @scope/pkg"`
}

// PackageUsersOutput is the result of the package_users MCP tool.
type PackageUsersOutput struct {
	Files []string `json:"files"`
	// DeclaredAs maps each user to the package.json section its nearest
	// manifest declares the package in. Undeclared users are absent.
	DeclaredAs map[string]string `json:"declaredAs,omitempty"`
}

// UnusedDependenciesInput is the input for the unused_dependencies MCP tool.
type UnusedDependenciesInput struct{}

// UnusedDependenciesOutput is the result of the unused_dependencies MCP tool.
type UnusedDependenciesOutput struct {
	Dependencies []graph.UnusedDependency `json:"dependencies"`
}
