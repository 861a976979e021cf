package graph

import "github.com/dusk-indust/depgraph/internal/errs"

// --- Structure model ---

// Body is the metadata recorded for a module.
type Body struct {
	// Size is the byte length of the file, 0 if it could not be read.
	Size                   int64    `json:"size"`
	BuiltinDependencies    []string `json:"builtinDependencies"`
	ThirdPartyDependencies []string `json:"thirdPartyDependencies"`
}

// Node is one module of the dependency graph. AdjacentTo lists the modules it
// imports in discovery order, without duplicates.
type Node struct {
	ID         string   `json:"id"`
	AdjacentTo []string `json:"adjacentTo"`
	Body       Body     `json:"body"`
}

// Cycle is a closed walk: each member imports the next, and the last imports
// the first.
type Cycle []string

// Diagnostic records a recovered problem: a file that could not be read or
// parsed, or a specifier that produced no edge.
type Diagnostic struct {
	File      string    `json:"file"`
	Specifier string    `json:"specifier,omitempty"`
	Code      errs.Code `json:"code"`
	Reason    string    `json:"reason"`
}

// Structure is the immutable result of one build pass.
type Structure struct {
	// ID identifies the build pass that produced the structure.
	ID          string          `json:"id"`
	Graph       map[string]Node `json:"graph"`
	Files       []string        `json:"files"`
	Entrypoint  string          `json:"entrypoint,omitempty"`
	Cycles      []Cycle         `json:"cycles"`
	Diagnostics []Diagnostic    `json:"diagnostics,omitempty"`
}

// --- Store model ---

// PackageKind separates runtime built-ins from installed packages.
type PackageKind string

const (
	PackageKindBuiltin    PackageKind = "builtin"
	PackageKindThirdParty PackageKind = "third-party"
)

// EdgeKind classifies relationships between stored nodes.
type EdgeKind string

const (
	EdgeKindImports EdgeKind = "IMPORTS" // file -> file
	EdgeKindUses    EdgeKind = "USES"    // file -> package
	EdgeKindBelongs EdgeKind = "BELONGS" // file -> cluster
)

// FileNode is a module as held by a Store.
type FileNode struct {
	Path       string `json:"path"`
	Size       int64  `json:"size"`
	Entrypoint bool   `json:"entrypoint,omitempty"`
}

// PackageNode is a built-in or third-party dependency.
type PackageNode struct {
	Name string      `json:"name"`
	Kind PackageKind `json:"kind"`
}

// ClusterNode represents a group of tightly connected files.
type ClusterNode struct {
	Name          string   `json:"name"`
	CohesionScore float64  `json:"cohesionScore"`
	Members       []string `json:"members"` // file paths
}

// Edge represents a relationship between two nodes.
type Edge struct {
	SourceID string   `json:"sourceId"`
	TargetID string   `json:"targetId"`
	Kind     EdgeKind `json:"kind"`
}

// GraphStats summarizes a stored graph.
type GraphStats struct {
	FileCount    int `json:"fileCount"`
	PackageCount int `json:"packageCount"`
	ClusterCount int `json:"clusterCount"`
	EdgeCount    int `json:"edgeCount"`
}

// DependencyChain is an ordered sequence of nodes forming a dependency path.
type DependencyChain struct {
	Nodes []string `json:"nodes"` // node IDs in order
	Depth int      `json:"depth"`
}

// ImpactResult describes the blast radius of changing a set of files.
type ImpactResult struct {
	DirectlyAffected     []string `json:"directlyAffected"`     // files that import changed files
	TransitivelyAffected []string `json:"transitivelyAffected"` // full downstream closure
	RiskScore            float64  `json:"riskScore"`            // 0.0-1.0, based on fan-out
}
