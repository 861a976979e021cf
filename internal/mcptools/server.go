package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewGraphMCPServer creates an MCP server with every dependency-graph tool registered.
func NewGraphMCPServer(svc *GraphService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "depgraph",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "build_graph",
		Description: "Build the module dependency graph of a JavaScript/TypeScript project. Parses every module (or those reachable from an entrypoint), resolves imports to files, built-ins and packages, detects circular dependencies and computes module clusters.",
	}, svc.BuildGraph)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_structure",
		Description: "Return the last built graph: every module with the modules it imports, its size and its built-in and third-party dependencies, plus cycles and diagnostics.",
	}, svc.GetStructure)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_cycles",
		Description: "List circular dependency chains, optionally with a different maximum cycle length than the build used.",
	}, svc.FindCycles)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_files",
		Description: "Search for modules by path substring match and limit results.",
	}, svc.QueryFiles)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_dependencies",
		Description: "Traverse the dependency graph upstream or downstream from a module. Returns dependency chains up to the specified depth.",
	}, svc.GetDependencies)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "assess_impact",
		Description: "Compute the blast radius of modifying a set of modules. Returns directly and transitively affected modules with a risk score.",
	}, svc.AssessImpact)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_clusters",
		Description: "Return all module clusters discovered during graph building. Clusters are groups of connected modules with cohesion scores.",
	}, svc.GetClusters)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "package_users",
		Description: "List the modules that import a given built-in module or third-party package.",
	}, svc.PackageUsers)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "unused_dependencies",
		Description: "List dependencies declared in package.json files that no module imports. Requires a build with trackThirdParty.",
	}, svc.UnusedDependencies)

	return server
}

// RunStdio runs the MCP server on stdio transport, blocking until stdin is
// closed or the context is cancelled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP starts an HTTP server exposing the MCP tools.
func RunHTTP(ctx context.Context, server *mcp.Server, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
