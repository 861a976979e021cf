package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/depgraph/internal/graph"
	"github.com/dusk-indust/depgraph/internal/mcptools"
)

func newServeMCPCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve-mcp",
		Short: "Expose the graph tools over the Model Context Protocol",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := newViper(cmd)
			if err != nil {
				return err
			}
			newStore, err := storeFactory(v.GetString("store"))
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			svc, err := mcptools.NewGraphService(newStore, mcptools.WithLogger(logger))
			if err != nil {
				return err
			}
			defer svc.Close()
			server := mcptools.NewGraphMCPServer(svc)

			switch t := v.GetString("transport"); t {
			case "stdio":
				return mcptools.RunStdio(ctx, server)
			case "http":
				logger.Info("serving MCP over HTTP", "addr", v.GetString("addr"))
				return mcptools.RunHTTP(ctx, server, v.GetString("addr"))
			default:
				return fmt.Errorf("unknown transport %q (want stdio or http)", t)
			}
		},
	}

	cmd.Flags().String("transport", "stdio", "stdio or http")
	cmd.Flags().String("addr", "localhost:8080", "listen address for --transport http")
	cmd.Flags().String("store", "memory", "query store: memory or kuzu")
	return cmd
}

// storeFactory maps a --store value to the store opened for each build.
func storeFactory(kind string) (mcptools.StoreFactory, error) {
	switch kind {
	case "memory":
		return func() (graph.Store, error) { return graph.NewMemStore(), nil }, nil
	case "kuzu":
		return func() (graph.Store, error) {
			s, err := graph.NewKuzuStore()
			if err != nil {
				return nil, err
			}
			return s, nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown store %q (want memory or kuzu)", kind)
	}
}
