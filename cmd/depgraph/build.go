package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/dusk-indust/depgraph/internal/engine"
	"github.com/dusk-indust/depgraph/internal/export"
	"github.com/dusk-indust/depgraph/internal/graph"
)

const (
	formatSummary = "summary"
	formatJSON    = "json"
	formatMermaid = "mermaid"
)

func newBuildCommand() *cobra.Command {
	var (
		format       string
		asJSON       bool
		exitOnCycles int
		progress     bool
		unused       bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the module graph once and print it",
		Long: `Build walks every source file under --cwd (or the files reachable from
--entrypoint), resolves their imports and reports the module graph with its
circular dependencies.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if asJSON {
				format = formatJSON
			}
			switch format {
			case formatSummary, formatJSON, formatMermaid:
			default:
				return fmt.Errorf("unknown format %q (want summary, json or mermaid)", format)
			}

			v, err := newViper(cmd)
			if err != nil {
				return err
			}
			root, err := projectRoot(v)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(v, root)
			if err != nil {
				return err
			}
			if unused && !cfg.DependencyTracking.ThirdParty {
				return fmt.Errorf("--unused needs --track-third-party")
			}
			reader, err := newReader(root, cfg)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			opts := []engine.Option{engine.WithLogger(logger)}
			var wg sync.WaitGroup
			if progress {
				reporter := engine.NewProgressReporter()
				opts = append(opts, engine.WithProgress(reporter))
				wg.Add(1)
				go func() {
					defer wg.Done()
					logProgress(logger, reporter.Subscribe())
				}()
				defer func() {
					reporter.Close()
					wg.Wait()
				}()
			}

			eng, err := engine.New(cfg, reader, opts...)
			if err != nil {
				return err
			}
			s, err := eng.Initialize(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if err := render(ctx, out, format, s); err != nil {
				return err
			}
			if unused {
				deps, err := eng.UnusedDependencies()
				if err != nil {
					return err
				}
				writeUnused(out, deps)
			}

			if exitOnCycles != 0 && len(s.Cycles) > 0 {
				return &exitError{code: exitOnCycles}
			}
			return nil
		},
	}

	addConfigFlags(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", formatSummary, "output format: summary, json or mermaid")
	cmd.Flags().BoolVar(&asJSON, "json", false, "shorthand for --format json")
	cmd.Flags().IntVar(&exitOnCycles, "exit-code-on-cycles", 0, "exit with this code when circular dependencies are found")
	cmd.Flags().BoolVar(&progress, "progress", false, "log build progress")
	cmd.Flags().BoolVar(&unused, "unused", false, "list declared dependencies no module imports")
	return cmd
}

// render writes s to w in the given format.
func render(ctx context.Context, w io.Writer, format string, s *graph.Structure) error {
	switch format {
	case formatJSON:
		return export.WriteJSON(w, s)
	case formatMermaid:
		store := graph.NewMemStore()
		defer store.Close()
		if _, err := graph.Index(ctx, store, s); err != nil {
			return err
		}
		diagram, err := export.GenerateMermaid(ctx, store, s.Cycles)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, diagram)
		return err
	default:
		return export.WriteSummary(w, s)
	}
}

func writeUnused(w io.Writer, deps []graph.UnusedDependency) {
	if len(deps) == 0 {
		fmt.Fprintln(w, "\nNo unused dependencies.")
		return
	}
	fmt.Fprintln(w, "\nUnused dependencies:")
	for _, d := range deps {
		fmt.Fprintf(w, "  %-30s [%s]\n", d.Name, d.Kind)
	}
}

func logProgress(logger *log.Logger, events <-chan engine.ProgressEvent) {
	for ev := range events {
		logger.Info(engine.FormatProgress(ev))
	}
}
