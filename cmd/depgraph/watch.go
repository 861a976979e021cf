package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/depgraph/internal/engine"
	"github.com/dusk-indust/depgraph/internal/graph"
	"github.com/dusk-indust/depgraph/internal/walker"
	"github.com/dusk-indust/depgraph/internal/watch"
)

func newWatchCommand() *cobra.Command {
	var debounce = watch.DefaultDebounce

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Build the module graph and rebuild it whenever a source file changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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
			reader, err := newReader(root, cfg)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			cache, err := walker.NewCache(walker.DefaultCacheSize)
			if err != nil {
				return err
			}
			eng, err := engine.New(cfg, reader, engine.WithLogger(logger), engine.WithCache(cache))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			report := func(s *graph.Structure) {
				fmt.Fprintf(out, "%d modules, %d cycles", len(s.Files), len(s.Cycles))
				for _, c := range s.Cycles {
					fmt.Fprintf(out, "\n  %v", []string(c))
				}
				fmt.Fprintln(out)
			}

			s, err := eng.Initialize(ctx)
			if err != nil {
				return err
			}
			report(s)

			src, err := watch.NewFSNotifySource(filepath.Join(root, filepath.FromSlash(cfg.Cwd)), cfg.FileExtensions)
			if err != nil {
				return fmt.Errorf("watch %s: %w", root, err)
			}
			defer src.Close()

			logger.Info("watching for changes", "root", root)
			runner := watch.NewRunner(src, eng,
				watch.WithDebounce(debounce),
				watch.WithLogger(logger),
				watch.OnBuild(report),
			)
			return runner.Run(ctx)
		},
	}

	addConfigFlags(cmd)
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period before a rebuild")
	return cmd
}
