package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dusk-indust/depgraph/internal/config"
	"github.com/dusk-indust/depgraph/internal/fsys"
)

const envPrefix = "DEPGRAPH"

func newRootCommand() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "depgraph",
		Short:         "depgraph builds the module dependency graph of a JavaScript/TypeScript project",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := log.InfoLevel
			if verbose {
				level = log.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(cmd.ErrOrStderr(), level)))
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().String("root", ".", "project directory (holds depgraph.yml)")

	root.AddCommand(newBuildCommand())
	root.AddCommand(newWatchCommand())
	root.AddCommand(newServeMCPCommand())
	return root
}

// --- Logging ---

func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the command logger, or one that discards
// everything when none was attached.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.NewWithOptions(io.Discard, log.Options{})
}

// --- Configuration ---

// addConfigFlags registers the build configuration flags on cmd.
func addConfigFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("cwd", ".", "directory scanned when no entrypoint is given, relative to --root")
	f.String("entrypoint", "", "file the graph is built from, relative to --root")
	f.Bool("include-base-dir", false, "follow imports above the entrypoint's directory")
	f.String("ignore-pattern", "", "glob of files to skip (newline separated for several)")
	f.StringSlice("ext", config.DefaultFileExtensions, "file extensions to walk")
	f.Bool("track-builtin", false, "record built-in module usage")
	f.Bool("track-third-party", false, "record third-party package usage")
	f.Bool("ignore-type-only", false, "drop edges coming from type-only imports")
	f.Int("circular-max-depth", config.DefaultCircularMaxDepth, "longest cycle reported")
	f.Bool("mixed-module-systems", false, "also look for require() calls in TypeScript files")
	f.Int("concurrency", config.DefaultConcurrency, "files walked in parallel")
}

// newViper binds every flag of cmd to a viper instance that also reads
// DEPGRAPH_* environment variables ("--track-builtin" is DEPGRAPH_TRACK_BUILTIN).
func newViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.InheritedFlags()); err != nil {
		return nil, err
	}
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	return v, nil
}

// projectRoot returns the absolute --root directory.
func projectRoot(v *viper.Viper) (string, error) {
	return filepath.Abs(v.GetString("root"))
}

// loadConfig reads depgraph.yml from root and overlays flags and environment
// variables. Precedence: flag > environment > file > defaults.
func loadConfig(v *viper.Viper, root string) (config.Config, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return config.Config{}, err
	}

	if v.IsSet("cwd") {
		cfg.Cwd = v.GetString("cwd")
	}
	if v.IsSet("entrypoint") {
		cfg.Entrypoint = v.GetString("entrypoint")
	}
	if v.IsSet("include-base-dir") {
		cfg.IncludeBaseDir = v.GetBool("include-base-dir")
	}
	if v.IsSet("ignore-pattern") {
		cfg.IgnorePattern = v.GetString("ignore-pattern")
	}
	if v.IsSet("ext") {
		cfg.FileExtensions = v.GetStringSlice("ext")
	}
	if v.IsSet("track-builtin") {
		cfg.DependencyTracking.Builtin = v.GetBool("track-builtin")
	}
	if v.IsSet("track-third-party") {
		cfg.DependencyTracking.ThirdParty = v.GetBool("track-third-party")
	}
	if v.IsSet("ignore-type-only") {
		cfg.DependencyTracking.TypeOnly = !v.GetBool("ignore-type-only")
	}
	if v.IsSet("circular-max-depth") {
		cfg.CircularMaxDepth = v.GetInt("circular-max-depth")
	}
	if v.IsSet("mixed-module-systems") {
		cfg.MixedModuleSystems = v.GetBool("mixed-module-systems")
	}
	if v.IsSet("concurrency") {
		cfg.Concurrency = v.GetInt("concurrency")
	}
	return cfg, cfg.Validate()
}

// newReader returns the OS reader confined to root.
func newReader(root string, cfg config.Config) (fsys.Reader, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &os.PathError{Op: "open", Path: root, Err: os.ErrInvalid}
	}
	return fsys.NewRootedReader(root, fsys.Options{Cwd: cfg.Cwd, IgnorePattern: cfg.IgnorePattern}), nil
}
