package config

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar"
	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/depgraph/internal/errs"
)

// DependencyTracking toggles which dependency kinds are retained on nodes.
type DependencyTracking struct {
	Builtin    bool `yaml:"builtin"`
	ThirdParty bool `yaml:"thirdParty"`
	// TypeOnly controls whether type-only imports produce graph edges.
	TypeOnly bool `yaml:"typeOnly"`
}

// Config holds the settings consumed by a build pass, loaded from
// depgraph.yml and overridden by CLI flags.
type Config struct {
	Cwd                string             `yaml:"cwd,omitempty"`
	Entrypoint         string             `yaml:"entrypoint,omitempty"`
	IncludeBaseDir     bool               `yaml:"includeBaseDir,omitempty"`
	IgnorePattern      string             `yaml:"ignorePattern,omitempty"`
	FileExtensions     []string           `yaml:"fileExtensions,omitempty"`
	DependencyTracking DependencyTracking `yaml:"dependencyTracking"`
	CircularMaxDepth   int                `yaml:"circularMaxDepth,omitempty"`
	MixedModuleSystems bool               `yaml:"mixedModuleSystems,omitempty"`
	Concurrency        int                `yaml:"concurrency,omitempty"`
}

// DefaultFileExtensions are the source extensions walked when none are configured.
var DefaultFileExtensions = []string{".js", ".mjs", ".cjs", ".jsx", ".ts", ".mts", ".cts", ".tsx"}

const (
	DefaultCircularMaxDepth = 20
	DefaultConcurrency      = 32
)

// Default returns the configuration used when no file or flag says otherwise.
func Default() Config {
	exts := make([]string, len(DefaultFileExtensions))
	copy(exts, DefaultFileExtensions)
	return Config{
		Cwd:            ".",
		FileExtensions: exts,
		DependencyTracking: DependencyTracking{
			TypeOnly: true,
		},
		CircularMaxDepth: DefaultCircularMaxDepth,
		Concurrency:      DefaultConcurrency,
	}
}

// Load reads depgraph.yml or depgraph.yaml from dir and overlays it onto
// Default. A missing file is not an error.
func Load(dir string) (Config, error) {
	cfg := Default()
	for _, name := range []string{"depgraph.yml", "depgraph.yaml"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errs.Wrap(errs.CodeIllegalConfiguration, err, "parse %s", name)
		}
		return cfg, nil
	}
	return cfg, nil
}

// HasEntrypoint reports whether the build is rooted at a single file.
func (c Config) HasEntrypoint() bool {
	return strings.TrimSpace(c.Entrypoint) != ""
}

// Validate rejects illegal combinations before any file is touched.
func (c Config) Validate() error {
	if c.IncludeBaseDir && !c.HasEntrypoint() {
		return errs.New(errs.CodeIllegalConfiguration, "`includeBaseDir` can only be used when providing an entrypoint")
	}
	if c.HasEntrypoint() && !isDefaultCwd(c.Cwd) {
		return errs.New(errs.CodeIllegalConfiguration, "`cwd` can't be customized when providing an entrypoint")
	}
	if c.CircularMaxDepth < 1 {
		return errs.New(errs.CodeIllegalConfiguration, "`circularMaxDepth` must be a positive integer, got %d", c.CircularMaxDepth)
	}
	if c.Concurrency < 1 {
		return errs.New(errs.CodeIllegalConfiguration, "`concurrency` must be a positive integer, got %d", c.Concurrency)
	}
	if len(c.FileExtensions) == 0 {
		return errs.New(errs.CodeIllegalConfiguration, "`fileExtensions` must not be empty")
	}
	for _, ext := range c.FileExtensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return errs.New(errs.CodeIllegalConfiguration, "file extension %q must start with a dot", ext)
		}
	}
	for _, line := range IgnoreLines(c.IgnorePattern) {
		if err := checkGlob(strings.TrimPrefix(line, "!")); err != nil {
			return errs.Wrap(errs.CodeIllegalConfiguration, err, "invalid ignore pattern %q", line)
		}
	}
	return nil
}

// checkGlob rejects patterns the doublestar matcher cannot use. doublestar
// stops at the first component that fails to match, so the character classes
// and escapes are also run through path.Match, which checks the whole pattern,
// and braces are counted here.
func checkGlob(pattern string) error {
	if _, err := doublestar.Match(pattern, ""); err != nil {
		return err
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return err
	}
	depth := 0
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			if depth == 0 {
				return doublestar.ErrBadPattern
			}
			depth--
		}
	}
	if depth != 0 {
		return doublestar.ErrBadPattern
	}
	return nil
}

// IgnoreLines splits a multi-line ignore pattern into trimmed, non-empty,
// non-comment lines.
func IgnoreLines(pattern string) []string {
	var lines []string
	for _, l := range strings.Split(strings.ReplaceAll(pattern, "\r\n", "\n"), "\n") {
		l = strings.TrimSpace(l)
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}
		lines = append(lines, l)
	}
	return lines
}

func isDefaultCwd(cwd string) bool {
	switch strings.TrimSpace(cwd) {
	case "", ".", "./":
		return true
	default:
		return false
	}
}
