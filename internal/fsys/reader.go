// Package fsys is the file-system collaborator of the graph engine. One
// Reader implementation sits on top of afero so the same code serves a real
// disk and a fully in-memory tree for deterministic tests.
package fsys

import (
	"context"
	"errors"
	"io/fs"
	"iter"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/dusk-indust/depgraph/internal/errs"
)

// Reader is what the engine consumes from the file system. Paths are slash
// separated and relative to the process working directory (or the root of an
// in-memory tree).
type Reader interface {
	// Read returns the file content, failing with NOT_READABLE.
	Read(ctx context.Context, p string) ([]byte, error)

	// ReadDir lazily yields source files under root whose extension is in
	// extensions, plus manifest files. Each call restarts the walk.
	ReadDir(ctx context.Context, root string, extensions []string) iter.Seq[string]

	// Stat returns the byte size of p, or 0 when unavailable.
	Stat(ctx context.Context, p string) int64

	// Cwd returns the configured working directory.
	Cwd() string
}

// Options configure a Reader.
type Options struct {
	Cwd           string
	IgnorePattern string
}

// Directories never descended into.
var excludedDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
}

// Manifest file names yielded by ReadDir regardless of extension filters.
var manifestNames = map[string]bool{
	"package.json":  true,
	"tsconfig.json": true,
}

// IsManifest reports whether p names a package or compiler manifest.
func IsManifest(p string) bool {
	return manifestNames[path.Base(p)]
}

// Compile-time assertion: *AferoReader satisfies Reader.
var _ Reader = (*AferoReader)(nil)

// AferoReader implements Reader over any afero.Fs.
type AferoReader struct {
	fs     afero.Fs
	cwd    string
	ignore *Ignore
}

// NewReader wraps fsys with the given options.
func NewReader(fsys afero.Fs, opts Options) *AferoReader {
	cwd := cleanSlash(opts.Cwd)
	return &AferoReader{
		fs:     fsys,
		cwd:    cwd,
		ignore: NewIgnore(cwd, opts.IgnorePattern),
	}
}

// NewOSReader returns a Reader backed by the operating system.
func NewOSReader(opts Options) *AferoReader {
	return NewReader(afero.NewOsFs(), opts)
}

// NewRootedReader returns a Reader over the operating system confined to
// root, so paths are relative to root whatever the process directory is.
func NewRootedReader(root string, opts Options) *AferoReader {
	return NewReader(afero.NewBasePathFs(afero.NewOsFs(), root), opts)
}

// NewMemReader returns a Reader over an in-memory tree seeded with files,
// keyed by slash path.
func NewMemReader(opts Options, files map[string]string) (*AferoReader, error) {
	mem := afero.NewMemMapFs()
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		p := filepath.FromSlash(cleanSlash(name))
		if err := mem.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, err
		}
		if err := afero.WriteFile(mem, p, []byte(files[name]), 0o644); err != nil {
			return nil, err
		}
	}
	return NewReader(mem, opts), nil
}

// Cwd returns the configured working directory.
func (r *AferoReader) Cwd() string {
	return r.cwd
}

// Ignored reports whether p matches the configured ignore pattern.
func (r *AferoReader) Ignored(p string) bool {
	return r.ignore.Match(p)
}

// Read returns the content of p. Ignored files are reported as not readable.
func (r *AferoReader) Read(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p = cleanSlash(p)
	if r.ignore.Match(p) {
		return nil, errs.New(errs.CodeNotReadable, "%s is ignored by pattern", p)
	}
	data, err := afero.ReadFile(r.fs, filepath.FromSlash(p))
	if err != nil {
		return nil, errs.Wrap(errs.CodeNotReadable, err, "read %s", p)
	}
	return data, nil
}

// Stat returns the byte size of p, or 0 if it cannot be stat'ed.
func (r *AferoReader) Stat(_ context.Context, p string) int64 {
	info, err := r.fs.Stat(filepath.FromSlash(cleanSlash(p)))
	if err != nil || info.IsDir() {
		return 0
	}
	return info.Size()
}

var errStopWalk = errors.New("stop walk")

// ReadDir walks root and yields supported source files and manifests. A
// .gitignore at root is honoured alongside the ignore pattern.
func (r *AferoReader) ReadDir(ctx context.Context, root string, extensions []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		root = cleanSlash(root)
		gi := r.loadGitignore(root)
		osRoot := filepath.FromSlash(root)

		_ = afero.Walk(r.fs, osRoot, func(osPath string, info fs.FileInfo, err error) error {
			if err != nil {
				return nil // skip inaccessible paths
			}
			if ctx.Err() != nil {
				return errStopWalk
			}
			p := cleanSlash(filepath.ToSlash(osPath))

			if info.IsDir() {
				if p == root {
					return nil
				}
				if excludedDirs[info.Name()] || gi.match(p, true) || r.ignore.Match(p) {
					return filepath.SkipDir
				}
				return nil
			}

			if !r.supported(p, extensions) || gi.match(p, false) || r.ignore.Match(p) {
				return nil
			}
			if !yield(p) {
				return errStopWalk
			}
			return nil
		})
	}
}

func (r *AferoReader) supported(p string, extensions []string) bool {
	if IsManifest(p) {
		return true
	}
	if strings.HasSuffix(p, ".d.ts") {
		return false
	}
	return slices.Contains(extensions, path.Ext(p))
}

func (r *AferoReader) loadGitignore(root string) *gitignoreFile {
	data, err := afero.ReadFile(r.fs, filepath.FromSlash(path.Join(root, ".gitignore")))
	if err != nil {
		return nil
	}
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return &gitignoreFile{root: root, git: ignore.CompileIgnoreLines(lines...)}
}
