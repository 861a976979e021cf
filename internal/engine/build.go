package engine

import (
	"context"
	"path"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/depgraph/internal/config"
	"github.com/dusk-indust/depgraph/internal/errs"
	"github.com/dusk-indust/depgraph/internal/fsys"
	"github.com/dusk-indust/depgraph/internal/graph"
	"github.com/dusk-indust/depgraph/internal/resolve"
	"github.com/dusk-indust/depgraph/internal/walker"
)

// pass is one build over a snapshot of the file system. It is discarded once
// its Structure has been frozen.
type pass struct {
	id       string
	cfg      config.Config
	reader   fsys.Reader
	cache    *walker.Cache
	selector walker.Selector
	logger   *log.Logger
	progress *ProgressReporter

	root  string // directory handed to ReadDir
	base  string // node identities are relative to base
	entry string // reader path of the entrypoint, "" in flat mode

	acc       *graph.Accumulator
	resolver  *resolve.Resolver
	manifests *resolve.Manifests
	walked    atomic.Int64
}

// fileResult is what a worker learns about one file. Results are applied to
// the accumulator in a fixed order so diagnostics come out deterministic.
type fileResult struct {
	path    string
	size    int64
	res     resolve.Resolution
	diags   []graph.Diagnostic
	readErr error
}

func newPass(id string, cfg config.Config, reader fsys.Reader, cache *walker.Cache, logger *log.Logger, progress *ProgressReporter) *pass {
	p := &pass{
		id:       id,
		cfg:      cfg,
		reader:   reader,
		cache:    cache,
		selector: walker.Selector{MixedModuleSystems: cfg.MixedModuleSystems},
		logger:   logger.With("pass", id),
		progress: progress,
		root:     normalize(cfg.Cwd),
		acc:      graph.NewAccumulator(),
	}
	p.base = p.root
	if cfg.HasEntrypoint() {
		p.entry = normalize(cfg.Entrypoint)
		if !cfg.IncludeBaseDir {
			p.base = path.Dir(p.entry)
		}
	}
	return p
}

// run executes the pass and returns the frozen Structure.
func (p *pass) run(ctx context.Context) (*graph.Structure, error) {
	sources, err := p.discover(ctx)
	if err != nil {
		return nil, err
	}

	if p.entry == "" {
		err = p.flat(ctx, sources)
	} else {
		err = p.fromEntrypoint(ctx)
	}
	if err != nil {
		return nil, err
	}

	entryID := ""
	if p.entry != "" {
		entryID = p.nodeID(p.entry)
	}
	s := p.acc.Freeze(p.id, entryID)
	s.Cycles = graph.FindCycles(s, p.cfg.CircularMaxDepth)
	p.progress.Emit(ProgressEvent{Pass: p.id, Phase: PhaseCycles, Status: ProgressComplete, Total: len(s.Cycles)})
	return s, nil
}

// discover enumerates source files and manifests, loads the manifests and
// builds the resolver over the enumerated sources.
func (p *pass) discover(ctx context.Context) ([]string, error) {
	p.progress.Emit(ProgressEvent{Pass: p.id, Phase: PhaseDiscover, Status: ProgressWorking})

	var sources, manifests []string
	for f := range p.reader.ReadDir(ctx, p.root, p.cfg.FileExtensions) {
		if fsys.IsManifest(f) {
			manifests = append(manifests, f)
			continue
		}
		sources = append(sources, f)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m, err := resolve.LoadManifests(ctx, p.reader, manifests)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.logger.Warn("some manifests were skipped", "err", err)
	}
	p.manifests = m

	scope := ""
	if p.entry != "" && !p.cfg.IncludeBaseDir {
		scope = p.base
	}
	p.resolver = resolve.New(sources, m, resolve.Options{
		Extensions:      p.cfg.FileExtensions,
		TrackBuiltin:    p.cfg.DependencyTracking.Builtin,
		TrackThirdParty: p.cfg.DependencyTracking.ThirdParty,
		TrackTypeOnly:   p.cfg.DependencyTracking.TypeOnly,
		Scope:           scope,
		Root:            p.root,
	})

	p.logger.Debug("discovered files", "sources", len(sources), "manifests", len(manifests))
	p.progress.Emit(ProgressEvent{Pass: p.id, Phase: PhaseDiscover, Status: ProgressComplete, Total: len(sources)})
	return sources, nil
}

// flat registers every discovered source up front, in enumeration order, then
// walks them concurrently.
func (p *pass) flat(ctx context.Context, sources []string) error {
	for _, f := range sources {
		p.acc.Register(p.nodeID(f))
	}
	results, err := p.processAll(ctx, sources, len(sources))
	if err != nil {
		return err
	}
	for _, r := range results {
		p.apply(r)
	}
	return nil
}

// fromEntrypoint expands the graph level by level from the entrypoint. Each
// level is walked concurrently; newly discovered targets are registered in
// level order so discovery order does not depend on scheduling.
func (p *pass) fromEntrypoint(ctx context.Context) error {
	p.acc.Register(p.nodeID(p.entry))
	level := []string{p.entry}
	first := true

	for len(level) > 0 {
		results, err := p.processAll(ctx, level, 0)
		if err != nil {
			return err
		}
		if first && results[0].readErr != nil {
			return errs.Wrap(errs.CodeBuildFailure, results[0].readErr, "entrypoint %s", p.entry)
		}
		first = false

		var next []string
		for _, r := range results {
			for _, t := range r.res.Edges {
				if p.acc.Register(p.nodeID(t)) {
					next = append(next, t)
				}
			}
			p.apply(r)
		}
		level = next
	}
	return nil
}

// processAll walks and resolves files with at most cfg.Concurrency in flight.
// Results keep the order of files.
func (p *pass) processAll(ctx context.Context, files []string, total int) ([]fileResult, error) {
	results := make([]fileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)

	for i, f := range files {
		g.Go(func() error {
			r, err := p.process(gctx, f)
			if err != nil {
				return err
			}
			results[i] = r
			done := p.walked.Add(1)
			p.progress.Emit(ProgressEvent{Pass: p.id, Phase: PhaseWalk, Status: ProgressWorking, Done: int(done), Total: total})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// process reads, walks and resolves one file. Per-file problems become
// diagnostics; only cancellation is returned as an error.
func (p *pass) process(ctx context.Context, f string) (fileResult, error) {
	r := fileResult{path: f}
	id := p.nodeID(f)

	data, err := p.reader.Read(ctx, f)
	if err != nil {
		if ctx.Err() != nil {
			return r, ctx.Err()
		}
		p.logger.Warn("file not readable", "file", id, "err", err)
		r.readErr = err
		r.diags = append(r.diags, graph.Diagnostic{File: id, Code: errs.CodeNotReadable, Reason: err.Error()})
		return r, nil
	}
	r.size = int64(len(data))

	walkers := p.selector.Select(f)
	if len(walkers) == 0 {
		return r, nil
	}
	walked := make([]walker.Result, 0, len(walkers))
	for _, w := range walkers {
		res, err := p.cache.Walk(ctx, w, data)
		if err != nil {
			if ctx.Err() != nil {
				return r, ctx.Err()
			}
			p.logger.Warn("file not parsed", "file", id, "walker", w.String(), "err", err)
			code := errs.GetCode(err)
			if code == "" {
				code = errs.CodeParseError
			}
			r.diags = append(r.diags, graph.Diagnostic{File: id, Code: code, Reason: err.Error()})
			return r, nil
		}
		walked = append(walked, res)
	}

	r.res = p.resolver.Resolve(f, walker.Merge(walked...).Specifiers)
	for _, u := range r.res.Unresolved {
		p.logger.Debug("unresolved specifier", "file", id, "specifier", u.Specifier, "reason", u.Reason)
		r.diags = append(r.diags, graph.Diagnostic{File: id, Specifier: u.Specifier, Code: u.Code, Reason: u.Reason})
	}
	return r, nil
}

// apply records a file's metadata, edges and diagnostics.
func (p *pass) apply(r fileResult) {
	id := p.nodeID(r.path)
	p.acc.SetBody(id, graph.Body{
		Size:                   r.size,
		BuiltinDependencies:    r.res.Builtin,
		ThirdPartyDependencies: r.res.ThirdParty,
	})
	targets := make([]string, 0, len(r.res.Edges))
	for _, t := range r.res.Edges {
		targets = append(targets, p.nodeID(t))
	}
	p.acc.AddEdges(id, targets...)
	p.acc.Diagnose(r.diags...)
}

// nodeID maps a reader path to its node identity.
func (p *pass) nodeID(f string) string {
	if p.base == "" || p.base == "." {
		return f
	}
	if strings.HasPrefix(f, p.base+"/") {
		return f[len(p.base)+1:]
	}
	return f
}

// normalize cleans a configured path into the slash form readers yield.
func normalize(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "."
	}
	return strings.TrimPrefix(path.Clean(strings.ReplaceAll(p, "\\", "/")), "./")
}
