// Package engine builds dependency-graph Structures. An Engine validates its
// configuration once, then runs build passes on demand: Initialize for the
// first one, Rebuild for every later one (watch mode). Each pass produces a
// new immutable Structure; a pass that is superseded or cancelled publishes
// nothing.
package engine

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/dusk-indust/depgraph/internal/config"
	"github.com/dusk-indust/depgraph/internal/fsys"
	"github.com/dusk-indust/depgraph/internal/graph"
	"github.com/dusk-indust/depgraph/internal/resolve"
	"github.com/dusk-indust/depgraph/internal/walker"
)

// ErrSuperseded is returned by a pass whose result was discarded because a
// newer pass started before it finished.
var ErrSuperseded = errors.New("engine: build pass superseded")

// ErrNotBuilt is returned by queries made before the first successful pass.
var ErrNotBuilt = errors.New("engine: no structure built yet")

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithCache shares a walk cache across engines. By default each engine owns
// one of walker.DefaultCacheSize entries.
func WithCache(c *walker.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithProgress reports pass progress to pr.
func WithProgress(pr *ProgressReporter) Option {
	return func(e *Engine) { e.progress = pr }
}

// Engine owns the configuration and the last published Structure. It is safe
// for concurrent use.
type Engine struct {
	cfg      config.Config
	reader   fsys.Reader
	cache    *walker.Cache
	logger   *log.Logger
	progress *ProgressReporter

	gen atomic.Uint64

	mu        sync.RWMutex
	current   *graph.Structure
	manifests *resolve.Manifests
}

// New validates cfg and returns an Engine reading through reader. It fails
// with ILLEGAL_CONFIGURATION before touching the file system.
func New(cfg config.Config, reader fsys.Reader, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:    cfg,
		reader: reader,
		logger: log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cache == nil {
		c, err := walker.NewCache(walker.DefaultCacheSize)
		if err != nil {
			return nil, err
		}
		e.cache = c
	}
	return e, nil
}

// Config returns the validated configuration.
func (e *Engine) Config() config.Config {
	return e.cfg
}

// Initialize runs the first build pass.
func (e *Engine) Initialize(ctx context.Context) (*graph.Structure, error) {
	return e.Rebuild(ctx)
}

// Rebuild runs a fresh build pass and publishes its Structure unless a newer
// pass started meanwhile, in which case it returns ErrSuperseded. Callers
// must treat the returned Structure as read-only.
func (e *Engine) Rebuild(ctx context.Context) (*graph.Structure, error) {
	gen := e.gen.Add(1)
	id := uuid.NewString()
	start := time.Now()

	p := newPass(id, e.cfg, e.reader, e.cache, e.logger, e.progress)
	s, err := p.run(ctx)
	if err != nil {
		e.progress.Emit(ProgressEvent{Pass: id, Phase: PhaseWalk, Status: ProgressFailed, Message: err.Error()})
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen.Load() {
		e.logger.Debug("discarding superseded build", "pass", id)
		return nil, ErrSuperseded
	}
	e.current = s
	e.manifests = p.manifests

	e.logger.Info("graph built",
		"pass", id,
		"files", len(s.Files),
		"cycles", len(s.Cycles),
		"diagnostics", len(s.Diagnostics),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return s, nil
}

// GetStructure returns the last published Structure, or ErrNotBuilt.
func (e *Engine) GetStructure() (*graph.Structure, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.current == nil {
		return nil, ErrNotBuilt
	}
	return e.current, nil
}

// Manifests returns the manifests loaded by the last published pass.
func (e *Engine) Manifests() (*resolve.Manifests, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.current == nil {
		return nil, ErrNotBuilt
	}
	return e.manifests, nil
}

// UnusedDependencies lists the manifest dependencies no module of the last
// published Structure references. Only meaningful with third-party tracking.
func (e *Engine) UnusedDependencies() ([]graph.UnusedDependency, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.current == nil {
		return nil, ErrNotBuilt
	}
	declared := make(map[string]string)
	for name, kind := range e.manifests.Declared() {
		declared[name] = string(kind)
	}
	return graph.UnusedDependencies(e.current, declared), nil
}
