// Package watch reruns build passes when source files change. A Source turns
// file-system notifications into Events; a Runner debounces them and asks a
// Rebuilder for a fresh Structure, cancelling any pass still in flight.
package watch

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dusk-indust/depgraph/internal/engine"
	"github.com/dusk-indust/depgraph/internal/graph"
)

// Op is the kind of change an Event reports.
type Op uint8

const (
	OpCreate Op = iota + 1
	OpWrite
	OpRemove
	OpRename
)

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Event is a change to one path.
type Event struct {
	Path string
	Op   Op
}

// Source delivers change events until closed.
type Source interface {
	Events() <-chan Event
	Errors() <-chan error
	Close() error
}

// Rebuilder runs one build pass.
type Rebuilder interface {
	Rebuild(ctx context.Context) (*graph.Structure, error)
}

// DefaultDebounce is how long a Runner waits for the event burst of a single
// save or checkout to settle.
const DefaultDebounce = 150 * time.Millisecond

// Runner coalesces events and triggers rebuilds.
type Runner struct {
	src      Source
	rb       Rebuilder
	debounce time.Duration
	logger   *log.Logger
	onBuild  func(*graph.Structure)
	onError  func(error)
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) RunnerOption {
	return func(r *Runner) { r.debounce = d }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *log.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// OnBuild is called with every published Structure.
func OnBuild(fn func(*graph.Structure)) RunnerOption {
	return func(r *Runner) { r.onBuild = fn }
}

// OnError is called when a pass fails for a reason other than being
// superseded.
func OnError(fn func(error)) RunnerOption {
	return func(r *Runner) { r.onError = fn }
}

// NewRunner returns a Runner reading src and rebuilding through rb.
func NewRunner(src Source, rb Rebuilder, opts ...RunnerOption) *Runner {
	r := &Runner{
		src:      src,
		rb:       rb,
		debounce: DefaultDebounce,
		logger:   log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run blocks until ctx is done or the source closes. At most one pass runs at
// a time: a new burst of events cancels the pass in flight before starting
// the next one.
func (r *Runner) Run(ctx context.Context) error {
	timer := time.NewTimer(r.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	var wg sync.WaitGroup
	var pending []Event
	cancel := context.CancelFunc(func() {})
	events, errc := r.src.Events(), r.src.Errors()
	defer func() {
		cancel()
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			pending = append(pending, ev)
			timer.Reset(r.debounce)

		case err, ok := <-errc:
			if !ok {
				errc = nil
				continue
			}
			r.logger.Warn("watch error", "err", err)

		case <-timer.C:
			r.logger.Debug("change detected", "events", len(pending), "first", pending[0].Path, "op", pending[0].Op)
			pending = pending[:0]

			cancel()
			wg.Wait()
			var passCtx context.Context
			passCtx, cancel = context.WithCancel(ctx)
			wg.Add(1)
			go func() {
				defer wg.Done()
				r.rebuild(passCtx)
			}()
		}
	}
}

func (r *Runner) rebuild(ctx context.Context) {
	s, err := r.rb.Rebuild(ctx)
	switch {
	case err == nil:
		if r.onBuild != nil {
			r.onBuild(s)
		}
	case errors.Is(err, engine.ErrSuperseded), errors.Is(err, context.Canceled):
		r.logger.Debug("rebuild abandoned", "err", err)
	default:
		r.logger.Error("rebuild failed", "err", err)
		if r.onError != nil {
			r.onError(err)
		}
	}
}
