package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/depgraph/internal/engine"
	"github.com/dusk-indust/depgraph/internal/graph"
)

type fakeSource struct {
	events chan Event
	errors chan error
}

func newFakeSource() *fakeSource {
	return &fakeSource{events: make(chan Event), errors: make(chan error)}
}

func (f *fakeSource) Events() <-chan Event { return f.events }
func (f *fakeSource) Errors() <-chan error { return f.errors }
func (f *fakeSource) Close() error {
	close(f.events)
	return nil
}

// fakeRebuilder counts passes. When block is set each pass waits for its
// context to be cancelled.
type fakeRebuilder struct {
	calls     atomic.Int32
	cancelled atomic.Int32
	block     bool
	err       error
}

func (f *fakeRebuilder) Rebuild(ctx context.Context) (*graph.Structure, error) {
	n := f.calls.Add(1)
	if f.block {
		<-ctx.Done()
		f.cancelled.Add(1)
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &graph.Structure{ID: fmt.Sprintf("pass-%d", n)}, nil
}

func startRunner(t *testing.T, r *Runner) (cancel func()) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	return func() {
		stop()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("runner did not stop")
		}
	}
}

func TestRunner_DebouncesBurst(t *testing.T) {
	src := newFakeSource()
	rb := &fakeRebuilder{}
	built := make(chan *graph.Structure, 4)
	r := NewRunner(src, rb, WithDebounce(20*time.Millisecond), OnBuild(func(s *graph.Structure) { built <- s }))
	stop := startRunner(t, r)
	defer stop()

	for i := 0; i < 5; i++ {
		src.events <- Event{Path: "a.ts", Op: OpWrite}
	}

	select {
	case s := <-built:
		assert.NotNil(t, s)
	case <-time.After(time.Second):
		t.Fatal("no rebuild after burst")
	}
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), rb.calls.Load())
}

func TestRunner_NewBurstCancelsInFlightPass(t *testing.T) {
	src := newFakeSource()
	rb := &fakeRebuilder{block: true}
	r := NewRunner(src, rb, WithDebounce(10*time.Millisecond))
	stop := startRunner(t, r)

	src.events <- Event{Path: "a.ts", Op: OpWrite}
	require.Eventually(t, func() bool { return rb.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	src.events <- Event{Path: "b.ts", Op: OpCreate}
	require.Eventually(t, func() bool { return rb.calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), rb.cancelled.Load())

	stop()
	assert.Equal(t, int32(2), rb.cancelled.Load())
}

func TestRunner_ReportsFailures(t *testing.T) {
	src := newFakeSource()
	boom := errors.New("boom")
	rb := &fakeRebuilder{err: boom}

	var mu sync.Mutex
	var got []error
	r := NewRunner(src, rb, WithDebounce(5*time.Millisecond), OnError(func(err error) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, err)
	}))
	stop := startRunner(t, r)
	defer stop()

	src.events <- Event{Path: "a.ts", Op: OpRemove}
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, got[0], boom)
}

func TestRunner_SupersededIsSilent(t *testing.T) {
	src := newFakeSource()
	rb := &fakeRebuilder{err: engine.ErrSuperseded}
	called := atomic.Bool{}
	r := NewRunner(src, rb, WithDebounce(5*time.Millisecond), OnError(func(error) { called.Store(true) }))
	stop := startRunner(t, r)
	defer stop()

	src.events <- Event{Path: "a.ts", Op: OpWrite}
	require.Eventually(t, func() bool { return rb.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.False(t, called.Load())
}

func TestRunner_StopsWhenSourceCloses(t *testing.T) {
	src := newFakeSource()
	r := NewRunner(src, &fakeRebuilder{})
	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background()) }()

	require.NoError(t, src.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("runner did not stop after source closed")
	}
}

func TestOp_String(t *testing.T) {
	assert.Equal(t, "create", OpCreate.String())
	assert.Equal(t, "write", OpWrite.String())
	assert.Equal(t, "remove", OpRemove.String())
	assert.Equal(t, "rename", OpRename.String())
	assert.Equal(t, "unknown", Op(0).String())
}

func TestFSNotifySource_ForwardsRelevantChanges(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))

	src, err := NewFSNotifySource(root, []string{".ts"})
	require.NoError(t, err)
	defer src.Close()

	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "notes.md"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "a.ts"), []byte("x"), 0o644))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-src.Events():
			assert.NotEqual(t, "notes.md", filepath.Base(ev.Path))
			if filepath.Base(ev.Path) == "a.ts" {
				return
			}
		case <-deadline:
			t.Fatal("no event for a.ts")
		}
	}
}

func TestFSNotifySource_WatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	src, err := NewFSNotifySource(root, []string{".js"})
	require.NoError(t, err)
	defer src.Close()

	dir := filepath.Join(root, "lib")
	require.NoError(t, os.Mkdir(dir, 0o755))
	// Give the watcher a moment to register the new directory.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.js"), []byte("x"), 0o644))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-src.Events():
			if filepath.Base(ev.Path) == "b.js" {
				return
			}
		case <-deadline:
			t.Fatal("no event for lib/b.js")
		}
	}
}

func TestFSNotifySource_Relevant(t *testing.T) {
	s := &FSNotifySource{extensions: []string{".ts", ".js"}}
	assert.True(t, s.relevant("src/a.ts"))
	assert.True(t, s.relevant("package.json"))
	assert.True(t, s.relevant("sub/tsconfig.json"))
	assert.True(t, s.relevant(".gitignore"))
	assert.False(t, s.relevant("types.d.ts"))
	assert.False(t, s.relevant("README.md"))
}
