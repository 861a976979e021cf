package watch

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/dusk-indust/depgraph/internal/fsys"
)

// Directories never watched.
var skipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
}

// FSNotifySource watches a directory tree through fsnotify. Only changes to
// files with a watched extension, manifests and .gitignore files are
// forwarded. Directories created later are watched as they appear.
type FSNotifySource struct {
	w          *fsnotify.Watcher
	extensions []string
	events     chan Event
	errors     chan error
	quit       chan struct{}
	done       chan struct{}
}

var _ Source = (*FSNotifySource)(nil)

// NewFSNotifySource starts watching root and every directory below it.
func NewFSNotifySource(root string, extensions []string) (*FSNotifySource, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	s := &FSNotifySource{
		w:          w,
		extensions: extensions,
		events:     make(chan Event, 64),
		errors:     make(chan error, 8),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	if err := s.addTree(root); err != nil {
		w.Close()
		return nil, err
	}
	go s.loop()
	return s, nil
}

// Events returns the filtered change events.
func (s *FSNotifySource) Events() <-chan Event { return s.events }

// Errors returns watcher errors.
func (s *FSNotifySource) Errors() <-chan error { return s.errors }

// Close stops watching and closes both channels.
func (s *FSNotifySource) Close() error {
	close(s.quit)
	err := s.w.Close()
	<-s.done
	return err
}

func (s *FSNotifySource) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && skipDirs[d.Name()] {
			return filepath.SkipDir
		}
		return s.w.Add(p)
	})
}

func (s *FSNotifySource) loop() {
	defer close(s.done)
	defer close(s.events)
	defer close(s.errors)

	for {
		select {
		case ev, ok := <-s.w.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if !skipDirs[info.Name()] {
						_ = s.addTree(ev.Name)
					}
					continue
				}
			}
			if !s.relevant(ev.Name) {
				continue
			}
			select {
			case s.events <- Event{Path: filepath.ToSlash(ev.Name), Op: convertOp(ev.Op)}:
			case <-s.quit:
				return
			}

		case err, ok := <-s.w.Errors:
			if !ok {
				return
			}
			select {
			case s.errors <- err:
			default:
			}
		}
	}
}

func (s *FSNotifySource) relevant(p string) bool {
	base := filepath.Base(p)
	if base == ".gitignore" || fsys.IsManifest(filepath.ToSlash(p)) {
		return true
	}
	if strings.HasSuffix(base, ".d.ts") {
		return false
	}
	return slices.Contains(s.extensions, filepath.Ext(p))
}

func convertOp(op fsnotify.Op) Op {
	switch {
	case op.Has(fsnotify.Create):
		return OpCreate
	case op.Has(fsnotify.Remove):
		return OpRemove
	case op.Has(fsnotify.Rename):
		return OpRename
	default:
		return OpWrite
	}
}
