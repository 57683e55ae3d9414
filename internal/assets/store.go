// Package assets serves the monitor's static web content from disk.
package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

var ErrNotFound = errors.New("asset not found")

type Asset struct {
	Body        []byte
	ContentType string
}

type kind struct {
	folder      string
	contentType string
}

// kinds maps a file extension to the folder it lives in and its content type.
var kinds = map[string]kind{
	".html": {"html", "text/html"},
	".htm":  {"html", "text/html"},
	".css":  {"css", "text/css"},
	".js":   {"javascript", "text/javascript"},
	".png":  {"images", "image/png"},
	".jpg":  {"images", "image/jpeg"},
	".jpeg": {"images", "image/jpeg"},
	".gif":  {"images", "image/gif"},
	".ico":  {"images", "image/x-icon"},
	".svg":  {"images", "image/svg+xml"},
}

// Known reports whether p has an extension the store can serve.
func Known(p string) bool {
	_, ok := kinds[strings.ToLower(path.Ext(p))]
	return ok
}

// Store is a read-through cache over the public directory.
type Store struct {
	root string
	log  *log.Logger

	mu    sync.RWMutex
	cache map[string]Asset

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

func NewStore(root string, logger *log.Logger) *Store {
	return &Store{
		root:  root,
		log:   logger,
		cache: make(map[string]Asset),
	}
}

// Lookup returns the asset for a request path such as "/home.html".
func (s *Store) Lookup(p string) (Asset, error) {
	file, ct, err := s.resolve(p)
	if err != nil {
		return Asset{}, err
	}

	s.mu.RLock()
	a, ok := s.cache[file]
	s.mu.RUnlock()
	if ok {
		return a, nil
	}

	b, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Asset{}, fmt.Errorf("%s: %w", p, ErrNotFound)
		}
		return Asset{}, fmt.Errorf("read asset %s: %w", p, err)
	}
	a = Asset{Body: b, ContentType: ct}

	s.mu.Lock()
	s.cache[file] = a
	s.mu.Unlock()
	return a, nil
}

// Require fails if any of paths cannot be served.
func (s *Store) Require(paths ...string) error {
	for _, p := range paths {
		if _, err := s.Lookup(p); err != nil {
			return fmt.Errorf("required asset: %w", err)
		}
	}
	return nil
}

func (s *Store) resolve(p string) (string, string, error) {
	clean := strings.TrimPrefix(p, "/")
	if clean == "" {
		return "", "", fmt.Errorf("%q: %w", p, ErrNotFound)
	}
	for _, seg := range strings.Split(clean, "/") {
		if seg == ".." || seg == "" {
			return "", "", fmt.Errorf("%q: %w", p, ErrNotFound)
		}
	}

	k, ok := kinds[strings.ToLower(path.Ext(clean))]
	if !ok {
		return "", "", fmt.Errorf("%q: %w", p, ErrNotFound)
	}
	return filepath.Join(s.root, k.folder, filepath.FromSlash(clean)), k.contentType, nil
}

// Watch drops cached assets when files under the asset folders change,
// including nested folders and ones created later. Folders that do not
// exist are skipped.
func (s *Store) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("assets: create watcher: %w", err)
	}

	seen := make(map[string]bool)
	for _, k := range kinds {
		if seen[k.folder] {
			continue
		}
		seen[k.folder] = true

		dir := filepath.Join(s.root, k.folder)
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := addTree(w, dir); err != nil {
			_ = w.Close()
			return err
		}
	}

	s.watcher = w
	s.done = make(chan struct{})
	s.wg.Add(1)
	go s.watchLoop()
	return nil
}

func (s *Store) watchLoop() {
	defer s.wg.Done()
	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if err := addTree(s.watcher, ev.Name); err != nil {
						s.log.Warn("cannot watch new asset folder", "error", err)
					}
				}
			}
			s.invalidate(ev.Name)
			s.log.Debug("asset changed", "file", ev.Name, "op", ev.Op.String())
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Error("asset watcher error", "error", err)
		case <-s.done:
			return
		}
	}
}

// invalidate drops name and, when name is a folder, everything below it.
func (s *Store) invalidate(name string) {
	prefix := name + string(filepath.Separator)
	s.mu.Lock()
	defer s.mu.Unlock()
	for file := range s.cache {
		if file == name || strings.HasPrefix(file, prefix) {
			delete(s.cache, file)
		}
	}
}

// addTree watches dir and every folder below it; fsnotify is not recursive.
func addTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.Add(p); err != nil {
			return fmt.Errorf("assets: watch %s: %w", p, err)
		}
		return nil
	})
}

func (s *Store) Close() error {
	if s.watcher == nil {
		return nil
	}
	close(s.done)
	s.wg.Wait()
	err := s.watcher.Close()
	s.watcher = nil
	return err
}
