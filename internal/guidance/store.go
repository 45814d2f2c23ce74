// Package guidance serves the static documentation texts exposed as MCP
// resources. Defaults are compiled in; an optional override directory lets
// operators edit the documents without rebuilding, with changes picked up
// live via fsnotify.
package guidance

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

//go:embed docs/*.md
var embedded embed.FS

// Document names, used as the last URI segment of guidance resources.
const (
	DocGetData    = "get-data"
	DocCountBy    = "count-by"
	DocSQLQueries = "sql-queries"
)

// Store holds the guidance documents currently being served.
type Store struct {
	dir     string
	verbose bool

	mu   sync.RWMutex
	docs map[string]string

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewStore loads the embedded defaults and overlays any .md files found in
// dir (empty dir means embedded only). Call Start to watch dir for edits.
func NewStore(dir string, verbose bool) (*Store, error) {
	s := &Store{
		dir:     dir,
		verbose: verbose,
		docs:    make(map[string]string),
	}

	if err := fs.WalkDir(embedded, "docs", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := embedded.ReadFile(path)
		if err != nil {
			return err
		}
		s.docs[docName(path)] = string(data)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("load embedded guidance: %w", err)
	}

	if dir != "" {
		if err := s.loadDir(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Get returns one document by name.
func (s *Store) Get(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	text, ok := s.docs[name]
	return text, ok
}

// Names returns the names of all loaded documents.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.docs))
	for name := range s.docs {
		names = append(names, name)
	}
	return names
}

// Start begins watching the override directory and reloading documents as
// they change. No-op when the store has no directory.
func (s *Store) Start(ctx context.Context) error {
	if s.dir == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create guidance watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch guidance dir %s: %w", s.dir, err)
	}
	s.watcher = watcher

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.watchLoop(ctx)
	return nil
}

// Stop stops the directory watcher.
func (s *Store) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.watcher != nil {
		s.watcher.Close()
	}
	s.wg.Wait()
}

func (s *Store) watchLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if filepath.Ext(event.Name) != ".md" {
				continue
			}
			if err := s.loadFile(event.Name); err != nil {
				log.Printf("guidance: reload %s: %v", event.Name, err)
			} else if s.verbose {
				log.Printf("guidance: reloaded %s", event.Name)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("guidance: watcher error: %v", err)
		}
	}
}

// loadDir overlays every .md file in the override directory.
func (s *Store) loadDir() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read guidance dir %s: %w", s.dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".md" {
			continue
		}
		if err := s.loadFile(filepath.Join(s.dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.docs[docName(path)] = string(data)
	s.mu.Unlock()
	return nil
}

func docName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
