package note

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/mossline/notewise/internal/embedding"
)

// FileStore is a Source backed by a JSON file exported by the persistence
// collaborator. Notes missing a cached embedding get one computed on load;
// this is the caller-side initializer role, the retrieval core itself never
// writes embeddings back.
type FileStore struct {
	path string
	log  *zap.Logger

	mu    sync.RWMutex
	notes []Note
}

// NewFileStore creates a store for the notes file at path. Call Load before
// first use.
func NewFileStore(path string, log *zap.Logger) *FileStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileStore{path: path, log: log}
}

// Load reads the notes file and swaps the snapshot atomically.
func (s *FileStore) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read notes file: %w", err)
	}

	var notes []Note
	if err := json.Unmarshal(data, &notes); err != nil {
		return fmt.Errorf("parse notes file %s: %w", s.path, err)
	}

	embedded := 0
	for i := range notes {
		if len(notes[i].Embedding) != embedding.Dimension {
			notes[i].Embedding = embedding.Embed(notes[i].Title + "\n" + notes[i].Body)
			embedded++
		}
	}

	s.mu.Lock()
	s.notes = notes
	s.mu.Unlock()

	s.log.Info("notes loaded",
		zap.Int("count", len(notes)),
		zap.Int("embedded", embedded),
		zap.String("path", s.path))
	return nil
}

// Notes returns a copy of the current snapshot.
func (s *FileStore) Notes() []Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Note, len(s.notes))
	copy(out, s.notes)
	return out
}

// Watch reloads the store whenever the notes file changes. It blocks until
// done is closed or the watcher fails. Reload errors are logged and the
// previous snapshot is kept.
func (s *FileStore) Watch(done <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors replace files on save.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("watch %s: %w", s.path, err)
	}

	for {
		select {
		case <-done:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := s.Load(); err != nil {
				s.log.Warn("notes reload failed, keeping previous snapshot", zap.Error(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("notes watcher error", zap.Error(err))
		}
	}
}
