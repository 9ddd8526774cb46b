package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gofrs/flock"

	"storyforge/internal/logging"
)

var (
	// ErrNotFound reports that a project id is not in the store.
	ErrNotFound = errors.New("project not found")
	// ErrStorage reports a persistence failure. Storage failures are never
	// swallowed; the in-memory state is rolled back when a save fails.
	ErrStorage = errors.New("project storage error")
)

// Store persists all projects as one JSON document. Writes are atomic
// (temp file + rename) and guarded by a cross-process file lock; mutations
// run under a per-project mutex so concurrent read-modify-write cycles on
// the same project serialize.
type Store struct {
	path   string
	logger *slog.Logger
	fileLk *flock.Flock

	mu       sync.Mutex
	projects map[string]*Project
	locks    map[string]*sync.Mutex
}

// Open loads the project document at path, creating an empty store when the
// file does not exist yet. A corrupt document is surfaced as ErrStorage
// rather than silently starting empty.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "store")

	s := &Store{
		path:     path,
		logger:   logger,
		fileLk:   flock.New(path + ".lock"),
		projects: make(map[string]*Project),
		locks:    make(map[string]*sync.Mutex),
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns a deep copy of the project with the given id.
func (s *Store) Get(id string) (*Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return p.Clone()
}

// List returns deep copies of every project, newest first.
func (s *Store) List() ([]*Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Project, 0, len(s.projects))
	for _, p := range s.projects {
		clone, err := p.Clone()
		if err != nil {
			return nil, err
		}
		out = append(out, clone)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Put inserts or replaces a project and persists the document.
func (s *Store) Put(p *Project) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("%w: project id required", ErrStorage)
	}
	clone, err := p.Clone()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	clone.UpdatedAt = nowFunc()

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, existed := s.projects[p.ID]
	s.projects[p.ID] = clone
	if err := s.save(); err != nil {
		if existed {
			s.projects[p.ID] = previous
		} else {
			delete(s.projects, p.ID)
		}
		return err
	}
	return nil
}

// Delete removes a project and persists the document.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, ok := s.projects[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.projects, id)
	if err := s.save(); err != nil {
		s.projects[id] = previous
		return err
	}
	delete(s.locks, id)
	return nil
}

// WithProject runs fn inside the project's read-modify-write critical
// section. fn receives a deep copy; when it returns nil the copy replaces
// the stored project and the document is persisted. Any error from fn
// aborts the write.
func (s *Store) WithProject(id string, fn func(*Project) error) error {
	lock, err := s.projectLock(id)
	if err != nil {
		return err
	}
	lock.Lock()
	defer lock.Unlock()

	working, err := s.Get(id)
	if err != nil {
		return err
	}
	if err := fn(working); err != nil {
		return err
	}
	return s.Put(working)
}

// NextPendingTask returns the oldest pending video task across all
// projects, if any.
func (s *Store) NextPendingTask() (projectID string, task VideoTask, found bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.projects {
		for _, t := range p.Tasks {
			if t.Status != StatusPending {
				continue
			}
			if !found || t.CreatedAt.Before(task.CreatedAt) {
				projectID = p.ID
				task = t
				found = true
			}
		}
	}
	return projectID, task, found
}

func (s *Store) projectLock(id string) (*sync.Mutex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[id]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock, nil
}

type document struct {
	Projects []*Project `json:"projects"`
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: read %s: %w", ErrStorage, s.path, err)
	}
	if len(data) == 0 {
		return nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: parse %s: %w", ErrStorage, s.path, err)
	}
	for _, p := range doc.Projects {
		if p != nil && p.ID != "" {
			s.projects[p.ID] = p
		}
	}

	s.logger.Debug("loaded project store",
		logging.Int("project_count", len(s.projects)),
		logging.String(logging.FieldPath, s.path))
	return nil
}

// save writes the document atomically. Callers hold s.mu.
func (s *Store) save() error {
	doc := document{Projects: make([]*Project, 0, len(s.projects))}
	for _, p := range s.projects {
		doc.Projects = append(doc.Projects, p)
	}
	// Sort for deterministic output.
	sort.Slice(doc.Projects, func(i, j int) bool {
		return doc.Projects[i].ID < doc.Projects[j].ID
	})

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal document: %w", ErrStorage, err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: create store directory: %w", ErrStorage, err)
		}
	}

	if err := s.fileLk.Lock(); err != nil {
		return fmt.Errorf("%w: acquire file lock: %w", ErrStorage, err)
	}
	defer func() {
		_ = s.fileLk.Unlock()
	}()

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("%w: write temp file: %w", ErrStorage, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: rename temp file: %w", ErrStorage, err)
	}
	return nil
}
