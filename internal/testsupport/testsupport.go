// Package testsupport provides shared helpers for package tests: prebuilt
// configs, stores seeded with projects, and stub generation backends.
package testsupport

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"storyforge/internal/config"
	"storyforge/internal/generation"
	"storyforge/internal/logging"
	"storyforge/internal/project"
	"storyforge/internal/videotask"
)

// NewConfig returns a validated config rooted in a per-test temp directory.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Default()
	base := t.TempDir()
	cfg.Paths.DataDir = base + "/data"
	cfg.Paths.OutputDir = base + "/output"
	cfg.Paths.LogDir = base + "/logs"
	cfg.Generation.BatchDelaySeconds = 0

	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate test config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure test directories: %v", err)
	}
	return &cfg
}

// MustOpenStore opens the project store for the given config.
func MustOpenStore(t *testing.T, cfg *config.Config) *project.Store {
	t.Helper()
	store, err := project.Open(cfg.ProjectsFile(), logging.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store
}

// SeedProject stores a minimal project with one character, scene, prop, and
// frame and returns a copy of it.
func SeedProject(t *testing.T, store *project.Store) *project.Project {
	t.Helper()

	now := time.Now()
	p := &project.Project{
		ID:        "prj-1",
		Title:     "Test Production",
		CreatedAt: now,
		Characters: []project.Character{{
			ID:         "char-1",
			Name:       "Mira",
			Appearance: "short silver hair, green coat",
			Status:     project.StatusPending,
		}},
		Scenes: []project.Scene{{
			ID:          "scene-1",
			Name:        "Harbor",
			Description: "foggy harbor at dawn",
			Status:      project.StatusPending,
		}},
		Props: []project.Prop{{
			ID:          "prop-1",
			Name:        "Compass",
			Description: "brass pocket compass",
			Status:      project.StatusPending,
		}},
		Frames: []project.Frame{{
			ID:           "frame-1",
			Order:        1,
			SceneID:      "scene-1",
			CharacterIDs: []string{"char-1"},
			Description:  "Mira studies the compass on the pier",
			Status:       project.StatusPending,
		}},
	}
	if err := store.Put(p); err != nil {
		t.Fatalf("seed project: %v", err)
	}
	got, err := store.Get(p.ID)
	if err != nil {
		t.Fatalf("reload seeded project: %v", err)
	}
	return got
}

// StubImageBackend returns canned artifacts or errors per call, in order.
// After the script is exhausted it keeps returning the last element.
type StubImageBackend struct {
	mu       sync.Mutex
	Script   []StubImageResult
	Requests []generation.ImageRequest
	calls    int
}

// StubImageResult is one scripted backend response.
type StubImageResult struct {
	URL string
	Err error
}

// GenerateImage implements generation.Backend.
func (s *StubImageBackend) GenerateImage(ctx context.Context, req generation.ImageRequest) (generation.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Requests = append(s.Requests, req)
	if len(s.Script) == 0 {
		s.calls++
		return generation.Artifact{URL: fmt.Sprintf("https://img.test/%d.png", s.calls)}, nil
	}
	idx := s.calls
	if idx >= len(s.Script) {
		idx = len(s.Script) - 1
	}
	s.calls++
	result := s.Script[idx]
	if result.Err != nil {
		return generation.Artifact{}, result.Err
	}
	return generation.Artifact{URL: result.URL}, nil
}

// Calls reports how many backend calls were made.
func (s *StubImageBackend) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// StubVideoBackend reports a fixed sequence of poll statuses after a
// successful start.
type StubVideoBackend struct {
	mu         sync.Mutex
	StartErr   error
	PollScript []videotask.PollStatus
	PollErr    error
	polls      int
	Started    []videotask.Request
}

// Start implements videotask.VideoBackend.
func (s *StubVideoBackend) Start(ctx context.Context, req videotask.Request) (videotask.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.StartErr != nil {
		return videotask.Handle{}, s.StartErr
	}
	s.Started = append(s.Started, req)
	return videotask.Handle{ProviderJobID: fmt.Sprintf("job-%d", len(s.Started))}, nil
}

// Poll implements videotask.VideoBackend.
func (s *StubVideoBackend) Poll(ctx context.Context, handle videotask.Handle) (videotask.PollStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PollErr != nil {
		return videotask.PollStatus{}, s.PollErr
	}
	if len(s.PollScript) == 0 {
		return videotask.PollStatus{Done: true, VideoURL: "https://video.test/out.mp4"}, nil
	}
	idx := s.polls
	if idx >= len(s.PollScript) {
		idx = len(s.PollScript) - 1
	}
	s.polls++
	return s.PollScript[idx], nil
}
