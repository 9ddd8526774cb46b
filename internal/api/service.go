package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"storyforge/internal/assembly"
	"storyforge/internal/generation"
	"storyforge/internal/history"
	"storyforge/internal/logging"
	"storyforge/internal/project"
	"storyforge/internal/services"
	"storyforge/internal/services/scriptllm"
	"storyforge/internal/variant"
	"storyforge/internal/videotask"
)

// Analyzer extracts a production breakdown from a script. The concrete
// implementation lives in services/scriptllm; tests supply fakes.
type Analyzer interface {
	Analyze(ctx context.Context, script string) (scriptllm.Analysis, error)
}

// Service is the facade every caller (CLI, daemon) drives. It owns the
// advisory lock checks; the core packages below it do not re-check locks.
type Service struct {
	store        *project.Store
	orchestrator *generation.Orchestrator
	tracker      *videotask.Tracker
	merger       *assembly.Merger
	analyzer     Analyzer
	journal      *history.Journal
	logger       *slog.Logger

	clock func() time.Time
	newID func() string
}

// Option adjusts service construction.
type Option func(*Service)

// WithAnalyzer attaches the script analyzer.
func WithAnalyzer(a Analyzer) Option {
	return func(s *Service) { s.analyzer = a }
}

// WithJournal attaches the generation journal for history queries.
func WithJournal(j *history.Journal) Option {
	return func(s *Service) { s.journal = j }
}

// WithClock substitutes the time source.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) { s.clock = fn }
}

// WithIDGenerator substitutes the id source.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// NewService wires the facade over the core components.
func NewService(store *project.Store, orchestrator *generation.Orchestrator,
	tracker *videotask.Tracker, merger *assembly.Merger, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:        store,
		orchestrator: orchestrator,
		tracker:      tracker,
		merger:       merger,
		logger:       logging.NewComponentLogger(logger, "api"),
		clock:        time.Now,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// resolvePool locates the variant pool for one asset slot and reports the
// owning entity's lock state.
func resolvePool(p *project.Project, kind project.Kind, entityID, stage string) (*variant.Pool, bool, error) {
	switch kind {
	case project.KindCharacter:
		st := project.Stage(stage)
		if !project.ValidCharacterStage(st) {
			return nil, false, services.Wrap(services.ErrValidation, "api", "resolve pool",
				fmt.Sprintf("unknown character stage %q", stage), nil)
		}
		if c, ok := p.Character(entityID); ok {
			return c.PoolFor(st), c.Locked, nil
		}
	case project.KindScene:
		if s, ok := p.Scene(entityID); ok {
			return &s.Image, s.Locked, nil
		}
	case project.KindProp:
		if pr, ok := p.Prop(entityID); ok {
			return &pr.Image, pr.Locked, nil
		}
	case project.KindFrame:
		st := project.FrameStage(stage)
		if !project.ValidFrameStage(st) {
			return nil, false, services.Wrap(services.ErrValidation, "api", "resolve pool",
				fmt.Sprintf("unknown frame stage %q", stage), nil)
		}
		if f, ok := p.Frame(entityID); ok {
			return f.PoolFor(st), f.Locked, nil
		}
	default:
		return nil, false, services.Wrap(services.ErrValidation, "api", "resolve pool",
			fmt.Sprintf("unknown entity kind %q", kind), nil)
	}
	return nil, false, services.Wrap(services.ErrNotFound, "api", "resolve pool",
		fmt.Sprintf("%s %s", kind, entityID), nil)
}

// entityLocked reports the advisory lock state of an entity.
func entityLocked(p *project.Project, kind project.Kind, entityID string) (bool, error) {
	switch kind {
	case project.KindCharacter:
		if c, ok := p.Character(entityID); ok {
			return c.Locked, nil
		}
	case project.KindScene:
		if s, ok := p.Scene(entityID); ok {
			return s.Locked, nil
		}
	case project.KindProp:
		if pr, ok := p.Prop(entityID); ok {
			return pr.Locked, nil
		}
	case project.KindFrame:
		if f, ok := p.Frame(entityID); ok {
			return f.Locked, nil
		}
	default:
		return false, services.Wrap(services.ErrValidation, "api", "lock check",
			fmt.Sprintf("unknown entity kind %q", kind), nil)
	}
	return false, services.Wrap(services.ErrNotFound, "api", "lock check",
		fmt.Sprintf("%s %s", kind, entityID), nil)
}

func lockedErr(kind project.Kind, entityID string) error {
	return services.Wrap(services.ErrPrecondition, "api", "lock check",
		fmt.Sprintf("%s %s is locked", kind, entityID), nil)
}

func wrapStoreErr(err error, operation string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, project.ErrNotFound):
		return services.Wrap(services.ErrNotFound, "api", operation, "", err)
	case errors.Is(err, project.ErrStorage):
		return services.Wrap(services.ErrStorage, "api", operation, "", err)
	default:
		return err
	}
}
