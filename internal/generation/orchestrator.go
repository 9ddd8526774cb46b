package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"storyforge/internal/history"
	"storyforge/internal/logging"
	"storyforge/internal/project"
	"storyforge/internal/services"
	"storyforge/internal/variant"
)

// Request describes one image generation invocation against an asset slot.
type Request struct {
	ProjectID string
	EntityID  string
	Kind      project.Kind
	// Stage selects the asset slot for characters (full_body, three_view,
	// headshot) and frames (sketch, rendered). Ignored for scenes and props.
	Stage     string
	BatchSize int

	// Prompt overrides the default prompt built from entity metadata.
	Prompt         string
	StyleOverride  string
	NegativePrompt string
	ApplyStyle     bool
	// Model overrides the project's configured image model.
	Model string
}

// Orchestrator runs the three-phase generation flow: prepare inside the
// project critical section, call the backend outside any lock, finalize
// inside the critical section again.
type Orchestrator struct {
	store   *project.Store
	backend Backend
	journal *history.Journal
	policy  variant.Policy
	logger  *slog.Logger

	clock          func() time.Time
	newID          func() string
	batchDelay     time.Duration
	requestTimeout time.Duration
}

// Option adjusts orchestrator construction.
type Option func(*Orchestrator)

// WithClock substitutes the time source.
func WithClock(fn func() time.Time) Option {
	return func(o *Orchestrator) { o.clock = fn }
}

// WithIDGenerator substitutes the variant id source.
func WithIDGenerator(fn func() string) Option {
	return func(o *Orchestrator) { o.newID = fn }
}

// WithBatchDelay sets the courtesy delay between sequential batch items.
func WithBatchDelay(d time.Duration) Option {
	return func(o *Orchestrator) { o.batchDelay = d }
}

// WithRequestTimeout bounds each individual backend call.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.requestTimeout = d }
}

// WithPolicy sets the retention policy applied after inserts.
func WithPolicy(p variant.Policy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

// WithJournal attaches the generation journal.
func WithJournal(j *history.Journal) Option {
	return func(o *Orchestrator) { o.journal = j }
}

// New constructs an orchestrator with default timing and retention.
func New(store *project.Store, backend Backend, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:          store,
		backend:        backend,
		policy:         variant.DefaultPolicy(),
		logger:         logging.NewComponentLogger(logger, "generation"),
		clock:          time.Now,
		newID:          uuid.NewString,
		batchDelay:     time.Second,
		requestTimeout: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type plan struct {
	prompt     string
	negative   string
	references []string
	size       string
	model      string
}

type produced struct {
	url string
	at  time.Time
}

// Generate runs one batch against the requested asset slot. Partial batch
// success counts as success; when every item fails the slot is marked failed
// and ErrGenerationFailed is returned, except that a batch that never reached
// the provider puts the slot back to pending. The entity is persisted
// regardless of outcome.
func (o *Orchestrator) Generate(ctx context.Context, req Request) error {
	if req.BatchSize <= 0 {
		req.BatchSize = 1
	}
	ctx = services.WithProjectID(ctx, req.ProjectID)
	ctx = services.WithEntityID(ctx, req.EntityID)
	ctx = services.WithStage(ctx, req.Stage)

	var pl plan
	err := o.store.WithProject(req.ProjectID, func(p *project.Project) error {
		prepared, err := o.prepare(p, req)
		if err != nil {
			return err
		}
		pl = prepared
		return nil
	})
	if err != nil {
		return wrapStoreErr(err, "prepare")
	}

	o.logger.Info("starting image batch",
		logging.String(logging.FieldProjectID, req.ProjectID),
		logging.String(logging.FieldEntityID, req.EntityID),
		logging.String(logging.FieldKind, string(req.Kind)),
		logging.String(logging.FieldStage, req.Stage),
		logging.Int(logging.FieldBatchSize, req.BatchSize))

	var (
		successes []produced
		lastErr   error
	)
	for i := 0; i < req.BatchSize; i++ {
		if i > 0 && o.batchDelay > 0 {
			if err := sleepCtx(ctx, o.batchDelay); err != nil {
				lastErr = err
				break
			}
		}

		start := o.clock()
		callCtx, cancel := context.WithTimeout(ctx, o.requestTimeout)
		artifact, err := o.backend.GenerateImage(callCtx, ImageRequest{
			Model:           pl.model,
			Prompt:          pl.prompt,
			NegativePrompt:  pl.negative,
			Size:            pl.size,
			ReferenceImages: pl.references,
		})
		cancel()
		o.recordImage(ctx, req, pl, err, o.clock().Sub(start))

		if err != nil {
			lastErr = err
			o.logger.Warn("batch item failed",
				logging.String(logging.FieldProjectID, req.ProjectID),
				logging.String(logging.FieldEntityID, req.EntityID),
				logging.Int("item", i+1),
				logging.Error(err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		successes = append(successes, produced{url: artifact.URL, at: o.clock()})
	}

	finalizeErr := o.store.WithProject(req.ProjectID, func(p *project.Project) error {
		slot, err := resolveSlot(p, req)
		if err != nil {
			return err
		}
		if len(successes) == 0 {
			status, terminal := services.FailureStatus(lastErr)
			if !terminal {
				// Nothing reached the provider; leave the slot queued.
				status = project.StatusPending
			}
			*slot.status = status
			return nil
		}

		for _, item := range successes {
			autoSelect := req.BatchSize == 1 || slot.pool.SelectedID == ""
			slot.pool.Insert(variant.Variant{
				ID:         o.newID(),
				URL:        item.url,
				CreatedAt:  item.at,
				PromptUsed: pl.prompt,
			}, autoSelect)
		}
		if evicted := o.policy.Enforce(slot.pool); len(evicted) > 0 {
			o.logger.Debug("retention evicted variants",
				logging.String(logging.FieldEntityID, req.EntityID),
				logging.Int("evicted", len(evicted)))
		}
		slot.touch(o.clock())
		*slot.status = project.StatusCompleted
		return nil
	})
	if finalizeErr != nil {
		return wrapStoreErr(finalizeErr, "finalize")
	}

	if len(successes) == 0 {
		return services.Wrap(services.ErrGenerationFailed, "generation", "generate",
			fmt.Sprintf("all %d batch items failed", req.BatchSize), lastErr)
	}
	o.logger.Info("image batch complete",
		logging.String(logging.FieldProjectID, req.ProjectID),
		logging.String(logging.FieldEntityID, req.EntityID),
		logging.Int("succeeded", len(successes)),
		logging.Int(logging.FieldBatchSize, req.BatchSize))
	return nil
}

// prepare validates the request, resolves style, prompt, and reference
// images, and marks the slot processing.
func (o *Orchestrator) prepare(p *project.Project, req Request) (plan, error) {
	slot, err := resolveSlot(p, req)
	if err != nil {
		return plan{}, err
	}

	var references []string
	switch req.Kind {
	case project.KindCharacter:
		stage := project.Stage(req.Stage)
		if stage != project.StageFullBody {
			c, _ := p.Character(req.EntityID)
			ref, err := resolveCharacterReference(p, c, stage)
			if err != nil {
				return plan{}, err
			}
			references = []string{ref}
		}
	case project.KindFrame:
		if project.FrameStage(req.Stage) == project.FrameStageRendered {
			f, _ := p.Frame(req.EntityID)
			references = frameReferences(p, f)
		}
	}

	prompt := req.Prompt
	if prompt == "" {
		prompt = slot.defaultPrompt
	}
	if prompt == "" {
		return plan{}, services.Wrap(services.ErrValidation, "generation", "prepare",
			"no prompt supplied and entity has no descriptive fields", nil)
	}

	style := ResolveStyle(p, req.StyleOverride, req.NegativePrompt, req.ApplyStyle)
	if style.Prompt != "" {
		prompt = joinPrompts(prompt, style.Prompt)
	}

	model := req.Model
	if model == "" {
		model = p.ModelSettings.ImageModel
	}

	*slot.status = project.StatusProcessing
	return plan{
		prompt:     prompt,
		negative:   style.NegativePrompt,
		references: references,
		size:       p.ModelSettings.ImageSize(),
		model:      model,
	}, nil
}

type slotRef struct {
	pool          *variant.Pool
	status        *project.Status
	touch         func(time.Time)
	defaultPrompt string
}

func resolveSlot(p *project.Project, req Request) (slotRef, error) {
	switch req.Kind {
	case project.KindCharacter:
		stage := project.Stage(req.Stage)
		if !project.ValidCharacterStage(stage) {
			return slotRef{}, services.Wrap(services.ErrValidation, "generation", "resolve slot",
				fmt.Sprintf("unknown character stage %q", req.Stage), nil)
		}
		c, ok := p.Character(req.EntityID)
		if !ok {
			return slotRef{}, services.Wrap(services.ErrNotFound, "generation", "resolve slot",
				fmt.Sprintf("character %s", req.EntityID), nil)
		}
		return slotRef{
			pool:          c.PoolFor(stage),
			status:        &c.Status,
			touch:         func(t time.Time) { c.Touch(stage, t) },
			defaultPrompt: characterPrompt(c, stage),
		}, nil
	case project.KindScene:
		s, ok := p.Scene(req.EntityID)
		if !ok {
			return slotRef{}, services.Wrap(services.ErrNotFound, "generation", "resolve slot",
				fmt.Sprintf("scene %s", req.EntityID), nil)
		}
		return slotRef{
			pool:          &s.Image,
			status:        &s.Status,
			touch:         func(t time.Time) { s.UpdatedAt = t },
			defaultPrompt: scenePrompt(s),
		}, nil
	case project.KindProp:
		pr, ok := p.Prop(req.EntityID)
		if !ok {
			return slotRef{}, services.Wrap(services.ErrNotFound, "generation", "resolve slot",
				fmt.Sprintf("prop %s", req.EntityID), nil)
		}
		return slotRef{
			pool:          &pr.Image,
			status:        &pr.Status,
			touch:         func(t time.Time) { pr.UpdatedAt = t },
			defaultPrompt: propPrompt(pr),
		}, nil
	case project.KindFrame:
		stage := project.FrameStage(req.Stage)
		if !project.ValidFrameStage(stage) {
			return slotRef{}, services.Wrap(services.ErrValidation, "generation", "resolve slot",
				fmt.Sprintf("unknown frame stage %q", req.Stage), nil)
		}
		f, ok := p.Frame(req.EntityID)
		if !ok {
			return slotRef{}, services.Wrap(services.ErrNotFound, "generation", "resolve slot",
				fmt.Sprintf("frame %s", req.EntityID), nil)
		}
		return slotRef{
			pool:          f.PoolFor(stage),
			status:        &f.Status,
			touch:         func(t time.Time) { f.Touch(stage, t) },
			defaultPrompt: framePrompt(p, f, stage),
		}, nil
	}
	return slotRef{}, services.Wrap(services.ErrValidation, "generation", "resolve slot",
		fmt.Sprintf("unknown entity kind %q", req.Kind), nil)
}

func (o *Orchestrator) recordImage(ctx context.Context, req Request, pl plan, callErr error, elapsed time.Duration) {
	if o.journal == nil {
		return
	}
	detail := ""
	if callErr != nil {
		detail = callErr.Error()
	}
	err := o.journal.RecordImage(ctx, history.ImageEvent{
		ProjectID: req.ProjectID,
		EntityID:  req.EntityID,
		Kind:      string(req.Kind),
		Stage:     req.Stage,
		Model:     pl.model,
		Prompt:    pl.prompt,
		OK:        callErr == nil,
		Detail:    detail,
		Duration:  elapsed,
	})
	if err != nil {
		o.logger.Warn("journal write failed", logging.Error(err))
	}
}

func wrapStoreErr(err error, operation string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, project.ErrNotFound):
		return services.Wrap(services.ErrNotFound, "generation", operation, "", err)
	case errors.Is(err, project.ErrStorage):
		return services.Wrap(services.ErrStorage, "generation", operation, "", err)
	default:
		return err
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
