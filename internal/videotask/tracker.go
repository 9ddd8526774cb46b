package videotask

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"storyforge/internal/fileutil"
	"storyforge/internal/history"
	"storyforge/internal/logging"
	"storyforge/internal/project"
	"storyforge/internal/services"
	"storyforge/internal/variant"
)

// Request describes one provider video generation job.
type Request struct {
	Model           string
	Prompt          string
	Mode            project.VideoMode
	AudioMode       project.AudioMode
	SourceImagePath string
	SourceImageURL  string
}

// Handle identifies a running provider job.
type Handle struct {
	ProviderJobID string
}

// PollStatus is the provider-side state of a job.
type PollStatus struct {
	Done     bool
	Failed   bool
	VideoURL string
	Message  string
}

// VideoBackend starts and polls asynchronous video generation jobs.
type VideoBackend interface {
	Start(ctx context.Context, req Request) (Handle, error)
	Poll(ctx context.Context, handle Handle) (PollStatus, error)
}

// CreateRequest describes a new video task for an entity or frame.
type CreateRequest struct {
	ProjectID string
	OwnerKind project.Kind
	OwnerID   string
	// VariantID selects the source variant; empty uses the slot's current
	// selection.
	VariantID string
	Prompt    string
	Mode      project.VideoMode
	AudioMode project.AudioMode
}

// Tracker owns the video task lifecycle: snapshot, creation, and the
// pending to terminal state machine. Transitions are one-directional and
// never retried automatically.
type Tracker struct {
	store   *project.Store
	backend VideoBackend
	journal *history.Journal
	logger  *slog.Logger

	inputsDir    string
	model        string
	pollInterval time.Duration
	pollBudget   time.Duration
	clock        func() time.Time
	newID        func() string
}

// Option adjusts tracker construction.
type Option func(*Tracker)

// WithPollInterval sets the delay between provider polls.
func WithPollInterval(d time.Duration) Option {
	return func(t *Tracker) { t.pollInterval = d }
}

// WithPollBudget sets the hard wall-clock budget for one task.
func WithPollBudget(d time.Duration) Option {
	return func(t *Tracker) { t.pollBudget = d }
}

// WithClock substitutes the time source.
func WithClock(fn func() time.Time) Option {
	return func(t *Tracker) { t.clock = fn }
}

// WithIDGenerator substitutes the task id source.
func WithIDGenerator(fn func() string) Option {
	return func(t *Tracker) { t.newID = fn }
}

// WithJournal attaches the generation journal.
func WithJournal(j *history.Journal) Option {
	return func(t *Tracker) { t.journal = j }
}

// WithModel sets the default provider video model.
func WithModel(model string) Option {
	return func(t *Tracker) { t.model = model }
}

// New constructs a tracker writing snapshots under inputsDir.
func New(store *project.Store, backend VideoBackend, inputsDir string, logger *slog.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		store:        store,
		backend:      backend,
		logger:       logging.NewComponentLogger(logger, "videotask"),
		inputsDir:    inputsDir,
		pollInterval: 15 * time.Second,
		pollBudget:   15 * time.Minute,
		clock:        time.Now,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Create records a new pending video task. The source image is snapshotted
// into a per-task location first, so the task keeps a usable source even if
// the variant is later evicted or deleted.
func (t *Tracker) Create(ctx context.Context, req CreateRequest) (string, error) {
	if !project.ValidVideoMode(req.Mode) {
		return "", services.Wrap(services.ErrValidation, "videotask", "create",
			fmt.Sprintf("unknown video mode %q", req.Mode), nil)
	}

	p, err := t.store.Get(req.ProjectID)
	if err != nil {
		return "", wrapStoreErr(err, "create")
	}
	source, err := sourceVariant(p, req)
	if err != nil {
		return "", err
	}

	taskID := t.newID()
	snapshotPath, err := t.snapshot(taskID, source.URL)
	if err != nil {
		return "", services.Wrap(services.ErrStorage, "videotask", "snapshot source", "", err)
	}

	now := t.clock()
	task := project.VideoTask{
		ID:              taskID,
		OwnerKind:       req.OwnerKind,
		OwnerID:         req.OwnerID,
		Mode:            req.Mode,
		AudioMode:       req.AudioMode,
		Prompt:          req.Prompt,
		SourceImagePath: snapshotPath,
		SourceImageURL:  source.URL,
		Status:          project.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = t.store.WithProject(req.ProjectID, func(p *project.Project) error {
		ids, err := ownerTaskIDs(p, req.OwnerKind, req.OwnerID)
		if err != nil {
			return err
		}
		p.Tasks = append(p.Tasks, task)
		*ids = append(*ids, taskID)
		return nil
	})
	if err != nil {
		return "", wrapStoreErr(err, "create")
	}

	t.record(ctx, req.ProjectID, task, "created")
	t.logger.Info("video task created",
		logging.String(logging.FieldProjectID, req.ProjectID),
		logging.String(logging.FieldTaskID, taskID),
		logging.String(logging.FieldKind, string(req.OwnerKind)),
		logging.String(logging.FieldEntityID, req.OwnerID))
	return taskID, nil
}

// Process drives one pending task to a terminal state: start the provider
// job, then poll until completion, failure, or the wall-clock budget runs
// out. Budget exhaustion surfaces as ErrTimeout and marks the task failed.
func (t *Tracker) Process(ctx context.Context, projectID, taskID string) error {
	ctx = services.WithProjectID(ctx, projectID)
	ctx = services.WithTaskID(ctx, taskID)

	var startReq Request
	err := t.store.WithProject(projectID, func(p *project.Project) error {
		task, ok := p.Task(taskID)
		if !ok {
			return services.Wrap(services.ErrNotFound, "videotask", "process",
				fmt.Sprintf("task %s", taskID), nil)
		}
		if !project.ValidTransition(task.Status, project.StatusProcessing) {
			return services.Wrap(services.ErrPrecondition, "videotask", "process",
				fmt.Sprintf("task is %s, expected pending", task.Status), nil)
		}
		task.Status = project.StatusProcessing
		task.UpdatedAt = t.clock()
		startReq = Request{
			Model:           t.model,
			Prompt:          task.Prompt,
			Mode:            task.Mode,
			AudioMode:       task.AudioMode,
			SourceImagePath: task.SourceImagePath,
			SourceImageURL:  task.SourceImageURL,
		}
		return nil
	})
	if err != nil {
		return wrapStoreErr(err, "process")
	}

	handle, err := t.backend.Start(ctx, startReq)
	if err != nil {
		var persistErr error
		if _, terminal := services.FailureStatus(err); terminal {
			persistErr = t.fail(ctx, projectID, taskID, err.Error())
		} else {
			// The job never reached the provider; requeue the task so a
			// later run can retry once the precondition clears.
			persistErr = t.requeue(ctx, projectID, taskID)
		}
		if persistErr != nil {
			t.logger.Error("failed to persist task state", logging.Error(persistErr))
		}
		return services.Wrap(services.ErrGenerationFailed, "videotask", "start job", "", err)
	}

	if err := t.store.WithProject(projectID, func(p *project.Project) error {
		if task, ok := p.Task(taskID); ok {
			task.ProviderJobID = handle.ProviderJobID
			task.UpdatedAt = t.clock()
		}
		return nil
	}); err != nil {
		return wrapStoreErr(err, "record job id")
	}

	deadline := t.clock().Add(t.pollBudget)
	for {
		if err := sleepCtx(ctx, t.pollInterval); err != nil {
			return services.Wrap(services.ErrTimeout, "videotask", "poll", "canceled", err)
		}

		status, err := t.backend.Poll(ctx, handle)
		switch {
		case err != nil:
			// Transient poll errors are retried until the budget expires.
			t.logger.Warn("poll failed",
				logging.String(logging.FieldTaskID, taskID),
				logging.Error(err))
		case status.Failed:
			if failErr := t.fail(ctx, projectID, taskID, status.Message); failErr != nil {
				return failErr
			}
			return services.Wrap(services.ErrGenerationFailed, "videotask", "poll",
				firstNonEmpty(status.Message, "provider reported failure"), nil)
		case status.Done:
			return t.complete(ctx, projectID, taskID, status.VideoURL)
		}

		if t.clock().After(deadline) {
			if failErr := t.fail(ctx, projectID, taskID, "polling budget exhausted"); failErr != nil {
				return failErr
			}
			return services.Wrap(services.ErrTimeout, "videotask", "poll",
				fmt.Sprintf("no result within %s", t.pollBudget), nil)
		}
	}
}

func (t *Tracker) complete(ctx context.Context, projectID, taskID, videoURL string) error {
	now := t.clock()
	err := t.store.WithProject(projectID, func(p *project.Project) error {
		task, ok := p.Task(taskID)
		if !ok {
			return services.Wrap(services.ErrNotFound, "videotask", "complete",
				fmt.Sprintf("task %s", taskID), nil)
		}
		task.Status = project.StatusCompleted
		task.VideoURL = videoURL
		task.UpdatedAt = now
		task.CompletedAt = now
		t.record(ctx, projectID, *task, "")
		return nil
	})
	if err != nil {
		return wrapStoreErr(err, "complete")
	}
	t.logger.Info("video task completed",
		logging.String(logging.FieldProjectID, projectID),
		logging.String(logging.FieldTaskID, taskID))
	return nil
}

func (t *Tracker) fail(ctx context.Context, projectID, taskID, message string) error {
	now := t.clock()
	err := t.store.WithProject(projectID, func(p *project.Project) error {
		task, ok := p.Task(taskID)
		if !ok {
			return services.Wrap(services.ErrNotFound, "videotask", "fail",
				fmt.Sprintf("task %s", taskID), nil)
		}
		task.Status = project.StatusFailed
		task.ErrorMessage = message
		task.UpdatedAt = now
		t.record(ctx, projectID, *task, message)
		return nil
	})
	return wrapStoreErr(err, "fail")
}

// requeue rolls a task back to pending after a failure that never reached
// the provider.
func (t *Tracker) requeue(ctx context.Context, projectID, taskID string) error {
	now := t.clock()
	err := t.store.WithProject(projectID, func(p *project.Project) error {
		if task, ok := p.Task(taskID); ok {
			task.Status = project.StatusPending
			task.UpdatedAt = now
		}
		return nil
	})
	return wrapStoreErr(err, "requeue")
}

func (t *Tracker) record(ctx context.Context, projectID string, task project.VideoTask, detail string) {
	if t.journal == nil {
		return
	}
	err := t.journal.RecordVideo(ctx, history.VideoEvent{
		ProjectID: projectID,
		TaskID:    task.ID,
		OwnerKind: string(task.OwnerKind),
		OwnerID:   task.OwnerID,
		Status:    string(task.Status),
		Detail:    detail,
	})
	if err != nil {
		t.logger.Warn("journal write failed", logging.Error(err))
	}
}

// snapshot copies a local source image into the per-task inputs location.
// Remote sources are referenced by URL and cannot be copied; the snapshot
// path is then empty.
func (t *Tracker) snapshot(taskID, sourceURL string) (string, error) {
	local := localPath(sourceURL)
	if local == "" {
		return "", nil
	}
	if _, err := os.Stat(local); err != nil {
		return "", fmt.Errorf("stat source image: %w", err)
	}
	dst := filepath.Join(t.inputsDir, taskID+filepath.Ext(local))
	if err := fileutil.CopyFile(local, dst); err != nil {
		return "", fmt.Errorf("snapshot source image: %w", err)
	}
	return dst, nil
}

func localPath(url string) string {
	switch {
	case url == "":
		return ""
	case filepath.IsAbs(url):
		return url
	case len(url) > 7 && url[:7] == "file://":
		return url[7:]
	default:
		return ""
	}
}

func sourceVariant(p *project.Project, req CreateRequest) (variant.Variant, error) {
	pool, err := sourcePool(p, req.OwnerKind, req.OwnerID)
	if err != nil {
		return variant.Variant{}, err
	}
	if req.VariantID != "" {
		if v, ok := pool.Get(req.VariantID); ok {
			return v, nil
		}
		return variant.Variant{}, services.Wrap(services.ErrNotFound, "videotask", "resolve source",
			fmt.Sprintf("variant %s", req.VariantID), nil)
	}
	if v, ok := pool.Selected(); ok {
		return v, nil
	}
	return variant.Variant{}, services.Wrap(services.ErrPrecondition, "videotask", "resolve source",
		"slot has no selected variant", nil)
}

func sourcePool(p *project.Project, kind project.Kind, ownerID string) (*variant.Pool, error) {
	switch kind {
	case project.KindCharacter:
		if c, ok := p.Character(ownerID); ok {
			return &c.FullBody, nil
		}
	case project.KindScene:
		if s, ok := p.Scene(ownerID); ok {
			return &s.Image, nil
		}
	case project.KindProp:
		if pr, ok := p.Prop(ownerID); ok {
			return &pr.Image, nil
		}
	case project.KindFrame:
		if f, ok := p.Frame(ownerID); ok {
			return &f.Rendered, nil
		}
	default:
		return nil, services.Wrap(services.ErrValidation, "videotask", "resolve source",
			fmt.Sprintf("unknown owner kind %q", kind), nil)
	}
	return nil, services.Wrap(services.ErrNotFound, "videotask", "resolve source",
		fmt.Sprintf("%s %s", kind, ownerID), nil)
}

func ownerTaskIDs(p *project.Project, kind project.Kind, ownerID string) (*[]string, error) {
	switch kind {
	case project.KindCharacter:
		if c, ok := p.Character(ownerID); ok {
			return &c.VideoTaskIDs, nil
		}
	case project.KindScene:
		if s, ok := p.Scene(ownerID); ok {
			return &s.VideoTaskIDs, nil
		}
	case project.KindProp:
		if pr, ok := p.Prop(ownerID); ok {
			return &pr.VideoTaskIDs, nil
		}
	case project.KindFrame:
		if f, ok := p.Frame(ownerID); ok {
			return &f.VideoTaskIDs, nil
		}
	}
	return nil, services.Wrap(services.ErrNotFound, "videotask", "create",
		fmt.Sprintf("%s %s", kind, ownerID), nil)
}

func wrapStoreErr(err error, operation string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, project.ErrNotFound):
		return services.Wrap(services.ErrNotFound, "videotask", operation, "", err)
	case errors.Is(err, project.ErrStorage):
		return services.Wrap(services.ErrStorage, "videotask", operation, "", err)
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

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
