package videotask_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"storyforge/internal/config"
	"storyforge/internal/logging"
	"storyforge/internal/project"
	"storyforge/internal/services"
	"storyforge/internal/testsupport"
	"storyforge/internal/variant"
	"storyforge/internal/videotask"
)

func testTracker(t *testing.T, backend videotask.VideoBackend, opts ...videotask.Option) (*videotask.Tracker, *project.Store, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ids := 0
	base := []videotask.Option{
		videotask.WithPollInterval(time.Millisecond),
		videotask.WithPollBudget(time.Second),
		videotask.WithIDGenerator(func() string {
			ids++
			return fmt.Sprintf("task-%d", ids)
		}),
	}
	tracker := videotask.New(store, backend, cfg.VideoInputsDir(), logging.NewNop(), append(base, opts...)...)
	return tracker, store, cfg
}

func selectFrameVariant(t *testing.T, store *project.Store, url string) {
	t.Helper()
	err := store.WithProject("prj-1", func(p *project.Project) error {
		f, _ := p.Frame("frame-1")
		f.Rendered.Insert(variant.Variant{ID: "var-1", URL: url, CreatedAt: time.Now()}, true)
		return nil
	})
	if err != nil {
		t.Fatalf("seed rendered variant: %v", err)
	}
}

func TestCreateTask(t *testing.T) {
	tracker, store, _ := testTracker(t, &testsupport.StubVideoBackend{})
	testsupport.SeedProject(t, store)
	selectFrameVariant(t, store, "https://img.test/frame.png")

	taskID, err := tracker.Create(context.Background(), videotask.CreateRequest{
		ProjectID: "prj-1",
		OwnerKind: project.KindFrame,
		OwnerID:   "frame-1",
		Prompt:    "slow pan across the pier",
		Mode:      project.VideoModeImage,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	p, _ := store.Get("prj-1")
	task, ok := p.Task(taskID)
	if !ok {
		t.Fatal("task not stored on project")
	}
	if task.Status != project.StatusPending {
		t.Fatalf("expected pending, got %s", task.Status)
	}
	if task.SourceImageURL != "https://img.test/frame.png" {
		t.Fatalf("unexpected source url %q", task.SourceImageURL)
	}
	f, _ := p.Frame("frame-1")
	if len(f.VideoTaskIDs) != 1 || f.VideoTaskIDs[0] != taskID {
		t.Fatalf("expected owner reference, got %v", f.VideoTaskIDs)
	}
}

func TestCreateTaskSnapshotsLocalSource(t *testing.T) {
	tracker, store, cfg := testTracker(t, &testsupport.StubVideoBackend{})
	testsupport.SeedProject(t, store)

	src := filepath.Join(t.TempDir(), "render.png")
	if err := os.WriteFile(src, []byte("png bytes"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	selectFrameVariant(t, store, src)

	taskID, err := tracker.Create(context.Background(), videotask.CreateRequest{
		ProjectID: "prj-1",
		OwnerKind: project.KindFrame,
		OwnerID:   "frame-1",
		Mode:      project.VideoModeImage,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	p, _ := store.Get("prj-1")
	task, _ := p.Task(taskID)
	want := filepath.Join(cfg.VideoInputsDir(), taskID+".png")
	if task.SourceImagePath != want {
		t.Fatalf("expected snapshot at %q, got %q", want, task.SourceImagePath)
	}

	// The snapshot must survive the original being deleted.
	if err := os.Remove(src); err != nil {
		t.Fatalf("remove original: %v", err)
	}
	data, err := os.ReadFile(task.SourceImagePath)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if string(data) != "png bytes" {
		t.Fatalf("snapshot content mismatch: %q", data)
	}
}

func TestCreateTaskNoSelection(t *testing.T) {
	tracker, store, _ := testTracker(t, &testsupport.StubVideoBackend{})
	testsupport.SeedProject(t, store)

	_, err := tracker.Create(context.Background(), videotask.CreateRequest{
		ProjectID: "prj-1",
		OwnerKind: project.KindFrame,
		OwnerID:   "frame-1",
		Mode:      project.VideoModeImage,
	})
	if !errors.Is(err, services.ErrPrecondition) {
		t.Fatalf("expected ErrPrecondition without selection, got %v", err)
	}
}

func TestCreateTaskInvalidMode(t *testing.T) {
	tracker, store, _ := testTracker(t, &testsupport.StubVideoBackend{})
	testsupport.SeedProject(t, store)

	_, err := tracker.Create(context.Background(), videotask.CreateRequest{
		ProjectID: "prj-1",
		OwnerKind: project.KindFrame,
		OwnerID:   "frame-1",
		Mode:      "gif",
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func createPendingTask(t *testing.T, tracker *videotask.Tracker, store *project.Store) string {
	t.Helper()
	testsupport.SeedProject(t, store)
	selectFrameVariant(t, store, "https://img.test/frame.png")

	taskID, err := tracker.Create(context.Background(), videotask.CreateRequest{
		ProjectID: "prj-1",
		OwnerKind: project.KindFrame,
		OwnerID:   "frame-1",
		Prompt:    "slow pan",
		Mode:      project.VideoModeImage,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return taskID
}

func TestProcessCompletes(t *testing.T) {
	backend := &testsupport.StubVideoBackend{PollScript: []videotask.PollStatus{
		{},
		{},
		{Done: true, VideoURL: "https://video.test/out.mp4"},
	}}
	tracker, store, _ := testTracker(t, backend)
	taskID := createPendingTask(t, tracker, store)

	if err := tracker.Process(context.Background(), "prj-1", taskID); err != nil {
		t.Fatalf("process: %v", err)
	}

	p, _ := store.Get("prj-1")
	task, _ := p.Task(taskID)
	if task.Status != project.StatusCompleted {
		t.Fatalf("expected completed, got %s", task.Status)
	}
	if task.VideoURL != "https://video.test/out.mp4" {
		t.Fatalf("unexpected video url %q", task.VideoURL)
	}
	if task.ProviderJobID == "" {
		t.Fatal("expected provider job id recorded")
	}
	if task.CompletedAt.IsZero() {
		t.Fatal("expected completion timestamp")
	}
}

func TestProcessProviderFailure(t *testing.T) {
	backend := &testsupport.StubVideoBackend{PollScript: []videotask.PollStatus{
		{Failed: true, Message: "content rejected"},
	}}
	tracker, store, _ := testTracker(t, backend)
	taskID := createPendingTask(t, tracker, store)

	err := tracker.Process(context.Background(), "prj-1", taskID)
	if !errors.Is(err, services.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}

	p, _ := store.Get("prj-1")
	task, _ := p.Task(taskID)
	if task.Status != project.StatusFailed {
		t.Fatalf("expected failed, got %s", task.Status)
	}
	if task.ErrorMessage != "content rejected" {
		t.Fatalf("unexpected error message %q", task.ErrorMessage)
	}
}

func TestProcessStartFailure(t *testing.T) {
	backend := &testsupport.StubVideoBackend{StartErr: errors.New("quota exceeded")}
	tracker, store, _ := testTracker(t, backend)
	taskID := createPendingTask(t, tracker, store)

	err := tracker.Process(context.Background(), "prj-1", taskID)
	if !errors.Is(err, services.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}

	p, _ := store.Get("prj-1")
	task, _ := p.Task(taskID)
	if task.Status != project.StatusFailed {
		t.Fatalf("expected failed after start error, got %s", task.Status)
	}
}

func TestProcessStartUnreachedProviderRequeues(t *testing.T) {
	backend := &testsupport.StubVideoBackend{
		StartErr: services.Wrap(services.ErrConfiguration, "wanx", "request", "api key is not set", nil),
	}
	tracker, store, _ := testTracker(t, backend)
	taskID := createPendingTask(t, tracker, store)

	err := tracker.Process(context.Background(), "prj-1", taskID)
	if !errors.Is(err, services.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}

	// The job never reached the provider, so the task stays pending for a
	// retry once the configuration is fixed.
	p, _ := store.Get("prj-1")
	task, _ := p.Task(taskID)
	if task.Status != project.StatusPending {
		t.Fatalf("expected pending after unreached provider, got %s", task.Status)
	}
}

func TestProcessBudgetExhausted(t *testing.T) {
	// The provider never finishes.
	backend := &testsupport.StubVideoBackend{PollScript: []videotask.PollStatus{{}}}
	tracker, store, _ := testTracker(t, backend, videotask.WithPollBudget(10*time.Millisecond))
	taskID := createPendingTask(t, tracker, store)

	err := tracker.Process(context.Background(), "prj-1", taskID)
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if errors.Is(err, services.ErrGenerationFailed) {
		t.Fatal("budget exhaustion must be distinct from generation failure")
	}

	p, _ := store.Get("prj-1")
	task, _ := p.Task(taskID)
	if task.Status != project.StatusFailed {
		t.Fatalf("expected failed after timeout, got %s", task.Status)
	}
}

func TestProcessRejectsNonPendingTask(t *testing.T) {
	backend := &testsupport.StubVideoBackend{}
	tracker, store, _ := testTracker(t, backend)
	taskID := createPendingTask(t, tracker, store)

	if err := tracker.Process(context.Background(), "prj-1", taskID); err != nil {
		t.Fatalf("first process: %v", err)
	}
	err := tracker.Process(context.Background(), "prj-1", taskID)
	if !errors.Is(err, services.ErrPrecondition) {
		t.Fatalf("expected ErrPrecondition for terminal task, got %v", err)
	}
}

func TestProcessUnknownTask(t *testing.T) {
	tracker, store, _ := testTracker(t, &testsupport.StubVideoBackend{})
	testsupport.SeedProject(t, store)

	err := tracker.Process(context.Background(), "prj-1", "ghost")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

