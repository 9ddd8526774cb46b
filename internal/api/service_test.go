package api_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"storyforge/internal/api"
	"storyforge/internal/assembly"
	"storyforge/internal/generation"
	"storyforge/internal/logging"
	"storyforge/internal/project"
	"storyforge/internal/services"
	"storyforge/internal/services/scriptllm"
	"storyforge/internal/testsupport"
	"storyforge/internal/videotask"
)

type fakeAnalyzer struct {
	analysis scriptllm.Analysis
	err      error
	calls    int
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, script string) (scriptllm.Analysis, error) {
	f.calls++
	return f.analysis, f.err
}

type nopMuxer struct{}

func (nopMuxer) Concat(ctx context.Context, inputs []string, output string) error { return nil }

func testService(t *testing.T, opts ...api.Option) (*api.Service, *project.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	logger := logging.NewNop()
	orchestrator := generation.New(store, &testsupport.StubImageBackend{}, logger,
		generation.WithBatchDelay(0))
	tracker := videotask.New(store, &testsupport.StubVideoBackend{}, cfg.VideoInputsDir(), logger,
		videotask.WithPollInterval(time.Millisecond),
		videotask.WithPollBudget(time.Second))
	merger := assembly.NewMerger(store, nopMuxer{}, cfg.Paths.OutputDir, logger)

	ids := 0
	base := []api.Option{api.WithIDGenerator(func() string {
		ids++
		return fmt.Sprintf("id-%d", ids)
	})}
	return api.NewService(store, orchestrator, tracker, merger, logger, append(base, opts...)...), store
}

func TestCreateProjectDraft(t *testing.T) {
	service, _ := testService(t)

	p, err := service.CreateProject(context.Background(), api.CreateProjectRequest{
		Title:        "  Night Harbor  ",
		SkipAnalysis: true,
	})
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}
	if p.Title != "Night Harbor" {
		t.Fatalf("expected trimmed title, got %q", p.Title)
	}
	if len(p.Characters) != 0 || len(p.Frames) != 0 {
		t.Fatal("draft must be empty")
	}
}

func TestCreateProjectRequiresAnalyzer(t *testing.T) {
	service, _ := testService(t)
	_, err := service.CreateProject(context.Background(), api.CreateProjectRequest{
		Title:  "No Analyzer",
		Script: "INT. HARBOR - DAWN",
	})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestCreateProjectAnalyzed(t *testing.T) {
	analyzer := &fakeAnalyzer{analysis: scriptllm.Analysis{
		Genre: "mystery",
		Characters: []scriptllm.CharacterBrief{
			{Name: "Mira", Appearance: "silver hair"},
		},
		Scenes: []scriptllm.SceneBrief{{Name: "Harbor", Description: "foggy pier"}},
		Props:  []scriptllm.PropBrief{{Name: "Compass"}},
		Frames: []scriptllm.FrameBrief{
			{SceneName: "Harbor", CharacterNames: []string{"Mira", "Unknown"}, PropNames: []string{"Compass"}, Description: "Mira arrives"},
			{SceneName: "Harbor", Description: "The fog thickens"},
		},
	}}
	service, _ := testService(t, api.WithAnalyzer(analyzer))

	p, err := service.CreateProject(context.Background(), api.CreateProjectRequest{
		Title:  "Night Harbor",
		Script: "INT. HARBOR - DAWN",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Genre != "mystery" {
		t.Fatalf("genre not applied: %q", p.Genre)
	}
	if len(p.Characters) != 1 || len(p.Scenes) != 1 || len(p.Props) != 1 || len(p.Frames) != 2 {
		t.Fatalf("unexpected breakdown: %d chars, %d scenes, %d props, %d frames",
			len(p.Characters), len(p.Scenes), len(p.Props), len(p.Frames))
	}

	f := p.Frames[0]
	if f.Order != 1 {
		t.Fatalf("expected order 1, got %d", f.Order)
	}
	if f.SceneID != p.Scenes[0].ID {
		t.Fatal("scene name not resolved to id")
	}
	if len(f.CharacterIDs) != 1 || f.CharacterIDs[0] != p.Characters[0].ID {
		t.Fatalf("expected only known character resolved, got %v", f.CharacterIDs)
	}
	if len(f.PropIDs) != 1 || f.PropIDs[0] != p.Props[0].ID {
		t.Fatalf("prop name not resolved, got %v", f.PropIDs)
	}
}

func TestCreateProjectLinksBaseCharacters(t *testing.T) {
	analyzer := &fakeAnalyzer{analysis: scriptllm.Analysis{
		Characters: []scriptllm.CharacterBrief{
			{Name: "Mira in Disguise", BaseCharacterName: "Mira"},
			{Name: "Mira"},
			{Name: "Stranger", BaseCharacterName: "Stranger"},
			{Name: "Captain", BaseCharacterName: "Nobody"},
		},
	}}
	service, _ := testService(t, api.WithAnalyzer(analyzer))

	p, err := service.CreateProject(context.Background(), api.CreateProjectRequest{
		Title:  "Night Harbor",
		Script: "INT. HARBOR - DAWN",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// The base may be listed after its variant.
	if p.Characters[0].BaseCharacterID != p.Characters[1].ID {
		t.Fatalf("variant not linked to base, got %q", p.Characters[0].BaseCharacterID)
	}
	if p.Characters[1].BaseCharacterID != "" {
		t.Fatal("base character must not link to itself or others")
	}
	// Self-references and unknown names are dropped.
	if p.Characters[2].BaseCharacterID != "" {
		t.Fatalf("self-reference not dropped: %q", p.Characters[2].BaseCharacterID)
	}
	if p.Characters[3].BaseCharacterID != "" {
		t.Fatalf("unknown base name not dropped: %q", p.Characters[3].BaseCharacterID)
	}
}

func TestReparsePreservesIdentity(t *testing.T) {
	analyzer := &fakeAnalyzer{analysis: scriptllm.Analysis{
		Characters: []scriptllm.CharacterBrief{{Name: "Mira"}},
	}}
	service, store := testService(t, api.WithAnalyzer(analyzer))

	p, err := service.CreateProject(context.Background(), api.CreateProjectRequest{
		Title:  "Night Harbor",
		Script: "INT. HARBOR - DAWN",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Simulate accumulated work that reparse must discard.
	err = store.WithProject(p.ID, func(pr *project.Project) error {
		pr.Tasks = append(pr.Tasks, project.VideoTask{
			ID: "task-1", OwnerKind: project.KindCharacter,
			OwnerID: pr.Characters[0].ID, Status: project.StatusCompleted,
		})
		pr.MergedVideoURL = "https://video.test/final.mp4"
		return nil
	})
	if err != nil {
		t.Fatalf("seed work: %v", err)
	}

	if err := service.Reparse(context.Background(), p.ID); err != nil {
		t.Fatalf("reparse: %v", err)
	}

	got, err := store.Get(p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != p.ID || !got.CreatedAt.Equal(p.CreatedAt) {
		t.Fatal("reparse must preserve project identity")
	}
	if len(got.Tasks) != 0 || got.MergedVideoURL != "" {
		t.Fatal("reparse must discard tasks and merged video")
	}
	if len(got.Characters) != 1 || got.Characters[0].ID == p.Characters[0].ID {
		t.Fatal("reparse must rebuild entities with fresh ids")
	}
}

func TestReparseRequiresScript(t *testing.T) {
	service, _ := testService(t, api.WithAnalyzer(&fakeAnalyzer{}))
	p, err := service.CreateProject(context.Background(), api.CreateProjectRequest{
		Title:        "Draft",
		SkipAnalysis: true,
	})
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}
	if err := service.Reparse(context.Background(), p.ID); !errors.Is(err, services.ErrPrecondition) {
		t.Fatalf("expected ErrPrecondition, got %v", err)
	}
}

func TestRegisterUpload(t *testing.T) {
	service, store := testService(t)
	testsupport.SeedProject(t, store)

	slot := api.SlotRef{
		ProjectID: "prj-1",
		Kind:      project.KindCharacter,
		EntityID:  "char-1",
		Stage:     string(project.StageThreeView),
	}
	id, err := service.RegisterUpload(context.Background(), slot, "https://img.test/upload.png")
	if err != nil {
		t.Fatalf("register upload: %v", err)
	}

	p, _ := store.Get("prj-1")
	c, _ := p.Character("char-1")
	v, ok := c.ThreeView.Get(id)
	if !ok || !v.IsUploadedSource {
		t.Fatalf("expected uploaded-source variant, got %+v ok=%v", v, ok)
	}
	if c.ThreeView.SelectedID != id {
		t.Fatal("uploaded source must be selected")
	}

	if _, err := service.RegisterUpload(context.Background(), slot, "  "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for empty url, got %v", err)
	}
}

func TestVariantActionsRejectLockedEntity(t *testing.T) {
	service, store := testService(t)
	testsupport.SeedProject(t, store)
	err := store.WithProject("prj-1", func(p *project.Project) error {
		c, _ := p.Character("char-1")
		c.Locked = true
		return nil
	})
	if err != nil {
		t.Fatalf("lock character: %v", err)
	}

	slot := api.SlotRef{
		ProjectID: "prj-1",
		Kind:      project.KindCharacter,
		EntityID:  "char-1",
		Stage:     string(project.StageFullBody),
	}
	if err := service.SelectVariant(context.Background(), slot, "any"); !errors.Is(err, services.ErrPrecondition) {
		t.Fatalf("expected lock rejection, got %v", err)
	}
	if _, err := service.RegisterUpload(context.Background(), slot, "https://img.test/u.png"); !errors.Is(err, services.ErrPrecondition) {
		t.Fatalf("expected lock rejection for upload, got %v", err)
	}
}

func TestGenerateAssetRejectsLockedEntity(t *testing.T) {
	service, store := testService(t)
	testsupport.SeedProject(t, store)
	err := store.WithProject("prj-1", func(p *project.Project) error {
		s, _ := p.Scene("scene-1")
		s.Locked = true
		return nil
	})
	if err != nil {
		t.Fatalf("lock scene: %v", err)
	}

	genErr := service.GenerateAsset(context.Background(), generation.Request{
		ProjectID: "prj-1",
		EntityID:  "scene-1",
		Kind:      project.KindScene,
	})
	if !errors.Is(genErr, services.ErrPrecondition) {
		t.Fatalf("expected lock rejection, got %v", genErr)
	}
}

func TestSelectVariantUnknownID(t *testing.T) {
	service, store := testService(t)
	testsupport.SeedProject(t, store)

	slot := api.SlotRef{
		ProjectID: "prj-1",
		Kind:      project.KindScene,
		EntityID:  "scene-1",
	}
	err := service.SelectVariant(context.Background(), slot, "ghost")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetStylePreset(t *testing.T) {
	service, store := testService(t)
	testsupport.SeedProject(t, store)

	if err := service.SetStylePreset(context.Background(), "prj-1", "manga"); err != nil {
		t.Fatalf("set preset: %v", err)
	}
	p, _ := store.Get("prj-1")
	if p.StylePreset != "manga" {
		t.Fatalf("preset not stored: %q", p.StylePreset)
	}

	err := service.SetStylePreset(context.Background(), "prj-1", "vaporwave")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown preset, got %v", err)
	}
}

func TestSetModelSettingsValidatesAspectRatio(t *testing.T) {
	service, store := testService(t)
	testsupport.SeedProject(t, store)

	err := service.SetModelSettings(context.Background(), "prj-1", project.ModelSettings{AspectRatio: "4:3"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if err := service.SetModelSettings(context.Background(), "prj-1", project.ModelSettings{
		ImageModel:  "wanx2.1-t2i-plus",
		AspectRatio: "16:9",
	}); err != nil {
		t.Fatalf("set model settings: %v", err)
	}
	p, _ := store.Get("prj-1")
	if p.ModelSettings.ImageModel != "wanx2.1-t2i-plus" || p.ModelSettings.AspectRatio != "16:9" {
		t.Fatalf("settings not stored: %+v", p.ModelSettings)
	}
}

func TestSelectFrameVideoRequiresCompletedOwnedTask(t *testing.T) {
	service, store := testService(t)
	testsupport.SeedProject(t, store)
	err := store.WithProject("prj-1", func(p *project.Project) error {
		p.Tasks = append(p.Tasks,
			project.VideoTask{ID: "t-pending", OwnerKind: project.KindFrame, OwnerID: "frame-1", Status: project.StatusPending},
			project.VideoTask{ID: "t-done", OwnerKind: project.KindFrame, OwnerID: "frame-1", Status: project.StatusCompleted, VideoURL: "https://video.test/a.mp4"},
			project.VideoTask{ID: "t-other", OwnerKind: project.KindScene, OwnerID: "scene-1", Status: project.StatusCompleted, VideoURL: "https://video.test/b.mp4"},
		)
		return nil
	})
	if err != nil {
		t.Fatalf("seed tasks: %v", err)
	}

	if err := service.SelectFrameVideo(context.Background(), "prj-1", "frame-1", "t-pending"); !errors.Is(err, services.ErrPrecondition) {
		t.Fatalf("expected ErrPrecondition for pending task, got %v", err)
	}
	if err := service.SelectFrameVideo(context.Background(), "prj-1", "frame-1", "t-other"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for foreign task, got %v", err)
	}
	if err := service.SelectFrameVideo(context.Background(), "prj-1", "frame-1", "t-done"); err != nil {
		t.Fatalf("select frame video: %v", err)
	}

	p, _ := store.Get("prj-1")
	f, _ := p.Frame("frame-1")
	if f.SelectedVideoID != "t-done" {
		t.Fatalf("selection not stored: %q", f.SelectedVideoID)
	}
}

func TestDeleteVideoTask(t *testing.T) {
	service, store := testService(t)
	testsupport.SeedProject(t, store)
	err := store.WithProject("prj-1", func(p *project.Project) error {
		f, _ := p.Frame("frame-1")
		f.VideoTaskIDs = []string{"t1"}
		f.SelectedVideoID = "t1"
		p.Tasks = append(p.Tasks, project.VideoTask{
			ID: "t1", OwnerKind: project.KindFrame, OwnerID: "frame-1", Status: project.StatusCompleted,
		})
		return nil
	})
	if err != nil {
		t.Fatalf("seed task: %v", err)
	}

	if err := service.DeleteVideoTask(context.Background(), "prj-1", "t1"); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	p, _ := store.Get("prj-1")
	if _, ok := p.Task("t1"); ok {
		t.Fatal("task still present")
	}
	f, _ := p.Frame("frame-1")
	if f.SelectedVideoID != "" || len(f.VideoTaskIDs) != 0 {
		t.Fatal("owner references not cleaned up")
	}

	if err := service.DeleteVideoTask(context.Background(), "prj-1", "t1"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestHistoryWithoutJournal(t *testing.T) {
	service, _ := testService(t)
	if _, err := service.History(context.Background(), "prj-1", 10); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration without journal, got %v", err)
	}
}

func TestAddFrameAssignsOrder(t *testing.T) {
	service, store := testService(t)
	testsupport.SeedProject(t, store)

	id, err := service.AddFrame(context.Background(), "prj-1", project.Frame{
		SceneID:     "scene-1",
		Description: "closing shot",
	})
	if err != nil {
		t.Fatalf("add frame: %v", err)
	}
	p, _ := store.Get("prj-1")
	f, ok := p.Frame(id)
	if !ok {
		t.Fatal("frame not stored")
	}
	if f.Order != 2 {
		t.Fatalf("expected order 2 after seeded frame, got %d", f.Order)
	}
	if f.Status != project.StatusPending {
		t.Fatalf("expected pending status, got %s", f.Status)
	}
}
