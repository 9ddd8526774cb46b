package wanx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storyforge/internal/generation"
	"storyforge/internal/logging"
	"storyforge/internal/project"
	"storyforge/internal/services"
	"storyforge/internal/videotask"
)

// dashscopeStub answers submit calls with a fixed task id and serves the
// given sequence of task states, one per poll.
type dashscopeStub struct {
	t        *testing.T
	taskID   string
	states   []map[string]any
	next     int
	lastBody map[string]any
}

func (s *dashscopeStub) handler(w http.ResponseWriter, r *http.Request) {
	if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
		s.t.Errorf("unexpected authorization header %q", got)
	}

	switch {
	case r.Method == http.MethodPost:
		if got := r.Header.Get("X-DashScope-Async"); got != "enable" {
			s.t.Errorf("submit must request async mode, got %q", got)
		}
		s.lastBody = map[string]any{}
		if err := json.NewDecoder(r.Body).Decode(&s.lastBody); err != nil {
			s.t.Errorf("decode submit body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"output": map[string]any{"task_id": s.taskID, "task_status": "PENDING"},
		})
	case strings.HasPrefix(r.URL.Path, "/api/v1/tasks/"):
		if got := strings.TrimPrefix(r.URL.Path, "/api/v1/tasks/"); got != s.taskID {
			s.t.Errorf("polled unknown task %q", got)
		}
		state := s.states[min(s.next, len(s.states)-1)]
		s.next++
		_ = json.NewEncoder(w).Encode(map[string]any{"output": state})
	default:
		s.t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	}
}

func newStubClient(t *testing.T, stub *dashscopeStub) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(stub.handler))
	t.Cleanup(srv.Close)
	c, err := New("sk-test", logging.NewNop(),
		WithBaseURL(srv.URL),
		WithPollInterval(time.Millisecond),
		WithImageModel("wanx2.1-t2i-turbo"),
		WithVideoModel("wanx2.1-i2v-turbo"))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c, srv
}

func TestGenerateImage(t *testing.T) {
	stub := &dashscopeStub{t: t, taskID: "task-img-1", states: []map[string]any{
		{"task_id": "task-img-1", "task_status": "PENDING"},
		{"task_id": "task-img-1", "task_status": "RUNNING"},
		{"task_id": "task-img-1", "task_status": "SUCCEEDED",
			"results": []map[string]any{{"url": "https://cdn.test/out.png"}}},
	}}
	c, _ := newStubClient(t, stub)

	artifact, err := c.GenerateImage(context.Background(), generation.ImageRequest{
		Prompt:          "a lighthouse at dusk",
		NegativePrompt:  "text",
		ReferenceImages: []string{"https://cdn.test/ref.png"},
		Size:            "1024*576",
	})
	if err != nil {
		t.Fatalf("generate image: %v", err)
	}
	if artifact.URL != "https://cdn.test/out.png" {
		t.Fatalf("unexpected artifact url %q", artifact.URL)
	}

	if stub.lastBody["model"] != "wanx2.1-t2i-turbo" {
		t.Fatalf("default image model not applied: %v", stub.lastBody["model"])
	}
	input := stub.lastBody["input"].(map[string]any)
	if input["prompt"] != "a lighthouse at dusk" || input["negative_prompt"] != "text" {
		t.Fatalf("prompt fields not forwarded: %v", input)
	}
}

func TestGenerateImageProviderFailure(t *testing.T) {
	stub := &dashscopeStub{t: t, taskID: "task-img-2", states: []map[string]any{
		{"task_id": "task-img-2", "task_status": "FAILED", "message": "content policy"},
	}}
	c, _ := newStubClient(t, stub)

	_, err := c.GenerateImage(context.Background(), generation.ImageRequest{Prompt: "x"})
	if err == nil || !strings.Contains(err.Error(), "content policy") {
		t.Fatalf("expected provider message in error, got %v", err)
	}
}

func TestGenerateImageContextCanceled(t *testing.T) {
	stub := &dashscopeStub{t: t, taskID: "task-img-3", states: []map[string]any{
		{"task_id": "task-img-3", "task_status": "RUNNING"},
	}}
	c, _ := newStubClient(t, stub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.GenerateImage(ctx, generation.ImageRequest{Prompt: "x"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestSubmitRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code":    "InvalidApiKey",
			"message": "the api key is invalid",
		})
	}))
	defer srv.Close()
	c, err := New("sk-test", logging.NewNop(), WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = c.Start(context.Background(), videotask.Request{Prompt: "x"})
	if err == nil || !strings.Contains(err.Error(), "InvalidApiKey") {
		t.Fatalf("expected submit rejection, got %v", err)
	}
}

func TestVideoStart(t *testing.T) {
	stub := &dashscopeStub{t: t, taskID: "task-vid-1"}
	c, _ := newStubClient(t, stub)

	handle, err := c.Start(context.Background(), videotask.Request{
		Prompt:          "the harbor at night",
		SourceImageURL:  "https://cdn.test/frame.png",
		SourceImagePath: "/data/video_inputs/frame.png",
		AudioMode:       project.AudioModeAuto,
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if handle.ProviderJobID != "task-vid-1" {
		t.Fatalf("unexpected provider job id %q", handle.ProviderJobID)
	}

	input := stub.lastBody["input"].(map[string]any)
	if input["img_url"] != "https://cdn.test/frame.png" {
		t.Fatalf("remote source url must win over local path, got %v", input["img_url"])
	}
	params := stub.lastBody["parameters"].(map[string]any)
	if params["with_audio"] != true {
		t.Fatalf("audio mode not forwarded: %v", params)
	}
}

func TestVideoPollStatuses(t *testing.T) {
	stub := &dashscopeStub{t: t, taskID: "task-vid-2", states: []map[string]any{
		{"task_id": "task-vid-2", "task_status": "RUNNING"},
		{"task_id": "task-vid-2", "task_status": "SUCCEEDED", "video_url": "https://cdn.test/out.mp4"},
		{"task_id": "task-vid-2", "task_status": "FAILED", "message": "rendering aborted"},
	}}
	c, _ := newStubClient(t, stub)
	handle := videotask.Handle{ProviderJobID: "task-vid-2"}

	status, err := c.Poll(context.Background(), handle)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if status.Done || status.Failed {
		t.Fatalf("running job must not be terminal: %+v", status)
	}

	status, err = c.Poll(context.Background(), handle)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if !status.Done || status.VideoURL != "https://cdn.test/out.mp4" {
		t.Fatalf("unexpected success status: %+v", status)
	}

	status, err = c.Poll(context.Background(), handle)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if !status.Failed || status.Message != "rendering aborted" {
		t.Fatalf("unexpected failure status: %+v", status)
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New("", logging.NewNop()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("  short  ", 300); got != "short" {
		t.Fatalf("truncate trims, got %q", got)
	}
	long := strings.Repeat("a", 400)
	if got := truncate(long, 300); len(got) != 303 || !strings.HasSuffix(got, "...") {
		t.Fatalf("truncate caps length, got %d chars", len(got))
	}
}
