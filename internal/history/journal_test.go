package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestJournalRoundTrip(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	err := j.RecordImage(ctx, ImageEvent{
		ProjectID: "prj-1",
		EntityID:  "char-1",
		Kind:      "character",
		Stage:     "full_body",
		Model:     "wanx2.1-t2i-turbo",
		Prompt:    "a sailor in oilskins",
		OK:        true,
		Duration:  1500 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("record image: %v", err)
	}
	err = j.RecordVideo(ctx, VideoEvent{
		ProjectID: "prj-1",
		TaskID:    "vt-1",
		OwnerKind: "frame",
		OwnerID:   "frame-1",
		Status:    "completed",
		Duration:  42 * time.Second,
	})
	if err != nil {
		t.Fatalf("record video: %v", err)
	}

	entries, err := j.List(ctx, "prj-1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	// Newest first.
	if entries[0].Category != "video" || entries[0].EntityID != "vt-1" {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Category != "image" || entries[1].Stage != "full_body" {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
	if entries[1].Duration != 1500*time.Millisecond {
		t.Fatalf("duration not preserved: %v", entries[1].Duration)
	}
	if entries[0].RecordedAt.IsZero() {
		t.Fatal("recorded_at not parsed")
	}
}

func TestJournalListScopedToProject(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	for _, projectID := range []string{"prj-a", "prj-b", "prj-a"} {
		if err := j.RecordImage(ctx, ImageEvent{ProjectID: projectID, OK: true}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	entries, err := j.List(ctx, "prj-a", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries for prj-a, got %d", len(entries))
	}
}

func TestJournalListLimit(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := j.RecordImage(ctx, ImageEvent{ProjectID: "prj-1", OK: i%2 == 0}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	entries, err := j.List(ctx, "prj-1", 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected limit of 3, got %d", len(entries))
	}
}

func TestNilJournalIsInert(t *testing.T) {
	var j *Journal
	if err := j.RecordImage(context.Background(), ImageEvent{ProjectID: "prj-1"}); err != nil {
		t.Fatalf("nil journal must swallow writes: %v", err)
	}
	entries, err := j.List(context.Background(), "prj-1", 0)
	if err != nil || entries != nil {
		t.Fatalf("nil journal must return nothing: %v %v", entries, err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("nil journal close: %v", err)
	}
}
