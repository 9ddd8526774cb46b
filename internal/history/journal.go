package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS generation_events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	recorded_at TEXT    NOT NULL,
	project_id  TEXT    NOT NULL,
	category    TEXT    NOT NULL,
	entity_id   TEXT    NOT NULL DEFAULT '',
	kind        TEXT    NOT NULL DEFAULT '',
	stage       TEXT    NOT NULL DEFAULT '',
	model       TEXT    NOT NULL DEFAULT '',
	prompt      TEXT    NOT NULL DEFAULT '',
	outcome     TEXT    NOT NULL,
	detail      TEXT    NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_generation_events_project
	ON generation_events(project_id, id);
`

// Journal is an append-only record of generation activity. It is purely
// observational: the JSON project document remains the source of truth, and
// journal failures never fail the operation being recorded.
type Journal struct {
	db *sql.DB
}

// Open creates or opens the journal database at path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA synchronous=NORMAL;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close releases the underlying database handle.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// ImageEvent records one image batch item.
type ImageEvent struct {
	ProjectID string
	EntityID  string
	Kind      string
	Stage     string
	Model     string
	Prompt    string
	OK        bool
	Detail    string
	Duration  time.Duration
}

// RecordImage appends an image generation event.
func (j *Journal) RecordImage(ctx context.Context, ev ImageEvent) error {
	outcome := "ok"
	if !ev.OK {
		outcome = "error"
	}
	return j.insert(ctx, event{
		Category:  "image",
		ProjectID: ev.ProjectID,
		EntityID:  ev.EntityID,
		Kind:      ev.Kind,
		Stage:     ev.Stage,
		Model:     ev.Model,
		Prompt:    ev.Prompt,
		Outcome:   outcome,
		Detail:    ev.Detail,
		Duration:  ev.Duration,
	})
}

// VideoEvent records one video task status transition.
type VideoEvent struct {
	ProjectID string
	TaskID    string
	OwnerKind string
	OwnerID   string
	Status    string
	Detail    string
	Duration  time.Duration
}

// RecordVideo appends a video task event.
func (j *Journal) RecordVideo(ctx context.Context, ev VideoEvent) error {
	return j.insert(ctx, event{
		Category:  "video",
		ProjectID: ev.ProjectID,
		EntityID:  ev.TaskID,
		Kind:      ev.OwnerKind,
		Stage:     ev.OwnerID,
		Outcome:   ev.Status,
		Detail:    ev.Detail,
		Duration:  ev.Duration,
	})
}

type event struct {
	Category  string
	ProjectID string
	EntityID  string
	Kind      string
	Stage     string
	Model     string
	Prompt    string
	Outcome   string
	Detail    string
	Duration  time.Duration
}

func (j *Journal) insert(ctx context.Context, ev event) error {
	if j == nil || j.db == nil {
		return nil
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO generation_events
			(recorded_at, project_id, category, entity_id, kind, stage, model, prompt, outcome, detail, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339Nano),
		ev.ProjectID, ev.Category, ev.EntityID, ev.Kind, ev.Stage,
		ev.Model, ev.Prompt, ev.Outcome, ev.Detail, ev.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record %s event: %w", ev.Category, err)
	}
	return nil
}

// Entry is one journal row returned from List.
type Entry struct {
	ID         int64
	RecordedAt time.Time
	ProjectID  string
	Category   string
	EntityID   string
	Kind       string
	Stage      string
	Model      string
	Outcome    string
	Detail     string
	Duration   time.Duration
}

// List returns the newest events for a project, most recent first. A zero
// limit defaults to 50.
func (j *Journal) List(ctx context.Context, projectID string, limit int) ([]Entry, error) {
	if j == nil || j.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, recorded_at, project_id, category, entity_id, kind, stage, model, outcome, detail, duration_ms
		FROM generation_events
		WHERE project_id = ?
		ORDER BY id DESC
		LIMIT ?`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var recordedAt string
		var durationMs int64
		if err := rows.Scan(&e.ID, &recordedAt, &e.ProjectID, &e.Category, &e.EntityID,
			&e.Kind, &e.Stage, &e.Model, &e.Outcome, &e.Detail, &durationMs); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, recordedAt); err == nil {
			e.RecordedAt = ts
		}
		e.Duration = time.Duration(durationMs) * time.Millisecond
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return entries, nil
}
