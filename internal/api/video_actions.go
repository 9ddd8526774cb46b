package api

import (
	"context"
	"fmt"
	"os"

	"storyforge/internal/history"
	"storyforge/internal/logging"
	"storyforge/internal/project"
	"storyforge/internal/services"
	"storyforge/internal/videotask"
)

// CreateVideoTask records a pending video task for an entity or frame.
func (s *Service) CreateVideoTask(ctx context.Context, req videotask.CreateRequest) (string, error) {
	p, err := s.store.Get(req.ProjectID)
	if err != nil {
		return "", wrapStoreErr(err, "create video task")
	}
	locked, err := entityLocked(p, req.OwnerKind, req.OwnerID)
	if err != nil {
		return "", err
	}
	if locked {
		return "", lockedErr(req.OwnerKind, req.OwnerID)
	}
	return s.tracker.Create(ctx, req)
}

// ProcessVideoTask drives one pending task to a terminal state in the
// foreground.
func (s *Service) ProcessVideoTask(ctx context.Context, projectID, taskID string) error {
	return s.tracker.Process(ctx, projectID, taskID)
}

// SelectFrameVideo marks a completed task's video as the frame's
// representative clip for final assembly.
func (s *Service) SelectFrameVideo(ctx context.Context, projectID, frameID, taskID string) error {
	err := s.store.WithProject(projectID, func(p *project.Project) error {
		f, ok := p.Frame(frameID)
		if !ok {
			return services.Wrap(services.ErrNotFound, "api", "select frame video", frameID, nil)
		}
		task, ok := p.Task(taskID)
		if !ok {
			return services.Wrap(services.ErrNotFound, "api", "select frame video", taskID, nil)
		}
		if task.OwnerKind != project.KindFrame || task.OwnerID != frameID {
			return services.Wrap(services.ErrValidation, "api", "select frame video",
				fmt.Sprintf("task %s does not belong to frame %s", taskID, frameID), nil)
		}
		if task.Status != project.StatusCompleted {
			return services.Wrap(services.ErrPrecondition, "api", "select frame video",
				fmt.Sprintf("task is %s, expected completed", task.Status), nil)
		}
		f.SelectedVideoID = taskID
		return nil
	})
	return wrapStoreErr(err, "select frame video")
}

// DeleteVideoTask removes a task and its owner reference. The snapshotted
// source image is deleted best-effort.
func (s *Service) DeleteVideoTask(ctx context.Context, projectID, taskID string) error {
	var snapshotPath string
	err := s.store.WithProject(projectID, func(p *project.Project) error {
		task, ok := p.Task(taskID)
		if !ok {
			return services.Wrap(services.ErrNotFound, "api", "delete video task", taskID, nil)
		}
		snapshotPath = task.SourceImagePath
		p.RemoveTask(taskID)
		return nil
	})
	if err != nil {
		return wrapStoreErr(err, "delete video task")
	}

	if snapshotPath != "" {
		if rmErr := os.Remove(snapshotPath); rmErr != nil && !os.IsNotExist(rmErr) {
			s.logger.Warn("failed to remove task snapshot",
				logging.String(logging.FieldTaskID, taskID),
				logging.String(logging.FieldPath, snapshotPath),
				logging.Error(rmErr))
		}
	}
	return nil
}

// ListTasks returns a project's video tasks, optionally filtered by owner.
func (s *Service) ListTasks(ctx context.Context, projectID string, kind project.Kind, ownerID string) ([]project.VideoTask, error) {
	p, err := s.store.Get(projectID)
	if err != nil {
		return nil, wrapStoreErr(err, "list tasks")
	}
	if kind != "" && ownerID != "" {
		return p.TasksFor(kind, ownerID), nil
	}
	tasks := make([]project.VideoTask, 0, len(p.Tasks))
	for i := len(p.Tasks) - 1; i >= 0; i-- {
		tasks = append(tasks, p.Tasks[i])
	}
	return tasks, nil
}

// Merge assembles the final video from frame clips.
func (s *Service) Merge(ctx context.Context, projectID string) (string, error) {
	return s.merger.Merge(ctx, projectID)
}

// History returns the newest generation journal entries for a project.
func (s *Service) History(ctx context.Context, projectID string, limit int) ([]history.Entry, error) {
	if s.journal == nil {
		return nil, services.Wrap(services.ErrConfiguration, "api", "history",
			"history journal is disabled", nil)
	}
	return s.journal.List(ctx, projectID, limit)
}
