package assembly

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sort"

	"storyforge/internal/logging"
	"storyforge/internal/project"
	"storyforge/internal/services"
)

// Merger assembles a project's per-frame videos into the final cut.
type Merger struct {
	store     *project.Store
	muxer     Muxer
	outputDir string
	logger    *slog.Logger
}

// NewMerger constructs a merger writing final videos under outputDir.
func NewMerger(store *project.Store, muxer Muxer, outputDir string, logger *slog.Logger) *Merger {
	return &Merger{
		store:     store,
		muxer:     muxer,
		outputDir: outputDir,
		logger:    logging.NewComponentLogger(logger, "assembly"),
	}
}

// Merge concatenates frame videos in storyboard order. For each frame the
// explicitly selected video wins; otherwise the most recent completed task
// for the frame is used. Frames without any video are skipped. Merging with
// no usable frame videos is an error.
func (m *Merger) Merge(ctx context.Context, projectID string) (string, error) {
	ctx = services.WithProjectID(ctx, projectID)

	p, err := m.store.Get(projectID)
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			return "", services.Wrap(services.ErrNotFound, "assembly", "merge", "", err)
		}
		return "", services.Wrap(services.ErrStorage, "assembly", "merge", "", err)
	}

	frames := append([]project.Frame(nil), p.Frames...)
	sort.SliceStable(frames, func(i, j int) bool { return frames[i].Order < frames[j].Order })

	var inputs []string
	var skipped int
	for i := range frames {
		url := frameVideoURL(p, &frames[i])
		if url == "" {
			skipped++
			m.logger.Debug("frame has no video, skipping",
				logging.String(logging.FieldEntityID, frames[i].ID),
				logging.Int("order", frames[i].Order))
			continue
		}
		inputs = append(inputs, url)
	}

	if len(inputs) == 0 {
		return "", services.Wrap(services.ErrPrecondition, "assembly", "merge",
			"no frame has a completed video", nil)
	}

	output := filepath.Join(m.outputDir, p.ID+"_final.mp4")
	m.logger.Info("merging frame videos",
		logging.String(logging.FieldProjectID, projectID),
		logging.Int("clips", len(inputs)),
		logging.Int("skipped", skipped),
		logging.String(logging.FieldPath, output))

	if err := m.muxer.Concat(ctx, inputs, output); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "assembly", "concat", "", err)
	}

	err = m.store.WithProject(projectID, func(p *project.Project) error {
		p.MergedVideoURL = output
		return nil
	})
	if err != nil {
		return "", services.Wrap(services.ErrStorage, "assembly", "record result", "", err)
	}
	return output, nil
}

// frameVideoURL resolves the video representing a frame: the selected task
// when set and completed, otherwise the newest completed task.
func frameVideoURL(p *project.Project, f *project.Frame) string {
	if f.SelectedVideoID != "" {
		if task, ok := p.Task(f.SelectedVideoID); ok &&
			task.Status == project.StatusCompleted && task.VideoURL != "" {
			return task.VideoURL
		}
	}
	for _, task := range p.TasksFor(project.KindFrame, f.ID) {
		if task.Status == project.StatusCompleted && task.VideoURL != "" {
			return task.VideoURL
		}
	}
	return ""
}
