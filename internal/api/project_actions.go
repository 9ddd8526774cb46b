package api

import (
	"context"
	"strings"

	"storyforge/internal/logging"
	"storyforge/internal/project"
	"storyforge/internal/services"
	"storyforge/internal/services/scriptllm"
)

// CreateProjectRequest describes a new production.
type CreateProjectRequest struct {
	Title  string
	Script string
	// SkipAnalysis creates an empty draft the user populates manually.
	SkipAnalysis bool
}

// CreateProject builds a project from a script, either analyzed into
// entities and frames or as an empty draft.
func (s *Service) CreateProject(ctx context.Context, req CreateProjectRequest) (*project.Project, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, services.Wrap(services.ErrValidation, "api", "create project",
			"title is required", nil)
	}

	p := &project.Project{
		ID:        s.newID(),
		Title:     strings.TrimSpace(req.Title),
		Script:    req.Script,
		CreatedAt: s.clock(),
	}

	if !req.SkipAnalysis {
		if s.analyzer == nil {
			return nil, services.Wrap(services.ErrConfiguration, "api", "create project",
				"no analyzer configured; use a draft project or configure the llm section", nil)
		}
		analysis, err := s.analyzer.Analyze(ctx, req.Script)
		if err != nil {
			return nil, err
		}
		s.applyAnalysis(p, analysis)
	}

	if err := s.store.Put(p); err != nil {
		return nil, wrapStoreErr(err, "create project")
	}
	s.logger.Info("project created",
		logging.String(logging.FieldProjectID, p.ID),
		logging.String("title", p.Title),
		logging.Bool("draft", req.SkipAnalysis))
	return s.store.Get(p.ID)
}

// Reparse re-runs script analysis for an existing project, replacing its
// entities and storyboard while preserving the project id, creation time,
// and style settings. All variant pools and video tasks are discarded.
func (s *Service) Reparse(ctx context.Context, projectID string) error {
	if s.analyzer == nil {
		return services.Wrap(services.ErrConfiguration, "api", "reparse",
			"no analyzer configured", nil)
	}

	p, err := s.store.Get(projectID)
	if err != nil {
		return wrapStoreErr(err, "reparse")
	}
	if strings.TrimSpace(p.Script) == "" {
		return services.Wrap(services.ErrPrecondition, "api", "reparse",
			"project has no script", nil)
	}

	analysis, err := s.analyzer.Analyze(ctx, p.Script)
	if err != nil {
		return err
	}

	err = s.store.WithProject(projectID, func(p *project.Project) error {
		p.Characters = nil
		p.Scenes = nil
		p.Props = nil
		p.Frames = nil
		p.Tasks = nil
		p.MergedVideoURL = ""
		s.applyAnalysis(p, analysis)
		return nil
	})
	if err != nil {
		return wrapStoreErr(err, "reparse")
	}
	s.logger.Info("project reparsed", logging.String(logging.FieldProjectID, projectID))
	return nil
}

// applyAnalysis converts an analysis into project entities, resolving frame
// references by entity name.
func (s *Service) applyAnalysis(p *project.Project, analysis scriptllm.Analysis) {
	if p.Title == "" {
		p.Title = analysis.Title
	}
	if analysis.Genre != "" {
		p.Genre = analysis.Genre
	}

	characterIDs := make(map[string]string, len(analysis.Characters))
	for _, brief := range analysis.Characters {
		id := s.newID()
		characterIDs[brief.Name] = id
		p.Characters = append(p.Characters, project.Character{
			ID:          id,
			Name:        brief.Name,
			Gender:      brief.Gender,
			Age:         brief.Age,
			Appearance:  brief.Appearance,
			Personality: brief.Personality,
			Status:      project.StatusPending,
		})
	}
	// Base links are resolved in a second pass so a base character may be
	// listed after its variants. Self and unknown references are dropped.
	first := len(p.Characters) - len(analysis.Characters)
	for i, brief := range analysis.Characters {
		if brief.BaseCharacterName == "" || brief.BaseCharacterName == brief.Name {
			continue
		}
		if id, ok := characterIDs[brief.BaseCharacterName]; ok {
			p.Characters[first+i].BaseCharacterID = id
		}
	}

	sceneIDs := make(map[string]string, len(analysis.Scenes))
	for _, brief := range analysis.Scenes {
		id := s.newID()
		sceneIDs[brief.Name] = id
		p.Scenes = append(p.Scenes, project.Scene{
			ID:          id,
			Name:        brief.Name,
			Description: brief.Description,
			Lighting:    brief.Lighting,
			Mood:        brief.Mood,
			Status:      project.StatusPending,
		})
	}

	propIDs := make(map[string]string, len(analysis.Props))
	for _, brief := range analysis.Props {
		id := s.newID()
		propIDs[brief.Name] = id
		p.Props = append(p.Props, project.Prop{
			ID:          id,
			Name:        brief.Name,
			Description: brief.Description,
			Status:      project.StatusPending,
		})
	}

	for i, brief := range analysis.Frames {
		frame := project.Frame{
			ID:          s.newID(),
			Order:       i + 1,
			SceneID:     sceneIDs[brief.SceneName],
			Description: brief.Description,
			Dialogue:    brief.Dialogue,
			CameraNotes: brief.CameraNotes,
			Status:      project.StatusPending,
		}
		for _, name := range brief.CharacterNames {
			if id, ok := characterIDs[name]; ok {
				frame.CharacterIDs = append(frame.CharacterIDs, id)
			}
		}
		for _, name := range brief.PropNames {
			if id, ok := propIDs[name]; ok {
				frame.PropIDs = append(frame.PropIDs, id)
			}
		}
		p.Frames = append(p.Frames, frame)
	}
}

// GetProject returns a copy of the project.
func (s *Service) GetProject(ctx context.Context, projectID string) (*project.Project, error) {
	p, err := s.store.Get(projectID)
	return p, wrapStoreErr(err, "get project")
}

// ListProjects returns copies of every project, newest first.
func (s *Service) ListProjects(ctx context.Context) ([]*project.Project, error) {
	ps, err := s.store.List()
	return ps, wrapStoreErr(err, "list projects")
}

// DeleteProject removes a project permanently.
func (s *Service) DeleteProject(ctx context.Context, projectID string) error {
	if err := s.store.Delete(projectID); err != nil {
		return wrapStoreErr(err, "delete project")
	}
	s.logger.Info("project deleted", logging.String(logging.FieldProjectID, projectID))
	return nil
}
