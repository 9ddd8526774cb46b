package api

import (
	"context"
	"fmt"
	"strings"

	"storyforge/internal/generation"
	"storyforge/internal/project"
	"storyforge/internal/services"
)

// GenerateAsset runs an image batch for an asset slot. Locked entities are
// rejected here; the lock is advisory below this layer.
func (s *Service) GenerateAsset(ctx context.Context, req generation.Request) error {
	p, err := s.store.Get(req.ProjectID)
	if err != nil {
		return wrapStoreErr(err, "generate asset")
	}
	locked, err := entityLocked(p, req.Kind, req.EntityID)
	if err != nil {
		return err
	}
	if locked {
		return lockedErr(req.Kind, req.EntityID)
	}
	return s.orchestrator.Generate(ctx, req)
}

// AddCharacter appends a manually created character to a project.
func (s *Service) AddCharacter(ctx context.Context, projectID string, c project.Character) (string, error) {
	if strings.TrimSpace(c.Name) == "" {
		return "", services.Wrap(services.ErrValidation, "api", "add character", "name is required", nil)
	}
	c.ID = s.newID()
	c.Status = project.StatusPending
	err := s.store.WithProject(projectID, func(p *project.Project) error {
		p.Characters = append(p.Characters, c)
		return nil
	})
	return c.ID, wrapStoreErr(err, "add character")
}

// AddScene appends a manually created scene to a project.
func (s *Service) AddScene(ctx context.Context, projectID string, sc project.Scene) (string, error) {
	if strings.TrimSpace(sc.Name) == "" {
		return "", services.Wrap(services.ErrValidation, "api", "add scene", "name is required", nil)
	}
	sc.ID = s.newID()
	sc.Status = project.StatusPending
	err := s.store.WithProject(projectID, func(p *project.Project) error {
		p.Scenes = append(p.Scenes, sc)
		return nil
	})
	return sc.ID, wrapStoreErr(err, "add scene")
}

// AddProp appends a manually created prop to a project.
func (s *Service) AddProp(ctx context.Context, projectID string, pr project.Prop) (string, error) {
	if strings.TrimSpace(pr.Name) == "" {
		return "", services.Wrap(services.ErrValidation, "api", "add prop", "name is required", nil)
	}
	pr.ID = s.newID()
	pr.Status = project.StatusPending
	err := s.store.WithProject(projectID, func(p *project.Project) error {
		p.Props = append(p.Props, pr)
		return nil
	})
	return pr.ID, wrapStoreErr(err, "add prop")
}

// AddFrame appends a storyboard frame at the end of the board.
func (s *Service) AddFrame(ctx context.Context, projectID string, f project.Frame) (string, error) {
	f.ID = s.newID()
	f.Status = project.StatusPending
	err := s.store.WithProject(projectID, func(p *project.Project) error {
		if f.Order <= 0 {
			f.Order = len(p.Frames) + 1
		}
		p.Frames = append(p.Frames, f)
		return nil
	})
	return f.ID, wrapStoreErr(err, "add frame")
}

// PatchCharacter applies a closed-field update to a character.
func (s *Service) PatchCharacter(ctx context.Context, projectID, characterID string, patch project.CharacterPatch) error {
	err := s.store.WithProject(projectID, func(p *project.Project) error {
		c, ok := p.Character(characterID)
		if !ok {
			return services.Wrap(services.ErrNotFound, "api", "patch character", characterID, nil)
		}
		if c.Locked {
			return lockedErr(project.KindCharacter, characterID)
		}
		patch.Apply(c)
		return nil
	})
	return wrapStoreErr(err, "patch character")
}

// PatchScene applies a closed-field update to a scene.
func (s *Service) PatchScene(ctx context.Context, projectID, sceneID string, patch project.ScenePatch) error {
	err := s.store.WithProject(projectID, func(p *project.Project) error {
		sc, ok := p.Scene(sceneID)
		if !ok {
			return services.Wrap(services.ErrNotFound, "api", "patch scene", sceneID, nil)
		}
		if sc.Locked {
			return lockedErr(project.KindScene, sceneID)
		}
		patch.Apply(sc)
		return nil
	})
	return wrapStoreErr(err, "patch scene")
}

// PatchProp applies a closed-field update to a prop.
func (s *Service) PatchProp(ctx context.Context, projectID, propID string, patch project.PropPatch) error {
	err := s.store.WithProject(projectID, func(p *project.Project) error {
		pr, ok := p.Prop(propID)
		if !ok {
			return services.Wrap(services.ErrNotFound, "api", "patch prop", propID, nil)
		}
		if pr.Locked {
			return lockedErr(project.KindProp, propID)
		}
		patch.Apply(pr)
		return nil
	})
	return wrapStoreErr(err, "patch prop")
}

// PatchFrame applies a closed-field update to a storyboard frame.
func (s *Service) PatchFrame(ctx context.Context, projectID, frameID string, patch project.FramePatch) error {
	err := s.store.WithProject(projectID, func(p *project.Project) error {
		f, ok := p.Frame(frameID)
		if !ok {
			return services.Wrap(services.ErrNotFound, "api", "patch frame", frameID, nil)
		}
		if f.Locked {
			return lockedErr(project.KindFrame, frameID)
		}
		patch.Apply(f)
		return nil
	})
	return wrapStoreErr(err, "patch frame")
}

// SetLocked toggles the advisory lock on an entity.
func (s *Service) SetLocked(ctx context.Context, projectID string, kind project.Kind, entityID string, locked bool) error {
	err := s.store.WithProject(projectID, func(p *project.Project) error {
		switch kind {
		case project.KindCharacter:
			if c, ok := p.Character(entityID); ok {
				c.Locked = locked
				return nil
			}
		case project.KindScene:
			if sc, ok := p.Scene(entityID); ok {
				sc.Locked = locked
				return nil
			}
		case project.KindProp:
			if pr, ok := p.Prop(entityID); ok {
				pr.Locked = locked
				return nil
			}
		case project.KindFrame:
			if f, ok := p.Frame(entityID); ok {
				f.Locked = locked
				return nil
			}
		default:
			return services.Wrap(services.ErrValidation, "api", "set locked",
				fmt.Sprintf("unknown entity kind %q", kind), nil)
		}
		return services.Wrap(services.ErrNotFound, "api", "set locked",
			fmt.Sprintf("%s %s", kind, entityID), nil)
	})
	return wrapStoreErr(err, "set locked")
}

// BindVoice attaches a voice id to a character.
func (s *Service) BindVoice(ctx context.Context, projectID, characterID, voiceID string) error {
	err := s.store.WithProject(projectID, func(p *project.Project) error {
		c, ok := p.Character(characterID)
		if !ok {
			return services.Wrap(services.ErrNotFound, "api", "bind voice", characterID, nil)
		}
		c.VoiceID = voiceID
		return nil
	})
	return wrapStoreErr(err, "bind voice")
}

// SetArtDirection replaces the project-wide art direction.
func (s *Service) SetArtDirection(ctx context.Context, projectID string, ad project.ArtDirection) error {
	err := s.store.WithProject(projectID, func(p *project.Project) error {
		p.ArtDirection = ad
		return nil
	})
	return wrapStoreErr(err, "set art direction")
}

// SetStylePreset sets the legacy named style preset.
func (s *Service) SetStylePreset(ctx context.Context, projectID, preset string) error {
	if preset != "" && !generation.ValidStylePreset(preset) {
		return services.Wrap(services.ErrValidation, "api", "set style preset",
			fmt.Sprintf("unknown preset %q (known: %s)", preset,
				strings.Join(generation.StylePresetNames(), ", ")), nil)
	}
	err := s.store.WithProject(projectID, func(p *project.Project) error {
		p.StylePreset = preset
		return nil
	})
	return wrapStoreErr(err, "set style preset")
}

// SetModelSettings updates provider model selection and output geometry.
func (s *Service) SetModelSettings(ctx context.Context, projectID string, ms project.ModelSettings) error {
	if ms.AspectRatio != "" && !project.ValidAspectRatio(ms.AspectRatio) {
		return services.Wrap(services.ErrValidation, "api", "set model settings",
			fmt.Sprintf("unsupported aspect ratio %q (supported: %s)", ms.AspectRatio,
				strings.Join(project.SupportedAspectRatios(), ", ")), nil)
	}
	err := s.store.WithProject(projectID, func(p *project.Project) error {
		p.ModelSettings = ms
		return nil
	})
	return wrapStoreErr(err, "set model settings")
}
