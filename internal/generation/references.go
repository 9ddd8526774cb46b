package generation

import (
	"storyforge/internal/project"
	"storyforge/internal/services"
	"storyforge/internal/variant"
)

// resolveCharacterReference picks the source image for a derived character
// stage. Resolution order: the selected base portrait, the linked base
// character's selected portrait, then an uploaded-source variant of the
// other derived stage, then an uploaded-source variant of the requested
// stage itself.
func resolveCharacterReference(p *project.Project, c *project.Character, stage project.Stage) (string, error) {
	if url := c.FullBody.SelectedURL(); url != "" {
		return url, nil
	}
	if c.BaseCharacterID != "" {
		if base, ok := p.Character(c.BaseCharacterID); ok {
			if url := base.FullBody.SelectedURL(); url != "" {
				return url, nil
			}
		}
	}
	if other := otherDerivedStage(stage); other != "" {
		if v, ok := c.PoolFor(other).UploadedSource(); ok {
			return v.URL, nil
		}
	}
	if v, ok := c.PoolFor(stage).UploadedSource(); ok {
		return v.URL, nil
	}
	return "", services.Wrap(services.ErrPrecondition, "generation", "resolve reference",
		"character has no base portrait or uploaded source", nil)
}

func otherDerivedStage(stage project.Stage) project.Stage {
	switch stage {
	case project.StageThreeView:
		return project.StageHeadshot
	case project.StageHeadshot:
		return project.StageThreeView
	}
	return ""
}

// frameReferences gathers composition reference images for a rendered frame:
// the scene's establishing shot plus each referenced character's turnaround
// (falling back to the base portrait) and each referenced prop image.
func frameReferences(p *project.Project, f *project.Frame) []string {
	var refs []string
	appendSelected := func(pool *variant.Pool) {
		if url := pool.SelectedURL(); url != "" {
			refs = append(refs, url)
		}
	}

	if scene, ok := p.Scene(f.SceneID); ok {
		appendSelected(&scene.Image)
	}
	for _, id := range f.CharacterIDs {
		c, ok := p.Character(id)
		if !ok {
			continue
		}
		if url := c.ThreeView.SelectedURL(); url != "" {
			refs = append(refs, url)
		} else {
			appendSelected(&c.FullBody)
		}
	}
	for _, id := range f.PropIDs {
		if prop, ok := p.Prop(id); ok {
			appendSelected(&prop.Image)
		}
	}
	return refs
}
