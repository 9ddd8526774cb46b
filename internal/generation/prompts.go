package generation

import (
	"fmt"
	"strings"

	"storyforge/internal/project"
)

// Default prompt builders, used when a request carries no explicit prompt.

func characterPrompt(c *project.Character, stage project.Stage) string {
	descriptor := joinPrompts(c.Gender, c.Age, c.Appearance)
	if descriptor == "" {
		descriptor = strings.TrimSpace(c.Name)
	}
	if descriptor == "" {
		return ""
	}
	switch stage {
	case project.StageFullBody:
		return fmt.Sprintf("full body standing portrait of %s, neutral pose, plain background", descriptor)
	case project.StageThreeView:
		return fmt.Sprintf("character turnaround sheet of %s, front view, side view, back view, consistent proportions", descriptor)
	case project.StageHeadshot:
		return fmt.Sprintf("close-up headshot portrait of %s, facing camera, plain background", descriptor)
	}
	return descriptor
}

func scenePrompt(s *project.Scene) string {
	subject := firstNonEmpty(s.Description, s.Name)
	if subject == "" {
		return ""
	}
	return joinPrompts(
		fmt.Sprintf("wide establishing shot of %s", subject),
		s.Lighting,
		s.Mood,
		"no people",
	)
}

func propPrompt(p *project.Prop) string {
	subject := firstNonEmpty(p.Description, p.Name)
	if subject == "" {
		return ""
	}
	return fmt.Sprintf("product-style reference image of %s, centered, plain background", subject)
}

func framePrompt(p *project.Project, f *project.Frame, stage project.FrameStage) string {
	parts := []string{firstNonEmpty(f.Description, fmt.Sprintf("storyboard panel %d", f.Order))}
	if scene, ok := p.Scene(f.SceneID); ok {
		parts = append(parts, fmt.Sprintf("set in %s", firstNonEmpty(scene.Description, scene.Name)))
	}
	var cast []string
	for _, id := range f.CharacterIDs {
		if c, ok := p.Character(id); ok {
			cast = append(cast, c.Name)
		}
	}
	if len(cast) > 0 {
		parts = append(parts, "featuring "+strings.Join(cast, ", "))
	}
	if f.CameraNotes != "" {
		parts = append(parts, f.CameraNotes)
	}
	if stage == project.FrameStageSketch {
		parts = append(parts, "rough storyboard sketch, loose pencil lines, monochrome")
	}
	return joinPrompts(parts...)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
