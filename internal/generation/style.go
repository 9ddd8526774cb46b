package generation

import (
	"strings"

	"storyforge/internal/project"
)

// Style is the resolved visual styling applied to a generation request.
type Style struct {
	Prompt         string
	NegativePrompt string
}

// legacy named presets, kept for projects created before art direction
// existed.
var stylePresets = map[string]string{
	"manga":      "black and white manga style, clean line art, screentone shading",
	"anime":      "vibrant anime style, cel shading, detailed background",
	"watercolor": "soft watercolor illustration, gentle gradients, textured paper",
	"3d_cartoon": "3D cartoon render, soft global illumination, stylized proportions",
	"realistic":  "photorealistic, cinematic lighting, high detail",
}

// ResolveStyle computes the style prompt and negative prompt for a request.
// Precedence: project art direction wins over the per-request override,
// which wins over the project's legacy preset. The art direction's global
// negative prompt is appended to the request negative prompt whenever art
// direction is active. With apply unset, no style prompt is attached and the
// request negative prompt passes through unchanged.
func ResolveStyle(p *project.Project, override, negative string, apply bool) Style {
	if !apply {
		return Style{NegativePrompt: strings.TrimSpace(negative)}
	}

	if !p.ArtDirection.Empty() {
		return Style{
			Prompt:         strings.TrimSpace(p.ArtDirection.StylePrompt),
			NegativePrompt: joinPrompts(negative, p.ArtDirection.NegativePrompt),
		}
	}

	if trimmed := strings.TrimSpace(override); trimmed != "" {
		return Style{Prompt: trimmed, NegativePrompt: strings.TrimSpace(negative)}
	}

	if preset, ok := stylePresets[strings.TrimSpace(p.StylePreset)]; ok {
		return Style{Prompt: preset, NegativePrompt: strings.TrimSpace(negative)}
	}

	return Style{NegativePrompt: strings.TrimSpace(negative)}
}

// StylePresetNames lists the known legacy preset names.
func StylePresetNames() []string {
	names := make([]string, 0, len(stylePresets))
	for name := range stylePresets {
		names = append(names, name)
	}
	return names
}

// ValidStylePreset reports whether name is a known legacy preset.
func ValidStylePreset(name string) bool {
	_, ok := stylePresets[strings.TrimSpace(name)]
	return ok
}

func joinPrompts(parts ...string) string {
	joined := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			joined = append(joined, trimmed)
		}
	}
	return strings.Join(joined, ", ")
}
