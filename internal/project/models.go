package project

import (
	"strings"
	"time"
)

// Status tracks the generation lifecycle of an asset slot or video task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether the status is an end state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsValid reports whether the status is one of the known lifecycle values.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Kind identifies the entity family an asset slot belongs to.
type Kind string

const (
	KindCharacter Kind = "character"
	KindScene     Kind = "scene"
	KindProp      Kind = "prop"
	KindFrame     Kind = "frame"
)

// ArtDirection is the project-wide visual style. When set, its style prompt
// takes precedence over per-request overrides and the legacy preset.
type ArtDirection struct {
	StyleName      string            `json:"style_name,omitempty"`
	StylePrompt    string            `json:"style_prompt,omitempty"`
	NegativePrompt string            `json:"negative_prompt,omitempty"`
	CustomStyles   map[string]string `json:"custom_styles,omitempty"`
}

// Empty reports whether no art direction has been configured.
func (a ArtDirection) Empty() bool {
	return strings.TrimSpace(a.StylePrompt) == ""
}

// ModelSettings selects provider models and output geometry for a project.
type ModelSettings struct {
	ImageModel  string `json:"image_model,omitempty"`
	VideoModel  string `json:"video_model,omitempty"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
}

// aspectRatioSizes maps the supported aspect ratios to provider pixel sizes.
var aspectRatioSizes = map[string]string{
	"9:16": "576*1024",
	"16:9": "1024*576",
	"1:1":  "1024*1024",
}

// DefaultAspectRatio is used when a project has no explicit setting.
const DefaultAspectRatio = "9:16"

// ImageSize resolves the provider pixel size for the configured aspect
// ratio, falling back to the default ratio for unknown values.
func (m ModelSettings) ImageSize() string {
	ratio := strings.TrimSpace(m.AspectRatio)
	if size, ok := aspectRatioSizes[ratio]; ok {
		return size
	}
	return aspectRatioSizes[DefaultAspectRatio]
}

// SupportedAspectRatios lists the aspect ratios with a known pixel mapping.
func SupportedAspectRatios() []string {
	return []string{"9:16", "16:9", "1:1"}
}

// ValidAspectRatio reports whether the given ratio has a pixel mapping.
func ValidAspectRatio(ratio string) bool {
	_, ok := aspectRatioSizes[strings.TrimSpace(ratio)]
	return ok
}

// nowFunc is swapped in tests that pin timestamps.
var nowFunc = time.Now
