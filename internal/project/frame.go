package project

import (
	"time"

	"storyforge/internal/variant"
)

// FrameStage names one asset slot of a storyboard frame.
type FrameStage string

const (
	FrameStageSketch   FrameStage = "sketch"
	FrameStageRendered FrameStage = "rendered"
)

// ValidFrameStage reports whether stage names a frame asset slot.
func ValidFrameStage(stage FrameStage) bool {
	return stage == FrameStageSketch || stage == FrameStageRendered
}

// Frame is one storyboard panel. It references the scene, characters, and
// props that appear in it and holds sketch and rendered variant pools.
type Frame struct {
	ID           string   `json:"id"`
	Order        int      `json:"order"`
	SceneID      string   `json:"scene_id,omitempty"`
	CharacterIDs []string `json:"character_ids,omitempty"`
	PropIDs      []string `json:"prop_ids,omitempty"`

	Description string `json:"description,omitempty"`
	Dialogue    string `json:"dialogue,omitempty"`
	CameraNotes string `json:"camera_notes,omitempty"`
	MotionHint  string `json:"motion_hint,omitempty"`

	Sketch   variant.Pool `json:"sketch"`
	Rendered variant.Pool `json:"rendered"`

	SketchUpdatedAt   time.Time `json:"sketch_updated_at,omitzero"`
	RenderedUpdatedAt time.Time `json:"rendered_updated_at,omitzero"`

	// SelectedVideoID references a completed video task whose output
	// represents this frame during final assembly.
	SelectedVideoID string   `json:"selected_video_id,omitempty"`
	VideoTaskIDs    []string `json:"video_task_ids,omitempty"`

	Status Status `json:"status"`
	Locked bool   `json:"locked,omitempty"`
}

// PoolFor returns the variant pool backing the given frame stage.
func (f *Frame) PoolFor(stage FrameStage) *variant.Pool {
	switch stage {
	case FrameStageSketch:
		return &f.Sketch
	case FrameStageRendered:
		return &f.Rendered
	}
	return nil
}

// Touch stamps the generation timestamp of the given frame stage.
func (f *Frame) Touch(stage FrameStage, t time.Time) {
	switch stage {
	case FrameStageSketch:
		f.SketchUpdatedAt = t
	case FrameStageRendered:
		f.RenderedUpdatedAt = t
	}
}
