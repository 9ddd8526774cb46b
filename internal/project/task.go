package project

import "time"

// VideoMode selects how a video task is driven from its source image.
type VideoMode string

const (
	// VideoModeImage animates a single reference image (image-to-video).
	VideoModeImage VideoMode = "i2v"
	// VideoModeReference uses the image as a subject reference while the
	// prompt drives the motion (reference-to-video).
	VideoModeReference VideoMode = "r2v"
)

// ValidVideoMode reports whether mode is a known video generation mode.
func ValidVideoMode(mode VideoMode) bool {
	return mode == VideoModeImage || mode == VideoModeReference
}

// AudioMode controls provider-side audio for generated clips.
type AudioMode string

const (
	AudioModeNone AudioMode = "none"
	AudioModeAuto AudioMode = "auto"
)

// VideoTask records one asynchronous video generation job. Tasks are owned
// solely by the project; entities and frames hold task ids only.
type VideoTask struct {
	ID        string    `json:"id"`
	OwnerKind Kind      `json:"owner_kind"`
	OwnerID   string    `json:"owner_id"`
	Mode      VideoMode `json:"mode"`
	AudioMode AudioMode `json:"audio_mode,omitempty"`

	Prompt string `json:"prompt,omitempty"`
	// SourceImagePath is the snapshotted copy of the source variant taken
	// at creation time; it stays valid even if the variant is later evicted.
	SourceImagePath string `json:"source_image_path"`
	SourceImageURL  string `json:"source_image_url,omitempty"`

	Status        Status `json:"status"`
	ProviderJobID string `json:"provider_job_id,omitempty"`
	VideoURL      string `json:"video_url,omitempty"`
	ErrorMessage  string `json:"error_message,omitempty"`

	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"`
	CompletedAt time.Time `json:"completed_at,omitzero"`
}

// ValidTransition reports whether a task status change is allowed. Task
// status moves strictly forward; terminal states never transition again.
func ValidTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing || to == StatusFailed
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}
