package project

import (
	"time"

	"storyforge/internal/variant"
)

// Scene is a recurring location with a single establishing-shot pool.
type Scene struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Lighting    string `json:"lighting,omitempty"`
	Mood        string `json:"mood,omitempty"`

	Image     variant.Pool `json:"image"`
	UpdatedAt time.Time    `json:"updated_at,omitzero"`

	Status       Status   `json:"status"`
	Locked       bool     `json:"locked,omitempty"`
	VideoTaskIDs []string `json:"video_task_ids,omitempty"`
}

// Prop is a recurring object with a single reference-image pool.
type Prop struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	Image     variant.Pool `json:"image"`
	UpdatedAt time.Time    `json:"updated_at,omitzero"`

	Status       Status   `json:"status"`
	Locked       bool     `json:"locked,omitempty"`
	VideoTaskIDs []string `json:"video_task_ids,omitempty"`
}
