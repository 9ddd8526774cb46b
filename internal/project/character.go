package project

import (
	"time"

	"storyforge/internal/variant"
)

// Stage names one asset slot of a character. The full-body portrait is the
// base stage; the three-view sheet and headshot are derived from it.
type Stage string

const (
	StageFullBody  Stage = "full_body"
	StageThreeView Stage = "three_view"
	StageHeadshot  Stage = "headshot"
)

// DerivedStages lists the character stages generated from the base portrait.
func DerivedStages() []Stage {
	return []Stage{StageThreeView, StageHeadshot}
}

// ValidCharacterStage reports whether stage names a character asset slot.
func ValidCharacterStage(stage Stage) bool {
	switch stage {
	case StageFullBody, StageThreeView, StageHeadshot:
		return true
	}
	return false
}

// Character is a cast member with one variant pool per visual stage.
type Character struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Gender      string `json:"gender,omitempty"`
	Age         string `json:"age,omitempty"`
	Appearance  string `json:"appearance,omitempty"`
	Personality string `json:"personality,omitempty"`
	VoiceID     string `json:"voice_id,omitempty"`

	// BaseCharacterID links an outfit or variant character to the character
	// it derives from; that character's portrait anchors generation.
	BaseCharacterID string `json:"base_character_id,omitempty"`

	FullBody  variant.Pool `json:"full_body"`
	ThreeView variant.Pool `json:"three_view"`
	Headshot  variant.Pool `json:"headshot"`

	FullBodyUpdatedAt  time.Time `json:"full_body_updated_at,omitzero"`
	ThreeViewUpdatedAt time.Time `json:"three_view_updated_at,omitzero"`
	HeadshotUpdatedAt  time.Time `json:"headshot_updated_at,omitzero"`

	Status       Status   `json:"status"`
	Locked       bool     `json:"locked,omitempty"`
	VideoTaskIDs []string `json:"video_task_ids,omitempty"`
}

// PoolFor returns the variant pool backing the given stage.
func (c *Character) PoolFor(stage Stage) *variant.Pool {
	switch stage {
	case StageFullBody:
		return &c.FullBody
	case StageThreeView:
		return &c.ThreeView
	case StageHeadshot:
		return &c.Headshot
	}
	return nil
}

// UpdatedAtFor returns the last generation timestamp of the given stage.
func (c *Character) UpdatedAtFor(stage Stage) time.Time {
	switch stage {
	case StageFullBody:
		return c.FullBodyUpdatedAt
	case StageThreeView:
		return c.ThreeViewUpdatedAt
	case StageHeadshot:
		return c.HeadshotUpdatedAt
	}
	return time.Time{}
}

// Touch stamps the generation timestamp of the given stage.
func (c *Character) Touch(stage Stage, t time.Time) {
	switch stage {
	case StageFullBody:
		c.FullBodyUpdatedAt = t
	case StageThreeView:
		c.ThreeViewUpdatedAt = t
	case StageHeadshot:
		c.HeadshotUpdatedAt = t
	}
}

// IsConsistent reports whether every derived stage was generated at or after
// the base portrait. The check is purely on timestamps: a derived stage that
// was never generated, or whose pool was emptied after generation, stays
// stale until it is regenerated. A character with no base portrait yet is
// trivially consistent.
func (c *Character) IsConsistent() bool {
	if c.FullBodyUpdatedAt.IsZero() {
		return true
	}
	for _, stage := range DerivedStages() {
		ts := c.UpdatedAtFor(stage)
		if ts.IsZero() || ts.Before(c.FullBodyUpdatedAt) {
			return false
		}
	}
	return true
}
