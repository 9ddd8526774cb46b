package project

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Patch types are closed field sets: only the fields named here can be
// updated through the patch path, and unknown fields are rejected when a
// patch is decoded from JSON.

// CharacterPatch updates descriptive character fields. Nil fields are left
// untouched.
type CharacterPatch struct {
	Name        *string `json:"name,omitempty"`
	Gender      *string `json:"gender,omitempty"`
	Age         *string `json:"age,omitempty"`
	Appearance  *string `json:"appearance,omitempty"`
	Personality *string `json:"personality,omitempty"`
}

// Apply copies the set fields onto the character.
func (p CharacterPatch) Apply(c *Character) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Gender != nil {
		c.Gender = *p.Gender
	}
	if p.Age != nil {
		c.Age = *p.Age
	}
	if p.Appearance != nil {
		c.Appearance = *p.Appearance
	}
	if p.Personality != nil {
		c.Personality = *p.Personality
	}
}

// ScenePatch updates descriptive scene fields.
type ScenePatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Lighting    *string `json:"lighting,omitempty"`
	Mood        *string `json:"mood,omitempty"`
}

// Apply copies the set fields onto the scene.
func (p ScenePatch) Apply(s *Scene) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Description != nil {
		s.Description = *p.Description
	}
	if p.Lighting != nil {
		s.Lighting = *p.Lighting
	}
	if p.Mood != nil {
		s.Mood = *p.Mood
	}
}

// PropPatch updates descriptive prop fields.
type PropPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Apply copies the set fields onto the prop.
func (p PropPatch) Apply(pr *Prop) {
	if p.Name != nil {
		pr.Name = *p.Name
	}
	if p.Description != nil {
		pr.Description = *p.Description
	}
}

// FramePatch updates storyboard frame metadata.
type FramePatch struct {
	SceneID      *string   `json:"scene_id,omitempty"`
	CharacterIDs *[]string `json:"character_ids,omitempty"`
	PropIDs      *[]string `json:"prop_ids,omitempty"`
	Description  *string   `json:"description,omitempty"`
	Dialogue     *string   `json:"dialogue,omitempty"`
	CameraNotes  *string   `json:"camera_notes,omitempty"`
	MotionHint   *string   `json:"motion_hint,omitempty"`
}

// Apply copies the set fields onto the frame.
func (p FramePatch) Apply(f *Frame) {
	if p.SceneID != nil {
		f.SceneID = *p.SceneID
	}
	if p.CharacterIDs != nil {
		f.CharacterIDs = append([]string(nil), (*p.CharacterIDs)...)
	}
	if p.PropIDs != nil {
		f.PropIDs = append([]string(nil), (*p.PropIDs)...)
	}
	if p.Description != nil {
		f.Description = *p.Description
	}
	if p.Dialogue != nil {
		f.Dialogue = *p.Dialogue
	}
	if p.CameraNotes != nil {
		f.CameraNotes = *p.CameraNotes
	}
	if p.MotionHint != nil {
		f.MotionHint = *p.MotionHint
	}
}

// DecodePatch parses a JSON patch document into dst, rejecting unknown
// fields so typos cannot silently drop updates.
func DecodePatch(data []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode patch: %w", err)
	}
	return nil
}
