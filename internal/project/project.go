package project

import (
	"encoding/json"
	"fmt"
	"time"
)

// Project is the aggregate root: all entities, frames, tasks, and style
// settings for one production.
type Project struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Script string `json:"script,omitempty"`
	Genre  string `json:"genre,omitempty"`

	// StylePreset is the legacy named preset, superseded by ArtDirection.
	StylePreset   string        `json:"style_preset,omitempty"`
	ArtDirection  ArtDirection  `json:"art_direction"`
	ModelSettings ModelSettings `json:"model_settings"`

	Characters []Character `json:"characters"`
	Scenes     []Scene     `json:"scenes"`
	Props      []Prop      `json:"props"`
	Frames     []Frame     `json:"frames"`
	Tasks      []VideoTask `json:"tasks"`

	MergedVideoURL string `json:"merged_video_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// Character returns the character with the given id.
func (p *Project) Character(id string) (*Character, bool) {
	for i := range p.Characters {
		if p.Characters[i].ID == id {
			return &p.Characters[i], true
		}
	}
	return nil, false
}

// Scene returns the scene with the given id.
func (p *Project) Scene(id string) (*Scene, bool) {
	for i := range p.Scenes {
		if p.Scenes[i].ID == id {
			return &p.Scenes[i], true
		}
	}
	return nil, false
}

// Prop returns the prop with the given id.
func (p *Project) Prop(id string) (*Prop, bool) {
	for i := range p.Props {
		if p.Props[i].ID == id {
			return &p.Props[i], true
		}
	}
	return nil, false
}

// Frame returns the frame with the given id.
func (p *Project) Frame(id string) (*Frame, bool) {
	for i := range p.Frames {
		if p.Frames[i].ID == id {
			return &p.Frames[i], true
		}
	}
	return nil, false
}

// Task returns the video task with the given id.
func (p *Project) Task(id string) (*VideoTask, bool) {
	for i := range p.Tasks {
		if p.Tasks[i].ID == id {
			return &p.Tasks[i], true
		}
	}
	return nil, false
}

// TasksFor returns all tasks owned by the given entity, newest first.
func (p *Project) TasksFor(kind Kind, ownerID string) []VideoTask {
	var tasks []VideoTask
	for i := len(p.Tasks) - 1; i >= 0; i-- {
		t := p.Tasks[i]
		if t.OwnerKind == kind && t.OwnerID == ownerID {
			tasks = append(tasks, t)
		}
	}
	return tasks
}

// RemoveTask deletes the task with the given id from the project and from
// its owner's reference list.
func (p *Project) RemoveTask(id string) bool {
	idx := -1
	for i := range p.Tasks {
		if p.Tasks[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	task := p.Tasks[idx]
	p.Tasks = append(p.Tasks[:idx], p.Tasks[idx+1:]...)

	removeRef := func(ids []string) []string {
		for i, ref := range ids {
			if ref == id {
				return append(ids[:i], ids[i+1:]...)
			}
		}
		return ids
	}
	switch task.OwnerKind {
	case KindCharacter:
		if c, ok := p.Character(task.OwnerID); ok {
			c.VideoTaskIDs = removeRef(c.VideoTaskIDs)
		}
	case KindScene:
		if s, ok := p.Scene(task.OwnerID); ok {
			s.VideoTaskIDs = removeRef(s.VideoTaskIDs)
		}
	case KindProp:
		if pr, ok := p.Prop(task.OwnerID); ok {
			pr.VideoTaskIDs = removeRef(pr.VideoTaskIDs)
		}
	case KindFrame:
		if f, ok := p.Frame(task.OwnerID); ok {
			f.VideoTaskIDs = removeRef(f.VideoTaskIDs)
			if f.SelectedVideoID == id {
				f.SelectedVideoID = ""
			}
		}
	}
	return true
}

// Clone returns a deep copy of the project via a JSON round trip. Store reads
// hand out clones so callers cannot mutate shared state outside a critical
// section.
func (p *Project) Clone() (*Project, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("clone project: %w", err)
	}
	var out Project
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("clone project: %w", err)
	}
	return &out, nil
}
