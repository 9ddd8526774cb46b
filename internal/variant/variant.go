package variant

import (
	"errors"
	"time"
)

// ErrNotFound reports that a variant id is not a member of the pool.
var ErrNotFound = errors.New("variant not found")

// Variant is one generated (or uploaded) candidate for an asset slot.
type Variant struct {
	ID               string    `json:"id"`
	URL              string    `json:"url"`
	CreatedAt        time.Time `json:"created_at"`
	PromptUsed       string    `json:"prompt_used,omitempty"`
	IsFavorited      bool      `json:"is_favorited,omitempty"`
	IsUploadedSource bool      `json:"is_uploaded_source,omitempty"`
}
