package generation

import "context"

// ImageRequest describes one provider image generation call.
type ImageRequest struct {
	Model          string
	Prompt         string
	NegativePrompt string
	// Size is the provider pixel geometry, e.g. "576*1024".
	Size string
	// ReferenceImages carries source image URLs for image-to-image and
	// composition-guided generation. Empty for plain text-to-image.
	ReferenceImages []string
}

// Artifact is the result of a successful image generation call.
type Artifact struct {
	URL string
}

// Backend produces images. Implementations are expected to honor context
// cancellation and apply their own request timeouts.
type Backend interface {
	GenerateImage(ctx context.Context, req ImageRequest) (Artifact, error)
}
