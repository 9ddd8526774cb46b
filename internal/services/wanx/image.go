package wanx

import (
	"context"
	"fmt"
	"time"

	"storyforge/internal/generation"
	"storyforge/internal/logging"
)

const imageSynthesisPath = "/api/v1/services/aigc/text2image/image-synthesis"

type imageInput struct {
	Prompt         string   `json:"prompt"`
	NegativePrompt string   `json:"negative_prompt,omitempty"`
	RefImagesURL   []string `json:"ref_images_url,omitempty"`
}

type imageParameters struct {
	Size string `json:"size,omitempty"`
	N    int    `json:"n"`
}

type imagePayload struct {
	Model      string          `json:"model"`
	Input      imageInput      `json:"input"`
	Parameters imageParameters `json:"parameters"`
}

// GenerateImage submits an image synthesis job and blocks until the
// provider reports a terminal status or ctx expires. Implements
// generation.Backend.
func (c *Client) GenerateImage(ctx context.Context, req generation.ImageRequest) (generation.Artifact, error) {
	model := req.Model
	if model == "" {
		model = c.imageModel
	}
	payload := imagePayload{
		Model: model,
		Input: imageInput{
			Prompt:         req.Prompt,
			NegativePrompt: req.NegativePrompt,
			RefImagesURL:   req.ReferenceImages,
		},
		Parameters: imageParameters{Size: req.Size, N: 1},
	}

	taskID, err := c.submit(ctx, imageSynthesisPath, payload)
	if err != nil {
		return generation.Artifact{}, err
	}
	c.logger.Debug("image job submitted",
		logging.String(logging.FieldTaskID, taskID),
		logging.String("model", model))

	for {
		if err := sleepCtx(ctx, c.pollInterval); err != nil {
			return generation.Artifact{}, err
		}

		task, err := c.queryTask(ctx, taskID)
		if err != nil {
			if ctx.Err() != nil {
				return generation.Artifact{}, ctx.Err()
			}
			c.logger.Warn("image task poll failed",
				logging.String(logging.FieldTaskID, taskID),
				logging.Error(err))
			continue
		}

		switch task.Output.TaskStatus {
		case taskStatusSucceeded:
			for _, result := range task.Output.Results {
				if result.URL != "" {
					return generation.Artifact{URL: result.URL}, nil
				}
			}
			return generation.Artifact{}, fmt.Errorf("image task %s succeeded without a result url", taskID)
		case taskStatusFailed, taskStatusCanceled:
			message := task.Output.Message
			for _, result := range task.Output.Results {
				if result.Message != "" {
					message = result.Message
					break
				}
			}
			return generation.Artifact{}, fmt.Errorf("image task %s %s: %s",
				taskID, task.Output.TaskStatus, message)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
