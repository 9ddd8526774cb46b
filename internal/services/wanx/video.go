package wanx

import (
	"context"

	"storyforge/internal/logging"
	"storyforge/internal/project"
	"storyforge/internal/videotask"
)

const videoSynthesisPath = "/api/v1/services/aigc/video-generation/video-synthesis"

type videoInput struct {
	Prompt string `json:"prompt,omitempty"`
	ImgURL string `json:"img_url,omitempty"`
}

type videoParameters struct {
	Style     string `json:"style,omitempty"`
	WithAudio bool   `json:"with_audio,omitempty"`
}

type videoPayload struct {
	Model      string          `json:"model"`
	Input      videoInput      `json:"input"`
	Parameters videoParameters `json:"parameters"`
}

// Start submits an asynchronous video synthesis job. Implements
// videotask.VideoBackend.
func (c *Client) Start(ctx context.Context, req videotask.Request) (videotask.Handle, error) {
	model := req.Model
	if model == "" {
		model = c.videoModel
	}

	// Prefer the snapshotted local file's public URL when available, else
	// the original source URL.
	imgURL := req.SourceImageURL
	if imgURL == "" {
		imgURL = req.SourceImagePath
	}

	payload := videoPayload{
		Model: model,
		Input: videoInput{
			Prompt: req.Prompt,
			ImgURL: imgURL,
		},
		Parameters: videoParameters{
			WithAudio: req.AudioMode == project.AudioModeAuto,
		},
	}

	taskID, err := c.submit(ctx, videoSynthesisPath, payload)
	if err != nil {
		return videotask.Handle{}, err
	}
	c.logger.Debug("video job submitted",
		logging.String(logging.FieldTaskID, taskID),
		logging.String("model", model))
	return videotask.Handle{ProviderJobID: taskID}, nil
}

// Poll reports the provider-side state of a video job. Implements
// videotask.VideoBackend.
func (c *Client) Poll(ctx context.Context, handle videotask.Handle) (videotask.PollStatus, error) {
	task, err := c.queryTask(ctx, handle.ProviderJobID)
	if err != nil {
		return videotask.PollStatus{}, err
	}

	switch task.Output.TaskStatus {
	case taskStatusSucceeded:
		url := task.Output.VideoURL
		if url == "" {
			for _, result := range task.Output.Results {
				if result.URL != "" {
					url = result.URL
					break
				}
			}
		}
		return videotask.PollStatus{Done: true, VideoURL: url}, nil
	case taskStatusFailed, taskStatusCanceled:
		return videotask.PollStatus{Failed: true, Message: task.Output.Message}, nil
	default:
		return videotask.PollStatus{}, nil
	}
}
