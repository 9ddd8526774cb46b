package wanx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"storyforge/internal/logging"
	"storyforge/internal/services"
)

const (
	defaultBaseURL = "https://dashscope.aliyuncs.com"

	taskStatusSucceeded = "SUCCEEDED"
	taskStatusFailed    = "FAILED"
	taskStatusCanceled  = "CANCELED"
)

// Client talks to the DashScope-compatible generation API. Image and video
// jobs are both asynchronous: a submit call returns a task id which is then
// polled until a terminal status.
type Client struct {
	httpClient   *http.Client
	apiKey       string
	baseURL      string
	imageModel   string
	videoModel   string
	pollInterval time.Duration
	logger       *slog.Logger
}

// Option adjusts client construction.
type Option func(*Client)

// WithHTTPClient substitutes the HTTP client, primarily for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithImageModel sets the default image model.
func WithImageModel(model string) Option {
	return func(c *Client) { c.imageModel = model }
}

// WithVideoModel sets the default video model.
func WithVideoModel(model string) Option {
	return func(c *Client) { c.videoModel = model }
}

// WithPollInterval sets the delay between image task polls.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// New constructs a client. The API key is required.
func New(apiKey string, logger *slog.Logger, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "wanx", "new client",
			"api key is required", nil)
	}
	c := &Client{
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		apiKey:       strings.TrimSpace(apiKey),
		baseURL:      defaultBaseURL,
		pollInterval: 3 * time.Second,
		logger:       logging.NewComponentLogger(logger, "wanx"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type submitResponse struct {
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Output    struct {
		TaskID     string `json:"task_id"`
		TaskStatus string `json:"task_status"`
	} `json:"output"`
}

type taskResponse struct {
	RequestID string `json:"request_id"`
	Output    struct {
		TaskID     string `json:"task_id"`
		TaskStatus string `json:"task_status"`
		Message    string `json:"message"`
		VideoURL   string `json:"video_url"`
		Results    []struct {
			URL     string `json:"url"`
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"results"`
	} `json:"output"`
}

// submit posts an asynchronous job and returns the provider task id.
func (c *Client) submit(ctx context.Context, path string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-DashScope-Async", "enable")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit job: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("submit job: status %d: %s", resp.StatusCode, truncate(string(data), 300))
	}

	var parsed submitResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if parsed.Code != "" {
		return "", fmt.Errorf("submit job: %s: %s", parsed.Code, parsed.Message)
	}
	if parsed.Output.TaskID == "" {
		return "", fmt.Errorf("submit job: response carries no task id")
	}
	return parsed.Output.TaskID, nil
}

// queryTask fetches the state of an asynchronous job.
func (c *Client) queryTask(ctx context.Context, taskID string) (taskResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/v1/tasks/"+taskID, nil)
	if err != nil {
		return taskResponse{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return taskResponse{}, fmt.Errorf("query task: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return taskResponse{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return taskResponse{}, fmt.Errorf("query task: status %d: %s", resp.StatusCode, truncate(string(data), 300))
	}

	var parsed taskResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return taskResponse{}, fmt.Errorf("decode response: %w", err)
	}
	return parsed, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
