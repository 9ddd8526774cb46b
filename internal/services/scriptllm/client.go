package scriptllm

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

// Analysis is the structured breakdown extracted from a script or novel
// excerpt.
type Analysis struct {
	Title      string           `json:"title"`
	Genre      string           `json:"genre"`
	Characters []CharacterBrief `json:"characters"`
	Scenes     []SceneBrief     `json:"scenes"`
	Props      []PropBrief      `json:"props"`
	Frames     []FrameBrief     `json:"frames"`
}

// CharacterBrief describes one extracted cast member. BaseCharacterName is
// set when the entry is an outfit or disguise of another character.
type CharacterBrief struct {
	Name              string `json:"name"`
	Gender            string `json:"gender"`
	Age               string `json:"age"`
	Appearance        string `json:"appearance"`
	Personality       string `json:"personality"`
	BaseCharacterName string `json:"base_character_name"`
}

// SceneBrief describes one extracted location.
type SceneBrief struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Lighting    string `json:"lighting"`
	Mood        string `json:"mood"`
}

// PropBrief describes one extracted recurring object.
type PropBrief struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// FrameBrief describes one extracted storyboard panel.
type FrameBrief struct {
	SceneName      string   `json:"scene_name"`
	CharacterNames []string `json:"character_names"`
	PropNames      []string `json:"prop_names"`
	Description    string   `json:"description"`
	Dialogue       string   `json:"dialogue"`
	CameraNotes    string   `json:"camera_notes"`
}

const systemPrompt = `You break scripts and novel excerpts into production assets for a comic/video pipeline.
Respond with a single JSON object, no prose, matching exactly this shape:
{"title":"","genre":"","characters":[{"name":"","gender":"","age":"","appearance":"","personality":"","base_character_name":""}],"scenes":[{"name":"","description":"","lighting":"","mood":""}],"props":[{"name":"","description":""}],"frames":[{"scene_name":"","character_names":[],"prop_names":[],"description":"","dialogue":"","camera_notes":""}]}
When a character is an outfit, disguise, or alternate form of another listed
character, set base_character_name to that character's name; otherwise leave
it empty. Frames must be ordered as they occur in the story.`

// Client analyzes scripts through an OpenAI-compatible chat completions API.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
	logger     *slog.Logger
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

// WithModel overrides the chat model.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithTimeout bounds each analysis request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// New constructs a client. The API key is required.
func New(apiKey string, logger *slog.Logger, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "scriptllm", "new client",
			"api key is required", nil)
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    "https://dashscope.aliyuncs.com/compatible-mode/v1",
		model:      "qwen-plus",
		logger:     logging.NewComponentLogger(logger, "scriptllm"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Analyze extracts a structured production breakdown from the script.
func (c *Client) Analyze(ctx context.Context, script string) (Analysis, error) {
	if strings.TrimSpace(script) == "" {
		return Analysis{}, services.Wrap(services.ErrValidation, "scriptllm", "analyze",
			"script is empty", nil)
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: script},
		},
	})
	if err != nil {
		return Analysis{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Analysis{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Analysis{}, services.Wrap(services.ErrExternalTool, "scriptllm", "analyze", "", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return Analysis{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Analysis{}, services.Wrap(services.ErrExternalTool, "scriptllm", "analyze",
			fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return Analysis{}, fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != nil {
		return Analysis{}, services.Wrap(services.ErrExternalTool, "scriptllm", "analyze",
			parsed.Error.Message, nil)
	}
	if len(parsed.Choices) == 0 {
		return Analysis{}, services.Wrap(services.ErrExternalTool, "scriptllm", "analyze",
			"response carries no choices", nil)
	}

	analysis, err := parseAnalysis(parsed.Choices[0].Message.Content)
	if err != nil {
		return Analysis{}, services.Wrap(services.ErrExternalTool, "scriptllm", "parse analysis", "", err)
	}
	c.logger.Debug("script analyzed",
		logging.Int("characters", len(analysis.Characters)),
		logging.Int("scenes", len(analysis.Scenes)),
		logging.Int("frames", len(analysis.Frames)))
	return analysis, nil
}

// parseAnalysis tolerates models that wrap JSON in markdown code fences.
func parseAnalysis(content string) (Analysis, error) {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}

	var analysis Analysis
	if err := json.Unmarshal([]byte(trimmed), &analysis); err != nil {
		return Analysis{}, fmt.Errorf("parse analysis json: %w", err)
	}
	return analysis, nil
}
