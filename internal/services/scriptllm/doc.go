// Package scriptllm extracts production breakdowns (characters, scenes,
// props, storyboard frames) from scripts via an OpenAI-compatible chat API.
package scriptllm
