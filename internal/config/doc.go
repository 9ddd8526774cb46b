// Package config loads, validates, and normalizes Storyforge configuration
// from TOML with sensible defaults for every section.
package config
