// Package logging wraps log/slog with console and JSON handlers, attribute
// helpers, and standardized field keys shared across components.
package logging
