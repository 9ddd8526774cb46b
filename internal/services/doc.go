// Package services provides shared error classification and context helpers
// for the generation, video, and assembly service layers.
package services
