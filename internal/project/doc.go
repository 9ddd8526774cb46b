// Package project defines the production aggregate (characters, scenes,
// props, storyboard frames, video tasks) and the JSON document store that
// persists it.
package project
