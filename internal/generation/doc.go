// Package generation orchestrates image batch generation for asset slots:
// style resolution, reference image selection, sequential batch execution
// with per-item failure tolerance, and retention enforcement on insert.
package generation
