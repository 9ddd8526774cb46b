// Package assembly merges per-frame videos into the final cut via ffmpeg.
package assembly
