// Package api is the service facade driven by the CLI and daemon: project
// lifecycle, asset generation, variant management, video tasks, and final
// assembly. Advisory entity locks are enforced at this layer.
package api
