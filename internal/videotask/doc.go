// Package videotask tracks asynchronous video generation jobs: source
// snapshotting at creation, the one-directional task state machine, and the
// daemon-side runner that executes pending tasks.
package videotask
