// Package separation coordinates one upload through the external
// collaborators: ffmpeg for audio extraction from video containers and the
// separation CLI for the model call. The only invariant the orchestrator
// enforces itself is scoped cleanup: the per-request scratch directory is
// removed on every exit path.
package separation
