// Package ffmpeg shells out to the ffmpeg binary to extract a stereo 44.1kHz
// wav render from uploaded video containers. The Executor seam keeps the
// invocation testable without ffmpeg installed.
package ffmpeg
