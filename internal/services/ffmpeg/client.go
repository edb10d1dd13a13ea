package ffmpeg

import (
	"context"
	"errors"
	"os/exec"
	"strings"

	"stemlab/internal/services"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

// Option configures the converter.
type Option func(*Converter)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Converter) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Converter wraps ffmpeg CLI interactions for extracting audio from video
// containers.
type Converter struct {
	binary string
	exec   Executor
}

// New constructs an ffmpeg converter.
func New(binary string, opts ...Option) (*Converter, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	converter := &Converter{
		binary: binary,
		exec:   commandExecutor{},
	}
	for _, opt := range opts {
		opt(converter)
	}
	return converter, nil
}

// ExtractAudio renders the audio track of inputPath as a stereo 44.1kHz wav
// file at outputPath.
func (c *Converter) ExtractAudio(ctx context.Context, inputPath, outputPath string) error {
	if strings.TrimSpace(inputPath) == "" || strings.TrimSpace(outputPath) == "" {
		return errors.New("input and output paths required")
	}

	args := []string{
		"-y",
		"-i", inputPath,
		"-ac", "2",
		"-ar", "44100",
		"-f", "wav",
		outputPath,
	}
	output, err := c.exec.Run(ctx, c.binary, args)
	if err != nil {
		return services.Wrap(services.ErrUpstream, "ffmpeg", "extract audio",
			tailLines(string(output), 4), err)
	}
	return nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	return cmd.CombinedOutput()
}

// tailLines keeps the last lines of tool output, where ffmpeg reports its
// actual failure, so error messages stay readable.
func tailLines(output string, n int) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) <= n {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}
