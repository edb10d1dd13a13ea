package stemsep

import (
	"context"
	"errors"
	"os/exec"
	"strings"

	"stemlab/internal/services"
)

// DefaultModel is requested when a client does not name a model.
const DefaultModel = "spleeter:4stems"

// outputFormat pins the collaborator's naming convention: one subfolder per
// input file, one wav per instrument.
const outputFormat = "{filename}/{instrument}.{codec}"

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps one separation model behind the external separation CLI.
type Client struct {
	binary string
	model  string
	exec   Executor
}

// NewClient constructs a separation client for one model identifier.
func NewClient(binary, model string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("separation binary required")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, errors.New("separation model required")
	}
	client := &Client{
		binary: binary,
		model:  model,
		exec:   commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Model returns the model identifier this client was built for.
func (c *Client) Model() string {
	return c.model
}

// Separate runs the separation model against inputPath, writing stem files
// beneath outputDir using the fixed naming convention. No timeout is imposed;
// a hung model call blocks until the request context is done.
func (c *Client) Separate(ctx context.Context, inputPath, outputDir string) error {
	if strings.TrimSpace(inputPath) == "" || strings.TrimSpace(outputDir) == "" {
		return errors.New("input path and output directory required")
	}

	args := []string{
		"separate",
		"-p", c.model,
		"-o", outputDir,
		"-c", "wav",
		"-f", outputFormat,
		inputPath,
	}
	output, err := c.exec.Run(ctx, c.binary, args)
	if err != nil {
		return services.Wrap(services.ErrUpstream, "stemsep", "separate",
			strings.TrimSpace(tail(string(output))), err)
	}
	return nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	return cmd.CombinedOutput()
}

func tail(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) <= 4 {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[len(lines)-4:], "\n")
}
