package fallback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Runtime runs the external agent. It receives the JSON request and returns
// the agent's raw response.
type Runtime interface {
	Invoke(ctx context.Context, payload []byte) ([]byte, error)
}

// CommandRuntime runs the agent as a subprocess: the request goes to stdin
// and the response is read from stdout.
type CommandRuntime struct {
	Path string
	Args []string
}

// NewCommandRuntime checks that the agent binary can be found.
func NewCommandRuntime(path string, args ...string) (*CommandRuntime, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("agent command is not configured")
	}
	if _, err := exec.LookPath(path); err != nil {
		return nil, fmt.Errorf("agent command not found at %s: %w", path, err)
	}
	return &CommandRuntime{Path: path, Args: args}, nil
}

// Invoke implements Runtime. The process is killed when ctx is done.
func (c *CommandRuntime) Invoke(ctx context.Context, payload []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...) //nolint:gosec // command comes from operator configuration
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("agent interrupted: %w", ctxErr)
		}
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("agent failed: %s: %w", strings.TrimSpace(stderr.String()), err)
		}
		return nil, fmt.Errorf("failed to execute agent: %w", err)
	}

	return stdout.Bytes(), nil
}
