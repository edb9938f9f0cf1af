// Package bridge implements the orchestrator side of the stdin/stdout JSON
// protocol: spawn a probe child, write one request, read one response.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"github.com/dkrasner/escapewatch/internal/protocol"
)

// Client spawns a single probe process per call and speaks the protocol
// described in spec §4.1/§6: one JSON request on stdin, one JSON response on
// stdout, non-zero exit surfaces stderr verbatim as the error.
type Client struct {
	// Command is the argv vector used to spawn the probe, e.g.
	// []string{"python3", "probes/python/bridge.py"}.
	Command []string
}

// NewClient builds a Client for the given spawn command.
func NewClient(command []string) *Client {
	return &Client{Command: command}
}

// Run spawns the probe, writes req as JSON to its stdin, closes stdin, and
// parses its stdout as an AnalyzeResponse. The child is expected to be a
// pure stream transformer: no interactive protocol, no keepalives.
func (c *Client) Run(ctx context.Context, req protocol.AnalyzeRequest) (*protocol.AnalyzeResponse, error) {
	if len(c.Command) == 0 {
		return nil, fmt.Errorf("bridge: empty spawn command")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("bridge: encode request: %w", err)
	}

	cmd := exec.CommandContext(ctx, c.Command[0], c.Command[1:]...)
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("bridge: %s: %w", c.Command[0], ctx.Err())
		}
		return nil, fmt.Errorf("bridge: %s failed: %s", c.Command[0], firstNonEmpty(stderr.String(), err.Error()))
	}

	var resp protocol.AnalyzeResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("bridge: parse response from %s: %w", c.Command[0], err)
	}
	return &resp, nil
}

// HealthCheck runs an independent command (if configured) or, absent one,
// verifies that the spawn target exists on disk. It never blocks the
// registry from initializing — callers downgrade a failure to a warning.
func (c *Client) HealthCheck(ctx context.Context, healthCommand []string) error {
	if len(healthCommand) > 0 {
		cmd := exec.CommandContext(ctx, healthCommand[0], healthCommand[1:]...)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("health check failed: %s", firstNonEmpty(stderr.String(), err.Error()))
		}
		return nil
	}

	if len(c.Command) == 0 {
		return fmt.Errorf("health check: empty spawn command")
	}
	if _, err := exec.LookPath(c.Command[0]); err != nil {
		if pathExists(c.Command[0]) {
			return nil
		}
		return fmt.Errorf("analyzer binary not found: %s", c.Command[0])
	}
	return nil
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
