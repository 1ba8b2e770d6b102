package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds a plugin run when none is configured.
const DefaultTimeout = 5 * time.Second

// maxOutput caps how much stdout a plugin may produce.
const maxOutput = 1 << 20

// Executor runs plugin executables with a per-run deadline.
type Executor struct {
	timeout time.Duration
}

// NewExecutor creates a new Executor. A non-positive timeout uses DefaultTimeout.
func NewExecutor(timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{timeout: timeout}
}

// Timeout returns the per-run deadline.
func (e *Executor) Timeout() time.Duration {
	return e.timeout
}

// Execute writes req to the plugin's stdin and decodes one Response from its
// stdout. A response with success=false is returned without error; callers
// check Response.Err. Runs past the timeout fail with ErrTimeout.
func (e *Executor) Execute(ctx context.Context, p *Plugin, req *Request) (*Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	stdout, err := e.run(runCtx, p, payload)
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, fmt.Errorf("%w: %s after %s", ErrTimeout, p.Manifest.Name, e.timeout)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return decodeResponse(stdout)
}

func (e *Executor) run(ctx context.Context, p *Plugin, payload []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, p.Executable)
	cmd.Dir = p.Path
	// Children that inherit stdout must not hold Run open past the kill.
	cmd.WaitDelay = time.Second
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("run %s: %w: %s", p.Manifest.Name, err, msg)
		}
		return nil, fmt.Errorf("run %s: %w", p.Manifest.Name, err)
	}
	if stdout.Len() > maxOutput {
		return nil, fmt.Errorf("run %s: output exceeds %d bytes", p.Manifest.Name, maxOutput)
	}
	return stdout.Bytes(), nil
}

// decodeResponse parses the first JSON value a plugin printed. Trailing log
// lines after it are ignored.
func decodeResponse(out []byte) (*Response, error) {
	var resp Response
	if err := json.NewDecoder(bytes.NewReader(out)).Decode(&resp); err != nil {
		return nil, fmt.Errorf("parse plugin response: %w: %q", err, truncate(string(out), 200))
	}
	return &resp, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
