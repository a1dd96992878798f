package source

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"
)

const defaultToolTimeout = 5 * time.Minute

// toolRunner executes a scraper tool and returns its stdout. Injectable so
// adapters can be tested without a Python environment.
type toolRunner func(ctx context.Context, python, script string, timeout time.Duration, args ...string) ([]byte, error)

func runTool(ctx context.Context, python, script string, timeout time.Duration, args ...string) ([]byte, error) {
	if timeout <= 0 {
		timeout = defaultToolTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, python, append([]string{script}, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("scraper tool timed out after %s", timeout)
		}
		return nil, fmt.Errorf("scraper tool: %w (stderr: %s)", err, truncate(stderr.String(), 300))
	}
	return stdout.Bytes(), nil
}

// extractJSON slices the first top-level JSON object out of tool output.
// The scrapers log progress lines around the payload when a logger leaks to
// stdout.
func extractJSON(out []byte) []byte {
	start := bytes.IndexByte(out, '{')
	end := bytes.LastIndexByte(out, '}')
	if start < 0 || end < start {
		return out
	}
	return out[start : end+1]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
