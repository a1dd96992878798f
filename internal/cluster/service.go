package cluster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

const defaultServiceTimeout = 120 * time.Second

// SubprocessService runs the clustering service as an external process,
// writing {"texts": [...]} to stdin and reading the Response JSON from
// stdout. The wall-clock timeout forcibly terminates the process.
type SubprocessService struct {
	Python  string // interpreter, e.g. "python3"
	Script  string // path to the clustering script
	Timeout time.Duration
}

func NewSubprocessService(python, script string) *SubprocessService {
	if python == "" {
		python = "python3"
	}
	return &SubprocessService{Python: python, Script: script, Timeout: defaultServiceTimeout}
}

func (s *SubprocessService) Cluster(ctx context.Context, req Request) (Response, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultServiceTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	input, err := json.Marshal(map[string][]string{"texts": req.Texts})
	if err != nil {
		return Response{}, fmt.Errorf("encode clustering request: %w", err)
	}

	cmd := exec.CommandContext(ctx, s.Python, s.Script,
		"--stdin",
		"--eps", strconv.FormatFloat(req.Eps, 'f', -1, 64),
		"--min-samples", strconv.Itoa(req.MinSamples),
		"--min-length", strconv.Itoa(req.MinLength),
	)
	cmd.Stdin = bytes.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return Response{}, fmt.Errorf("clustering service timed out after %s", timeout)
		}
		return Response{}, fmt.Errorf("clustering service: %w (stderr: %s)", err, truncate(stderr.String(), 300))
	}

	resp, err := DecodeResponse(stdout.Bytes())
	if err != nil {
		return Response{}, err
	}
	return resp, nil
}

// DecodeResponse parses the service's stdout. A well-formed envelope with
// success=false is returned as-is; the gateway decides what to do with it.
func DecodeResponse(raw []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, fmt.Errorf("decode clustering response: %w", err)
	}
	return resp, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
