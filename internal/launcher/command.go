package launcher

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"
)

// spawnResponse is the acceptance shape both transports expect back.
type spawnResponse struct {
	SessionID string `json:"session_id"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
}

func (r *spawnResponse) accepted() bool {
	return r.SessionID != "" || r.OK
}

// Command launches sessions by invoking a local command. The drive name and
// prompt are passed as arguments; the command is expected to print a JSON
// acceptance on stdout.
type Command struct {
	Path    string
	Args    []string
	Timeout time.Duration
}

// NewCommand creates the local command transport.
func NewCommand(path string, args []string, timeout time.Duration) *Command {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Command{Path: path, Args: args, Timeout: timeout}
}

func (c *Command) Name() string { return "command" }

// Launch runs the command with its own timeout.
func (c *Command) Launch(ctx context.Context, req *Request) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	args := append([]string{}, c.Args...)
	args = append(args,
		"--drive", req.Drive,
		"--pressure", fmt.Sprintf("%.2f", req.Pressure),
		req.Prompt,
	)

	cmd := exec.CommandContext(ctx, c.Path, args...)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("command failed: %w", err)
	}

	var resp spawnResponse
	if err := json.Unmarshal(output, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse command output: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("command rejected launch: %s", resp.Error)
	}
	if !resp.accepted() {
		return nil, fmt.Errorf("command output did not indicate acceptance")
	}

	return &Result{SessionID: resp.SessionID, Transport: c.Name()}, nil
}
