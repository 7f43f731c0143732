package launcher

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script transport tests are unix-only")
	}
	path := filepath.Join(t.TempDir(), "spawn.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

func TestCommand_LaunchSuccess(t *testing.T) {
	script := writeScript(t, `echo '{"session_id":"local-7","ok":true}'`)
	c := NewCommand(script, nil, 5*time.Second)

	res, err := c.Launch(context.Background(), &Request{
		Drive:    "curiosity",
		Prompt:   "explore something",
		Pressure: 13.1,
	})
	require.NoError(t, err)
	assert.Equal(t, "local-7", res.SessionID)
	assert.Equal(t, "command", res.Transport)
}

func TestCommand_PassesDriveAndPrompt(t *testing.T) {
	// Echo the args back inside the JSON so the test can see them.
	script := writeScript(t, `printf '{"session_id":"%s"}' "$*"`)
	c := NewCommand(script, []string{"--mode", "drive"}, 5*time.Second)

	res, err := c.Launch(context.Background(), &Request{Drive: "rest", Prompt: "wind down", Pressure: 21})
	require.NoError(t, err)
	assert.Contains(t, res.SessionID, "--mode drive")
	assert.Contains(t, res.SessionID, "--drive rest")
	assert.Contains(t, res.SessionID, "--pressure 21.00")
	assert.Contains(t, res.SessionID, "wind down")
}

func TestCommand_NonZeroExit(t *testing.T) {
	script := writeScript(t, `exit 3`)
	c := NewCommand(script, nil, 5*time.Second)

	_, err := c.Launch(context.Background(), &Request{Drive: "curiosity"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command failed")
}

func TestCommand_NonJSONOutput(t *testing.T) {
	script := writeScript(t, `echo "session started"`)
	c := NewCommand(script, nil, 5*time.Second)

	_, err := c.Launch(context.Background(), &Request{Drive: "curiosity"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse command output")
}

func TestCommand_ErrorFieldRejects(t *testing.T) {
	script := writeScript(t, `echo '{"error":"no capacity"}'`)
	c := NewCommand(script, nil, 5*time.Second)

	_, err := c.Launch(context.Background(), &Request{Drive: "curiosity"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no capacity")
}

func TestCommand_EmptyObjectIsNotAcceptance(t *testing.T) {
	script := writeScript(t, `echo '{}'`)
	c := NewCommand(script, nil, 5*time.Second)

	_, err := c.Launch(context.Background(), &Request{Drive: "curiosity"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not indicate acceptance")
}

func TestCommand_Timeout(t *testing.T) {
	script := writeScript(t, `sleep 5`)
	c := NewCommand(script, nil, 100*time.Millisecond)

	start := time.Now()
	_, err := c.Launch(context.Background(), &Request{Drive: "curiosity"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
}
