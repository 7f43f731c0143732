package launcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLauncher struct {
	name   string
	result *Result
	err    error
	calls  int
}

func (s *stubLauncher) Name() string { return s.name }

func (s *stubLauncher) Launch(ctx context.Context, req *Request) (*Result, error) {
	s.calls++
	return s.result, s.err
}

func TestFallback_FirstTransportWins(t *testing.T) {
	first := &stubLauncher{name: "gateway", result: &Result{SessionID: "s-1", Transport: "gateway"}}
	second := &stubLauncher{name: "command"}
	f := NewFallback(first, second)

	res, err := f.Launch(context.Background(), &Request{Drive: "curiosity"})
	require.NoError(t, err)
	assert.Equal(t, "s-1", res.SessionID)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls)
}

func TestFallback_FallsThroughOnFailure(t *testing.T) {
	first := &stubLauncher{name: "gateway", err: errors.New("connection refused")}
	second := &stubLauncher{name: "command", result: &Result{SessionID: "s-2", Transport: "command"}}
	f := NewFallback(first, second)

	res, err := f.Launch(context.Background(), &Request{Drive: "curiosity"})
	require.NoError(t, err)
	assert.Equal(t, "command", res.Transport)
	assert.Equal(t, 1, first.calls)
}

func TestFallback_AllFailuresJoined(t *testing.T) {
	first := &stubLauncher{name: "gateway", err: errors.New("connection refused")}
	second := &stubLauncher{name: "command", err: errors.New("exit status 1")}
	f := NewFallback(first, second)

	_, err := f.Launch(context.Background(), &Request{Drive: "curiosity"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gateway")
	assert.Contains(t, err.Error(), "command")
}

func TestFallback_SkipsNilTransports(t *testing.T) {
	only := &stubLauncher{name: "command", result: &Result{SessionID: "s-3"}}
	f := NewFallback(nil, only, nil)

	res, err := f.Launch(context.Background(), &Request{Drive: "rest"})
	require.NoError(t, err)
	assert.Equal(t, "s-3", res.SessionID)
}

func TestFallback_NoTransportsConfigured(t *testing.T) {
	f := NewFallback(nil)

	_, err := f.Launch(context.Background(), &Request{Drive: "rest"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no session transports")
}
