package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanhubbard/volition/internal/state"
)

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 5 * time.Minute},
		{2, 10 * time.Minute},
		{3, 20 * time.Minute},
		{4, 40 * time.Minute},
		{5, 60 * time.Minute},
		{6, 60 * time.Minute},
		{100, 60 * time.Minute},
		{0, 5 * time.Minute},
		{-3, 5 * time.Minute},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, backoffDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestRecordLaunchFailure_AdvancesEntry(t *testing.T) {
	e := &Engine{}
	st := state.New()
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

	e.recordLaunchFailure(st, "alpha", errors.New("first failure"), now)
	entry := st.RetryQueue["alpha"]
	require.NotNil(t, entry)
	assert.Equal(t, 1, entry.AttemptCount)
	assert.True(t, entry.NextAttempt.Equal(now.Add(5*time.Minute)))
	assert.Equal(t, "first failure", entry.LastError)

	later := now.Add(6 * time.Minute)
	e.recordLaunchFailure(st, "alpha", errors.New("second failure"), later)
	assert.Equal(t, 2, entry.AttemptCount)
	assert.True(t, entry.NextAttempt.Equal(later.Add(10*time.Minute)))
	assert.Equal(t, "second failure", entry.LastError)
}

func TestClearRetry(t *testing.T) {
	e := &Engine{}
	st := state.New()
	st.RetryQueue["alpha"] = &state.RetryEntry{AttemptCount: 3}

	e.clearRetry(st, "alpha")
	assert.NotContains(t, st.RetryQueue, "alpha")

	// Clearing an absent entry is a no-op.
	e.clearRetry(st, "alpha")
}
