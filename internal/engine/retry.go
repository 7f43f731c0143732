package engine

import (
	"log"
	"time"

	"github.com/jordanhubbard/volition/internal/state"
)

const (
	backoffBaseMinutes = 5
	backoffCapMinutes  = 60
)

// backoffDelay returns min(60, 5 * 2^(attempt-1)) minutes. The cap is
// authoritative: once attempts are high enough to exceed it, the count no
// longer matters.
func backoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	// 5 * 2^4 = 80 already exceeds the cap; also avoids shift overflow for
	// absurd attempt counts.
	if attempt >= 5 {
		return backoffCapMinutes * time.Minute
	}
	minutes := backoffBaseMinutes << (attempt - 1)
	if minutes > backoffCapMinutes {
		minutes = backoffCapMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// recordLaunchFailure creates or advances the drive's retry entry. The
// scheduler will not attempt another launch before NextAttempt.
func (e *Engine) recordLaunchFailure(st *state.DriveState, name string, launchErr error, now time.Time) {
	entry, ok := st.RetryQueue[name]
	if !ok {
		entry = &state.RetryEntry{}
		st.RetryQueue[name] = entry
	}
	entry.AttemptCount++
	entry.NextAttempt = now.Add(backoffDelay(entry.AttemptCount))
	entry.LastError = launchErr.Error()

	log.Printf("[Engine] Launch failed for %s (attempt %d, next retry %s): %v",
		name, entry.AttemptCount, entry.NextAttempt.Format(time.RFC3339), launchErr)
}

// clearRetry removes the drive's retry entry after a successful launch.
func (e *Engine) clearRetry(st *state.DriveState, name string) {
	delete(st.RetryQueue, name)
}
