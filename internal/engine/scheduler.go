package engine

import (
	"sort"
	"time"

	"github.com/jordanhubbard/volition/internal/config"
	"github.com/jordanhubbard/volition/internal/state"
)

// candidate is a drive eligible to launch, with its pressure ratio against
// the triggered breakpoint.
type candidate struct {
	name  string
	ratio float64
}

// eligible returns launchable drives ranked by pressure ratio, highest
// first. Eligibility requires, in order: not already triggered, pressure at
// or past the triggered breakpoint, retry backoff elapsed, cooldown elapsed,
// and not inside quiet hours unless configured otherwise.
func (e *Engine) eligible(cfg *config.Config, st *state.DriveState, now time.Time) []candidate {
	if cfg.QuietHours.Active(now) && !cfg.Engine.LaunchDuringQuietHours {
		return nil
	}

	var candidates []candidate
	for _, name := range st.KnownNames() {
		d := st.Drives[name]

		if st.IsTriggered(name) {
			continue
		}

		breakpoint := d.TriggeredBreakpoint(cfg.Engine.ThresholdRatios)
		if breakpoint <= 0 || d.Pressure < breakpoint {
			continue
		}

		if entry, ok := st.RetryQueue[name]; ok && entry.NextAttempt.After(now) {
			continue
		}

		if inCooldown(cfg, st, name, d.MinIntervalSeconds, now) {
			continue
		}

		candidates = append(candidates, candidate{name: name, ratio: d.Pressure / breakpoint})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ratio > candidates[j].ratio
	})
	return candidates
}

// inCooldown checks the drive's minimum trigger spacing against the most
// recent ledger entry that actually spawned a session.
func inCooldown(cfg *config.Config, st *state.DriveState, name string, minIntervalSeconds int, now time.Time) bool {
	interval := time.Duration(minIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Duration(cfg.Engine.CooldownMinutes) * time.Minute
	}
	if interval <= 0 {
		return false
	}

	last := st.LastSpawnedTrigger(name)
	if last == nil {
		return false
	}
	return now.Sub(last.Timestamp) < interval
}
