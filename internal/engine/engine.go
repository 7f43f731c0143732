// Package engine is the drive engine proper: it advances pressure, evaluates
// graduated thresholds and valence, schedules at most one session launch per
// cycle, and feeds satisfaction and launch failures back into drive affect.
package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jordanhubbard/volition/internal/config"
	"github.com/jordanhubbard/volition/internal/drive"
	"github.com/jordanhubbard/volition/internal/events"
	"github.com/jordanhubbard/volition/internal/launcher"
	"github.com/jordanhubbard/volition/internal/lock"
	"github.com/jordanhubbard/volition/internal/metrics"
	"github.com/jordanhubbard/volition/internal/state"
	"github.com/jordanhubbard/volition/internal/telemetry"
)

// Engine composes the store, launcher, and bookkeeping into the operations
// exposed to external collaborators. Every operation runs as one exclusive
// load-mutate-save unit; the optional cycle lock extends that exclusivity
// across processes.
type Engine struct {
	store  *state.Store
	launch launcher.Launcher
	cycle  lock.CycleLock
	pub    *events.Publisher
	m      *metrics.Metrics

	mu  sync.Mutex
	cfg *config.Config

	// now is swappable for tests.
	now func() time.Time
}

// New creates the engine. cycleLock, pub, and m may be nil: locking then
// falls back to in-process serialization only, and eventing/metrics are
// disabled.
func New(cfg *config.Config, store *state.Store, launch launcher.Launcher, cycleLock lock.CycleLock, pub *events.Publisher, m *metrics.Metrics) *Engine {
	return &Engine{
		store:  store,
		launch: launch,
		cycle:  cycleLock,
		pub:    pub,
		m:      m,
		cfg:    cfg,
		now:    time.Now,
	}
}

// SetConfig swaps the active configuration; used by the daemon's hot reload.
// Drive overrides in the new config apply on the next cycle.
func (e *Engine) SetConfig(cfg *config.Config) {
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()
}

func (e *Engine) config() *config.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// withState runs fn as one exclusive read-modify-write unit and persists the
// result when fn succeeds.
func (e *Engine) withState(ctx context.Context, save bool, fn func(cfg *config.Config, st *state.DriveState) error) error {
	if e.cycle != nil {
		if err := e.cycle.Acquire(ctx); err != nil {
			return fmt.Errorf("cycle exclusivity: %w", err)
		}
		defer e.cycle.Release(ctx)
	}

	cfg := e.config()
	st, err := e.store.Load()
	if err != nil {
		return err
	}

	if warnings := drive.ApplyOverrides(st.Drives, cfg.Drives); len(warnings) > 0 {
		for _, w := range warnings {
			log.Printf("[Engine] Override rejected: %s", w)
		}
	}

	if err := fn(cfg, st); err != nil {
		return err
	}

	e.observeState(st)
	if !save {
		return nil
	}
	return e.store.Save(st)
}

// Tick advances time-based accumulation by elapsedHours and recomputes
// valence for every drive. Returns the pressure delta per drive.
func (e *Engine) Tick(ctx context.Context, elapsedHours float64) (map[string]float64, error) {
	var changes map[string]float64
	err := e.withState(ctx, true, func(cfg *config.Config, st *state.DriveState) error {
		changes = e.applyTick(cfg, st, elapsedHours)
		return nil
	})
	return changes, err
}

func (e *Engine) applyTick(cfg *config.Config, st *state.DriveState, elapsedHours float64) map[string]float64 {
	now := e.now()
	quiet := cfg.QuietHours.Active(now)
	changes := make(map[string]float64)

	for name, d := range st.Drives {
		if st.IsTriggered(name) {
			continue
		}
		delta := d.Accumulate(elapsedHours, cfg.Engine.QuietRateFactor, quiet, cfg.Engine.MaxPressureRatio)
		if delta != 0 {
			changes[name] = delta
		}
	}

	// Valence stays current for every drive, including ones awaiting
	// satisfaction.
	for _, d := range st.Drives {
		d.RecomputeValence()
	}

	if e.m != nil {
		e.m.TicksTotal.Inc()
	}
	return changes
}

// CheckThresholds returns the drives currently eligible to launch, ranked by
// pressure ratio, without launching anything.
func (e *Engine) CheckThresholds(ctx context.Context) ([]string, error) {
	var names []string
	err := e.withState(ctx, false, func(cfg *config.Config, st *state.DriveState) error {
		for _, c := range e.eligible(cfg, st, e.now()) {
			names = append(names, c.name)
		}
		return nil
	})
	return names, err
}

// SatisfactionResult reports what a satisfaction event did.
type SatisfactionResult struct {
	Drive            string        `json:"drive"`
	Depth            drive.Depth   `json:"depth"`
	PreviousPressure float64       `json:"previous_pressure"`
	Pressure         float64       `json:"pressure"`
	Valence          drive.Valence `json:"valence"`
	TriggerCleared   bool          `json:"trigger_cleared"`
}

// Satisfy applies a depth-scaled pressure reduction to the named drive.
// Unknown drives and invalid depths are caller-visible typed errors.
func (e *Engine) Satisfy(ctx context.Context, name, depthStr string) (*SatisfactionResult, error) {
	depth, err := drive.ParseDepth(depthStr)
	if err != nil {
		return nil, err
	}

	var result *SatisfactionResult
	err = e.withState(ctx, true, func(cfg *config.Config, st *state.DriveState) error {
		d, err := st.Resolve(name)
		if err != nil {
			return err
		}
		result = e.applySatisfaction(cfg, st, d, depth)
		return nil
	})
	return result, err
}

func (e *Engine) applySatisfaction(cfg *config.Config, st *state.DriveState, d *drive.Drive, depth drive.Depth) *SatisfactionResult {
	now := e.now()
	previous := d.Pressure

	d.Pressure = previous * (1 - depth.Reduction())
	d.ClampPressure(cfg.Engine.MaxPressureRatio)
	d.ThwartingCount = 0
	d.RecordSatisfaction(now)
	d.RecomputeValence()

	cleared := false
	if depth.ClearsTrigger() && st.IsTriggered(d.Name) {
		st.ClearTriggered(d.Name)
		cleared = true
	}

	log.Printf("[Engine] Satisfied %s at %s depth: pressure %.2f -> %.2f (trigger cleared: %v)",
		d.Name, depth, previous, d.Pressure, cleared)

	if e.m != nil {
		e.m.SatisfactionsTotal.WithLabelValues(d.Name, string(depth)).Inc()
	}
	e.pub.Publish(events.SubjectSatisfied, events.Event{
		Drive:     d.Name,
		Pressure:  d.Pressure,
		Threshold: d.Threshold,
		Depth:     string(depth),
		Timestamp: now,
	})

	return &SatisfactionResult{
		Drive:            d.Name,
		Depth:            depth,
		PreviousPressure: previous,
		Pressure:         d.Pressure,
		Valence:          d.Valence,
		TriggerCleared:   cleared,
	}
}

// BumpResult reports an event-driven pressure increase.
type BumpResult struct {
	Drive    string  `json:"drive"`
	Amount   float64 `json:"amount"`
	Pressure float64 `json:"pressure"`
}

// Bump adds amount directly to the drive's pressure, bypassing the time
// accumulator. A non-positive amount defaults to the configured number of
// hours' worth at the drive's own rate.
func (e *Engine) Bump(ctx context.Context, name string, amount float64) (*BumpResult, error) {
	var result *BumpResult
	err := e.withState(ctx, true, func(cfg *config.Config, st *state.DriveState) error {
		d, err := st.Resolve(name)
		if err != nil {
			return err
		}

		if amount <= 0 {
			amount = cfg.Engine.DefaultBumpHours * d.RatePerHour
		}
		d.Pressure += amount
		d.ClampPressure(cfg.Engine.MaxPressureRatio)
		d.RecomputeValence()

		result = &BumpResult{Drive: d.Name, Amount: amount, Pressure: d.Pressure}
		return nil
	})
	return result, err
}

// DriveStatus is the externally visible snapshot of one drive.
type DriveStatus struct {
	Name           string        `json:"name"`
	Pressure       float64       `json:"pressure"`
	Threshold      float64       `json:"threshold"`
	Ratio          float64       `json:"ratio"`
	Status         drive.Status  `json:"status"`
	Valence        drive.Valence `json:"valence"`
	ThwartingCount int           `json:"thwarting_count"`
	Triggered      bool          `json:"triggered"`
	LastTriggered  *time.Time    `json:"last_triggered,omitempty"`
	LastSatisfied  *time.Time    `json:"last_satisfied,omitempty"`
	RetryAttempts  int           `json:"retry_attempts,omitempty"`
	NextRetry      *time.Time    `json:"next_retry,omitempty"`
}

// GetStatus returns the snapshot for one drive.
func (e *Engine) GetStatus(ctx context.Context, name string) (*DriveStatus, error) {
	var status *DriveStatus
	err := e.withState(ctx, false, func(cfg *config.Config, st *state.DriveState) error {
		d, err := st.Resolve(name)
		if err != nil {
			return err
		}
		status = e.driveStatus(cfg, st, d)
		return nil
	})
	return status, err
}

// ListStatus returns snapshots for all drives, sorted by name.
func (e *Engine) ListStatus(ctx context.Context) ([]*DriveStatus, error) {
	var statuses []*DriveStatus
	err := e.withState(ctx, false, func(cfg *config.Config, st *state.DriveState) error {
		for _, name := range st.KnownNames() {
			statuses = append(statuses, e.driveStatus(cfg, st, st.Drives[name]))
		}
		return nil
	})
	return statuses, err
}

func (e *Engine) driveStatus(cfg *config.Config, st *state.DriveState, d *drive.Drive) *DriveStatus {
	status := d.StatusFor(cfg.Engine.ThresholdRatios)
	triggered := st.IsTriggered(d.Name)
	if triggered {
		// Awaiting satisfaction overrides the numeric label.
		status = drive.StatusTriggered
	}

	ds := &DriveStatus{
		Name:           d.Name,
		Pressure:       d.Pressure,
		Threshold:      d.Threshold,
		Ratio:          d.Ratio(),
		Status:         status,
		Valence:        drive.ComputeValence(d),
		ThwartingCount: d.ThwartingCount,
		Triggered:      triggered,
		LastTriggered:  d.LastTriggered,
	}
	if n := len(d.SatisfactionEvents); n > 0 {
		ts := d.SatisfactionEvents[n-1]
		ds.LastSatisfied = &ts
	}
	if entry, ok := st.RetryQueue[d.Name]; ok {
		ds.RetryAttempts = entry.AttemptCount
		next := entry.NextAttempt
		ds.NextRetry = &next
	}
	return ds
}

// ResetAll zeroes every drive's pressure and clears the triggered set.
// Returns the number of drives reset.
func (e *Engine) ResetAll(ctx context.Context) (int, error) {
	count := 0
	err := e.withState(ctx, true, func(cfg *config.Config, st *state.DriveState) error {
		for _, d := range st.Drives {
			d.Pressure = 0
			d.RecomputeValence()
			count++
		}
		st.Triggered = st.Triggered[:0]
		log.Printf("[Engine] Reset %d drives", count)
		return nil
	})
	return count, err
}

// LaunchOutcome describes the single session spawned by a cycle.
type LaunchOutcome struct {
	Drive     string  `json:"drive"`
	SessionID string  `json:"session_id,omitempty"`
	Transport string  `json:"transport"`
	Pressure  float64 `json:"pressure"`
	Ratio     float64 `json:"ratio"`
}

// CycleResult is the outcome of one full scheduling cycle.
type CycleResult struct {
	PressureChanges map[string]float64 `json:"pressure_changes"`
	Eligible        []string           `json:"eligible"`
	Launched        *LaunchOutcome     `json:"launched,omitempty"`
	LaunchError     string             `json:"launch_error,omitempty"`
}

// TickWithSpawning composes Tick, CheckThresholds, Launch, and ledger/retry
// updates into one cycle. At most one drive launches per cycle; a launch
// failure feeds the retry queue and never fails the cycle itself.
func (e *Engine) TickWithSpawning(ctx context.Context, elapsedHours float64) (*CycleResult, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "engine.cycle")
	defer span.End()

	result := &CycleResult{}
	err := e.withState(ctx, true, func(cfg *config.Config, st *state.DriveState) error {
		result.PressureChanges = e.applyTick(cfg, st, elapsedHours)

		candidates := e.eligible(cfg, st, e.now())
		for _, c := range candidates {
			result.Eligible = append(result.Eligible, c.name)
		}
		if len(candidates) == 0 {
			return nil
		}

		top := candidates[0]
		d := st.Drives[top.name]
		e.launchDrive(ctx, cfg, st, d, top.ratio, result)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("eligible", len(result.Eligible)),
		attribute.Bool("launched", result.Launched != nil),
	)
	return result, nil
}

func (e *Engine) launchDrive(ctx context.Context, cfg *config.Config, st *state.DriveState, d *drive.Drive, ratio float64, result *CycleResult) {
	ctx, span := telemetry.Tracer.Start(ctx, "engine.launch",
		trace.WithAttributes(attribute.String("drive", d.Name)))
	defer span.End()

	now := e.now()
	req := &launcher.Request{
		Drive:     d.Name,
		Prompt:    renderPrompt(d),
		Pressure:  d.Pressure,
		Threshold: d.Threshold,
	}

	started := time.Now()
	res, err := e.launch.Launch(ctx, req)
	if e.m != nil {
		e.m.LaunchDuration.Observe(time.Since(started).Seconds())
	}

	if err != nil {
		span.RecordError(err)
		e.recordLaunchFailure(st, d.Name, err, now)
		if e.m != nil {
			e.m.LaunchesTotal.WithLabelValues(d.Name, "false").Inc()
		}
		result.LaunchError = err.Error()
		return
	}

	st.AppendTrigger(state.TriggerEvent{
		ID:             uuid.NewString(),
		Drive:          d.Name,
		Pressure:       d.Pressure,
		Threshold:      d.Threshold,
		Timestamp:      now,
		SessionSpawned: true,
		SessionID:      res.SessionID,
	})
	st.SetTriggered(d.Name)
	ts := now
	d.LastTriggered = &ts
	d.ThwartingCount++
	d.RecomputeValence()
	e.clearRetry(st, d.Name)

	log.Printf("[Engine] Launched session for %s via %s (pressure %.2f, ratio %.2f)",
		d.Name, res.Transport, d.Pressure, ratio)

	if e.m != nil {
		e.m.LaunchesTotal.WithLabelValues(d.Name, "true").Inc()
	}
	e.pub.Publish(events.SubjectTriggered, events.Event{
		Drive:     d.Name,
		Pressure:  d.Pressure,
		Threshold: d.Threshold,
		SessionID: res.SessionID,
		Timestamp: now,
	})

	result.Launched = &LaunchOutcome{
		Drive:     d.Name,
		SessionID: res.SessionID,
		Transport: res.Transport,
		Pressure:  d.Pressure,
		Ratio:     ratio,
	}
}

// CleanupStaleTriggers auto-satisfies drives left awaiting satisfaction past
// the configured age, on the theory that the spawned session completed
// without an explicit satisfaction call. Runs as a periodic maintenance
// pass, not inline with ticks.
func (e *Engine) CleanupStaleTriggers(ctx context.Context) ([]string, error) {
	var cleaned []string
	err := e.withState(ctx, true, func(cfg *config.Config, st *state.DriveState) error {
		now := e.now()
		maxAge := time.Duration(cfg.Engine.StaleTriggerMinutes) * time.Minute

		for _, name := range append([]string(nil), st.Triggered...) {
			d, ok := st.Drives[name]
			if !ok {
				st.ClearTriggered(name)
				continue
			}

			since := triggerTime(st, d)
			if since != nil && now.Sub(*since) <= maxAge {
				continue
			}

			log.Printf("[Engine] Stale trigger on %s, auto-satisfying at moderate depth", name)
			e.applySatisfaction(cfg, st, d, drive.DepthModerate)
			cleaned = append(cleaned, name)
			if e.m != nil {
				e.m.StaleCleanupsTotal.Inc()
			}
		}
		return nil
	})
	return cleaned, err
}

// triggerTime returns when the drive was last triggered, preferring the
// drive record and falling back to the ledger. Nil means unknown, which the
// cleanup pass treats as stale.
func triggerTime(st *state.DriveState, d *drive.Drive) *time.Time {
	if d.LastTriggered != nil {
		return d.LastTriggered
	}
	if ev := st.LastSpawnedTrigger(d.Name); ev != nil {
		return &ev.Timestamp
	}
	return nil
}

// renderPrompt produces the session prompt for a drive.
func renderPrompt(d *drive.Drive) string {
	if d.Prompt != "" {
		return d.Prompt
	}
	return fmt.Sprintf("Your %s drive has crossed its threshold (pressure %.1f of %.1f). Act on it.",
		d.Name, d.Pressure, d.Threshold)
}

// observeState refreshes the per-drive gauges after any mutation.
func (e *Engine) observeState(st *state.DriveState) {
	if e.m == nil {
		return
	}
	for name, d := range st.Drives {
		e.m.DrivePressure.WithLabelValues(name).Set(d.Pressure)
		e.m.DriveRatio.WithLabelValues(name).Set(d.Ratio())
		e.m.DriveThwarting.WithLabelValues(name).Set(float64(d.ThwartingCount))
	}
	e.m.TriggeredDrives.Set(float64(len(st.Triggered)))
	e.m.RetryQueueDepth.Set(float64(len(st.RetryQueue)))
}
