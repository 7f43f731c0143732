package drive

import (
	"time"
)

// Valence represents the affective orientation of a drive
type Valence string

const (
	// ValenceNeutral means the drive is quiet and exerts no pull
	ValenceNeutral Valence = "neutral"

	// ValenceAppetitive means the drive is approach-oriented (healthy want)
	ValenceAppetitive Valence = "appetitive"

	// ValenceAversive means the drive is distress-oriented (thwarted or extreme)
	ValenceAversive Valence = "aversive"
)

// Category records where a drive came from
type Category string

const (
	// CategoryCore marks system-defined drives whose identity is protected
	CategoryCore Category = "core"

	// CategoryEmergent marks drives discovered and authored by the agent itself
	CategoryEmergent Category = "emergent"
)

const (
	// DefaultMaxPressureRatio caps pressure at this multiple of threshold
	DefaultMaxPressureRatio = 1.5

	// DefaultQuietRateFactor slows accumulation during quiet hours
	DefaultQuietRateFactor = 0.25

	// SatisfactionHistoryLimit bounds the per-drive satisfaction log
	SatisfactionHistoryLimit = 10
)

// Drive is a single motivational signal: pressure accumulates over time,
// crosses graduated thresholds, and eventually justifies spawning a work
// session on the drive's behalf.
type Drive struct {
	Name        string  `json:"name" yaml:"name"`
	Prompt      string  `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	Pressure    float64 `json:"pressure" yaml:"pressure"`
	Threshold   float64 `json:"threshold" yaml:"threshold"`
	RatePerHour float64 `json:"rate_per_hour" yaml:"rate_per_hour"`

	// Thresholds optionally overrides the graduated breakpoints with
	// absolute pressure values keyed by status label. When nil the global
	// ratio map scaled by Threshold applies.
	Thresholds map[string]float64 `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`

	// ActivityDriven drives ignore elapsed time; their pressure moves only
	// through explicit bumps and satisfaction.
	ActivityDriven bool `json:"activity_driven,omitempty" yaml:"activity_driven,omitempty"`

	ThwartingCount int     `json:"thwarting_count" yaml:"thwarting_count"`
	Valence        Valence `json:"valence" yaml:"valence"`

	// SatisfactionEvents holds the most recent satisfaction timestamps,
	// oldest dropped past SatisfactionHistoryLimit.
	SatisfactionEvents []time.Time `json:"satisfaction_events,omitempty" yaml:"satisfaction_events,omitempty"`

	LastTriggered      *time.Time `json:"last_triggered,omitempty" yaml:"last_triggered,omitempty"`
	MinIntervalSeconds int        `json:"min_interval_seconds,omitempty" yaml:"min_interval_seconds,omitempty"`

	Category  Category `json:"category" yaml:"category"`
	CreatedBy string   `json:"created_by" yaml:"created_by"`

	// RequiresFirstLight gates instantiation on the external first-light
	// completion signal.
	RequiresFirstLight bool `json:"requires_first_light,omitempty" yaml:"requires_first_light,omitempty"`
}

// MaxPressure returns the pressure ceiling for this drive.
func (d *Drive) MaxPressure(maxRatio float64) float64 {
	if maxRatio <= 0 {
		maxRatio = DefaultMaxPressureRatio
	}
	return d.Threshold * maxRatio
}

// ClampPressure forces pressure into [0, threshold*maxRatio]. Called after
// every mutation so the invariant holds regardless of the path taken.
func (d *Drive) ClampPressure(maxRatio float64) {
	if d.Pressure < 0 {
		d.Pressure = 0
		return
	}
	if max := d.MaxPressure(maxRatio); d.Pressure > max {
		d.Pressure = max
	}
}

// Ratio returns pressure relative to the base threshold. A non-positive
// threshold yields zero rather than a division.
func (d *Drive) Ratio() float64 {
	if d.Threshold <= 0 {
		return 0
	}
	return d.Pressure / d.Threshold
}

// Accumulate advances pressure by elapsed time at the drive's rate.
// Activity-driven drives and drives without a usable threshold are no-ops.
func (d *Drive) Accumulate(elapsedHours, quietFactor float64, quietActive bool, maxRatio float64) float64 {
	if d.ActivityDriven || d.Threshold <= 0 || elapsedHours <= 0 {
		return 0
	}

	effective := elapsedHours
	if quietActive {
		if quietFactor <= 0 {
			quietFactor = DefaultQuietRateFactor
		}
		effective = elapsedHours * quietFactor
	}

	before := d.Pressure
	d.Pressure += d.RatePerHour * effective
	d.ClampPressure(maxRatio)
	return d.Pressure - before
}

// RecordSatisfaction appends a satisfaction timestamp to the bounded history.
func (d *Drive) RecordSatisfaction(ts time.Time) {
	d.SatisfactionEvents = append(d.SatisfactionEvents, ts)
	if len(d.SatisfactionEvents) > SatisfactionHistoryLimit {
		d.SatisfactionEvents = d.SatisfactionEvents[len(d.SatisfactionEvents)-SatisfactionHistoryLimit:]
	}
}

// Clone returns a deep copy of the drive.
func (d *Drive) Clone() *Drive {
	c := *d
	if d.Thresholds != nil {
		c.Thresholds = make(map[string]float64, len(d.Thresholds))
		for k, v := range d.Thresholds {
			c.Thresholds[k] = v
		}
	}
	if d.SatisfactionEvents != nil {
		c.SatisfactionEvents = append([]time.Time(nil), d.SatisfactionEvents...)
	}
	if d.LastTriggered != nil {
		t := *d.LastTriggered
		c.LastTriggered = &t
	}
	return &c
}
