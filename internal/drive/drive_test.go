package drive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccumulate(t *testing.T) {
	d := &Drive{Name: "curiosity", Pressure: 10, Threshold: 20, RatePerHour: 2}

	delta := d.Accumulate(2, 0, false, 1.5)
	assert.InDelta(t, 4.0, delta, 1e-9)
	assert.InDelta(t, 14.0, d.Pressure, 1e-9)
}

func TestAccumulate_ClampsAtMaxRatio(t *testing.T) {
	d := &Drive{Name: "curiosity", Pressure: 10, Threshold: 20, RatePerHour: 10}

	d.Accumulate(10, 0, false, 1.5)
	assert.InDelta(t, 30.0, d.Pressure, 1e-9) // 20 * 1.5
}

func TestAccumulate_QuietHoursThrottle(t *testing.T) {
	d := &Drive{Name: "curiosity", Pressure: 0, Threshold: 20, RatePerHour: 4}

	d.Accumulate(1, 0.25, true, 1.5)
	assert.InDelta(t, 1.0, d.Pressure, 1e-9) // 4 * 1 * 0.25
}

func TestAccumulate_ActivityDrivenUnchanged(t *testing.T) {
	d := &Drive{Name: "rest", Pressure: 5, Threshold: 20, RatePerHour: 3, ActivityDriven: true}

	delta := d.Accumulate(100, 0, false, 1.5)
	assert.Zero(t, delta)
	assert.InDelta(t, 5.0, d.Pressure, 1e-9)
}

func TestAccumulate_ZeroThresholdIsNoOp(t *testing.T) {
	d := &Drive{Name: "broken", Pressure: 5, RatePerHour: 3}

	delta := d.Accumulate(10, 0, false, 1.5)
	assert.Zero(t, delta)
	assert.InDelta(t, 5.0, d.Pressure, 1e-9)
}

func TestClampPressure_NeverNegative(t *testing.T) {
	d := &Drive{Name: "x", Pressure: -3, Threshold: 10}
	d.ClampPressure(1.5)
	assert.Zero(t, d.Pressure)
}

func TestRatio_ZeroThreshold(t *testing.T) {
	d := &Drive{Name: "x", Pressure: 5}
	assert.Zero(t, d.Ratio())
}

func TestRecordSatisfaction_BoundedHistory(t *testing.T) {
	d := &Drive{Name: "x", Threshold: 10}
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 15; i++ {
		d.RecordSatisfaction(base.Add(time.Duration(i) * time.Hour))
	}

	assert.Len(t, d.SatisfactionEvents, SatisfactionHistoryLimit)
	// Oldest entries dropped, newest kept.
	assert.Equal(t, base.Add(5*time.Hour), d.SatisfactionEvents[0])
	assert.Equal(t, base.Add(14*time.Hour), d.SatisfactionEvents[9])
}

func TestClone_Independent(t *testing.T) {
	now := time.Now()
	d := &Drive{
		Name:               "x",
		Threshold:          10,
		Thresholds:         map[string]float64{"triggered": 9},
		SatisfactionEvents: []time.Time{now},
		LastTriggered:      &now,
	}

	c := d.Clone()
	c.Thresholds["triggered"] = 99
	c.SatisfactionEvents[0] = now.Add(time.Hour)

	assert.InDelta(t, 9.0, d.Thresholds["triggered"], 1e-9)
	assert.Equal(t, now, d.SatisfactionEvents[0])
}
