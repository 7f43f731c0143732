package drive

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusFor_GraduatedLabels(t *testing.T) {
	tests := []struct {
		pressure float64
		want     Status
	}{
		{0, StatusAvailable},
		{2.9, StatusAvailable},
		{3, StatusAvailable}, // 0.30 * 10, boundary inclusive
		{7.4, StatusAvailable},
		{7.5, StatusElevated},
		{9.9, StatusElevated},
		{10, StatusTriggered},
		{14.9, StatusTriggered},
		{15, StatusCrisis},
		{19.9, StatusCrisis},
		{20, StatusEmergency},
		{50, StatusEmergency},
	}

	for _, tt := range tests {
		d := &Drive{Name: "x", Pressure: tt.pressure, Threshold: 10}
		assert.Equal(t, tt.want, d.StatusFor(nil), "pressure %.1f", tt.pressure)
	}
}

func TestStatusFor_DriveLevelOverrides(t *testing.T) {
	d := &Drive{
		Name:      "x",
		Pressure:  6,
		Threshold: 10,
		// Absolute overrides win over the ratio map.
		Thresholds: map[string]float64{string(StatusTriggered): 5},
	}

	assert.Equal(t, StatusTriggered, d.StatusFor(nil))
	assert.InDelta(t, 5.0, d.TriggeredBreakpoint(nil), 1e-9)
}

func TestBreakpoint_CustomRatioMap(t *testing.T) {
	d := &Drive{Name: "x", Threshold: 10}
	ratios := map[string]float64{string(StatusTriggered): 0.8}

	assert.InDelta(t, 8.0, d.TriggeredBreakpoint(ratios), 1e-9)
	// Missing labels fall back to the defaults.
	assert.InDelta(t, 15.0, d.Breakpoint(StatusCrisis, ratios), 1e-9)
}

func TestDefaultThresholdRatios(t *testing.T) {
	ratios := DefaultThresholdRatios()
	assert.InDelta(t, 0.30, ratios["available"], 1e-9)
	assert.InDelta(t, 0.75, ratios["elevated"], 1e-9)
	assert.InDelta(t, 1.0, ratios["triggered"], 1e-9)
	assert.InDelta(t, 1.5, ratios["crisis"], 1e-9)
	assert.InDelta(t, 2.0, ratios["emergency"], 1e-9)
}
