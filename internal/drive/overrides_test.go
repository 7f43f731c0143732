package drive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func testDrives() map[string]*Drive {
	return map[string]*Drive{
		"curiosity": {Name: "curiosity", Threshold: 12, RatePerHour: 0.7, Category: CategoryCore, CreatedBy: "system"},
		"wanderer":  {Name: "wanderer", Threshold: 10, RatePerHour: 0.5, Category: CategoryEmergent, CreatedBy: "agent"},
	}
}

func TestApplyOverrides_TunableFields(t *testing.T) {
	drives := testDrives()
	warnings := ApplyOverrides(drives, map[string]Override{
		"curiosity": {
			Threshold:          ptr(15.0),
			RatePerHour:        ptr(1.2),
			Prompt:             ptr("Go look at something new."),
			MinIntervalSeconds: ptr(1800),
		},
	})

	require.Empty(t, warnings)
	d := drives["curiosity"]
	assert.InDelta(t, 15.0, d.Threshold, 1e-9)
	assert.InDelta(t, 1.2, d.RatePerHour, 1e-9)
	assert.Equal(t, "Go look at something new.", d.Prompt)
	assert.Equal(t, 1800, d.MinIntervalSeconds)
}

func TestApplyOverrides_InvalidValuesRejectedIndividually(t *testing.T) {
	drives := testDrives()
	warnings := ApplyOverrides(drives, map[string]Override{
		"curiosity": {
			Threshold:   ptr(-5.0),  // rejected
			RatePerHour: ptr(1.5),   // applied
		},
	})

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "threshold")

	d := drives["curiosity"]
	assert.InDelta(t, 12.0, d.Threshold, 1e-9)
	assert.InDelta(t, 1.5, d.RatePerHour, 1e-9)
}

func TestApplyOverrides_ProtectedIdentityOnCoreDrives(t *testing.T) {
	drives := testDrives()
	warnings := ApplyOverrides(drives, map[string]Override{
		"curiosity": {Category: ptr("emergent")},
		"wanderer":  {Category: ptr("core")},
	})

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "protected")
	assert.Equal(t, CategoryCore, drives["curiosity"].Category)
	// Emergent drives may be recategorized.
	assert.Equal(t, CategoryCore, drives["wanderer"].Category)
}

func TestApplyOverrides_UnknownDriveWarned(t *testing.T) {
	drives := testDrives()
	warnings := ApplyOverrides(drives, map[string]Override{
		"ambition": {Threshold: ptr(5.0)},
	})

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "unknown drive")
	assert.NotContains(t, drives, "ambition")
}

func TestApplyOverrides_ThresholdLabels(t *testing.T) {
	drives := testDrives()
	warnings := ApplyOverrides(drives, map[string]Override{
		"curiosity": {Thresholds: map[string]float64{
			"triggered": 9,
			"panic":     99, // unknown label
		}},
	})

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "panic")
	assert.Equal(t, map[string]float64{"triggered": 9}, drives["curiosity"].Thresholds)
}
