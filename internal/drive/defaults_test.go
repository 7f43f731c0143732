package drive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinDrives(t *testing.T) {
	drives := BuiltinDrives()
	require.NotEmpty(t, drives)

	byName := make(map[string]*Drive, len(drives))
	for _, d := range drives {
		assert.Equal(t, CategoryCore, d.Category, d.Name)
		assert.Equal(t, "system", d.CreatedBy, d.Name)
		assert.Greater(t, d.Threshold, 0.0, d.Name)
		assert.NotEmpty(t, d.Prompt, d.Name)
		if !d.ActivityDriven {
			assert.Greater(t, d.RatePerHour, 0.0, d.Name)
		}
		byName[d.Name] = d
	}

	require.Contains(t, byName, "rest")
	assert.True(t, byName["rest"].ActivityDriven)

	require.Contains(t, byName, "reflection")
	assert.True(t, byName["reflection"].RequiresFirstLight)
}
