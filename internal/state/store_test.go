package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanhubbard/volition/internal/drive"
)

func testTemplate() []*drive.Drive {
	return []*drive.Drive{
		{Name: "curiosity", Threshold: 12, RatePerHour: 0.7, Category: drive.CategoryCore, CreatedBy: "system"},
		{Name: "rest", Threshold: 20, ActivityDriven: true, Category: drive.CategoryCore, CreatedBy: "system"},
		{Name: "reflection", Threshold: 8, RatePerHour: 0.4, Category: drive.CategoryCore, CreatedBy: "system", RequiresFirstLight: true},
	}
}

func newTestStore(t *testing.T, firstLight func() bool) *Store {
	t.Helper()
	dir := t.TempDir()
	return NewStore(filepath.Join(dir, "drives.json"), testTemplate(), firstLight)
}

func TestLoad_FirstRunInstantiatesTemplate(t *testing.T) {
	store := newTestStore(t, nil)

	st, err := store.Load()
	require.NoError(t, err)

	require.Contains(t, st.Drives, "curiosity")
	require.Contains(t, st.Drives, "rest")
	require.Contains(t, st.Drives, "reflection") // nil gate is open
	assert.Equal(t, drive.CategoryCore, st.Drives["curiosity"].Category)
	assert.Equal(t, SchemaVersion, st.Version)
}

func TestLoad_FirstLightGateClosed(t *testing.T) {
	store := newTestStore(t, func() bool { return false })

	st, err := store.Load()
	require.NoError(t, err)

	assert.NotContains(t, st.Drives, "reflection")
	assert.Contains(t, st.Drives, "curiosity")
}

func TestLoad_FirstLightGateOpensLater(t *testing.T) {
	open := false
	store := newTestStore(t, func() bool { return open })

	st, err := store.Load()
	require.NoError(t, err)
	require.NotContains(t, st.Drives, "reflection")
	require.NoError(t, store.Save(st))

	open = true
	st, err = store.Load()
	require.NoError(t, err)
	assert.Contains(t, st.Drives, "reflection")
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	store := newTestStore(t, nil)

	st, err := store.Load()
	require.NoError(t, err)

	st.Drives["curiosity"].Pressure = 9.5
	st.Drives["curiosity"].ThwartingCount = 2
	st.SetTriggered("curiosity")
	st.RetryQueue["curiosity"] = &RetryEntry{AttemptCount: 1, LastError: "gateway unreachable"}
	require.NoError(t, store.Save(st))

	loaded, err := store.Load()
	require.NoError(t, err)

	assert.Equal(t, 9.5, loaded.Drives["curiosity"].Pressure)
	assert.Equal(t, 2, loaded.Drives["curiosity"].ThwartingCount)
	assert.True(t, loaded.IsTriggered("curiosity"))
	require.Contains(t, loaded.RetryQueue, "curiosity")
	assert.Equal(t, "gateway unreachable", loaded.RetryQueue["curiosity"].LastError)
}

func TestLoad_CorruptFileFallsBackToDefaults(t *testing.T) {
	store := newTestStore(t, nil)
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0644))

	st, err := store.Load()
	require.NoError(t, err)

	assert.Contains(t, st.Drives, "curiosity")
	assert.Equal(t, 0.0, st.Drives["curiosity"].Pressure)
}

func TestLoad_ReconcileRegeneratesMissingCoreDrive(t *testing.T) {
	store := newTestStore(t, nil)

	st, err := store.Load()
	require.NoError(t, err)
	delete(st.Drives, "rest")
	require.NoError(t, store.Save(st))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Contains(t, loaded.Drives, "rest")
	assert.True(t, loaded.Drives["rest"].ActivityDriven)
}

func TestLoad_ReconcileRestoresProtectedIdentity(t *testing.T) {
	store := newTestStore(t, nil)

	st, err := store.Load()
	require.NoError(t, err)
	// Tampered identity fields get forced back; pressure survives.
	st.Drives["curiosity"].Category = drive.CategoryEmergent
	st.Drives["curiosity"].CreatedBy = "someone"
	st.Drives["curiosity"].Threshold = -4
	st.Drives["curiosity"].Pressure = 6
	require.NoError(t, store.Save(st))

	loaded, err := store.Load()
	require.NoError(t, err)
	d := loaded.Drives["curiosity"]
	assert.Equal(t, drive.CategoryCore, d.Category)
	assert.Equal(t, "system", d.CreatedBy)
	assert.Equal(t, 12.0, d.Threshold)
	assert.Equal(t, 6.0, d.Pressure)
}

func TestLoad_ReconcileNormalizesKeysAndClamps(t *testing.T) {
	store := newTestStore(t, nil)

	st, err := store.Load()
	require.NoError(t, err)
	st.Drives["Tinkering"] = &drive.Drive{
		Name:      "Tinkering",
		Threshold: 10,
		Pressure:  99, // beyond the 1.5x ceiling
		Category:  drive.CategoryEmergent,
	}
	require.NoError(t, store.Save(st))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Contains(t, loaded.Drives, "tinkering")
	assert.NotContains(t, loaded.Drives, "Tinkering")
	assert.Equal(t, 15.0, loaded.Drives["tinkering"].Pressure)
}

func TestSave_CreatesParentDirAndLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "nested", "deep", "drives.json"), testTemplate(), nil)

	st, err := store.Load()
	require.NoError(t, err)
	require.NoError(t, store.Save(st))

	entries, err := os.ReadDir(filepath.Join(dir, "nested", "deep"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "drives.json", entries[0].Name())
}
