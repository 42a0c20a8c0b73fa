package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/VeraDesk/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/shared/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadSettingsFirstRun(t *testing.T) {
	s := openTestStore(t)

	settings, err := s.LoadSettings()
	require.NoError(t, err)

	assert.Equal(t, "light", settings.Theme)
	assert.Equal(t, "en", settings.Language)
	assert.True(t, settings.AdBlockEnabled)
	assert.False(t, settings.SyncEnabled)
	assert.Empty(t, settings.Spaces)
	assert.Equal(t, "gpt-4-turbo-preview", settings.VeraAI.Model)
}

func TestSaveAndReloadSettings(t *testing.T) {
	s := openTestStore(t)

	settings := types.DefaultSettings()
	settings.Theme = "dark"
	settings.Spaces = []types.Space{{ID: "abc", Name: "Work", Color: "#4a90e2"}}
	require.NoError(t, s.SaveSettings(settings))

	loaded, err := s.LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, "dark", loaded.Theme)
	require.Len(t, loaded.Spaces, 1)
	assert.Equal(t, "Work", loaded.Spaces[0].Name)
}

func TestSettingsSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	s, err := Open(path, logging.Nop())
	require.NoError(t, err)
	settings := types.DefaultSettings()
	settings.Language = "fr"
	require.NoError(t, s.SaveSettings(settings))
	require.NoError(t, s.Close())

	s2, err := Open(path, logging.Nop())
	require.NoError(t, err)
	defer s2.Close()

	loaded, err := s2.LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, "fr", loaded.Language)
}

func TestBoundsRoundTrip(t *testing.T) {
	s := openTestStore(t)

	key := SpaceBoundsKey("space-1")
	missing, err := s.LoadBounds(key)
	require.NoError(t, err)
	assert.Nil(t, missing)

	b := types.Bounds{X: 10, Y: 20, Width: 1200, Height: 800}
	require.NoError(t, s.SaveBounds(key, b))

	loaded, err := s.LoadBounds(key)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, b, *loaded)
}

type opCounter struct {
	ops map[string]int
}

func (c *opCounter) RecordStoreOp(operation, status string) {
	if c.ops == nil {
		c.ops = make(map[string]int)
	}
	c.ops[operation+"/"+status]++
}

func TestOperationsRecorded(t *testing.T) {
	s := openTestStore(t)
	rec := &opCounter{}
	s.SetMetrics(rec)

	// A first-run read answers with defaults; the missing row is not a fault.
	_, err := s.LoadSettings()
	require.NoError(t, err)
	require.NoError(t, s.SaveSettings(types.DefaultSettings()))

	key := SpaceBoundsKey("space-1")
	_, err = s.LoadBounds(key)
	require.NoError(t, err)
	require.NoError(t, s.SaveBounds(key, types.Bounds{Width: 800, Height: 600}))
	require.NoError(t, s.Delete(key))

	assert.Equal(t, 1, rec.ops["load_settings/ok"])
	assert.Equal(t, 1, rec.ops["save_settings/ok"])
	assert.Equal(t, 1, rec.ops["load_bounds/ok"])
	assert.Equal(t, 1, rec.ops["save_bounds/ok"])
	assert.Equal(t, 1, rec.ops["delete/ok"])
	assert.NotContains(t, rec.ops, "load_settings/error")
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SaveBounds("k", types.Bounds{Width: 1, Height: 1}))
	require.NoError(t, s.Delete("k"))
	require.NoError(t, s.Delete("k"))

	loaded, err := s.LoadBounds("k")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
