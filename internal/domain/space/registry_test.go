package space

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/VeraDesk/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/shared/types"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/store"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	reg, err := NewRegistry(st, logging.Nop())
	require.NoError(t, err)
	return reg
}

func TestCreateSpaceDefaults(t *testing.T) {
	reg := newTestRegistry(t)

	sp, err := reg.CreateSpace(types.SpaceConfig{})
	require.NoError(t, err)
	require.NotNil(t, sp)

	assert.NotEmpty(t, sp.ID)
	assert.Equal(t, "New Space", sp.Name)
	assert.Equal(t, "#4a90e2", sp.Color)
	assert.Empty(t, sp.Subspaces)
	assert.True(t, sp.Settings.AdBlockEnabled)
	assert.True(t, sp.Settings.Notifications)
	assert.False(t, sp.Settings.LockEnabled)
}

func TestCreateSpacePersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	st, err := store.Open(path, logging.Nop())
	require.NoError(t, err)
	reg, err := NewRegistry(st, logging.Nop())
	require.NoError(t, err)

	sp, err := reg.CreateSpace(types.SpaceConfig{Name: "Work"})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st2, err := store.Open(path, logging.Nop())
	require.NoError(t, err)
	defer st2.Close()
	reg2, err := NewRegistry(st2, logging.Nop())
	require.NoError(t, err)

	got := reg2.Space(sp.ID)
	require.NotNil(t, got)
	assert.Equal(t, "Work", got.Name)
}

func TestUpdateSpaceDeepMergesSettings(t *testing.T) {
	reg := newTestRegistry(t)
	sp, err := reg.CreateSpace(types.SpaceConfig{})
	require.NoError(t, err)

	off := false
	updated, err := reg.UpdateSpace(sp.ID, types.SpaceUpdate{
		Settings: &types.SpaceSettingsUpdate{AdBlockEnabled: &off},
	})
	require.NoError(t, err)
	require.NotNil(t, updated)

	// Only the named field changed; siblings keep their values.
	assert.False(t, updated.Settings.AdBlockEnabled)
	assert.True(t, updated.Settings.Notifications)
	assert.False(t, updated.Settings.LockEnabled)
}

func TestUpdateUnknownSpaceReturnsNil(t *testing.T) {
	reg := newTestRegistry(t)

	name := "ghost"
	updated, err := reg.UpdateSpace("no-such-id", types.SpaceUpdate{Name: &name})
	require.NoError(t, err)
	assert.Nil(t, updated)
}

func TestLockPasscode(t *testing.T) {
	reg := newTestRegistry(t)
	sp, err := reg.CreateSpace(types.SpaceConfig{})
	require.NoError(t, err)

	code := "1234"
	updated, err := reg.UpdateSpace(sp.ID, types.SpaceUpdate{LockPasscode: &code})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.True(t, updated.Settings.LockEnabled)
	assert.NotEqual(t, code, updated.LockHash)

	assert.True(t, reg.VerifyLock(sp.ID, "1234"))
	assert.False(t, reg.VerifyLock(sp.ID, "4321"))

	// Disabling the lock drops the hash.
	off := false
	updated, err = reg.UpdateSpace(sp.ID, types.SpaceUpdate{
		Settings: &types.SpaceSettingsUpdate{LockEnabled: &off},
	})
	require.NoError(t, err)
	assert.Empty(t, updated.LockHash)
	assert.False(t, reg.VerifyLock(sp.ID, "1234"))
}

func TestDeleteSpaceInvokesHook(t *testing.T) {
	reg := newTestRegistry(t)
	sp, err := reg.CreateSpace(types.SpaceConfig{})
	require.NoError(t, err)

	var closed []string
	reg.SetOnDelete(func(spaceID string) { closed = append(closed, spaceID) })

	existed, err := reg.DeleteSpace(sp.ID)
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, []string{sp.ID}, closed)
	assert.Nil(t, reg.Space(sp.ID))

	existed, err = reg.DeleteSpace(sp.ID)
	require.NoError(t, err)
	assert.False(t, existed)
	assert.Len(t, closed, 1)
}

func TestCreateSubspacePartition(t *testing.T) {
	reg := newTestRegistry(t)
	sp, err := reg.CreateSpace(types.SpaceConfig{})
	require.NoError(t, err)

	sub, err := reg.CreateSubspace(sp.ID, types.SubspaceConfig{Name: "Mail", URL: "https://mail.example.com"})
	require.NoError(t, err)
	require.NotNil(t, sub)

	assert.True(t, strings.HasPrefix(sub.Partition, "persist:space-"+sp.ID+"-subspace-"))

	other, err := reg.CreateSubspace(sp.ID, types.SubspaceConfig{Name: "Docs", URL: "https://docs.example.com"})
	require.NoError(t, err)
	assert.NotEqual(t, sub.Partition, other.Partition)

	missing, err := reg.CreateSubspace("no-such-id", types.SubspaceConfig{})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDeleteSubspaceIdempotent(t *testing.T) {
	reg := newTestRegistry(t)
	sp, err := reg.CreateSpace(types.SpaceConfig{})
	require.NoError(t, err)
	sub, err := reg.CreateSubspace(sp.ID, types.SubspaceConfig{Name: "Mail"})
	require.NoError(t, err)

	ok, err := reg.DeleteSubspace(sp.ID, sub.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = reg.DeleteSubspace(sp.ID, sub.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	got := reg.Space(sp.ID)
	assert.Empty(t, got.Subspaces)
}

func TestReorderSubspaces(t *testing.T) {
	reg := newTestRegistry(t)
	sp, err := reg.CreateSpace(types.SpaceConfig{})
	require.NoError(t, err)

	a, _ := reg.CreateSubspace(sp.ID, types.SubspaceConfig{Name: "a"})
	b, _ := reg.CreateSubspace(sp.ID, types.SubspaceConfig{Name: "b"})
	c, _ := reg.CreateSubspace(sp.ID, types.SubspaceConfig{Name: "c"})

	updated, err := reg.ReorderSubspaces(sp.ID, []string{c.ID, a.ID})
	require.NoError(t, err)
	require.NotNil(t, updated)

	require.Len(t, updated.Subspaces, 3)
	assert.Equal(t, c.ID, updated.Subspaces[0].ID)
	assert.Equal(t, a.ID, updated.Subspaces[1].ID)
	assert.Equal(t, b.ID, updated.Subspaces[2].ID)
}

func TestUpdateSettingsLeavesSpacesAlone(t *testing.T) {
	reg := newTestRegistry(t)
	_, err := reg.CreateSpace(types.SpaceConfig{Name: "Work"})
	require.NoError(t, err)

	theme := "dark"
	enabled := true
	key := "sk-test"
	settings, err := reg.UpdateSettings(types.SettingsUpdate{
		Theme:  &theme,
		VeraAI: &types.VeraAIUpdate{Enabled: &enabled, APIKey: &key},
	})
	require.NoError(t, err)

	assert.Equal(t, "dark", settings.Theme)
	assert.True(t, settings.VeraAI.Enabled)
	assert.Equal(t, "sk-test", settings.VeraAI.APIKey)
	assert.Equal(t, "gpt-4-turbo-preview", settings.VeraAI.Model)
	require.Len(t, settings.Spaces, 1)
	assert.Equal(t, "Work", settings.Spaces[0].Name)
}
