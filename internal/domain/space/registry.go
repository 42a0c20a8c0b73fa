package space

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/GriffinCanCode/VeraDesk/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/shared/id"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/shared/types"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/store"
)

// Defaults applied when a new space omits fields.
const (
	DefaultName  = "New Space"
	DefaultColor = "#4a90e2"
)

// Registry owns the settings document: the list of spaces plus the global
// preferences. All reads are served from the in-memory copy; every mutation
// is written through the store before the caller sees success, so the cache
// and disk never diverge on a reported success.
type Registry struct {
	mu       sync.RWMutex
	settings types.Settings
	store    *store.Store
	log      *logging.Logger

	// onDelete is invoked after a space is removed, outside the lock. The
	// session manager hooks it to close the space's surface.
	onDelete func(spaceID string)
}

// NewRegistry loads the persisted document and returns a registry over it.
func NewRegistry(st *store.Store, log *logging.Logger) (*Registry, error) {
	settings, err := st.LoadSettings()
	if err != nil {
		return nil, err
	}
	return &Registry{settings: settings, store: st, log: log}, nil
}

// SetOnDelete registers the post-delete hook.
func (r *Registry) SetOnDelete(fn func(spaceID string)) {
	r.mu.Lock()
	r.onDelete = fn
	r.mu.Unlock()
}

// Spaces returns a snapshot of all spaces.
func (r *Registry) Spaces() []types.Space {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.Space, len(r.settings.Spaces))
	for i, sp := range r.settings.Spaces {
		out[i] = cloneSpace(sp)
	}
	return out
}

// Space returns a copy of the space with the given id, or nil.
func (r *Registry) Space(spaceID string) *types.Space {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, sp := range r.settings.Spaces {
		if sp.ID == spaceID {
			c := cloneSpace(sp)
			return &c
		}
	}
	return nil
}

// CreateSpace appends a new space, filling defaults for omitted fields, and
// returns the canonical record.
func (r *Registry) CreateSpace(cfg types.SpaceConfig) (*types.Space, error) {
	sp := types.Space{
		ID:        cfg.ID,
		Name:      cfg.Name,
		Icon:      cfg.Icon,
		Color:     cfg.Color,
		Subspaces: cfg.Subspaces,
		Settings:  types.DefaultSpaceSettings(),
		CreatedAt: time.Now().UTC(),
	}
	if sp.ID == "" {
		sp.ID = id.NewSpaceID()
	}
	if sp.Name == "" {
		sp.Name = DefaultName
	}
	if sp.Color == "" {
		sp.Color = DefaultColor
	}
	if sp.Subspaces == nil {
		sp.Subspaces = []types.Subspace{}
	}
	if cfg.Settings != nil {
		sp.Settings = *cfg.Settings
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	next := append(cloneSpaces(r.settings.Spaces), sp)
	if err := r.persistSpaces(next); err != nil {
		return nil, err
	}

	r.log.Info("space created", zap.String("space_id", sp.ID), zap.String("name", sp.Name))
	created := cloneSpace(sp)
	return &created, nil
}

// UpdateSpace applies a partial update. Top-level fields replace wholesale;
// the nested settings object merges field-by-field. Returns nil (no error)
// when the space does not exist.
func (r *Registry) UpdateSpace(spaceID string, upd types.SpaceUpdate) (*types.Space, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(spaceID)
	if idx < 0 {
		r.log.Warn("update for unknown space", zap.String("space_id", spaceID))
		return nil, nil
	}

	next := cloneSpaces(r.settings.Spaces)
	sp := &next[idx]

	if upd.Name != nil {
		sp.Name = *upd.Name
	}
	if upd.Icon != nil {
		sp.Icon = *upd.Icon
	}
	if upd.Color != nil {
		sp.Color = *upd.Color
	}
	if upd.PersonalData != nil {
		sp.PersonalData = *upd.PersonalData
	}
	if upd.ChatbotType != nil {
		sp.ChatbotType = *upd.ChatbotType
	}
	if upd.PortfolioData != nil {
		sp.PortfolioData = *upd.PortfolioData
	}
	if upd.Settings != nil {
		if upd.Settings.AdBlockEnabled != nil {
			sp.Settings.AdBlockEnabled = *upd.Settings.AdBlockEnabled
		}
		if upd.Settings.Notifications != nil {
			sp.Settings.Notifications = *upd.Settings.Notifications
		}
		if upd.Settings.LockEnabled != nil {
			sp.Settings.LockEnabled = *upd.Settings.LockEnabled
			if !sp.Settings.LockEnabled {
				sp.LockHash = ""
			}
		}
	}
	if upd.LockPasscode != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*upd.LockPasscode), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash passcode: %w", err)
		}
		sp.LockHash = string(hash)
		sp.Settings.LockEnabled = true
	}

	if err := r.persistSpaces(next); err != nil {
		return nil, err
	}

	updated := cloneSpace(*sp)
	return &updated, nil
}

// DeleteSpace removes a space. Reports whether it existed; deleting an
// unknown space is not an error.
func (r *Registry) DeleteSpace(spaceID string) (bool, error) {
	r.mu.Lock()
	idx := r.indexOf(spaceID)
	if idx < 0 {
		r.mu.Unlock()
		return false, nil
	}

	next := cloneSpaces(r.settings.Spaces)
	next = append(next[:idx], next[idx+1:]...)
	if err := r.persistSpaces(next); err != nil {
		r.mu.Unlock()
		return false, err
	}
	hook := r.onDelete
	r.mu.Unlock()

	if err := r.store.Delete(store.SpaceBoundsKey(spaceID)); err != nil {
		r.log.Warn("failed to drop window state", zap.String("space_id", spaceID), zap.Error(err))
	}
	if hook != nil {
		hook(spaceID)
	}
	r.log.Info("space deleted", zap.String("space_id", spaceID))
	return true, nil
}

// CreateSubspace adds a subspace to a space, assigning it a fresh id and a
// storage partition that is fixed for the subspace's lifetime. Returns nil
// when the space does not exist.
func (r *Registry) CreateSubspace(spaceID string, cfg types.SubspaceConfig) (*types.Subspace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(spaceID)
	if idx < 0 {
		r.log.Warn("subspace create for unknown space", zap.String("space_id", spaceID))
		return nil, nil
	}

	sub := types.Subspace{
		ID:        id.NewSubspaceID(),
		Name:      cfg.Name,
		URL:       cfg.URL,
		Icon:      cfg.Icon,
		UserAgent: cfg.UserAgent,
		Partition: id.SubspacePartition(spaceID),
		CreatedAt: time.Now().UTC(),
	}

	next := cloneSpaces(r.settings.Spaces)
	next[idx].Subspaces = append(next[idx].Subspaces, sub)
	if err := r.persistSpaces(next); err != nil {
		return nil, err
	}

	r.log.Info("subspace created",
		zap.String("space_id", spaceID),
		zap.String("subspace_id", sub.ID),
		zap.String("partition", sub.Partition))
	created := sub
	return &created, nil
}

// DeleteSubspace filters the subspace out of its space. Idempotent: removing
// an unknown subspace succeeds without effect.
func (r *Registry) DeleteSubspace(spaceID, subspaceID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(spaceID)
	if idx < 0 {
		return false, nil
	}

	next := cloneSpaces(r.settings.Spaces)
	subs := next[idx].Subspaces
	filtered := subs[:0:0]
	for _, sub := range subs {
		if sub.ID != subspaceID {
			filtered = append(filtered, sub)
		}
	}
	if len(filtered) == len(subs) {
		return true, nil
	}
	if filtered == nil {
		filtered = []types.Subspace{}
	}
	next[idx].Subspaces = filtered
	if err := r.persistSpaces(next); err != nil {
		return false, err
	}
	return true, nil
}

// ReorderSubspaces rearranges a space's subspaces to follow orderedIDs.
// Unknown ids are ignored; subspaces missing from the list keep their
// relative order at the tail. Returns the updated space, or nil when the
// space does not exist.
func (r *Registry) ReorderSubspaces(spaceID string, orderedIDs []string) (*types.Space, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(spaceID)
	if idx < 0 {
		return nil, nil
	}

	next := cloneSpaces(r.settings.Spaces)
	current := next[idx].Subspaces
	byID := make(map[string]types.Subspace, len(current))
	for _, sub := range current {
		byID[sub.ID] = sub
	}

	reordered := make([]types.Subspace, 0, len(current))
	for _, subID := range orderedIDs {
		if sub, ok := byID[subID]; ok {
			reordered = append(reordered, sub)
			delete(byID, subID)
		}
	}
	for _, sub := range current {
		if _, left := byID[sub.ID]; left {
			reordered = append(reordered, sub)
		}
	}
	next[idx].Subspaces = reordered
	if err := r.persistSpaces(next); err != nil {
		return nil, err
	}

	updated := cloneSpace(next[idx])
	return &updated, nil
}

// VerifyLock checks a passcode against the space's stored hash. A space
// without a hash never verifies.
func (r *Registry) VerifyLock(spaceID, passcode string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx := r.indexOf(spaceID)
	if idx < 0 || r.settings.Spaces[idx].LockHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(r.settings.Spaces[idx].LockHash), []byte(passcode)) == nil
}

// Settings returns a snapshot of the global settings.
func (r *Registry) Settings() types.Settings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.settings
	s.Spaces = cloneSpaces(r.settings.Spaces)
	return s
}

// UpdateSettings applies a partial update to the global preferences. The
// spaces list is owned by space CRUD and never touched here.
func (r *Registry) UpdateSettings(upd types.SettingsUpdate) (types.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.settings
	next.Spaces = cloneSpaces(r.settings.Spaces)
	if upd.Theme != nil {
		next.Theme = *upd.Theme
	}
	if upd.AdBlockEnabled != nil {
		next.AdBlockEnabled = *upd.AdBlockEnabled
	}
	if upd.SyncEnabled != nil {
		next.SyncEnabled = *upd.SyncEnabled
	}
	if upd.Language != nil {
		next.Language = *upd.Language
	}
	if upd.OpenAIAPIKey != nil {
		next.OpenAIAPIKey = *upd.OpenAIAPIKey
	}
	if upd.VeraAI != nil {
		if upd.VeraAI.Enabled != nil {
			next.VeraAI.Enabled = *upd.VeraAI.Enabled
		}
		if upd.VeraAI.APIKey != nil {
			next.VeraAI.APIKey = *upd.VeraAI.APIKey
		}
		if upd.VeraAI.Model != nil {
			next.VeraAI.Model = *upd.VeraAI.Model
		}
	}

	if err := r.store.SaveSettings(next); err != nil {
		return types.Settings{}, err
	}
	r.settings = next
	snap := next
	snap.Spaces = cloneSpaces(next.Spaces)
	return snap, nil
}

// persistSpaces writes the document with the replacement spaces list and, on
// success, commits it to the cache. Callers hold the write lock.
func (r *Registry) persistSpaces(spaces []types.Space) error {
	next := r.settings
	next.Spaces = spaces
	if err := r.store.SaveSettings(next); err != nil {
		return err
	}
	r.settings = next
	return nil
}

func (r *Registry) indexOf(spaceID string) int {
	for i, sp := range r.settings.Spaces {
		if sp.ID == spaceID {
			return i
		}
	}
	return -1
}

func cloneSpace(sp types.Space) types.Space {
	c := sp
	c.Subspaces = make([]types.Subspace, len(sp.Subspaces))
	copy(c.Subspaces, sp.Subspaces)
	return c
}

func cloneSpaces(spaces []types.Space) []types.Space {
	out := make([]types.Space, len(spaces))
	for i, sp := range spaces {
		out[i] = cloneSpace(sp)
	}
	return out
}
