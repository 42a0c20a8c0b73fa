package surface

import (
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/VeraDesk/backend/internal/domain/adblock"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/domain/space"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/shared/id"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/shared/types"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/store"
)

// Default window geometry.
const (
	DefaultWidth  = 1200
	DefaultHeight = 800

	MainWidth  = 1000
	MainHeight = 700
)

// Surface is one live window bound to a space. At most one surface exists
// per space.
type Surface struct {
	SpaceID   string
	Partition string
	window    Window
	views     map[string]View // keyed by subspace id
	visible   string          // subspace id of the visible view
}

// Gauges receives surface-table telemetry. A nil Gauges disables it.
type Gauges interface {
	SetSurfaces(surfaces, views int)
	IncSurfacesOpened()
}

// Manager owns the space-to-surface table. The table never escapes; callers
// get snapshots. Grounded on one invariant: opening a space that already has
// a surface focuses it and constructs nothing.
type Manager struct {
	mu       sync.RWMutex
	surfaces map[string]*Surface
	focused  string

	backend  Backend
	registry *space.Registry
	store    *store.Store
	filter   *adblock.Filter
	metrics  Gauges
	log      *logging.Logger

	// keepAlive keeps surfaces open when the primary window closes, the
	// dock-style lifecycle convention.
	keepAlive bool
}

// NewManager creates a surface manager and hooks space deletion to close the
// deleted space's surface.
func NewManager(backend Backend, registry *space.Registry, st *store.Store, filter *adblock.Filter, keepAlive bool, log *logging.Logger) *Manager {
	m := &Manager{
		surfaces:  make(map[string]*Surface),
		backend:   backend,
		registry:  registry,
		store:     st,
		filter:    filter,
		keepAlive: keepAlive,
		log:       log,
	}
	registry.SetOnDelete(func(spaceID string) { m.Close(spaceID) })
	return m
}

// SetMetrics attaches the telemetry gauges.
func (m *Manager) SetMetrics(g Gauges) {
	m.metrics = g
}

// publishGauges pushes the current surface and view counts.
func (m *Manager) publishGauges() {
	if m.metrics == nil {
		return
	}
	m.mu.RLock()
	surfaces := len(m.surfaces)
	views := 0
	for _, s := range m.surfaces {
		views += len(s.views)
	}
	m.mu.RUnlock()
	m.metrics.SetSurfaces(surfaces, views)
}

// Open opens the surface for a space, creating it on first open and focusing
// the existing one otherwise. An unknown space is reported to the caller as
// a nil result, not an internal failure.
func (m *Manager) Open(spaceID string) (*types.SurfaceInfo, error) {
	sp := m.registry.Space(spaceID)
	if sp == nil {
		m.log.Warn("open requested for unknown space", zap.String("space_id", spaceID))
		return nil, nil
	}

	m.mu.Lock()
	if s, ok := m.surfaces[spaceID]; ok {
		m.focused = spaceID
		info := m.infoLocked(s)
		m.mu.Unlock()
		if err := s.window.Focus(); err != nil {
			m.log.Warn("focus failed", zap.String("space_id", spaceID), zap.Error(err))
		}
		return &info, nil
	}
	m.mu.Unlock()

	bounds := types.Bounds{Width: DefaultWidth, Height: DefaultHeight}
	if saved, err := m.store.LoadBounds(store.SpaceBoundsKey(spaceID)); err != nil {
		m.log.Warn("window state read failed", zap.String("space_id", spaceID), zap.Error(err))
	} else if saved != nil {
		bounds = *saved
	}

	var block func(string) bool
	if sp.Settings.AdBlockEnabled {
		block = m.filter.Blocked
	}

	partition := id.SpacePartition(spaceID)
	win, err := m.backend.CreateWindow(WindowConfig{
		Title:        sp.Name,
		Partition:    partition,
		Bounds:       bounds,
		BlockRequest: block,
		OnClosed:     func() { m.handleClosed(spaceID) },
	})
	if err != nil {
		m.log.Error("window create failed", zap.String("space_id", spaceID), zap.Error(err))
		return nil, err
	}

	s := &Surface{
		SpaceID:   spaceID,
		Partition: partition,
		window:    win,
		views:     make(map[string]View),
	}

	m.mu.Lock()
	if existing, ok := m.surfaces[spaceID]; ok {
		// Lost a create race; keep the first window.
		m.focused = spaceID
		info := m.infoLocked(existing)
		m.mu.Unlock()
		win.Close()
		return &info, nil
	}
	m.surfaces[spaceID] = s
	m.focused = spaceID
	info := m.infoLocked(s)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.IncSurfacesOpened()
	}
	m.publishGauges()
	m.log.Info("surface opened",
		zap.String("space_id", spaceID),
		zap.String("partition", partition),
		zap.Bool("adblock", block != nil))
	return &info, nil
}

// Close tears down a space's surface, persisting its geometry first. Closing
// a space with no surface is a no-op.
func (m *Manager) Close(spaceID string) {
	m.mu.Lock()
	s, ok := m.surfaces[spaceID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.surfaces, spaceID)
	if m.focused == spaceID {
		m.focused = ""
	}
	m.mu.Unlock()

	if err := m.store.SaveBounds(store.SpaceBoundsKey(spaceID), s.window.Bounds()); err != nil {
		m.log.Warn("window state save failed", zap.String("space_id", spaceID), zap.Error(err))
	}
	for _, v := range s.views {
		v.Destroy()
	}
	if err := s.window.Close(); err != nil {
		m.log.Warn("window close failed", zap.String("space_id", spaceID), zap.Error(err))
	}
	m.publishGauges()
	m.log.Info("surface closed", zap.String("space_id", spaceID))
}

// handleClosed deregisters a surface whose window went away on its own.
func (m *Manager) handleClosed(spaceID string) {
	m.mu.Lock()
	_, ok := m.surfaces[spaceID]
	if ok {
		delete(m.surfaces, spaceID)
		if m.focused == spaceID {
			m.focused = ""
		}
	}
	m.mu.Unlock()
	if ok {
		m.publishGauges()
		m.log.Info("surface window closed", zap.String("space_id", spaceID))
	}
}

// OpenSubspace shows a subspace inside its space's surface, creating the
// content view on first use and hiding (not destroying) the previously
// visible one. Returns false when the surface or subspace is unknown.
func (m *Manager) OpenSubspace(spaceID, subspaceID string) (bool, error) {
	sp := m.registry.Space(spaceID)
	if sp == nil {
		return false, nil
	}
	var sub *types.Subspace
	for i := range sp.Subspaces {
		if sp.Subspaces[i].ID == subspaceID {
			sub = &sp.Subspaces[i]
			break
		}
	}
	if sub == nil {
		m.log.Warn("unknown subspace",
			zap.String("space_id", spaceID), zap.String("subspace_id", subspaceID))
		return false, nil
	}

	m.mu.Lock()
	s, ok := m.surfaces[spaceID]
	if !ok {
		m.mu.Unlock()
		return false, nil
	}

	view, exists := s.views[subspaceID]
	if !exists {
		var block func(string) bool
		if sp.Settings.AdBlockEnabled {
			block = m.filter.Blocked
		}
		created, err := s.window.CreateView(ViewConfig{
			ID:           subspaceID,
			URL:          sub.URL,
			Partition:    sub.Partition,
			UserAgent:    sub.UserAgent,
			BlockRequest: block,
		})
		if err != nil {
			m.mu.Unlock()
			m.log.Error("view create failed",
				zap.String("space_id", spaceID), zap.String("subspace_id", subspaceID), zap.Error(err))
			return false, err
		}
		view = created
		s.views[subspaceID] = view
	}

	previous := s.visible
	var previousView View
	if previous != "" && previous != subspaceID {
		previousView = s.views[previous]
	}
	s.visible = subspaceID
	m.mu.Unlock()

	if !exists {
		m.publishGauges()
	}
	if previousView != nil {
		previousView.Hide()
	}
	if err := view.Show(); err != nil {
		m.log.Warn("view show failed",
			zap.String("space_id", spaceID), zap.String("subspace_id", subspaceID), zap.Error(err))
	}
	return true, nil
}

// Broadcast delivers an event to every live surface. Delivery failures are
// logged per surface and do not stop the fan-out.
func (m *Manager) Broadcast(event string, payload any) {
	m.mu.RLock()
	windows := make(map[string]Window, len(m.surfaces))
	for spaceID, s := range m.surfaces {
		windows[spaceID] = s.window
	}
	m.mu.RUnlock()

	for spaceID, w := range windows {
		if err := w.Send(event, payload); err != nil {
			m.log.Warn("broadcast delivery failed",
				zap.String("space_id", spaceID), zap.String("event", event), zap.Error(err))
		}
	}
}

// FocusActive refocuses the most recently focused surface, falling back to
// any live one. Used when a second launch defers to this instance. Reports
// whether a window was focused.
func (m *Manager) FocusActive() bool {
	m.mu.RLock()
	var w Window
	if s, ok := m.surfaces[m.focused]; ok {
		w = s.window
	} else {
		for _, s := range m.surfaces {
			w = s.window
			break
		}
	}
	m.mu.RUnlock()
	if w == nil {
		return false
	}
	if err := w.Focus(); err != nil {
		m.log.Warn("refocus failed", zap.Error(err))
		return false
	}
	return true
}

// Minimize minimizes a space's window. Unknown surfaces are a no-op.
func (m *Manager) Minimize(spaceID string) bool {
	if w := m.windowOf(spaceID); w != nil {
		w.Minimize()
		return true
	}
	return false
}

// Maximize maximizes a space's window. Unknown surfaces are a no-op.
func (m *Manager) Maximize(spaceID string) bool {
	if w := m.windowOf(spaceID); w != nil {
		w.Maximize()
		return true
	}
	return false
}

// PrimaryClosed handles the primary window going away: every surface closes
// unless the keep-alive convention is active.
func (m *Manager) PrimaryClosed() {
	if m.keepAlive {
		m.log.Info("primary window closed, surfaces kept alive")
		return
	}
	m.CloseAll()
}

// CloseAll closes every surface.
func (m *Manager) CloseAll() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.surfaces))
	for spaceID := range m.surfaces {
		ids = append(ids, spaceID)
	}
	m.mu.RUnlock()
	for _, spaceID := range ids {
		m.Close(spaceID)
	}
}

// Get returns the surface info for a space, or nil.
func (m *Manager) Get(spaceID string) *types.SurfaceInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.surfaces[spaceID]
	if !ok {
		return nil
	}
	info := m.infoLocked(s)
	return &info
}

// List returns a snapshot of all live surfaces.
func (m *Manager) List() []types.SurfaceInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.SurfaceInfo, 0, len(m.surfaces))
	for _, s := range m.surfaces {
		out = append(out, m.infoLocked(s))
	}
	return out
}

// Stats summarizes the live surface table.
func (m *Manager) Stats() types.SurfaceStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := types.SurfaceStats{TotalSurfaces: len(m.surfaces)}
	for _, s := range m.surfaces {
		stats.TotalViews += len(s.views)
	}
	if m.focused != "" {
		focused := m.focused
		stats.FocusedSpace = &focused
	}
	return stats
}

// Window exposes the live window for a space, for callers that deliver
// events to one surface (the chat stream). Nil when the space has no
// surface.
func (m *Manager) Window(spaceID string) Window {
	return m.windowOf(spaceID)
}

func (m *Manager) windowOf(spaceID string) Window {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.surfaces[spaceID]; ok {
		return s.window
	}
	return nil
}

func (m *Manager) infoLocked(s *Surface) types.SurfaceInfo {
	sp := m.registry.Space(s.SpaceID)
	title := ""
	if sp != nil {
		title = sp.Name
	}
	views := make([]string, 0, len(s.views))
	for subID := range s.views {
		views = append(views, subID)
	}
	return types.SurfaceInfo{
		SpaceID:   s.SpaceID,
		Title:     title,
		Partition: s.Partition,
		Bounds:    s.window.Bounds(),
		Views:     views,
		Visible:   s.visible,
	}
}
