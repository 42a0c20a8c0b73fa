package http

import (
	"net/http"
	"net/url"
	"os/exec"
	"runtime"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/VeraDesk/backend/internal/ai"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/catalog"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/domain/space"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/domain/surface"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/icons"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/shared/types"
)

// Handlers serves the REST surface the shell talks to.
type Handlers struct {
	registry *space.Registry
	surfaces *surface.Manager
	catalog  *catalog.Catalog
	icons    *icons.Service
	chats    *ai.Conversations
	log      *logging.Logger

	// openExternal launches a URL in the system browser. Swappable in tests.
	openExternal func(url string) error
}

// NewHandlers wires the REST handlers.
func NewHandlers(registry *space.Registry, surfaces *surface.Manager, cat *catalog.Catalog, ic *icons.Service, chats *ai.Conversations, log *logging.Logger) *Handlers {
	return &Handlers{
		registry:     registry,
		surfaces:     surfaces,
		catalog:      cat,
		icons:        ic,
		chats:        chats,
		log:          log,
		openExternal: systemOpen,
	}
}

// Register mounts every route on the router group.
func (h *Handlers) Register(r gin.IRoutes) {
	r.GET("/health", h.Health)

	r.GET("/spaces", h.ListSpaces)
	r.POST("/spaces", h.CreateSpace)
	r.PATCH("/spaces/:id", h.UpdateSpace)
	r.DELETE("/spaces/:id", h.DeleteSpace)
	r.POST("/spaces/:id/open", h.OpenSpace)
	r.POST("/spaces/:id/close", h.CloseSpace)
	r.POST("/spaces/:id/verify-lock", h.VerifyLock)

	r.GET("/spaces/:id/subspaces", h.ListSubspaces)
	r.POST("/spaces/:id/subspaces", h.CreateSubspace)
	r.DELETE("/spaces/:id/subspaces/:sub", h.DeleteSubspace)
	r.PUT("/spaces/:id/subspaces/order", h.ReorderSubspaces)
	r.POST("/spaces/:id/subspaces/:sub/open", h.OpenSubspace)

	r.GET("/surfaces", h.ListSurfaces)
	r.POST("/focus", h.Focus)
	r.POST("/surfaces/:id/minimize", h.MinimizeSurface)
	r.POST("/surfaces/:id/maximize", h.MaximizeSurface)
	r.POST("/surfaces/:id/close", h.CloseSurface)

	r.GET("/catalog", h.Catalog)
	r.GET("/settings", h.GetSettings)
	r.PATCH("/settings", h.UpdateSettings)
	r.POST("/icons", h.SaveIcon)
	r.POST("/open-external", h.OpenExternal)
	r.POST("/chat/:widget/clear", h.ClearChat)
}

// Health reports liveness.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "surfaces": h.surfaces.Stats()})
}

// ListSpaces returns every space.
func (h *Handlers) ListSpaces(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "spaces": h.registry.Spaces()})
}

// CreateSpace creates a space, filling defaults for omitted fields.
func (h *Handlers) CreateSpace(c *gin.Context) {
	var cfg types.SpaceConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	sp, err := h.registry.CreateSpace(cfg)
	if err != nil {
		h.persistenceFault(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "space": sp})
}

// UpdateSpace applies a partial update. Unknown spaces are success:false,
// not an internal failure.
func (h *Handlers) UpdateSpace(c *gin.Context) {
	var upd types.SpaceUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	sp, err := h.registry.UpdateSpace(c.Param("id"), upd)
	if err != nil {
		h.persistenceFault(c, err)
		return
	}
	if sp == nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "space": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "space": sp})
}

// DeleteSpace removes a space and closes its surface.
func (h *Handlers) DeleteSpace(c *gin.Context) {
	existed, err := h.registry.DeleteSpace(c.Param("id"))
	if err != nil {
		h.persistenceFault(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": existed})
}

// OpenSpace opens (or focuses) the space's surface.
func (h *Handlers) OpenSpace(c *gin.Context) {
	info, err := h.surfaces.Open(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	if info == nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "surface": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "surface": info})
}

// CloseSpace closes the space's surface if open.
func (h *Handlers) CloseSpace(c *gin.Context) {
	h.surfaces.Close(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// VerifyLock checks a space passcode.
func (h *Handlers) VerifyLock(c *gin.Context) {
	var body struct {
		Passcode string `json:"passcode"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	ok := h.registry.VerifyLock(c.Param("id"), body.Passcode)
	c.JSON(http.StatusOK, gin.H{"success": true, "valid": ok})
}

// ListSubspaces returns a space's subspaces.
func (h *Handlers) ListSubspaces(c *gin.Context) {
	sp := h.registry.Space(c.Param("id"))
	if sp == nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "subspaces": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "subspaces": sp.Subspaces})
}

// CreateSubspace adds a subspace to a space.
func (h *Handlers) CreateSubspace(c *gin.Context) {
	var cfg types.SubspaceConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	sub, err := h.registry.CreateSubspace(c.Param("id"), cfg)
	if err != nil {
		h.persistenceFault(c, err)
		return
	}
	if sub == nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "subspace": nil})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "subspace": sub})
}

// DeleteSubspace removes a subspace; idempotent.
func (h *Handlers) DeleteSubspace(c *gin.Context) {
	ok, err := h.registry.DeleteSubspace(c.Param("id"), c.Param("sub"))
	if err != nil {
		h.persistenceFault(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": ok})
}

// ReorderSubspaces rearranges a space's subspaces.
func (h *Handlers) ReorderSubspaces(c *gin.Context) {
	var body struct {
		Order []string `json:"order"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	sp, err := h.registry.ReorderSubspaces(c.Param("id"), body.Order)
	if err != nil {
		h.persistenceFault(c, err)
		return
	}
	if sp == nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "space": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "space": sp})
}

// OpenSubspace shows a subspace inside its open surface.
func (h *Handlers) OpenSubspace(c *gin.Context) {
	ok, err := h.surfaces.OpenSubspace(c.Param("id"), c.Param("sub"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": ok})
}

// Focus refocuses the active surface. A second launch of the app probes the
// running instance and calls this instead of starting another server.
func (h *Handlers) Focus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": h.surfaces.FocusActive()})
}

// ListSurfaces returns the live surfaces.
func (h *Handlers) ListSurfaces(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "surfaces": h.surfaces.List(), "stats": h.surfaces.Stats()})
}

// MinimizeSurface minimizes a space's window.
func (h *Handlers) MinimizeSurface(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": h.surfaces.Minimize(c.Param("id"))})
}

// MaximizeSurface maximizes a space's window.
func (h *Handlers) MaximizeSurface(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": h.surfaces.Maximize(c.Param("id"))})
}

// CloseSurface closes a space's window.
func (h *Handlers) CloseSurface(c *gin.Context) {
	h.surfaces.Close(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Catalog returns the app catalog.
func (h *Handlers) Catalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"apps":       h.catalog.Entries(),
		"categories": h.catalog.Categories(),
	})
}

// GetSettings returns the settings document.
func (h *Handlers) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "settings": h.registry.Settings()})
}

// UpdateSettings applies a partial settings update and broadcasts theme
// changes to every open surface.
func (h *Handlers) UpdateSettings(c *gin.Context) {
	var upd types.SettingsUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	settings, err := h.registry.UpdateSettings(upd)
	if err != nil {
		h.persistenceFault(c, err)
		return
	}
	if upd.Theme != nil {
		h.surfaces.Broadcast("theme-update", *upd.Theme)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "settings": settings})
}

// SaveIcon stores an uploaded custom icon.
func (h *Handlers) SaveIcon(c *gin.Context) {
	var body struct {
		Filename string `json:"filename" binding:"required"`
		Data     []byte `json:"data" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	name, err := h.icons.Save(body.Filename, body.Data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "filename": name})
}

// OpenExternal hands a URL to the system browser. Only http(s) URLs leave
// the shell.
func (h *Handlers) OpenExternal(c *gin.Context) {
	var body struct {
		URL string `json:"url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	u, err := url.Parse(body.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "only http(s) URLs can be opened"})
		return
	}
	if err := h.openExternal(body.URL); err != nil {
		h.log.Warn("open external failed", zap.String("url", body.URL), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"success": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ClearChat drops a widget's conversation history.
func (h *Handlers) ClearChat(c *gin.Context) {
	h.chats.ClearHistory(c.Param("widget"))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handlers) persistenceFault(c *gin.Context, err error) {
	h.log.Error("persistence fault", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
}

func systemOpen(target string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", target).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", target).Start()
	default:
		return exec.Command("xdg-open", target).Start()
	}
}
