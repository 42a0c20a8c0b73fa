package types

// SurfaceInfo is the externally visible state of a live surface.
type SurfaceInfo struct {
	SpaceID   string   `json:"space_id"`
	Title     string   `json:"title"`
	Partition string   `json:"partition"`
	Bounds    Bounds   `json:"bounds"`
	Views     []string `json:"views"`   // subspace ids with a created content view
	Visible   string   `json:"visible"` // subspace id of the visible view, if any
}

// SurfaceStats summarizes the session manager.
type SurfaceStats struct {
	TotalSurfaces int     `json:"total_surfaces"`
	TotalViews    int     `json:"total_views"`
	FocusedSpace  *string `json:"focused_space,omitempty"`
}
