package types

import "time"

// ChatbotType selects the assistant specialization for a space.
type ChatbotType string

const (
	ChatbotGeneric   ChatbotType = "generic"
	ChatbotJobSearch ChatbotType = "job_search"
)

// SpaceSettings holds per-space toggles.
type SpaceSettings struct {
	AdBlockEnabled bool `json:"adBlockEnabled"`
	Notifications  bool `json:"notifications"`
	LockEnabled    bool `json:"lockEnabled"`
}

// DefaultSpaceSettings returns the settings applied to a new space.
func DefaultSpaceSettings() SpaceSettings {
	return SpaceSettings{
		AdBlockEnabled: true,
		Notifications:  true,
		LockEnabled:    false,
	}
}

// Subspace is one embedded web app inside a space. Its partition names an
// isolated storage scope distinct from the parent space and from siblings,
// and never changes after creation.
type Subspace struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Icon      string    `json:"icon,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	Partition string    `json:"partition"`
	CreatedAt time.Time `json:"createdAt"`
}

// Space is an isolated workspace grouping related web apps under one
// storage/session boundary.
type Space struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Icon          string        `json:"icon,omitempty"`
	Color         string        `json:"color"`
	Subspaces     []Subspace    `json:"subspaces"`
	Settings      SpaceSettings `json:"settings"`
	CreatedAt     time.Time     `json:"createdAt"`
	PersonalData  string        `json:"personalData,omitempty"`
	ChatbotType   ChatbotType   `json:"chatbotType,omitempty"`
	PortfolioData string        `json:"portfolioData,omitempty"`
	// LockHash is the bcrypt hash backing LockEnabled. Never returned to
	// API callers in plain form; kept in the persisted document only.
	LockHash string `json:"lockHash,omitempty"`
}

// SpaceSettingsUpdate is a partial update of SpaceSettings. Nil fields are
// left untouched (deep merge).
type SpaceSettingsUpdate struct {
	AdBlockEnabled *bool `json:"adBlockEnabled,omitempty"`
	Notifications  *bool `json:"notifications,omitempty"`
	LockEnabled    *bool `json:"lockEnabled,omitempty"`
}

// SpaceUpdate is a partial update of a Space. Nil fields are left untouched;
// the nested Settings update merges field-by-field rather than replacing the
// settings object wholesale.
type SpaceUpdate struct {
	Name          *string              `json:"name,omitempty"`
	Icon          *string              `json:"icon,omitempty"`
	Color         *string              `json:"color,omitempty"`
	Settings      *SpaceSettingsUpdate `json:"settings,omitempty"`
	PersonalData  *string              `json:"personalData,omitempty"`
	ChatbotType   *ChatbotType         `json:"chatbotType,omitempty"`
	PortfolioData *string              `json:"portfolioData,omitempty"`
	LockPasscode  *string              `json:"lockPasscode,omitempty"`
}

// SubspaceConfig is the caller-supplied portion of a new subspace.
type SubspaceConfig struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	Icon      string `json:"icon,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
}

// SpaceConfig is the caller-supplied portion of a new space. Every field is
// optional; defaults are filled by the registry.
type SpaceConfig struct {
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Icon      string         `json:"icon,omitempty"`
	Color     string         `json:"color,omitempty"`
	Subspaces []Subspace     `json:"subspaces,omitempty"`
	Settings  *SpaceSettings `json:"settings,omitempty"`
}
