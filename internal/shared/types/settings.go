package types

// VeraAISettings configures the AI sidebar.
type VeraAISettings struct {
	Enabled bool   `json:"enabled"`
	APIKey  string `json:"apiKey"`
	Model   string `json:"model"`
}

// Settings is the process-wide persisted document. There is exactly one
// instance; it is loaded at startup and every mutation round-trips through
// the store before the caller sees success.
type Settings struct {
	Spaces         []Space        `json:"spaces"`
	Theme          string         `json:"theme"`
	AdBlockEnabled bool           `json:"adBlockEnabled"`
	SyncEnabled    bool           `json:"syncEnabled"`
	Language       string         `json:"language"`
	OpenAIAPIKey   string         `json:"openaiApiKey,omitempty"`
	VeraAI         VeraAISettings `json:"veraAI"`
}

// DefaultSettings returns the first-run document.
func DefaultSettings() Settings {
	return Settings{
		Spaces:         []Space{},
		Theme:          "light",
		AdBlockEnabled: true,
		SyncEnabled:    false,
		Language:       "en",
		VeraAI: VeraAISettings{
			Enabled: false,
			Model:   "gpt-4-turbo-preview",
		},
	}
}

// VeraAIUpdate is a partial update of VeraAISettings.
type VeraAIUpdate struct {
	Enabled *bool   `json:"enabled,omitempty"`
	APIKey  *string `json:"apiKey,omitempty"`
	Model   *string `json:"model,omitempty"`
}

// SettingsUpdate is a partial update of the global settings. The spaces list
// is never mutated through this path; space CRUD owns it.
type SettingsUpdate struct {
	Theme          *string       `json:"theme,omitempty"`
	AdBlockEnabled *bool         `json:"adBlockEnabled,omitempty"`
	SyncEnabled    *bool         `json:"syncEnabled,omitempty"`
	Language       *string       `json:"language,omitempty"`
	OpenAIAPIKey   *string       `json:"openaiApiKey,omitempty"`
	VeraAI         *VeraAIUpdate `json:"veraAI,omitempty"`
}

// CatalogEntry is one app in the static catalog shown by the shell.
type CatalogEntry struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	URL      string `json:"url" yaml:"url"`
	Icon     string `json:"icon" yaml:"icon"`
	Category string `json:"category" yaml:"category"`
}

// Bounds is a window rectangle, persisted per space so geometry survives
// restarts.
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}
