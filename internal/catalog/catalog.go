package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/goccy/go-yaml"

	"github.com/GriffinCanCode/VeraDesk/backend/internal/shared/types"
)

//go:embed catalog.yaml
var embedded []byte

type document struct {
	Apps []types.CatalogEntry `yaml:"apps"`
}

// Catalog is the static list of known apps offered when adding a subspace.
type Catalog struct {
	entries []types.CatalogEntry
	byID    map[string]types.CatalogEntry
}

// Load returns the built-in catalog, or the one at overridePath when set.
// An override replaces the built-in list wholesale.
func Load(overridePath string) (*Catalog, error) {
	raw := embedded
	if overridePath != "" {
		var err error
		raw, err = os.ReadFile(overridePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog: %w", err)
		}
	}

	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := &Catalog{
		entries: doc.Apps,
		byID:    make(map[string]types.CatalogEntry, len(doc.Apps)),
	}
	for _, e := range doc.Apps {
		c.byID[e.ID] = e
	}
	return c, nil
}

// Entries returns every app in catalog order.
func (c *Catalog) Entries() []types.CatalogEntry {
	out := make([]types.CatalogEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Get looks an app up by id.
func (c *Catalog) Get(appID string) (types.CatalogEntry, bool) {
	e, ok := c.byID[appID]
	return e, ok
}

// Categories returns the distinct categories, sorted.
func (c *Catalog) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range c.entries {
		if !seen[e.Category] {
			seen[e.Category] = true
			out = append(out, e.Category)
		}
	}
	sort.Strings(out)
	return out
}
