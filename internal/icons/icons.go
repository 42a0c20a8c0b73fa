package icons

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// allowed maps accepted icon MIME types to their canonical extensions.
var allowed = map[string]string{
	"image/svg+xml": ".svg",
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/x-icon":  ".ico",
}

// Service stores user-uploaded subspace icons on disk.
type Service struct {
	dir string
}

// NewService creates the icon directory if needed.
func NewService(dir string) (*Service, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create icon directory: %w", err)
	}
	return &Service{dir: dir}, nil
}

// Save sniffs the payload's type, rejects anything that is not an image, and
// writes it under a sanitized name with the extension the content actually
// has. Returns the stored filename.
func (s *Service) Save(filename string, data []byte) (string, error) {
	mt := mimetype.Detect(data)
	ext, ok := allowed[mt.String()]
	if !ok {
		return "", fmt.Errorf("unsupported icon type %s", mt.String())
	}

	base := sanitize(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	if base == "" {
		base = "icon"
	}
	name := base + ext

	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write icon: %w", err)
	}
	return name, nil
}

// Path returns the on-disk path for a stored icon name.
func (s *Service) Path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
