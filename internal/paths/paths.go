package paths

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"restack/internal/config"
)

// Pane names the two managed filesystem roots.
type Pane string

const (
	PaneDownloads Pane = "downloads"
	PaneMedia     Pane = "media"
)

var (
	// ErrInvalidPath marks a relative path that escapes its base root.
	ErrInvalidPath = errors.New("invalid path")
	// ErrUnknownPane marks a pane name outside downloads/media.
	ErrUnknownPane = errors.New("unknown pane")
)

// Roots holds the two validated base roots for a running instance. The roots
// are resolved once from configuration and treated as read-only afterwards.
type Roots struct {
	downloads string
	media     string
}

// NewRoots builds the pane roots from configuration.
func NewRoots(cfg *config.Config) (Roots, error) {
	if cfg == nil {
		return Roots{}, errors.New("paths: nil config")
	}
	downloads := filepath.Clean(strings.TrimSpace(cfg.Paths.DownloadsDir))
	media := filepath.Clean(strings.TrimSpace(cfg.Paths.MediaDir))
	if !filepath.IsAbs(downloads) || !filepath.IsAbs(media) {
		return Roots{}, errors.New("paths: pane roots must be absolute")
	}
	return Roots{downloads: downloads, media: media}, nil
}

// Base returns the absolute root for the named pane.
func (r Roots) Base(pane Pane) (string, error) {
	switch pane {
	case PaneDownloads:
		return r.downloads, nil
	case PaneMedia:
		return r.media, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPane, pane)
	}
}

// Downloads returns the staging root.
func (r Roots) Downloads() string { return r.downloads }

// Media returns the library root.
func (r Roots) Media() string { return r.media }

// Resolve validates relPath against baseRoot and returns the absolute path.
// Separators are normalized and dot segments collapsed; the result must be the
// root itself or a strict descendant, otherwise ErrInvalidPath is returned.
// Resolve never touches the filesystem.
func Resolve(baseRoot, relPath string) (string, error) {
	base := filepath.Clean(strings.TrimSpace(baseRoot))
	if base == "" || !filepath.IsAbs(base) {
		return "", fmt.Errorf("%w: base root %q is not absolute", ErrInvalidPath, baseRoot)
	}

	normalized := strings.ReplaceAll(strings.TrimSpace(relPath), "\\", "/")
	normalized = strings.TrimPrefix(normalized, "/")
	candidate := filepath.Clean(filepath.Join(base, filepath.FromSlash(normalized)))

	if !Within(base, candidate) {
		return "", fmt.Errorf("%w: %q escapes %q", ErrInvalidPath, relPath, baseRoot)
	}
	return candidate, nil
}

// Sanitize strips "." and ".." segments from a destination path before
// resolution. Stripping everything away is an error: the caller would
// otherwise write onto the base root itself.
func Sanitize(relPath string) (string, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(relPath), "\\", "/")
	parts := strings.Split(normalized, "/")
	kept := parts[:0]
	for _, part := range parts {
		switch part {
		case "", ".", "..":
			continue
		}
		kept = append(kept, part)
	}
	if len(kept) == 0 {
		return "", fmt.Errorf("%w: destination %q is empty after sanitization", ErrInvalidPath, relPath)
	}
	return strings.Join(kept, "/"), nil
}

// Within reports whether path equals root or is a descendant of it. Both
// arguments must already be absolute and cleaned.
func Within(root, path string) bool {
	if path == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}
