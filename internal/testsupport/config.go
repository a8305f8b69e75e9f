package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"restack/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// The downloads, media, and log directories exist when it returns.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DownloadsDir = filepath.Join(base, "downloads")
	cfg.Paths.MediaDir = filepath.Join(base, "media")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}

	for _, dir := range []string{cfg.Paths.DownloadsDir, cfg.Paths.MediaDir, cfg.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	return &cfg
}

// WithOverwriteModes overrides the permission mode strings on the test config.
func WithOverwriteModes(fileMode, dirMode string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Permissions.FileMode = fileMode
		cfg.Permissions.DirMode = dirMode
	}
}
