package permissions

import (
	"fmt"
	"log/slog"
	"os"

	"restack/internal/config"
	"restack/internal/logging"
)

// Normalizer applies the configured ownership and mode bits to files and
// directories the transfer engine creates. Both calls are idempotent and safe
// on paths that already carry the right attributes. Chown runs only when a
// non-negative uid or gid is configured, so unprivileged runs skip it.
type Normalizer struct {
	uid      int
	gid      int
	fileMode os.FileMode
	dirMode  os.FileMode
	logger   *slog.Logger
}

// New builds a Normalizer from configuration. Mode strings are validated at
// config load; a parse failure here indicates the config was not loaded
// through config.Load.
func New(cfg *config.Config, logger *slog.Logger) (*Normalizer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("permissions: nil config")
	}
	fileBits, err := config.ParseMode(cfg.Permissions.FileMode)
	if err != nil {
		return nil, fmt.Errorf("permissions: file mode: %w", err)
	}
	dirBits, err := config.ParseMode(cfg.Permissions.DirMode)
	if err != nil {
		return nil, fmt.Errorf("permissions: dir mode: %w", err)
	}
	return &Normalizer{
		uid:      cfg.Permissions.UID,
		gid:      cfg.Permissions.GID,
		fileMode: os.FileMode(fileBits),
		dirMode:  os.FileMode(dirBits),
		logger:   logging.NewComponentLogger(logger, "permissions"),
	}, nil
}

// ApplyFileMode normalizes ownership and mode on a file.
func (n *Normalizer) ApplyFileMode(path string) error {
	return n.apply(path, n.fileMode)
}

// ApplyDirMode normalizes ownership and mode on a directory.
func (n *Normalizer) ApplyDirMode(path string) error {
	return n.apply(path, n.dirMode)
}

// FileMode returns the mode bits applied to files, for callers that create
// files directly.
func (n *Normalizer) FileMode() os.FileMode { return n.fileMode }

// DirMode returns the mode bits applied to directories.
func (n *Normalizer) DirMode() os.FileMode { return n.dirMode }

func (n *Normalizer) apply(path string, mode os.FileMode) error {
	if err := os.Chmod(path, mode); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if n.uid < 0 && n.gid < 0 {
		return nil
	}
	if err := os.Chown(path, n.uid, n.gid); err != nil {
		return fmt.Errorf("chown %s: %w", path, err)
	}
	n.logger.Debug("normalized ownership",
		logging.String("path", path),
		logging.Int("uid", n.uid),
		logging.Int("gid", n.gid),
	)
	return nil
}
