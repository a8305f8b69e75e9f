package transfer

import (
	"log/slog"
	"os"

	"restack/internal/logging"
	"restack/internal/permissions"
)

// Engine performs the filesystem work for one item: directory
// materialization, streaming copies, and rename-or-fallback moves. It holds
// no per-request state; everything request-scoped travels in the Session.
type Engine struct {
	perms  *permissions.Normalizer
	logger *slog.Logger

	// rename is swappable so tests can force the copy fallback.
	rename func(oldpath, newpath string) error
}

// NewEngine builds an engine around the permission normalizer.
func NewEngine(perms *permissions.Normalizer, logger *slog.Logger) *Engine {
	return &Engine{
		perms:  perms,
		logger: logging.NewComponentLogger(logger, "transfer-engine"),
		rename: os.Rename,
	}
}
