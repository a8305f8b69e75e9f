package transfer

import (
	"context"
	"os"

	"restack/internal/logging"
	"restack/internal/paths"
)

// cleanupSources removes source directories a move request left empty. The
// candidates are the parents of every validated source, deepest first so
// nested chains collapse bottom-up. Removal is non-recursive and non-forcing:
// it succeeds only on empty directories, and every failure (non-empty,
// permission, already gone) is swallowed. The downloads root itself is never
// a candidate.
func (o *Orchestrator) cleanupSources(ctx context.Context, sess *Session) {
	for _, dir := range sess.SourceParents() {
		if ctx.Err() != nil {
			return
		}
		if dir == o.srcRoot || !paths.Within(o.srcRoot, dir) {
			continue
		}
		if err := os.Remove(dir); err == nil {
			o.logger.Debug("removed empty source directory", logging.String("path", dir))
		}
	}
}
